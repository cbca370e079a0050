package transport

import (
	"net/http"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
	"storefront/pkg/infrastructure/auth"
	"storefront/pkg/metrics"
)

type processPaymentRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
}

type paymentResponse struct {
	Payment      *model.Payment `json:"payment"`
	ClientSecret string         `json:"client_secret,omitempty"`
	RedirectURL  string         `json:"redirect_url,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
}

func (h *handler) processPayment(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req processPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.pay(w, r, identity, req.OrderID, method)
}

func (h *handler) pay(w http.ResponseWriter, r *http.Request, identity auth.Identity, orderID uuid.UUID, method model.PaymentMethod) {
	result, err := h.Payments.ProcessPayment(r.Context(), identity.UserID, orderID, method)
	if err != nil {
		metrics.RecordPayment(string(method), "error")
		respondError(w, r, err)
		return
	}
	metrics.RecordPayment(string(method), string(result.Payment.Status))

	message := "payment initiated"
	if result.Payment.Status == model.ChargeCompleted {
		message = "payment completed"
	}
	respondOK(w, message, paymentResponse{
		Payment:      result.Payment,
		ClientSecret: result.ClientSecret,
		RedirectURL:  result.RedirectURL,
		Instructions: result.Instructions,
	})
}

func (h *handler) getPayment(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	payment, err := h.Payments.GetPayment(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if payment.UserID != identity.UserID && identity.Role != model.RoleAdmin {
		respondError(w, r, model.ErrPaymentNotFound)
		return
	}
	respondOK(w, "", payment)
}

func (h *handler) confirmPayment(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Payments.ConfirmPayment(r.Context(), id, identity.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	metrics.RecordPayment(string(model.MethodBankTransfer), string(model.ChargeCompleted))
	respondOK(w, "payment confirmed", nil)
}

func (h *handler) refundPayment(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Payments.RefundPayment(r.Context(), id, identity.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "payment refunded", nil)
}

