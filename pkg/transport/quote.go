package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
)

type quoteRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents" validate:"gt=0"`
	ValidDays   int       `json:"valid_days" validate:"gte=0,lte=365"`
}

type payRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

func (h *handler) createQuote(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	quote, err := h.Quotes.CreateQuote(r.Context(), service.QuoteInput{
		UserID:      req.UserID,
		CreatedBy:   identity.UserID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		ValidFor:    time.Duration(req.ValidDays) * 24 * time.Hour,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, "custom service created", quote)
}

func (h *handler) getQuote(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	quote, err := h.Quotes.GetByToken(r.Context(), pathToken(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if quote.UserID != identity.UserID && identity.Role != model.RoleAdmin {
		respondError(w, r, model.ErrCustomServiceNotFound)
		return
	}
	respondOK(w, "", quote)
}

// payQuote turns the quote into a one-line order and pays it.
func (h *handler) payQuote(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, r, err)
		return
	}

	quote, err := h.Quotes.Payable(r.Context(), pathToken(r), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// A quote already reserved by an order is paid through that order.
	if quote.OrderID != nil {
		h.pay(w, r, identity, *quote.OrderID, method)
		return
	}
	order, err := h.Orders.CreateOrder(r.Context(), identity.UserID, []service.OrderLine{
		{ItemType: model.ItemCustomService, ItemID: quote.ID, Quantity: 1},
	}, quote.Title)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.pay(w, r, identity, order.ID, method)
}

func (h *handler) cancelQuote(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Quotes.CancelQuote(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "custom service cancelled", nil)
}

func pathToken(r *http.Request) string {
	return mux.Vars(r)["token"]
}
