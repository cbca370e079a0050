package transport

import (
	"net/http"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
)

type orderLineRequest struct {
	ItemType string    `json:"item_type" validate:"required,oneof=product service custom_service"`
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0,lte=1000"`
}

type orderRequest struct {
	Items []orderLineRequest `json:"items" validate:"required,min=1,max=100,dive"`
	Notes string             `json:"notes" validate:"max=2000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing completed cancelled"`
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	lines := make([]service.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.OrderLine{
			ItemType: model.ItemType(item.ItemType),
			ItemID:   item.ItemID,
			Quantity: item.Quantity,
		})
	}
	order, err := h.Orders.CreateOrder(r.Context(), identity.UserID, lines, req.Notes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, "order created", order)
}

func (h *handler) listMyOrders(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	orders, err := h.Orders.ListUserOrders(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", orders)
}

func (h *handler) listAllOrders(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	orders, err := h.Orders.ListOrders(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", orders)
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	order, ok := h.visibleOrder(w, r, identity)
	if !ok {
		return
	}
	respondOK(w, "", order)
}

func (h *handler) cancelOrder(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	order, ok := h.visibleOrder(w, r, identity)
	if !ok {
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Orders.CancelOrder(r.Context(), order.ID, req.Reason); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "order cancelled", nil)
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Orders.UpdateOrderStatus(r.Context(), id, model.OrderStatus(req.Status)); err != nil {
		respondError(w, r, err)
		return
	}
	h.SystemLogs.Record(r.Context(), model.LevelInfo, "order.status_changed", &identity.UserID,
		"order status changed", map[string]interface{}{"orderId": id, "status": req.Status})
	respondOK(w, "order status updated", nil)
}

func (h *handler) listOrderPayments(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	order, ok := h.visibleOrder(w, r, identity)
	if !ok {
		return
	}
	payments, err := h.Payments.ListOrderPayments(r.Context(), order.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", payments)
}

// visibleOrder loads the order in the path for its owner or an admin.
// Other callers get not found so order ids cannot be probed.
func (h *handler) visibleOrder(w http.ResponseWriter, r *http.Request, identity auth.Identity) (*model.Order, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	order, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	if order.UserID != identity.UserID && identity.Role != model.RoleAdmin {
		respondError(w, r, model.ErrOrderNotFound)
		return nil, false
	}
	return order, true
}
