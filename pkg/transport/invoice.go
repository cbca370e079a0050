package transport

import (
	"net/http"

	"storefront/pkg/domain/model"
	"storefront/pkg/infrastructure/auth"
)

func (h *handler) listMyInvoices(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	invoices, err := h.Invoices.ListUserInvoices(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", invoices)
}

func (h *handler) getInvoice(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	invoice, err := h.Invoices.GetInvoice(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if invoice.UserID != identity.UserID && identity.Role != model.RoleAdmin {
		respondError(w, r, model.ErrInvoiceNotFound)
		return
	}
	respondOK(w, "", invoice)
}
