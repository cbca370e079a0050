package transport

import (
	"net/http"

	"storefront/pkg/domain/model"
	"storefront/pkg/infrastructure/auth"
)

type depositRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Reference   string `json:"reference" validate:"required,max=128"`
}

func (h *handler) wallet(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	wallet, err := h.Wallets.GetWallet(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", wallet)
}

func (h *handler) walletTransactions(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	txs, err := h.Wallets.ListTransactions(r.Context(), identity.UserID, queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", txs)
}

func (h *handler) deposit(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	userID, err := pathID(r, "userId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	wallet, err := h.Wallets.Deposit(r.Context(), userID, req.AmountCents, req.Reference)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.SystemLogs.Record(r.Context(), model.LevelInfo, "wallet.deposit", &identity.UserID,
		"funds deposited", map[string]interface{}{"userId": userID, "amountCents": req.AmountCents, "reference": req.Reference})
	respondOK(w, "funds deposited", wallet)
}
