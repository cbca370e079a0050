package transport

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
)

type reviewRequest struct {
	ItemType string    `json:"item_type" validate:"required,oneof=product service"`
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Rating   int       `json:"rating" validate:"required,min=1,max=5"`
	Comment  string    `json:"comment"`
}

type moderateRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (h *handler) itemReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	itemType := model.ItemType(strings.TrimSuffix(mux.Vars(r)["kind"], "s"))
	summary, err := h.Reviews.ItemReviews(r.Context(), itemType, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", map[string]interface{}{
		"reviews": summary.Reviews,
		"average": summary.Average,
		"count":   summary.Count,
	})
}

func (h *handler) submitReview(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	review, err := h.Reviews.SubmitReview(r.Context(), service.ReviewInput{
		UserID:   identity.UserID,
		ItemType: model.ItemType(req.ItemType),
		ItemID:   req.ItemID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, "review submitted for moderation", review)
}

func (h *handler) moderateReview(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req moderateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Reviews.ModerateReview(r.Context(), id, model.ReviewStatus(req.Status)); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "review "+req.Status, nil)
}
