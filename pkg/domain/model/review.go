package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrAlreadyReviewed = errors.New("item has already been reviewed by this user")
	ErrNotPurchased    = errors.New("only purchased items can be reviewed")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrNotReviewable   = errors.New("only products and services can be reviewed")
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type Review struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    uuid.UUID    `db:"user_id" json:"user_id"`
	ItemType  ItemType     `db:"item_type" json:"item_type"`
	ItemID    uuid.UUID    `db:"item_id" json:"item_id"`
	Rating    int          `db:"rating" json:"rating"`
	Comment   string       `db:"comment" json:"comment"`
	Status    ReviewStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

type ReviewRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, review *Review) error
	Update(ctx context.Context, review *Review) error
	Find(ctx context.Context, id uuid.UUID) (*Review, error)
	Exists(ctx context.Context, userID uuid.UUID, itemType ItemType, itemID uuid.UUID) (bool, error)
	ListByItem(ctx context.Context, itemType ItemType, itemID uuid.UUID, status ReviewStatus) ([]Review, error)
}
