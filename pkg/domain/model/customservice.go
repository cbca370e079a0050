package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCustomServiceNotFound   = errors.New("custom service not found")
	ErrCustomServiceNotPayable = errors.New("custom service is not payable")
)

type CustomServiceStatus string

const (
	CustomServicePending   CustomServiceStatus = "pending"
	CustomServicePaid      CustomServiceStatus = "paid"
	CustomServiceCancelled CustomServiceStatus = "cancelled"
	CustomServiceExpired   CustomServiceStatus = "expired"
)

// CustomService is a bespoke quote prepared by staff for one user and paid
// through a link carrying Token.
type CustomService struct {
	ID          uuid.UUID           `db:"id" json:"id"`
	UserID      uuid.UUID           `db:"user_id" json:"user_id"`
	CreatedBy   uuid.UUID           `db:"created_by" json:"created_by"`
	Title       string              `db:"title" json:"title"`
	Description string              `db:"description" json:"description"`
	PriceCents  int64               `db:"price_cents" json:"price_cents"`
	Token       string              `db:"token" json:"token"`
	Status      CustomServiceStatus `db:"status" json:"status"`
	OrderID     *uuid.UUID          `db:"order_id" json:"order_id"`
	ExpiresAt   time.Time           `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

func (c *CustomService) PayableBy(userID uuid.UUID, now time.Time) bool {
	return c.UserID == userID && c.Status == CustomServicePending && now.Before(c.ExpiresAt)
}

// ReservedFor reports whether the quote is still open and held by orderID.
func (c *CustomService) ReservedFor(orderID uuid.UUID, now time.Time) bool {
	return c.Status == CustomServicePending && c.OrderID != nil && *c.OrderID == orderID && now.Before(c.ExpiresAt)
}

type CustomServiceRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, cs *CustomService) error
	Update(ctx context.Context, cs *CustomService) error
	Find(ctx context.Context, id uuid.UUID) (*CustomService, error)
	FindByToken(ctx context.Context, token string) (*CustomService, error)
	// MarkPaid settles a pending quote reserved by orderID.
	MarkPaid(ctx context.Context, id, orderID uuid.UUID) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
