package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderCompleted, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// AcceptsPayment reports whether a new payment may be created for an order
// in this payment status.
func (s PaymentStatus) AcceptsPayment() bool {
	return s == PaymentPending || s == PaymentFailed
}

type ItemType string

const (
	ItemProduct       ItemType = "product"
	ItemService       ItemType = "service"
	ItemCustomService ItemType = "custom_service"
)

func (t ItemType) Valid() bool {
	return t == ItemProduct || t == ItemService || t == ItemCustomService
}

type Order struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Number        string        `db:"number" json:"number"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	Status        OrderStatus   `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	TotalCents    int64         `db:"total_cents" json:"total_cents"`
	Currency      string        `db:"currency" json:"currency"`
	Notes         string        `db:"notes" json:"notes"`
	Version       int           `db:"version" json:"-"`
	Items         []OrderItem   `db:"-" json:"items"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

func (o *Order) Contains(itemType ItemType, itemID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.ItemType == itemType && item.ItemID == itemID {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrderID        uuid.UUID `db:"order_id" json:"order_id"`
	ItemType       ItemType  `db:"item_type" json:"item_type"`
	ItemID         uuid.UUID `db:"item_id" json:"item_id"`
	Name           string    `db:"name" json:"name"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	TotalCents     int64     `db:"total_cents" json:"total_cents"`
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	// Create stores the order with its items, takes product stock and reserves custom
	// services in one transaction. It fails with ErrInsufficientStock when a product ran
	// out meanwhile and ErrCustomServiceNotPayable when a custom service is already reserved.
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
	// UpdateStatus and Cancel expect order.Version to be the stored version plus one,
	// otherwise ErrOptimisticLock.
	UpdateStatus(ctx context.Context, order *Order) error
	// Cancel marks an unpaid order cancelled, returns product stock and releases its
	// custom services in one transaction.
	Cancel(ctx context.Context, order *Order) error
	HasPurchased(ctx context.Context, userID uuid.UUID, itemType ItemType, itemID uuid.UUID) (bool, error)
}
