package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
)

type InvoiceStatus string

const (
	InvoiceUnpaid    InvoiceStatus = "unpaid"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Number        string          `db:"number" json:"number"`
	OrderID       uuid.UUID       `db:"order_id" json:"order_id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	SubtotalCents int64           `db:"subtotal_cents" json:"subtotal_cents"`
	TaxRate       decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	TaxCents      int64           `db:"tax_cents" json:"tax_cents"`
	TotalCents    int64           `db:"total_cents" json:"total_cents"`
	Currency      string          `db:"currency" json:"currency"`
	Status        InvoiceStatus   `db:"status" json:"status"`
	IssuedAt      time.Time       `db:"issued_at" json:"issued_at"`
	DueAt         time.Time       `db:"due_at" json:"due_at"`
	PaidAt        *time.Time      `db:"paid_at" json:"paid_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type InvoiceRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, invoice *Invoice) error
	Update(ctx context.Context, invoice *Invoice) error
	Find(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Invoice, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}
