package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrUnsupportedMethod    = errors.New("unsupported payment method")
	ErrOrderNotPayable      = errors.New("order cannot be paid in its current state")
	ErrPaymentNotRefundable = errors.New("only completed payments can be refunded")
	ErrPaymentNotPending    = errors.New("payment is not pending")
)

type PaymentMethod string

const (
	MethodWallet       PaymentMethod = "wallet"
	MethodStripe       PaymentMethod = "stripe"
	MethodPayPal       PaymentMethod = "paypal"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case MethodWallet, MethodStripe, MethodPayPal, MethodBankTransfer:
		return m, nil
	}
	return "", ErrUnsupportedMethod
}

type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeCompleted ChargeStatus = "completed"
	ChargeFailed    ChargeStatus = "failed"
	ChargeRefunded  ChargeStatus = "refunded"
)

type Payment struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	OrderID       uuid.UUID     `db:"order_id" json:"order_id"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	Method        PaymentMethod `db:"method" json:"method"`
	AmountCents   int64         `db:"amount_cents" json:"amount_cents"`
	Currency      string        `db:"currency" json:"currency"`
	Status        ChargeStatus  `db:"status" json:"status"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	ClientSecret  string        `db:"client_secret" json:"-"`
	FailureReason string        `db:"failure_reason" json:"failure_reason"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
	CompletedAt   *time.Time    `db:"completed_at" json:"completed_at"`
}

type PaymentRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, payment *Payment) error
	Find(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByTransactionID(ctx context.Context, method PaymentMethod, transactionID string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error)
	// SaveWithOrder moves the payment out of status from and stores the order status
	// columns in one transaction. order.Version must be the stored version plus one.
	// A failed check gives ErrOptimisticLock.
	SaveWithOrder(ctx context.Context, payment *Payment, from ChargeStatus, order *Order) error
	// Transition moves the payment out of status from, otherwise ErrOptimisticLock.
	Transition(ctx context.Context, payment *Payment, from ChargeStatus) error
}

// PaymentIntent is what a provider hands back to finish the payment client side.
type PaymentIntent struct {
	TransactionID string
	ClientSecret  string
	RedirectURL   string
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, order *Order, amountCents int64) (PaymentIntent, error)
	Refund(ctx context.Context, transactionID string, amountCents int64) error
}
