package model

import "github.com/google/uuid"

type UserRegistered struct {
	UserID   uuid.UUID
	Email    string
	Username string
	Role     Role
}

func (e UserRegistered) Type() string { return "UserRegistered" }

type UserVerified struct {
	UserID uuid.UUID
}

func (e UserVerified) Type() string { return "UserVerified" }

type UserProfileUpdated struct {
	UserID uuid.UUID
}

func (e UserProfileUpdated) Type() string { return "UserProfileUpdated" }

type UserStatusChanged struct {
	UserID    uuid.UUID
	OldStatus UserStatus
	NewStatus UserStatus
}

func (e UserStatusChanged) Type() string { return "UserStatusChanged" }

type ProductCreated struct {
	ProductID uuid.UUID
	VendorID  uuid.UUID
	Name      string
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type ProductPriceChanged struct {
	ProductID     uuid.UUID
	OldPriceCents int64
	NewPriceCents int64
}

func (e ProductPriceChanged) Type() string { return "ProductPriceChanged" }

type ProductStockChanged struct {
	ProductID    uuid.UUID
	ChangeAmount int
	NewQuantity  int
}

func (e ProductStockChanged) Type() string { return "ProductStockChanged" }

type ProductArchivedEvent struct {
	ProductID uuid.UUID
}

func (e ProductArchivedEvent) Type() string { return "ProductArchived" }

type ServiceCreated struct {
	ServiceID uuid.UUID
	VendorID  uuid.UUID
	Name      string
}

func (e ServiceCreated) Type() string { return "ServiceCreated" }

type CustomServiceCreated struct {
	CustomServiceID uuid.UUID
	UserID          uuid.UUID
	PriceCents      int64
}

func (e CustomServiceCreated) Type() string { return "CustomServiceCreated" }

type OrderCreated struct {
	OrderID    uuid.UUID
	UserID     uuid.UUID
	Number     string
	TotalCents int64
}

func (e OrderCreated) Type() string { return "OrderCreated" }

type OrderStatusChanged struct {
	OrderID   uuid.UUID
	OldStatus OrderStatus
	NewStatus OrderStatus
}

func (e OrderStatusChanged) Type() string { return "OrderStatusChanged" }

type OrderCancelledEvent struct {
	OrderID uuid.UUID
	Reason  string
}

func (e OrderCancelledEvent) Type() string { return "OrderCancelled" }

type PaymentInitiated struct {
	PaymentID     uuid.UUID
	OrderID       uuid.UUID
	Method        PaymentMethod
	TransactionID string
}

func (e PaymentInitiated) Type() string { return "PaymentInitiated" }

type PaymentCompleted struct {
	PaymentID   uuid.UUID
	OrderID     uuid.UUID
	UserID      uuid.UUID
	Method      PaymentMethod
	AmountCents int64
}

func (e PaymentCompleted) Type() string { return "PaymentCompleted" }

type PaymentFailedEvent struct {
	PaymentID uuid.UUID
	OrderID   uuid.UUID
	Reason    string
}

func (e PaymentFailedEvent) Type() string { return "PaymentFailed" }

type PaymentRefundedEvent struct {
	PaymentID   uuid.UUID
	OrderID     uuid.UUID
	AmountCents int64
}

func (e PaymentRefundedEvent) Type() string { return "PaymentRefunded" }

type FundsDeposited struct {
	WalletID    uuid.UUID
	UserID      uuid.UUID
	AmountCents int64
	ReferenceID string
	NewBalance  int64
}

func (e FundsDeposited) Type() string { return "FundsDeposited" }

type FundsWithdrawn struct {
	WalletID    uuid.UUID
	UserID      uuid.UUID
	AmountCents int64
	ReferenceID string
}

func (e FundsWithdrawn) Type() string { return "FundsWithdrawn" }

type WalletDebitFailed struct {
	WalletID    uuid.UUID
	ReferenceID string
	Reason      string
}

func (e WalletDebitFailed) Type() string { return "WalletDebitFailed" }

type InvoiceIssued struct {
	InvoiceID  uuid.UUID
	OrderID    uuid.UUID
	Number     string
	TotalCents int64
}

func (e InvoiceIssued) Type() string { return "InvoiceIssued" }

type ReviewSubmitted struct {
	ReviewID uuid.UUID
	UserID   uuid.UUID
	ItemType ItemType
	ItemID   uuid.UUID
	Rating   int
}

func (e ReviewSubmitted) Type() string { return "ReviewSubmitted" }

type ReviewModerated struct {
	ReviewID uuid.UUID
	Status   ReviewStatus
}

func (e ReviewModerated) Type() string { return "ReviewModerated" }

type NotificationsCreated struct {
	Kind       NotificationType
	Recipients int
}

func (e NotificationsCreated) Type() string { return "NotificationsCreated" }
