package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletExists      = errors.New("wallet already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type TransactionType string

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
	Refund     TransactionType = "refund"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCommitted TransactionStatus = "committed"
	TxFailed    TransactionStatus = "failed"
)

type Wallet struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	Currency     string    `db:"currency" json:"currency"`
	Version      int       `db:"version" json:"version"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type WalletTransaction struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	WalletID     uuid.UUID         `db:"wallet_id" json:"wallet_id"`
	Type         TransactionType   `db:"type" json:"type"`
	AmountCents  int64             `db:"amount_cents" json:"amount_cents"`
	ReferenceID  string            `db:"reference_id" json:"reference_id"`
	Status       TransactionStatus `db:"status" json:"status"`
	ErrorMessage string            `db:"error_message" json:"error_message"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

type WalletRepository interface {
	NextID() (uuid.UUID, error)
	CreateWallet(ctx context.Context, wallet *Wallet) error
	GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	// Commit stores the new wallet balance together with the committed transaction.
	// wallet.Version must be the stored version plus one, otherwise ErrOptimisticLock.
	Commit(ctx context.Context, wallet *Wallet, tx *WalletTransaction) error
	SaveTransaction(ctx context.Context, tx *WalletTransaction) error
	FindCommittedTransaction(ctx context.Context, walletID uuid.UUID, txType TransactionType, referenceID string) (*WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]WalletTransaction, error)
}
