package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

type WalletService interface {
	CreateWallet(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	Deposit(ctx context.Context, userID uuid.UUID, amountCents int64, referenceID string) (*model.Wallet, error)
	// Charge debits the wallet once per payment id.
	Charge(ctx context.Context, userID, paymentID uuid.UUID, amountCents int64) error
	// Refund credits back the charge of a payment, once.
	Refund(ctx context.Context, userID, paymentID uuid.UUID, amountCents int64) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]model.WalletTransaction, error)
}

func NewWalletService(repo model.WalletRepository, dispatcher domain.EventDispatcher, currency string) WalletService {
	return &walletService{repo: repo, dispatcher: dispatcher, currency: currency}
}

type walletService struct {
	repo       model.WalletRepository
	dispatcher domain.EventDispatcher
	currency   string
}

func (s *walletService) CreateWallet(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	if existing, err := s.repo.GetWalletByUserID(ctx, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, model.ErrWalletNotFound) {
		return nil, err
	}

	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	wallet := &model.Wallet{
		ID:        id,
		UserID:    userID,
		Currency:  s.currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *walletService) GetWallet(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	return s.repo.GetWalletByUserID(ctx, userID)
}

func (s *walletService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	wallet, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.BalanceCents, nil
}

func (s *walletService) Deposit(ctx context.Context, userID uuid.UUID, amountCents int64, referenceID string) (*model.Wallet, error) {
	if amountCents <= 0 {
		return nil, model.ErrInvalidAmount
	}
	return s.processTransaction(ctx, userID, amountCents, referenceID, model.Deposit)
}

func (s *walletService) Charge(ctx context.Context, userID, paymentID uuid.UUID, amountCents int64) error {
	if amountCents <= 0 {
		return model.ErrInvalidAmount
	}
	_, err := s.processTransaction(ctx, userID, amountCents, paymentID.String(), model.Withdrawal)
	return err
}

func (s *walletService) Refund(ctx context.Context, userID, paymentID uuid.UUID, amountCents int64) error {
	if amountCents <= 0 {
		return model.ErrInvalidAmount
	}
	_, err := s.processTransaction(ctx, userID, amountCents, paymentID.String(), model.Refund)
	return err
}

func (s *walletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]model.WalletTransaction, error) {
	wallet, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, wallet.ID, limit)
}

func (s *walletService) processTransaction(ctx context.Context, userID uuid.UUID, amount int64, refID string, txType model.TransactionType) (*model.Wallet, error) {
	wallet, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A committed transaction with the same reference means a retried request.
	existingTx, err := s.repo.FindCommittedTransaction(ctx, wallet.ID, txType, refID)
	if err != nil {
		return nil, err
	}
	if existingTx != nil {
		return wallet, nil
	}

	txID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}

	tx := &model.WalletTransaction{
		ID:          txID,
		WalletID:    wallet.ID,
		Type:        txType,
		AmountCents: amount,
		ReferenceID: refID,
		Status:      model.TxPending,
		CreatedAt:   time.Now().UTC(),
	}

	if txType == model.Withdrawal {
		if wallet.BalanceCents < amount {
			tx.Status = model.TxFailed
			tx.ErrorMessage = model.ErrInsufficientFunds.Error()
			_ = s.repo.SaveTransaction(ctx, tx)

			_ = s.dispatcher.Dispatch(model.WalletDebitFailed{
				WalletID: wallet.ID, ReferenceID: refID, Reason: model.ErrInsufficientFunds.Error(),
			})
			return nil, model.ErrInsufficientFunds
		}
		wallet.BalanceCents -= amount
	} else {
		wallet.BalanceCents += amount
	}

	wallet.Version++
	wallet.UpdatedAt = time.Now().UTC()
	tx.Status = model.TxCommitted

	if err := s.repo.Commit(ctx, wallet, tx); err != nil {
		return nil, err
	}

	if txType == model.Withdrawal {
		_ = s.dispatcher.Dispatch(model.FundsWithdrawn{
			WalletID: wallet.ID, UserID: userID, AmountCents: amount, ReferenceID: refID,
		})
	} else {
		_ = s.dispatcher.Dispatch(model.FundsDeposited{
			WalletID: wallet.ID, UserID: userID, AmountCents: amount, ReferenceID: refID, NewBalance: wallet.BalanceCents,
		})
	}

	return wallet, nil
}
