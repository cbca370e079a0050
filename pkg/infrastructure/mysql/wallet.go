package mysql

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const walletTransactionColumns = `id, wallet_id, type, amount_cents, reference_id, status,
	error_message, created_at`

type walletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) model.WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *walletRepository) CreateWallet(ctx context.Context, wallet *model.Wallet) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance_cents, currency, version, created_at, updated_at)
		VALUES (:id, :user_id, :balance_cents, :currency, :version, :created_at, :updated_at)`,
		wallet)
	if isDuplicate(err) {
		return model.ErrWalletExists
	}
	return errors.Wrap(err, "insert wallet")
}

func (r *walletRepository) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.GetContext(ctx, &wallet, `
		SELECT id, user_id, balance_cents, currency, version, created_at, updated_at
		FROM wallets WHERE user_id = ?`, userID)
	if isNoRows(err) {
		return nil, model.ErrWalletNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find wallet")
	}
	return &wallet, nil
}

func (r *walletRepository) Commit(ctx context.Context, wallet *model.Wallet, walletTx *model.WalletTransaction) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			UPDATE wallets SET balance_cents = :balance_cents, version = :version, updated_at = :updated_at
			WHERE id = :id AND version = :version - 1`,
			wallet)
		if err != nil {
			return errors.Wrap(err, "update wallet balance")
		}
		if err := expectRow(res, model.ErrOptimisticLock); err != nil {
			return err
		}
		return insertWalletTransaction(ctx, tx, walletTx)
	})
}

func (r *walletRepository) SaveTransaction(ctx context.Context, walletTx *model.WalletTransaction) error {
	return insertWalletTransaction(ctx, r.db, walletTx)
}

func (r *walletRepository) FindCommittedTransaction(ctx context.Context, walletID uuid.UUID, txType model.TransactionType, referenceID string) (*model.WalletTransaction, error) {
	var walletTx model.WalletTransaction
	err := r.db.GetContext(ctx, &walletTx, `
		SELECT `+walletTransactionColumns+` FROM wallet_transactions
		WHERE wallet_id = ? AND type = ? AND reference_id = ? AND status = ?
		LIMIT 1`,
		walletID, txType, referenceID, model.TxCommitted)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find wallet transaction")
	}
	return &walletTx, nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]model.WalletTransaction, error) {
	var txs []model.WalletTransaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+walletTransactionColumns+` FROM wallet_transactions
		WHERE wallet_id = ? ORDER BY created_at DESC LIMIT ?`,
		walletID, limit)
	return txs, errors.Wrap(err, "list wallet transactions")
}

func insertWalletTransaction(ctx context.Context, db sqlx.ExtContext, walletTx *model.WalletTransaction) error {
	_, err := sqlx.NamedExecContext(ctx, db, `
		INSERT INTO wallet_transactions (id, wallet_id, type, amount_cents, reference_id, status,
			error_message, created_at)
		VALUES (:id, :wallet_id, :type, :amount_cents, :reference_id, :status,
			:error_message, :created_at)`,
		walletTx)
	return errors.Wrap(err, "insert wallet transaction")
}
