package mysql

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const paymentColumns = `id, order_id, user_id, method, amount_cents, currency, status,
	COALESCE(transaction_id, '') AS transaction_id, client_secret, failure_reason,
	created_at, updated_at, completed_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) model.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payments (id, order_id, user_id, method, amount_cents, currency, status,
			transaction_id, client_secret, failure_reason, created_at, updated_at, completed_at)
		VALUES (:id, :order_id, :user_id, :method, :amount_cents, :currency, :status,
			NULLIF(:transaction_id, ''), :client_secret, :failure_reason, :created_at, :updated_at, :completed_at)`,
		payment)
	return errors.Wrap(err, "insert payment")
}

func (r *paymentRepository) Find(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, model.ErrPaymentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find payment")
	}
	return &payment, nil
}

func (r *paymentRepository) FindByTransactionID(ctx context.Context, method model.PaymentMethod, transactionID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment,
		`SELECT `+paymentColumns+` FROM payments WHERE method = ? AND transaction_id = ?`,
		method, transactionID)
	if isNoRows(err) {
		return nil, model.ErrPaymentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find payment by transaction")
	}
	return &payment, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? ORDER BY created_at DESC`, orderID)
	return payments, errors.Wrap(err, "list order payments")
}

func (r *paymentRepository) SaveWithOrder(ctx context.Context, payment *model.Payment, from model.ChargeStatus, order *model.Order) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := updatePayment(ctx, tx, payment, from); err != nil {
			return err
		}
		return updateOrderStatus(ctx, tx, order)
	})
}

func (r *paymentRepository) Transition(ctx context.Context, payment *model.Payment, from model.ChargeStatus) error {
	return updatePayment(ctx, r.db, payment, from)
}

func updatePayment(ctx context.Context, db sqlx.ExecerContext, payment *model.Payment, from model.ChargeStatus) error {
	res, err := db.ExecContext(ctx, `
		UPDATE payments SET status = ?, transaction_id = NULLIF(?, ''), failure_reason = ?,
			updated_at = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		payment.Status, payment.TransactionID, payment.FailureReason,
		payment.UpdatedAt, payment.CompletedAt, payment.ID, from)
	if err != nil {
		return errors.Wrap(err, "update payment")
	}
	return expectRow(res, model.ErrOptimisticLock)
}
