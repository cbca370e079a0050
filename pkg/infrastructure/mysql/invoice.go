package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const invoiceColumns = `id, number, order_id, user_id, subtotal_cents, tax_rate, tax_cents, total_cents,
	currency, status, issued_at, due_at, paid_at, updated_at`

type invoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) model.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (:id, :number, :order_id, :user_id, :subtotal_cents, :tax_rate, :tax_cents, :total_cents,
			:currency, :status, :issued_at, :due_at, :paid_at, :updated_at)`,
		invoice)
	return errors.Wrap(err, "insert invoice")
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE invoices SET status = :status, paid_at = :paid_at, updated_at = :updated_at
		WHERE id = :id`,
		invoice)
	if err != nil {
		return errors.Wrap(err, "update invoice")
	}
	return expectRow(res, model.ErrInvoiceNotFound)
}

func (r *invoiceRepository) Find(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return r.findBy(ctx, "id", id)
}

func (r *invoiceRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*model.Invoice, error) {
	return r.findBy(ctx, "order_id", orderID)
}

func (r *invoiceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.SelectContext(ctx, &invoices,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = ? ORDER BY issued_at DESC`, userID)
	return invoices, errors.Wrap(err, "list user invoices")
}

func (r *invoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, updated_at = ? WHERE status = ? AND due_at < ?`,
		model.InvoiceOverdue, now, model.InvoiceUnpaid, now)
	if err != nil {
		return 0, errors.Wrap(err, "mark overdue invoices")
	}
	n, err := res.RowsAffected()
	return n, errors.WithStack(err)
}

func (r *invoiceRepository) findBy(ctx context.Context, column string, value interface{}) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.GetContext(ctx, &invoice, `SELECT `+invoiceColumns+` FROM invoices WHERE `+column+` = ?`, value)
	if isNoRows(err) {
		return nil, model.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find invoice")
	}
	return &invoice, nil
}
