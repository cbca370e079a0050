package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const customServiceColumns = `id, user_id, created_by, title, description, price_cents, token, status,
	order_id, expires_at, created_at, updated_at`

type customServiceRepository struct {
	db *sqlx.DB
}

func NewCustomServiceRepository(db *sqlx.DB) model.CustomServiceRepository {
	return &customServiceRepository{db: db}
}

func (r *customServiceRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *customServiceRepository) Create(ctx context.Context, cs *model.CustomService) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO custom_services (`+customServiceColumns+`)
		VALUES (:id, :user_id, :created_by, :title, :description, :price_cents, :token, :status,
			:order_id, :expires_at, :created_at, :updated_at)`,
		cs)
	return errors.Wrap(err, "insert custom service")
}

func (r *customServiceRepository) Update(ctx context.Context, cs *model.CustomService) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE custom_services SET title = :title, description = :description, price_cents = :price_cents,
			status = :status, order_id = :order_id, expires_at = :expires_at, updated_at = :updated_at
		WHERE id = :id`,
		cs)
	if err != nil {
		return errors.Wrap(err, "update custom service")
	}
	return expectRow(res, model.ErrCustomServiceNotFound)
}

func (r *customServiceRepository) Find(ctx context.Context, id uuid.UUID) (*model.CustomService, error) {
	return r.findBy(ctx, "id", id)
}

func (r *customServiceRepository) FindByToken(ctx context.Context, token string) (*model.CustomService, error) {
	return r.findBy(ctx, "token", token)
}

// MarkPaid only moves a pending quote held by orderID.
func (r *customServiceRepository) MarkPaid(ctx context.Context, id, orderID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE custom_services SET status = ?, updated_at = ? WHERE id = ? AND status = ? AND order_id = ?`,
		model.CustomServicePaid, time.Now().UTC(), id, model.CustomServicePending, orderID)
	if err != nil {
		return errors.Wrap(err, "mark custom service paid")
	}
	return expectRow(res, model.ErrCustomServiceNotPayable)
}

func (r *customServiceRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE custom_services SET status = ?, updated_at = ? WHERE status = ? AND expires_at <= ?`,
		model.CustomServiceExpired, now, model.CustomServicePending, now)
	if err != nil {
		return 0, errors.Wrap(err, "expire custom services")
	}
	n, err := res.RowsAffected()
	return n, errors.WithStack(err)
}

func (r *customServiceRepository) findBy(ctx context.Context, column string, value interface{}) (*model.CustomService, error) {
	var cs model.CustomService
	err := r.db.GetContext(ctx, &cs,
		`SELECT `+customServiceColumns+` FROM custom_services WHERE `+column+` = ?`, value)
	if isNoRows(err) {
		return nil, model.ErrCustomServiceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find custom service")
	}
	return &cs, nil
}
