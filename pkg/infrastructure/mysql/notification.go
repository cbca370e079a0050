package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const notificationColumns = `id, user_id, type, title, message, link, is_read, created_at, read_at`

const insertNotification = `
	INSERT INTO notifications (` + notificationColumns + `)
	VALUES (:id, :user_id, :type, :title, :message, :link, :is_read, :created_at, :read_at)`

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) model.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	_, err := r.db.NamedExecContext(ctx, insertNotification, notification)
	return errors.Wrap(err, "insert notification")
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, insertNotification)
		if err != nil {
			return errors.Wrap(err, "prepare notification insert")
		}
		defer stmt.Close()

		for i := range notifications {
			if _, err := stmt.ExecContext(ctx, &notifications[i]); err != nil {
				return errors.Wrap(err, "insert notification")
			}
		}
		return nil
	})
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	var notifications []model.Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID, limit)
	return notifications, errors.Wrap(err, "list notifications")
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID)
	return count, errors.Wrap(err, "count unread notifications")
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ? AND user_id = ? AND is_read = 0`,
		at, id, userID)
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n > 0 {
		return nil
	}

	// Nothing changed: either already read or not this user's notification.
	var exists bool
	err = r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = ? AND user_id = ?)`, id, userID)
	if err != nil {
		return errors.Wrap(err, "find notification")
	}
	if !exists {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0`, at, userID)
	if err != nil {
		return 0, errors.Wrap(err, "mark notifications read")
	}
	n, err := res.RowsAffected()
	return n, errors.WithStack(err)
}
