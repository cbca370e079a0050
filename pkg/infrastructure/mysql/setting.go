package mysql

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

type settingRepository struct {
	db *sqlx.DB
}

func NewSettingRepository(db *sqlx.DB) model.SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	err := r.db.GetContext(ctx, &setting,
		`SELECT setting_key, setting_value, updated_at FROM settings WHERE setting_key = ?`, key)
	if isNoRows(err) {
		return nil, model.ErrSettingNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find setting")
	}
	return &setting, nil
}

func (r *settingRepository) Set(ctx context.Context, setting *model.Setting) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO settings (setting_key, setting_value, updated_at)
		VALUES (:setting_key, :setting_value, :updated_at)
		ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value), updated_at = VALUES(updated_at)`,
		setting)
	return errors.Wrap(err, "save setting")
}

func (r *settingRepository) List(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	err := r.db.SelectContext(ctx, &settings,
		`SELECT setting_key, setting_value, updated_at FROM settings ORDER BY setting_key`)
	return settings, errors.Wrap(err, "list settings")
}

type systemLogRepository struct {
	db *sqlx.DB
}

func NewSystemLogRepository(db *sqlx.DB) model.SystemLogRepository {
	return &systemLogRepository{db: db}
}

func (r *systemLogRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *systemLogRepository) Create(ctx context.Context, entry *model.SystemLog) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO system_logs (id, level, action, user_id, message, context, ip_address, created_at)
		VALUES (:id, :level, :action, :user_id, :message, :context, :ip_address, :created_at)`,
		entry)
	return errors.Wrap(err, "insert system log")
}

func (r *systemLogRepository) List(ctx context.Context, limit int) ([]model.SystemLog, error) {
	var entries []model.SystemLog
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, level, action, user_id, message, context, ip_address, created_at
		FROM system_logs ORDER BY created_at DESC LIMIT ?`, limit)
	return entries, errors.Wrap(err, "list system logs")
}
