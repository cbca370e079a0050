package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
)

const (
	SettingTaxRate  = "tax_rate"
	SettingCurrency = "currency"
	SettingSiteName = "site_name"
)

type Setting struct {
	Key       string    `db:"setting_key" json:"key"`
	Value     string    `db:"setting_value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Set(ctx context.Context, setting *Setting) error
	List(ctx context.Context) ([]Setting, error)
}

type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

type SystemLog struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Level     LogLevel   `db:"level" json:"level"`
	Action    string     `db:"action" json:"action"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id"`
	Message   string     `db:"message" json:"message"`
	Context   string     `db:"context" json:"context"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type SystemLogRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, entry *SystemLog) error
	List(ctx context.Context, limit int) ([]SystemLog, error)
}
