package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

var ErrInvalidTaxRate = errors.New("tax rate must be a decimal between 0 and 1")

type SettingsService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]model.Setting, error)
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

func NewSettingsService(repo model.SettingRepository) SettingsService {
	return &settingsService{repo: repo}
}

type settingsService struct {
	repo model.SettingRepository
}

func (s *settingsService) Get(ctx context.Context, key string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *settingsService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return model.ErrSettingNotFound
	}
	if key == model.SettingTaxRate {
		if _, err := parseTaxRate(value); err != nil {
			return err
		}
	}
	return s.repo.Set(ctx, &model.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()})
}

func (s *settingsService) All(ctx context.Context) ([]model.Setting, error) {
	return s.repo.List(ctx)
}

// TaxRate falls back to zero when the setting was never stored.
func (s *settingsService) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	value, err := s.Get(ctx, model.SettingTaxRate)
	if errors.Is(err, model.ErrSettingNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseTaxRate(value)
}

func parseTaxRate(value string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidTaxRate
	}
	return rate, nil
}

type SystemLogService interface {
	Record(ctx context.Context, level model.LogLevel, action string, userID *uuid.UUID, message string, fields map[string]interface{})
	Recent(ctx context.Context, limit int) ([]model.SystemLog, error)
}

func NewSystemLogService(repo model.SystemLogRepository) SystemLogService {
	return &systemLogService{repo: repo}
}

type systemLogService struct {
	repo model.SystemLogRepository
}

type ipKey struct{}

// WithClientIP stores the caller address so system log entries can carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ipKey{}).(string)
	return ip
}

// Record never fails the caller; storage errors only reach the process log.
func (s *systemLogService) Record(ctx context.Context, level model.LogLevel, action string, userID *uuid.UUID, message string, fields map[string]interface{}) {
	entry := &model.SystemLog{
		Level:     level,
		Action:    action,
		UserID:    userID,
		Message:   message,
		IPAddress: clientIP(ctx),
		CreatedAt: time.Now().UTC(),
	}
	if len(fields) > 0 {
		if raw, err := json.Marshal(fields); err == nil {
			entry.Context = string(raw)
		}
	}

	id, err := s.repo.NextID()
	if err == nil {
		entry.ID = id
		err = s.repo.Create(ctx, entry)
	}
	if err != nil {
		log.WithError(err).WithField("action", action).Error("failed to write system log")
	}
}

func (s *systemLogService) Recent(ctx context.Context, limit int) ([]model.SystemLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, limit)
}
