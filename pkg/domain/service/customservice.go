package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

const defaultQuoteValidity = 14 * 24 * time.Hour

type QuoteInput struct {
	UserID      uuid.UUID
	CreatedBy   uuid.UUID
	Title       string
	Description string
	PriceCents  int64
	ValidFor    time.Duration
}

// QuoteService manages custom services: staff-made quotes paid through a unique link.
type QuoteService interface {
	CreateQuote(ctx context.Context, input QuoteInput) (*model.CustomService, error)
	GetByToken(ctx context.Context, token string) (*model.CustomService, error)
	// Payable returns the quote behind token when userID may pay it now.
	Payable(ctx context.Context, token string, userID uuid.UUID) (*model.CustomService, error)
	CancelQuote(ctx context.Context, id uuid.UUID) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

func NewQuoteService(
	repo model.CustomServiceRepository,
	users model.UserRepository,
	notifier NotificationService,
	dispatcher domain.EventDispatcher,
	payURL string,
) QuoteService {
	return &quoteService{repo: repo, users: users, notifier: notifier, dispatcher: dispatcher, payURL: payURL}
}

type quoteService struct {
	repo       model.CustomServiceRepository
	users      model.UserRepository
	notifier   NotificationService
	dispatcher domain.EventDispatcher
	payURL     string
}

func (s *quoteService) CreateQuote(ctx context.Context, input QuoteInput) (*model.CustomService, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrNameRequired
	}
	if input.PriceCents <= 0 {
		return nil, model.ErrInvalidAmount
	}
	if _, err := s.users.Find(ctx, input.UserID); err != nil {
		return nil, err
	}

	validFor := input.ValidFor
	if validFor <= 0 {
		validFor = defaultQuoteValidity
	}

	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	token, err := newToken(32)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	quote := &model.CustomService{
		ID:          id,
		UserID:      input.UserID,
		CreatedBy:   input.CreatedBy,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Token:       token,
		Status:      model.CustomServicePending,
		ExpiresAt:   now.Add(validFor),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, quote); err != nil {
		return nil, err
	}

	err = s.notifier.Notify(ctx, input.UserID, NotificationMessage{
		Type:    model.NotificationOrder,
		Title:   "A custom offer is waiting for you",
		Message: fmt.Sprintf("%s is ready for payment until %s.", quote.Title, quote.ExpiresAt.Format("2006-01-02")),
		Link:    s.payURL + token,
	})
	if err != nil {
		log.WithError(err).WithField("custom_service_id", id).Error("failed to notify about custom service")
	}

	_ = s.dispatcher.Dispatch(model.CustomServiceCreated{CustomServiceID: id, UserID: input.UserID, PriceCents: input.PriceCents})
	return quote, nil
}

func (s *quoteService) GetByToken(ctx context.Context, token string) (*model.CustomService, error) {
	if token == "" {
		return nil, model.ErrCustomServiceNotFound
	}
	return s.repo.FindByToken(ctx, token)
}

func (s *quoteService) Payable(ctx context.Context, token string, userID uuid.UUID) (*model.CustomService, error) {
	quote, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if quote.UserID != userID {
		return nil, model.ErrCustomServiceNotFound
	}
	if !quote.PayableBy(userID, time.Now().UTC()) {
		return nil, model.ErrCustomServiceNotPayable
	}
	return quote, nil
}

func (s *quoteService) CancelQuote(ctx context.Context, id uuid.UUID) error {
	quote, err := s.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	if quote.Status != model.CustomServicePending {
		return model.ErrCustomServiceNotPayable
	}
	quote.Status = model.CustomServiceCancelled
	quote.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, quote)
}

func (s *quoteService) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdue(ctx, time.Now().UTC())
}
