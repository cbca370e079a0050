package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

var ErrEmptyNotification = errors.New("notification title and message are required")

type NotificationMessage struct {
	Type    model.NotificationType
	Title   string
	Message string
	Link    string
}

type NotificationService interface {
	Notify(ctx context.Context, userID uuid.UUID, msg NotificationMessage) error
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, msg NotificationMessage) (int, error)
	Broadcast(ctx context.Context, role model.Role, msg NotificationMessage) (int, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

func NewNotificationService(repo model.NotificationRepository, users model.UserRepository, dispatcher domain.EventDispatcher) NotificationService {
	return &notificationService{repo: repo, users: users, dispatcher: dispatcher}
}

type notificationService struct {
	repo       model.NotificationRepository
	users      model.UserRepository
	dispatcher domain.EventDispatcher
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, msg NotificationMessage) error {
	notification, err := s.build(userID, msg)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.NotificationsCreated{Kind: msg.Type, Recipients: 1})
	return nil
}

func (s *notificationService) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, msg NotificationMessage) (int, error) {
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	batch := make([]model.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		notification, err := s.build(userID, msg)
		if err != nil {
			return 0, err
		}
		batch = append(batch, *notification)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return 0, err
	}

	_ = s.dispatcher.Dispatch(model.NotificationsCreated{Kind: msg.Type, Recipients: len(batch)})
	return len(batch), nil
}

func (s *notificationService) Broadcast(ctx context.Context, role model.Role, msg NotificationMessage) (int, error) {
	userIDs, err := s.users.ListActiveIDs(ctx, role)
	if err != nil {
		return 0, err
	}
	return s.NotifyUsers(ctx, userIDs, msg)
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
}

func (s *notificationService) build(userID uuid.UUID, msg NotificationMessage) (*model.Notification, error) {
	if strings.TrimSpace(msg.Title) == "" || strings.TrimSpace(msg.Message) == "" {
		return nil, ErrEmptyNotification
	}
	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	notificationType := msg.Type
	if notificationType == "" {
		notificationType = model.NotificationSystem
	}
	return &model.Notification{
		ID:        id,
		UserID:    userID,
		Type:      notificationType,
		Title:     msg.Title,
		Message:   msg.Message,
		Link:      msg.Link,
		CreatedAt: time.Now().UTC(),
	}, nil
}
