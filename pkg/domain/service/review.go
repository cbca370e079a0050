package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

const maxCommentLength = 2000

type ReviewInput struct {
	UserID   uuid.UUID
	ItemType model.ItemType
	ItemID   uuid.UUID
	Rating   int
	Comment  string
}

type ReviewSummary struct {
	Reviews []model.Review
	Average float64
	Count   int
}

type ReviewService interface {
	SubmitReview(ctx context.Context, input ReviewInput) (*model.Review, error)
	ModerateReview(ctx context.Context, reviewID uuid.UUID, status model.ReviewStatus) error
	ItemReviews(ctx context.Context, itemType model.ItemType, itemID uuid.UUID) (*ReviewSummary, error)
}

func NewReviewService(repo model.ReviewRepository, orders model.OrderRepository, dispatcher domain.EventDispatcher) ReviewService {
	return &reviewService{repo: repo, orders: orders, dispatcher: dispatcher}
}

type reviewService struct {
	repo       model.ReviewRepository
	orders     model.OrderRepository
	dispatcher domain.EventDispatcher
}

func (s *reviewService) SubmitReview(ctx context.Context, input ReviewInput) (*model.Review, error) {
	if input.ItemType != model.ItemProduct && input.ItemType != model.ItemService {
		return nil, model.ErrNotReviewable
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, model.ErrInvalidRating
	}

	comment := strings.TrimSpace(input.Comment)
	if runes := []rune(comment); len(runes) > maxCommentLength {
		comment = string(runes[:maxCommentLength])
	}

	purchased, err := s.orders.HasPurchased(ctx, input.UserID, input.ItemType, input.ItemID)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, model.ErrNotPurchased
	}

	exists, err := s.repo.Exists(ctx, input.UserID, input.ItemType, input.ItemID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrAlreadyReviewed
	}

	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	review := &model.Review{
		ID:        id,
		UserID:    input.UserID,
		ItemType:  input.ItemType,
		ItemID:    input.ItemID,
		Rating:    input.Rating,
		Comment:   comment,
		Status:    model.ReviewPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ReviewSubmitted{
		ReviewID: id, UserID: input.UserID, ItemType: input.ItemType, ItemID: input.ItemID, Rating: input.Rating,
	})
	return review, nil
}

func (s *reviewService) ModerateReview(ctx context.Context, reviewID uuid.UUID, status model.ReviewStatus) error {
	if status != model.ReviewApproved && status != model.ReviewRejected {
		return ErrInvalidTransition
	}
	review, err := s.repo.Find(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.Status == status {
		return nil
	}
	review.Status = status
	review.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, review); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ReviewModerated{ReviewID: reviewID, Status: status})
	return nil
}

func (s *reviewService) ItemReviews(ctx context.Context, itemType model.ItemType, itemID uuid.UUID) (*ReviewSummary, error) {
	reviews, err := s.repo.ListByItem(ctx, itemType, itemID, model.ReviewApproved)
	if err != nil {
		return nil, err
	}
	summary := &ReviewSummary{Reviews: reviews, Count: len(reviews)}
	if len(reviews) == 0 {
		return summary, nil
	}
	var sum int
	for _, review := range reviews {
		sum += review.Rating
	}
	summary.Average = float64(sum) / float64(len(reviews))
	return summary, nil
}
