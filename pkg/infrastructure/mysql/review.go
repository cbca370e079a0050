package mysql

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const reviewColumns = `id, user_id, item_type, item_id, rating, comment, status, created_at, updated_at`

type reviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) model.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (:id, :user_id, :item_type, :item_id, :rating, :comment, :status, :created_at, :updated_at)`,
		review)
	if isDuplicate(err) {
		return model.ErrAlreadyReviewed
	}
	return errors.Wrap(err, "insert review")
}

func (r *reviewRepository) Update(ctx context.Context, review *model.Review) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE reviews SET rating = :rating, comment = :comment, status = :status, updated_at = :updated_at
		WHERE id = :id`,
		review)
	if err != nil {
		return errors.Wrap(err, "update review")
	}
	return expectRow(res, model.ErrReviewNotFound)
}

func (r *reviewRepository) Find(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	var review model.Review
	err := r.db.GetContext(ctx, &review, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, model.ErrReviewNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find review")
	}
	return &review, nil
}

func (r *reviewRepository) Exists(ctx context.Context, userID uuid.UUID, itemType model.ItemType, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = ? AND item_type = ? AND item_id = ?)`,
		userID, itemType, itemID)
	return exists, errors.Wrap(err, "check review")
}

func (r *reviewRepository) ListByItem(ctx context.Context, itemType model.ItemType, itemID uuid.UUID, status model.ReviewStatus) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE item_type = ? AND item_id = ? AND status = ?
		ORDER BY created_at DESC`,
		itemType, itemID, status)
	return reviews, errors.Wrap(err, "list reviews")
}
