package mysql

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const userColumns = `id, username, email, password_hash, full_name, role, status,
	COALESCE(verification_token, '') AS verification_token, verification_expires_at,
	email_verified_at, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) model.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, full_name, role, status,
			verification_token, verification_expires_at, email_verified_at, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :full_name, :role, :status,
			NULLIF(:verification_token, ''), :verification_expires_at, :email_verified_at, :created_at, :updated_at)`,
		user)
	if isDuplicate(err) {
		return duplicateUserError(err)
	}
	return errors.Wrap(err, "insert user")
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE users SET username = :username, email = :email, password_hash = :password_hash,
			full_name = :full_name, role = :role, status = :status,
			verification_token = NULLIF(:verification_token, ''),
			verification_expires_at = :verification_expires_at,
			email_verified_at = :email_verified_at, updated_at = :updated_at
		WHERE id = :id`,
		user)
	if isDuplicate(err) {
		return duplicateUserError(err)
	}
	if err != nil {
		return errors.Wrap(err, "update user")
	}
	return expectRow(res, model.ErrUserNotFound)
}

func (r *userRepository) Find(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findBy(ctx, "id", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *userRepository) FindByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrUserNotFound
	}
	return r.findBy(ctx, "verification_token", token)
}

func (r *userRepository) ListActiveIDs(ctx context.Context, role model.Role) ([]uuid.UUID, error) {
	query := `SELECT id FROM users WHERE status = ?`
	args := []interface{}{model.Active}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, role)
	}

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrap(err, "list active users")
	}
	return ids, nil
}

// column is always one of the fixed names above, never user input.
func (r *userRepository) findBy(ctx context.Context, column string, value interface{}) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if isNoRows(err) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find user by %s", column)
	}
	return &user, nil
}

func duplicateUserError(err error) error {
	if strings.Contains(err.Error(), "users_username_uq") {
		return model.ErrUsernameTaken
	}
	return model.ErrEmailTaken
}
