package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

var (
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrInvalidEmail        = errors.New("email address is invalid")
	ErrInvalidUsername     = errors.New("username must be 3-32 letters, digits or underscores")
	ErrInvalidRole         = errors.New("role cannot be requested at registration")
	ErrUserCannotBeChanged = errors.New("user cannot be changed in its current state")
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     model.Role
}

type UserOptions struct {
	VerificationTTL time.Duration
	ResendCooldown  time.Duration
	// VerifyURL receives the token appended as a query value.
	VerifyURL string
}

type UserService interface {
	RegisterNewUser(ctx context.Context, input RegisterInput) (*model.User, error)
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	VerifyEmail(ctx context.Context, token string) (*model.User, error)
	ResendVerification(ctx context.Context, email string) error
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, fullName string) error
	SuspendUser(ctx context.Context, userID uuid.UUID) error
	ActivateUser(ctx context.Context, userID uuid.UUID) error
	DeactivateUser(ctx context.Context, userID uuid.UUID) error
}

func NewUserService(
	repo model.UserRepository,
	passManager model.PasswordManager,
	wallets WalletService,
	mailer model.Mailer,
	cooldown model.CooldownStore,
	dispatcher domain.EventDispatcher,
	opts UserOptions,
) UserService {
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 24 * time.Hour
	}
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = time.Minute
	}
	return &userService{
		repo:        repo,
		passManager: passManager,
		wallets:     wallets,
		mailer:      mailer,
		cooldown:    cooldown,
		dispatcher:  dispatcher,
		opts:        opts,
	}
}

type userService struct {
	repo        model.UserRepository
	passManager model.PasswordManager
	wallets     WalletService
	mailer      model.Mailer
	cooldown    model.CooldownStore
	dispatcher  domain.EventDispatcher
	opts        UserOptions
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) RegisterNewUser(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if !usernamePattern.MatchString(input.Username) {
		return nil, ErrInvalidUsername
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	role := input.Role
	switch role {
	case "":
		role = model.RoleCustomer
	case model.RoleCustomer, model.RoleVendor:
	default:
		return nil, ErrInvalidRole
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, model.ErrEmailTaken
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindByUsername(ctx, input.Username); err == nil {
		return nil, model.ErrUsernameTaken
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := s.passManager.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	userID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}

	token, err := newToken(32)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.opts.VerificationTTL)
	user := &model.User{
		ID:                    userID,
		Username:              input.Username,
		Email:                 email,
		HashedPassword:        hashedPassword,
		FullName:              strings.TrimSpace(input.FullName),
		Role:                  role,
		Status:                model.PendingVerification,
		VerificationToken:     token,
		VerificationExpiresAt: &expiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.wallets.CreateWallet(ctx, userID); err != nil {
		return nil, err
	}

	s.sendVerification(ctx, user)

	_ = s.dispatcher.Dispatch(model.UserRegistered{
		UserID:   userID,
		Email:    email,
		Username: user.Username,
		Role:     role,
	})

	return user, nil
}

func (s *userService) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return false, ErrInvalidEmail
	}
	return available(s.repo.FindByEmail(ctx, email))
}

func (s *userService) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if !usernamePattern.MatchString(username) {
		return false, ErrInvalidUsername
	}
	return available(s.repo.FindByUsername(ctx, username))
}

func available(_ *model.User, err error) (bool, error) {
	if errors.Is(err, model.ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *userService) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrInvalidToken
	}
	user, err := s.repo.FindByVerificationToken(ctx, token)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if user.VerificationExpiresAt == nil || now.After(*user.VerificationExpiresAt) {
		return nil, model.ErrInvalidToken
	}

	user.VerificationToken = ""
	user.VerificationExpiresAt = nil
	user.EmailVerifiedAt = &now
	if user.Status == model.PendingVerification {
		user.Status = model.Active
	}
	user.UpdatedAt = now

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.UserVerified{UserID: user.ID})
	return user, nil
}

// ResendVerification answers identically for unknown and already verified
// addresses so the endpoint cannot be used to probe accounts.
func (s *userService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	granted, err := s.cooldown.Acquire(ctx, "verification-resend:"+email, s.opts.ResendCooldown)
	if err != nil {
		return err
	}
	if !granted {
		return model.ErrResendTooSoon
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Status != model.PendingVerification {
		return nil
	}

	token, err := newToken(32)
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(s.opts.VerificationTTL)
	user.VerificationToken = token
	user.VerificationExpiresAt = &expiresAt
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	s.sendVerification(ctx, user)
	return nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.passManager.Check(user.HashedPassword, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrInvalidLogin
	}
	if user.Status != model.Active {
		return nil, model.ErrUserNotActive
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.repo.Find(ctx, userID)
}

func (s *userService) UpdateUserProfile(ctx context.Context, userID uuid.UUID, fullName string) error {
	user, err := s.repo.Find(ctx, userID)
	if err != nil {
		return err
	}

	if user.Status == model.Deactivated {
		return ErrUserCannotBeChanged
	}

	user.FullName = strings.TrimSpace(fullName)
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.UserProfileUpdated{UserID: userID})
	return nil
}

func (s *userService) SuspendUser(ctx context.Context, userID uuid.UUID) error {
	return s.changeStatus(ctx, userID, model.Suspended)
}

func (s *userService) ActivateUser(ctx context.Context, userID uuid.UUID) error {
	return s.changeStatus(ctx, userID, model.Active)
}

func (s *userService) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	return s.changeStatus(ctx, userID, model.Deactivated)
}

func (s *userService) changeStatus(ctx context.Context, userID uuid.UUID, newStatus model.UserStatus) error {
	user, err := s.repo.Find(ctx, userID)
	if err != nil {
		return err
	}

	oldStatus := user.Status
	if oldStatus == newStatus || oldStatus == model.Deactivated {
		return nil
	}

	user.Status = newStatus
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.UserStatusChanged{
		UserID:    userID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
	return nil
}

func (s *userService) sendVerification(ctx context.Context, user *model.User) {
	link := s.opts.VerifyURL + user.VerificationToken
	body := fmt.Sprintf("Hi %s,\n\nconfirm your email address by opening %s\n\nThe link is valid for %s.",
		user.Username, link, s.opts.VerificationTTL)

	if err := s.mailer.Send(ctx, user.Email, "Confirm your email address", body); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("failed to send verification email")
	}
}
