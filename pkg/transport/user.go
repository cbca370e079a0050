package transport

import (
	"net/http"
	"strings"
	"time"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=255"`
	Role     string `json:"role" validate:"omitempty,oneof=customer vendor"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type profileRequest struct {
	FullName string `json:"full_name" validate:"required,max=255"`
}

type userStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended deactivated"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.Users.RegisterNewUser(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, "registration successful, check your email to verify the account", user)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, r, model.ErrInvalidToken)
		return
	}
	user, err := h.Users.VerifyEmail(r.Context(), token)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "email verified", user)
}

func (h *handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Users.ResendVerification(r.Context(), req.Email); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "if the account exists and is not verified, a new verification email has been sent", nil)
}

func (h *handler) checkEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if err := validate.Var(email, "required,email"); err != nil {
		respondFail(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	available, err := h.Users.IsEmailAvailable(r.Context(), email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, availabilityMessage("email", available), map[string]bool{"available": available})
}

func (h *handler) checkUsername(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		respondFail(w, http.StatusBadRequest, "username is required")
		return
	}
	available, err := h.Users.IsUsernameAvailable(r.Context(), username)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, availabilityMessage("username", available), map[string]bool{"available": available})
}

func availabilityMessage(field string, available bool) string {
	if available {
		return field + " is available"
	}
	return field + " is already taken"
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	user, err := h.Users.GetUser(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", user)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Users.UpdateUserProfile(r.Context(), identity.UserID, req.FullName); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "profile updated", nil)
}

func (h *handler) changeUserStatus(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	userID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req userStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	switch model.UserStatus(req.Status) {
	case model.Active:
		err = h.Users.ActivateUser(r.Context(), userID)
	case model.Suspended:
		err = h.Users.SuspendUser(r.Context(), userID)
	default:
		err = h.Users.DeactivateUser(r.Context(), userID)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.SystemLogs.Record(r.Context(), model.LevelInfo, "user.status_changed", &identity.UserID,
		"user status changed", map[string]interface{}{"userId": userID, "status": req.Status})
	respondOK(w, "user status updated", nil)
}
