package transport

import (
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
)

var (
	errUnauthorized = errors.New("authentication required")
	errForbidden    = errors.New("you are not allowed to do this")
)

// requestError is a malformed request detected by the transport itself.
type requestError struct {
	message string
}

func (e *requestError) Error() string {
	return e.message
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{model.ErrUserNotFound, http.StatusNotFound},
	{model.ErrCategoryNotFound, http.StatusNotFound},
	{model.ErrProductNotFound, http.StatusNotFound},
	{model.ErrServiceNotFound, http.StatusNotFound},
	{model.ErrCustomServiceNotFound, http.StatusNotFound},
	{model.ErrOrderNotFound, http.StatusNotFound},
	{model.ErrPaymentNotFound, http.StatusNotFound},
	{model.ErrInvoiceNotFound, http.StatusNotFound},
	{model.ErrReviewNotFound, http.StatusNotFound},
	{model.ErrNotificationNotFound, http.StatusNotFound},
	{model.ErrWalletNotFound, http.StatusNotFound},
	{model.ErrSettingNotFound, http.StatusNotFound},

	{model.ErrEmailTaken, http.StatusConflict},
	{model.ErrUsernameTaken, http.StatusConflict},
	{model.ErrCategoryExists, http.StatusConflict},
	{model.ErrAlreadyReviewed, http.StatusConflict},
	{model.ErrOptimisticLock, http.StatusConflict},
	{model.ErrWalletExists, http.StatusConflict},
	{model.ErrInsufficientStock, http.StatusConflict},
	{model.ErrOrderNotPayable, http.StatusConflict},
	{model.ErrPaymentNotRefundable, http.StatusConflict},
	{model.ErrPaymentNotPending, http.StatusConflict},
	{model.ErrCustomServiceNotPayable, http.StatusConflict},
	{service.ErrOrderCannotBeModified, http.StatusConflict},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrUserCannotBeChanged, http.StatusConflict},
	{service.ErrProductNotAvailable, http.StatusConflict},
	{service.ErrItemNotAvailable, http.StatusConflict},

	{model.ErrInsufficientFunds, http.StatusPaymentRequired},
	{model.ErrResendTooSoon, http.StatusTooManyRequests},

	{model.ErrInvalidLogin, http.StatusUnauthorized},
	{auth.ErrInvalidAccessToken, http.StatusUnauthorized},
	{errUnauthorized, http.StatusUnauthorized},
	{model.ErrUserNotActive, http.StatusForbidden},
	{model.ErrPermissionDenied, http.StatusForbidden},
	{errForbidden, http.StatusForbidden},

	{model.ErrInvalidToken, http.StatusBadRequest},
	{model.ErrUnsupportedMethod, http.StatusBadRequest},
	{model.ErrInvalidAmount, http.StatusBadRequest},
	{model.ErrInvalidRating, http.StatusBadRequest},
	{model.ErrNotPurchased, http.StatusBadRequest},
	{model.ErrNotReviewable, http.StatusBadRequest},
	{service.ErrPasswordTooShort, http.StatusBadRequest},
	{service.ErrInvalidEmail, http.StatusBadRequest},
	{service.ErrInvalidUsername, http.StatusBadRequest},
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrInvalidStockQuantity, http.StatusBadRequest},
	{service.ErrNegativePrice, http.StatusBadRequest},
	{service.ErrNameRequired, http.StatusBadRequest},
	{service.ErrOrderIsEmpty, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInvalidItemType, http.StatusBadRequest},
	{service.ErrEmptyNotification, http.StatusBadRequest},
	{service.ErrInvalidTaxRate, http.StatusBadRequest},
}

func statusFor(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError maps err to a status; unexpected errors are logged and hidden from the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"url":    r.URL.Path,
		}).Error("request failed")
		respondFail(w, status, "internal server error")
		return
	}
	respondFail(w, status, err.Error())
}
