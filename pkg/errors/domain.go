package errors

import (
	"errors"
	"net/http"

	"giftcast/internal/core/domain"
)

// FromDomain translates a core error into an AppError. The domain message
// is kept as the client-facing reason; anything unrecognised becomes a 500
// with the cause attached for logging.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case domain.IsNotFound(err):
		return WrapError(err, ErrCodeNotFound, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientBalance):
		return WrapError(err, ErrCodeInsufficientBalance, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrSelfGift),
		errors.Is(err, domain.ErrEarningsBelowMinimum),
		errors.Is(err, domain.ErrWithdrawalBelowMinimum),
		errors.Is(err, domain.ErrWithdrawalExceedsEarned),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingPayoutMethod),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong):
		return WrapError(err, ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrSessionEnded),
		errors.Is(err, domain.ErrSessionAlreadyActive),
		errors.Is(err, domain.ErrInviteCodeTaken),
		errors.Is(err, domain.ErrGroupExists):
		return WrapError(err, ErrCodeConflict, err.Error(), http.StatusConflict)
	default:
		return WrapError(err, ErrCodeInternal, "internal server error", http.StatusInternalServerError)
	}
}
