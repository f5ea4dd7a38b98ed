package domain

import "errors"

var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrInviteNotFound  = errors.New("invite code not found")
	ErrInviteCodeTaken = errors.New("invite code already in use")
	ErrGroupExists     = errors.New("group already exists")
	ErrInvalidInput    = errors.New("invalid input")

	ErrWalletNotFound  = errors.New("wallet not found")
	ErrGiftNotFound    = errors.New("gift not found")
	ErrPackageNotFound = errors.New("coin package not found")

	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrSelfGift            = errors.New("cannot send a gift to yourself")

	ErrEarningsBelowMinimum    = errors.New("earnings balance is below the minimum withdrawal")
	ErrWithdrawalBelowMinimum  = errors.New("withdrawal amount is below the minimum")
	ErrWithdrawalExceedsEarned = errors.New("withdrawal amount exceeds earnings balance")
	ErrInvalidAmount           = errors.New("invalid withdrawal amount")
	ErrMissingPayoutMethod     = errors.New("payout method is required")

	ErrSessionNotFound      = errors.New("live session not found")
	ErrNoActiveSession      = errors.New("no active live session for group")
	ErrSessionAlreadyActive = errors.New("group already has an active live session")
	ErrSessionEnded         = errors.New("live session has ended")
	ErrEmptyMessage         = errors.New("message text is empty")
	ErrMessageTooLong       = errors.New("message text is too long")
)

// IsNotFound reports whether err is one of the absent-entity errors.
func IsNotFound(err error) bool {
	switch {
	case errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrInviteNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrGiftNotFound),
		errors.Is(err, ErrPackageNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrNoActiveSession):
		return true
	}
	return false
}
