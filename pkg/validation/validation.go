package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxGroupNameLength    = 60
	MaxDescriptionLength  = 280
	MaxDisplayNameLength  = 40
	MaxPayoutMethodLength = 120
	MaxTitleLength        = 100
)

// InviteCodeRegex matches the 8-character invite alphabet (no I, O, 0, 1).
var InviteCodeRegex = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{8}$`)

// ValidateGroupName validates a group's display name
func ValidateGroupName(name string) error {
	if err := ValidateNonEmptyString(name, "group name"); err != nil {
		return err
	}
	return ValidateStringLength(strings.TrimSpace(name), 1, MaxGroupNameLength, "group name")
}

// ValidateDescription allows empty descriptions
func ValidateDescription(description string) error {
	return ValidateStringLength(description, 0, MaxDescriptionLength, "description")
}

func ValidateDisplayName(name string) error {
	if err := ValidateNonEmptyString(name, "display name"); err != nil {
		return err
	}
	return ValidateStringLength(strings.TrimSpace(name), 1, MaxDisplayNameLength, "display name")
}

// ValidateLiveTitle allows an empty title; the group name is used instead.
func ValidateLiveTitle(title string) error {
	return ValidateStringLength(strings.TrimSpace(title), 0, MaxTitleLength, "title")
}

// ValidateInviteCode checks the shape of a code after upper-casing it.
func ValidateInviteCode(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("invite code is required")
	}
	if !InviteCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid invite code format")
	}
	return nil
}

func ValidatePayoutMethod(method string) error {
	if err := ValidateNonEmptyString(method, "payout method"); err != nil {
		return err
	}
	return ValidateStringLength(strings.TrimSpace(method), 1, MaxPayoutMethodLength, "payout method")
}

// ParseMoney parses a positive currency amount with at most two decimals.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format: %w", err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	if err := ValidateMoneyPrecision(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateMoneyPrecision rejects amounts finer than a cent.
func ValidateMoneyPrecision(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount has more than 2 decimal places")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes
func ValidateStringLength(s string, min, max int, fieldName string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
