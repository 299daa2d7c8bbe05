package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidNetwork     = errors.New("network must be TRC20 or ETH")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTransition  = errors.New("only pending records can change status")
	ErrNoBonus            = errors.New("no bonus to claim")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidReferral    = errors.New("unknown referral code")
	ErrValidation         = errors.New("validation failed")
)

// VolumeShortfallError is returned by ClaimBonus while the trading volume is
// below the unlock threshold.
type VolumeShortfallError struct {
	Current  decimal.Decimal
	Required decimal.Decimal
}

func (e *VolumeShortfallError) Error() string {
	return fmt.Sprintf("trading volume %s below required %s", e.Current, e.Required)
}

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
