package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is an account together with its balances. Balances only move through
// the ledger (deposit confirm, withdrawal create/reject, bonus claim, trade report).
type User struct {
	ID                    string          `json:"id"`
	Email                 string          `json:"email"`
	Username              *string         `json:"username"`
	PasswordHash          string          `json:"-"`
	IsAdmin               bool            `json:"isAdmin"`
	USDTBalance           decimal.Decimal `json:"usdtBalance"`
	RTCBalance            decimal.Decimal `json:"rtcBalance"`
	ReferralCode          string          `json:"referralCode"`
	ReferredBy            *string         `json:"referredBy"`
	DepositAmount         decimal.Decimal `json:"depositAmount"`
	DepositBonus          decimal.Decimal `json:"depositBonus"`
	TradingVolume         decimal.Decimal `json:"tradingVolume"`
	BonusWithdrawable     decimal.Decimal `json:"bonusWithdrawable"`
	FirstDepositBonusUsed bool            `json:"firstDepositBonusUsed"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// RequiredTradingVolume is the volume needed before the pending deposit bonus unlocks.
func (u *User) RequiredTradingVolume(multiplier decimal.Decimal) decimal.Decimal {
	return u.DepositAmount.Mul(multiplier)
}

// Referral is the public view of a user brought in by a referral code.
type Referral struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaskEmail hides most of the local part: "alice@x.io" -> "a***@x.io".
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
