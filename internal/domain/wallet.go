package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Network is the chain a transfer is claimed on
type Network string

const (
	NetworkTRC20 Network = "TRC20"
	NetworkETH   Network = "ETH"
)

// Valid reports whether n is a supported network
func (n Network) Valid() bool {
	return n == NetworkTRC20 || n == NetworkETH
}

// DepositStatus represents deposit processing status
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusRejected  DepositStatus = "rejected"
)

// Deposit is a user's claim of an incoming transfer, credited only once confirmed
type Deposit struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      DepositStatus   `json:"status"`
	TxHash      *string         `json:"txHash"`
	Network     Network         `json:"network"`
	CreatedAt   time.Time       `json:"createdAt"`
	ConfirmedAt *time.Time      `json:"confirmedAt"`
}

// WithdrawalStatus represents withdrawal processing status
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// Withdrawal is an outgoing transfer request. Amount+Fee is debited when it is created.
type Withdrawal struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Amount      decimal.Decimal  `json:"amount"`
	Address     string           `json:"address"`
	Status      WithdrawalStatus `json:"status"`
	TxHash      *string          `json:"txHash"`
	Network     Network          `json:"network"`
	Fee         decimal.Decimal  `json:"fee"`
	CreatedAt   time.Time        `json:"createdAt"`
	ProcessedAt *time.Time       `json:"processedAt"`
}

// Total is the amount reserved from the balance for this withdrawal
func (w *Withdrawal) Total() decimal.Decimal {
	return w.Amount.Add(w.Fee)
}

// BalanceUpdate is pushed to connected clients after a ledger mutation commits
type BalanceUpdate struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	User   *User  `json:"user"`
}
