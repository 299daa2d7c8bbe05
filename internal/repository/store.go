package repository

import (
	"context"
	"errors"

	"earn_webapp/internal/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	// UpdateUser persists balances, counters and the bonus flag. Identity fields are immutable.
	UpdateUser(ctx context.Context, u *domain.User) error
	SetUserAdmin(ctx context.Context, id string, isAdmin bool) error
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
	ListReferrals(ctx context.Context, referrerID string) ([]domain.User, error)
}

type DepositStore interface {
	CreateDeposit(ctx context.Context, d *domain.Deposit) error
	GetDeposit(ctx context.Context, id string) (*domain.Deposit, error)
	// ListDeposits returns the user's deposits, or every deposit when userID is empty. Newest first.
	ListDeposits(ctx context.Context, userID string) ([]domain.Deposit, error)
	UpdateDeposit(ctx context.Context, d *domain.Deposit) error
}

type WithdrawalStore interface {
	CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error
	GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID string) ([]domain.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, w *domain.Withdrawal) error
}

type SettingStore interface {
	GetSetting(ctx context.Context, key string) (*domain.SystemSetting, error)
	ListSettings(ctx context.Context) ([]domain.SystemSetting, error)
	UpsertSetting(ctx context.Context, key, value string) (*domain.SystemSetting, error)
}

// Store is the row store behind every workflow.
//
// Inside WithTx, reads of users, deposits and withdrawals lock the row until fn
// returns, so a read-modify-write of a balance cannot lose a concurrent update.
// fn's error rolls the unit back.
type Store interface {
	UserStore
	DepositStore
	WithdrawalStore
	SettingStore

	AdminStats(ctx context.Context) (*domain.AdminStats, error)
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// DefaultSettings are seeded into a fresh store
var DefaultSettings = map[string]string{
	domain.SettingDepositAddress:   "TXYZexampleAddressForUSDTDeposits12345",
	domain.SettingBinanceAPIKey:    "",
	domain.SettingBinanceAPISecret: "",
}
