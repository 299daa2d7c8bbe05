package repository

import (
	"context"
	"strings"

	"earn_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	conn
}

const userColumns = `id, email, username, password, is_admin, usdt_balance, rtc_balance,
	referral_code, referred_by, deposit_amount, deposit_bonus, trading_volume,
	bonus_withdrawable, first_deposit_bonus_used, created_at`

func (r *UserRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`+r.forUpdate(), id)
	return scanUser(row)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (r *UserRepository) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
	return scanUser(row)
}

func (r *UserRepository) CreateUser(ctx context.Context, u *domain.User) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password, is_admin, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING usdt_balance, rtc_balance, deposit_amount, deposit_bonus, trading_volume,
		          bonus_withdrawable, first_deposit_bonus_used, created_at
	`, u.ID, u.Email, u.Username, u.PasswordHash, u.IsAdmin, u.ReferralCode, u.ReferredBy).Scan(
		&u.USDTBalance, &u.RTCBalance, &u.DepositAmount, &u.DepositBonus, &u.TradingVolume,
		&u.BonusWithdrawable, &u.FirstDepositBonusUsed, &u.CreatedAt,
	)
	return translateErr(err)
}

func (r *UserRepository) UpdateUser(ctx context.Context, u *domain.User) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET usdt_balance = $2, rtc_balance = $3, deposit_amount = $4, deposit_bonus = $5,
		    trading_volume = $6, bonus_withdrawable = $7, first_deposit_bonus_used = $8
		WHERE id = $1
	`, u.ID, u.USDTBalance, u.RTCBalance, u.DepositAmount, u.DepositBonus,
		u.TradingVolume, u.BonusWithdrawable, u.FirstDepositBonusUsed)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET is_admin = $2 WHERE id = $1`, id, isAdmin)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

// ListReferrals returns users who registered with referrerID's code
func (r *UserRepository) ListReferrals(ctx context.Context, referrerID string) ([]domain.User, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE referred_by = $1 ORDER BY created_at DESC`,
		referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var referralCode *string
	if err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.USDTBalance, &u.RTCBalance,
		&referralCode, &u.ReferredBy, &u.DepositAmount, &u.DepositBonus, &u.TradingVolume,
		&u.BonusWithdrawable, &u.FirstDepositBonusUsed, &u.CreatedAt,
	); err != nil {
		return nil, translateErr(err)
	}
	if referralCode != nil {
		u.ReferralCode = *referralCode
	}
	return &u, nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
