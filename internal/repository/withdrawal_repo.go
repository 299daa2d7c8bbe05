package repository

import (
	"context"

	"earn_webapp/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type WithdrawalRepository struct {
	conn
}

const withdrawalColumns = `id, user_id, amount, address, status, tx_hash, network, fee, created_at, processed_at`

// GetWithdrawal retrieves withdrawal by ID
func (r *WithdrawalRepository) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`+r.forUpdate(), id)
	return scanWithdrawal(row)
}

func (r *WithdrawalRepository) ListWithdrawals(ctx context.Context, userID string) ([]domain.Withdrawal, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if userID == "" {
		rows, err = r.q.Query(ctx,
			`SELECT `+withdrawalColumns+` FROM withdrawals ORDER BY created_at DESC`)
	} else {
		rows, err = r.q.Query(ctx,
			`SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}

// CreateWithdrawal inserts a withdrawal request
func (r *WithdrawalRepository) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, address, status, tx_hash, network, fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, w.ID, w.UserID, w.Amount, w.Address, w.Status, w.TxHash, w.Network, w.Fee).Scan(&w.CreatedAt)
	return translateErr(err)
}

func (r *WithdrawalRepository) UpdateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE withdrawals SET status = $2, tx_hash = $3, processed_at = $4 WHERE id = $1
	`, w.ID, w.Status, w.TxHash, w.ProcessedAt)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := row.Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Address, &w.Status, &w.TxHash, &w.Network, &w.Fee,
		&w.CreatedAt, &w.ProcessedAt,
	); err != nil {
		return nil, translateErr(err)
	}
	return &w, nil
}
