package repository

import (
	"context"

	"earn_webapp/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DepositRepository struct {
	conn
}

const depositColumns = `id, user_id, amount, status, tx_hash, network, created_at, confirmed_at`

// GetDeposit retrieves deposit by ID
func (r *DepositRepository) GetDeposit(ctx context.Context, id string) (*domain.Deposit, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE id = $1`+r.forUpdate(), id)
	return scanDeposit(row)
}

func (r *DepositRepository) ListDeposits(ctx context.Context, userID string) ([]domain.Deposit, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if userID == "" {
		rows, err = r.q.Query(ctx,
			`SELECT `+depositColumns+` FROM deposits ORDER BY created_at DESC`)
	} else {
		rows, err = r.q.Query(ctx,
			`SELECT `+depositColumns+` FROM deposits WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, *d)
	}
	return deposits, rows.Err()
}

// CreateDeposit inserts a deposit; created_at is assigned by the database
func (r *DepositRepository) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO deposits (id, user_id, amount, status, tx_hash, network)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, d.ID, d.UserID, d.Amount, d.Status, d.TxHash, d.Network).Scan(&d.CreatedAt)
	return translateErr(err)
}

func (r *DepositRepository) UpdateDeposit(ctx context.Context, d *domain.Deposit) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE deposits SET status = $2, tx_hash = $3, confirmed_at = $4 WHERE id = $1
	`, d.ID, d.Status, d.TxHash, d.ConfirmedAt)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	var d domain.Deposit
	if err := row.Scan(
		&d.ID, &d.UserID, &d.Amount, &d.Status, &d.TxHash, &d.Network, &d.CreatedAt, &d.ConfirmedAt,
	); err != nil {
		return nil, translateErr(err)
	}
	return &d, nil
}
