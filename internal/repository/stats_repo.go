package repository

import (
	"context"
	"fmt"

	"earn_webapp/internal/domain"
)

type StatsRepository struct {
	conn
}

// AdminStats returns platform totals for the admin console
func (r *StatsRepository) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	var s domain.AdminStats

	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_admin),
		       COALESCE(SUM(usdt_balance), 0),
		       COALESCE(SUM(deposit_bonus), 0)
		FROM users
	`).Scan(&s.TotalUsers, &s.AdminUsers, &s.TotalUSDTBalance, &s.TotalPendingBonus)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}

	err = r.q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(amount) FILTER (WHERE status = 'confirmed'), 0)
		FROM deposits
	`).Scan(&s.PendingDeposits, &s.TotalDeposited)
	if err != nil {
		return nil, fmt.Errorf("deposit totals: %w", err)
	}

	err = r.q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0)
		FROM withdrawals
	`).Scan(&s.PendingWithdrawals, &s.TotalWithdrawn)
	if err != nil {
		return nil, fmt.Errorf("withdrawal totals: %w", err)
	}

	return &s, nil
}
