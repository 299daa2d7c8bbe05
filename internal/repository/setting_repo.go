package repository

import (
	"context"

	"earn_webapp/internal/domain"

	"github.com/google/uuid"
)

type SettingRepository struct {
	conn
}

func (r *SettingRepository) GetSetting(ctx context.Context, key string) (*domain.SystemSetting, error) {
	var s domain.SystemSetting
	err := r.q.QueryRow(ctx,
		`SELECT id, key, value, updated_at FROM system_settings WHERE key = $1`, key,
	).Scan(&s.ID, &s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &s, nil
}

func (r *SettingRepository) ListSettings(ctx context.Context) ([]domain.SystemSetting, error) {
	rows, err := r.q.Query(ctx, `SELECT id, key, value, updated_at FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []domain.SystemSetting
	for rows.Next() {
		var s domain.SystemSetting
		if err := rows.Scan(&s.ID, &s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// UpsertSetting overwrites value and updated_at; the row id survives updates
func (r *SettingRepository) UpsertSetting(ctx context.Context, key, value string) (*domain.SystemSetting, error) {
	var s domain.SystemSetting
	err := r.q.QueryRow(ctx, `
		INSERT INTO system_settings (id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		RETURNING id, key, value, updated_at
	`, uuid.NewString(), key, value).Scan(&s.ID, &s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &s, nil
}
