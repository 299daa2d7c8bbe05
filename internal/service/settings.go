package service

import (
	"context"
	"errors"
	"strings"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/logger"
	"earn_webapp/internal/repository"

	"github.com/shopspring/decimal"
)

const maskedValue = "********"

// Rules are the business constants of the ledger
type Rules struct {
	FirstDepositBonusRate decimal.Decimal
	BonusVolumeMultiplier decimal.Decimal
	WithdrawalFee         decimal.Decimal
	TradeReportMax        decimal.Decimal
}

// DefaultRules match the production constants
func DefaultRules() Rules {
	return Rules{
		FirstDepositBonusRate: decimal.RequireFromString("0.10"),
		BonusVolumeMultiplier: decimal.NewFromInt(10),
		WithdrawalFee:         decimal.RequireFromString("0.5"),
		TradeReportMax:        decimal.NewFromInt(10000),
	}
}

var ruleKeys = map[string]bool{
	domain.SettingFirstDepositBonusRate: true,
	domain.SettingBonusVolumeMultiplier: true,
	domain.SettingWithdrawalFee:         true,
	domain.SettingTradeReportMax:        true,
}

type SettingsService struct {
	store    repository.SettingStore
	defaults Rules
}

func NewSettingsService(store repository.SettingStore, defaults Rules) *SettingsService {
	return &SettingsService{store: store, defaults: defaults}
}

// Get returns the setting; credential values are masked unless revealSecrets is set
func (s *SettingsService) Get(ctx context.Context, key string, revealSecrets bool) (*domain.SystemSetting, error) {
	st, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	if !revealSecrets {
		mask(st)
	}
	return st, nil
}

func (s *SettingsService) List(ctx context.Context, revealSecrets bool) ([]domain.SystemSetting, error) {
	settings, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = []domain.SystemSetting{}
	}
	if !revealSecrets {
		for i := range settings {
			mask(&settings[i])
		}
	}
	return settings, nil
}

// Upsert writes a setting. Rule keys must hold a non-negative decimal.
func (s *SettingsService) Upsert(ctx context.Context, key, value string) (*domain.SystemSetting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, validationErr("key is required")
	}
	if ruleKeys[key] {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || d.IsNegative() || !d.Equal(d.Truncate(amountScale)) {
			return nil, validationErr(key + " must be a non-negative number with at most 8 decimals")
		}
		value = d.String()
	}

	st, err := s.store.UpsertSetting(ctx, key, value)
	if err != nil {
		return nil, err
	}
	logger.Info("setting updated", "key", key)
	return st, nil
}

// Rules resolves the ledger constants from settings, falling back to the defaults
func (s *SettingsService) Rules(ctx context.Context) (Rules, error) {
	return resolveRules(ctx, s.store, s.defaults)
}

// resolveRules reads through store so callers inside a unit of work see its view
func resolveRules(ctx context.Context, store repository.SettingStore, defaults Rules) (Rules, error) {
	r := defaults
	for key, dst := range map[string]*decimal.Decimal{
		domain.SettingFirstDepositBonusRate: &r.FirstDepositBonusRate,
		domain.SettingBonusVolumeMultiplier: &r.BonusVolumeMultiplier,
		domain.SettingWithdrawalFee:         &r.WithdrawalFee,
		domain.SettingTradeReportMax:        &r.TradeReportMax,
	} {
		st, err := store.GetSetting(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return Rules{}, err
		}
		d, err := decimal.NewFromString(strings.TrimSpace(st.Value))
		if err != nil || d.IsNegative() {
			logger.Warn("ignoring malformed rule setting", "key", key, "value", st.Value)
			continue
		}
		*dst = d
	}
	return r, nil
}

func mask(st *domain.SystemSetting) {
	if st.IsCredential() && st.Value != "" {
		st.Value = maskedValue
	}
}
