package service

import (
	"context"
	"testing"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_MaskCredentials(t *testing.T) {
	store := repository.NewMemStore()
	svc := NewSettingsService(store, DefaultRules())
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.SettingBinanceAPISecret, "s3cr3t")
	require.NoError(t, err)

	masked, err := svc.Get(ctx, domain.SettingBinanceAPISecret, false)
	require.NoError(t, err)
	assert.Equal(t, maskedValue, masked.Value)

	revealed, err := svc.Get(ctx, domain.SettingBinanceAPISecret, true)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", revealed.Value)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	for _, s := range all {
		if s.Key == domain.SettingBinanceAPISecret {
			assert.Equal(t, maskedValue, s.Value)
		}
		if s.Key == domain.SettingDepositAddress {
			assert.NotEqual(t, maskedValue, s.Value)
		}
	}
}

func TestSettings_UpsertKeepsID(t *testing.T) {
	store := repository.NewMemStore()
	svc := NewSettingsService(store, DefaultRules())
	ctx := context.Background()

	first, err := svc.Upsert(ctx, domain.SettingDepositAddress, "TAddr1")
	require.NoError(t, err)
	second, err := svc.Upsert(ctx, domain.SettingDepositAddress, "TAddr2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "TAddr2", second.Value)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	_, err = svc.Get(ctx, "missing", false)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSettings_Rules(t *testing.T) {
	store := repository.NewMemStore()
	svc := NewSettingsService(store, DefaultRules())
	ctx := context.Background()

	rules, err := svc.Rules(ctx)
	require.NoError(t, err)
	assertDec(t, "0.1", rules.FirstDepositBonusRate)
	assertDec(t, "10", rules.BonusVolumeMultiplier)
	assertDec(t, "0.5", rules.WithdrawalFee)
	assertDec(t, "10000", rules.TradeReportMax)

	_, err = svc.Upsert(ctx, domain.SettingBonusVolumeMultiplier, "20")
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, domain.SettingWithdrawalFee, "abc")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Upsert(ctx, domain.SettingWithdrawalFee, "-1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Upsert(ctx, domain.SettingWithdrawalFee, "0.123456789")
	assert.ErrorIs(t, err, ErrValidation)

	// a malformed value written around the service falls back to the default
	_, err = store.UpsertSetting(ctx, domain.SettingTradeReportMax, "lots")
	require.NoError(t, err)

	rules, err = svc.Rules(ctx)
	require.NoError(t, err)
	assertDec(t, "20", rules.BonusVolumeMultiplier)
	assertDec(t, "0.5", rules.WithdrawalFee)
	assertDec(t, "10000", rules.TradeReportMax)
}
