package domain

import (
	"strings"
	"time"
)

// SystemSetting is a key/value configuration row, upserted by key
type SystemSetting struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Well-known setting keys
const (
	SettingDepositAddress        = "deposit_address"
	SettingBinanceAPIKey         = "binance_api_key"
	SettingBinanceAPISecret      = "binance_api_secret"
	SettingFirstDepositBonusRate = "first_deposit_bonus_rate"
	SettingBonusVolumeMultiplier = "bonus_volume_multiplier"
	SettingWithdrawalFee         = "withdrawal_fee"
	SettingTradeReportMax        = "trade_report_max"
)

// IsCredential reports whether the setting holds an exchange credential
func (s *SystemSetting) IsCredential() bool {
	return strings.HasSuffix(s.Key, "_api_key") || strings.HasSuffix(s.Key, "_api_secret")
}
