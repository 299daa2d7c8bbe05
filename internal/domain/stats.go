package domain

import "github.com/shopspring/decimal"

// AdminStats is the platform overview shown in the admin console
type AdminStats struct {
	TotalUsers         int64           `json:"totalUsers"`
	AdminUsers         int64           `json:"adminUsers"`
	TotalUSDTBalance   decimal.Decimal `json:"totalUsdtBalance"`
	TotalPendingBonus  decimal.Decimal `json:"totalPendingBonus"`
	PendingDeposits    int64           `json:"pendingDeposits"`
	PendingWithdrawals int64           `json:"pendingWithdrawals"`
	TotalDeposited     decimal.Decimal `json:"totalDeposited"`
	TotalWithdrawn     decimal.Decimal `json:"totalWithdrawn"`
}
