package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []domain.BalanceUpdate
}

func (n *recordingNotifier) NotifyBalance(u domain.BalanceUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, u)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func newLedger(t *testing.T) (*LedgerService, *repository.MemStore, *recordingNotifier) {
	t.Helper()
	store := repository.NewMemStore()
	n := &recordingNotifier{}
	return NewLedgerService(store, DefaultRules(), n), store, n
}

func seedUser(t *testing.T, store repository.Store, email string, balance string) *domain.User {
	t.Helper()
	ctx := context.Background()
	code, err := GenerateReferralCode()
	require.NoError(t, err)
	u := &domain.User{Email: email, PasswordHash: "x", ReferralCode: code}
	require.NoError(t, store.CreateUser(ctx, u))
	if balance != "" {
		u.USDTBalance = dec(balance)
		require.NoError(t, store.UpdateUser(ctx, u))
	}
	return u
}

func mustUser(t *testing.T, store repository.Store, id string) *domain.User {
	t.Helper()
	u, err := store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestCreateDeposit_PendingWithoutBalanceChange(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	hash := "0xabc"
	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("100"), Network: "eth", TxHash: &hash})
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusPending, d.Status)
	assert.Equal(t, domain.NetworkETH, d.Network)

	got, err := ledger.GetDeposit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.UserID, got.UserID)
	assertDec(t, "100", got.Amount)
	assert.Equal(t, d.Status, got.Status)
	assert.Equal(t, d.Network, got.Network)
	require.NotNil(t, got.TxHash)
	assert.Equal(t, "0xabc", *got.TxHash)
	assert.Nil(t, got.ConfirmedAt)

	assertDec(t, "0", mustUser(t, store, u.ID).USDTBalance)
}

func TestCreateDeposit_Validation(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	_, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("-5")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("5"), Network: "BTC"})
	assert.ErrorIs(t, err, ErrInvalidNetwork)

	_, err = ledger.CreateDeposit(ctx, DepositInput{UserID: "missing", Amount: dec("5")})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("5")})
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkTRC20, d.Network)
}

// idRecorder captures the ids the ledger hands to the store
type idRecorder struct {
	repository.Store
	mu  *sync.Mutex
	ids *[]string
}

func (r idRecorder) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return r.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(idRecorder{Store: tx, mu: r.mu, ids: r.ids})
	})
}

func (r idRecorder) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	r.record("deposit:" + d.ID)
	return r.Store.CreateDeposit(ctx, d)
}

func (r idRecorder) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	r.record("withdrawal:" + w.ID)
	return r.Store.CreateWithdrawal(ctx, w)
}

func (r idRecorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.ids = append(*r.ids, id)
}

func TestLedger_AssignsRecordIDs(t *testing.T) {
	mem := repository.NewMemStore()
	var ids []string
	store := idRecorder{Store: mem, mu: &sync.Mutex{}, ids: &ids}
	ledger := NewLedgerService(store, DefaultRules(), nil)
	ctx := context.Background()
	u := seedUser(t, mem, "ids@example.com", "50")
	fee := decimal.Zero

	for i := 0; i < 2; i++ {
		_, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("10")})
		require.NoError(t, err)
		_, err = ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("5"), Address: "TAddr", Fee: &fee})
		require.NoError(t, err)
	}

	require.Len(t, ids, 4)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.NotContains(t, []string{"deposit:", "withdrawal:"}, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestLedger_RejectsUnstorableAmounts(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "scale@example.com", "1000")

	tests := []struct {
		name   string
		amount string
		ok     bool
	}{
		{"below smallest unit", "0.000000001", false},
		{"too many integer digits", "123456789012.5", false},
		{"ten integer digits", "1000000000", false},
		{"nine decimals", "1.123456789", false},
		{"twelve decimals", "1.123456789123", false},
		{"eight decimals", "1.12345678", true},
		{"largest storable", "9999999999.99999999", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, depErr := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec(tt.amount)})
			_, tradeErr := ledger.ReportTrade(ctx, u.ID, dec(tt.amount))
			if tt.ok {
				assert.NoError(t, depErr)
				return
			}
			assert.ErrorIs(t, depErr, ErrInvalidAmount)
			assert.ErrorIs(t, tradeErr, ErrInvalidAmount)

			fee := decimal.Zero
			_, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec(tt.amount), Address: "TAddr", Fee: &fee})
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}

	badFee := dec("0.123456789")
	_, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("1"), Address: "TAddr", Fee: &badFee})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assertDec(t, "1000", mustUser(t, store, u.ID).USDTBalance)
}

func TestConfirmFirstDeposit_GrantsBonus(t *testing.T) {
	ledger, store, notifier := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("100")})
	require.NoError(t, err)

	confirmed, err := ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusConfirmed, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	got := mustUser(t, store, u.ID)
	assertDec(t, "100", got.USDTBalance)
	assertDec(t, "10", got.DepositBonus)
	assertDec(t, "100", got.DepositAmount)
	assert.True(t, got.FirstDepositBonusUsed)

	require.Len(t, notifier.updates, 1)
	assert.Equal(t, "deposit_confirmed", notifier.updates[0].Reason)
	assert.Equal(t, u.ID, notifier.updates[0].User.ID)
}

func TestConfirmSecondDeposit_NoBonus(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	for _, amount := range []string{"100", "50"} {
		d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec(amount)})
		require.NoError(t, err)
		_, err = ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusConfirmed, nil)
		require.NoError(t, err)
	}

	got := mustUser(t, store, u.ID)
	assertDec(t, "150", got.USDTBalance)
	assertDec(t, "10", got.DepositBonus)
	assertDec(t, "150", got.DepositAmount)
}

func TestConfirmTwice_DoesNotDoubleCredit(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("100")})
	require.NoError(t, err)
	_, err = ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusConfirmed, nil)
	require.NoError(t, err)

	_, err = ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusConfirmed, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusRejected, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got := mustUser(t, store, u.ID)
	assertDec(t, "100", got.USDTBalance)
	assertDec(t, "10", got.DepositBonus)
}

func TestConcurrentConfirm_CreditsOnce(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("40")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusConfirmed, nil); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assertDec(t, "40", mustUser(t, store, u.ID).USDTBalance)
}

func TestRejectDeposit_NoBalanceEffect(t *testing.T) {
	ledger, store, notifier := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("100")})
	require.NoError(t, err)
	rejected, err := ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusRejected, rejected.Status)
	assert.Nil(t, rejected.ConfirmedAt)

	got := mustUser(t, store, u.ID)
	assertDec(t, "0", got.USDTBalance)
	assert.False(t, got.FirstDepositBonusUsed)
	assert.Empty(t, notifier.updates)
}

func TestSetDepositStatus_Errors(t *testing.T) {
	ledger, _, _ := newLedger(t)
	ctx := context.Background()

	_, err := ledger.SetDepositStatus(ctx, "nope", domain.DepositStatusConfirmed, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = ledger.SetDepositStatus(ctx, "nope", domain.DepositStatusPending, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBonusRate_FromSettings(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	_, err := store.UpsertSetting(ctx, domain.SettingFirstDepositBonusRate, "0.25")
	require.NoError(t, err)
	u := seedUser(t, store, "a@example.com", "")

	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("100")})
	require.NoError(t, err)
	_, err = ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusConfirmed, nil)
	require.NoError(t, err)

	assertDec(t, "25", mustUser(t, store, u.ID).DepositBonus)
}

func TestCreateWithdrawal_DebitsAmountAndFee(t *testing.T) {
	ledger, store, notifier := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "20")

	fee := dec("0.5")
	w, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("15"), Address: "TAddr", Fee: &fee})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusPending, w.Status)
	assertDec(t, "4.5", mustUser(t, store, u.ID).USDTBalance)
	require.Len(t, notifier.updates, 1)
	assertDec(t, "4.5", notifier.updates[0].User.USDTBalance)
}

func TestCreateWithdrawal_InsufficientFunds(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "20")

	fee := dec("0.5")
	_, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("25"), Address: "TAddr", Fee: &fee})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// fee pushes the total over the balance
	_, err = ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("19.6"), Address: "TAddr", Fee: &fee})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assertDec(t, "20", mustUser(t, store, u.ID).USDTBalance)
	ws, err := ledger.ListWithdrawals(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestCreateWithdrawal_DefaultFee(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "20")

	w, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("10"), Address: "TAddr"})
	require.NoError(t, err)
	assertDec(t, "0.5", w.Fee)
	assertDec(t, "9.5", mustUser(t, store, u.ID).USDTBalance)

	_, err = store.UpsertSetting(ctx, domain.SettingWithdrawalFee, "1")
	require.NoError(t, err)
	w, err = ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("1"), Address: "TAddr"})
	require.NoError(t, err)
	assertDec(t, "1", w.Fee)
	assertDec(t, "7.5", mustUser(t, store, u.ID).USDTBalance)
}

func TestCreateWithdrawal_Validation(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "20")
	negative := dec("-1")

	_, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("0"), Address: "TAddr"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("1"), Address: "TAddr", Fee: &negative})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("1"), Address: "  "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("1"), Address: "TAddr", Network: "SOL"})
	assert.ErrorIs(t, err, ErrInvalidNetwork)
}

func TestConcurrentWithdrawals_NoLostUpdate(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "20")
	zero := decimal.Zero

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("5"), Address: "TAddr", Fee: &zero})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientFunds):
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 6, insufficient)
	assertDec(t, "0", mustUser(t, store, u.ID).USDTBalance)
}

func TestCompleteWithdrawal(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "20")

	w, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("10"), Address: "TAddr"})
	require.NoError(t, err)

	hash := "0xfeed"
	done, err := ledger.SetWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusCompleted, &hash)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusCompleted, done.Status)
	require.NotNil(t, done.TxHash)
	assert.Equal(t, "0xfeed", *done.TxHash)
	assert.NotNil(t, done.ProcessedAt)
	assertDec(t, "9.5", mustUser(t, store, u.ID).USDTBalance)

	_, err = ledger.SetWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusRejected, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assertDec(t, "9.5", mustUser(t, store, u.ID).USDTBalance)
}

func TestRejectWithdrawal_Refunds(t *testing.T) {
	ledger, store, notifier := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "20")

	w, err := ledger.CreateWithdrawal(ctx, WithdrawalInput{UserID: u.ID, Amount: dec("10"), Address: "TAddr"})
	require.NoError(t, err)
	assertDec(t, "9.5", mustUser(t, store, u.ID).USDTBalance)

	rejected, err := ledger.SetWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusRejected, rejected.Status)
	assert.NotNil(t, rejected.ProcessedAt)
	assertDec(t, "20", mustUser(t, store, u.ID).USDTBalance)
	assert.Equal(t, "withdrawal_refunded", notifier.updates[len(notifier.updates)-1].Reason)

	_, err = ledger.SetWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusRejected, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assertDec(t, "20", mustUser(t, store, u.ID).USDTBalance)
}

func TestReportTrade(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	got, err := ledger.ReportTrade(ctx, u.ID, dec("250.5"))
	require.NoError(t, err)
	assertDec(t, "250.5", got.TradingVolume)

	_, err = ledger.ReportTrade(ctx, u.ID, dec("10000"))
	require.NoError(t, err)

	for _, bad := range []string{"0", "-1", "10000.01"} {
		_, err = ledger.ReportTrade(ctx, u.ID, dec(bad))
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
	assertDec(t, "10250.5", mustUser(t, store, u.ID).TradingVolume)
}

func TestClaimBonus_Threshold(t *testing.T) {
	ledger, store, _ := newLedger(t)
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", "")

	d, err := ledger.CreateDeposit(ctx, DepositInput{UserID: u.ID, Amount: dec("100")})
	require.NoError(t, err)
	_, err = ledger.SetDepositStatus(ctx, d.ID, domain.DepositStatusConfirmed, nil)
	require.NoError(t, err)

	_, err = ledger.ReportTrade(ctx, u.ID, dec("999"))
	require.NoError(t, err)

	_, err = ledger.ClaimBonus(ctx, u.ID)
	var shortfall *VolumeShortfallError
	require.ErrorAs(t, err, &shortfall)
	assertDec(t, "999", shortfall.Current)
	assertDec(t, "1000", shortfall.Required)

	before := mustUser(t, store, u.ID)
	assertDec(t, "10", before.DepositBonus)
	assertDec(t, "100", before.USDTBalance)

	_, err = ledger.ReportTrade(ctx, u.ID, dec("1"))
	require.NoError(t, err)

	claim, err := ledger.ClaimBonus(ctx, u.ID)
	require.NoError(t, err)
	assertDec(t, "10", claim.Claimed)

	after := mustUser(t, store, u.ID)
	assertDec(t, "0", after.DepositBonus)
	assertDec(t, "10", after.BonusWithdrawable)
	assertDec(t, "110", after.USDTBalance)

	_, err = ledger.ClaimBonus(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNoBonus)
}

func TestClaimBonus_NoBonus(t *testing.T) {
	ledger, store, _ := newLedger(t)
	u := seedUser(t, store, "a@example.com", "50")

	_, err := ledger.ClaimBonus(context.Background(), u.ID)
	assert.ErrorIs(t, err, ErrNoBonus)
}
