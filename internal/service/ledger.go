package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/logger"
	"earn_webapp/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var ledgerOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger mutations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(ledgerOps)
}

// Money columns are NUMERIC(18,8): at most 8 fractional and 10 integer digits.
const amountScale = 8

var amountLimit = decimal.New(1, 18-amountScale)

// validAmount reports whether v is positive and storable without rounding
func validAmount(v decimal.Decimal) bool {
	if !v.IsPositive() || v.GreaterThanOrEqual(amountLimit) {
		return false
	}
	return v.Equal(v.Truncate(amountScale))
}

// Notifier receives balance changes after they are committed
type Notifier interface {
	NotifyBalance(update domain.BalanceUpdate)
}

type nopNotifier struct{}

func (nopNotifier) NotifyBalance(domain.BalanceUpdate) {}

// LedgerService owns every balance mutation. Each operation runs as one unit
// of work with the affected rows locked, so concurrent requests on the same
// user serialize instead of overwriting each other.
type LedgerService struct {
	store    repository.Store
	defaults Rules
	notifier Notifier
	now      func() time.Time
}

func NewLedgerService(store repository.Store, defaults Rules, notifier Notifier) *LedgerService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &LedgerService{store: store, defaults: defaults, notifier: notifier, now: time.Now}
}

type DepositInput struct {
	UserID  string
	Amount  decimal.Decimal
	Network domain.Network
	TxHash  *string
}

// CreateDeposit records a pending deposit claim. Balances do not move until it is confirmed.
func (s *LedgerService) CreateDeposit(ctx context.Context, in DepositInput) (*domain.Deposit, error) {
	if !validAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}
	network, err := parseNetwork(in.Network)
	if err != nil {
		return nil, err
	}

	d := &domain.Deposit{
		ID:      uuid.NewString(),
		UserID:  in.UserID,
		Amount:  in.Amount,
		Status:  domain.DepositStatusPending,
		TxHash:  nonEmpty(in.TxHash),
		Network: network,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUser(ctx, in.UserID); err != nil {
			return err
		}
		return tx.CreateDeposit(ctx, d)
	})
	s.observe("deposit_create", err)
	if err != nil {
		return nil, err
	}

	logger.Info("deposit created", "deposit_id", d.ID, "user_id", d.UserID, "amount", d.Amount.String(), "network", d.Network)
	return d, nil
}

func (s *LedgerService) GetDeposit(ctx context.Context, id string) (*domain.Deposit, error) {
	return s.store.GetDeposit(ctx, id)
}

// ListDeposits returns userID's deposits, or all of them for an empty userID
func (s *LedgerService) ListDeposits(ctx context.Context, userID string) ([]domain.Deposit, error) {
	ds, err := s.store.ListDeposits(ctx, userID)
	if ds == nil && err == nil {
		ds = []domain.Deposit{}
	}
	return ds, err
}

// SetDepositStatus confirms or rejects a pending deposit. Confirmation credits
// the amount and, on the user's first confirmed deposit, the one-time bonus.
func (s *LedgerService) SetDepositStatus(ctx context.Context, id string, status domain.DepositStatus, txHash *string) (*domain.Deposit, error) {
	if status != domain.DepositStatusConfirmed && status != domain.DepositStatusRejected {
		return nil, ErrInvalidStatus
	}

	var (
		d    *domain.Deposit
		user *domain.User
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		if d, err = tx.GetDeposit(ctx, id); err != nil {
			return err
		}
		if d.Status != domain.DepositStatusPending {
			return ErrInvalidTransition
		}

		d.Status = status
		if h := nonEmpty(txHash); h != nil {
			d.TxHash = h
		}

		if status == domain.DepositStatusConfirmed {
			now := s.now().UTC()
			d.ConfirmedAt = &now

			rules, err := resolveRules(ctx, tx, s.defaults)
			if err != nil {
				return err
			}
			if user, err = tx.GetUser(ctx, d.UserID); err != nil {
				return err
			}
			creditDeposit(user, d.Amount, rules.FirstDepositBonusRate)
			if err := tx.UpdateUser(ctx, user); err != nil {
				return err
			}
		}
		return tx.UpdateDeposit(ctx, d)
	})
	s.observe("deposit_"+string(status), err)
	if err != nil {
		return nil, err
	}

	logger.Info("deposit status changed", "deposit_id", d.ID, "user_id", d.UserID, "status", d.Status, "amount", d.Amount.String())
	if user != nil {
		s.publish(user, "deposit_confirmed")
	}
	return d, nil
}

// creditDeposit applies a confirmed deposit to u. The bonus is granted once
// per account, gated only by FirstDepositBonusUsed.
func creditDeposit(u *domain.User, amount, bonusRate decimal.Decimal) {
	u.USDTBalance = u.USDTBalance.Add(amount)
	u.DepositAmount = u.DepositAmount.Add(amount)
	if !u.FirstDepositBonusUsed {
		u.DepositBonus = u.DepositBonus.Add(amount.Mul(bonusRate))
		u.FirstDepositBonusUsed = true
	}
}

type WithdrawalInput struct {
	UserID  string
	Amount  decimal.Decimal
	Address string
	Network domain.Network
	Fee     *decimal.Decimal // nil means the configured fee
}

// CreateWithdrawal reserves amount+fee from the balance and records a pending withdrawal
func (s *LedgerService) CreateWithdrawal(ctx context.Context, in WithdrawalInput) (*domain.Withdrawal, error) {
	if !validAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}
	if in.Fee != nil && !in.Fee.IsZero() && !validAmount(*in.Fee) {
		return nil, ErrInvalidAmount
	}
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return nil, validationErr("address is required")
	}
	network, err := parseNetwork(in.Network)
	if err != nil {
		return nil, err
	}

	w := &domain.Withdrawal{
		ID:      uuid.NewString(),
		UserID:  in.UserID,
		Amount:  in.Amount,
		Address: address,
		Status:  domain.WithdrawalStatusPending,
		Network: network,
	}
	var user *domain.User
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if in.Fee != nil {
			w.Fee = *in.Fee
		} else {
			rules, err := resolveRules(ctx, tx, s.defaults)
			if err != nil {
				return err
			}
			w.Fee = rules.WithdrawalFee
		}

		var err error
		if user, err = tx.GetUser(ctx, in.UserID); err != nil {
			return err
		}
		if w.Total().GreaterThan(user.USDTBalance) {
			return ErrInsufficientFunds
		}
		if err := tx.CreateWithdrawal(ctx, w); err != nil {
			return err
		}
		user.USDTBalance = user.USDTBalance.Sub(w.Total())
		return tx.UpdateUser(ctx, user)
	})
	s.observe("withdrawal_create", err)
	if err != nil {
		return nil, err
	}

	logger.Info("withdrawal created", "withdrawal_id", w.ID, "user_id", w.UserID,
		"amount", w.Amount.String(), "fee", w.Fee.String(), "balance", user.USDTBalance.String())
	s.publish(user, "withdrawal_created")
	return w, nil
}

func (s *LedgerService) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	return s.store.GetWithdrawal(ctx, id)
}

func (s *LedgerService) ListWithdrawals(ctx context.Context, userID string) ([]domain.Withdrawal, error) {
	ws, err := s.store.ListWithdrawals(ctx, userID)
	if ws == nil && err == nil {
		ws = []domain.Withdrawal{}
	}
	return ws, err
}

// SetWithdrawalStatus completes or rejects a pending withdrawal. A rejection
// returns the reserved amount+fee to the balance.
func (s *LedgerService) SetWithdrawalStatus(ctx context.Context, id string, status domain.WithdrawalStatus, txHash *string) (*domain.Withdrawal, error) {
	if status != domain.WithdrawalStatusCompleted && status != domain.WithdrawalStatusRejected {
		return nil, ErrInvalidStatus
	}

	var (
		w    *domain.Withdrawal
		user *domain.User
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		if w, err = tx.GetWithdrawal(ctx, id); err != nil {
			return err
		}
		if w.Status != domain.WithdrawalStatusPending {
			return ErrInvalidTransition
		}

		now := s.now().UTC()
		w.Status = status
		w.ProcessedAt = &now
		if h := nonEmpty(txHash); h != nil {
			w.TxHash = h
		}

		if status == domain.WithdrawalStatusRejected {
			if user, err = tx.GetUser(ctx, w.UserID); err != nil {
				return err
			}
			user.USDTBalance = user.USDTBalance.Add(w.Total())
			if err := tx.UpdateUser(ctx, user); err != nil {
				return err
			}
		}
		return tx.UpdateWithdrawal(ctx, w)
	})
	s.observe("withdrawal_"+string(status), err)
	if err != nil {
		return nil, err
	}

	logger.Info("withdrawal status changed", "withdrawal_id", w.ID, "user_id", w.UserID, "status", w.Status)
	if user != nil {
		s.publish(user, "withdrawal_refunded")
	}
	return w, nil
}

// ReportTrade adds a client-reported trade amount to the user's trading volume
func (s *LedgerService) ReportTrade(ctx context.Context, userID string, amount decimal.Decimal) (*domain.User, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	var user *domain.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		rules, err := resolveRules(ctx, tx, s.defaults)
		if err != nil {
			return err
		}
		if amount.GreaterThan(rules.TradeReportMax) {
			return ErrInvalidAmount
		}
		if user, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		user.TradingVolume = user.TradingVolume.Add(amount)
		return tx.UpdateUser(ctx, user)
	})
	s.observe("trade_report", err)
	if err != nil {
		return nil, err
	}

	logger.Debug("trade reported", "user_id", userID, "amount", amount.String(), "volume", user.TradingVolume.String())
	s.publish(user, "trade_reported")
	return user, nil
}

// BonusClaim is the result of a successful ClaimBonus
type BonusClaim struct {
	Claimed decimal.Decimal
	User    *domain.User
}

// ClaimBonus unlocks the pending deposit bonus once the trading volume reaches
// depositAmount times the volume multiplier.
func (s *LedgerService) ClaimBonus(ctx context.Context, userID string) (*BonusClaim, error) {
	var claim BonusClaim
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		rules, err := resolveRules(ctx, tx, s.defaults)
		if err != nil {
			return err
		}
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !user.DepositBonus.IsPositive() {
			return ErrNoBonus
		}
		required := user.RequiredTradingVolume(rules.BonusVolumeMultiplier)
		if user.TradingVolume.LessThan(required) {
			return &VolumeShortfallError{Current: user.TradingVolume, Required: required}
		}

		claim.Claimed = user.DepositBonus
		user.BonusWithdrawable = user.BonusWithdrawable.Add(user.DepositBonus)
		user.USDTBalance = user.USDTBalance.Add(user.DepositBonus)
		user.DepositBonus = decimal.Zero
		claim.User = user
		return tx.UpdateUser(ctx, user)
	})
	s.observe("bonus_claim", err)
	if err != nil {
		return nil, err
	}

	logger.Info("bonus claimed", "user_id", userID, "amount", claim.Claimed.String())
	s.publish(claim.User, "bonus_claimed")
	return &claim, nil
}

func (s *LedgerService) publish(u *domain.User, reason string) {
	s.notifier.NotifyBalance(domain.BalanceUpdate{Type: "balance_update", Reason: reason, User: u})
}

func (s *LedgerService) observe(op string, err error) {
	outcome := "ok"
	var shortfall *VolumeShortfallError
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrNoBonus), errors.As(err, &shortfall):
		outcome = "rejected"
	case errors.Is(err, ErrInvalidTransition):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	ledgerOps.WithLabelValues(op, outcome).Inc()
}

func parseNetwork(n domain.Network) (domain.Network, error) {
	if n == "" {
		return domain.NetworkTRC20, nil
	}
	n = domain.Network(strings.ToUpper(string(n)))
	if !n.Valid() {
		return "", ErrInvalidNetwork
	}
	return n, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
