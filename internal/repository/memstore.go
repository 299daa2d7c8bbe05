package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"earn_webapp/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemStore is an in-process Store used by tests and STORAGE=memory.
// WithTx holds a single lock for the whole unit, which serializes writers.
type MemStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	users       map[string]domain.User
	deposits    map[string]domain.Deposit
	withdrawals map[string]domain.Withdrawal
	settings    map[string]domain.SystemSetting
}

func NewMemStore() *MemStore {
	d := &memData{
		users:       make(map[string]domain.User),
		deposits:    make(map[string]domain.Deposit),
		withdrawals: make(map[string]domain.Withdrawal),
		settings:    make(map[string]domain.SystemSetting),
	}
	now := time.Now().UTC()
	for k, v := range DefaultSettings {
		d.settings[k] = domain.SystemSetting{ID: uuid.NewString(), Key: k, Value: v, UpdatedAt: now}
	}
	return &MemStore{data: d}
}

func (s *MemStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// stage writes on a copy so a failed unit leaves nothing behind
	staged := s.data.clone()
	if err := fn(&memTx{data: staged}); err != nil {
		return err
	}
	s.data = staged
	return nil
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) view(fn func(tx *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{data: s.data})
}

func (s *MemStore) GetUser(ctx context.Context, id string) (u *domain.User, err error) {
	err = s.view(func(tx *memTx) error { u, err = tx.GetUser(ctx, id); return err })
	return u, err
}

func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (u *domain.User, err error) {
	err = s.view(func(tx *memTx) error { u, err = tx.GetUserByEmail(ctx, email); return err })
	return u, err
}

func (s *MemStore) GetUserByReferralCode(ctx context.Context, code string) (u *domain.User, err error) {
	err = s.view(func(tx *memTx) error { u, err = tx.GetUserByReferralCode(ctx, code); return err })
	return u, err
}

func (s *MemStore) CreateUser(ctx context.Context, u *domain.User) error {
	return s.view(func(tx *memTx) error { return tx.CreateUser(ctx, u) })
}

func (s *MemStore) UpdateUser(ctx context.Context, u *domain.User) error {
	return s.view(func(tx *memTx) error { return tx.UpdateUser(ctx, u) })
}

func (s *MemStore) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	return s.view(func(tx *memTx) error { return tx.SetUserAdmin(ctx, id, isAdmin) })
}

func (s *MemStore) ListUsers(ctx context.Context, limit, offset int) (us []domain.User, err error) {
	err = s.view(func(tx *memTx) error { us, err = tx.ListUsers(ctx, limit, offset); return err })
	return us, err
}

func (s *MemStore) ListReferrals(ctx context.Context, referrerID string) (us []domain.User, err error) {
	err = s.view(func(tx *memTx) error { us, err = tx.ListReferrals(ctx, referrerID); return err })
	return us, err
}

func (s *MemStore) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	return s.view(func(tx *memTx) error { return tx.CreateDeposit(ctx, d) })
}

func (s *MemStore) GetDeposit(ctx context.Context, id string) (d *domain.Deposit, err error) {
	err = s.view(func(tx *memTx) error { d, err = tx.GetDeposit(ctx, id); return err })
	return d, err
}

func (s *MemStore) ListDeposits(ctx context.Context, userID string) (ds []domain.Deposit, err error) {
	err = s.view(func(tx *memTx) error { ds, err = tx.ListDeposits(ctx, userID); return err })
	return ds, err
}

func (s *MemStore) UpdateDeposit(ctx context.Context, d *domain.Deposit) error {
	return s.view(func(tx *memTx) error { return tx.UpdateDeposit(ctx, d) })
}

func (s *MemStore) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	return s.view(func(tx *memTx) error { return tx.CreateWithdrawal(ctx, w) })
}

func (s *MemStore) GetWithdrawal(ctx context.Context, id string) (w *domain.Withdrawal, err error) {
	err = s.view(func(tx *memTx) error { w, err = tx.GetWithdrawal(ctx, id); return err })
	return w, err
}

func (s *MemStore) ListWithdrawals(ctx context.Context, userID string) (ws []domain.Withdrawal, err error) {
	err = s.view(func(tx *memTx) error { ws, err = tx.ListWithdrawals(ctx, userID); return err })
	return ws, err
}

func (s *MemStore) UpdateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	return s.view(func(tx *memTx) error { return tx.UpdateWithdrawal(ctx, w) })
}

func (s *MemStore) GetSetting(ctx context.Context, key string) (st *domain.SystemSetting, err error) {
	err = s.view(func(tx *memTx) error { st, err = tx.GetSetting(ctx, key); return err })
	return st, err
}

func (s *MemStore) ListSettings(ctx context.Context) (sts []domain.SystemSetting, err error) {
	err = s.view(func(tx *memTx) error { sts, err = tx.ListSettings(ctx); return err })
	return sts, err
}

func (s *MemStore) UpsertSetting(ctx context.Context, key, value string) (st *domain.SystemSetting, err error) {
	err = s.view(func(tx *memTx) error { st, err = tx.UpsertSetting(ctx, key, value); return err })
	return st, err
}

func (s *MemStore) AdminStats(ctx context.Context) (st *domain.AdminStats, err error) {
	err = s.view(func(tx *memTx) error { st, err = tx.AdminStats(ctx); return err })
	return st, err
}

func (d *memData) clone() *memData {
	c := &memData{
		users:       make(map[string]domain.User, len(d.users)),
		deposits:    make(map[string]domain.Deposit, len(d.deposits)),
		withdrawals: make(map[string]domain.Withdrawal, len(d.withdrawals)),
		settings:    make(map[string]domain.SystemSetting, len(d.settings)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.deposits {
		c.deposits[k] = v
	}
	for k, v := range d.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	return c
}

// memTx operates on memData with the store lock already held
type memTx struct {
	data *memData
}

func (t *memTx) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memTx) Ping(ctx context.Context) error { return nil }

func (t *memTx) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, ok := t.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range t.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	for _, u := range t.data.users {
		if u.ReferralCode == code {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := t.data.users[u.ID]; ok {
		return ErrDuplicate
	}
	for _, other := range t.data.users {
		if strings.EqualFold(other.Email, u.Email) {
			return ErrDuplicate
		}
		if u.ReferralCode != "" && other.ReferralCode == u.ReferralCode {
			return ErrDuplicate
		}
	}
	if u.ReferredBy != nil {
		if _, ok := t.data.users[*u.ReferredBy]; !ok {
			return ErrNotFound
		}
	}

	u.USDTBalance = decimal.Zero
	u.RTCBalance = decimal.Zero
	u.DepositAmount = decimal.Zero
	u.DepositBonus = decimal.Zero
	u.TradingVolume = decimal.Zero
	u.BonusWithdrawable = decimal.Zero
	u.FirstDepositBonusUsed = false
	u.CreatedAt = time.Now().UTC()
	t.data.users[u.ID] = *u
	return nil
}

func (t *memTx) UpdateUser(ctx context.Context, u *domain.User) error {
	cur, ok := t.data.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	cur.USDTBalance = u.USDTBalance
	cur.RTCBalance = u.RTCBalance
	cur.DepositAmount = u.DepositAmount
	cur.DepositBonus = u.DepositBonus
	cur.TradingVolume = u.TradingVolume
	cur.BonusWithdrawable = u.BonusWithdrawable
	cur.FirstDepositBonusUsed = u.FirstDepositBonusUsed
	t.data.users[u.ID] = cur
	return nil
}

func (t *memTx) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	u, ok := t.data.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsAdmin = isAdmin
	t.data.users[id] = u
	return nil
}

func (t *memTx) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users := make([]domain.User, 0, len(t.data.users))
	for _, u := range t.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })

	if offset >= len(users) {
		return []domain.User{}, nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (t *memTx) ListReferrals(ctx context.Context, referrerID string) ([]domain.User, error) {
	var users []domain.User
	for _, u := range t.data.users {
		if u.ReferredBy != nil && *u.ReferredBy == referrerID {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (t *memTx) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	if _, ok := t.data.users[d.UserID]; !ok {
		return ErrNotFound
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, ok := t.data.deposits[d.ID]; ok {
		return ErrDuplicate
	}
	d.CreatedAt = time.Now().UTC()
	t.data.deposits[d.ID] = *d
	return nil
}

func (t *memTx) GetDeposit(ctx context.Context, id string) (*domain.Deposit, error) {
	d, ok := t.data.deposits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (t *memTx) ListDeposits(ctx context.Context, userID string) ([]domain.Deposit, error) {
	var out []domain.Deposit
	for _, d := range t.data.deposits {
		if userID == "" || d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) UpdateDeposit(ctx context.Context, d *domain.Deposit) error {
	cur, ok := t.data.deposits[d.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = d.Status
	cur.TxHash = d.TxHash
	cur.ConfirmedAt = d.ConfirmedAt
	t.data.deposits[d.ID] = cur
	return nil
}

func (t *memTx) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	if _, ok := t.data.users[w.UserID]; !ok {
		return ErrNotFound
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if _, ok := t.data.withdrawals[w.ID]; ok {
		return ErrDuplicate
	}
	w.CreatedAt = time.Now().UTC()
	t.data.withdrawals[w.ID] = *w
	return nil
}

func (t *memTx) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	w, ok := t.data.withdrawals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (t *memTx) ListWithdrawals(ctx context.Context, userID string) ([]domain.Withdrawal, error) {
	var out []domain.Withdrawal
	for _, w := range t.data.withdrawals {
		if userID == "" || w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) UpdateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	cur, ok := t.data.withdrawals[w.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = w.Status
	cur.TxHash = w.TxHash
	cur.ProcessedAt = w.ProcessedAt
	t.data.withdrawals[w.ID] = cur
	return nil
}

func (t *memTx) GetSetting(ctx context.Context, key string) (*domain.SystemSetting, error) {
	s, ok := t.data.settings[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) ListSettings(ctx context.Context) ([]domain.SystemSetting, error) {
	out := make([]domain.SystemSetting, 0, len(t.data.settings))
	for _, s := range t.data.settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (t *memTx) UpsertSetting(ctx context.Context, key, value string) (*domain.SystemSetting, error) {
	s, ok := t.data.settings[key]
	if !ok {
		s = domain.SystemSetting{ID: uuid.NewString(), Key: key}
	}
	s.Value = value
	s.UpdatedAt = time.Now().UTC()
	t.data.settings[key] = s
	return &s, nil
}

func (t *memTx) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	s := &domain.AdminStats{
		TotalUSDTBalance:  decimal.Zero,
		TotalPendingBonus: decimal.Zero,
		TotalDeposited:    decimal.Zero,
		TotalWithdrawn:    decimal.Zero,
	}
	for _, u := range t.data.users {
		s.TotalUsers++
		if u.IsAdmin {
			s.AdminUsers++
		}
		s.TotalUSDTBalance = s.TotalUSDTBalance.Add(u.USDTBalance)
		s.TotalPendingBonus = s.TotalPendingBonus.Add(u.DepositBonus)
	}
	for _, d := range t.data.deposits {
		switch d.Status {
		case domain.DepositStatusPending:
			s.PendingDeposits++
		case domain.DepositStatusConfirmed:
			s.TotalDeposited = s.TotalDeposited.Add(d.Amount)
		}
	}
	for _, w := range t.data.withdrawals {
		switch w.Status {
		case domain.WithdrawalStatusPending:
			s.PendingWithdrawals++
		case domain.WithdrawalStatusCompleted:
			s.TotalWithdrawn = s.TotalWithdrawn.Add(w.Amount)
		}
	}
	return s, nil
}
