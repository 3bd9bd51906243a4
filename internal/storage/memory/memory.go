// Package memory implements an in-memory repository for development and
// testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"prestiti/internal/core"
)

// Store holds all ledger state in process memory.
type Store struct {
	mu         sync.Mutex
	users      map[int64]core.User
	credits    map[int64]core.Credit
	payments   map[int64]core.Payment
	plans      []core.Plan
	dictionary map[int64]core.DictionaryEntry
	audits     []core.ImportAudit

	planIDCounter  int64
	auditIDCounter int64
}

var _ core.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		users:      make(map[int64]core.User),
		credits:    make(map[int64]core.Credit),
		payments:   make(map[int64]core.Payment),
		dictionary: make(map[int64]core.DictionaryEntry),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.Errf(core.KindNotFound, "User not found")
	}
	return u, nil
}

func (s *Store) ListCredits(_ context.Context, userID int64) ([]core.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Credit
	for _, c := range s.credits {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListPayments(_ context.Context, creditID int64) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.payments {
		if p.CreditID == creditID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListPlans(_ context.Context, upTo core.Date) ([]core.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Plan
	for _, p := range s.plans {
		if !p.Period.After(upTo) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Period.Equal(out[j].Period.Time) {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (s *Store) CountCredits(_ context.Context, from, to core.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.credits {
		if inRange(c.IssuanceDate, from, to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountPayments(_ context.Context, from, to core.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.payments {
		if inRange(p.PaymentDate, from, to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) RecordImportAudit(_ context.Context, audit core.ImportAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditIDCounter++
	audit.ID = s.auditIDCounter
	if audit.ImportedAt.IsZero() {
		audit.ImportedAt = time.Now().UTC()
	}
	s.audits = append(s.audits, audit)
	return nil
}

func (s *Store) ListImportAudit(_ context.Context, limit int) ([]core.ImportAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ImportAudit, 0, limit)
	for i := len(s.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audits[i])
	}
	return out, nil
}

func (s *Store) Begin(_ context.Context) (core.Batch, error) {
	return &batch{store: s}, nil
}

func inRange(d, from, to core.Date) bool {
	return !d.Before(from) && !d.After(to)
}

// batch stages writes and applies them atomically on Commit, re-checking
// uniqueness under the store lock so concurrent batches cannot both commit
// the same id.
type batch struct {
	store *Store
	done  bool

	users      []core.User
	credits    []core.Credit
	plans      []core.Plan
	dictionary []core.DictionaryEntry
	payments   []core.Payment
}

var _ core.Batch = (*batch)(nil)

func (b *batch) UserExists(_ context.Context, id int64) (bool, error) {
	b.store.mu.Lock()
	_, ok := b.store.users[id]
	b.store.mu.Unlock()
	if ok {
		return true, nil
	}
	for _, u := range b.users {
		if u.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (b *batch) CreditExists(_ context.Context, id int64) (bool, error) {
	b.store.mu.Lock()
	_, ok := b.store.credits[id]
	b.store.mu.Unlock()
	if ok {
		return true, nil
	}
	for _, c := range b.credits {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (b *batch) PlanExists(_ context.Context, period core.Date, categoryID int64) (bool, error) {
	b.store.mu.Lock()
	for _, p := range b.store.plans {
		if p.Period.Equal(period.Time) && p.CategoryID == categoryID {
			b.store.mu.Unlock()
			return true, nil
		}
	}
	b.store.mu.Unlock()
	for _, p := range b.plans {
		if p.Period.Equal(period.Time) && p.CategoryID == categoryID {
			return true, nil
		}
	}
	return false, nil
}

func (b *batch) DictionaryEntryExists(_ context.Context, id int64) (bool, error) {
	b.store.mu.Lock()
	_, ok := b.store.dictionary[id]
	b.store.mu.Unlock()
	if ok {
		return true, nil
	}
	for _, e := range b.dictionary {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (b *batch) InsertUser(ctx context.Context, u core.User) error {
	if ok, _ := b.UserExists(ctx, u.ID); ok {
		return core.Errf(core.KindDuplicateKey, "User with id %d already exists.", u.ID)
	}
	b.users = append(b.users, u)
	return nil
}

func (b *batch) InsertCredit(ctx context.Context, c core.Credit) error {
	if ok, _ := b.CreditExists(ctx, c.ID); ok {
		return core.Errf(core.KindDuplicateKey, "Credit with id %d already exists.", c.ID)
	}
	b.credits = append(b.credits, c)
	return nil
}

func (b *batch) InsertPlan(ctx context.Context, p core.Plan) error {
	if ok, _ := b.PlanExists(ctx, p.Period, p.CategoryID); ok {
		return core.Errf(core.KindDuplicateKey, "Plan already exists for this month and category.")
	}
	b.plans = append(b.plans, p)
	return nil
}

func (b *batch) InsertDictionaryEntry(ctx context.Context, e core.DictionaryEntry) error {
	if ok, _ := b.DictionaryEntryExists(ctx, e.ID); ok {
		return core.Errf(core.KindDuplicateKey, "Dictionary with id %d already exists.", e.ID)
	}
	b.dictionary = append(b.dictionary, e)
	return nil
}

func (b *batch) InsertPayment(_ context.Context, p core.Payment) error {
	b.store.mu.Lock()
	_, ok := b.store.payments[p.ID]
	b.store.mu.Unlock()
	if ok {
		return core.Errf(core.KindDuplicateKey, "Payment with id %d already exists.", p.ID)
	}
	for _, staged := range b.payments {
		if staged.ID == p.ID {
			return core.Errf(core.KindDuplicateKey, "Payment with id %d already exists.", p.ID)
		}
	}
	b.payments = append(b.payments, p)
	return nil
}

func (b *batch) Commit() error {
	if b.done {
		return nil
	}
	b.done = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, u := range b.users {
		if _, ok := b.store.users[u.ID]; ok {
			return core.Errf(core.KindDuplicateKey, "User with id %d already exists.", u.ID)
		}
	}
	for _, c := range b.credits {
		if _, ok := b.store.credits[c.ID]; ok {
			return core.Errf(core.KindDuplicateKey, "Credit with id %d already exists.", c.ID)
		}
	}
	for _, p := range b.payments {
		if _, ok := b.store.payments[p.ID]; ok {
			return core.Errf(core.KindDuplicateKey, "Payment with id %d already exists.", p.ID)
		}
	}

	for _, u := range b.users {
		b.store.users[u.ID] = u
	}
	for _, c := range b.credits {
		b.store.credits[c.ID] = c
	}
	for _, e := range b.dictionary {
		b.store.dictionary[e.ID] = e
	}
	for _, p := range b.plans {
		b.store.planIDCounter++
		p.ID = b.store.planIDCounter
		b.store.plans = append(b.store.plans, p)
	}
	for _, p := range b.payments {
		b.store.payments[p.ID] = p
	}
	return nil
}

func (b *batch) Rollback() error {
	b.done = true
	return nil
}
