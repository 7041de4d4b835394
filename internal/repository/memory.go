package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
)

// Memory backs in-memory implementations of every store interface plus the
// token balance store. Used for testing and development mode; all maps share
// one lock so cross-store operations observe a consistent snapshot. The
// per-interface views are obtained from the accessor methods below.
type Memory struct {
	mu sync.RWMutex

	nextPositionID int64
	positions      map[int64]*domain.Position
	targets        map[uuid.UUID]*domain.Target
	users          map[uuid.UUID]*domain.User
	usersByEmail   map[string]uuid.UUID
	events         []*domain.LedgerEvent
	settlements    map[uuid.UUID]*domain.Settlement
	balances       map[uuid.UUID]int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextPositionID: 1,
		positions:      make(map[int64]*domain.Position),
		targets:        make(map[uuid.UUID]*domain.Target),
		users:          make(map[uuid.UUID]*domain.User),
		usersByEmail:   make(map[string]uuid.UUID),
		settlements:    make(map[uuid.UUID]*domain.Settlement),
		balances:       make(map[uuid.UUID]int64),
	}
}

// Positions returns the PositionStore view.
func (m *Memory) Positions() PositionStore { return &memPositions{m} }

// Targets returns the TargetStore view.
func (m *Memory) Targets() TargetStore { return &memTargets{m} }

// Users returns the UserStore view.
func (m *Memory) Users() UserStore { return &memUsers{m} }

// Events returns the EventStore view.
func (m *Memory) Events() EventStore { return &memEvents{m} }

// Settlements returns the SettlementStore view.
func (m *Memory) Settlements() SettlementStore { return &memSettlements{m} }

// ──────────────────────────────────────────────────────────────────────────────
// PositionStore
// ──────────────────────────────────────────────────────────────────────────────

type memPositions struct{ m *Memory }

func (s *memPositions) Create(ctx context.Context, p *domain.Position) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.createPositionLocked(p)
	return nil
}

func (s *memPositions) CreateFunded(ctx context.Context, p *domain.Position) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.targets[p.TargetID]
	if !ok {
		return domain.ErrTargetNotFound
	}
	t.Funded += p.StakedAmount
	t.UpdatedAt = time.Now()
	s.m.createPositionLocked(p)
	return nil
}

// createPositionLocked assigns the next id and stores a copy. Ids are
// monotonically increasing and never reused, retired or not.
func (m *Memory) createPositionLocked(p *domain.Position) {
	p.ID = m.nextPositionID
	m.nextPositionID++
	cp := *p
	m.positions[cp.ID] = &cp
}

func (s *memPositions) GetByID(ctx context.Context, id int64) (*domain.Position, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	p, ok := s.m.positions[id]
	if !ok || p.Status != domain.PositionActive {
		return nil, domain.ErrPositionNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPositions) GetByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Position, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []*domain.Position
	for _, p := range s.m.positions {
		if p.Status == domain.PositionActive && p.Owner == owner {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPositions(out)
	return out, nil
}

func (s *memPositions) GetByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.Position, error) {
	all, err := s.ActiveByTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	return page(all, limit, offset), nil
}

func (s *memPositions) ActiveByTarget(ctx context.Context, target uuid.UUID) ([]*domain.Position, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []*domain.Position
	for _, p := range s.m.positions {
		if p.Status == domain.PositionActive && p.TargetID == target {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPositions(out)
	return out, nil
}

func (s *memPositions) Replace(ctx context.Context, retire []int64, create []*domain.Position) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	// Validate everything before mutating so the operation stays atomic. A
	// repeated id is rejected the same way the SQL backend rejects it: the
	// second retirement would match no active row.
	seen := make(map[int64]struct{}, len(retire))
	for _, id := range retire {
		p, ok := s.m.positions[id]
		if !ok || p.Status != domain.PositionActive {
			return domain.ErrPositionNotFound
		}
		if _, dup := seen[id]; dup {
			return domain.ErrPositionNotFound
		}
		seen[id] = struct{}{}
	}
	now := time.Now()
	for _, id := range retire {
		s.m.positions[id].Status = domain.PositionRetired
		s.m.positions[id].UpdatedAt = now
	}
	for _, p := range create {
		s.m.createPositionLocked(p)
	}
	return nil
}

func (s *memPositions) AddRewards(ctx context.Context, id int64, amount int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.positions[id]
	if !ok || p.Status != domain.PositionActive {
		return domain.ErrPositionNotFound
	}
	if p.AccruedRewards > math.MaxInt64-amount {
		return domain.ErrRewardOverflow
	}
	p.AccruedRewards += amount
	p.UpdatedAt = time.Now()
	return nil
}

func (s *memPositions) SetAccruedRewards(ctx context.Context, id int64, amount int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.positions[id]
	if !ok || p.Status != domain.PositionActive {
		return domain.ErrPositionNotFound
	}
	p.AccruedRewards = amount
	p.UpdatedAt = time.Now()
	return nil
}

func (s *memPositions) UpdateOwner(ctx context.Context, id int64, newOwner uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.positions[id]
	if !ok || p.Status != domain.PositionActive {
		return domain.ErrPositionNotFound
	}
	p.Owner = newOwner
	p.UpdatedAt = time.Now()
	return nil
}

func sortPositions(ps []*domain.Position) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

// page returns a window of all. A non-positive limit yields no rows, matching
// LIMIT 0 on the SQL backend.
func page[T any](all []T, limit, offset int) []T {
	if limit <= 0 || offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all
}

// ──────────────────────────────────────────────────────────────────────────────
// TargetStore
// ──────────────────────────────────────────────────────────────────────────────

type memTargets struct{ m *Memory }

func (s *memTargets) Create(ctx context.Context, t *domain.Target) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *t
	s.m.targets[cp.ID] = &cp
	return nil
}

func (s *memTargets) GetByID(ctx context.Context, id uuid.UUID) (*domain.Target, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	t, ok := s.m.targets[id]
	if !ok {
		return nil, domain.ErrTargetNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTargets) List(ctx context.Context, limit, offset int) ([]*domain.Target, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := make([]*domain.Target, 0, len(s.m.targets))
	for _, t := range s.m.targets {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (s *memTargets) SetStatus(ctx context.Context, id uuid.UUID, status domain.TargetStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.targets[id]
	if !ok {
		return domain.ErrTargetNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// UserStore
// ──────────────────────────────────────────────────────────────────────────────

type memUsers struct{ m *Memory }

func (s *memUsers) Create(ctx context.Context, u *domain.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, taken := s.m.usersByEmail[u.Email]; taken {
		return domain.ErrEmailTaken
	}
	for _, existing := range s.m.users {
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
	}
	cp := *u
	s.m.users[cp.ID] = &cp
	s.m.usersByEmail[cp.Email] = cp.ID
	return nil
}

func (s *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	id, ok := s.m.usersByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *s.m.users[id]
	return &cp, nil
}

func (s *memUsers) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// EventStore
// ──────────────────────────────────────────────────────────────────────────────

type memEvents struct{ m *Memory }

func (s *memEvents) Insert(ctx context.Context, e *domain.LedgerEvent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *e
	s.m.events = append(s.m.events, &cp)
	return nil
}

func (s *memEvents) ByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.LedgerEvent, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []*domain.LedgerEvent
	// Newest first, matching the SQL implementation.
	for i := len(s.m.events) - 1; i >= 0; i-- {
		if s.m.events[i].TargetID == target {
			cp := *s.m.events[i]
			out = append(out, &cp)
		}
	}
	return page(out, limit, offset), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SettlementStore
// ──────────────────────────────────────────────────────────────────────────────

type memSettlements struct{ m *Memory }

func (s *memSettlements) Create(ctx context.Context, st *domain.Settlement) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *st
	s.m.settlements[cp.ID] = &cp
	return nil
}

func (s *memSettlements) Pending(ctx context.Context) ([]*domain.Settlement, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []*domain.Settlement
	for _, st := range s.m.settlements {
		if st.Status == domain.SettlementPending {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memSettlements) MarkProcessed(ctx context.Context, id uuid.UUID, distributed int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	st, ok := s.m.settlements[id]
	if !ok {
		return domain.ErrTargetNotFound
	}
	now := time.Now()
	st.Status = domain.SettlementProcessed
	st.Distributed = distributed
	st.ProcessedAt = &now
	return nil
}

func (s *memSettlements) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	st, ok := s.m.settlements[id]
	if !ok {
		return domain.ErrTargetNotFound
	}
	now := time.Now()
	st.Status = domain.SettlementFailed
	st.Note = note
	st.ProcessedAt = &now
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// token.BalanceStore
// ──────────────────────────────────────────────────────────────────────────────

func (m *Memory) Balance(ctx context.Context, who uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[who], nil
}

func (m *Memory) TotalSupply(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, b := range m.balances {
		total += b
	}
	return total, nil
}

func (m *Memory) Credit(ctx context.Context, who uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[who] += amount
	return nil
}

func (m *Memory) Move(ctx context.Context, from, to uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return domain.ErrInsufficientBalance
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}
