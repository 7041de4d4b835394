// Package service contains the business logic of the stake ledger: the
// position ledger, the distribution engine, and the surrounding account,
// target, and auth services.
package service

import (
	"sync"

	"github.com/Decycle-IO/stakeledger/internal/domain"
)

// Guard serializes every mutating ledger operation and rejects re-entry.
// A collaborator that calls back into the ledger mid-operation would observe
// half-applied state, so the guard fails fast with ErrReentrantCall instead
// of deadlocking on the nested acquire.
//
// One Guard instance is shared by LedgerService and DistributionService.
type Guard struct {
	mu sync.Mutex
}

// NewGuard creates the shared mutation guard.
func NewGuard() *Guard {
	return &Guard{}
}

// enter acquires the guard or reports a concurrent/nested mutation in flight.
func (g *Guard) enter() error {
	if !g.mu.TryLock() {
		return domain.ErrReentrantCall
	}
	return nil
}

// exit releases the guard.
func (g *Guard) exit() {
	g.mu.Unlock()
}
