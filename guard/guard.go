// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package guard holds the mutable safety state of one vault: the pause flag,
// the per-sub-account pending amounts that freeze accounts while an
// asynchronous conversion is in flight, and the reentrancy lock guarding
// every mutating entry point.
package guard

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/vault/types"
)

var (
	ErrReentrantCall         = errors.New("reentrant call")
	ErrVaultAccountFrozen    = errors.New("vault account is frozen")
	ErrNegativePendingAmount = errors.New("pending amount would go negative")
	ErrCannotExecuteWhenPaused = errors.New("cannot execute action when paused")
)

// Backend persists guard state. A nil backend keeps the guard purely
// in-memory.
type Backend interface {
	PutPaused(paused bool) error
	PutPendingAmount(acct types.AccountNumber, ft types.FreezeType, amount *big.Int) error
}

// Guard is the per-vault state machine gating every mutating call.
type Guard struct {
	mu      sync.Mutex
	paused  bool
	pending map[types.AccountNumber]map[types.FreezeType]*big.Int
	busy    bool

	backend Backend
}

// New returns an unfrozen, unpaused guard. backend may be nil.
func New(backend Backend) *Guard {
	return &Guard{
		pending: make(map[types.AccountNumber]map[types.FreezeType]*big.Int),
		backend: backend,
	}
}

// Enter acquires the reentrancy lock. The returned release function must be
// deferred immediately so the lock is cleared on every exit path.
func (g *Guard) Enter() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return nil, ErrReentrantCall
	}
	g.busy = true
	return func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}, nil
}

// SetPaused flips the pause flag. Authorization is enforced by the caller.
func (g *Guard) SetPaused(paused bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.backend != nil {
		if err := g.backend.PutPaused(paused); err != nil {
			return err
		}
	}
	g.paused = paused
	return nil
}

// IsPaused reports whether the vault is paused.
func (g *Guard) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// AddPendingAmount applies a signed delta to the pending amount of one
// sub-account and freeze type. A negative result is an invariant violation
// and leaves the state unchanged.
func (g *Guard) AddPendingAmount(
	acct types.AccountNumber,
	ft types.FreezeType,
	delta *big.Int,
) error {
	if delta == nil || delta.Sign() == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	current := big.NewInt(0)
	if byType, ok := g.pending[acct]; ok {
		if v, ok := byType[ft]; ok {
			current = v
		}
	}

	next := new(big.Int).Add(current, delta)
	if next.Sign() < 0 {
		return fmt.Errorf("%w: account %d %s pending %s delta %s",
			ErrNegativePendingAmount, acct, ft, current, delta)
	}

	if g.backend != nil {
		if err := g.backend.PutPendingAmount(acct, ft, next); err != nil {
			return err
		}
	}

	byType, ok := g.pending[acct]
	if !ok {
		byType = make(map[types.FreezeType]*big.Int)
		g.pending[acct] = byType
	}
	if next.Sign() == 0 {
		delete(byType, ft)
		if len(byType) == 0 {
			delete(g.pending, acct)
		}
	} else {
		byType[ft] = next
	}
	return nil
}

// RestorePendingAmount seeds a pending amount without invariant checks. Used
// when loading persisted state at startup.
func (g *Guard) RestorePendingAmount(
	acct types.AccountNumber,
	ft types.FreezeType,
	amount *big.Int,
) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	byType, ok := g.pending[acct]
	if !ok {
		byType = make(map[types.FreezeType]*big.Int)
		g.pending[acct] = byType
	}
	byType[ft] = new(big.Int).Set(amount)
}

// RestorePaused seeds the pause flag from persisted state.
func (g *Guard) RestorePaused(paused bool) {
	g.mu.Lock()
	g.paused = paused
	g.mu.Unlock()
}

// PendingAmount returns the pending amount for one sub-account and freeze
// type. Never nil, never negative.
func (g *Guard) PendingAmount(acct types.AccountNumber, ft types.FreezeType) *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if byType, ok := g.pending[acct]; ok {
		if v, ok := byType[ft]; ok {
			return new(big.Int).Set(v)
		}
	}
	return big.NewInt(0)
}

// IsAccountFrozen reports whether a sub-account has any pending conversion.
func (g *Guard) IsAccountFrozen(acct types.AccountNumber) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending[acct]) > 0
}

// IsFrozen reports whether any sub-account of the vault is frozen.
func (g *Guard) IsFrozen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending) > 0
}

// FrozenAccounts returns the number of currently frozen sub-accounts.
func (g *Guard) FrozenAccounts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// CheckNotFrozen fails if the sub-account is frozen.
func (g *Guard) CheckNotFrozen(acct types.AccountNumber) error {
	if g.IsAccountFrozen(acct) {
		return fmt.Errorf("%w: account %d", ErrVaultAccountFrozen, acct)
	}
	return nil
}

// CheckNotPaused fails if the vault is paused.
func (g *Guard) CheckNotPaused() error {
	if g.IsPaused() {
		return ErrCannotExecuteWhenPaused
	}
	return nil
}
