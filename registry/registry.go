// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry is the factory for isolation vaults: it creates one vault
// per owner, owns the collateral/debt market allow-lists for the underlying
// asset, and resolves the privileged identities (router, token converters,
// global operators) every vault consults.
package registry

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/vault/config"
	"github.com/luxfi/vault/events"
	"github.com/luxfi/vault/guard"
	"github.com/luxfi/vault/ledger"
	"github.com/luxfi/vault/metrics"
	"github.com/luxfi/vault/state"
	"github.com/luxfi/vault/types"
	"github.com/luxfi/vault/vault"
)

var (
	ErrVaultExists    = errors.New("vault already exists for owner")
	ErrVaultNotFound  = errors.New("vault not found")
	ErrCallerNotAdmin = errors.New("caller is not the registry admin")
)

// Registry creates and tracks vaults for one underlying asset.
type Registry struct {
	mu sync.RWMutex

	cfg    config.Config
	admin  ids.ShortID
	ledger ledger.Ledger
	store  *state.Store // optional persistence
	log    log.Logger

	collateral set.Set[types.MarketID]
	debt       set.Set[types.MarketID]
	converters set.Set[ids.ShortID]
	operators  set.Set[ids.ShortID]

	vaults map[ids.ShortID]*vault.Vault // owner -> vault
}

// Params collects the registry's collaborators.
type Params struct {
	Config config.Config
	Admin  ids.ShortID
	Ledger ledger.Ledger
	// Store enables guard-state persistence when non-nil.
	Store *state.Store
	Log   log.Logger
}

// New creates a registry from its configuration.
func New(params Params) *Registry {
	if params.Log == nil {
		params.Log = log.NewNoOpLogger()
	}
	r := &Registry{
		cfg:        params.Config,
		admin:      params.Admin,
		ledger:     params.Ledger,
		store:      params.Store,
		log:        params.Log,
		collateral: set.Of(params.Config.AllowedCollateralMarkets...),
		debt:       set.Of(params.Config.AllowedDebtMarkets...),
		converters: set.Of(params.Config.TokenConverters...),
		operators:  set.Of(params.Config.GlobalOperators...),
		vaults:     make(map[ids.ShortID]*vault.Vault),
	}
	return r
}

// vaultID derives a deterministic ledger identity for an owner's vault.
func (r *Registry) vaultID(owner ids.ShortID) ids.ShortID {
	preimage := make([]byte, 0, len(owner)+8)
	preimage = append(preimage, owner[:]...)
	for i := 56; i >= 0; i -= 8 {
		preimage = append(preimage, byte(uint64(r.cfg.UnderlyingMarket)>>i))
	}
	digest := sha256.Sum256(preimage)
	var id ids.ShortID
	copy(id[:], digest[:len(id)])
	return id
}

// CreateVault instantiates the vault for an owner. Each owner gets exactly
// one vault per underlying asset; its guard state is restored from the store
// when persistence is enabled.
func (r *Registry) CreateVault(owner ids.ShortID) (*vault.Vault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.vaults[owner]; exists {
		return nil, fmt.Errorf("%w: %s", ErrVaultExists, owner)
	}

	id := r.vaultID(owner)
	var backend guard.Backend
	if r.store != nil {
		backend = r.store.ForVault(id)
	}
	g := guard.New(backend)
	if r.store != nil {
		if err := r.restoreGuard(id, g); err != nil {
			return nil, err
		}
	}

	v := vault.New(vault.Params{
		ID:       id,
		Owner:    owner,
		Registry: r,
		Guard:    g,
		Ledger:   r.ledger,
		Recorder: events.NewLogRecorder(r.log, r.IsGlobalOperator),
		Metrics:  metrics.NewNoOp(),
		Log:      r.log,
	})
	r.vaults[owner] = v
	r.log.Info("vault created", "owner", owner, "vault", id)
	return v, nil
}

// restoreGuard loads persisted pause and pending state into a fresh guard.
func (r *Registry) restoreGuard(id ids.ShortID, g *guard.Guard) error {
	paused, err := r.store.GetPaused(id)
	if err != nil {
		return err
	}
	g.RestorePaused(paused)
	return r.store.ForEachPendingAmount(id, g.RestorePendingAmount)
}

// GetVault returns an owner's vault.
func (r *Registry) GetVault(owner ids.ShortID) (*vault.Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vaults[owner]
	if !ok {
		return nil, fmt.Errorf("%w: owner %s", ErrVaultNotFound, owner)
	}
	return v, nil
}

// Router returns the factory-side routing identity.
func (r *Registry) Router() ids.ShortID {
	return r.cfg.Router
}

// UnderlyingMarket returns the isolation asset's market.
func (r *Registry) UnderlyingMarket() types.MarketID {
	return r.cfg.UnderlyingMarket
}

// IsTokenConverter reports whether id is a registered token converter.
func (r *Registry) IsTokenConverter(id ids.ShortID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters.Contains(id)
}

// IsGlobalOperator reports whether id may act on every vault's behalf.
func (r *Registry) IsGlobalOperator(id ids.ShortID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators.Contains(id)
}

// AllowedCollateralMarkets returns the current collateral allow-list. The
// returned set is a snapshot; mutations swap in a fresh set.
func (r *Registry) AllowedCollateralMarkets() set.Set[types.MarketID] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collateral
}

// AllowedDebtMarkets returns the current debt allow-list.
func (r *Registry) AllowedDebtMarkets() set.Set[types.MarketID] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.debt
}

// SetAllowedCollateralMarkets replaces the collateral allow-list. Admin only.
func (r *Registry) SetAllowedCollateralMarkets(caller ids.ShortID, markets []types.MarketID) error {
	if caller != r.admin {
		return fmt.Errorf("%w: %s", ErrCallerNotAdmin, caller)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collateral = set.Of(markets...)
	return nil
}

// SetAllowedDebtMarkets replaces the debt allow-list. Admin only.
func (r *Registry) SetAllowedDebtMarkets(caller ids.ShortID, markets []types.MarketID) error {
	if caller != r.admin {
		return fmt.Errorf("%w: %s", ErrCallerNotAdmin, caller)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debt = set.Of(markets...)
	return nil
}

// SetTokenConverters replaces the converter set. Admin only.
func (r *Registry) SetTokenConverters(caller ids.ShortID, converters []ids.ShortID) error {
	if caller != r.admin {
		return fmt.Errorf("%w: %s", ErrCallerNotAdmin, caller)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters = set.Of(converters...)
	return nil
}
