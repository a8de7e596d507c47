// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api provides the read-only JSON-RPC service for vault state.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/rpc/v2"
	gorillajson "github.com/gorilla/rpc/v2/json"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/vault/types"
	"github.com/luxfi/vault/vault"
)

var ErrInvalidRequest = errors.New("invalid request")

// Registry is the vault-lookup surface the service needs.
type Registry interface {
	GetVault(owner ids.ShortID) (*vault.Vault, error)
	UnderlyingMarket() types.MarketID
	AllowedCollateralMarkets() set.Set[types.MarketID]
	AllowedDebtMarkets() set.Set[types.MarketID]
}

// Service provides the RPC API over a vault registry.
type Service struct {
	registry Registry
}

// NewService creates a new API service.
func NewService(registry Registry) *Service {
	return &Service{registry: registry}
}

// NewServer returns an HTTP handler serving the vault API under the given
// service namespace.
func NewServer(registry Registry, namespace string) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(gorillajson.NewCodec(), "application/json")
	server.RegisterCodec(gorillajson.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(NewService(registry), namespace); err != nil {
		return nil, fmt.Errorf("failed to register vault service: %w", err)
	}
	return server, nil
}

// PingArgs is the argument for the Ping API.
type PingArgs struct{}

// PingReply is the reply for the Ping API.
type PingReply struct {
	Success bool `json:"success"`
}

// Ping returns a simple health check response.
func (s *Service) Ping(_ *http.Request, _ *PingArgs, reply *PingReply) error {
	reply.Success = true
	return nil
}

func (s *Service) lookup(owner string) (*vault.Vault, error) {
	ownerID, err := ids.ShortFromString(owner)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid owner address", ErrInvalidRequest)
	}
	return s.registry.GetVault(ownerID)
}

// GetVaultArgs identifies a vault by its owner.
type GetVaultArgs struct {
	Owner string `json:"owner"`
}

// GetVaultReply describes a vault.
type GetVaultReply struct {
	Vault            string `json:"vault"`
	Owner            string `json:"owner"`
	UnderlyingMarket uint64 `json:"underlyingMarket"`
	Paused           bool   `json:"paused"`
	Frozen           bool   `json:"frozen"`
}

// GetVault returns a vault's identity and safety state.
func (s *Service) GetVault(_ *http.Request, args *GetVaultArgs, reply *GetVaultReply) error {
	v, err := s.lookup(args.Owner)
	if err != nil {
		return err
	}
	reply.Vault = v.ID().String()
	reply.Owner = v.Owner().String()
	reply.UnderlyingMarket = uint64(v.UnderlyingMarket())
	reply.Paused = v.IsPaused()
	reply.Frozen = v.IsFrozen()
	return nil
}

// GetBalanceArgs identifies one sub-account balance.
type GetBalanceArgs struct {
	Owner   string `json:"owner"`
	Account uint64 `json:"account"`
	Market  uint64 `json:"market"`
}

// GetBalanceReply carries a signed balance as a decimal string.
type GetBalanceReply struct {
	Balance string `json:"balance"`
}

// GetBalance returns the vault's signed balance for one sub-account and
// market.
func (s *Service) GetBalance(_ *http.Request, args *GetBalanceArgs, reply *GetBalanceReply) error {
	v, err := s.lookup(args.Owner)
	if err != nil {
		return err
	}
	reply.Balance = v.Balance(types.AccountNumber(args.Account), types.MarketID(args.Market)).String()
	return nil
}

// IsPausedArgs identifies a vault by its owner.
type IsPausedArgs struct {
	Owner string `json:"owner"`
}

// IsPausedReply reports pause state.
type IsPausedReply struct {
	Paused bool `json:"paused"`
}

// IsPaused reports whether external redemptions are paused for a vault.
func (s *Service) IsPaused(_ *http.Request, args *IsPausedArgs, reply *IsPausedReply) error {
	v, err := s.lookup(args.Owner)
	if err != nil {
		return err
	}
	reply.Paused = v.IsPaused()
	return nil
}

// IsFrozenArgs identifies one sub-account.
type IsFrozenArgs struct {
	Owner   string `json:"owner"`
	Account uint64 `json:"account"`
}

// IsFrozenReply reports freeze state.
type IsFrozenReply struct {
	Frozen bool `json:"frozen"`
}

// IsFrozen reports whether one sub-account is frozen.
func (s *Service) IsFrozen(_ *http.Request, args *IsFrozenArgs, reply *IsFrozenReply) error {
	v, err := s.lookup(args.Owner)
	if err != nil {
		return err
	}
	reply.Frozen = v.IsAccountFrozen(types.AccountNumber(args.Account))
	return nil
}

// GetPendingAmountArgs identifies one pending conversion counter.
type GetPendingAmountArgs struct {
	Owner      string `json:"owner"`
	Account    uint64 `json:"account"`
	FreezeType uint8  `json:"freezeType"`
}

// GetPendingAmountReply carries the pending amount as a decimal string.
type GetPendingAmountReply struct {
	Pending string `json:"pending"`
}

// GetPendingAmount returns one sub-account's pending conversion amount.
func (s *Service) GetPendingAmount(
	_ *http.Request,
	args *GetPendingAmountArgs,
	reply *GetPendingAmountReply,
) error {
	v, err := s.lookup(args.Owner)
	if err != nil {
		return err
	}
	reply.Pending = v.PendingAmount(
		types.AccountNumber(args.Account),
		types.FreezeType(args.FreezeType),
	).String()
	return nil
}

// GetAllowedMarketsArgs is the argument for the GetAllowedMarkets API.
type GetAllowedMarketsArgs struct{}

// GetAllowedMarketsReply lists the registry's market allow-lists. An empty
// list means every market is allowed for that role.
type GetAllowedMarketsReply struct {
	UnderlyingMarket  uint64   `json:"underlyingMarket"`
	CollateralMarkets []uint64 `json:"collateralMarkets"`
	DebtMarkets       []uint64 `json:"debtMarkets"`
}

// GetAllowedMarkets returns the underlying market and the collateral and
// debt allow-lists.
func (s *Service) GetAllowedMarkets(
	_ *http.Request,
	_ *GetAllowedMarketsArgs,
	reply *GetAllowedMarketsReply,
) error {
	reply.UnderlyingMarket = uint64(s.registry.UnderlyingMarket())
	reply.CollateralMarkets = marketList(s.registry.AllowedCollateralMarkets())
	reply.DebtMarkets = marketList(s.registry.AllowedDebtMarkets())
	return nil
}

func marketList(markets set.Set[types.MarketID]) []uint64 {
	out := make([]uint64, 0, markets.Len())
	for market := range markets {
		out = append(out, uint64(market))
	}
	slices.Sort(out)
	return out
}
