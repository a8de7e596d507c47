// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the static configuration of one vault type: the
// underlying market and the capability identities and allow-lists shared by
// every vault holding that asset.
package config

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/vault/types"
)

// Config contains the factory-level configuration for one underlying asset.
type Config struct {
	// UnderlyingMarket is the isolation asset's market in the ledger.
	UnderlyingMarket types.MarketID `json:"underlyingMarket"`

	// AllowedCollateralMarkets may be used as collateral inside borrow
	// accounts. Empty means every market is allowed.
	AllowedCollateralMarkets []types.MarketID `json:"allowedCollateralMarkets"`
	// AllowedDebtMarkets may be borrowed against the collateral. Empty means
	// every market is allowed.
	AllowedDebtMarkets []types.MarketID `json:"allowedDebtMarkets"`

	// Router is the factory-side identity allowed to move funds on a user's
	// behalf during vault creation and routing.
	Router ids.ShortID `json:"router"`
	// TokenConverters are the adapters allowed to wrap/unwrap the underlying
	// and to drive the async freeze lifecycle.
	TokenConverters []ids.ShortID `json:"tokenConverters"`
	// GlobalOperators may emit events on a vault's behalf.
	GlobalOperators []ids.ShortID `json:"globalOperators"`
}

// DefaultConfig returns a configuration with open allow-lists and no
// privileged identities.
func DefaultConfig(underlying types.MarketID) Config {
	return Config{
		UnderlyingMarket: underlying,
	}
}
