// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validator holds the pure rule checks applied before every vault
// operation: account-number shape, market legality, allow-list membership,
// entire-balance resolution, and caller capability checks. Nothing here
// mutates state; every check either passes or returns a sentinel error
// wrapped with the offending value.
package validator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/vault/types"
)

var (
	ErrInvalidAccountNumber        = errors.New("invalid account number")
	ErrInvalidMarketID             = errors.New("invalid market id")
	ErrInvalidMarketPath           = errors.New("invalid market path")
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInvalidBalanceForTransferAll = errors.New("invalid balance for transfer all")
	ErrMarketNotAllowedAsCollateral = errors.New("market not allowed as collateral")
	ErrMarketNotAllowedAsDebt       = errors.New("market not allowed as debt")
	ErrCannotWithdrawMarketToWallet = errors.New("cannot withdraw market to wallet")
	ErrCallerNotOwner              = errors.New("caller is not the vault owner")
	ErrCallerNotAuthorized         = errors.New("caller is not authorized")
)

// MarketRole distinguishes how a market is being used in a check.
type MarketRole uint8

const (
	RoleCollateral MarketRole = iota
	RoleDebt
)

func (r MarketRole) String() string {
	if r == RoleCollateral {
		return "collateral"
	}
	return "debt"
}

// CheckDefaultAccount requires n to be the reserved default account.
func CheckDefaultAccount(n types.AccountNumber) error {
	if !n.IsDefault() {
		return fmt.Errorf("%w: %d must be the default account", ErrInvalidAccountNumber, n)
	}
	return nil
}

// CheckBorrowAccount requires n to be a borrow account (non-zero).
func CheckBorrowAccount(n types.AccountNumber) error {
	if n.IsDefault() {
		return fmt.Errorf("%w: %d must be a borrow account", ErrInvalidAccountNumber, n)
	}
	return nil
}

// CheckMarketAllowed requires market to differ from the vault's underlying
// market and to be a member of the allow-list for the given role. An empty
// allow-list permits every market.
func CheckMarketAllowed(
	market types.MarketID,
	underlying types.MarketID,
	allowed set.Set[types.MarketID],
	role MarketRole,
) error {
	if market == underlying {
		return fmt.Errorf("%w: %s collides with the underlying market", ErrInvalidMarketID, market)
	}
	if allowed.Len() == 0 || allowed.Contains(market) {
		return nil
	}
	if role == RoleCollateral {
		return fmt.Errorf("%w: %s", ErrMarketNotAllowedAsCollateral, market)
	}
	return fmt.Errorf("%w: %s", ErrMarketNotAllowedAsDebt, market)
}

// ResolveTransferAmount resolves an Amount against the actual ledger balance.
// The entire-balance request resolves to actual, which must then be strictly
// positive. An exact amount must be strictly positive on its own.
func ResolveTransferAmount(a types.Amount, actual *big.Int) (*big.Int, error) {
	if a.IsAll() {
		if actual == nil || actual.Sign() <= 0 {
			return nil, fmt.Errorf("%w: balance is %v", ErrInvalidBalanceForTransferAll, actual)
		}
		return new(big.Int).Set(actual), nil
	}
	v := a.Value()
	if v == nil || v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, v)
	}
	return new(big.Int).Set(v), nil
}

// CheckWithdrawTarget rejects withdrawing the vault's underlying asset to the
// owner's wallet through the close-with-other-tokens path.
func CheckWithdrawTarget(market, underlying types.MarketID) error {
	if market == underlying {
		return fmt.Errorf("%w: %s", ErrCannotWithdrawMarketToWallet, market)
	}
	return nil
}

// CheckMarketsExcludeUnderlying applies CheckWithdrawTarget to every market.
func CheckMarketsExcludeUnderlying(markets []types.MarketID, underlying types.MarketID) error {
	for _, m := range markets {
		if err := CheckWithdrawTarget(m, underlying); err != nil {
			return err
		}
	}
	return nil
}

// CheckMarketPath validates the shape of a trade path: at least two markets
// and no hop trading a market into itself.
func CheckMarketPath(path []types.MarketID) error {
	if len(path) < 2 {
		return fmt.Errorf("%w: need at least 2 markets, got %d", ErrInvalidMarketPath, len(path))
	}
	for i := 1; i < len(path); i++ {
		if path[i] == path[i-1] {
			return fmt.Errorf("%w: duplicate market %s at hop %d", ErrInvalidMarketPath, path[i], i)
		}
	}
	return nil
}

// CheckOwner requires caller to be owner.
func CheckOwner(caller, owner ids.ShortID) error {
	if caller != owner {
		return fmt.Errorf("%w: %s", ErrCallerNotOwner, caller)
	}
	return nil
}

// CheckOwnerOrRouter requires caller to be the owner or the factory router.
func CheckOwnerOrRouter(caller, owner, router ids.ShortID) error {
	if caller != owner && caller != router {
		return fmt.Errorf("%w: %s is neither owner nor router", ErrCallerNotAuthorized, caller)
	}
	return nil
}

// CheckOwnerOrConverter requires caller to be the owner or a token converter.
func CheckOwnerOrConverter(caller, owner ids.ShortID, isConverter bool) error {
	if caller != owner && !isConverter {
		return fmt.Errorf("%w: %s is neither owner nor converter", ErrCallerNotAuthorized, caller)
	}
	return nil
}

// CheckConverter requires caller to be a token converter.
func CheckConverter(caller ids.ShortID, isConverter bool) error {
	if !isConverter {
		return fmt.Errorf("%w: %s is not a converter", ErrCallerNotAuthorized, caller)
	}
	return nil
}

// CheckRouter requires caller to be the factory router.
func CheckRouter(caller, router ids.ShortID) error {
	if caller != router {
		return fmt.Errorf("%w: %s is not the router", ErrCallerNotAuthorized, caller)
	}
	return nil
}
