// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types defines the shared domain types of the isolation vault:
// market identifiers, sub-account numbers, transfer amounts, and the
// descriptors used to compose chained conversions.
package types

import (
	"fmt"
	"math/big"
)

// MarketID identifies a market in the external margin ledger.
type MarketID uint64

func (m MarketID) String() string {
	return fmt.Sprintf("market-%d", uint64(m))
}

// AccountNumber indexes a sub-account within one vault. Account 0 is the
// reserved default account; every other number is a borrow account.
type AccountNumber uint64

// DefaultAccount is the reserved non-borrowing sub-account.
const DefaultAccount AccountNumber = 0

// IsDefault reports whether n is the reserved default account.
func (n AccountNumber) IsDefault() bool {
	return n == DefaultAccount
}

// Amount is a transfer amount. It is either an exact non-negative value or
// the "entire balance" request, which is resolved against the ledger once at
// the start of an operation.
type Amount struct {
	all   bool
	value *big.Int
}

// All returns the amount meaning "transfer the entire balance".
func All() Amount {
	return Amount{all: true}
}

// Exact returns an amount of exactly v. The value is copied.
func Exact(v *big.Int) Amount {
	if v == nil {
		return Amount{value: nil}
	}
	return Amount{value: new(big.Int).Set(v)}
}

// ExactUint64 returns an amount of exactly v.
func ExactUint64(v uint64) Amount {
	return Amount{value: new(big.Int).SetUint64(v)}
}

// IsAll reports whether the amount is the entire-balance request.
func (a Amount) IsAll() bool {
	return a.all
}

// Value returns the exact value, or nil for the entire-balance request.
func (a Amount) Value() *big.Int {
	return a.value
}

func (a Amount) String() string {
	if a.all {
		return "all"
	}
	if a.value == nil {
		return "<nil>"
	}
	return a.value.String()
}

// BalanceCheckFlag selects which endpoint(s) of a transfer must not end with
// a negative balance in the traded market.
type BalanceCheckFlag uint8

const (
	BalanceCheckBoth BalanceCheckFlag = iota
	BalanceCheckFrom
	BalanceCheckTo
	BalanceCheckNone
)

func (f BalanceCheckFlag) String() string {
	switch f {
	case BalanceCheckBoth:
		return "both"
	case BalanceCheckFrom:
		return "from"
	case BalanceCheckTo:
		return "to"
	case BalanceCheckNone:
		return "none"
	default:
		return "unknown"
	}
}

// CheckFrom reports whether the source balance must be checked.
func (f BalanceCheckFlag) CheckFrom() bool {
	return f == BalanceCheckBoth || f == BalanceCheckFrom
}

// CheckTo reports whether the destination balance must be checked.
func (f BalanceCheckFlag) CheckTo() bool {
	return f == BalanceCheckBoth || f == BalanceCheckTo
}

// FreezeType distinguishes the two kinds of pending asynchronous conversion
// that freeze a sub-account.
type FreezeType uint8

const (
	FreezeDeposit FreezeType = iota
	FreezeWithdrawal
)

func (t FreezeType) String() string {
	switch t {
	case FreezeDeposit:
		return "deposit"
	case FreezeWithdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// TraderKind classifies the adapter executing one hop of a trade path.
type TraderKind uint8

const (
	// TraderExternal routes the hop through external liquidity.
	TraderExternal TraderKind = iota
	// TraderInternal routes the hop through ledger-internal liquidity.
	TraderInternal
	// TraderWrapper converts another asset into the vault's underlying.
	TraderWrapper
	// TraderUnwrapper converts the vault's underlying into another asset.
	TraderUnwrapper
)

func (k TraderKind) String() string {
	switch k {
	case TraderExternal:
		return "external"
	case TraderInternal:
		return "internal"
	case TraderWrapper:
		return "wrapper"
	case TraderUnwrapper:
		return "unwrapper"
	default:
		return "unknown"
	}
}

// IsConversion reports whether the kind wraps or unwraps the underlying.
func (k TraderKind) IsConversion() bool {
	return k == TraderWrapper || k == TraderUnwrapper
}
