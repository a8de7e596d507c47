// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger defines the surface the vault consumes from the global
// margin ledger, plus an in-memory implementation used for local composition
// and tests. The ledger stores signed per-market balances per (owner,
// sub-account) pair; a negative balance is debt. Solvency is enforced by the
// vault through balance-check flags and the liquidatable predicate, not by
// individual transfers.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/ids"

	"github.com/luxfi/vault/types"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrZeroPrice           = errors.New("market price is zero")

	scale18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Ledger is the external margin ledger consumed by the vault.
type Ledger interface {
	// GetBalance returns the signed balance of (owner, acct, market).
	GetBalance(owner ids.ShortID, acct types.AccountNumber, market types.MarketID) *big.Int
	// GetDebtMarkets returns every market on which (owner, acct) owes debt.
	GetDebtMarkets(owner ids.ShortID, acct types.AccountNumber) []types.MarketID
	// Transfer moves a positive amount of one market between two accounts.
	// The source balance may go negative; that is how debt is opened.
	Transfer(
		fromOwner ids.ShortID, fromAcct types.AccountNumber,
		toOwner ids.ShortID, toAcct types.AccountNumber,
		market types.MarketID, amount *big.Int,
	) error
	// Deposit credits tokens entering the ledger from outside.
	Deposit(owner ids.ShortID, acct types.AccountNumber, market types.MarketID, amount *big.Int) error
	// Withdraw debits tokens leaving the ledger.
	Withdraw(owner ids.ShortID, acct types.AccountNumber, market types.MarketID, amount *big.Int) error
	// IsLiquidatable reports whether the account's debt exceeds what its
	// collateral supports.
	IsLiquidatable(owner ids.ShortID, acct types.AccountNumber) (bool, error)
}

// Trader converts one market into another for an account. Quote must return
// the same output Exchange would realize, without mutating anything.
type Trader interface {
	Quote(in, out types.MarketID, amountIn *big.Int) (*big.Int, error)
	Exchange(
		owner ids.ShortID, acct types.AccountNumber,
		in, out types.MarketID, amountIn *big.Int,
	) (*big.Int, error)
}

// Snapshotter is implemented by ledgers that support journaled rollback.
// Callers composing multi-step operations take a snapshot at entry and revert
// it on failure so no partial step is retained.
type Snapshotter interface {
	Snapshot() int
	RevertTo(id int)
}

// PriceOracle provides market prices scaled by 1e18.
type PriceOracle interface {
	GetPrice(market types.MarketID) (*big.Int, error)
}

// SimplePriceOracle is an in-memory price oracle.
type SimplePriceOracle struct {
	mu     sync.RWMutex
	prices map[types.MarketID]*big.Int
}

// NewSimplePriceOracle creates an empty oracle.
func NewSimplePriceOracle() *SimplePriceOracle {
	return &SimplePriceOracle{prices: make(map[types.MarketID]*big.Int)}
}

// SetPrice sets the price for a market.
func (o *SimplePriceOracle) SetPrice(market types.MarketID, price *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[market] = new(big.Int).Set(price)
}

// GetPrice returns the price for a market.
func (o *SimplePriceOracle) GetPrice(market types.MarketID) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[market]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrZeroPrice, market)
	}
	return new(big.Int).Set(price), nil
}

type balanceKey struct {
	owner  ids.ShortID
	acct   types.AccountNumber
	market types.MarketID
}

type journalEntry struct {
	key  balanceKey
	prev *big.Int // nil means the key was absent
}

// SimpleLedger is a map-backed signed-balance ledger with journaled rollback.
type SimpleLedger struct {
	mu       sync.RWMutex
	balances map[balanceKey]*big.Int
	journal  []journalEntry

	oracle PriceOracle
	// marginRatio is the collateralization requirement scaled by 1e18;
	// an account is liquidatable when collateral < debt * marginRatio.
	marginRatio *big.Int
}

// DefaultMarginRatio requires 115% collateralization.
var DefaultMarginRatio = big.NewInt(1.15e18)

// NewSimpleLedger creates an empty ledger. oracle may be nil, in which case
// accounts are never liquidatable.
func NewSimpleLedger(oracle PriceOracle) *SimpleLedger {
	return &SimpleLedger{
		balances:    make(map[balanceKey]*big.Int),
		oracle:      oracle,
		marginRatio: new(big.Int).Set(DefaultMarginRatio),
	}
}

// SetMarginRatio overrides the collateralization requirement.
func (l *SimpleLedger) SetMarginRatio(ratio *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marginRatio = new(big.Int).Set(ratio)
}

// add applies a signed delta to one balance, recording the previous value in
// the journal. Callers must hold the write lock.
func (l *SimpleLedger) add(key balanceKey, delta *big.Int) {
	prev, ok := l.balances[key]
	entry := journalEntry{key: key}
	if ok {
		entry.prev = new(big.Int).Set(prev)
	}
	l.journal = append(l.journal, entry)

	next := new(big.Int)
	if ok {
		next.Set(prev)
	}
	next.Add(next, delta)
	if next.Sign() == 0 {
		delete(l.balances, key)
	} else {
		l.balances[key] = next
	}
}

// Snapshot returns a journal position that RevertTo can restore.
func (l *SimpleLedger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.journal)
}

// RevertTo undoes every balance change made after the snapshot was taken.
func (l *SimpleLedger) RevertTo(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.journal) - 1; i >= id && i >= 0; i-- {
		entry := l.journal[i]
		if entry.prev == nil {
			delete(l.balances, entry.key)
		} else {
			l.balances[entry.key] = entry.prev
		}
	}
	if id < len(l.journal) {
		l.journal = l.journal[:id]
	}
}

// GetBalance returns the signed balance, zero if the account never traded the
// market.
func (l *SimpleLedger) GetBalance(
	owner ids.ShortID,
	acct types.AccountNumber,
	market types.MarketID,
) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.balances[balanceKey{owner, acct, market}]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// GetDebtMarkets returns every market with a negative balance, in market-id
// order so results are deterministic.
func (l *SimpleLedger) GetDebtMarkets(owner ids.ShortID, acct types.AccountNumber) []types.MarketID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var markets []types.MarketID
	for key, v := range l.balances {
		if key.owner == owner && key.acct == acct && v.Sign() < 0 {
			markets = append(markets, key.market)
		}
	}
	for i := 1; i < len(markets); i++ {
		for j := i; j > 0 && markets[j] < markets[j-1]; j-- {
			markets[j], markets[j-1] = markets[j-1], markets[j]
		}
	}
	return markets
}

// Transfer moves amount of market from one account to the other. The source
// may go negative.
func (l *SimpleLedger) Transfer(
	fromOwner ids.ShortID, fromAcct types.AccountNumber,
	toOwner ids.ShortID, toAcct types.AccountNumber,
	market types.MarketID, amount *big.Int,
) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add(balanceKey{fromOwner, fromAcct, market}, new(big.Int).Neg(amount))
	l.add(balanceKey{toOwner, toAcct, market}, amount)
	return nil
}

// Deposit credits tokens entering the ledger.
func (l *SimpleLedger) Deposit(
	owner ids.ShortID,
	acct types.AccountNumber,
	market types.MarketID,
	amount *big.Int,
) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add(balanceKey{owner, acct, market}, amount)
	return nil
}

// Withdraw debits tokens leaving the ledger.
func (l *SimpleLedger) Withdraw(
	owner ids.ShortID,
	acct types.AccountNumber,
	market types.MarketID,
	amount *big.Int,
) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add(balanceKey{owner, acct, market}, new(big.Int).Neg(amount))
	return nil
}

// IsLiquidatable reports whether debt value, scaled by the margin ratio,
// exceeds collateral value.
func (l *SimpleLedger) IsLiquidatable(owner ids.ShortID, acct types.AccountNumber) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.oracle == nil {
		return false, nil
	}

	collateral := big.NewInt(0)
	debt := big.NewInt(0)
	for key, v := range l.balances {
		if key.owner != owner || key.acct != acct || v.Sign() == 0 {
			continue
		}
		price, err := l.oracle.GetPrice(key.market)
		if err != nil {
			return false, err
		}
		value := new(big.Int).Mul(new(big.Int).Abs(v), price)
		value.Div(value, scale18)
		if v.Sign() > 0 {
			collateral.Add(collateral, value)
		} else {
			debt.Add(debt, value)
		}
	}
	if debt.Sign() == 0 {
		return false, nil
	}

	required := new(big.Int).Mul(debt, l.marginRatio)
	required.Div(required, scale18)
	return collateral.Cmp(required) < 0, nil
}

// RateTrader converts markets at a fixed rate (output = input * rate / 1e18),
// settling against a SimpleLedger.
type RateTrader struct {
	ledger *SimpleLedger
	rate   *big.Int
}

// NewRateTrader creates a trader with the given settlement ledger and rate.
func NewRateTrader(l *SimpleLedger, rate *big.Int) *RateTrader {
	return &RateTrader{ledger: l, rate: new(big.Int).Set(rate)}
}

// Quote returns the output for a hypothetical exchange.
func (t *RateTrader) Quote(_, _ types.MarketID, amountIn *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amountIn)
	}
	out := new(big.Int).Mul(amountIn, t.rate)
	out.Div(out, scale18)
	return out, nil
}

// Exchange debits the input market and credits the output market at the
// trader's rate.
func (t *RateTrader) Exchange(
	owner ids.ShortID,
	acct types.AccountNumber,
	in, out types.MarketID,
	amountIn *big.Int,
) (*big.Int, error) {
	amountOut, err := t.Quote(in, out, amountIn)
	if err != nil {
		return nil, err
	}
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	t.ledger.add(balanceKey{owner, acct, in}, new(big.Int).Neg(amountIn))
	t.ledger.add(balanceKey{owner, acct, out}, amountOut)
	return amountOut, nil
}
