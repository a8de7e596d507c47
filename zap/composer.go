// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package zap orchestrates chained market-to-market conversions ("zaps") for
// one vault. A zap is an ordered path of markets with a trader per hop; the
// composer validates every hop against the action rules and the vault's
// safety state, executes the hops through the external traders, and enforces
// the end-to-end minimum-output and solvency invariants. Any failure aborts
// the whole chain.
package zap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/vault/guard"
	"github.com/luxfi/vault/ledger"
	"github.com/luxfi/vault/types"
	"github.com/luxfi/vault/validator"
)

var (
	ErrInvalidTraderParams        = errors.New("invalid trader params")
	ErrInvalidTraderKind          = errors.New("invalid trader kind for hop")
	ErrInvalidTradeAccountNumber  = errors.New("invalid trade account number")
	ErrInvalidMarketIDForSwap     = errors.New("invalid market id for swap")
	ErrMinOutputAmountTooLarge    = errors.New("min output amount too large")
	ErrUnacceptableTradeWhenPaused = errors.New("unacceptable trade when paused")
	ErrCannotZapToMarketWhenPaused = errors.New("cannot zap to market when paused")
	ErrAccountBalanceNegative     = errors.New("account balance is negative")
	ErrAccountLiquidatable        = errors.New("account is liquidatable")
)

// TraderParam binds one hop of a path to the adapter executing it.
type TraderParam struct {
	Trader ledger.Trader
	Kind   types.TraderKind
}

// Path is an ordered chain of markets and the traders between them. It is an
// input only; paths are never persisted.
type Path struct {
	Markets []types.MarketID
	Traders []TraderParam
}

// Hops returns the number of conversions in the path.
func (p Path) Hops() int {
	return len(p.Traders)
}

// MarketView is the read-only registry surface the composer needs.
type MarketView interface {
	UnderlyingMarket() types.MarketID
	AllowedCollateralMarkets() set.Set[types.MarketID]
}

// Composer validates and executes zaps for one vault.
type Composer struct {
	ledger ledger.Ledger
	guard  *guard.Guard
	view   MarketView
	log    log.Logger
}

// NewComposer creates a composer bound to one vault's guard and market view.
func NewComposer(l ledger.Ledger, g *guard.Guard, view MarketView, logger log.Logger) *Composer {
	return &Composer{
		ledger: l,
		guard:  g,
		view:   view,
		log:    logger,
	}
}

// Request carries the caller's full swap intent.
type Request struct {
	// TradeAccount executes the hops. Must be a borrow account unless the
	// path wraps into or unwraps out of the underlying at an edge.
	TradeAccount types.AccountNumber
	Path         Path
	Input        types.Amount
	// MinOutput is the caller's minimum acceptable realized output.
	MinOutput *big.Int
	Flag      types.BalanceCheckFlag
	// CheckLiquidatable runs the post-trade risk check on the account.
	CheckLiquidatable bool
	// CallerIsConverter marks requests from the designated token converter,
	// which alone may convert while the account is frozen.
	CallerIsConverter bool
}

// Execute runs the full pipeline and returns the realized output.
func (c *Composer) Execute(vaultID ids.ShortID, req *Request) (*big.Int, error) {
	if err := c.validateShape(req); err != nil {
		return nil, err
	}
	if err := c.validateFreeze(req); err != nil {
		return nil, err
	}

	inputAmount, err := validator.ResolveTransferAmount(
		req.Input,
		c.ledger.GetBalance(vaultID, req.TradeAccount, req.Path.Markets[0]),
	)
	if err != nil {
		return nil, err
	}

	// Pre-flight quote so an unattainable minimum fails before any ledger
	// mutation.
	if err := c.quote(req, inputAmount); err != nil {
		return nil, err
	}

	var snapshot int
	snapshotter, canRevert := c.ledger.(ledger.Snapshotter)
	if canRevert {
		snapshot = snapshotter.Snapshot()
	}

	output, err := c.run(vaultID, req, inputAmount)
	if err != nil && canRevert {
		snapshotter.RevertTo(snapshot)
	}
	if err != nil {
		return nil, err
	}

	c.log.Debug("zap executed",
		"vault", vaultID,
		"account", uint64(req.TradeAccount),
		"hops", req.Path.Hops(),
		"input", inputAmount,
		"output", output,
	)
	return output, nil
}

// validateShape checks the structural legality of the request: path shape,
// trader list, trader kinds, market ids, and the trade account number.
func (c *Composer) validateShape(req *Request) error {
	markets := req.Path.Markets
	if err := validator.CheckMarketPath(markets); err != nil {
		return err
	}
	if len(req.Path.Traders) != len(markets)-1 {
		return fmt.Errorf("%w: %d traders for %d hops",
			ErrInvalidTraderParams, len(req.Path.Traders), len(markets)-1)
	}

	underlying := c.view.UnderlyingMarket()
	last := len(markets) - 1
	for i, trader := range req.Path.Traders {
		if trader.Trader == nil {
			return fmt.Errorf("%w: nil trader at hop %d", ErrInvalidTraderParams, i)
		}
		in, out := markets[i], markets[i+1]
		switch {
		case out == underlying:
			// Wrapping into the vault's own asset is only legal as the
			// final hop, through a wrapper.
			if trader.Kind != types.TraderWrapper || i+1 != last {
				return fmt.Errorf("%w: %s at hop %d", ErrInvalidMarketIDForSwap, out, i)
			}
		case in == underlying:
			// Unwrapping out of the vault's own asset is only legal as the
			// first hop, through an unwrapper.
			if trader.Kind != types.TraderUnwrapper || i != 0 {
				return fmt.Errorf("%w: %s at hop %d", ErrInvalidMarketIDForSwap, in, i)
			}
		default:
			if trader.Kind.IsConversion() {
				return fmt.Errorf("%w: %s trader on hop %d trading %s into %s",
					ErrInvalidTraderKind, trader.Kind, i, in, out)
			}
		}
	}

	// The final market becomes vault holdings; it must be allowed as
	// collateral unless it is the underlying itself.
	if out := markets[last]; out != underlying {
		if err := validator.CheckMarketAllowed(
			out, underlying, c.view.AllowedCollateralMarkets(), validator.RoleCollateral,
		); err != nil {
			return err
		}
	}

	// The default account may only trade when wrapping into or unwrapping
	// out of the underlying.
	touchesUnderlying := markets[0] == underlying || markets[last] == underlying
	if req.TradeAccount.IsDefault() && !touchesUnderlying {
		return fmt.Errorf("%w: %d", ErrInvalidTradeAccountNumber, req.TradeAccount)
	}
	return nil
}

// validateFreeze rejects trades on frozen accounts, except conversions issued
// by the designated converter.
func (c *Composer) validateFreeze(req *Request) error {
	if !c.guard.IsAccountFrozen(req.TradeAccount) {
		return nil
	}
	if req.CallerIsConverter {
		for _, trader := range req.Path.Traders {
			if !trader.Kind.IsConversion() {
				return fmt.Errorf("%w: account %d", guard.ErrVaultAccountFrozen, req.TradeAccount)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: account %d", guard.ErrVaultAccountFrozen, req.TradeAccount)
}

// quote simulates the path and fails if the caller's minimum is unattainable.
func (c *Composer) quote(req *Request, inputAmount *big.Int) error {
	amount := new(big.Int).Set(inputAmount)
	for i, trader := range req.Path.Traders {
		out, err := trader.Trader.Quote(req.Path.Markets[i], req.Path.Markets[i+1], amount)
		if err != nil {
			return err
		}
		amount = out
	}
	if req.MinOutput != nil && amount.Cmp(req.MinOutput) < 0 {
		return fmt.Errorf("%w: quoted %s < min %s", ErrMinOutputAmountTooLarge, amount, req.MinOutput)
	}
	return nil
}

// run executes the hops in order, applying the pause rules per hop against
// ledger state as of that hop, then the balance-check flag and the optional
// liquidation check.
func (c *Composer) run(vaultID ids.ShortID, req *Request, inputAmount *big.Int) (*big.Int, error) {
	markets := req.Path.Markets
	underlying := c.view.UnderlyingMarket()
	paused := c.guard.IsPaused()

	amount := new(big.Int).Set(inputAmount)
	for i, trader := range req.Path.Traders {
		in, out := markets[i], markets[i+1]

		if paused {
			if out == underlying {
				return nil, fmt.Errorf("%w: %s", ErrCannotZapToMarketWhenPaused, out)
			}
			// While paused a hop may only repay: its output must already be
			// a debt market of the trade account, and its input may not be
			// pushed negative.
			if !c.owesDebt(vaultID, req.TradeAccount, out) {
				return nil, fmt.Errorf("%w: %s is not a debt market of account %d",
					ErrUnacceptableTradeWhenPaused, out, req.TradeAccount)
			}
			balance := c.ledger.GetBalance(vaultID, req.TradeAccount, in)
			if balance.Cmp(amount) < 0 {
				return nil, fmt.Errorf("%w: %s balance of account %d would go negative",
					ErrUnacceptableTradeWhenPaused, in, req.TradeAccount)
			}
		}

		realized, err := trader.Trader.Exchange(vaultID, req.TradeAccount, in, out, amount)
		if err != nil {
			return nil, err
		}
		amount = realized
	}

	if req.MinOutput != nil && amount.Cmp(req.MinOutput) < 0 {
		return nil, fmt.Errorf("%w: realized %s < min %s", ErrMinOutputAmountTooLarge, amount, req.MinOutput)
	}

	if req.Flag.CheckFrom() {
		if err := c.checkNonNegative(vaultID, req.TradeAccount, markets[0]); err != nil {
			return nil, err
		}
	}
	if req.Flag.CheckTo() {
		if err := c.checkNonNegative(vaultID, req.TradeAccount, markets[len(markets)-1]); err != nil {
			return nil, err
		}
	}

	if req.CheckLiquidatable {
		liquidatable, err := c.ledger.IsLiquidatable(vaultID, req.TradeAccount)
		if err != nil {
			return nil, err
		}
		if liquidatable {
			return nil, fmt.Errorf("%w: vault %s account %d",
				ErrAccountLiquidatable, vaultID, req.TradeAccount)
		}
	}
	return amount, nil
}

func (c *Composer) owesDebt(vaultID ids.ShortID, acct types.AccountNumber, market types.MarketID) bool {
	return c.ledger.GetBalance(vaultID, acct, market).Sign() < 0
}

func (c *Composer) checkNonNegative(
	vaultID ids.ShortID,
	acct types.AccountNumber,
	market types.MarketID,
) error {
	if c.ledger.GetBalance(vaultID, acct, market).Sign() < 0 {
		return fmt.Errorf("%w: vault %s account %d market %s",
			ErrAccountBalanceNegative, vaultID, acct, market)
	}
	return nil
}
