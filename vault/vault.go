// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vault implements the per-user isolation vault: the public operation
// surface over the action validator, the state guard, and the zap composer.
// Every mutating entry point acquires the reentrancy lock, runs the gate
// checks, and settles against the external margin ledger atomically — any
// failure reverts the whole call.
package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/vault/events"
	"github.com/luxfi/vault/guard"
	"github.com/luxfi/vault/ledger"
	"github.com/luxfi/vault/metrics"
	"github.com/luxfi/vault/types"
	"github.com/luxfi/vault/validator"
	"github.com/luxfi/vault/zap"
)

var ErrCannotLeverUpWhenPaused = errors.New("cannot lever up when paused")

// Operation names used for metrics labels.
const (
	opDeposit                = "deposit_into_vault"
	opWithdraw               = "withdraw_from_vault"
	opOpenBorrowPosition     = "open_borrow_position"
	opOpenMarginPosition     = "open_margin_position"
	opCloseWithUnderlying    = "close_borrow_position_with_underlying_token"
	opCloseWithOtherTokens   = "close_borrow_position_with_other_tokens"
	opTransferIntoUnderlying = "transfer_into_position_with_underlying_token"
	opTransferIntoOther      = "transfer_into_position_with_other_token"
	opTransferFromUnderlying = "transfer_from_position_with_underlying_token"
	opTransferFromOther      = "transfer_from_position_with_other_token"
	opRepayAll               = "repay_all_for_borrow_position"
	opSwap                   = "swap_exact_input_for_output"
	opAddCollateralAndSwap   = "add_collateral_and_swap_exact_input_for_output"
	opSwapAndRemoveCollateral = "swap_exact_input_for_output_and_remove_collateral"
	opMulticall              = "multicall"
	opSetPaused              = "set_is_external_redemption_paused"
	opSetPendingAmount       = "set_vault_account_pending_amount"
)

// Registry is the factory-level surface a vault consumes: capability
// identities and market allow-lists for its underlying asset.
type Registry interface {
	Router() ids.ShortID
	IsTokenConverter(id ids.ShortID) bool
	IsGlobalOperator(id ids.ShortID) bool
	UnderlyingMarket() types.MarketID
	AllowedCollateralMarkets() set.Set[types.MarketID]
	AllowedDebtMarkets() set.Set[types.MarketID]
}

// Vault is one user's isolation vault. It owns its sub-accounts' lifecycle
// and holds its positions under its own ledger identity, segregated from the
// owner's wallet-level accounts.
type Vault struct {
	id    ids.ShortID
	owner ids.ShortID

	registry Registry
	guard    *guard.Guard
	ledger   ledger.Ledger
	composer *zap.Composer
	recorder events.Recorder
	metrics  metrics.Metrics
	log      log.Logger
}

// Params collects the collaborators a vault is built from.
type Params struct {
	ID       ids.ShortID
	Owner    ids.ShortID
	Registry Registry
	Guard    *guard.Guard
	Ledger   ledger.Ledger
	Recorder events.Recorder
	Metrics  metrics.Metrics
	Log      log.Logger
}

// New creates a vault. All collaborators are required except Recorder,
// Metrics, and Log, which default to no-ops.
func New(params Params) *Vault {
	if params.Recorder == nil {
		params.Recorder = events.NoOpRecorder{}
	}
	if params.Metrics == nil {
		params.Metrics = metrics.NewNoOp()
	}
	if params.Log == nil {
		params.Log = log.NewNoOpLogger()
	}
	v := &Vault{
		id:       params.ID,
		owner:    params.Owner,
		registry: params.Registry,
		guard:    params.Guard,
		ledger:   params.Ledger,
		recorder: params.Recorder,
		metrics:  params.Metrics,
		log:      params.Log,
	}
	v.composer = zap.NewComposer(params.Ledger, params.Guard, params.Registry, params.Log)
	return v
}

// ID returns the vault's ledger identity.
func (v *Vault) ID() ids.ShortID { return v.id }

// Owner returns the vault owner.
func (v *Vault) Owner() ids.ShortID { return v.owner }

// UnderlyingMarket returns the isolation asset's market.
func (v *Vault) UnderlyingMarket() types.MarketID { return v.registry.UnderlyingMarket() }

// IsPaused reports the external-redemption pause flag.
func (v *Vault) IsPaused() bool { return v.guard.IsPaused() }

// IsFrozen reports whether any sub-account is frozen.
func (v *Vault) IsFrozen() bool { return v.guard.IsFrozen() }

// IsAccountFrozen reports whether one sub-account is frozen.
func (v *Vault) IsAccountFrozen(acct types.AccountNumber) bool {
	return v.guard.IsAccountFrozen(acct)
}

// PendingAmount returns the pending conversion amount for a sub-account.
func (v *Vault) PendingAmount(acct types.AccountNumber, ft types.FreezeType) *big.Int {
	return v.guard.PendingAmount(acct, ft)
}

// Balance returns the vault's signed ledger balance for one sub-account and
// market.
func (v *Vault) Balance(acct types.AccountNumber, market types.MarketID) *big.Int {
	return v.ledger.GetBalance(v.id, acct, market)
}

// runAtomic acquires the reentrancy lock, snapshots the ledger when it
// supports journaling, runs fn, and reverts every ledger change on failure.
func (v *Vault) runAtomic(op string, fn func() error) error {
	release, err := v.guard.Enter()
	if err != nil {
		v.metrics.MarkFailed(op)
		return err
	}
	defer release()

	var snapshot int
	snapshotter, canRevert := v.ledger.(ledger.Snapshotter)
	if canRevert {
		snapshot = snapshotter.Snapshot()
	}
	if err := fn(); err != nil {
		if canRevert {
			snapshotter.RevertTo(snapshot)
		}
		v.metrics.MarkFailed(op)
		return err
	}
	v.metrics.MarkExecuted(op)
	return nil
}

func (v *Vault) record(ev events.Event) {
	if err := v.recorder.Record(v.id, v.id, ev); err != nil {
		v.log.Warn("failed to record vault event", "event", ev.Name(), "error", err)
	}
}

// DepositIntoVault moves underlying collateral from the owner's wallet-level
// account into the vault's default account. Blocked while paused, because
// deposited collateral could not be redeemed again.
func (v *Vault) DepositIntoVault(
	caller ids.ShortID,
	toAcct types.AccountNumber,
	amount types.Amount,
) error {
	return v.runAtomic(opDeposit, func() error {
		return v.depositIntoVault(caller, toAcct, amount)
	})
}

func (v *Vault) depositIntoVault(
	caller ids.ShortID,
	toAcct types.AccountNumber,
	amount types.Amount,
) error {
	if err := validator.CheckDefaultAccount(toAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrRouter(caller, v.owner, v.registry.Router()); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(toAcct); err != nil {
		return err
	}
	if err := v.guard.CheckNotPaused(); err != nil {
		return err
	}

	underlying := v.registry.UnderlyingMarket()
	wallet := v.ledger.GetBalance(v.owner, types.DefaultAccount, underlying)
	resolved, err := validator.ResolveTransferAmount(amount, wallet)
	if err != nil {
		return err
	}
	// Wallet accounts never borrow; an underfunded deposit fails here the
	// way a token transfer would.
	if wallet.Cmp(resolved) < 0 {
		return fmt.Errorf("%w: owner %s has %s, needs %s",
			ledger.ErrInsufficientBalance, v.owner, wallet, resolved)
	}
	return v.ledger.Transfer(
		v.owner, types.DefaultAccount,
		v.id, toAcct,
		underlying, resolved,
	)
}

// WithdrawFromVault moves underlying collateral from the vault's default
// account back to the owner's wallet-level account. Allowed while paused.
func (v *Vault) WithdrawFromVault(
	caller ids.ShortID,
	fromAcct types.AccountNumber,
	amount types.Amount,
) error {
	return v.runAtomic(opWithdraw, func() error {
		return v.withdrawFromVault(caller, fromAcct, amount)
	})
}

func (v *Vault) withdrawFromVault(
	caller ids.ShortID,
	fromAcct types.AccountNumber,
	amount types.Amount,
) error {
	if err := validator.CheckDefaultAccount(fromAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrRouter(caller, v.owner, v.registry.Router()); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(fromAcct); err != nil {
		return err
	}

	underlying := v.registry.UnderlyingMarket()
	resolved, err := validator.ResolveTransferAmount(
		amount,
		v.ledger.GetBalance(v.id, fromAcct, underlying),
	)
	if err != nil {
		return err
	}
	return v.ledger.Transfer(
		v.id, fromAcct,
		v.owner, types.DefaultAccount,
		underlying, resolved,
	)
}

// OpenBorrowPosition moves underlying collateral from the default account
// into a borrow account, opening the position.
func (v *Vault) OpenBorrowPosition(
	caller ids.ShortID,
	fromAcct, toAcct types.AccountNumber,
	amount types.Amount,
) error {
	return v.runAtomic(opOpenBorrowPosition, func() error {
		return v.openBorrowPosition(caller, fromAcct, toAcct, amount)
	})
}

func (v *Vault) openBorrowPosition(
	caller ids.ShortID,
	fromAcct, toAcct types.AccountNumber,
	amount types.Amount,
) error {
	if err := validator.CheckDefaultAccount(fromAcct); err != nil {
		return err
	}
	if err := validator.CheckBorrowAccount(toAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(fromAcct); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(toAcct); err != nil {
		return err
	}
	if err := v.guard.CheckNotPaused(); err != nil {
		return err
	}

	underlying := v.registry.UnderlyingMarket()
	resolved, err := validator.ResolveTransferAmount(
		amount,
		v.ledger.GetBalance(v.id, fromAcct, underlying),
	)
	if err != nil {
		return err
	}
	if err := v.ledger.Transfer(v.id, fromAcct, v.id, toAcct, underlying, resolved); err != nil {
		return err
	}
	v.record(events.PositionOpened{Vault: v.id, FromAccount: fromAcct, ToAccount: toAcct})
	return nil
}

// OpenMarginPosition opens a borrow position and validates the debt market
// the caller intends to borrow against it.
func (v *Vault) OpenMarginPosition(
	caller ids.ShortID,
	fromAcct, toAcct types.AccountNumber,
	debtMarket types.MarketID,
	amount types.Amount,
) error {
	return v.runAtomic(opOpenMarginPosition, func() error {
		return v.openMarginPosition(caller, fromAcct, toAcct, debtMarket, amount)
	})
}

func (v *Vault) openMarginPosition(
	caller ids.ShortID,
	fromAcct, toAcct types.AccountNumber,
	debtMarket types.MarketID,
	amount types.Amount,
) error {
	if err := validator.CheckMarketAllowed(
		debtMarket,
		v.registry.UnderlyingMarket(),
		v.registry.AllowedDebtMarkets(),
		validator.RoleDebt,
	); err != nil {
		return err
	}
	return v.openBorrowPosition(caller, fromAcct, toAcct, amount)
}

// CloseBorrowPositionWithUnderlyingToken returns a position's underlying
// collateral to the default account. A position holding nothing closes as a
// no-op; risk only decreases, so this is allowed while paused.
func (v *Vault) CloseBorrowPositionWithUnderlyingToken(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
) error {
	return v.runAtomic(opCloseWithUnderlying, func() error {
		return v.closeBorrowPositionWithUnderlyingToken(caller, borrowAcct, toAcct)
	})
}

func (v *Vault) closeBorrowPositionWithUnderlyingToken(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
) error {
	if err := validator.CheckBorrowAccount(borrowAcct); err != nil {
		return err
	}
	if err := validator.CheckDefaultAccount(toAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(borrowAcct); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(toAcct); err != nil {
		return err
	}

	underlying := v.registry.UnderlyingMarket()
	balance := v.ledger.GetBalance(v.id, borrowAcct, underlying)
	if balance.Sign() > 0 {
		if err := v.ledger.Transfer(v.id, borrowAcct, v.id, toAcct, underlying, balance); err != nil {
			return err
		}
	}
	v.record(events.PositionClosed{Vault: v.id, BorrowAccount: borrowAcct, ToAccount: toAcct})
	return nil
}

// CloseBorrowPositionWithOtherTokens sends every listed non-underlying
// balance of a position to the owner's wallet-level account. The underlying
// itself can never leave the vault this way.
func (v *Vault) CloseBorrowPositionWithOtherTokens(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
	markets []types.MarketID,
) error {
	return v.runAtomic(opCloseWithOtherTokens, func() error {
		return v.closeBorrowPositionWithOtherTokens(caller, borrowAcct, toAcct, markets)
	})
}

func (v *Vault) closeBorrowPositionWithOtherTokens(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
	markets []types.MarketID,
) error {
	if err := validator.CheckBorrowAccount(borrowAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if err := validator.CheckMarketsExcludeUnderlying(markets, v.registry.UnderlyingMarket()); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(borrowAcct); err != nil {
		return err
	}

	for _, market := range markets {
		balance := v.ledger.GetBalance(v.id, borrowAcct, market)
		switch {
		case balance.Sign() > 0:
			if err := v.ledger.Transfer(v.id, borrowAcct, v.owner, toAcct, market, balance); err != nil {
				return err
			}
		case balance.Sign() < 0:
			return fmt.Errorf("%w: vault %s account %d market %s",
				zap.ErrAccountBalanceNegative, v.id, borrowAcct, market)
		}
	}
	v.record(events.PositionClosed{Vault: v.id, BorrowAccount: borrowAcct, ToAccount: toAcct})
	return nil
}

// TransferIntoPositionWithUnderlyingToken moves underlying collateral from
// the default account into a borrow account. Blocked while paused, like
// deposits.
func (v *Vault) TransferIntoPositionWithUnderlyingToken(
	caller ids.ShortID,
	fromAcct, borrowAcct types.AccountNumber,
	amount types.Amount,
) error {
	return v.runAtomic(opTransferIntoUnderlying, func() error {
		return v.transferIntoPositionWithUnderlyingToken(caller, fromAcct, borrowAcct, amount)
	})
}

func (v *Vault) transferIntoPositionWithUnderlyingToken(
	caller ids.ShortID,
	fromAcct, borrowAcct types.AccountNumber,
	amount types.Amount,
) error {
	if err := validator.CheckDefaultAccount(fromAcct); err != nil {
		return err
	}
	if err := validator.CheckBorrowAccount(borrowAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(fromAcct); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(borrowAcct); err != nil {
		return err
	}
	if err := v.guard.CheckNotPaused(); err != nil {
		return err
	}

	underlying := v.registry.UnderlyingMarket()
	resolved, err := validator.ResolveTransferAmount(
		amount,
		v.ledger.GetBalance(v.id, fromAcct, underlying),
	)
	if err != nil {
		return err
	}
	return v.ledger.Transfer(v.id, fromAcct, v.id, borrowAcct, underlying, resolved)
}

// TransferIntoPositionWithOtherToken moves a non-underlying market from the
// owner's wallet-level account into a borrow account as collateral.
func (v *Vault) TransferIntoPositionWithOtherToken(
	caller ids.ShortID,
	fromAcct, borrowAcct types.AccountNumber,
	market types.MarketID,
	amount types.Amount,
) error {
	return v.runAtomic(opTransferIntoOther, func() error {
		return v.transferIntoPositionWithOtherToken(caller, fromAcct, borrowAcct, market, amount)
	})
}

func (v *Vault) transferIntoPositionWithOtherToken(
	caller ids.ShortID,
	fromAcct, borrowAcct types.AccountNumber,
	market types.MarketID,
	amount types.Amount,
) error {
	if err := validator.CheckBorrowAccount(borrowAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if err := validator.CheckMarketAllowed(
		market,
		v.registry.UnderlyingMarket(),
		v.registry.AllowedCollateralMarkets(),
		validator.RoleCollateral,
	); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(borrowAcct); err != nil {
		return err
	}

	resolved, err := validator.ResolveTransferAmount(
		amount,
		v.ledger.GetBalance(v.owner, fromAcct, market),
	)
	if err != nil {
		return err
	}
	return v.ledger.Transfer(v.owner, fromAcct, v.id, borrowAcct, market, resolved)
}

// TransferFromPositionWithUnderlyingToken moves underlying collateral from a
// borrow account back to the default account. Allowed while paused.
func (v *Vault) TransferFromPositionWithUnderlyingToken(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
	amount types.Amount,
) error {
	return v.runAtomic(opTransferFromUnderlying, func() error {
		return v.transferFromPositionWithUnderlyingToken(caller, borrowAcct, toAcct, amount)
	})
}

func (v *Vault) transferFromPositionWithUnderlyingToken(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
	amount types.Amount,
) error {
	if err := validator.CheckBorrowAccount(borrowAcct); err != nil {
		return err
	}
	if err := validator.CheckDefaultAccount(toAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(borrowAcct); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(toAcct); err != nil {
		return err
	}

	underlying := v.registry.UnderlyingMarket()
	resolved, err := validator.ResolveTransferAmount(
		amount,
		v.ledger.GetBalance(v.id, borrowAcct, underlying),
	)
	if err != nil {
		return err
	}
	return v.ledger.Transfer(v.id, borrowAcct, v.id, toAcct, underlying, resolved)
}

// TransferFromPositionWithOtherToken moves a non-underlying market from a
// borrow account to the owner's wallet-level account, opening debt if the
// position's balance crosses zero. While paused the balance may not end
// negative.
func (v *Vault) TransferFromPositionWithOtherToken(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
	market types.MarketID,
	amount types.Amount,
	flag types.BalanceCheckFlag,
) error {
	return v.runAtomic(opTransferFromOther, func() error {
		return v.transferFromPositionWithOtherToken(caller, borrowAcct, toAcct, market, amount, flag)
	})
}

func (v *Vault) transferFromPositionWithOtherToken(
	caller ids.ShortID,
	borrowAcct, toAcct types.AccountNumber,
	market types.MarketID,
	amount types.Amount,
	flag types.BalanceCheckFlag,
) error {
	if err := validator.CheckBorrowAccount(borrowAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if err := validator.CheckMarketAllowed(
		market,
		v.registry.UnderlyingMarket(),
		v.registry.AllowedDebtMarkets(),
		validator.RoleDebt,
	); err != nil {
		return err
	}
	if err := v.guard.CheckNotFrozen(borrowAcct); err != nil {
		return err
	}

	before := v.ledger.GetBalance(v.id, borrowAcct, market)
	resolved, err := validator.ResolveTransferAmount(amount, before)
	if err != nil {
		return err
	}

	if v.guard.IsPaused() {
		after := new(big.Int).Sub(before, resolved)
		if after.Sign() < 0 {
			return fmt.Errorf("%w: %s", ErrCannotLeverUpWhenPaused, market)
		}
	}

	if err := v.ledger.Transfer(v.id, borrowAcct, v.owner, toAcct, market, resolved); err != nil {
		return err
	}

	if flag.CheckFrom() {
		if v.ledger.GetBalance(v.id, borrowAcct, market).Sign() < 0 {
			return fmt.Errorf("%w: vault %s account %d market %s",
				zap.ErrAccountBalanceNegative, v.id, borrowAcct, market)
		}
	}
	if flag.CheckTo() {
		if v.ledger.GetBalance(v.owner, toAcct, market).Sign() < 0 {
			return fmt.Errorf("%w: owner %s account %d market %s",
				zap.ErrAccountBalanceNegative, v.owner, toAcct, market)
		}
	}
	return nil
}

// RepayAllForBorrowPosition clears a position's entire debt in one market
// from the owner's wallet-level account. A debt-free market is a no-op.
func (v *Vault) RepayAllForBorrowPosition(
	caller ids.ShortID,
	fromAcct, borrowAcct types.AccountNumber,
	market types.MarketID,
	flag types.BalanceCheckFlag,
) error {
	return v.runAtomic(opRepayAll, func() error {
		return v.repayAllForBorrowPosition(caller, fromAcct, borrowAcct, market, flag)
	})
}

func (v *Vault) repayAllForBorrowPosition(
	caller ids.ShortID,
	fromAcct, borrowAcct types.AccountNumber,
	market types.MarketID,
	flag types.BalanceCheckFlag,
) error {
	if err := validator.CheckDefaultAccount(fromAcct); err != nil {
		return err
	}
	if err := validator.CheckBorrowAccount(borrowAcct); err != nil {
		return err
	}
	if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
		return err
	}
	if market == v.registry.UnderlyingMarket() {
		return fmt.Errorf("%w: %s collides with the underlying market",
			validator.ErrInvalidMarketID, market)
	}
	if err := v.guard.CheckNotFrozen(borrowAcct); err != nil {
		return err
	}

	debt := v.ledger.GetBalance(v.id, borrowAcct, market)
	if debt.Sign() >= 0 {
		return nil
	}
	repay := new(big.Int).Neg(debt)
	if err := v.ledger.Transfer(v.owner, fromAcct, v.id, borrowAcct, market, repay); err != nil {
		return err
	}

	if flag.CheckFrom() {
		if v.ledger.GetBalance(v.owner, fromAcct, market).Sign() < 0 {
			return fmt.Errorf("%w: owner %s account %d market %s",
				zap.ErrAccountBalanceNegative, v.owner, fromAcct, market)
		}
	}
	return nil
}

// SetIsExternalRedemptionPaused flips the pause flag. Owner only.
func (v *Vault) SetIsExternalRedemptionPaused(caller ids.ShortID, paused bool) error {
	return v.runAtomic(opSetPaused, func() error {
		if err := validator.CheckOwner(caller, v.owner); err != nil {
			return err
		}
		if err := v.guard.SetPaused(paused); err != nil {
			return err
		}
		v.metrics.SetPaused(paused)
		v.record(events.PauseToggled{Vault: v.id, Paused: paused})
		return nil
	})
}

// SetVaultAccountPendingAmountForFrozenStatus applies a signed delta to a
// sub-account's pending conversion amount. Only the registered token
// converter driving the async lifecycle may call it.
func (v *Vault) SetVaultAccountPendingAmountForFrozenStatus(
	caller ids.ShortID,
	acct types.AccountNumber,
	ft types.FreezeType,
	delta *big.Int,
) error {
	return v.runAtomic(opSetPendingAmount, func() error {
		if err := validator.CheckConverter(caller, v.registry.IsTokenConverter(caller)); err != nil {
			return err
		}
		if delta == nil || delta.Sign() == 0 {
			return nil
		}
		if err := v.guard.AddPendingAmount(acct, ft, delta); err != nil {
			return err
		}
		v.metrics.SetFrozenAccounts(v.guard.FrozenAccounts())

		pending := v.guard.PendingAmount(acct, ft)
		var kind events.AsyncKind
		switch {
		case delta.Sign() < 0 && pending.Sign() == 0:
			kind = events.AsyncExecuted
		case delta.Sign() < 0:
			kind = events.AsyncUpdated
		case pending.Cmp(delta) == 0:
			kind = events.AsyncCreated
		default:
			kind = events.AsyncUpdated
		}
		v.record(events.AsyncOperation{
			Vault:      v.id,
			Account:    acct,
			Kind:       kind,
			FreezeType: ft,
			Delta:      delta,
		})
		return nil
	})
}
