// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"math/big"

	"github.com/luxfi/ids"

	"github.com/luxfi/vault/events"
	"github.com/luxfi/vault/types"
	"github.com/luxfi/vault/validator"
	"github.com/luxfi/vault/zap"
)

// SwapRequest is the caller's swap intent at the vault surface.
type SwapRequest struct {
	TradeAccount      types.AccountNumber
	Path              zap.Path
	Input             types.Amount
	MinOutput         *big.Int
	Flag              types.BalanceCheckFlag
	CheckLiquidatable bool
}

func (v *Vault) composerRequest(caller ids.ShortID, req *SwapRequest) *zap.Request {
	return &zap.Request{
		TradeAccount:      req.TradeAccount,
		Path:              req.Path,
		Input:             req.Input,
		MinOutput:         req.MinOutput,
		Flag:              req.Flag,
		CheckLiquidatable: req.CheckLiquidatable,
		CallerIsConverter: v.registry.IsTokenConverter(caller),
	}
}

// SwapExactInputForOutput executes a chained conversion on a trade account.
func (v *Vault) SwapExactInputForOutput(caller ids.ShortID, req *SwapRequest) (*big.Int, error) {
	var output *big.Int
	err := v.runAtomic(opSwap, func() error {
		if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
			return err
		}
		out, err := v.composer.Execute(v.id, v.composerRequest(caller, req))
		if err != nil {
			return err
		}
		output = out
		v.record(events.ZapExecuted{
			Vault:   v.id,
			Account: req.TradeAccount,
			Markets: req.Path.Markets,
			Output:  out,
		})
		return nil
	})
	return output, err
}

// AddCollateralAndSwapExactInputForOutput first moves the swap input from the
// owner's wallet-level account into the trade account, then runs the swap.
func (v *Vault) AddCollateralAndSwapExactInputForOutput(
	caller ids.ShortID,
	fromAcct types.AccountNumber,
	req *SwapRequest,
) (*big.Int, error) {
	var output *big.Int
	err := v.runAtomic(opAddCollateralAndSwap, func() error {
		if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
			return err
		}
		if err := validator.CheckMarketPath(req.Path.Markets); err != nil {
			return err
		}

		inputMarket := req.Path.Markets[0]
		resolved, err := validator.ResolveTransferAmount(
			req.Input,
			v.ledger.GetBalance(v.owner, fromAcct, inputMarket),
		)
		if err != nil {
			return err
		}
		if err := v.guard.CheckNotFrozen(req.TradeAccount); err != nil {
			return err
		}
		if err := v.ledger.Transfer(
			v.owner, fromAcct,
			v.id, req.TradeAccount,
			inputMarket, resolved,
		); err != nil {
			return err
		}

		inner := *req
		inner.Input = types.Exact(resolved)
		out, err := v.composer.Execute(v.id, v.composerRequest(caller, &inner))
		if err != nil {
			return err
		}
		output = out
		v.record(events.ZapExecuted{
			Vault:   v.id,
			Account: req.TradeAccount,
			Markets: req.Path.Markets,
			Output:  out,
		})
		return nil
	})
	return output, err
}

// SwapExactInputForOutputAndRemoveCollateral runs the swap, then moves the
// realized output from the trade account to the owner's wallet-level account.
func (v *Vault) SwapExactInputForOutputAndRemoveCollateral(
	caller ids.ShortID,
	toAcct types.AccountNumber,
	req *SwapRequest,
) (*big.Int, error) {
	var output *big.Int
	err := v.runAtomic(opSwapAndRemoveCollateral, func() error {
		if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
			return err
		}
		if err := validator.CheckMarketPath(req.Path.Markets); err != nil {
			return err
		}
		outputMarket := req.Path.Markets[len(req.Path.Markets)-1]
		// The realized output leaves the vault; the underlying never may.
		if err := validator.CheckWithdrawTarget(outputMarket, v.registry.UnderlyingMarket()); err != nil {
			return err
		}

		out, err := v.composer.Execute(v.id, v.composerRequest(caller, req))
		if err != nil {
			return err
		}
		if err := v.ledger.Transfer(
			v.id, req.TradeAccount,
			v.owner, toAcct,
			outputMarket, out,
		); err != nil {
			return err
		}
		output = out
		v.record(events.ZapExecuted{
			Vault:   v.id,
			Account: req.TradeAccount,
			Markets: req.Path.Markets,
			Output:  out,
		})
		return nil
	})
	return output, err
}
