// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/vault/guard"
	"github.com/luxfi/vault/ledger"
	"github.com/luxfi/vault/types"
	"github.com/luxfi/vault/validator"
	"github.com/luxfi/vault/zap"
)

const (
	underlyingMarket types.MarketID = 0
	marketA          types.MarketID = 1
	marketB          types.MarketID = 2
	marketC          types.MarketID = 3
)

var (
	vaultID   = ids.ShortID{0xF0}
	owner     = ids.ShortID{0x01}
	router    = ids.ShortID{0x02}
	converter = ids.ShortID{0x03}
	stranger  = ids.ShortID{0x04}

	scale18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type testRegistry struct {
	router     ids.ShortID
	converters set.Set[ids.ShortID]
	underlying types.MarketID
	collateral set.Set[types.MarketID]
	debt       set.Set[types.MarketID]
}

func (r *testRegistry) Router() ids.ShortID                  { return r.router }
func (r *testRegistry) IsTokenConverter(id ids.ShortID) bool { return r.converters.Contains(id) }
func (r *testRegistry) IsGlobalOperator(ids.ShortID) bool    { return false }
func (r *testRegistry) UnderlyingMarket() types.MarketID     { return r.underlying }

func (r *testRegistry) AllowedCollateralMarkets() set.Set[types.MarketID] { return r.collateral }
func (r *testRegistry) AllowedDebtMarkets() set.Set[types.MarketID]       { return r.debt }

type testEnv struct {
	vault  *Vault
	ledger *ledger.SimpleLedger
	guard  *guard.Guard
	trader *ledger.RateTrader
}

// newTestEnv builds a vault over a fresh ledger with markets A, B, C allowed
// as collateral and B, C as debt.
func newTestEnv() *testEnv {
	l := ledger.NewSimpleLedger(nil)
	g := guard.New(nil)
	v := New(Params{
		ID:    vaultID,
		Owner: owner,
		Registry: &testRegistry{
			router:     router,
			converters: set.Of(converter),
			underlying: underlyingMarket,
			collateral: set.Of(marketA, marketB, marketC),
			debt:       set.Of(marketB, marketC),
		},
		Guard:  g,
		Ledger: l,
	})
	return &testEnv{
		vault:  v,
		ledger: l,
		guard:  g,
		trader: ledger.NewRateTrader(l, scale18),
	}
}

// fundWallet credits the owner's wallet-level account.
func (e *testEnv) fundWallet(market types.MarketID, amount int64) {
	if err := e.ledger.Deposit(owner, types.DefaultAccount, market, big.NewInt(amount)); err != nil {
		panic(err)
	}
}

func (e *testEnv) walletBalance(market types.MarketID) int64 {
	return e.ledger.GetBalance(owner, types.DefaultAccount, market).Int64()
}

func (e *testEnv) vaultBalance(acct types.AccountNumber, market types.MarketID) int64 {
	return e.ledger.GetBalance(vaultID, acct, market).Int64()
}

func (e *testEnv) hop(kind types.TraderKind) zap.TraderParam {
	return zap.TraderParam{Trader: e.trader, Kind: kind}
}

func TestDepositOpenCloseWithdrawRoundTrip(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(underlyingMarket, 200)

	require.NoError(e.vault.DepositIntoVault(owner, 0, types.ExactUint64(200)))
	require.Equal(int64(0), e.walletBalance(underlyingMarket))
	require.Equal(int64(200), e.vaultBalance(0, underlyingMarket))

	require.NoError(e.vault.OpenBorrowPosition(owner, 0, 123, types.ExactUint64(200)))
	require.Equal(int64(0), e.vaultBalance(0, underlyingMarket))
	require.Equal(int64(200), e.vaultBalance(123, underlyingMarket))

	require.NoError(e.vault.CloseBorrowPositionWithUnderlyingToken(owner, 123, 0))
	require.Equal(int64(200), e.vaultBalance(0, underlyingMarket))
	require.Equal(int64(0), e.vaultBalance(123, underlyingMarket))

	require.NoError(e.vault.WithdrawFromVault(owner, 0, types.All()))
	require.Equal(int64(200), e.walletBalance(underlyingMarket))
	require.Equal(int64(0), e.vaultBalance(0, underlyingMarket))
}

func TestDepositAuthorization(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(underlyingMarket, 300)

	err := e.vault.DepositIntoVault(stranger, 0, types.ExactUint64(100))
	require.ErrorIs(err, validator.ErrCallerNotAuthorized)

	// The factory router deposits on the owner's behalf.
	require.NoError(e.vault.DepositIntoVault(router, 0, types.ExactUint64(100)))
	require.Equal(int64(100), e.vaultBalance(0, underlyingMarket))

	// Deposits target the default account only.
	err = e.vault.DepositIntoVault(owner, 5, types.ExactUint64(100))
	require.ErrorIs(err, validator.ErrInvalidAccountNumber)
}

func TestDepositInsufficientWallet(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(underlyingMarket, 50)

	err := e.vault.DepositIntoVault(owner, 0, types.ExactUint64(100))
	require.ErrorIs(err, ledger.ErrInsufficientBalance)
	require.Equal(int64(50), e.walletBalance(underlyingMarket))
	require.Equal(int64(0), e.vaultBalance(0, underlyingMarket))
}

func TestPauseGatesRiskIncreasingOps(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(underlyingMarket, 500)
	require.NoError(e.vault.DepositIntoVault(owner, 0, types.ExactUint64(400)))
	require.NoError(e.vault.OpenBorrowPosition(owner, 0, 7, types.ExactUint64(100)))

	require.NoError(e.vault.SetIsExternalRedemptionPaused(owner, true))
	require.True(e.vault.IsPaused())

	// Risk-increasing operations are blocked.
	err := e.vault.DepositIntoVault(owner, 0, types.ExactUint64(100))
	require.ErrorIs(err, guard.ErrCannotExecuteWhenPaused)
	err = e.vault.OpenBorrowPosition(owner, 0, 8, types.ExactUint64(100))
	require.ErrorIs(err, guard.ErrCannotExecuteWhenPaused)
	err = e.vault.TransferIntoPositionWithUnderlyingToken(owner, 0, 7, types.ExactUint64(100))
	require.ErrorIs(err, guard.ErrCannotExecuteWhenPaused)

	// Risk-reducing operations still run, including closing a debt-free
	// position's non-underlying holdings.
	require.NoError(e.vault.CloseBorrowPositionWithOtherTokens(owner, 7, 0, []types.MarketID{marketA}))
	require.NoError(e.vault.TransferFromPositionWithUnderlyingToken(owner, 7, 0, types.All()))
	require.NoError(e.vault.CloseBorrowPositionWithUnderlyingToken(owner, 7, 0))
	require.NoError(e.vault.WithdrawFromVault(owner, 0, types.All()))
	require.Equal(int64(500), e.walletBalance(underlyingMarket))

	require.NoError(e.vault.SetIsExternalRedemptionPaused(owner, false))
	require.NoError(e.vault.DepositIntoVault(owner, 0, types.ExactUint64(100)))
}

func TestSetPausedOwnerOnly(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()

	require.ErrorIs(e.vault.SetIsExternalRedemptionPaused(router, true), validator.ErrCallerNotOwner)
	require.ErrorIs(e.vault.SetIsExternalRedemptionPaused(converter, true), validator.ErrCallerNotOwner)
	require.False(e.vault.IsPaused())
}

func TestOpenBorrowPositionValidation(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(underlyingMarket, 100)
	require.NoError(e.vault.DepositIntoVault(owner, 0, types.All()))

	// Source must be the default account, target a borrow account.
	err := e.vault.OpenBorrowPosition(owner, 1, 2, types.ExactUint64(50))
	require.ErrorIs(err, validator.ErrInvalidAccountNumber)
	err = e.vault.OpenBorrowPosition(owner, 0, 0, types.ExactUint64(50))
	require.ErrorIs(err, validator.ErrInvalidAccountNumber)

	err = e.vault.OpenBorrowPosition(stranger, 0, 1, types.ExactUint64(50))
	require.ErrorIs(err, validator.ErrCallerNotAuthorized)

	// The converter may open positions.
	require.NoError(e.vault.OpenBorrowPosition(converter, 0, 1, types.ExactUint64(50)))
	require.Equal(int64(50), e.vaultBalance(1, underlyingMarket))
}

func TestOpenMarginPosition(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(underlyingMarket, 100)
	require.NoError(e.vault.DepositIntoVault(owner, 0, types.All()))

	err := e.vault.OpenMarginPosition(owner, 0, 1, 99, types.ExactUint64(50))
	require.ErrorIs(err, validator.ErrMarketNotAllowedAsDebt)

	err = e.vault.OpenMarginPosition(owner, 0, 1, underlyingMarket, types.ExactUint64(50))
	require.ErrorIs(err, validator.ErrInvalidMarketID)

	require.NoError(e.vault.OpenMarginPosition(owner, 0, 1, marketB, types.ExactUint64(50)))
	require.Equal(int64(50), e.vaultBalance(1, underlyingMarket))
}

func TestCloseEmptyPositionIsNoOp(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()

	require.NoError(e.vault.CloseBorrowPositionWithUnderlyingToken(owner, 9, 0))
	require.Equal(int64(0), e.vaultBalance(0, underlyingMarket))
}

func TestCloseWithOtherTokens(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()

	// Position 1 holds A and B.
	e.fundWallet(marketA, 30)
	e.fundWallet(marketB, 40)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketA, types.All()))
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketB, types.All()))

	// Listing the underlying is illegal.
	err := e.vault.CloseBorrowPositionWithOtherTokens(owner, 1, 0, []types.MarketID{underlyingMarket})
	require.ErrorIs(err, validator.ErrCannotWithdrawMarketToWallet)

	require.NoError(e.vault.CloseBorrowPositionWithOtherTokens(owner, 1, 0, []types.MarketID{marketA, marketB}))
	require.Equal(int64(30), e.walletBalance(marketA))
	require.Equal(int64(40), e.walletBalance(marketB))
	require.Equal(int64(0), e.vaultBalance(1, marketA))
}

func TestCloseWithOtherTokensRejectsDebt(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()

	// Position 1 holds A but owes B.
	e.fundWallet(marketA, 30)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketA, types.All()))
	require.NoError(e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(10), types.BalanceCheckNone,
	))
	require.Equal(int64(-10), e.vaultBalance(1, marketB))

	err := e.vault.CloseBorrowPositionWithOtherTokens(owner, 1, 0, []types.MarketID{marketA, marketB})
	require.ErrorIs(err, zap.ErrAccountBalanceNegative)

	// The whole close rolled back, including the A leg that preceded the
	// failing B leg.
	require.Equal(int64(30), e.vaultBalance(1, marketA))
	require.Equal(int64(0), e.walletBalance(marketA))
}

func TestTransferIntoPositionWithOtherToken(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketA, 100)

	err := e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, 99, types.ExactUint64(10))
	require.ErrorIs(err, validator.ErrMarketNotAllowedAsCollateral)

	err = e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, underlyingMarket, types.ExactUint64(10))
	require.ErrorIs(err, validator.ErrInvalidMarketID)

	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketA, types.ExactUint64(60)))
	require.Equal(int64(40), e.walletBalance(marketA))
	require.Equal(int64(60), e.vaultBalance(1, marketA))
}

func TestTransferFromPositionLeverUp(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketB, 20)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketB, types.All()))

	// Taking more than the position holds opens debt.
	require.NoError(e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(50), types.BalanceCheckTo,
	))
	require.Equal(int64(-30), e.vaultBalance(1, marketB))
	require.Equal(int64(50), e.walletBalance(marketB))
}

func TestTransferFromPositionFlagFrom(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketB, 20)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketB, types.All()))

	err := e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(50), types.BalanceCheckFrom,
	)
	require.ErrorIs(err, zap.ErrAccountBalanceNegative)

	// The failed transfer rolled back.
	require.Equal(int64(20), e.vaultBalance(1, marketB))
	require.Equal(int64(0), e.walletBalance(marketB))
}

func TestTransferFromPositionPausedCannotLeverUp(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketB, 20)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketB, types.All()))
	require.NoError(e.vault.SetIsExternalRedemptionPaused(owner, true))

	err := e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(50), types.BalanceCheckNone,
	)
	require.ErrorIs(err, ErrCannotLeverUpWhenPaused)

	// Taking no more than the balance is still a risk reduction.
	require.NoError(e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(20), types.BalanceCheckNone,
	))
	require.Equal(int64(0), e.vaultBalance(1, marketB))
}

func TestRepayAllForBorrowPosition(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketB, 100)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketB, types.ExactUint64(10)))
	require.NoError(e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(40), types.BalanceCheckNone,
	))
	require.Equal(int64(-30), e.vaultBalance(1, marketB))
	require.Equal(int64(130), e.walletBalance(marketB))

	err := e.vault.RepayAllForBorrowPosition(owner, 0, 1, underlyingMarket, types.BalanceCheckFrom)
	require.ErrorIs(err, validator.ErrInvalidMarketID)

	require.NoError(e.vault.RepayAllForBorrowPosition(owner, 0, 1, marketB, types.BalanceCheckFrom))
	require.Equal(int64(0), e.vaultBalance(1, marketB))
	require.Equal(int64(100), e.walletBalance(marketB))

	// Repaying a debt-free market is a no-op.
	require.NoError(e.vault.RepayAllForBorrowPosition(owner, 0, 1, marketB, types.BalanceCheckFrom))
	require.Equal(int64(100), e.walletBalance(marketB))
}

func TestRepayAllRequiresDefaultSourceAccount(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketB, 100)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketB, types.ExactUint64(10)))
	require.NoError(e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(40), types.BalanceCheckNone,
	))
	require.Equal(int64(-30), e.vaultBalance(1, marketB))

	err := e.vault.RepayAllForBorrowPosition(owner, 7, 1, marketB, types.BalanceCheckNone)
	require.ErrorIs(err, validator.ErrInvalidAccountNumber)
	require.Equal(int64(-30), e.vaultBalance(1, marketB))
	require.Equal(int64(0), e.ledger.GetBalance(owner, 7, marketB).Int64())
}

func TestRepayAllOverdrawsWallet(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketB, 10)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketB, types.ExactUint64(10)))
	require.NoError(e.vault.TransferFromPositionWithOtherToken(
		owner, 1, 0, marketB, types.ExactUint64(40), types.BalanceCheckNone,
	))

	// Spend the wallet's B elsewhere so the repay would overdraw it.
	require.NoError(e.ledger.Withdraw(owner, types.DefaultAccount, marketB, big.NewInt(35)))

	err := e.vault.RepayAllForBorrowPosition(owner, 0, 1, marketB, types.BalanceCheckFrom)
	require.ErrorIs(err, zap.ErrAccountBalanceNegative)
	require.Equal(int64(-30), e.vaultBalance(1, marketB))
}

func TestFreezeBlocksOperations(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(underlyingMarket, 200)
	require.NoError(e.vault.DepositIntoVault(owner, 0, types.ExactUint64(100)))
	require.NoError(e.vault.OpenBorrowPosition(owner, 0, 1, types.ExactUint64(100)))

	require.NoError(e.vault.SetVaultAccountPendingAmountForFrozenStatus(
		converter, 1, types.FreezeWithdrawal, big.NewInt(100),
	))
	require.True(e.vault.IsAccountFrozen(1))
	require.True(e.vault.IsFrozen())
	require.Equal(int64(100), e.vault.PendingAmount(1, types.FreezeWithdrawal).Int64())

	// Every operation touching the frozen account fails.
	err := e.vault.CloseBorrowPositionWithUnderlyingToken(owner, 1, 0)
	require.ErrorIs(err, guard.ErrVaultAccountFrozen)
	err = e.vault.TransferIntoPositionWithUnderlyingToken(owner, 0, 1, types.ExactUint64(50))
	require.ErrorIs(err, guard.ErrVaultAccountFrozen)
	err = e.vault.TransferFromPositionWithUnderlyingToken(owner, 1, 0, types.All())
	require.ErrorIs(err, guard.ErrVaultAccountFrozen)

	// Other accounts are unaffected.
	require.NoError(e.vault.OpenBorrowPosition(owner, 0, 2, types.ExactUint64(50)))

	// Draining the pending amount unfreezes the account.
	require.NoError(e.vault.SetVaultAccountPendingAmountForFrozenStatus(
		converter, 1, types.FreezeWithdrawal, big.NewInt(-100),
	))
	require.False(e.vault.IsAccountFrozen(1))
	require.NoError(e.vault.CloseBorrowPositionWithUnderlyingToken(owner, 1, 0))
}

func TestSetPendingAmountConverterOnly(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()

	err := e.vault.SetVaultAccountPendingAmountForFrozenStatus(
		owner, 1, types.FreezeDeposit, big.NewInt(10),
	)
	require.ErrorIs(err, validator.ErrCallerNotAuthorized)

	err = e.vault.SetVaultAccountPendingAmountForFrozenStatus(
		converter, 1, types.FreezeDeposit, big.NewInt(-10),
	)
	require.ErrorIs(err, guard.ErrNegativePendingAmount)

	// Zero and nil deltas are accepted and do nothing.
	require.NoError(e.vault.SetVaultAccountPendingAmountForFrozenStatus(
		converter, 1, types.FreezeDeposit, big.NewInt(0),
	))
	require.NoError(e.vault.SetVaultAccountPendingAmountForFrozenStatus(
		converter, 1, types.FreezeDeposit, nil,
	))
	require.False(e.vault.IsFrozen())
}

func TestSwapExactInputForOutput(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketA, 100)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketA, types.All()))

	out, err := e.vault.SwapExactInputForOutput(owner, &SwapRequest{
		TradeAccount: 1,
		Path: zap.Path{
			Markets: []types.MarketID{marketA, marketB},
			Traders: []zap.TraderParam{e.hop(types.TraderExternal)},
		},
		Input:     types.All(),
		MinOutput: big.NewInt(100),
	})
	require.NoError(err)
	require.Equal(int64(100), out.Int64())
	require.Equal(int64(0), e.vaultBalance(1, marketA))
	require.Equal(int64(100), e.vaultBalance(1, marketB))
}

func TestSwapAuthorization(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()

	_, err := e.vault.SwapExactInputForOutput(stranger, &SwapRequest{
		TradeAccount: 1,
		Path: zap.Path{
			Markets: []types.MarketID{marketA, marketB},
			Traders: []zap.TraderParam{e.hop(types.TraderExternal)},
		},
		Input: types.All(),
	})
	require.ErrorIs(err, validator.ErrCallerNotAuthorized)
}

func TestAddCollateralAndSwap(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketA, 80)

	out, err := e.vault.AddCollateralAndSwapExactInputForOutput(owner, 0, &SwapRequest{
		TradeAccount: 1,
		Path: zap.Path{
			Markets: []types.MarketID{marketA, marketB},
			Traders: []zap.TraderParam{e.hop(types.TraderExternal)},
		},
		Input: types.ExactUint64(80),
	})
	require.NoError(err)
	require.Equal(int64(80), out.Int64())
	require.Equal(int64(0), e.walletBalance(marketA))
	require.Equal(int64(0), e.vaultBalance(1, marketA))
	require.Equal(int64(80), e.vaultBalance(1, marketB))
}

func TestSwapAndRemoveCollateral(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketA, 50)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketA, types.All()))

	out, err := e.vault.SwapExactInputForOutputAndRemoveCollateral(owner, 0, &SwapRequest{
		TradeAccount: 1,
		Path: zap.Path{
			Markets: []types.MarketID{marketA, marketB},
			Traders: []zap.TraderParam{e.hop(types.TraderExternal)},
		},
		Input: types.All(),
	})
	require.NoError(err)
	require.Equal(int64(50), out.Int64())
	require.Equal(int64(50), e.walletBalance(marketB))
	require.Equal(int64(0), e.vaultBalance(1, marketB))
}

func TestSwapAndRemoveCollateralRejectsUnderlying(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketA, 50)
	require.NoError(e.vault.TransferIntoPositionWithOtherToken(owner, 0, 1, marketA, types.All()))

	// The underlying may only leave through WithdrawFromVault.
	_, err := e.vault.SwapExactInputForOutputAndRemoveCollateral(owner, 0, &SwapRequest{
		TradeAccount: 1,
		Path: zap.Path{
			Markets: []types.MarketID{marketA, underlyingMarket},
			Traders: []zap.TraderParam{e.hop(types.TraderWrapper)},
		},
		Input: types.All(),
	})
	require.ErrorIs(err, validator.ErrCannotWithdrawMarketToWallet)
	require.Equal(int64(50), e.vaultBalance(1, marketA))
}

func TestAddCollateralAndSwapRollsBackOnFailure(t *testing.T) {
	require := require.New(t)

	e := newTestEnv()
	e.fundWallet(marketA, 80)

	// An unattainable minimum fails the swap after the collateral transfer;
	// the transfer must roll back with it.
	_, err := e.vault.AddCollateralAndSwapExactInputForOutput(owner, 0, &SwapRequest{
		TradeAccount: 1,
		Path: zap.Path{
			Markets: []types.MarketID{marketA, marketB},
			Traders: []zap.TraderParam{e.hop(types.TraderExternal)},
		},
		Input:     types.ExactUint64(80),
		MinOutput: big.NewInt(81),
	})
	require.ErrorIs(err, zap.ErrMinOutputAmountTooLarge)
	require.Equal(int64(80), e.walletBalance(marketA))
	require.Equal(int64(0), e.vaultBalance(1, marketA))
}
