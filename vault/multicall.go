// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
	"github.com/luxfi/ids"

	"github.com/luxfi/vault/types"
	"github.com/luxfi/vault/validator"
)

var (
	ErrInvalidCalldataLength      = errors.New("invalid calldata length")
	ErrDisallowedMulticallFunction = errors.New("disallowed multicall function")
)

// Op identifies one vault operation in multicall calldata. The wire form is
// the op as 4 big-endian bytes followed by the codec-marshaled args.
type Op uint32

const (
	OpDepositIntoVault Op = iota + 1
	OpWithdrawFromVault
	OpOpenBorrowPosition
	OpOpenMarginPosition
	OpCloseBorrowPositionWithUnderlyingToken
	OpCloseBorrowPositionWithOtherTokens
	OpTransferIntoPositionWithUnderlyingToken
	OpTransferIntoPositionWithOtherToken
	OpTransferFromPositionWithUnderlyingToken
	OpTransferFromPositionWithOtherToken
	OpRepayAllForBorrowPosition
)

// multicallAllowed is the sorted allow-list of ops a multicall batch may
// contain. Everything on it is legal for the owner-or-converter caller class;
// the router-only, initiator-only, and owner-only operations are excluded so
// a batch cannot widen its caller's capabilities. Swaps are excluded because
// trader adapters are live references, not calldata.
var multicallAllowed = []Op{
	OpDepositIntoVault,
	OpWithdrawFromVault,
	OpOpenBorrowPosition,
	OpOpenMarginPosition,
	OpCloseBorrowPositionWithUnderlyingToken,
	OpCloseBorrowPositionWithOtherTokens,
	OpTransferIntoPositionWithUnderlyingToken,
	OpTransferIntoPositionWithOtherToken,
	OpTransferFromPositionWithUnderlyingToken,
	OpTransferFromPositionWithOtherToken,
	OpRepayAllForBorrowPosition,
}

func isMulticallAllowed(op Op) bool {
	i := sort.Search(len(multicallAllowed), func(i int) bool {
		return multicallAllowed[i] >= op
	})
	return i < len(multicallAllowed) && multicallAllowed[i] == op
}

const codecVersion = 0

var callCodec codec.Manager

func init() {
	callCodec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&DepositArgs{}),
		lc.RegisterType(&WithdrawArgs{}),
		lc.RegisterType(&OpenBorrowPositionArgs{}),
		lc.RegisterType(&OpenMarginPositionArgs{}),
		lc.RegisterType(&ClosePositionArgs{}),
		lc.RegisterType(&ClosePositionWithOtherTokensArgs{}),
		lc.RegisterType(&TransferWithUnderlyingArgs{}),
		lc.RegisterType(&TransferWithOtherTokenArgs{}),
		lc.RegisterType(&RepayAllArgs{}),
		callCodec.RegisterCodec(codecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

// AmountArg is the wire form of a transfer amount.
type AmountArg struct {
	All   bool   `serialize:"true"`
	Value []byte `serialize:"true"`
}

// NewAmountArg converts an Amount to its wire form.
func NewAmountArg(a types.Amount) AmountArg {
	if a.IsAll() {
		return AmountArg{All: true}
	}
	arg := AmountArg{}
	if v := a.Value(); v != nil {
		arg.Value = v.Bytes()
	}
	return arg
}

func (a AmountArg) amount() types.Amount {
	if a.All {
		return types.All()
	}
	return types.Exact(new(big.Int).SetBytes(a.Value))
}

type DepositArgs struct {
	ToAccount uint64    `serialize:"true"`
	Amount    AmountArg `serialize:"true"`
}

type WithdrawArgs struct {
	FromAccount uint64    `serialize:"true"`
	Amount      AmountArg `serialize:"true"`
}

type OpenBorrowPositionArgs struct {
	FromAccount uint64    `serialize:"true"`
	ToAccount   uint64    `serialize:"true"`
	Amount      AmountArg `serialize:"true"`
}

type OpenMarginPositionArgs struct {
	FromAccount uint64    `serialize:"true"`
	ToAccount   uint64    `serialize:"true"`
	DebtMarket  uint64    `serialize:"true"`
	Amount      AmountArg `serialize:"true"`
}

type ClosePositionArgs struct {
	BorrowAccount uint64 `serialize:"true"`
	ToAccount     uint64 `serialize:"true"`
}

type ClosePositionWithOtherTokensArgs struct {
	BorrowAccount uint64   `serialize:"true"`
	ToAccount     uint64   `serialize:"true"`
	Markets       []uint64 `serialize:"true"`
}

type TransferWithUnderlyingArgs struct {
	FromAccount uint64    `serialize:"true"`
	ToAccount   uint64    `serialize:"true"`
	Amount      AmountArg `serialize:"true"`
}

type TransferWithOtherTokenArgs struct {
	FromAccount uint64    `serialize:"true"`
	ToAccount   uint64    `serialize:"true"`
	Market      uint64    `serialize:"true"`
	Amount      AmountArg `serialize:"true"`
	Flag        uint8     `serialize:"true"`
}

type RepayAllArgs struct {
	FromAccount   uint64 `serialize:"true"`
	BorrowAccount uint64 `serialize:"true"`
	Market        uint64 `serialize:"true"`
	Flag          uint8  `serialize:"true"`
}

// EncodeCall builds multicall calldata for one operation.
func EncodeCall(op Op, args interface{}) ([]byte, error) {
	encoded, err := callCodec.Marshal(codecVersion, args)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 4, 4+len(encoded))
	binary.BigEndian.PutUint32(data, uint32(op))
	return append(data, encoded...), nil
}

// Multicall executes a batch of operations as one atomic unit. Every
// calldata is validated (length, selector allow-list, decodability) before
// any sub-call executes; any sub-call failure aborts the batch with that
// sub-call's own error.
func (v *Vault) Multicall(caller ids.ShortID, calldatas [][]byte) error {
	return v.runAtomic(opMulticall, func() error {
		if err := validator.CheckOwnerOrConverter(caller, v.owner, v.registry.IsTokenConverter(caller)); err != nil {
			return err
		}

		calls := make([]func() error, len(calldatas))
		for i, data := range calldatas {
			call, err := v.parseCall(caller, data)
			if err != nil {
				return err
			}
			calls[i] = call
		}
		for _, call := range calls {
			if err := call(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (v *Vault) parseCall(caller ids.ShortID, data []byte) (func() error, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCalldataLength, len(data))
	}
	op := Op(binary.BigEndian.Uint32(data))
	if !isMulticallAllowed(op) {
		return nil, fmt.Errorf("%w: op %d", ErrDisallowedMulticallFunction, op)
	}
	payload := data[4:]

	switch op {
	case OpDepositIntoVault:
		args := &DepositArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.depositIntoVault(caller, types.AccountNumber(args.ToAccount), args.Amount.amount())
		}, nil
	case OpWithdrawFromVault:
		args := &WithdrawArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.withdrawFromVault(caller, types.AccountNumber(args.FromAccount), args.Amount.amount())
		}, nil
	case OpOpenBorrowPosition:
		args := &OpenBorrowPositionArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.openBorrowPosition(
				caller,
				types.AccountNumber(args.FromAccount),
				types.AccountNumber(args.ToAccount),
				args.Amount.amount(),
			)
		}, nil
	case OpOpenMarginPosition:
		args := &OpenMarginPositionArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.openMarginPosition(
				caller,
				types.AccountNumber(args.FromAccount),
				types.AccountNumber(args.ToAccount),
				types.MarketID(args.DebtMarket),
				args.Amount.amount(),
			)
		}, nil
	case OpCloseBorrowPositionWithUnderlyingToken:
		args := &ClosePositionArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.closeBorrowPositionWithUnderlyingToken(
				caller,
				types.AccountNumber(args.BorrowAccount),
				types.AccountNumber(args.ToAccount),
			)
		}, nil
	case OpCloseBorrowPositionWithOtherTokens:
		args := &ClosePositionWithOtherTokensArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		markets := make([]types.MarketID, len(args.Markets))
		for i, m := range args.Markets {
			markets[i] = types.MarketID(m)
		}
		return func() error {
			return v.closeBorrowPositionWithOtherTokens(
				caller,
				types.AccountNumber(args.BorrowAccount),
				types.AccountNumber(args.ToAccount),
				markets,
			)
		}, nil
	case OpTransferIntoPositionWithUnderlyingToken:
		args := &TransferWithUnderlyingArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.transferIntoPositionWithUnderlyingToken(
				caller,
				types.AccountNumber(args.FromAccount),
				types.AccountNumber(args.ToAccount),
				args.Amount.amount(),
			)
		}, nil
	case OpTransferIntoPositionWithOtherToken:
		args := &TransferWithOtherTokenArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.transferIntoPositionWithOtherToken(
				caller,
				types.AccountNumber(args.FromAccount),
				types.AccountNumber(args.ToAccount),
				types.MarketID(args.Market),
				args.Amount.amount(),
			)
		}, nil
	case OpTransferFromPositionWithUnderlyingToken:
		args := &TransferWithUnderlyingArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.transferFromPositionWithUnderlyingToken(
				caller,
				types.AccountNumber(args.FromAccount),
				types.AccountNumber(args.ToAccount),
				args.Amount.amount(),
			)
		}, nil
	case OpTransferFromPositionWithOtherToken:
		args := &TransferWithOtherTokenArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.transferFromPositionWithOtherToken(
				caller,
				types.AccountNumber(args.FromAccount),
				types.AccountNumber(args.ToAccount),
				types.MarketID(args.Market),
				args.Amount.amount(),
				types.BalanceCheckFlag(args.Flag),
			)
		}, nil
	case OpRepayAllForBorrowPosition:
		args := &RepayAllArgs{}
		if err := v.unmarshalArgs(payload, args); err != nil {
			return nil, err
		}
		return func() error {
			return v.repayAllForBorrowPosition(
				caller,
				types.AccountNumber(args.FromAccount),
				types.AccountNumber(args.BorrowAccount),
				types.MarketID(args.Market),
				types.BalanceCheckFlag(args.Flag),
			)
		}, nil
	default:
		return nil, fmt.Errorf("%w: op %d", ErrDisallowedMulticallFunction, op)
	}
}

func (v *Vault) unmarshalArgs(payload []byte, args interface{}) error {
	if _, err := callCodec.Unmarshal(payload, args); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCalldataLength, err)
	}
	return nil
}
