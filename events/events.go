// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events defines the observability events the vault produces and the
// recorder that consumes them. Emission is gated: only the vault itself or an
// authorized global operator may record events for a vault.
package events

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/vault/types"
)

var ErrUnauthorizedEmitter = errors.New("unauthorized event emitter")

// AsyncKind is the lifecycle stage of an asynchronous conversion.
type AsyncKind uint8

const (
	AsyncCreated AsyncKind = iota
	AsyncUpdated
	AsyncExecuted
	AsyncFailed
	AsyncCancelled
)

func (k AsyncKind) String() string {
	switch k {
	case AsyncCreated:
		return "created"
	case AsyncUpdated:
		return "updated"
	case AsyncExecuted:
		return "executed"
	case AsyncFailed:
		return "failed"
	case AsyncCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is implemented by every vault event.
type Event interface {
	Name() string
}

// PositionOpened records a borrow position opening.
type PositionOpened struct {
	Vault       ids.ShortID
	FromAccount types.AccountNumber
	ToAccount   types.AccountNumber
}

func (PositionOpened) Name() string { return "position_opened" }

// PositionClosed records a borrow position closing.
type PositionClosed struct {
	Vault         ids.ShortID
	BorrowAccount types.AccountNumber
	ToAccount     types.AccountNumber
}

func (PositionClosed) Name() string { return "position_closed" }

// AsyncOperation records a stage of an asynchronous conversion.
type AsyncOperation struct {
	Vault      ids.ShortID
	Account    types.AccountNumber
	Kind       AsyncKind
	FreezeType types.FreezeType
	Delta      *big.Int
}

func (AsyncOperation) Name() string { return "async_operation" }

// ZapExecuted records a completed chained conversion.
type ZapExecuted struct {
	Vault   ids.ShortID
	Account types.AccountNumber
	Markets []types.MarketID
	Output  *big.Int
}

func (ZapExecuted) Name() string { return "zap_executed" }

// PauseToggled records the owner flipping the pause flag.
type PauseToggled struct {
	Vault  ids.ShortID
	Paused bool
}

func (PauseToggled) Name() string { return "pause_toggled" }

// Recorder consumes vault events. source identifies the emitter; recorders
// reject sources that are neither the vault nor a global operator.
type Recorder interface {
	Record(source, vault ids.ShortID, ev Event) error
}

// Authorizer reports whether an identity is a global operator.
type Authorizer func(ids.ShortID) bool

// LogRecorder writes events to a logger.
type LogRecorder struct {
	log        log.Logger
	isOperator Authorizer
}

// NewLogRecorder creates a recorder backed by logger. isOperator may be nil.
func NewLogRecorder(logger log.Logger, isOperator Authorizer) *LogRecorder {
	return &LogRecorder{log: logger, isOperator: isOperator}
}

func (r *LogRecorder) Record(source, vault ids.ShortID, ev Event) error {
	if source != vault && (r.isOperator == nil || !r.isOperator(source)) {
		return fmt.Errorf("%w: %s", ErrUnauthorizedEmitter, source)
	}
	r.log.Info("vault event", "event", ev.Name(), "vault", vault, "detail", fmt.Sprintf("%+v", ev))
	return nil
}

// NoOpRecorder discards events without gating. Useful in tests.
type NoOpRecorder struct{}

func (NoOpRecorder) Record(ids.ShortID, ids.ShortID, Event) error { return nil }
