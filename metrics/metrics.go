// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/luxfi/metric"
)

const opLabel = "op"

var opLabels = []string{opLabel}

// Metrics tracks vault operation outcomes.
type Metrics interface {
	MarkExecuted(op string)
	MarkFailed(op string)
	SetFrozenAccounts(n int)
	SetPaused(paused bool)
}

type metricsImpl struct {
	numExecuted    metric.CounterVec
	numFailed      metric.CounterVec
	frozenAccounts metric.Gauge
	paused         metric.Gauge
}

// New creates vault metrics registered on registerer.
func New(registerer metric.Registerer) (Metrics, error) {
	m := &metricsImpl{
		numExecuted: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "vault_ops_executed",
				Help: "number of vault operations executed",
			},
			opLabels,
		),
		numFailed: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "vault_ops_failed",
				Help: "number of vault operations rejected or failed",
			},
			opLabels,
		),
		frozenAccounts: metric.NewGauge(metric.GaugeOpts{
			Name: "vault_frozen_accounts",
			Help: "number of currently frozen sub-accounts",
		}),
		paused: metric.NewGauge(metric.GaugeOpts{
			Name: "vault_paused",
			Help: "1 when the vault is paused",
		}),
	}

	if err := registerer.Register(metric.AsCollector(m.numExecuted)); err != nil {
		return nil, err
	}
	if err := registerer.Register(metric.AsCollector(m.numFailed)); err != nil {
		return nil, err
	}
	if err := registerer.Register(metric.AsCollector(m.frozenAccounts)); err != nil {
		return nil, err
	}
	if err := registerer.Register(metric.AsCollector(m.paused)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metricsImpl) MarkExecuted(op string) {
	m.numExecuted.With(metric.Labels{opLabel: op}).Inc()
}

func (m *metricsImpl) MarkFailed(op string) {
	m.numFailed.With(metric.Labels{opLabel: op}).Inc()
}

func (m *metricsImpl) SetFrozenAccounts(n int) {
	m.frozenAccounts.Set(float64(n))
}

func (m *metricsImpl) SetPaused(paused bool) {
	if paused {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
}

type noOp struct{}

// NewNoOp returns metrics that record nothing.
func NewNoOp() Metrics { return noOp{} }

func (noOp) MarkExecuted(string)    {}
func (noOp) MarkFailed(string)      {}
func (noOp) SetFrozenAccounts(int)  {}
func (noOp) SetPaused(bool)         {}
