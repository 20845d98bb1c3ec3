// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package server carries shared observability helpers for long-lived
// components.
package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// OpMetric tracks counts, latencies and pending counts for named
// operations. It creates three metric sets:
//   - a CounterVec with the given name, label "result", and any additional
//     labels. Start/End increment it with "result"="all"; calling Failed on
//     the op increments "result"="failed" as well.
//   - a SummaryVec named name+"_latency", fed by End unless Failed was
//     called first.
//   - a GaugeVec named name+"_pending" reflecting operations between Start
//     and End.
type OpMetric struct {
	name      string
	counters  *prometheus.CounterVec
	latencies *prometheus.SummaryVec
	pending   *prometheus.GaugeVec
}

// NewOpMetric returns a new op metric.
func NewOpMetric(name string, labels ...string) *OpMetric {
	labelsWithResult := append([]string{"result"}, labels...)
	return &OpMetric{
		name:      name,
		counters:  promauto.NewCounterVec(prometheus.CounterOpts{Name: name}, labelsWithResult),
		latencies: promauto.NewSummaryVec(prometheus.SummaryOpts{Name: name + "_latency"}, labels),
		pending:   promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name + "_pending"}, labels),
	}
}

// Start marks that a new operation has started and begins measuring its
// latency.
func (m *OpMetric) Start(values ...string) *Op {
	m.counters.WithLabelValues(append([]string{"all"}, values...)...).Inc()
	m.pending.WithLabelValues(values...).Inc()
	return &Op{opm: m, values: values, start: time.Now()}
}

// Count returns the current value of the counter for the given result,
// readable back for tests and status pages.
func (m *OpMetric) Count(result string, values ...string) uint64 {
	mtr := m.counters.WithLabelValues(append([]string{result}, values...)...)
	var value dto.Metric
	if mtr.Write(&value) != nil {
		return 0
	}
	return uint64(*value.Counter.Value)
}

// Op is one in-flight operation.
type Op struct {
	opm    *OpMetric
	values []string
	start  time.Time
	failed bool
}

// Failed marks the operation failed. Its latency will not be recorded.
func (o *Op) Failed() {
	o.failed = true
	o.opm.counters.WithLabelValues(append([]string{"failed"}, o.values...)...).Inc()
}

// End finishes the operation.
func (o *Op) End() {
	o.opm.pending.WithLabelValues(o.values...).Dec()
	if !o.failed {
		o.opm.latencies.WithLabelValues(o.values...).Observe(float64(time.Since(o.start)) / float64(time.Millisecond))
	}
}
