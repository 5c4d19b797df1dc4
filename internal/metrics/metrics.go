// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the prometheus collectors for the gateway and the
// notification channel. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeAPIError        = "api_error"
	OutcomeTransportError  = "transport_error"
	OutcomeProtocolError   = "protocol_error"
	OutcomeUnauthenticated = "unauthenticated"
)

// Metrics groups all ptclient collectors.
type Metrics struct {
	calls     *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	messages  *prometheus.CounterVec
	connected prometheus.Gauge
	dials     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ptclient",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Gateway calls by method and outcome.",
		}, []string{"method", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ptclient",
			Subsystem: "gateway",
			Name:      "refreshes_total",
			Help:      "Session refresh calls issued, by result.",
		}, []string{"result"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ptclient",
			Subsystem: "channel",
			Name:      "messages_total",
			Help:      "Realtime messages received, by result.",
		}, []string{"result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ptclient",
			Subsystem: "channel",
			Name:      "connected",
			Help:      "1 while the realtime channel is connected.",
		}),
		dials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ptclient",
			Subsystem: "channel",
			Name:      "dials_total",
			Help:      "Realtime dial attempts, by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.calls, m.refreshes, m.messages, m.connected, m.dials} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Call records one finished gateway call.
func (m *Metrics) Call(method, outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, outcome).Inc()
}

// Refresh records one refresh call.
func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result(ok)).Inc()
}

// Message records one inbound realtime message.
func (m *Metrics) Message(parsed bool) {
	if m == nil {
		return
	}
	if parsed {
		m.messages.WithLabelValues("delivered").Inc()
		return
	}
	m.messages.WithLabelValues("dropped").Inc()
}

// Dial records one dial attempt.
func (m *Metrics) Dial(ok bool) {
	if m == nil {
		return
	}
	m.dials.WithLabelValues(result(ok)).Inc()
}

// Connected sets the connection gauge.
func (m *Metrics) Connected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
