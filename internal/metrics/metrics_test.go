// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Call("GET", OutcomeSuccess)
	m.Call("GET", OutcomeSuccess)
	m.Call("POST", OutcomeUnauthenticated)
	m.Refresh(true)
	m.Refresh(false)
	m.Message(true)
	m.Message(false)
	m.Dial(true)
	m.Connected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("GET", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("POST", OutcomeUnauthenticated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dials.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))

	m.Connected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Call("GET", OutcomeSuccess)
		m.Refresh(true)
		m.Message(false)
		m.Dial(false)
		m.Connected(true)
	})
}
