// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_MultipleCallsSameKey(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer(50 * time.Millisecond)

	// Multiple rapid calls with same key
	for i := 0; i < 10; i++ {
		d.Debounce("key1", func() {
			callCount.Add(1)
		})
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return callCount.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
}

func TestDebouncer_DifferentKeys(t *testing.T) {
	var count1, count2 atomic.Int32

	d := NewDebouncer(20 * time.Millisecond)
	d.Debounce("key1", func() { count1.Add(1) })
	d.Debounce("key2", func() { count2.Add(1) })

	assert.Eventually(t, func() bool {
		return count1.Load() == 1 && count2.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDebouncer_Stop(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer(50 * time.Millisecond)
	d.Debounce("key1", func() { callCount.Add(1) })
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), callCount.Load())
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	assert.Equal(t, defaultDebounceDuration, d.duration)
}
