// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DispatchAll_AssignsIDAndTime(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	var received Notification
	_, err := r.Subscribe("*", func(ctx context.Context, n Notification) error {
		received = n
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated}))

	assert.NotEmpty(t, received.ID)
	assert.False(t, received.ReceivedAt.IsZero())
	assert.Equal(t, KindTaskUpdated, received.Kind)
}

func TestRegistry_DispatchAll_RegistrationOrder(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		_, err := r.Subscribe("*", func(ctx context.Context, n Notification) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, r.DispatchAll(context.Background(), Notification{Kind: KindCommentAdded}))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRegistry_DispatchAll_PatternFilter(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	var joins, all int32
	_, err := r.Subscribe("join_*", func(ctx context.Context, n Notification) error {
		atomic.AddInt32(&joins, 1)
		return nil
	})
	require.NoError(t, err)
	_, err = r.Subscribe("*", func(ctx context.Context, n Notification) error {
		atomic.AddInt32(&all, 1)
		return nil
	})
	require.NoError(t, err)

	for _, kind := range []string{KindJoinAccepted, KindJoinRejected, KindTaskUpdated, "something_new"} {
		require.NoError(t, r.DispatchAll(context.Background(), Notification{Kind: kind}))
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&joins))
	assert.Equal(t, int32(4), atomic.LoadInt32(&all), "unknown kinds still delivered")
}

func TestRegistry_ListenerIsolation(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	_, err := r.Subscribe("*", func(ctx context.Context, n Notification) error {
		panic("listener exploded")
	})
	require.NoError(t, err)

	_, err = r.Subscribe("*", func(ctx context.Context, n Notification) error {
		return errors.New("listener failed")
	})
	require.NoError(t, err)

	var recorded []Notification
	_, err = r.Subscribe("*", func(ctx context.Context, n Notification) error {
		recorded = append(recorded, n)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated}))

	require.Len(t, recorded, 1)
	assert.Equal(t, KindTaskUpdated, recorded[0].Kind)
}

func TestRegistry_SubscribeDuringDispatch(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	var late int32
	_, err := r.Subscribe("*", func(ctx context.Context, n Notification) error {
		_, err := r.Subscribe("*", func(ctx context.Context, n Notification) error {
			atomic.AddInt32(&late, 1)
			return nil
		})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated}))

	assert.Equal(t, int32(0), atomic.LoadInt32(&late), "listener added mid-dispatch must not see the event")
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_UnsubscribeDuringDispatch(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	var secondCalls int32
	var secondID SubscriptionID

	_, err := r.Subscribe("*", func(ctx context.Context, n Notification) error {
		return r.Unsubscribe(secondID)
	})
	require.NoError(t, err)

	secondID, err = r.Subscribe("*", func(ctx context.Context, n Notification) error {
		atomic.AddInt32(&secondCalls, 1)
		return nil
	})
	require.NoError(t, err)

	var thirdCalls int32
	_, err = r.Subscribe("*", func(ctx context.Context, n Notification) error {
		atomic.AddInt32(&thirdCalls, 1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated}))

	// The snapshot was taken before the removal.
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&thirdCalls))

	require.NoError(t, r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&thirdCalls))
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	var count int32
	id, err := r.Subscribe("*", func(ctx context.Context, n Notification) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, err)

	r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated})
	require.NoError(t, r.Unsubscribe(id))
	r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated})

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	assert.ErrorIs(t, r.Unsubscribe(id), ErrSubscriptionNotFound)
}

func TestRegistry_Subscribe_Invalid(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	_, err := r.Subscribe("", func(ctx context.Context, n Notification) error { return nil })
	assert.Error(t, err)

	_, err = r.Subscribe("*", nil)
	assert.Error(t, err)
}

func TestRegistry_SubscribeAsync(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	received := make(chan Notification, 10)
	_, err := r.SubscribeAsync("task_*", func(ctx context.Context, n Notification) error {
		received <- n
		return nil
	}, 10)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated})
	}

	for i := 0; i < 5; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for notification")
		}
	}
}

func TestRegistry_SubscribeAsync_DoesNotBlockDispatch(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	block := make(chan struct{})
	var received int32
	_, err := r.SubscribeAsync("*", func(ctx context.Context, n Notification) error {
		atomic.AddInt32(&received, 1)
		<-block
		return nil
	}, 2)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a slow async listener")
	}

	close(block)
	time.Sleep(50 * time.Millisecond)
	assert.Greater(t, atomic.LoadInt32(&received), int32(0))
}

func TestRegistry_History(t *testing.T) {
	r := NewRegistry(RegistryConfig{HistoryMaxEvents: 100, HistoryMaxAge: time.Hour})
	defer r.Close()

	r.DispatchAll(context.Background(), Notification{Kind: KindJoinAccepted})
	r.DispatchAll(context.Background(), Notification{Kind: KindCommentAdded, Payload: map[string]interface{}{"title": "t"}})

	assert.Len(t, r.History(Filter{}), 2)
	assert.Len(t, r.History(Filter{Kinds: []string{"join_*"}}), 1)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, KindCommentAdded, last.Kind)
	assert.Equal(t, "t", last.String("title"))
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(RegistryConfig{})

	_, err := r.SubscribeAsync("*", func(ctx context.Context, n Notification) error { return nil }, 1)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "second close is a no-op")

	assert.ErrorIs(t, r.DispatchAll(context.Background(), Notification{Kind: "x"}), ErrRegistryClosed)
	_, err = r.Subscribe("*", func(ctx context.Context, n Notification) error { return nil })
	assert.ErrorIs(t, err, ErrRegistryClosed)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SubscribeAsyncDuringClose(t *testing.T) {
	noop := func(ctx context.Context, n Notification) error { return nil }

	for i := 0; i < 50; i++ {
		r := NewRegistry(RegistryConfig{})

		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.SubscribeAsync("*", noop, 1)
				if err != nil {
					assert.ErrorIs(t, err, ErrRegistryClosed)
				}
			}()
		}

		closed := make(chan struct{})
		go func() {
			r.Close()
			close(closed)
		}()

		wg.Wait()
		select {
		case <-closed:
		case <-time.After(5 * time.Second):
			t.Fatal("Close did not return")
		}
		assert.Equal(t, 0, r.Len())
	}
}

func TestRegistry_ConcurrentSubscribeAndDispatch(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id, err := r.Subscribe("*", func(ctx context.Context, n Notification) error { return nil })
			if err == nil {
				r.Unsubscribe(id)
			}
		}()
		go func() {
			defer wg.Done()
			r.DispatchAll(context.Background(), Notification{Kind: KindTaskUpdated})
		}()
	}
	wg.Wait()
}
