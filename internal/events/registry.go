// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRegistryClosed is returned when operating on a closed registry.
var ErrRegistryClosed = errors.New("listener registry is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with invalid ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// RegistryConfig configures the listener registry.
type RegistryConfig struct {
	HistoryMaxEvents int
	HistoryMaxAge    time.Duration
}

// Registry maps subscriptions to handlers and fans notifications out to
// them in registration order.
type Registry struct {
	mu      sync.RWMutex
	subs    []*subscription
	byID    map[SubscriptionID]*subscription
	history *History
	matcher *PatternMatcher
	logger  zerolog.Logger
	closed  atomic.Bool
	wg      sync.WaitGroup
	nextID  uint64
	stop    chan struct{}
}

type subscription struct {
	id      SubscriptionID
	pattern CompiledPattern
	handler Handler
	async   bool
	ch      chan Notification
	stopCh  chan struct{}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report handler failures.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig, opts ...RegistryOption) *Registry {
	r := &Registry{
		byID: make(map[SubscriptionID]*subscription),
		history: NewHistory(HistoryConfig{
			MaxEvents: cfg.HistoryMaxEvents,
			MaxAge:    cfg.HistoryMaxAge,
		}),
		matcher: NewPatternMatcher(),
		logger:  zerolog.Nop(),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	pruneInterval := r.history.maxAge / 10
	if pruneInterval < time.Minute {
		pruneInterval = time.Minute
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case now := <-ticker.C:
				r.history.Prune(now)
			}
		}
	}()

	return r
}

// Subscribe registers a synchronous handler for kinds matching pattern.
// The handler runs on the dispatching goroutine; long work must be handed
// off by the handler itself.
func (r *Registry) Subscribe(pattern string, handler Handler) (SubscriptionID, error) {
	return r.add(pattern, handler, false, 0)
}

// SubscribeAsync registers a handler fed through a buffered channel. When
// the buffer is full the notification is dropped for that subscriber.
func (r *Registry) SubscribeAsync(pattern string, handler Handler, bufferSize int) (SubscriptionID, error) {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return r.add(pattern, handler, true, bufferSize)
}

func (r *Registry) add(pattern string, handler Handler, async bool, bufferSize int) (SubscriptionID, error) {
	if r.closed.Load() {
		return "", ErrRegistryClosed
	}
	if handler == nil {
		return "", errors.New("nil handler")
	}

	compiled, err := r.matcher.Compile(pattern)
	if err != nil {
		return "", err
	}

	sub := &subscription{
		id:      SubscriptionID("sub-" + strconv.FormatUint(atomic.AddUint64(&r.nextID, 1), 10)),
		pattern: compiled,
		handler: handler,
		async:   async,
	}
	if async {
		sub.ch = make(chan Notification, bufferSize)
		sub.stopCh = make(chan struct{})
	}

	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return "", ErrRegistryClosed
	}
	// Added under the lock so Close cannot be waiting yet.
	if async {
		r.wg.Add(1)
	}
	r.subs = append(r.subs, sub)
	r.byID[sub.id] = sub
	r.mu.Unlock()

	if async {
		go r.runAsync(sub)
	}

	return sub.id, nil
}

func (r *Registry) runAsync(sub *subscription) {
	defer r.wg.Done()
	for {
		select {
		case <-sub.stopCh:
			return
		case n := <-sub.ch:
			r.invoke(context.Background(), sub, n)
		}
	}
}

// Unsubscribe removes a subscription.
func (r *Registry) Unsubscribe(id SubscriptionID) error {
	r.mu.Lock()
	sub, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrSubscriptionNotFound
	}
	delete(r.byID, id)
	for i, s := range r.subs {
		if s == sub {
			// Copy rather than shift in place so snapshots taken by a
			// running dispatch stay intact.
			next := make([]*subscription, 0, len(r.subs)-1)
			next = append(next, r.subs[:i]...)
			next = append(next, r.subs[i+1:]...)
			r.subs = next
			break
		}
	}
	r.mu.Unlock()

	if sub.async {
		close(sub.stopCh)
	}
	return nil
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// DispatchAll delivers n to every matching subscriber registered at the
// moment of the call, in registration order. A failing or panicking handler
// does not prevent delivery to the others.
func (r *Registry) DispatchAll(ctx context.Context, n Notification) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = time.Now()
	}

	r.history.Add(n)

	r.mu.RLock()
	snapshot := r.subs
	r.mu.RUnlock()

	for _, sub := range snapshot {
		if !sub.pattern.Match(n.Kind) {
			continue
		}
		if sub.async {
			select {
			case sub.ch <- n:
			default:
				r.logger.Warn().Str("kind", n.Kind).Str("subscription", string(sub.id)).
					Msg("dropped notification, async subscriber buffer full")
			}
			continue
		}
		r.invoke(ctx, sub, n)
	}

	return nil
}

func (r *Registry) invoke(ctx context.Context, sub *subscription, n Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("kind", n.Kind).Str("subscription", string(sub.id)).
				Interface("panic", rec).Msg("listener panic")
		}
	}()
	if err := sub.handler(ctx, n); err != nil {
		r.logger.Warn().Err(err).Str("kind", n.Kind).Str("subscription", string(sub.id)).
			Msg("listener failed")
	}
}

// History retrieves past notifications matching filter.
func (r *Registry) History(filter Filter) []Notification {
	return r.history.Query(filter)
}

// Last returns the most recently dispatched notification.
func (r *Registry) Last() (Notification, bool) {
	return r.history.Last()
}

// Close drops all subscriptions and stops async handlers.
func (r *Registry) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	close(r.stop)

	r.mu.Lock()
	for _, sub := range r.subs {
		if sub.async {
			close(sub.stopCh)
		}
	}
	r.subs = nil
	r.byID = make(map[SubscriptionID]*subscription)
	r.mu.Unlock()

	r.wg.Wait()
	r.history.Clear()

	return nil
}
