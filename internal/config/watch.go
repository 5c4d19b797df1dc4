// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a config file when it changes on disk.
//
// The file's directory is watched rather than the file itself, so editors
// that save by renaming a temporary file are still seen.
type Watcher struct {
	path      string
	loader    *Loader
	validator *Validator
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	logger    zerolog.Logger

	closeOnce sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the logger.
func WithWatchLogger(l zerolog.Logger) WatchOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for path. Bursts of file events within
// debounce are reported once.
func NewWatcher(path string, debounce time.Duration, opts ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:      abs,
		loader:    NewLoader(),
		validator: NewValidator(),
		fs:        fsWatcher,
		debouncer: NewDebouncer(debounce),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run delivers each successfully reloaded and validated config to fn until
// ctx is done. Invalid edits are logged and skipped, so fn only ever sees
// a usable config. fn runs on a timer goroutine, never concurrently with
// itself.
func (w *Watcher) Run(ctx context.Context, fn func(*Config)) error {
	defer w.Close()

	var fnMu sync.Mutex
	reload := func() {
		cfg, err := w.loader.LoadWithDefaults(ctx, w.path)
		if err == nil {
			err = w.validator.Validate(cfg)
		}
		if err != nil {
			w.logger.Warn().Err(err).Str("path", w.path).Msg("ignoring config change")
			return
		}
		fnMu.Lock()
		defer fnMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.logger.Info().Str("path", w.path).Msg("config reloaded")
		fn(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.debouncer.Debounce(w.path, reload)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.debouncer.Stop()
		err = w.fs.Close()
	})
	return err
}
