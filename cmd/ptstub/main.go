// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// ptstub runs an in-memory ptracker service for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/wingedpig/ptclient/internal/logging"
	"github.com/wingedpig/ptclient/internal/stub"
)

var version = "0.1.0"

func main() {
	var (
		addr          string
		prefix        string
		users         string
		identityParam string
		ttl           time.Duration
		createRate    float64
		logLevel      string
		showVersion   bool
	)

	flag.StringVar(&addr, "addr", "localhost:8081", "Listen address")
	flag.StringVar(&prefix, "prefix", stub.DefaultPrefix, "API path prefix")
	flag.StringVar(&users, "users", "alice,bob", "Comma-separated usernames to seed and log in")
	flag.StringVar(&identityParam, "identity-param", "user_id", "Websocket query parameter carrying the user id")
	flag.DurationVar(&ttl, "ttl", stub.DefaultSessionTTL, "Session access lifetime before a refresh is required")
	flag.Float64Var(&createRate, "create-rate", 1, "Project creations allowed per second per user")
	flag.StringVar(&logLevel, "log-level", "info", "Log level")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("ptstub %s\n", version)
		os.Exit(0)
	}

	logger := logging.New(os.Stderr, "ptstub", logLevel)

	s := stub.New(
		stub.WithLogger(logger),
		stub.WithPrefix(prefix),
		stub.WithSessionTTL(ttl),
		stub.WithIdentityParam(identityParam),
		stub.WithCreateLimit(rate.Limit(createRate), 10),
	)

	for _, name := range strings.Split(users, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		uid := s.AddUser(name, strings.ToUpper(name[:1])+name[1:], name+"@example.com")
		sid, err := s.Login(uid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%-12s user_id=%s PTCLIENT_SESSION=%s\n", name, uid, sid)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Serve(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
