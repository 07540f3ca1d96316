// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package systemd reports service readiness and watchdog keep-alives to
// systemd.
//
// The socket and the watchdog interval are read from NOTIFY_SOCKET and
// WATCHDOG_USEC in the [cli.Env] of the context. Outside of systemd every
// function is a no-op.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"go.astrophena.name/tinkerbot/internal/cli"
)

// State is a sd_notify state.
// See https://www.freedesktop.org/software/systemd/man/sd_notify.html.
type State string

const (
	// Ready tells the service manager that startup is finished.
	Ready State = "READY=1"
	// Stopping tells the service manager that the service is shutting down.
	Stopping State = "STOPPING=1"
	// Watchdog updates the watchdog timestamp.
	Watchdog State = "WATCHDOG=1"
)

var errBadInterval = errors.New("systemd: WATCHDOG_USEC must be a positive number")

// Notify sends state to the service manager. Failures are logged to log.
func Notify(ctx context.Context, log *slog.Logger, state State) {
	socket := cli.GetEnv(ctx).Getenv("NOTIFY_SOCKET")
	if socket == "" {
		return
	}
	if err := send(socket, state); err != nil {
		log.Warn("systemd notification failed", "state", string(state), "error", err)
	}
}

func send(socket string, state State) error {
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: socket})
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write([]byte(state))
	return err
}

// WatchdogLoop sends [Watchdog] at half the configured watchdog interval until
// ctx is done. It returns immediately if the watchdog is not enabled.
func WatchdogLoop(ctx context.Context, log *slog.Logger) {
	env := cli.GetEnv(ctx)
	if env.Getenv("NOTIFY_SOCKET") == "" || env.Getenv("WATCHDOG_USEC") == "" {
		return
	}
	interval, err := watchdogInterval(env.Getenv("WATCHDOG_USEC"))
	if err != nil {
		log.Warn("systemd watchdog disabled", "error", err)
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			Notify(ctx, log, Watchdog)
		case <-ctx.Done():
			return
		}
	}
}

func watchdogInterval(usec string) (time.Duration, error) {
	n, err := strconv.Atoi(usec)
	if err != nil {
		return 0, fmt.Errorf("systemd: parsing WATCHDOG_USEC: %w", err)
	}
	if n <= 1 {
		return 0, errBadInterval
	}
	return time.Duration(n) * time.Microsecond, nil
}
