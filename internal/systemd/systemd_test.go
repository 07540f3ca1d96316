// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package systemd

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/tinkerbot/internal/cli"
	"go.astrophena.name/tinkerbot/internal/logger"
	"go.astrophena.name/tinkerbot/internal/testutil"
)

func listen(t *testing.T) (*net.UnixConn, string) {
	t.Helper()
	// Unix socket paths are short; t.TempDir can exceed the limit.
	dir, err := os.MkdirTemp("", "sd")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "notify.sock")
	l, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: socket, Net: "unixgram"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, socket
}

func withEnv(ctx context.Context, vars map[string]string) context.Context {
	return cli.WithEnv(ctx, &cli.Env{
		Getenv: func(k string) string { return vars[k] },
		Stdin:  strings.NewReader(""),
		Stdout: new(strings.Builder),
		Stderr: new(strings.Builder),
	})
}

func receive(t *testing.T, l *net.UnixConn) string {
	t.Helper()
	buf := make([]byte, 64)
	l.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, _, err := l.ReadFromUnix(buf)
	if err != nil {
		t.Fatal(err)
	}
	return string(buf[:n])
}

func TestNotify(t *testing.T) {
	t.Parallel()
	l, socket := listen(t)

	ctx := withEnv(t.Context(), map[string]string{"NOTIFY_SOCKET": socket})
	Notify(ctx, logger.Discard(), Ready)
	testutil.AssertEqual(t, receive(t, l), "READY=1")
}

func TestNotifyOutsideSystemd(t *testing.T) {
	t.Parallel()
	// Must not block or panic.
	Notify(withEnv(t.Context(), nil), logger.Discard(), Ready)
	WatchdogLoop(withEnv(t.Context(), map[string]string{"WATCHDOG_USEC": "1000"}), logger.Discard())
}

func TestWatchdogLoop(t *testing.T) {
	t.Parallel()
	l, socket := listen(t)

	ctx, cancel := context.WithCancel(withEnv(t.Context(), map[string]string{
		"NOTIFY_SOCKET": socket,
		"WATCHDOG_USEC": "100000",
	}))
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchdogLoop(ctx, logger.Discard())
	}()

	testutil.AssertEqual(t, receive(t, l), "WATCHDOG=1")
	cancel()
	<-done
}

func TestWatchdogInterval(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		"valid":    {in: "250000", want: 250 * time.Millisecond},
		"zero":     {in: "0", wantErr: true},
		"negative": {in: "-5", wantErr: true},
		"garbage":  {in: "soon", wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := watchdogInterval(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("watchdogInterval(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			testutil.AssertEqual(t, got, tc.want)
			if tc.in == "0" && !errors.Is(err, errBadInterval) {
				t.Fatalf("want errBadInterval, got %v", err)
			}
		})
	}
}
