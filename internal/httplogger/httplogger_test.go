// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package httplogger

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"go.astrophena.name/tinkerbot/internal/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		level    slog.Level
		respErr  error
		wantLogs []string
		dontWant []string
	}{
		"logs at debug": {
			level:    slog.LevelDebug,
			wantLogs: []string{"http request", "method=GET", "status=204", "[EXPUNGED]"},
			dontWant: []string{"s3cret"},
		},
		"logs errors": {
			level:    slog.LevelDebug,
			respErr:  errors.New("dial s3cret failed"),
			wantLogs: []string{"error=\"dial [EXPUNGED] failed\""},
			dontWant: []string{"s3cret", "status="},
		},
		"quiet at info": {
			level:    slog.LevelInfo,
			dontWant: []string{"http request"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			level := new(slog.LevelVar)
			level.Set(tc.level)
			rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
				if tc.respErr != nil {
					return nil, tc.respErr
				}
				return &http.Response{StatusCode: http.StatusNoContent, Request: r}, nil
			}), logger.New(&buf, level), strings.NewReplacer("s3cret", "[EXPUNGED]"))

			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://api.example.com/bots3cret/getMe", nil)
			if err != nil {
				t.Fatal(err)
			}
			rt.RoundTrip(req)

			out := buf.String()
			for _, want := range tc.wantLogs {
				if !strings.Contains(out, want) {
					t.Errorf("log %q lacks %q", out, want)
				}
			}
			for _, bad := range tc.dontWant {
				if strings.Contains(out, bad) {
					t.Errorf("log %q contains %q", out, bad)
				}
			}
		})
	}
}
