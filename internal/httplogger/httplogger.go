// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package httplogger provides a [http.RoundTripper] middleware that logs
// outgoing requests.
package httplogger

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// New returns a [http.RoundTripper] that logs every request made through t at
// debug level. If t is nil, [http.DefaultTransport] is used. URLs and errors
// are passed through scrubber, if not nil, before logging, so tokens embedded
// in them don't leak.
func New(t http.RoundTripper, log *slog.Logger, scrubber *strings.Replacer) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	return &loggingTransport{
		transport: t,
		log:       log,
		scrubber:  scrubber,
		now:       time.Now,
	}
}

type loggingTransport struct {
	transport http.RoundTripper
	log       *slog.Logger
	scrubber  *strings.Replacer
	now       func() time.Time
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if !t.log.Enabled(r.Context(), slog.LevelDebug) {
		return t.transport.RoundTrip(r)
	}

	start := t.now()
	resp, err := t.transport.RoundTrip(r)
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("url", t.scrub(r.URL.String())),
		slog.Duration("took", t.now().Sub(start)),
	}
	if resp != nil {
		attrs = append(attrs, slog.Int("status", resp.StatusCode))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", t.scrub(err.Error())))
	}
	t.log.LogAttrs(r.Context(), slog.LevelDebug, "http request", attrs...)

	return resp, err
}

func (t *loggingTransport) scrub(s string) string {
	if t.scrubber == nil {
		return s
	}
	return t.scrubber.Replace(s)
}
