// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger builds the structured logger of the bot and keeps recent log
// lines in memory so they can be inspected over HTTP.
package logger

import (
	"container/ring"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Logf is a printf-like logging function. Logf functions must be safe for
// concurrent use.
type Logf func(format string, args ...any)

// Write implements the [io.Writer] interface.
func (f Logf) Write(p []byte) (n int, err error) {
	f("%s", p)
	return len(p), nil
}

// New returns a text [slog.Logger] writing to w at the level held by level.
func New(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts names like "debug" or "WARN" to a [slog.Level]. Unknown
// and empty names map to [slog.LevelInfo].
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Streamer is an [io.Writer] that keeps the most recent complete lines written
// to it.
//
// As an [http.Handler] it responds with a JSON snapshot of the kept lines, or
// streams new lines as server-sent events when the client asks for
// text/event-stream.
type Streamer struct {
	mu        sync.RWMutex
	size      int
	remainder string
	r         *ring.Ring
	streams   map[chan string]struct{}
}

// NewStreamer returns a new Streamer that keeps up to size lines.
func NewStreamer(size int) *Streamer {
	if size <= 0 {
		size = 1
	}
	return &Streamer{
		size:    size,
		r:       ring.New(size),
		streams: make(map[chan string]struct{}),
	}
}

// Write implements the [io.Writer] interface.
func (s *Streamer) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.remainder + string(b)
	for {
		line, rest, ok := strings.Cut(text, "\n")
		if !ok {
			break
		}
		s.r.Value = line
		for stream := range s.streams {
			select {
			case stream <- line:
			default:
				// Slow readers miss lines.
			}
		}
		s.r = s.r.Next()
		text = rest
	}
	s.remainder = text
	return len(b), nil
}

// Lines returns the kept lines, oldest first, without trailing newlines.
func (s *Streamer) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := make([]string, 0, s.size)
	s.r.Do(func(x any) {
		if x != nil {
			lines = append(lines, x.(string))
		}
	})
	return lines
}

// Stream returns a channel receiving every line written from now on. Call the
// returned function to deregister it.
func (s *Streamer) Stream() (<-chan string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := make(chan string, s.size+1)
	s.streams[stream] = struct{}{}

	return stream, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.streams[stream]; !ok {
			return
		}
		delete(s.streams, stream)
		close(stream)
	}
}

// ServeHTTP implements the [http.Handler] interface.
func (s *Streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	if !strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/event-stream") {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Lines []string `json:"lines"`
		}{Lines: s.Lines()})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	stream, closeFunc := s.Stream()
	defer closeFunc()

	for {
		select {
		case line := <-stream:
			fmt.Fprintf(w, "event: logline\ndata: %s\n\n", line)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

var _ http.Handler = (*Streamer)(nil)
