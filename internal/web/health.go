// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"maps"
	"net/http"
	"net/url"
	"slices"
	"time"

	"go.astrophena.name/tinkerbot/internal/syncx"
	"go.astrophena.name/tinkerbot/internal/version"
)

const healthPath = "/health"

// Health returns the [HealthHandler] mounted on mux at /health. The first call
// for a mux mounts it.
func Health(mux *http.ServeMux) *HealthHandler {
	h, pat := mux.Handler(&http.Request{Method: http.MethodGet, URL: &url.URL{Path: healthPath}})
	if hh, ok := h.(*HealthHandler); ok && pat == healthPath {
		return hh
	}
	hh := &HealthHandler{
		subsystems: syncx.Protect(make(map[string]HealthFunc)),
		started:    time.Now(),
		now:        time.Now,
	}
	mux.Handle(healthPath, hh)
	return hh
}

// HealthHandler reports the state of every registered subsystem as JSON. It
// responds with 503 Service Unavailable when any of them is not ok.
type HealthHandler struct {
	subsystems *syncx.Protected[map[string]HealthFunc]
	started    time.Time
	now        func() time.Time
}

// HealthFunc reports the state of a particular subsystem.
type HealthFunc func() (status string, ok bool)

// RegisterFunc adds a subsystem check under name. It panics when name is
// already taken.
//
// f must be safe for concurrent use.
func (h *HealthHandler) RegisterFunc(name string, f HealthFunc) {
	h.subsystems.Access(func(m map[string]HealthFunc) {
		if _, dup := m[name]; dup {
			panic("web: health check " + name + " registered twice")
		}
		m[name] = f
	})
}

// HealthResponse is the body of the /health endpoint.
type HealthResponse struct {
	OK      bool                     `json:"ok"`
	Version string                   `json:"version"`
	Uptime  string                   `json:"uptime"`
	Checks  map[string]CheckResponse `json:"checks"`
}

// CheckResponse is the state of one subsystem.
type CheckResponse struct {
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

// ServeHTTP implements the [http.Handler] interface.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		RespondJSONError(w, r, ErrMethodNotAllowed)
		return
	}

	// Checks run outside the lock so a slow one doesn't block RegisterFunc.
	var funcs map[string]HealthFunc
	h.subsystems.RAccess(func(m map[string]HealthFunc) { funcs = maps.Clone(m) })

	resp := HealthResponse{
		OK:      true,
		Version: version.Version().Version,
		Uptime:  h.now().Sub(h.started).Truncate(time.Second).String(),
		Checks:  make(map[string]CheckResponse, len(funcs)),
	}
	for _, name := range slices.Sorted(maps.Keys(funcs)) {
		status, ok := funcs[name]()
		resp.OK = resp.OK && ok
		resp.Checks[name] = CheckResponse{Status: status, OK: ok}
	}

	w.Header().Set("Content-Type", "application/json")
	if !resp.OK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	RespondJSON(w, resp)
}
