// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"net/http"
	"strconv"

	"go.astrophena.name/tinkerbot/internal/web"
)

func (e *engine) initRoutes() {
	e.mux = http.NewServeMux()

	e.mux.HandleFunc("/", e.handleRoot)
	e.mux.HandleFunc("POST "+e.webhookPath, e.handleWebhook)
	e.mux.Handle("GET /debug/logs", e.logStream)

	health := web.Health(e.mux)
	health.RegisterFunc("catalog", func() (status string, ok bool) {
		return e.catalog.Stats(), true
	})
	health.RegisterFunc("sessions", func() (status string, ok bool) {
		return strconv.Itoa(e.sessions.Len()) + " users", true
	})
}

func (e *engine) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		web.RespondJSONError(w, r, web.ErrNotFound)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		web.RespondJSONError(w, r, web.ErrMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}
