// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.astrophena.name/tinkerbot/internal/telegram"
	"go.astrophena.name/tinkerbot/internal/web"
)

const (
	secretHeader    = "X-Telegram-Bot-Api-Secret-Token"
	updateReadLimit = 1 << 20 // 1 MiB
)

func (e *engine) handleWebhook(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(secretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(e.webhookSecret)) != 1 {
		web.RespondJSONError(w, r, web.ErrUnauthorized)
		return
	}

	b, err := io.ReadAll(io.LimitReader(r.Body, updateReadLimit))
	if err != nil {
		web.RespondJSONError(w, r, err)
		return
	}
	var u telegram.Update
	if err := json.Unmarshal(b, &u); err != nil {
		web.RespondJSONError(w, r, fmt.Errorf("%w: %v", web.ErrBadRequest, err))
		return
	}

	// Keep handling when Telegram gives up waiting. The update is answered
	// with 200 regardless of the outcome so it is not delivered again.
	e.handle(context.WithoutCancel(r.Context()), &u)
	web.RespondJSON(w, map[string]string{"status": "ok"})
}

// handle dispatches an update and logs failures.
func (e *engine) handle(ctx context.Context, u *telegram.Update) {
	var err error
	switch {
	case u.CallbackQuery != nil:
		err = e.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		err = e.handleMessage(ctx, u.Message)
	default:
		e.log.Debug("ignoring update", "update_id", u.ID)
		return
	}
	if err != nil {
		e.log.Error("handling update failed", "update_id", u.ID, "user", u.UserID(), "error", err)
	}
}
