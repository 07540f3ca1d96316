// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import "html"

// MaxCallbackData is the maximum length of callback data in bytes.
const MaxCallbackData = 64

// Button returns a button that sends data back to the bot.
func Button(text, data string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, CallbackData: data}
}

// URLButton returns a button that opens u.
func URLButton(text, u string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, URL: u}
}

// Keyboard builds an inline keyboard from rows of buttons. Empty rows are
// skipped.
func Keyboard(rows ...[]InlineKeyboardButton) *InlineKeyboardMarkup {
	kb := &InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		if len(row) > 0 {
			kb.InlineKeyboard = append(kb.InlineKeyboard, row)
		}
	}
	return kb
}

// Grid lays buttons out in rows of cols buttons each.
func Grid(cols int, buttons ...InlineKeyboardButton) [][]InlineKeyboardButton {
	if cols <= 0 {
		cols = 1
	}
	var rows [][]InlineKeyboardButton
	for len(buttons) > 0 {
		n := min(cols, len(buttons))
		rows = append(rows, buttons[:n:n])
		buttons = buttons[n:]
	}
	return rows
}

// Escape escapes s for use in messages with the HTML parse mode.
func Escape(s string) string { return html.EscapeString(s) }
