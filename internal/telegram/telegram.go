// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram is a client for the subset of the Telegram Bot API used by
// the bot.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.astrophena.name/tinkerbot/internal/logger"
	"go.astrophena.name/tinkerbot/internal/request"
)

const (
	// DefaultAPI is the Telegram Bot API root.
	DefaultAPI = "https://api.telegram.org"
	// MaxMessageLength is the maximum length of a message text in runes.
	MaxMessageLength = 4096

	sendRetryLimit = 5 // N attempts to retry a request when rate limited
	parseMode      = "HTML"
)

// ErrNotModified is returned by [Client.EditMessageText] when the new text and
// keyboard are identical to the current ones.
var ErrNotModified = errors.New("telegram: message is not modified")

// Config configures a [Client].
type Config struct {
	Token      string
	API        string // DefaultAPI if empty
	HTTPClient *http.Client
	Scrubber   *strings.Replacer
	Logger     *slog.Logger
}

// Client calls Telegram Bot API methods, retrying requests when rate limited.
type Client struct {
	token    string
	api      string
	httpc    *http.Client
	scrubber *strings.Replacer
	log      *slog.Logger

	makeRequest func(context.Context, string, any) (json.RawMessage, error)
	sleep       func(context.Context, time.Duration) bool
}

// New returns a new Client.
func New(cfg Config) *Client {
	c := &Client{
		token:    cfg.Token,
		api:      strings.TrimSuffix(cfg.API, "/"),
		httpc:    cfg.HTTPClient,
		scrubber: cfg.Scrubber,
		log:      cfg.Logger,
	}
	if c.api == "" {
		c.api = DefaultAPI
	}
	if c.httpc == nil {
		c.httpc = request.DefaultClient
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	c.makeRequest = c.makeTelegramRequest
	c.sleep = sleep
	return c
}

// upload is a ready multipart/form-data body.
type upload struct {
	contentType string
	data        []byte
}

func (c *Client) makeTelegramRequest(ctx context.Context, method string, args any) (json.RawMessage, error) {
	p := request.Params{
		Method:     http.MethodPost,
		URL:        c.api + "/bot" + c.token + "/" + method,
		Body:       args,
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	}
	if u, ok := args.(*upload); ok {
		p.Body = bytes.NewReader(u.data)
		p.Headers = map[string]string{"Content-Type": u.contentType}
	}
	resp, err := request.Make[apiResponse](ctx, p)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s: %s", method, resp.Description)
	}
	return resp.Result, nil
}

// call invokes method and decodes its result into out, unless out is nil.
func (c *Client) call(ctx context.Context, method string, args, out any) error {
	var (
		res json.RawMessage
		err error
	)
	for range sendRetryLimit {
		res, err = c.makeRequest(ctx, method, args)
		if err == nil {
			break
		}
		retryable, wait := isRateLimited(err)
		if !retryable {
			break
		}
		c.log.Warn("rate limited, waiting", slog.String("method", method), slog.Duration("wait", wait))
		if !c.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	if out == nil || len(res) == 0 {
		return nil
	}
	if err := json.Unmarshal(res, out); err != nil {
		return fmt.Errorf("%s: decoding result: %w", method, err)
	}
	return nil
}

func isRateLimited(err error) (bool, time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}
	var resp apiResponse
	if err := json.Unmarshal(statusErr.Body, &resp); err != nil {
		return false, 0
	}
	return true, time.Duration(resp.Parameters.RetryAfter) * time.Second
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetWebhook tells Telegram to deliver updates to url. Telegram will send
// secret in the X-Telegram-Bot-Api-Secret-Token header of every request.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	return c.call(ctx, "setWebhook", map[string]any{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": []string{"message", "callback_query"},
	}, nil)
}

// DeleteWebhook removes the webhook so updates can be polled.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", struct{}{}, nil)
}

// GetUpdates polls for updates after offset, waiting up to timeout for new
// ones to arrive.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "callback_query"},
	}, &updates)
	return updates, err
}

type sendMessageArgs struct {
	ChatID             int64                 `json:"chat_id"`
	Text               string                `json:"text"`
	ParseMode          string                `json:"parse_mode"`
	ReplyMarkup        *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
}

// SendMessage sends an HTML-formatted message to a chat. Texts longer than
// [MaxMessageLength] are split into several messages and the keyboard is
// attached to the last one, which is returned.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb *InlineKeyboardMarkup) (*Message, error) {
	chunks := splitMessage(text)
	if len(chunks) == 0 {
		return nil, errors.New("telegram: empty message")
	}
	var last Message
	for i, chunk := range chunks {
		args := &sendMessageArgs{ChatID: chatID, Text: chunk, ParseMode: parseMode}
		args.LinkPreviewOptions.IsDisabled = true
		if i == len(chunks)-1 {
			args.ReplyMarkup = kb
		}
		if err := c.call(ctx, "sendMessage", args, &last); err != nil {
			return nil, err
		}
	}
	return &last, nil
}

// EditMessageText replaces the text and keyboard of a message sent by the
// bot.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb *InlineKeyboardMarkup) error {
	args := map[string]any{
		"chat_id":              chatID,
		"message_id":           messageID,
		"text":                 text,
		"parse_mode":           parseMode,
		"link_preview_options": map[string]bool{"is_disabled": true},
	}
	if kb != nil {
		args["reply_markup"] = kb
	}
	err := c.call(ctx, "editMessageText", args, nil)
	var statusErr *request.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest &&
		bytes.Contains(statusErr.Body, []byte("message is not modified")) {
		return ErrNotModified
	}
	return err
}

// AnswerCallbackQuery acknowledges a button press, optionally showing text as
// a notification or, if alert is true, as an alert.
func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string, alert bool) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": id,
		"text":              text,
		"show_alert":        alert,
	}, nil)
}

// SendPhoto sends a photo by URL. Telegram downloads it itself.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	return c.call(ctx, "sendPhoto", map[string]any{
		"chat_id":    chatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": parseMode,
	}, nil)
}

// SendDocumentURL sends a document by URL. Telegram downloads it itself.
func (c *Client) SendDocumentURL(ctx context.Context, chatID int64, docURL, caption string) error {
	return c.call(ctx, "sendDocument", map[string]any{
		"chat_id":    chatID,
		"document":   docURL,
		"caption":    caption,
		"parse_mode": parseMode,
	}, nil)
}

// SendDocument uploads data as a file called filename.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	u, err := newUpload(map[string]string{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"caption":    caption,
		"parse_mode": parseMode,
	}, "document", filename, data)
	if err != nil {
		return err
	}
	return c.call(ctx, "sendDocument", u, nil)
}

func newUpload(fields map[string]string, fileField, filename string, data []byte) (*upload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	fw, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &upload{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

func splitMessage(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		if utf8.RuneCountInString(text) <= MaxMessageLength {
			chunks = append(chunks, text)
			break
		}

		var (
			lastNewline    = -1
			lastWhitespace = -1
			byteCap        = len(text)
			runeCount      int
		)
		for i, r := range text {
			if runeCount == MaxMessageLength {
				byteCap = i
				break
			}
			runeCount++
			if r == '\n' {
				lastNewline = i
				continue
			}
			if unicode.IsSpace(r) {
				lastWhitespace = i
			}
		}

		splitAt := byteCap
		switch {
		case lastNewline > 0:
			splitAt = lastNewline
		case lastWhitespace > 0:
			splitAt = lastWhitespace
		}

		if chunk := strings.TrimSpace(text[:splitAt]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[splitAt:])
	}
	return chunks
}
