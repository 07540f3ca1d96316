// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.astrophena.name/tinkerbot/internal/request"
	"go.astrophena.name/tinkerbot/internal/testutil"
)

// Typical Telegram Bot API token, copied from docs.
const tgToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want []string
	}{
		"empty":             {in: "  ", want: nil},
		"short":             {in: "hello", want: []string{"hello"}},
		"exact":             {in: strings.Repeat("a", 4096), want: []string{strings.Repeat("a", 4096)}},
		"long (no newline)": {in: strings.Repeat("a", 4100), want: []string{strings.Repeat("a", 4096), "aaaa"}},
		"long (single line with spaces)": {
			in:   strings.Repeat("a", 3000) + " " + strings.Repeat("b", 1500),
			want: []string{strings.Repeat("a", 3000), strings.Repeat("b", 1500)},
		},
		"long (newline split)": {
			in:   strings.Repeat("a", 4000) + "\n" + strings.Repeat("b", 100),
			want: []string{strings.Repeat("a", 4000), strings.Repeat("b", 100)},
		},
		"multi-byte unicode": {
			in:   strings.Repeat("🙂", 4095) + "\n" + "🙂",
			want: []string{strings.Repeat("🙂", 4095), "🙂"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, splitMessage(tc.in), tc.want)
		})
	}
}

func TestSplitMessageNewlineRich(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("line\n", 900)
	got := splitMessage(in)
	if len(got) < 2 {
		t.Fatalf("want at least 2 chunks, got %d", len(got))
	}
	for i, chunk := range got {
		if utf8.RuneCountInString(chunk) > MaxMessageLength {
			t.Fatalf("chunk %d exceeds rune cap: %d", i, utf8.RuneCountInString(chunk))
		}
	}
	testutil.AssertEqual(t, strings.Join(got, "\n"), strings.TrimSpace(in))
}

func TestRateLimitRetry(t *testing.T) {
	t.Parallel()

	c := New(Config{Token: tgToken})
	var calls int
	c.makeRequest = func(context.Context, string, any) (json.RawMessage, error) {
		calls++
		if calls == 1 {
			return nil, &request.StatusError{StatusCode: 429, Body: []byte(`{"ok":false,"parameters":{"retry_after":1}}`)}
		}
		return json.RawMessage(`{"message_id": 7, "chat": {"id": 1}}`), nil
	}
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return true
	}

	msg, err := c.SendMessage(t.Context(), 1, "hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, msg.ID, int64(7))
	testutil.AssertEqual(t, calls, 2)
	testutil.AssertEqual(t, waits, []time.Duration{time.Second})
}

func TestRateLimitGivesUp(t *testing.T) {
	t.Parallel()

	c := New(Config{Token: tgToken})
	var calls int
	c.makeRequest = func(context.Context, string, any) (json.RawMessage, error) {
		calls++
		return nil, &request.StatusError{StatusCode: 429, Body: []byte(`{"parameters":{"retry_after":1}}`)}
	}
	c.sleep = func(context.Context, time.Duration) bool { return true }

	if err := c.AnswerCallbackQuery(t.Context(), "q", "", false); err == nil {
		t.Fatal("want error after exhausting retries")
	}
	testutil.AssertEqual(t, calls, sendRetryLimit)
}

func TestNonRetryableError(t *testing.T) {
	t.Parallel()

	c := New(Config{Token: tgToken})
	wantErr := errors.New("boom")
	c.makeRequest = func(context.Context, string, any) (json.RawMessage, error) { return nil, wantErr }
	c.sleep = func(context.Context, time.Duration) bool {
		t.Fatal("sleep should not be called for non-retryable errors")
		return false
	}

	if _, err := c.SendMessage(t.Context(), 1, "hello", nil); !errors.Is(err, wantErr) {
		t.Fatalf("SendMessage() error = %v, want %v", err, wantErr)
	}
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err      error
		retry    bool
		waitTime time.Duration
	}{
		"rate-limited": {
			err:      &request.StatusError{StatusCode: 429, Body: []byte(`{"parameters":{"retry_after":3}}`)},
			retry:    true,
			waitTime: 3 * time.Second,
		},
		"bad body": {
			err: &request.StatusError{StatusCode: 429, Body: []byte(`oops`)},
		},
		"other status": {
			err: &request.StatusError{StatusCode: 500, Body: []byte(`{}`)},
		},
		"other error": {
			err: fmt.Errorf("network"),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			retry, wait := isRateLimited(tc.err)
			testutil.AssertEqual(t, retry, tc.retry)
			testutil.AssertEqual(t, wait, tc.waitTime)
		})
	}
}

type recordedCall struct {
	method string
	body   map[string]any
}

// testAPI is a fake Bot API that records calls and replies with ok.
type testAPI struct {
	mu    sync.Mutex
	calls []recordedCall
	reply map[string]string // method → result JSON
	fail  map[string]string // method → error response JSON, sent with 400
}

func (a *testAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")
	body := make(map[string]any)
	ct, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			b, _ := io.ReadAll(p)
			if p.FileName() != "" {
				body["filename"] = p.FileName()
			}
			body[p.FormName()] = string(b)
		}
	} else {
		json.NewDecoder(r.Body).Decode(&body)
	}

	a.mu.Lock()
	a.calls = append(a.calls, recordedCall{method: method, body: body})
	fail, failed := a.fail[method]
	result, ok := a.reply[method]
	a.mu.Unlock()

	if failed {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, fail)
		return
	}
	if !ok {
		result = "true"
	}
	fmt.Fprintf(w, `{"ok": true, "result": %s}`, result)
}

func (a *testAPI) recorded() []recordedCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedCall(nil), a.calls...)
}

func testClient(api *testAPI) *Client {
	mux := http.NewServeMux()
	mux.Handle("POST api.telegram.org/bot"+tgToken+"/{method}", api)
	return New(Config{Token: tgToken, HTTPClient: testutil.MockHTTPClient(mux)})
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	api := &testAPI{reply: map[string]string{
		"sendMessage": `{"message_id": 42, "chat": {"id": 100, "type": "private"}, "text": "hi"}`,
	}}
	c := testClient(api)

	kb := Keyboard([]InlineKeyboardButton{Button("Home", "home")})
	msg, err := c.SendMessage(t.Context(), 100, "<b>hi</b>", kb)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, msg.ID, int64(42))

	calls := api.recorded()
	testutil.AssertEqual(t, len(calls), 1)
	testutil.AssertEqual(t, calls[0].method, "sendMessage")
	testutil.AssertEqual(t, calls[0].body["text"], "<b>hi</b>")
	testutil.AssertEqual(t, calls[0].body["parse_mode"], "HTML")
	testutil.AssertEqual(t, calls[0].body["chat_id"], float64(100))
	if calls[0].body["reply_markup"] == nil {
		t.Error("reply_markup is missing")
	}
}

func TestSendMessageSplitsAndAttachesKeyboardToLast(t *testing.T) {
	t.Parallel()

	api := &testAPI{reply: map[string]string{"sendMessage": `{"message_id": 1, "chat": {"id": 1}}`}}
	c := testClient(api)

	text := strings.Repeat("a", 4000) + "\n" + strings.Repeat("b", 200)
	if _, err := c.SendMessage(t.Context(), 1, text, Keyboard([]InlineKeyboardButton{Button("x", "x")})); err != nil {
		t.Fatal(err)
	}
	calls := api.recorded()
	testutil.AssertEqual(t, len(calls), 2)
	if calls[0].body["reply_markup"] != nil {
		t.Error("first chunk carries a keyboard")
	}
	if calls[1].body["reply_markup"] == nil {
		t.Error("last chunk has no keyboard")
	}
}

func TestEditMessageTextNotModified(t *testing.T) {
	t.Parallel()

	api := &testAPI{fail: map[string]string{
		"editMessageText": `{"ok": false, "error_code": 400, "description": "Bad Request: message is not modified"}`,
	}}
	err := testClient(api).EditMessageText(t.Context(), 1, 2, "same", nil)
	if !errors.Is(err, ErrNotModified) {
		t.Fatalf("want ErrNotModified, got %v", err)
	}
}

func TestSendDocumentUpload(t *testing.T) {
	t.Parallel()

	api := &testAPI{}
	c := testClient(api)

	if err := c.SendDocument(t.Context(), 5, "robot.zip", []byte("PK\x03\x04"), "All files"); err != nil {
		t.Fatal(err)
	}
	calls := api.recorded()
	testutil.AssertEqual(t, len(calls), 1)
	testutil.AssertEqual(t, calls[0].body, map[string]any{
		"chat_id":    "5",
		"caption":    "All files",
		"parse_mode": "HTML",
		"document":   "PK\x03\x04",
		"filename":   "robot.zip",
	})
}

func TestSendByURL(t *testing.T) {
	t.Parallel()

	api := &testAPI{}
	c := testClient(api)

	if err := c.SendPhoto(t.Context(), 5, "https://raw.githubusercontent.com/a/b/main/x.png", "x"); err != nil {
		t.Fatal(err)
	}
	if err := c.SendDocumentURL(t.Context(), 5, "https://raw.githubusercontent.com/a/b/main/x.pdf", "y"); err != nil {
		t.Fatal(err)
	}
	calls := api.recorded()
	testutil.AssertEqual(t, calls[0].method, "sendPhoto")
	testutil.AssertEqual(t, calls[0].body["photo"], "https://raw.githubusercontent.com/a/b/main/x.png")
	testutil.AssertEqual(t, calls[1].method, "sendDocument")
	testutil.AssertEqual(t, calls[1].body["document"], "https://raw.githubusercontent.com/a/b/main/x.pdf")
}

func TestWebhookMethods(t *testing.T) {
	t.Parallel()

	api := &testAPI{reply: map[string]string{
		"getMe": `{"id": 1, "is_bot": true, "first_name": "Tinker", "username": "tinker_bot"}`,
	}}
	c := testClient(api)

	me, err := c.GetMe(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, me.Username, "tinker_bot")

	if err := c.SetWebhook(t.Context(), "https://example.com/webhook", "s3cret"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteWebhook(t.Context()); err != nil {
		t.Fatal(err)
	}

	calls := api.recorded()
	testutil.AssertEqual(t, calls[1].body["url"], "https://example.com/webhook")
	testutil.AssertEqual(t, calls[1].body["secret_token"], "s3cret")
	testutil.AssertEqual(t, calls[2].method, "deleteWebhook")
}

func TestErrorScrubbed(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST api.telegram.org/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok": false, "description": "Unauthorized"}`, http.StatusUnauthorized)
	})
	c := New(Config{
		Token:      tgToken,
		HTTPClient: testutil.MockHTTPClient(mux),
		Scrubber:   strings.NewReplacer(tgToken, "[EXPUNGED]"),
	})
	_, err := c.GetMe(t.Context())
	if err == nil {
		t.Fatal("want error")
	}
	if strings.Contains(err.Error(), tgToken) {
		t.Fatalf("token leaked into error: %v", err)
	}
}

func TestPoll(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		offsets []float64
		polls   int
	)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST api.telegram.org/bot"+tgToken+"/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		json.NewDecoder(r.Body).Decode(&args)
		mu.Lock()
		offsets = append(offsets, args["offset"].(float64))
		polls++
		n := polls
		mu.Unlock()
		switch n {
		case 1:
			io.WriteString(w, `{"ok": true, "result": [
				{"update_id": 10, "message": {"message_id": 1, "chat": {"id": 1}, "text": "/start"}},
				{"update_id": 11, "callback_query": {"id": "q", "from": {"id": 2}, "data": "home"}}
			]}`)
		default:
			cancel()
			io.WriteString(w, `{"ok": true, "result": []}`)
		}
	})
	c := New(Config{Token: tgToken, HTTPClient: testutil.MockHTTPClient(mux)})

	var (
		hmu     sync.Mutex
		handled []int64
	)
	err := c.Poll(ctx, func(_ context.Context, u *Update) {
		hmu.Lock()
		defer hmu.Unlock()
		handled = append(handled, u.ID)
	})
	if err != nil {
		t.Fatal(err)
	}

	hmu.Lock()
	testutil.AssertEqual(t, len(handled), 2)
	hmu.Unlock()
	mu.Lock()
	testutil.AssertEqual(t, offsets[:2], []float64{0, 12})
	mu.Unlock()
}

func TestUpdateUserID(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		u    Update
		want int64
	}{
		"message":  {u: Update{Message: &Message{From: &User{ID: 3}}}, want: 3},
		"callback": {u: Update{CallbackQuery: &CallbackQuery{From: User{ID: 4}}}, want: 4},
		"channel":  {u: Update{Message: &Message{}}, want: 0},
		"empty":    {want: 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, tc.u.UserID(), tc.want)
		})
	}
}

func TestGrid(t *testing.T) {
	t.Parallel()

	b := func(s string) InlineKeyboardButton { return Button(s, s) }
	got := Grid(2, b("a"), b("b"), b("c"))
	testutil.AssertEqual(t, got, [][]InlineKeyboardButton{{b("a"), b("b")}, {b("c")}})
	testutil.AssertEqual(t, len(Keyboard(nil, got[0]).InlineKeyboard), 1)
}

func TestEscape(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, Escape(`<a href="x">&</a>`), "&lt;a href=&#34;x&#34;&gt;&amp;&lt;/a&gt;")
}
