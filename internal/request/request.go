// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package request provides utilities for making HTTP requests.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.astrophena.name/tinkerbot/internal/version"
)

// DefaultClient is a [http.Client] with nice defaults.
var DefaultClient = &http.Client{
	Timeout: 25 * time.Second,
}

// DefaultReadLimit is the response body size limit used when
// [Params.ReadLimit] is not set.
const DefaultReadLimit = 8 << 20 // 8 MiB

// ErrTooLarge is returned when a successful response body is longer than the
// read limit.
var ErrTooLarge = errors.New("response body too large")

// Params defines the parameters needed for making an HTTP request.
type Params struct {
	// Method is the HTTP method (GET, POST, etc.) for the request.
	Method string
	// URL is the target URL of the request.
	URL string
	// Headers is a map of key-value pairs for additional request headers.
	Headers map[string]string
	// Body is any data to be sent in the request body. It will be marshaled to
	// JSON, unless it's an io.Reader, which is sent as is.
	Body any
	// HTTPClient is an optional custom HTTP client object to use for the request.
	// If not provided, DefaultClient will be used.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
	// ReadLimit limits the number of response body bytes read. Zero means
	// DefaultReadLimit. A longer successful response fails with ErrTooLarge.
	ReadLimit int64
}

// StatusError is returned when the server responded with a status code other
// than 200 OK.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	const maxBody = 400
	body := e.Body
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return fmt.Sprintf("%s %q: want 200, got %d: %s", e.Method, e.URL, e.StatusCode, body)
}

type scrubbedError struct {
	err      error
	scrubber *strings.Replacer
}

func (se *scrubbedError) Error() string {
	if se.scrubber != nil {
		return se.scrubber.Replace(se.err.Error())
	}
	return se.err.Error()
}

func (se *scrubbedError) Unwrap() error { return se.err }

func scrubErr(err error, scrubber *strings.Replacer) error {
	return &scrubbedError{err: err, scrubber: scrubber}
}

// IgnoreResponse is a type to use with [Make] when the response body should be
// discarded.
type IgnoreResponse struct{}

// Make makes a HTTP request with the provided parameters and unmarshals the
// JSON response body into the specified type.
func Make[Response any](ctx context.Context, p Params) (Response, error) {
	var resp Response

	b, err := Bytes(ctx, p)
	if err != nil {
		return resp, err
	}

	if _, ok := any(resp).(IgnoreResponse); ok {
		return resp, nil
	}

	if err := json.Unmarshal(b, &resp); err != nil {
		return resp, scrubErr(err, p.Scrubber)
	}

	return resp, nil
}

// Bytes makes a HTTP request with the provided parameters and returns the raw
// response body.
func Bytes(ctx context.Context, p Params) ([]byte, error) {
	var br io.Reader
	var isJSON bool
	switch body := p.Body.(type) {
	case nil:
	case io.Reader:
		br = body
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, scrubErr(err, p.Scrubber)
		}
		br = bytes.NewReader(data)
		isJSON = true
	}

	method := p.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, p.URL, br)
	if err != nil {
		return nil, scrubErr(err, p.Scrubber)
	}

	req.Header.Set("User-Agent", version.UserAgent())
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	httpc := DefaultClient
	if p.HTTPClient != nil {
		httpc = p.HTTPClient
	}

	res, err := httpc.Do(req)
	if err != nil {
		return nil, scrubErr(err, p.Scrubber)
	}
	defer res.Body.Close()

	limit := p.ReadLimit
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	b, err := io.ReadAll(io.LimitReader(res.Body, limit+1))
	if err != nil {
		return nil, scrubErr(err, p.Scrubber)
	}
	tooLarge := int64(len(b)) > limit
	if tooLarge {
		b = b[:limit]
	}

	if res.StatusCode != http.StatusOK {
		return nil, scrubErr(&StatusError{
			Method:     method,
			URL:        p.URL,
			StatusCode: res.StatusCode,
			Body:       b,
		}, p.Scrubber)
	}
	if tooLarge {
		return nil, scrubErr(fmt.Errorf("%s %s: %w (limit %d bytes)", method, p.URL, ErrTooLarge, limit), p.Scrubber)
	}

	return b, nil
}

// UserAgent returns a user agent string for outgoing requests.
func UserAgent() string { return version.UserAgent() }
