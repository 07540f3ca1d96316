// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package github is a small client for the GitHub code search API and raw file
// contents.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.astrophena.name/tinkerbot/internal/request"
)

// DefaultAPI is the GitHub REST API root.
const DefaultAPI = "https://api.github.com"

// MaxRawSize is the maximum number of bytes read from a raw file.
const MaxRawSize = 1 << 20

var (
	// ErrQueryRejected is returned when GitHub refuses to parse a search query
	// (HTTP 422).
	ErrQueryRejected = errors.New("github: query rejected")
	// ErrRateLimited is returned when GitHub refuses a request because of rate
	// limiting or missing authentication (HTTP 403 and 429).
	ErrRateLimited = errors.New("github: rate limited")
)

// Client talks to the GitHub API.
type Client struct {
	// Token is an optional access token. Anonymous code search is heavily
	// rate limited.
	Token string
	// API is the API root. If empty, DefaultAPI is used.
	API string
	// HTTPClient is an optional custom HTTP client object to use for requests.
	HTTPClient *http.Client
	// Scrubber removes secrets from error messages.
	Scrubber *strings.Replacer
}

// CodeSearchResult is a page of code search results.
type CodeSearchResult struct {
	TotalCount int        `json:"total_count"`
	Items      []CodeItem `json:"items"`
}

// CodeItem is a single code search hit.
type CodeItem struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	HTMLURL    string     `json:"html_url"`
	Repository Repository `json:"repository"`
}

// Repository describes the repository of a [CodeItem].
type Repository struct {
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

func (c *Client) api() string {
	if c.API != "" {
		return strings.TrimSuffix(c.API, "/")
	}
	return DefaultAPI
}

// SearchCode runs a code search query and returns one page of results.
func (c *Client) SearchCode(ctx context.Context, query string, perPage, page int) (*CodeSearchResult, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("per_page", strconv.Itoa(perPage))
	v.Set("page", strconv.Itoa(page))

	headers := map[string]string{
		"Accept":               "application/vnd.github.text-match+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if c.Token != "" {
		headers["Authorization"] = "Bearer " + c.Token
	}

	res, err := request.Make[*CodeSearchResult](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        c.api() + "/search/code?" + v.Encode(),
		Headers:    headers,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
	if err != nil {
		return nil, classify(err)
	}
	if res == nil {
		res = new(CodeSearchResult)
	}
	return res, nil
}

// FetchRaw downloads the contents of a raw file URL. Files over MaxRawSize
// bytes fail with an error wrapping [request.ErrTooLarge].
func (c *Client) FetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	b, err := request.Bytes(ctx, request.Params{
		Method:     http.MethodGet,
		URL:        rawURL,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
		ReadLimit:  MaxRawSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching raw file: %w", err)
	}
	return b, nil
}

func classify(err error) error {
	var serr *request.StatusError
	if !errors.As(err, &serr) {
		return err
	}
	switch serr.StatusCode {
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", ErrQueryRejected, err)
	case http.StatusForbidden, http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return err
}
