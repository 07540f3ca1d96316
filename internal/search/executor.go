// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.astrophena.name/tinkerbot/internal/github"
	"go.astrophena.name/tinkerbot/internal/logger"

	"golang.org/x/time/rate"
)

const (
	// DefaultLimit is the number of results collected when no limit is given.
	DefaultLimit = 10
	// MaxPerPage is the largest page size requested from the search API.
	MaxPerPage = 10
	// DefaultInterval is the default pause between two queries.
	DefaultInterval = 500 * time.Millisecond
)

// CodeSearcher runs GitHub code search queries. [*github.Client] implements it.
type CodeSearcher interface {
	SearchCode(ctx context.Context, query string, perPage, page int) (*github.CodeSearchResult, error)
}

// Executor runs query variants against the code search API.
//
// Queries are issued strictly one after another. An Executor is safe for
// concurrent use if its CodeSearcher is.
type Executor struct {
	searcher CodeSearcher
	limiter  *rate.Limiter
	log      *slog.Logger
}

// Option configures an [Executor].
type Option func(*Executor)

// WithLimiter paces queries with l instead of the default of one query per
// [DefaultInterval]. A nil l disables pacing.
func WithLimiter(l *rate.Limiter) Option { return func(e *Executor) { e.limiter = l } }

// WithLogger sets the logger of the executor.
func WithLogger(l *slog.Logger) Option { return func(e *Executor) { e.log = l } }

// NewExecutor returns an Executor that searches with s.
func NewExecutor(s CodeSearcher, opts ...Option) *Executor {
	e := &Executor{
		searcher: s,
		limiter:  rate.NewLimiter(rate.Every(DefaultInterval), 1),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	return e
}

// Run issues queries in order until limit distinct results are collected or
// the queries run out. Noise paths ([IsNoise]) are dropped and do not count
// toward limit.
//
// perPage is clamped to 1..[MaxPerPage] and a limit of zero or less means
// [DefaultLimit]. A query the API rejects as malformed is retried once in a
// simplified form ([SimplifyQuery]). Transient failures skip the query.
//
// When the API reports rate limiting, Run stops and returns the results
// collected so far with an error wrapping [github.ErrRateLimited]. When ctx is
// done, or the next query could not start before its deadline, it returns the
// results collected so far with the context error.
func (e *Executor) Run(ctx context.Context, queries []string, perPage, limit int) ([]Result, error) {
	perPage = min(max(perPage, 1), MaxPerPage)
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		results []Result
		seen    = make(map[string]bool)
	)
	for i, q := range queries {
		if len(results) >= limit {
			break
		}

		items, err := e.query(ctx, q, perPage)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			e.log.Debug("no time left for the next query", "query", q, "issued", i)
			return results, err
		}
		if errors.Is(err, github.ErrRateLimited) {
			e.log.Warn("rate limited, stopping search", "query", q, "issued", i+1)
			return results, fmt.Errorf("search stopped after %d of %d queries: %w", i+1, len(queries), err)
		}
		if err != nil {
			e.log.Warn("query failed", "query", q, "error", err)
			continue
		}

		for _, it := range items {
			r := resultFromItem(it)
			if seen[r.Key()] || IsNoise(r.Path) {
				continue
			}
			seen[r.Key()] = true
			results = append(results, r)
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// query runs q, retrying a rejected query once in simplified form. A failed
// retry contributes no items and no error, unless it was rate limited.
func (e *Executor) query(ctx context.Context, q string, perPage int) ([]github.CodeItem, error) {
	res, err := e.search(ctx, q, perPage)
	if err == nil {
		return res.Items, nil
	}
	if !errors.Is(err, github.ErrQueryRejected) {
		return nil, err
	}

	simplified := SimplifyQuery(q)
	e.log.Debug("query rejected, retrying simplified", "query", q, "simplified", simplified)
	res, err = e.search(ctx, simplified, perPage)
	if err == nil {
		return res.Items, nil
	}
	if errors.Is(err, github.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	e.log.Warn("simplified query failed, skipping", "query", simplified, "error", err)
	return nil, nil
}

func (e *Executor) search(ctx context.Context, q string, perPage int) (*github.CodeSearchResult, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Wait fails early when the next token is due after the deadline.
			if _, ok := ctx.Deadline(); ok {
				return nil, context.DeadlineExceeded
			}
			return nil, err
		}
	}
	res, err := e.searcher.SearchCode(ctx, q, perPage, 1)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = new(github.CodeSearchResult)
	}
	return res, nil
}

// Search builds the query variants for term within facet, runs them and ranks
// the outcome by score. Errors are those of [Executor.Run]; the results collected
// before the error are still returned.
func (e *Executor) Search(ctx context.Context, facet Facet, term string, lang Language) ([]Result, error) {
	results, err := e.Run(ctx, BuildQueries(facet, term, lang), MaxPerPage, DefaultLimit)
	return Rank(facet, results), err
}
