// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package session keeps per-user navigation and search state.
package session

import (
	"errors"
	"sync"

	"go.astrophena.name/tinkerbot/internal/catalog"
	"go.astrophena.name/tinkerbot/internal/search"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the default number of users a [Store] remembers.
const DefaultSize = 10_000

// ErrStale is returned by [State.Result] when the selection refers to results
// that were replaced by a newer search or does not exist.
var ErrStale = errors.New("session: stale selection")

// Mode is what the bot expects from the user next.
type Mode int

const (
	// ModeIdle means the user is navigating menus. Text messages are not
	// treated as queries.
	ModeIdle Mode = iota
	// ModeSearch means the next text message is a search query.
	ModeSearch
)

// State is the state of a single user.
type State struct {
	Mode     Mode
	Facet    search.Facet
	Language search.Language
	// Domain is the catalog category the user browsed last. Local searches
	// are narrowed to it while set.
	Domain catalog.Category
	// CurrentLib is the library shown last, used by download buttons.
	CurrentLib string
	LastQuery  string
	// Results are the external results shown last.
	Results []search.Result
	// Generation increments every time Results is replaced.
	Generation uint64
}

// ActiveFacet returns the facet of the running search. ok is false when no
// search is running or no facet was chosen yet.
func (s *State) ActiveFacet() (f search.Facet, ok bool) {
	if s.Mode != ModeSearch || s.Facet == search.FacetNone {
		return search.FacetNone, false
	}
	return s.Facet, true
}

// ActiveDomain returns the category a running search is narrowed to.
func (s *State) ActiveDomain() (catalog.Category, bool) {
	if s.Mode != ModeSearch || s.Domain == "" {
		return "", false
	}
	return s.Domain, true
}

// StartSearch enters search mode with facet f, which may be
// [search.FacetNone] when the user has not chosen one yet.
func (s *State) StartSearch(f search.Facet) {
	s.Mode = ModeSearch
	s.Facet = f
}

// Reset returns to idle, forgetting the facet, domain and results. The
// language filter is a preference and survives.
func (s *State) Reset() {
	s.Mode = ModeIdle
	s.Facet = search.FacetNone
	s.Domain = ""
	s.CurrentLib = ""
	s.SetResults(nil)
}

// SetResults replaces the shown results and returns the new generation.
func (s *State) SetResults(results []search.Result) uint64 {
	s.Results = results
	s.Generation++
	return s.Generation
}

// Result returns the result at index i of generation gen.
func (s *State) Result(gen uint64, i int) (search.Result, error) {
	if gen != s.Generation || i < 0 || i >= len(s.Results) {
		return search.Result{}, ErrStale
	}
	return s.Results[i], nil
}

// Store holds the state of recently active users. The least recently used
// users are forgotten when the store is full.
type Store struct {
	mu    sync.Mutex
	users *lru.Cache[int64, *State]
}

// New returns a Store remembering up to size users. Non-positive sizes mean
// [DefaultSize].
func New(size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	users, err := lru.New[int64, *State](size)
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}
	return &Store{users: users}
}

// Get returns a copy of the state of user.
func (s *Store) Get(user int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.users.Get(user); ok {
		return *st
	}
	return State{}
}

// Update calls f with the state of user under the store's lock and returns a
// copy of the result. f must not retain the pointer.
func (s *Store) Update(user int64, f func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users.Get(user)
	if !ok {
		st = new(State)
		s.users.Add(user, st)
	}
	f(st)
	return *st
}

// Delete forgets user.
func (s *Store) Delete(user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.Remove(user)
}

// Len returns the number of remembered users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.Len()
}
