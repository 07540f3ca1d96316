// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package session

import (
	"errors"
	"sync"
	"testing"

	"go.astrophena.name/tinkerbot/internal/catalog"
	"go.astrophena.name/tinkerbot/internal/search"
	"go.astrophena.name/tinkerbot/internal/testutil"
)

func TestActiveFacet(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		st     State
		want   search.Facet
		wantOK bool
	}{
		"idle with stale facet": {
			st:   State{Mode: ModeIdle, Facet: search.FacetCode},
			want: search.FacetNone,
		},
		"search without facet": {
			st:   State{Mode: ModeSearch, Facet: search.FacetNone},
			want: search.FacetNone,
		},
		"search with facet": {
			st:     State{Mode: ModeSearch, Facet: search.FacetSchematic},
			want:   search.FacetSchematic,
			wantOK: true,
		},
		"free search": {
			st:     State{Mode: ModeSearch, Facet: search.FacetFree},
			want:   search.FacetFree,
			wantOK: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok := tc.st.ActiveFacet()
			testutil.AssertEqual(t, got, tc.want)
			testutil.AssertEqual(t, ok, tc.wantOK)
		})
	}
}

func TestActiveDomain(t *testing.T) {
	t.Parallel()

	st := State{Domain: catalog.IoT}
	if _, ok := st.ActiveDomain(); ok {
		t.Fatal("domain trusted while idle")
	}
	st.StartSearch(search.FacetFree)
	d, ok := st.ActiveDomain()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, d, catalog.IoT)
}

func TestReset(t *testing.T) {
	t.Parallel()

	st := State{
		Mode:       ModeSearch,
		Facet:      search.FacetParts,
		Language:   search.LangCPP,
		Domain:     catalog.Robotics,
		CurrentLib: "numpy",
		LastQuery:  "l298n",
	}
	st.SetResults([]search.Result{{Name: "bom.csv"}})
	gen := st.Generation

	st.Reset()

	testutil.AssertEqual(t, st.Mode, ModeIdle)
	testutil.AssertEqual(t, st.Facet, search.FacetNone)
	testutil.AssertEqual(t, st.Domain, catalog.Category(""))
	testutil.AssertEqual(t, st.CurrentLib, "")
	testutil.AssertEqual(t, len(st.Results), 0)
	testutil.AssertEqual(t, st.Language, search.LangCPP)
	testutil.AssertEqual(t, st.LastQuery, "l298n")
	if st.Generation == gen {
		t.Fatal("Reset did not invalidate shown results")
	}
}

func TestResultSelection(t *testing.T) {
	t.Parallel()

	var st State
	first := st.SetResults([]search.Result{{Name: "a.ino"}, {Name: "b.ino"}})

	r, err := st.Result(first, 1)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, r.Name, "b.ino")

	cases := map[string]struct {
		gen uint64
		idx int
	}{
		"out of range": {gen: first, idx: 2},
		"negative":     {gen: first, idx: -1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := st.Result(tc.gen, tc.idx); !errors.Is(err, ErrStale) {
				t.Fatalf("Result() error = %v, want ErrStale", err)
			}
		})
	}

	second := st.SetResults([]search.Result{{Name: "c.ino"}})
	if _, err := st.Result(first, 0); !errors.Is(err, ErrStale) {
		t.Fatalf("old generation accepted: %v", err)
	}
	r, err = st.Result(second, 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, r.Name, "c.ino")
}

func TestStore(t *testing.T) {
	t.Parallel()

	s := New(2)
	testutil.AssertEqual(t, s.Get(1), State{})

	s.Update(1, func(st *State) { st.StartSearch(search.FacetCode) })
	s.Update(2, func(st *State) { st.LastQuery = "esp32" })

	got := s.Get(1)
	testutil.AssertEqual(t, got.Mode, ModeSearch)

	// Copies do not write through.
	got.Mode = ModeIdle
	testutil.AssertEqual(t, s.Get(1).Mode, ModeSearch)

	// User 2 is the least recently used now and gets evicted.
	s.Update(3, func(st *State) {})
	testutil.AssertEqual(t, s.Len(), 2)
	testutil.AssertEqual(t, s.Get(2).LastQuery, "")

	s.Delete(1)
	testutil.AssertEqual(t, s.Get(1).Mode, ModeIdle)
}

func TestStoreConcurrentUpdates(t *testing.T) {
	t.Parallel()

	s := New(0)
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(42, func(st *State) { st.SetResults(nil) })
		}()
	}
	wg.Wait()
	testutil.AssertEqual(t, s.Get(42).Generation, uint64(100))
}
