package store_test

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"servicecatalog/engine/internal/catalogtest"
	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/store"
)

func TestRoundTrip(t *testing.T) {
	catalog := catalogtest.Catalog(t)
	s := store.New(catalog)

	check := func(e domain.Entity) {
		t.Helper()
		got, err := s.Get(e.EntityID())
		if err != nil {
			t.Fatalf("Get(%s): %v", e.EntityID(), err)
		}
		if got != e {
			t.Fatalf("Get(%s) returned a different entity", e.EntityID())
		}
	}

	count := 0
	for _, c := range catalog.Categories {
		check(c)
		count++
		for _, o := range c.Offerings {
			check(o)
			count++
			switch o := o.(type) {
			case *domain.Package:
				for _, tier := range o.Tiers {
					check(tier)
					count++
					for _, d := range domain.DiscountsOf(tier.Pricing) {
						check(d)
						count++
					}
				}
			case *domain.Retainer:
				for _, m := range o.Modules {
					check(m)
					count++
				}
			}
		}
	}

	if s.Len() != count {
		t.Fatalf("Len = %d, want %d", s.Len(), count)
	}
}

func TestGetUnknown(t *testing.T) {
	s := catalogtest.Store(t)

	_, err := s.Get("9.9.9")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get(9.9.9) error = %v, want ErrNotFound", err)
	}
}

func TestChildren(t *testing.T) {
	s := catalogtest.Store(t)

	cases := []struct {
		id   string
		want []string
	}{
		{"", []string{"1", "2"}},
		{"1", []string{"1.1", "1.2", "1.3", "1.4"}},
		{"1.1", []string{"1.1.1", "1.1.2"}},
		{"2.1.1", []string{"2.1.1:1", "2.1.1:2"}},
		{"2.3", []string{"2.3.1", "2.3.2", "2.3.3", "2.3.4"}},
		{"1.1.1", []string{}},
		{"404", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			if got := ids(s.Children(tc.id)); !slices.Equal(got, tc.want) {
				t.Fatalf("Children(%q) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}

func TestAllIsRestartable(t *testing.T) {
	s := catalogtest.Store(t)

	var first []string
	for e := range s.All(domain.KindRetainer) {
		first = append(first, e.EntityID())
	}
	if !slices.Equal(first, []string{"1.4", "2.3"}) {
		t.Fatalf("retainers = %v", first)
	}

	seq := s.All(domain.KindTier)
	var a, b []string
	for e := range seq {
		a = append(a, e.EntityID())
		if len(a) == 2 {
			break
		}
	}
	for e := range seq {
		b = append(b, e.EntityID())
	}
	if !slices.Equal(a, []string{"1.1.1", "1.1.2"}) {
		t.Fatalf("early stop yielded %v", a)
	}
	if len(b) != 10 || b[0] != "1.1.1" {
		t.Fatalf("second traversal = %v", b)
	}
}

func TestEmptyStore(t *testing.T) {
	s := store.New(nil)
	if s.Len() != 0 || len(s.Catalog().Categories) != 0 {
		t.Fatal("nil catalog must produce an empty store")
	}
	for range s.All(domain.KindCategory) {
		t.Fatal("empty store yielded an entity")
	}
}

func TestHandleSwap(t *testing.T) {
	h := store.NewHandle(nil)
	if h.Current() != nil {
		t.Fatal("handle must start empty")
	}

	first := catalogtest.Store(t)
	second := catalogtest.Store(t)

	if prev := h.Swap(first); prev != nil {
		t.Fatal("first swap returned a previous store")
	}

	held := h.Current()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cur := h.Current(); cur != first && cur != second {
				t.Error("reader observed an unknown store")
			}
		}()
	}
	if prev := h.Swap(second); prev != first {
		t.Fatal("swap did not return the replaced store")
	}
	wg.Wait()

	if held != first {
		t.Fatal("a reader's store changed under it")
	}
	if _, err := held.Get("1.1.1"); err != nil {
		t.Fatalf("old store unusable after swap: %v", err)
	}
	if h.Current() != second {
		t.Fatal("Current does not return the swapped store")
	}
}

func ids(es []domain.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.EntityID())
	}
	return out
}
