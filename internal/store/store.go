package store

import (
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"servicecatalog/engine/internal/domain"
)

var ErrNotFound = errors.New("entity not found")

// Store is an immutable index over one validated catalog. All methods are safe
// for concurrent use because nothing is written after New returns.
type Store struct {
	catalog  *domain.Catalog
	byID     map[string]domain.Entity
	children map[string][]domain.Entity
	order    []domain.Entity // depth-first declaration order
}

// New indexes every entity of the catalog by id and by parent id.
func New(catalog *domain.Catalog) *Store {
	s := &Store{
		catalog:  catalog,
		byID:     make(map[string]domain.Entity),
		children: make(map[string][]domain.Entity),
	}
	if catalog == nil {
		s.catalog = &domain.Catalog{}
		return s
	}

	for _, c := range catalog.Categories {
		s.index(c)
		for _, o := range c.Offerings {
			s.index(o)
			switch o := o.(type) {
			case *domain.Package:
				for _, t := range o.Tiers {
					s.index(t)
					s.indexDiscounts(t.Pricing)
				}
			case *domain.Retainer:
				s.indexDiscounts(o.Pricing)
				for _, m := range o.Modules {
					s.index(m)
				}
			}
		}
	}
	return s
}

func (s *Store) index(e domain.Entity) {
	s.byID[e.EntityID()] = e
	s.children[e.ParentID()] = append(s.children[e.ParentID()], e)
	s.order = append(s.order, e)
}

func (s *Store) indexDiscounts(p domain.Pricing) {
	for _, d := range domain.DiscountsOf(p) {
		s.index(d)
	}
}

// Get returns the entity with the given id or an error wrapping ErrNotFound.
func (s *Store) Get(id string) (domain.Entity, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Children returns the direct children of id in declared order. Discounts are
// children of the tier or retainer whose pricing declares them.
func (s *Store) Children(id string) []domain.Entity {
	kids := s.children[id]
	out := make([]domain.Entity, len(kids))
	copy(out, kids)
	return out
}

// All yields every entity of the given kind in declared order. Each call starts
// a fresh traversal.
func (s *Store) All(kind domain.Kind) iter.Seq[domain.Entity] {
	return func(yield func(domain.Entity) bool) {
		for _, e := range s.order {
			if e.EntityKind() != kind {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Catalog returns the catalog the store was built from.
func (s *Store) Catalog() *domain.Catalog {
	return s.catalog
}

// Len is the number of indexed entities.
func (s *Store) Len() int {
	return len(s.order)
}

// Handle publishes the current store. Readers call Current and keep using the
// returned store for the rest of their operation; a reload publishes a fresh
// store with Swap.
type Handle struct {
	current atomic.Pointer[Store]
}

func NewHandle(s *Store) *Handle {
	h := &Handle{}
	if s != nil {
		h.current.Store(s)
	}
	return h
}

// Current returns the published store, or nil before the first load.
func (h *Handle) Current() *Store {
	return h.current.Load()
}

// Swap publishes s and returns the store it replaced.
func (h *Handle) Swap(s *Store) *Store {
	return h.current.Swap(s)
}
