package query

import (
	"strings"

	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/store"
)

// Query is a read-only view over one store. Unknown ids and filters produce empty
// results, never errors.
type Query struct {
	store *store.Store
	index []document
}

func New(s *store.Store) *Query {
	if s == nil {
		s = store.New(nil)
	}
	return &Query{store: s, index: buildIndex(s)}
}

func (q *Query) Store() *store.Store {
	return q.store
}

func (q *Query) Categories() []*domain.ServiceCategory {
	return collect[*domain.ServiceCategory](q.store.Children(""))
}

func (q *Query) Category(id string) (*domain.ServiceCategory, bool) {
	e, err := q.store.Get(id)
	if err != nil {
		return nil, false
	}
	c, ok := e.(*domain.ServiceCategory)
	return c, ok
}

// CategoryByName matches the service name case-insensitively.
func (q *Query) CategoryByName(name string) (*domain.ServiceCategory, bool) {
	name = strings.TrimSpace(name)
	for _, c := range q.Categories() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

func (q *Query) Offerings(categoryID string) []domain.Offering {
	if _, ok := q.Category(categoryID); !ok {
		return []domain.Offering{}
	}
	return collect[domain.Offering](q.store.Children(categoryID))
}

func (q *Query) Packages(categoryID string) []*domain.Package {
	if _, ok := q.Category(categoryID); !ok {
		return []*domain.Package{}
	}
	return collect[*domain.Package](q.store.Children(categoryID))
}

func (q *Query) Retainers(categoryID string) []*domain.Retainer {
	if _, ok := q.Category(categoryID); !ok {
		return []*domain.Retainer{}
	}
	return collect[*domain.Retainer](q.store.Children(categoryID))
}

func (q *Query) Tiers(packageID string) []*domain.Tier {
	return collect[*domain.Tier](q.store.Children(packageID))
}

func (q *Query) Modules(retainerID string) []*domain.AddOnModule {
	return collect[*domain.AddOnModule](q.store.Children(retainerID))
}

// Discounts lists the discounts declared on the pricing of a tier or retainer.
func (q *Query) Discounts(ownerID string) []*domain.Discount {
	return collect[*domain.Discount](q.store.Children(ownerID))
}

// FilterByKeyword returns the categories with a keyword containing kw, ignoring case.
func (q *Query) FilterByKeyword(kw string) []*domain.ServiceCategory {
	kw = strings.ToLower(strings.TrimSpace(kw))
	out := []*domain.ServiceCategory{}
	if kw == "" {
		return out
	}

	for _, c := range q.Categories() {
		for _, k := range c.Keywords {
			if strings.Contains(strings.ToLower(k), kw) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// PreviousWork returns the examples attached to a tier or package.
func (q *Query) PreviousWork(id string) []domain.PreviousWorkExample {
	e, err := q.store.Get(id)
	if err != nil {
		return []domain.PreviousWorkExample{}
	}

	var examples []domain.PreviousWorkExample
	switch v := e.(type) {
	case *domain.Tier:
		examples = v.PreviousWork
	case *domain.Package:
		examples = v.PreviousWork
	}
	return append([]domain.PreviousWorkExample{}, examples...)
}

func (q *Query) Testimonials(retainerID string) []domain.Testimonial {
	e, err := q.store.Get(retainerID)
	if err != nil {
		return []domain.Testimonial{}
	}
	r, ok := e.(*domain.Retainer)
	if !ok {
		return []domain.Testimonial{}
	}
	return append([]domain.Testimonial{}, r.Testimonials...)
}

func collect[T domain.Entity](es []domain.Entity) []T {
	out := make([]T, 0, len(es))
	for _, e := range es {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
