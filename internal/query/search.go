package query

import (
	"strings"

	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/store"

	"github.com/PuerkitoBio/goquery"
)

// Match is one search hit. Snippet is the plain text of the matching field.
type Match struct {
	ID      string      `json:"id"`
	Kind    domain.Kind `json:"kind"`
	Name    string      `json:"name"`
	Field   string      `json:"field"`
	Snippet string      `json:"snippet"`
}

type field struct {
	name  string
	text  string
	lower string
}

type document struct {
	entity domain.Entity
	name   string
	fields []field
}

// Search matches text case-insensitively against names, descriptions,
// deliverables and retainer service lines. Inline markup is ignored. Each entity
// is reported once, for its first matching field.
func (q *Query) Search(text string) []Match {
	needle := strings.ToLower(strings.Join(strings.Fields(text), " "))
	out := []Match{}
	if needle == "" {
		return out
	}

	for _, doc := range q.index {
		for _, f := range doc.fields {
			if strings.Contains(f.lower, needle) {
				out = append(out, Match{
					ID:      doc.entity.EntityID(),
					Kind:    doc.entity.EntityKind(),
					Name:    doc.name,
					Field:   f.name,
					Snippet: f.text,
				})
				break
			}
		}
	}
	return out
}

func buildIndex(s *store.Store) []document {
	var docs []document
	for _, kind := range []domain.Kind{domain.KindCategory, domain.KindPackage, domain.KindRetainer, domain.KindTier, domain.KindModule} {
		for e := range s.All(kind) {
			docs = append(docs, indexEntity(e))
		}
	}
	return docs
}

func indexEntity(e domain.Entity) document {
	var (
		name, description string
		lists             = map[string][]string{}
	)

	switch v := e.(type) {
	case *domain.ServiceCategory:
		name, description = v.Name, v.Description
	case *domain.Package:
		name, description = v.Name, v.Description
	case *domain.Retainer:
		name, description = v.Name, v.Description
		lists["service"] = v.Services
	case *domain.Tier:
		name, description = v.Name, v.Description
		lists["deliverable"] = v.Deliverables
	case *domain.AddOnModule:
		name, description = v.Name, v.Description
		lists["deliverable"] = v.Deliverables
	}

	doc := document{entity: e, name: plainText(name)}
	doc.add("name", name)
	doc.add("description", description)
	for _, key := range []string{"service", "deliverable"} {
		for _, item := range lists[key] {
			doc.add(key, item)
		}
	}
	return doc
}

func (d *document) add(name, raw string) {
	text := plainText(raw)
	if text == "" {
		return
	}
	d.fields = append(d.fields, field{name: name, text: text, lower: strings.ToLower(text)})
}

// plainText strips inline HTML from catalog prose and collapses whitespace.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
