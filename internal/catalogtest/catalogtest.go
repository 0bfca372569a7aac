// Package catalogtest provides a small, fully valid catalog for tests.
//
// The fixture covers every pricing variant: fixed tiers with and without
// discounts, a per-unit tier, a ranged tier, a custom tier, recurring retainers
// and modules with setup, recurring, per-session, ranged and custom fees.
package catalogtest

import (
	_ "embed"
	"testing"

	"servicecatalog/engine/internal/client"
	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/store"
	"servicecatalog/engine/internal/validator"
)

//go:embed catalog.xml
var XML []byte

// Document decodes the fixture.
func Document(tb testing.TB) *client.Document {
	tb.Helper()

	doc, err := client.DecodeDocument(XML, client.FormatXML)
	if err != nil {
		tb.Fatalf("decode fixture: %v", err)
	}
	return doc
}

// Catalog decodes and validates the fixture.
func Catalog(tb testing.TB) *domain.Catalog {
	tb.Helper()

	catalog, err := validator.Validate(Document(tb))
	if err != nil {
		tb.Fatalf("validate fixture: %v", err)
	}
	return catalog
}

// Store loads the fixture into a fresh store.
func Store(tb testing.TB) *store.Store {
	tb.Helper()
	return store.New(Catalog(tb))
}
