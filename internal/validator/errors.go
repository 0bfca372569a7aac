package validator

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

type Kind string

const (
	MissingField         Kind = "missing_field"
	InvalidID            Kind = "invalid_id"
	ParentMismatch       Kind = "parent_mismatch"
	DuplicateID          Kind = "duplicate_id"
	EmptyTiers           Kind = "empty_tiers"
	EmptyDeliverables    Kind = "empty_deliverables"
	DuplicateDeliverable Kind = "duplicate_deliverable"
	MissingPricing       Kind = "missing_pricing"
	AmbiguousPricing     Kind = "ambiguous_pricing"
	InvalidAmount        Kind = "invalid_amount"
	NegativeAmount       Kind = "negative_amount"
	InvalidRange         Kind = "invalid_range"
	NegativeTerm         Kind = "negative_term"
	InvalidTermUnit      Kind = "invalid_term_unit"
	InvalidFrequency     Kind = "invalid_frequency"
	DiscountExceedsBase  Kind = "discount_exceeds_base"
	DiscountNotAllowed   Kind = "discount_not_allowed"
	CurrencyMismatch     Kind = "currency_mismatch"
)

// Violation is one problem found in a catalog document. ID is the offending
// entity id, or the nearest enclosing id when the entity has none.
type Violation struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	id := v.ID
	if id == "" {
		id = "<root>"
	}
	if v.Field != "" {
		return fmt.Sprintf("%s [%s] %s: %s", id, v.Kind, v.Field, v.Message)
	}
	return fmt.Sprintf("%s [%s] %s", id, v.Kind, v.Message)
}

// Errors carries every violation found in one validation pass.
type Errors struct {
	Violations []Violation
}

func (e *Errors) Error() string {
	switch len(e.Violations) {
	case 0:
		return "catalog validation failed"
	case 1:
		return "catalog validation failed: " + e.Violations[0].String()
	}

	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("catalog validation failed with %d violations: %s",
		len(e.Violations), strings.Join(parts, "; "))
}

func (e *Errors) Unwrap() error {
	return ErrInvalidCatalog
}

// Has reports whether a violation of kind was recorded against id.
func (e *Errors) Has(kind Kind, id string) bool {
	for _, v := range e.Violations {
		if v.Kind == kind && v.ID == id {
			return true
		}
	}
	return false
}

// ByKind returns the violations of one kind in discovery order.
func (e *Errors) ByKind(kind Kind) []Violation {
	var out []Violation
	for _, v := range e.Violations {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}
