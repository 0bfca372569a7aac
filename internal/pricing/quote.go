package pricing

import (
	"fmt"

	"servicecatalog/engine/internal/domain"

	"github.com/shopspring/decimal"
)

type DiscountStacking string

const (
	// StackAll applies every selected discount.
	StackAll DiscountStacking = "stack"
	// OncePerCondition applies at most one selected discount per condition text.
	OncePerCondition DiscountStacking = "once_per_condition"
)

type RecurringTerm string

const (
	// PerPeriod reports recurring totals for a single billing period.
	PerPeriod RecurringTerm = "per_period"
	// FullTerm multiplies recurring totals by the billing periods in the term.
	FullTerm RecurringTerm = "full_term"
)

type Policy struct {
	DiscountStacking DiscountStacking `json:"discount_stacking"`
	RecurringTerm    RecurringTerm    `json:"recurring_term"`
}

func DefaultPolicy() Policy {
	return Policy{DiscountStacking: StackAll, RecurringTerm: PerPeriod}
}

// ParsePolicy maps configuration values onto a Policy; empty values keep the default.
func ParsePolicy(stacking, term string) (Policy, error) {
	p := DefaultPolicy()

	switch DiscountStacking(stacking) {
	case "":
	case StackAll, OncePerCondition:
		p.DiscountStacking = DiscountStacking(stacking)
	default:
		return p, fmt.Errorf("unknown discount stacking policy %q", stacking)
	}

	switch RecurringTerm(term) {
	case "":
	case PerPeriod, FullTerm:
		p.RecurringTerm = RecurringTerm(term)
	default:
		return p, fmt.Errorf("unknown recurring term policy %q", term)
	}

	return p, nil
}

// Selection is what a caller asks to be priced. Discounts and Modules are sets;
// repeated ids are ignored.
type Selection struct {
	Base      string   `json:"base"`
	Discounts []string `json:"discounts,omitempty"`
	Modules   []string `json:"modules,omitempty"`
	Term      *int     `json:"term,omitempty"`  // months
	Units     *int     `json:"units,omitempty"` // per-unit bases only, defaults to 1; rejected for other bases
}

type LineKind string

const (
	LineBase          LineKind = "base"
	LineDiscount      LineKind = "discount"
	LineSetupFee      LineKind = "setup_fee"
	LineRecurringFee  LineKind = "recurring_fee"
	LinePerSessionFee LineKind = "per_session_fee"
	LineRangeFee      LineKind = "range_fee"
	LineCustomQuote   LineKind = "custom_quote"
)

// LineItem is one row of the itemized breakdown. Discount rows carry the amount
// deducted as a positive number.
type LineItem struct {
	Kind        LineKind         `json:"kind"`
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Quantity    int              `json:"quantity,omitempty"`
	Unit        string           `json:"unit,omitempty"`
	Frequency   domain.Frequency `json:"frequency,omitempty"`
	Range       *domain.Band     `json:"range,omitempty"`
}

type AppliedDiscount struct {
	ID        string          `json:"id"`
	Condition string          `json:"condition"`
	Amount    decimal.Decimal `json:"amount"`
}

// Quote is the resolved price of a selection. Total is the base line after
// discounts; OneTimeTotal and RecurringTotal collect module fees, and a recurring
// base also contributes its discounted line to RecurringTotal.
type Quote struct {
	Base                string             `json:"base"`
	PricingKind         domain.PricingKind `json:"pricing_kind"`
	BaseAmount          decimal.Decimal    `json:"base_amount"`
	DiscountsApplied    []AppliedDiscount  `json:"discounts_applied"`
	Total               decimal.Decimal    `json:"total"`
	OneTimeTotal        decimal.Decimal    `json:"one_time_total"`
	RecurringTotal      decimal.Decimal    `json:"recurring_total"`
	Frequency           domain.Frequency   `json:"frequency,omitempty"`
	TermMonths          int                `json:"term_months,omitempty"`
	Currency            string             `json:"currency,omitempty"`
	RequiresManualQuote bool               `json:"requires_manual_quote"`
	Range               *domain.Band       `json:"range,omitempty"`
	Lines               []LineItem         `json:"lines"`
	Warnings            []Warning          `json:"warnings"`
	Policy              Policy             `json:"policy"`
}
