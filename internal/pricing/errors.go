package pricing

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	UnknownEntity             ErrorKind = "UnknownEntity"
	TermBelowMinimum          ErrorKind = "TermBelowMinimum"
	CannotDiscountCustomQuote ErrorKind = "CannotDiscountCustomQuote"
	CannotDiscountRangedQuote ErrorKind = "CannotDiscountRangedQuote"
	DiscountNotApplicable     ErrorKind = "DiscountNotApplicable"
	ModuleNotApplicable       ErrorKind = "ModuleNotApplicable"
	CurrencyMismatch          ErrorKind = "CurrencyMismatch"
	InvalidSelection          ErrorKind = "InvalidSelection"
)

var (
	ErrUnknownEntity             = errors.New("unknown entity")
	ErrTermBelowMinimum          = errors.New("term below minimum")
	ErrCannotDiscountCustomQuote = errors.New("custom quote cannot be discounted or extended")
	ErrCannotDiscountRangedQuote = errors.New("ranged quote cannot be discounted")
	ErrDiscountNotApplicable     = errors.New("discount not applicable")
	ErrModuleNotApplicable       = errors.New("module not applicable")
	ErrCurrencyMismatch          = errors.New("currency mismatch")
	ErrInvalidSelection          = errors.New("invalid selection")
)

var sentinels = map[ErrorKind]error{
	UnknownEntity:             ErrUnknownEntity,
	TermBelowMinimum:          ErrTermBelowMinimum,
	CannotDiscountCustomQuote: ErrCannotDiscountCustomQuote,
	CannotDiscountRangedQuote: ErrCannotDiscountRangedQuote,
	DiscountNotApplicable:     ErrDiscountNotApplicable,
	ModuleNotApplicable:       ErrModuleNotApplicable,
	CurrencyMismatch:          ErrCurrencyMismatch,
	InvalidSelection:          ErrInvalidSelection,
}

// PricingError is returned instead of a quote. IDs names the offending entities.
type PricingError struct {
	Kind    ErrorKind `json:"kind"`
	IDs     []string  `json:"ids,omitempty"`
	Message string    `json:"message"`
}

func newError(kind ErrorKind, ids []string, format string, args ...any) *PricingError {
	return &PricingError{Kind: kind, IDs: ids, Message: fmt.Sprintf(format, args...)}
}

func (e *PricingError) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, strings.Join(e.IDs, ", "), e.Message)
}

// Unwrap exposes the sentinel of the error kind so errors.Is works.
func (e *PricingError) Unwrap() error {
	return sentinels[e.Kind]
}

type WarningCode string

const (
	TotalFlooredAtZero         WarningCode = "TotalFlooredAtZero"
	DuplicateDiscountCondition WarningCode = "DuplicateDiscountCondition"
	PerUnitChargeNotTotaled    WarningCode = "PerUnitChargeNotTotaled"
	RangedModuleUnresolved     WarningCode = "RangedModuleUnresolved"
)

// Warning is a non-fatal note attached to a quote.
type Warning struct {
	Code    WarningCode `json:"code"`
	IDs     []string    `json:"ids,omitempty"`
	Message string      `json:"message"`
}
