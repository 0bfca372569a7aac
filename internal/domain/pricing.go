package domain

import "github.com/shopspring/decimal"

type PricingKind string

const (
	PricingFixed     PricingKind = "fixed"
	PricingCustom    PricingKind = "custom"
	PricingRecurring PricingKind = "recurring"
	PricingRanged    PricingKind = "ranged"
	PricingPerUnit   PricingKind = "per_unit"
)

// Pricing is a closed set of variants: Fixed, Custom, Recurring, Ranged and PerUnit.
// The unexported marker keeps other packages from adding variants.
type Pricing interface {
	PricingKind() PricingKind
	isPricing()
}

type Frequency string

const (
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAnnually Frequency = "annually"
)

// Months is the length of one billing period.
func (f Frequency) Months() int {
	if f == FrequencyAnnually {
		return 12
	}
	return 1
}

func (f Frequency) Valid() bool {
	return f == FrequencyMonthly || f == FrequencyAnnually
}

type Fixed struct {
	Amount    Money       `json:"amount"`
	Discounts []*Discount `json:"discounts,omitempty"`
}

type Custom struct {
	Note string `json:"note,omitempty"` // "Contact us" text
}

type Recurring struct {
	Amount            Money       `json:"amount"`
	Frequency         Frequency   `json:"frequency"`
	MinimumTermMonths int         `json:"minimum_term_months"`
	Discounts         []*Discount `json:"discounts,omitempty"`
}

type Ranged struct {
	Band Band   `json:"band"`
	Note string `json:"note,omitempty"`
}

type PerUnit struct {
	Amount    Money       `json:"amount"`
	Unit      string      `json:"unit"` // session, hour, ...
	Discounts []*Discount `json:"discounts,omitempty"`
}

func (*Fixed) PricingKind() PricingKind     { return PricingFixed }
func (*Custom) PricingKind() PricingKind    { return PricingCustom }
func (*Recurring) PricingKind() PricingKind { return PricingRecurring }
func (*Ranged) PricingKind() PricingKind    { return PricingRanged }
func (*PerUnit) PricingKind() PricingKind   { return PricingPerUnit }

func (*Fixed) isPricing()     {}
func (*Custom) isPricing()    {}
func (*Recurring) isPricing() {}
func (*Ranged) isPricing()    {}
func (*PerUnit) isPricing()   {}

// Band is an unresolved [Min, Max] estimate.
type Band struct {
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Currency string          `json:"currency"`
}

type Discount struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"` // id of the tier or retainer whose pricing declares it
	Condition string `json:"condition"`
	Amount    Money  `json:"amount"`
}

func (d *Discount) EntityID() string { return d.ID }
func (d *Discount) EntityKind() Kind { return KindDiscount }
func (d *Discount) ParentID() string { return d.Owner }

// DiscountsOf returns the discounts declared on a pricing block. Custom and Ranged
// pricing never carries discounts.
func DiscountsOf(p Pricing) []*Discount {
	switch v := p.(type) {
	case *Fixed:
		return v.Discounts
	case *Recurring:
		return v.Discounts
	case *PerUnit:
		return v.Discounts
	default:
		return nil
	}
}

// CurrencyOf returns the currency of a pricing block; Custom pricing has none.
func CurrencyOf(p Pricing) (string, bool) {
	switch v := p.(type) {
	case *Fixed:
		return v.Amount.Currency, true
	case *Recurring:
		return v.Amount.Currency, true
	case *PerUnit:
		return v.Amount.Currency, true
	case *Ranged:
		return v.Band.Currency, true
	default:
		return "", false
	}
}

// RecurringFee is a module fee billed every period.
type RecurringFee struct {
	Amount    Money     `json:"amount"`
	Frequency Frequency `json:"frequency"`
}

// ModulePricing is the combination shape used by add-on modules: any subset of the
// fee components may be present.
type ModulePricing struct {
	SetupFee      *Money        `json:"setup_fee,omitempty"`
	RecurringFee  *RecurringFee `json:"recurring_fee,omitempty"`
	PerSessionFee *Money        `json:"per_session_fee,omitempty"`
	Range         *Band         `json:"range,omitempty"`
	CustomQuote   *string       `json:"custom_quote,omitempty"`
}

// Currencies lists the currencies of every numeric component, in field order.
func (p ModulePricing) Currencies() []string {
	var out []string
	if p.SetupFee != nil {
		out = append(out, p.SetupFee.Currency)
	}
	if p.RecurringFee != nil {
		out = append(out, p.RecurringFee.Amount.Currency)
	}
	if p.PerSessionFee != nil {
		out = append(out, p.PerSessionFee.Currency)
	}
	if p.Range != nil {
		out = append(out, p.Range.Currency)
	}
	return out
}

func (p ModulePricing) Empty() bool {
	return p.SetupFee == nil && p.RecurringFee == nil && p.PerSessionFee == nil &&
		p.Range == nil && p.CustomQuote == nil
}
