package client

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// Document is the raw, unvalidated catalog tree. Field names follow the published
// XML schema; the JSON form uses the same shape with snake_case keys. Nothing here
// is trusted until the validator has accepted it.
type Document struct {
	XMLName  xml.Name     `xml:"Services" json:"-"`
	Services []RawService `xml:"Service" json:"services"`
	Format   Format       `xml:"-" json:"-"`
	JSONNS   string       `xml:"-" json:"namespace,omitempty"`
}

// Namespace returns the document namespace, whichever encoding carried it.
func (d *Document) Namespace() string {
	if d.XMLName.Space != "" {
		return d.XMLName.Space
	}
	return d.JSONNS
}

type RawService struct {
	Metadata *RawMetadata `xml:"Metadata" json:"metadata"`
	Provider *RawProvider `xml:"Provider" json:"provider"`
	Offering RawOffering  `xml:"Offering" json:"offering"`
}

type RawMetadata struct {
	ID          string      `xml:"id" json:"id"`
	Name        string      `xml:"Name" json:"name" validate:"notblank"`
	Category    string      `xml:"Category" json:"category"`
	Description string      `xml:"Description" json:"description"`
	Keywords    KeywordList `xml:"Keywords" json:"keywords"`
}

type RawProvider struct {
	Name          string `xml:"Name" json:"name"`
	ContactPerson string `xml:"ContactPerson" json:"contact_person"`
	Website       string `xml:"Website" json:"website"`
}

type RawOffering struct {
	Packages  []RawPackage  `xml:"Package" json:"packages"`
	Retainers []RawRetainer `xml:"Retainer" json:"retainers"`
}

type RawPackage struct {
	ID           string       `xml:"id" json:"id"`
	Name         string       `xml:"Name" json:"name" validate:"notblank"`
	Description  string       `xml:"Description" json:"description"`
	Tiers        []RawTier    `xml:"Tiers>Tier" json:"tiers"`
	PreviousWork []RawExample `xml:"PreviousWork>Example" json:"previous_work"`
}

type RawTier struct {
	ID           string       `xml:"id" json:"id"`
	Name         string       `xml:"Name" json:"name" validate:"notblank"`
	Description  string       `xml:"Description" json:"description"`
	Deliverables []string     `xml:"Deliverables>Deliverable" json:"deliverables"`
	Pricing      *RawPricing  `xml:"Pricing" json:"pricing" validate:"-"`
	PreviousWork []RawExample `xml:"PreviousWork>Example" json:"previous_work"`
}

type RawRetainer struct {
	ID           string           `xml:"id" json:"id"`
	Name         string           `xml:"Name" json:"name" validate:"notblank"`
	Description  string           `xml:"Description" json:"description"`
	Services     []string         `xml:"Services>Service" json:"services"`
	Pricing      *RawPricing      `xml:"Pricing" json:"pricing" validate:"-"`
	Modules      []RawModule      `xml:"AddOnModules>Module" json:"modules"`
	Testimonials []RawTestimonial `xml:"Testimonials>Testimonial" json:"testimonials"`
}

type RawModule struct {
	ID           string      `xml:"id" json:"id"`
	Name         string      `xml:"Name" json:"name" validate:"notblank"`
	Description  string      `xml:"Description" json:"description"`
	Pricing      *RawPricing `xml:"Pricing" json:"pricing" validate:"-"`
	Deliverables []string    `xml:"Deliverables>Deliverable" json:"deliverables"`
}

// RawPricing is the union of every pricing element the schema allows. Tiers and
// retainers must resolve to exactly one variant; modules may combine fee components.
type RawPricing struct {
	BasePrice      *RawAmount    `xml:"BasePrice" json:"base_price"`
	RecurringPrice *RawAmount    `xml:"RecurringPrice" json:"recurring_price"`
	MinimumTerm    *RawTerm      `xml:"MinimumTerm" json:"minimum_term"`
	PerUnitPrice   *RawAmount    `xml:"PerUnitPrice" json:"per_unit_price"`
	RangeFee       *RawRange     `xml:"RangeFee" json:"range_fee"`
	CustomQuote    *string       `xml:"CustomQuote" json:"custom_quote"`
	SetupFee       *RawAmount    `xml:"SetupFee" json:"setup_fee"`
	RecurringFee   *RawAmount    `xml:"RecurringFee" json:"recurring_fee"`
	PerSessionFee  *RawAmount    `xml:"PerSessionFee" json:"per_session_fee"`
	Discounts      []RawDiscount `xml:"Discounts>Discount" json:"discounts" validate:"-"`

	// Repeated names the elements that appeared more than once in the source,
	// including the Pricing element itself.
	Repeated []string `xml:"-" json:"-" validate:"-"`

	decoded bool
}

// pricingElements mirrors RawPricing with every element as a list so repeats
// survive decoding instead of overwriting each other.
type pricingElements struct {
	BasePrice      []RawAmount   `xml:"BasePrice"`
	RecurringPrice []RawAmount   `xml:"RecurringPrice"`
	MinimumTerm    []RawTerm     `xml:"MinimumTerm"`
	PerUnitPrice   []RawAmount   `xml:"PerUnitPrice"`
	RangeFee       []RawRange    `xml:"RangeFee"`
	CustomQuote    []string      `xml:"CustomQuote"`
	SetupFee       []RawAmount   `xml:"SetupFee"`
	RecurringFee   []RawAmount   `xml:"RecurringFee"`
	PerSessionFee  []RawAmount   `xml:"PerSessionFee"`
	Discounts      []RawDiscount `xml:"Discounts>Discount"`
}

// UnmarshalXML keeps the first copy of every element and records repeats. A
// second Pricing element on the same owner decodes into the same value, so it
// is skipped and recorded too.
func (p *RawPricing) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if p.decoded {
		p.Repeated = append(p.Repeated, start.Name.Local)
		return d.Skip()
	}

	var el pricingElements
	if err := d.DecodeElement(&el, &start); err != nil {
		return err
	}

	p.decoded = true
	p.BasePrice = first(p, "BasePrice", el.BasePrice)
	p.RecurringPrice = first(p, "RecurringPrice", el.RecurringPrice)
	p.MinimumTerm = first(p, "MinimumTerm", el.MinimumTerm)
	p.PerUnitPrice = first(p, "PerUnitPrice", el.PerUnitPrice)
	p.RangeFee = first(p, "RangeFee", el.RangeFee)
	p.CustomQuote = first(p, "CustomQuote", el.CustomQuote)
	p.SetupFee = first(p, "SetupFee", el.SetupFee)
	p.RecurringFee = first(p, "RecurringFee", el.RecurringFee)
	p.PerSessionFee = first(p, "PerSessionFee", el.PerSessionFee)
	p.Discounts = el.Discounts
	return nil
}

func first[T any](p *RawPricing, name string, list []T) *T {
	if len(list) == 0 {
		return nil
	}
	if len(list) > 1 {
		p.Repeated = append(p.Repeated, name)
	}
	v := list[0]
	return &v
}

type RawAmount struct {
	Value     json.Number `xml:",chardata" json:"amount" validate:"notblank,decimal,nonnegative"`
	Currency  string      `xml:"currency,attr" json:"currency"`
	Frequency string      `xml:"frequency,attr" json:"frequency,omitempty" validate:"omitempty,oneofci=monthly annually"`
	Unit      string      `xml:"unit,attr" json:"unit,omitempty"`
}

type RawTerm struct {
	Value json.Number `xml:",chardata" json:"value" validate:"notblank,wholenumber,nonnegative"`
	Unit  string      `xml:"unit,attr" json:"unit" validate:"omitempty,oneofci=month months year years"`
}

type RawRange struct {
	Min         json.Number `xml:"min,attr" json:"min" validate:"notblank,decimal,nonnegative"`
	Max         json.Number `xml:"max,attr" json:"max" validate:"notblank,decimal,nonnegative"`
	Currency    string      `xml:"currency,attr" json:"currency"`
	Description string      `xml:",chardata" json:"description"`
}

type RawDiscount struct {
	ID        string     `xml:"id,attr" json:"id"`
	Condition string     `xml:"Condition" json:"condition" validate:"notblank"`
	Amount    *RawAmount `xml:"Amount" json:"amount" validate:"required"`
}

type RawExample struct {
	Name        string `xml:"Name" json:"name"`
	URL         string `xml:"URL" json:"url"`
	Description string `xml:"Description" json:"description"`
	Date        string `xml:"Date" json:"date"`
}

type RawTestimonial struct {
	ClientInfo *RawClientInfo `xml:"ClientInfo" json:"client_info"`
	Quote      string         `xml:"Quote" json:"quote"`
	Date       string         `xml:"Date" json:"date"`
}

type RawClientInfo struct {
	Name     string `xml:"Name" json:"name"`
	Position string `xml:"Position" json:"position"`
	Company  string `xml:"Company" json:"company"`
}

// KeywordList decodes either a comma separated string or a JSON array.
type KeywordList []string

func (k *KeywordList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*k = splitKeywords(s)
	return nil
}

func (k *KeywordList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = splitKeywords(strings.Join(list, ","))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("keywords must be a string or a list of strings: %w", err)
	}
	*k = splitKeywords(s)
	return nil
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
