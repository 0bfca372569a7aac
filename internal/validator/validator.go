package validator

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"servicecatalog/engine/internal/client"
	"servicecatalog/engine/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	defaultCurrency = "USD"
	defaultProvider = "Unknown Provider"
	defaultUnit     = "unit"
)

// Validate checks the whole document and builds the catalog. Every violation is
// collected; on failure the returned error is a *Errors and no catalog is built.
func Validate(doc *client.Document) (*domain.Catalog, error) {
	if doc == nil {
		return nil, &Errors{Violations: []Violation{{Kind: MissingField, Field: "Services", Message: "document is empty"}}}
	}

	v := &validator{seen: make(map[string]bool)}

	catalog := &domain.Catalog{
		Namespace:  doc.Namespace(),
		Categories: make([]*domain.ServiceCategory, 0, len(doc.Services)),
	}
	for i := range doc.Services {
		if c := v.category(&doc.Services[i], i); c != nil {
			catalog.Categories = append(catalog.Categories, c)
		}
	}

	if len(v.violations) > 0 {
		return nil, &Errors{Violations: v.violations}
	}
	return catalog, nil
}

type validator struct {
	violations []Violation
	seen       map[string]bool
}

func (v *validator) add(id string, kind Kind, field, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		ID:      id,
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// serviceID checks a top level id: a single dotted segment, unique in the catalog.
func (v *validator) serviceID(raw string, index int) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		v.add("", MissingField, "id", "service #%d has no id", index+1)
		return ""
	}
	if !domain.ValidID(id) {
		v.add(id, InvalidID, "id", "%q is not a dotted numeric id", id)
	} else if domain.ParentID(id) != "" {
		v.add(id, ParentMismatch, "id", "service id must have a single segment")
	}
	v.unique(id)
	return id
}

// childID checks the id of an offering, tier or module. parent is the id the
// enclosing entity declared and is empty when it declared none. anchor is the
// nearest declared ancestor id; a missing id is reported against it.
func (v *validator) childID(raw, parent, anchor, what string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		v.add(anchor, MissingField, "id", "%s has no id", what)
		return ""
	}
	switch got := domain.ParentID(id); {
	case !domain.ValidID(id):
		v.add(id, InvalidID, "id", "%q is not a dotted numeric id", id)
	case parent != "" && got != parent:
		v.add(id, ParentMismatch, "id", "expected a child of %s, prefix is %q", parent, got)
	case parent == "" && anchor != "" && !strings.HasPrefix(id, anchor+"."):
		v.add(id, ParentMismatch, "id", "expected a descendant of %s", anchor)
	}
	v.unique(id)
	return id
}

func (v *validator) unique(id string) {
	if v.seen[id] {
		v.add(id, DuplicateID, "id", "id %s is declared more than once", id)
		return
	}
	v.seen[id] = true
}

func (v *validator) category(raw *client.RawService, index int) *domain.ServiceCategory {
	if raw.Metadata == nil {
		v.add("", MissingField, "Metadata", "service #%d has no metadata", index+1)
		return nil
	}

	meta := raw.Metadata
	c := &domain.ServiceCategory{
		ID:          v.serviceID(meta.ID, index),
		Name:        strings.TrimSpace(meta.Name),
		Category:    strings.TrimSpace(meta.Category),
		Description: strings.TrimSpace(meta.Description),
		Keywords:    []string(meta.Keywords),
		Provider:    provider(raw.Provider),
	}
	v.check(c.ID, "", meta)
	if c.Keywords == nil {
		c.Keywords = []string{}
	}

	for i := range raw.Offering.Packages {
		if p := v.pkg(&raw.Offering.Packages[i], c.ID, c.ID); p != nil {
			c.Offerings = append(c.Offerings, p)
		}
	}
	for i := range raw.Offering.Retainers {
		if r := v.retainer(&raw.Offering.Retainers[i], c.ID, c.ID); r != nil {
			c.Offerings = append(c.Offerings, r)
		}
	}

	return c
}

func provider(raw *client.RawProvider) domain.Provider {
	if raw == nil || strings.TrimSpace(raw.Name) == "" {
		p := domain.Provider{Name: defaultProvider}
		if raw != nil {
			p.ContactPerson = strings.TrimSpace(raw.ContactPerson)
			p.Website = strings.TrimSpace(raw.Website)
		}
		return p
	}
	return domain.Provider{
		Name:          strings.TrimSpace(raw.Name),
		ContactPerson: strings.TrimSpace(raw.ContactPerson),
		Website:       strings.TrimSpace(raw.Website),
	}
}

func (v *validator) pkg(raw *client.RawPackage, parent, anchor string) *domain.Package {
	p := &domain.Package{
		ID:           v.childID(raw.ID, parent, anchor, "package"),
		Parent:       parent,
		Name:         strings.TrimSpace(raw.Name),
		Description:  strings.TrimSpace(raw.Description),
		PreviousWork: examples(raw.PreviousWork),
	}
	tag := cmp.Or(p.ID, anchor)
	v.check(tag, "", raw)

	if len(raw.Tiers) == 0 {
		v.add(tag, EmptyTiers, "Tiers", "package must declare at least one tier")
	}
	for i := range raw.Tiers {
		if t := v.tier(&raw.Tiers[i], p.ID, tag); t != nil {
			p.Tiers = append(p.Tiers, t)
		}
	}
	return p
}

func (v *validator) tier(raw *client.RawTier, parent, anchor string) *domain.Tier {
	t := &domain.Tier{
		ID:           v.childID(raw.ID, parent, anchor, "tier"),
		Parent:       parent,
		Name:         strings.TrimSpace(raw.Name),
		Description:  strings.TrimSpace(raw.Description),
		PreviousWork: examples(raw.PreviousWork),
	}
	tag := cmp.Or(t.ID, anchor)
	v.check(tag, "", raw)
	t.Deliverables = v.deliverables(tag, raw.Deliverables, true)
	t.Pricing = v.pricing(tag, raw.Pricing)
	return t
}

func (v *validator) retainer(raw *client.RawRetainer, parent, anchor string) *domain.Retainer {
	r := &domain.Retainer{
		ID:          v.childID(raw.ID, parent, anchor, "retainer"),
		Parent:      parent,
		Name:        strings.TrimSpace(raw.Name),
		Description: strings.TrimSpace(raw.Description),
		Services:    trimmed(raw.Services),
	}
	tag := cmp.Or(r.ID, anchor)
	v.check(tag, "", raw)
	r.Pricing = v.pricing(tag, raw.Pricing)

	for i := range raw.Modules {
		r.Modules = append(r.Modules, v.module(&raw.Modules[i], r.ID, tag))
	}
	for _, t := range raw.Testimonials {
		r.Testimonials = append(r.Testimonials, testimonial(t))
	}
	return r
}

func (v *validator) module(raw *client.RawModule, parent, anchor string) *domain.AddOnModule {
	m := &domain.AddOnModule{
		ID:          v.childID(raw.ID, parent, anchor, "module"),
		Parent:      parent,
		Name:        strings.TrimSpace(raw.Name),
		Description: strings.TrimSpace(raw.Description),
	}
	tag := cmp.Or(m.ID, anchor)
	v.check(tag, "", raw)
	m.Deliverables = v.deliverables(tag, raw.Deliverables, false)
	m.Pricing = v.modulePricing(tag, raw.Pricing)
	return m
}

func (v *validator) deliverables(id string, raw []string, required bool) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, d := range raw {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if seen[d] {
			v.add(id, DuplicateDeliverable, "Deliverables", "deliverable %q is listed twice", d)
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if required && len(out) == 0 {
		v.add(id, EmptyDeliverables, "Deliverables", "tier must list at least one deliverable")
	}
	return out
}

// repeated reports every pricing element the source declared more than once.
func (v *validator) repeated(owner string, raw *client.RawPricing) bool {
	for _, name := range raw.Repeated {
		v.add(owner, AmbiguousPricing, name, "%s is declared more than once", name)
	}
	return len(raw.Repeated) > 0
}

// pricing resolves the single pricing variant of a tier or retainer.
func (v *validator) pricing(owner string, raw *client.RawPricing) domain.Pricing {
	if raw == nil {
		v.add(owner, MissingPricing, "Pricing", "no pricing block")
		return nil
	}
	if v.repeated(owner, raw) {
		return nil
	}

	var present int
	for _, ok := range []bool{
		raw.BasePrice != nil,
		raw.RecurringPrice != nil,
		raw.PerUnitPrice != nil,
		raw.RangeFee != nil,
		raw.CustomQuote != nil,
	} {
		if ok {
			present++
		}
	}
	switch present {
	case 0:
		v.add(owner, MissingPricing, "Pricing", "pricing block declares no price")
		return nil
	case 1:
	default:
		v.add(owner, AmbiguousPricing, "Pricing", "pricing block declares %d price variants", present)
		return nil
	}
	if !v.check(owner, "", raw) {
		return nil
	}

	switch {
	case raw.BasePrice != nil:
		amount := money(raw.BasePrice)
		return &domain.Fixed{Amount: amount, Discounts: v.discounts(owner, amount, raw.Discounts)}

	case raw.RecurringPrice != nil:
		amount := money(raw.RecurringPrice)
		return &domain.Recurring{
			Amount:            amount,
			Frequency:         frequency(raw.RecurringPrice.Frequency),
			MinimumTermMonths: months(raw.MinimumTerm),
			Discounts:         v.discounts(owner, amount, raw.Discounts),
		}

	case raw.PerUnitPrice != nil:
		amount := money(raw.PerUnitPrice)
		unit := strings.TrimSpace(raw.PerUnitPrice.Unit)
		if unit == "" {
			unit = defaultUnit
		}
		return &domain.PerUnit{Amount: amount, Unit: unit, Discounts: v.discounts(owner, amount, raw.Discounts)}

	case raw.RangeFee != nil:
		v.noDiscounts(owner, "ranged", raw.Discounts)
		band, ok := v.band(owner, "RangeFee", raw.RangeFee)
		if !ok {
			return nil
		}
		return &domain.Ranged{Band: band, Note: strings.TrimSpace(raw.RangeFee.Description)}

	default:
		v.noDiscounts(owner, "custom", raw.Discounts)
		return &domain.Custom{Note: strings.TrimSpace(*raw.CustomQuote)}
	}
}

func (v *validator) modulePricing(owner string, raw *client.RawPricing) domain.ModulePricing {
	var p domain.ModulePricing
	if raw == nil {
		v.add(owner, MissingPricing, "Pricing", "no pricing block")
		return p
	}
	if v.repeated(owner, raw) {
		return p
	}

	if raw.BasePrice != nil || raw.RecurringPrice != nil || raw.PerUnitPrice != nil {
		v.add(owner, AmbiguousPricing, "Pricing", "modules use SetupFee, RecurringFee, PerSessionFee, RangeFee or CustomQuote")
	} else if raw.SetupFee == nil && raw.RecurringFee == nil && raw.PerSessionFee == nil && raw.RangeFee == nil && raw.CustomQuote == nil {
		v.add(owner, MissingPricing, "Pricing", "pricing block declares no fee")
	}
	v.noDiscounts(owner, "module", raw.Discounts)
	if !v.check(owner, "", raw) {
		return p
	}

	if raw.SetupFee != nil {
		m := money(raw.SetupFee)
		p.SetupFee = &m
	}
	if raw.RecurringFee != nil {
		p.RecurringFee = &domain.RecurringFee{Amount: money(raw.RecurringFee), Frequency: frequency(raw.RecurringFee.Frequency)}
	}
	if raw.PerSessionFee != nil {
		m := money(raw.PerSessionFee)
		p.PerSessionFee = &m
	}
	if raw.RangeFee != nil {
		if b, ok := v.band(owner, "RangeFee", raw.RangeFee); ok {
			p.Range = &b
		}
	}
	if raw.CustomQuote != nil {
		note := strings.TrimSpace(*raw.CustomQuote)
		p.CustomQuote = &note
	}

	currencies := p.Currencies()
	for _, c := range currencies[min(1, len(currencies)):] {
		if c != currencies[0] {
			v.add(owner, CurrencyMismatch, "Pricing", "module fees mix %s and %s", currencies[0], c)
			break
		}
	}
	return p
}

func (v *validator) noDiscounts(owner, what string, discounts []client.RawDiscount) {
	if len(discounts) > 0 {
		v.add(owner, DiscountNotAllowed, "Discounts", "%s pricing cannot carry discounts", what)
	}
}

// discounts builds the discount list of a numeric pricing block. Undeclared ids are
// derived from the owner id and the 1-based position.
func (v *validator) discounts(owner string, base domain.Money, raw []client.RawDiscount) []*domain.Discount {
	if len(raw) == 0 {
		return nil
	}

	out := make([]*domain.Discount, 0, len(raw))
	for i := range raw {
		rd := &raw[i]
		id := strings.TrimSpace(rd.ID)
		if id == "" {
			id = owner + ":" + strconv.Itoa(i+1)
		} else if !strings.HasPrefix(id, owner+":") {
			v.add(id, ParentMismatch, "Discount.id", "discount ids must start with %s:", owner)
		}
		v.unique(id)
		if !v.check(id, "", rd) {
			continue
		}

		amount := money(rd.Amount)
		if amount.Currency != base.Currency {
			v.add(id, CurrencyMismatch, "Amount.currency", "discount is in %s but the base price is in %s", amount.Currency, base.Currency)
		} else if amount.Amount.GreaterThan(base.Amount) {
			v.add(id, DiscountExceedsBase, "Amount", "discount %s exceeds base %s", amount, base)
		}
		out = append(out, &domain.Discount{
			ID:        id,
			Owner:     owner,
			Condition: strings.TrimSpace(rd.Condition),
			Amount:    amount,
		})
	}
	return out
}

// money converts an amount the decimal rule has already accepted.
func money(raw *client.RawAmount) domain.Money {
	d := decimal.RequireFromString(strings.TrimSpace(raw.Value.String()))
	return domain.NewMoney(d, currencyOrDefault(raw.Currency))
}

func currencyOrDefault(raw string) string {
	return cmp.Or(domain.NormalizeCurrency(raw), defaultCurrency)
}

// band checks the ordering of a range the decimal rules have already accepted.
func (v *validator) band(id, field string, raw *client.RawRange) (domain.Band, bool) {
	lo := decimal.RequireFromString(strings.TrimSpace(raw.Min.String()))
	hi := decimal.RequireFromString(strings.TrimSpace(raw.Max.String()))
	if lo.GreaterThan(hi) {
		v.add(id, InvalidRange, field, "min %s is greater than max %s", lo, hi)
		return domain.Band{}, false
	}
	return domain.Band{Min: lo, Max: hi, Currency: currencyOrDefault(raw.Currency)}, true
}

func frequency(raw string) domain.Frequency {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return domain.FrequencyMonthly
	}
	return domain.Frequency(raw)
}

// months normalises the minimum term to months.
func months(raw *client.RawTerm) int {
	if raw == nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(raw.Value.String()))
	switch strings.ToLower(strings.TrimSpace(raw.Unit)) {
	case "year", "years":
		return n * 12
	default:
		return n
	}
}

func examples(raw []client.RawExample) []domain.PreviousWorkExample {
	if len(raw) == 0 {
		return nil
	}
	out := make([]domain.PreviousWorkExample, 0, len(raw))
	for _, e := range raw {
		out = append(out, domain.PreviousWorkExample{
			Name:        strings.TrimSpace(e.Name),
			URL:         strings.TrimSpace(e.URL),
			Description: strings.TrimSpace(e.Description),
			Date:        strings.TrimSpace(e.Date),
		})
	}
	return out
}

func testimonial(raw client.RawTestimonial) domain.Testimonial {
	t := domain.Testimonial{
		Quote: strings.TrimSpace(raw.Quote),
		Date:  strings.TrimSpace(raw.Date),
	}
	if raw.ClientInfo != nil {
		t.Client = domain.ClientInfo{
			Name:     strings.TrimSpace(raw.ClientInfo.Name),
			Position: strings.TrimSpace(raw.ClientInfo.Position),
			Company:  strings.TrimSpace(raw.ClientInfo.Company),
		}
	}
	return t
}

func trimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
