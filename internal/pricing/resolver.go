package pricing

import (
	"slices"
	"strings"

	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/store"

	"github.com/shopspring/decimal"
)

// Resolver turns selections into quotes. It holds only its policy, reads the store
// it is given and never writes to it, so one Resolver may serve any number of
// goroutines.
type Resolver struct {
	policy Policy
}

func NewResolver(policy Policy) *Resolver {
	if policy.DiscountStacking == "" {
		policy.DiscountStacking = StackAll
	}
	if policy.RecurringTerm == "" {
		policy.RecurringTerm = PerPeriod
	}
	return &Resolver{policy: policy}
}

func (r *Resolver) Policy() Policy {
	return r.policy
}

// Quote prices sel against s. A PricingError means no quote at all.
func (r *Resolver) Quote(s *store.Store, sel Selection) (*Quote, error) {
	if s == nil {
		return nil, newError(InvalidSelection, nil, "no catalog is loaded")
	}

	baseID := strings.TrimSpace(sel.Base)
	if baseID == "" {
		return nil, newError(InvalidSelection, nil, "a base tier or retainer is required")
	}
	if sel.Term != nil && *sel.Term < 0 {
		return nil, newError(InvalidSelection, []string{baseID}, "term %d is negative", *sel.Term)
	}
	units := 1
	if sel.Units != nil {
		if *sel.Units <= 0 {
			return nil, newError(InvalidSelection, []string{baseID}, "units must be positive, got %d", *sel.Units)
		}
		units = *sel.Units
	}

	base, err := s.Get(baseID)
	if err != nil {
		return nil, newError(UnknownEntity, []string{baseID}, "%s is not in the catalog", baseID)
	}
	if !base.EntityKind().Quotable() {
		return nil, newError(UnknownEntity, []string{baseID}, "%s is a %s, not a tier or retainer", baseID, base.EntityKind())
	}
	pricing, ok := domain.PricingOf(base)
	if !ok {
		return nil, newError(UnknownEntity, []string{baseID}, "%s has no pricing", baseID)
	}
	if _, perUnit := pricing.(*domain.PerUnit); sel.Units != nil && !perUnit {
		return nil, newError(InvalidSelection, []string{baseID},
			"%s has %s pricing; units only apply to per-unit pricing", baseID, pricing.PricingKind())
	}

	discountIDs := dedupe(sel.Discounts)
	moduleIDs := dedupe(sel.Modules)

	switch pricing.(type) {
	case *domain.Custom:
		if len(discountIDs) > 0 || len(moduleIDs) > 0 {
			return nil, newError(CannotDiscountCustomQuote, slices.Concat([]string{baseID}, discountIDs, moduleIDs),
				"%s is priced by custom quote; discounts and modules cannot be applied", baseID)
		}
	case *domain.Ranged:
		if len(discountIDs) > 0 {
			return nil, newError(CannotDiscountRangedQuote, slices.Concat([]string{baseID}, discountIDs),
				"%s is priced as a range; discounts cannot be applied", baseID)
		}
	}

	discounts, err := selectDiscounts(s, baseID, pricing, discountIDs)
	if err != nil {
		return nil, err
	}
	modules, err := selectModules(s, base, moduleIDs)
	if err != nil {
		return nil, err
	}

	currency, err := checkCurrencies(baseID, pricing, discounts, modules)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Base:             baseID,
		PricingKind:      pricing.PricingKind(),
		BaseAmount:       decimal.Zero,
		DiscountsApplied: []AppliedDiscount{},
		Total:            decimal.Zero,
		OneTimeTotal:     decimal.Zero,
		RecurringTotal:   decimal.Zero,
		Currency:         currency,
		Lines:            []LineItem{},
		Warnings:         []Warning{},
		Policy:           r.policy,
	}

	switch p := pricing.(type) {
	case *domain.Fixed:
		q.BaseAmount = p.Amount.Amount
		q.addLine(LineItem{Kind: LineBase, ID: baseID, Description: entityName(base), Amount: q.BaseAmount})

	case *domain.PerUnit:
		q.BaseAmount = p.Amount.Mul(int64(units)).Amount
		q.addLine(LineItem{Kind: LineBase, ID: baseID, Description: entityName(base), Amount: q.BaseAmount, Quantity: units, Unit: p.Unit})

	case *domain.Recurring:
		term := p.MinimumTermMonths
		if sel.Term != nil {
			if *sel.Term < p.MinimumTermMonths {
				return nil, newError(TermBelowMinimum, []string{baseID},
					"term of %d months is below the minimum of %d", *sel.Term, p.MinimumTermMonths)
			}
			term = *sel.Term
		}
		q.TermMonths = term
		q.Frequency = p.Frequency
		q.BaseAmount = p.Amount.Amount
		q.addLine(LineItem{Kind: LineBase, ID: baseID, Description: entityName(base), Amount: q.BaseAmount, Frequency: p.Frequency})

	case *domain.Ranged:
		band := p.Band
		q.Range = &band
		q.addLine(LineItem{Kind: LineBase, ID: baseID, Description: entityName(base), Amount: decimal.Zero, Range: &band})

	case *domain.Custom:
		q.RequiresManualQuote = true
		q.addLine(LineItem{Kind: LineCustomQuote, ID: baseID, Description: noteOr(p.Note, entityName(base)), Amount: decimal.Zero})
	}

	if sel.Term != nil && q.TermMonths == 0 {
		q.TermMonths = *sel.Term
	}

	q.Total = r.applyDiscounts(q, discounts)

	if q.Frequency == "" {
		q.Frequency = moduleFrequency(modules)
	}
	periods := r.periods(q)

	if _, ok := pricing.(*domain.Recurring); ok {
		q.RecurringTotal = q.Total.Mul(periods)
	}
	r.applyModules(q, modules, periods)

	return q, nil
}

func (q *Quote) addLine(l LineItem) {
	q.Lines = append(q.Lines, l)
}

func (q *Quote) warn(code WarningCode, ids []string, msg string) {
	q.Warnings = append(q.Warnings, Warning{Code: code, IDs: ids, Message: msg})
}

// applyDiscounts deducts each discount from the base line in declared order and
// returns the running total, clamped at zero.
func (r *Resolver) applyDiscounts(q *Quote, discounts []*domain.Discount) decimal.Decimal {
	running := q.BaseAmount
	floored := false
	conditions := make(map[string]string)

	for _, d := range discounts {
		if r.policy.DiscountStacking == OncePerCondition {
			key := strings.ToLower(strings.TrimSpace(d.Condition))
			if first, dup := conditions[key]; dup {
				q.warn(DuplicateDiscountCondition, []string{d.ID, first},
					"discount "+d.ID+" repeats the condition of "+first+" and was skipped")
				continue
			}
			conditions[key] = d.ID
		}

		q.DiscountsApplied = append(q.DiscountsApplied, AppliedDiscount{ID: d.ID, Condition: d.Condition, Amount: d.Amount.Amount})
		q.addLine(LineItem{Kind: LineDiscount, ID: d.ID, Description: d.Condition, Amount: d.Amount.Amount})

		running = running.Sub(d.Amount.Amount)
		if running.IsNegative() {
			running = decimal.Zero
			if !floored {
				floored = true
				q.warn(TotalFlooredAtZero, []string{q.Base}, "discounts exceed the base amount; total floored at zero")
			}
		}
	}
	return running
}

// periods is the recurring multiplier under the configured term policy.
func (r *Resolver) periods(q *Quote) decimal.Decimal {
	if r.policy.RecurringTerm != FullTerm || q.TermMonths == 0 || q.Frequency == "" {
		return decimal.NewFromInt(1)
	}
	months := q.Frequency.Months()
	n := (q.TermMonths + months - 1) / months
	return decimal.NewFromInt(int64(n))
}

func (r *Resolver) applyModules(q *Quote, modules []*domain.AddOnModule, periods decimal.Decimal) {
	for _, m := range modules {
		p := m.Pricing

		if p.SetupFee != nil {
			q.OneTimeTotal = q.OneTimeTotal.Add(p.SetupFee.Amount)
			q.addLine(LineItem{Kind: LineSetupFee, ID: m.ID, Description: m.Name, Amount: p.SetupFee.Amount})
		}
		if p.RecurringFee != nil {
			fee := perPeriod(p.RecurringFee, q.Frequency)
			q.RecurringTotal = q.RecurringTotal.Add(fee.Mul(periods))
			q.addLine(LineItem{Kind: LineRecurringFee, ID: m.ID, Description: m.Name, Amount: fee, Frequency: q.Frequency})
		}
		if p.PerSessionFee != nil {
			q.addLine(LineItem{Kind: LinePerSessionFee, ID: m.ID, Description: m.Name, Amount: p.PerSessionFee.Amount, Unit: "session"})
			q.warn(PerUnitChargeNotTotaled, []string{m.ID}, m.ID+" is billed per session and is not included in the totals")
		}
		if p.Range != nil {
			band := *p.Range
			q.RequiresManualQuote = true
			q.addLine(LineItem{Kind: LineRangeFee, ID: m.ID, Description: m.Name, Amount: decimal.Zero, Range: &band})
			q.warn(RangedModuleUnresolved, []string{m.ID}, m.ID+" is priced as a range and needs a manual quote")
		}
		if p.CustomQuote != nil {
			q.RequiresManualQuote = true
			q.addLine(LineItem{Kind: LineCustomQuote, ID: m.ID, Description: noteOr(*p.CustomQuote, m.Name), Amount: decimal.Zero})
		}
	}
}

// perPeriod expresses a module fee in the quote's billing frequency.
func perPeriod(fee *domain.RecurringFee, target domain.Frequency) decimal.Decimal {
	if target == "" || fee.Frequency == target {
		return fee.Amount.Amount
	}
	return fee.Amount.Amount.
		Mul(decimal.NewFromInt(int64(target.Months()))).
		Div(decimal.NewFromInt(int64(fee.Frequency.Months()))).
		Round(2)
}

func moduleFrequency(modules []*domain.AddOnModule) domain.Frequency {
	for _, m := range modules {
		if m.Pricing.RecurringFee != nil {
			return m.Pricing.RecurringFee.Frequency
		}
	}
	return ""
}

// selectDiscounts resolves the selected discount ids and returns them in the
// order the base pricing declares them.
func selectDiscounts(s *store.Store, baseID string, p domain.Pricing, ids []string) ([]*domain.Discount, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		e, err := s.Get(id)
		if err != nil {
			return nil, newError(UnknownEntity, []string{id}, "discount %s is not in the catalog", id)
		}
		d, ok := e.(*domain.Discount)
		if !ok {
			return nil, newError(UnknownEntity, []string{id}, "%s is a %s, not a discount", id, e.EntityKind())
		}
		if d.Owner != baseID {
			return nil, newError(DiscountNotApplicable, []string{id, baseID},
				"discount %s belongs to %s, not %s", id, d.Owner, baseID)
		}
		selected[id] = true
	}

	var out []*domain.Discount
	for _, d := range domain.DiscountsOf(p) {
		if selected[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// selectModules resolves the selected module ids against the base's owner and
// returns them in declared order.
func selectModules(s *store.Store, base domain.Entity, ids []string) ([]*domain.AddOnModule, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	owner := base.EntityID()
	if base.EntityKind() == domain.KindTier {
		owner = base.ParentID()
	}

	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		e, err := s.Get(id)
		if err != nil {
			return nil, newError(UnknownEntity, []string{id}, "module %s is not in the catalog", id)
		}
		m, ok := e.(*domain.AddOnModule)
		if !ok {
			return nil, newError(UnknownEntity, []string{id}, "%s is a %s, not an add-on module", id, e.EntityKind())
		}
		if m.Parent != owner {
			return nil, newError(ModuleNotApplicable, []string{id, base.EntityID()},
				"module %s belongs to %s, not %s", id, m.Parent, base.EntityID())
		}
		selected[id] = true
	}

	var out []*domain.AddOnModule
	for _, e := range s.Children(owner) {
		if m, ok := e.(*domain.AddOnModule); ok && selected[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

// checkCurrencies runs before any arithmetic. Custom pricing has no currency, so
// the first module fee sets it in that case.
func checkCurrencies(baseID string, p domain.Pricing, discounts []*domain.Discount, modules []*domain.AddOnModule) (string, error) {
	currency, _ := domain.CurrencyOf(p)
	source := baseID

	check := func(id, c string) error {
		if currency == "" {
			currency, source = c, id
			return nil
		}
		if c != currency {
			return newError(CurrencyMismatch, []string{id, source}, "%s is priced in %s but %s is in %s", id, c, source, currency)
		}
		return nil
	}

	for _, d := range discounts {
		if err := check(d.ID, d.Amount.Currency); err != nil {
			return "", err
		}
	}
	for _, m := range modules {
		for _, c := range m.Pricing.Currencies() {
			if err := check(m.ID, c); err != nil {
				return "", err
			}
		}
	}
	return currency, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func entityName(e domain.Entity) string {
	switch v := e.(type) {
	case *domain.Tier:
		return v.Name
	case *domain.Retainer:
		return v.Name
	default:
		return e.EntityID()
	}
}

func noteOr(note, fallback string) string {
	if note != "" {
		return note
	}
	return fallback
}
