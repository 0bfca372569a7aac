package query

import (
	"cmp"
	"slices"

	"servicecatalog/engine/internal/domain"

	"github.com/shopspring/decimal"
)

type CurrencyStats struct {
	Currency string          `json:"currency"`
	Count    int             `json:"count"`
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Avg      decimal.Decimal `json:"avg"`
}

// PriceStats summarises one family of prices. Range and Average use the most
// common currency only; amounts are never converted.
type PriceStats struct {
	Count      int             `json:"count"`
	Range      *domain.Band    `json:"price_range,omitempty"`
	Average    decimal.Decimal `json:"avg_price"`
	ByCurrency []CurrencyStats `json:"prices_by_currency"`
}

// PriceSummary covers fixed-price tiers and recurring retainers.
type PriceSummary struct {
	Tiers     PriceStats `json:"package_tiers"`
	Retainers PriceStats `json:"retainers"`
}

type ServicePackages struct {
	ServiceID    string `json:"service_id"`
	ServiceName  string `json:"service_name"`
	PackageCount int    `json:"package_count"`
}

type PackageTiers struct {
	PackageID   string `json:"package_id"`
	PackageName string `json:"package_name"`
	TierCount   int    `json:"tier_count"`
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

type Report struct {
	TotalServices      int               `json:"total_services"`
	TotalPackages      int               `json:"total_packages"`
	TotalTiers         int               `json:"total_tiers"`
	TotalRetainers     int               `json:"total_retainers"`
	ServicesByCategory map[string]int    `json:"services_by_category"`
	PackagesPerService []ServicePackages `json:"packages_per_service"`
	TiersPerPackage    []PackageTiers    `json:"tiers_per_package"`
	KeywordFrequency   []KeywordCount    `json:"keyword_frequency"`
	PriceSummary       PriceSummary      `json:"price_summary"`
}

func (q *Query) PriceSummary() PriceSummary {
	var tiers, retainers []domain.Money

	for e := range q.store.All(domain.KindTier) {
		if p, ok := e.(*domain.Tier).Pricing.(*domain.Fixed); ok {
			tiers = append(tiers, p.Amount)
		}
	}
	for e := range q.store.All(domain.KindRetainer) {
		if p, ok := e.(*domain.Retainer).Pricing.(*domain.Recurring); ok {
			retainers = append(retainers, p.Amount)
		}
	}

	return PriceSummary{Tiers: summarise(tiers), Retainers: summarise(retainers)}
}

func summarise(prices []domain.Money) PriceStats {
	stats := PriceStats{Count: len(prices), Average: decimal.Zero, ByCurrency: []CurrencyStats{}}
	if len(prices) == 0 {
		return stats
	}

	byCurrency := map[string]*CurrencyStats{}
	sums := map[string]decimal.Decimal{}
	for _, p := range prices {
		cs, ok := byCurrency[p.Currency]
		if !ok {
			cs = &CurrencyStats{Currency: p.Currency, Min: p.Amount, Max: p.Amount}
			byCurrency[p.Currency] = cs
		}
		cs.Count++
		cs.Min = decimal.Min(cs.Min, p.Amount)
		cs.Max = decimal.Max(cs.Max, p.Amount)
		sums[p.Currency] = sums[p.Currency].Add(p.Amount)
	}

	for currency, cs := range byCurrency {
		cs.Avg = sums[currency].Div(decimal.NewFromInt(int64(cs.Count))).Round(2)
		stats.ByCurrency = append(stats.ByCurrency, *cs)
	}
	slices.SortFunc(stats.ByCurrency, func(a, b CurrencyStats) int {
		return cmp.Compare(a.Currency, b.Currency)
	})

	// Most common currency; ties go to the alphabetically first.
	dominant := stats.ByCurrency[0]
	for _, cs := range stats.ByCurrency[1:] {
		if cs.Count > dominant.Count {
			dominant = cs
		}
	}
	stats.Range = &domain.Band{Min: dominant.Min, Max: dominant.Max, Currency: dominant.Currency}
	stats.Average = dominant.Avg

	return stats
}

func (q *Query) Report() Report {
	r := Report{
		ServicesByCategory: map[string]int{},
		PackagesPerService: []ServicePackages{},
		TiersPerPackage:    []PackageTiers{},
		KeywordFrequency:   []KeywordCount{},
		PriceSummary:       q.PriceSummary(),
	}

	keywords := map[string]int{}
	var order []string

	for _, c := range q.Categories() {
		r.TotalServices++
		r.ServicesByCategory[c.Category]++

		packages := q.Packages(c.ID)
		r.TotalPackages += len(packages)
		r.TotalRetainers += len(q.Retainers(c.ID))
		r.PackagesPerService = append(r.PackagesPerService, ServicePackages{
			ServiceID:    c.ID,
			ServiceName:  c.Name,
			PackageCount: len(packages),
		})

		for _, p := range packages {
			r.TotalTiers += len(p.Tiers)
			r.TiersPerPackage = append(r.TiersPerPackage, PackageTiers{
				PackageID:   p.ID,
				PackageName: p.Name,
				TierCount:   len(p.Tiers),
			})
		}

		for _, k := range c.Keywords {
			if _, seen := keywords[k]; !seen {
				order = append(order, k)
			}
			keywords[k]++
		}
	}

	for _, k := range order {
		r.KeywordFrequency = append(r.KeywordFrequency, KeywordCount{Keyword: k, Count: keywords[k]})
	}
	slices.SortStableFunc(r.KeywordFrequency, func(a, b KeywordCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	return r
}
