package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/store"
)

type Provider struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Website       string `json:"website"`
}

type Price struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Frequency string `json:"frequency,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

type Term struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type RetainerPricing struct {
	Price
	MinimumTerm *Term `json:"minimum_term,omitempty"`
}

type Tier struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Deliverables []string `json:"deliverables"`
	PricingKind  string   `json:"pricing_kind"`
	BasePrice    *Price   `json:"base_price,omitempty"`
}

type Package struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tiers       []Tier `json:"tiers"`
}

type Retainer struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Services    []string         `json:"services"`
	Pricing     *RetainerPricing `json:"pricing,omitempty"`
}

type Service struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Keywords    []string   `json:"keywords"`
	Provider    Provider   `json:"provider"`
	Packages    []Package  `json:"packages"`
	Retainers   []Retainer `json:"retainers"`
}

// Tree is the nested dictionary form of a catalog.
type Tree struct {
	Services []Service `json:"services"`
}

func Build(s *store.Store) Tree {
	tree := Tree{Services: []Service{}}
	if s == nil || s.Catalog() == nil {
		return tree
	}

	for _, c := range s.Catalog().Categories {
		svc := Service{
			ID:          c.ID,
			Name:        c.Name,
			Category:    c.Category,
			Description: c.Description,
			Keywords:    orEmpty(c.Keywords),
			Provider: Provider{
				Name:          c.Provider.Name,
				ContactPerson: c.Provider.ContactPerson,
				Website:       c.Provider.Website,
			},
			Packages:  []Package{},
			Retainers: []Retainer{},
		}

		for _, p := range c.Packages() {
			pkg := Package{ID: p.ID, Name: p.Name, Description: p.Description, Tiers: []Tier{}}
			for _, t := range p.Tiers {
				tier := Tier{
					ID:           t.ID,
					Name:         t.Name,
					Description:  t.Description,
					Deliverables: orEmpty(t.Deliverables),
				}
				if t.Pricing != nil {
					tier.PricingKind = string(t.Pricing.PricingKind())
					tier.BasePrice = basePrice(t.Pricing)
				}
				pkg.Tiers = append(pkg.Tiers, tier)
			}
			svc.Packages = append(svc.Packages, pkg)
		}

		for _, r := range c.Retainers() {
			ret := Retainer{ID: r.ID, Name: r.Name, Description: r.Description, Services: orEmpty(r.Services)}
			if rec, ok := r.Pricing.(*domain.Recurring); ok {
				ret.Pricing = &RetainerPricing{Price: Price{
					Amount:    rec.Amount.Amount.String(),
					Currency:  rec.Amount.Currency,
					Frequency: string(rec.Frequency),
				}}
				if rec.MinimumTermMonths > 0 {
					ret.Pricing.MinimumTerm = &Term{Value: rec.MinimumTermMonths, Unit: "months"}
				}
			}
			svc.Retainers = append(svc.Retainers, ret)
		}

		tree.Services = append(tree.Services, svc)
	}
	return tree
}

func WriteJSON(w io.Writer, s *store.Store) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Build(s)); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return nil
}

// WriteCSV writes services.csv, packages.csv, tiers.csv and retainers.csv into dir,
// creating it if needed, and returns the written paths keyed by table name.
func WriteCSV(dir string, s *store.Store) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var services, packages, tiers, retainers [][]string
	services = append(services, []string{"ID", "Name", "Category", "Description", "Keywords", "Provider"})
	packages = append(packages, []string{"ID", "Service ID", "Name", "Description"})
	tiers = append(tiers, []string{"ID", "Package ID", "Name", "Description", "Base Price", "Currency"})
	retainers = append(retainers, []string{"ID", "Service ID", "Name", "Description", "Monthly Price", "Currency", "Min Term"})

	for _, svc := range Build(s).Services {
		services = append(services, []string{
			svc.ID, svc.Name, svc.Category, svc.Description, strings.Join(svc.Keywords, ","), svc.Provider.Name,
		})
		for _, p := range svc.Packages {
			packages = append(packages, []string{p.ID, svc.ID, p.Name, p.Description})
			for _, t := range p.Tiers {
				var price, currency string
				if t.BasePrice != nil && t.PricingKind == string(domain.PricingFixed) {
					price, currency = t.BasePrice.Amount, t.BasePrice.Currency
				}
				tiers = append(tiers, []string{t.ID, p.ID, t.Name, t.Description, price, currency})
			}
		}
		for _, r := range svc.Retainers {
			var price, currency, term string
			if r.Pricing != nil {
				price, currency = r.Pricing.Amount, r.Pricing.Currency
				if r.Pricing.MinimumTerm != nil {
					term = strconv.Itoa(r.Pricing.MinimumTerm.Value) + " " + r.Pricing.MinimumTerm.Unit
				}
			}
			retainers = append(retainers, []string{r.ID, svc.ID, r.Name, r.Description, price, currency, term})
		}
	}

	paths := map[string]string{}
	for name, rows := range map[string][][]string{
		"services":  services,
		"packages":  packages,
		"tiers":     tiers,
		"retainers": retainers,
	} {
		path := filepath.Join(dir, name+".csv")
		if err := writeRows(path, rows); err != nil {
			return nil, err
		}
		paths[name] = path
	}
	return paths, nil
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func basePrice(p domain.Pricing) *Price {
	switch v := p.(type) {
	case *domain.Fixed:
		return &Price{Amount: v.Amount.Amount.String(), Currency: v.Amount.Currency}
	case *domain.PerUnit:
		return &Price{Amount: v.Amount.Amount.String(), Currency: v.Amount.Currency, Unit: v.Unit}
	case *domain.Recurring:
		return &Price{Amount: v.Amount.Amount.String(), Currency: v.Amount.Currency, Frequency: string(v.Frequency)}
	default:
		return nil
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
