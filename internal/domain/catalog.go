package domain

// Entity is anything addressable by a dotted catalog id.
type Entity interface {
	EntityID() string
	EntityKind() Kind
	ParentID() string // empty for top-level categories
}

type Catalog struct {
	Namespace  string             `json:"namespace,omitempty"`
	Categories []*ServiceCategory `json:"categories"`
}

type Provider struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Website       string `json:"website,omitempty"`
}

type ServiceCategory struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"` // Governance, Knowledge, ...
	Description string     `json:"description"`
	Keywords    []string   `json:"keywords"`
	Provider    Provider   `json:"provider"`
	Offerings   []Offering `json:"-"`
}

func (c *ServiceCategory) EntityID() string { return c.ID }
func (c *ServiceCategory) EntityKind() Kind { return KindCategory }
func (c *ServiceCategory) ParentID() string { return "" }

// Packages returns the category's packages in declared order.
func (c *ServiceCategory) Packages() []*Package {
	var out []*Package
	for _, o := range c.Offerings {
		if p, ok := o.(*Package); ok {
			out = append(out, p)
		}
	}
	return out
}

// Retainers returns the category's retainers in declared order.
func (c *ServiceCategory) Retainers() []*Retainer {
	var out []*Retainer
	for _, o := range c.Offerings {
		if r, ok := o.(*Retainer); ok {
			out = append(out, r)
		}
	}
	return out
}

// Offering is either a *Package or a *Retainer.
type Offering interface {
	Entity
	OfferingName() string
	isOffering()
}

type Package struct {
	ID           string                `json:"id"`
	Parent       string                `json:"parent"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Tiers        []*Tier               `json:"tiers"`
	PreviousWork []PreviousWorkExample `json:"previous_work,omitempty"`
}

func (p *Package) EntityID() string     { return p.ID }
func (p *Package) EntityKind() Kind     { return KindPackage }
func (p *Package) ParentID() string     { return p.Parent }
func (p *Package) OfferingName() string { return p.Name }
func (p *Package) isOffering()          {}

type Retainer struct {
	ID           string         `json:"id"`
	Parent       string         `json:"parent"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Services     []string       `json:"services"`
	Pricing      Pricing        `json:"-"`
	Modules      []*AddOnModule `json:"modules,omitempty"`
	Testimonials []Testimonial  `json:"testimonials,omitempty"`
}

func (r *Retainer) EntityID() string     { return r.ID }
func (r *Retainer) EntityKind() Kind     { return KindRetainer }
func (r *Retainer) ParentID() string     { return r.Parent }
func (r *Retainer) OfferingName() string { return r.Name }
func (r *Retainer) isOffering()          {}

type Tier struct {
	ID           string                `json:"id"`
	Parent       string                `json:"parent"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Deliverables []string              `json:"deliverables"`
	Pricing      Pricing               `json:"-"`
	PreviousWork []PreviousWorkExample `json:"previous_work,omitempty"`
}

func (t *Tier) EntityID() string { return t.ID }
func (t *Tier) EntityKind() Kind { return KindTier }
func (t *Tier) ParentID() string { return t.Parent }

type AddOnModule struct {
	ID           string        `json:"id"`
	Parent       string        `json:"parent"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Pricing      ModulePricing `json:"pricing"`
	Deliverables []string      `json:"deliverables,omitempty"`
}

func (m *AddOnModule) EntityID() string { return m.ID }
func (m *AddOnModule) EntityKind() Kind { return KindModule }
func (m *AddOnModule) ParentID() string { return m.Parent }

// PricingOf returns the pricing block of a quotable entity.
func PricingOf(e Entity) (Pricing, bool) {
	switch v := e.(type) {
	case *Tier:
		return v.Pricing, v.Pricing != nil
	case *Retainer:
		return v.Pricing, v.Pricing != nil
	default:
		return nil, false
	}
}
