package domain

type Kind string

func (k Kind) String() string {
	return string(k)
}

const (
	KindCategory Kind = "category" // Top-level service
	KindPackage  Kind = "package"  // Multi-tier offering
	KindRetainer Kind = "retainer" // Recurring offering
	KindTier     Kind = "tier"     // Purchasable package variant
	KindModule   Kind = "module"   // Retainer add-on
	KindDiscount Kind = "discount" // Deduction declared on a pricing block
)

var Kinds = []Kind{
	KindCategory,
	KindPackage,
	KindRetainer,
	KindTier,
	KindModule,
	KindDiscount,
}

func (k Kind) DisplayName() string {
	switch k {
	case KindCategory:
		return "Services"
	case KindPackage:
		return "Packages"
	case KindRetainer:
		return "Retainers"
	case KindTier:
		return "Tiers"
	case KindModule:
		return "Add-on modules"
	case KindDiscount:
		return "Discounts"
	default:
		return "Unknown"
	}
}

// Quotable reports whether an entity of this kind can be the base of a quote.
func (k Kind) Quotable() bool {
	return k == KindTier || k == KindRetainer
}
