package validator_test

import (
	"bytes"
	"errors"
	"testing"

	"servicecatalog/engine/internal/catalogtest"
	"servicecatalog/engine/internal/client"
	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/validator"
)

func TestValidateFixture(t *testing.T) {
	catalog, err := validator.Validate(catalogtest.Document(t))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if catalog.Namespace != "https://www.clinamenic.com/schemas/services/v1" {
		t.Errorf("namespace = %q", catalog.Namespace)
	}
	if len(catalog.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(catalog.Categories))
	}

	governance := catalog.Categories[0]
	if got := len(governance.Packages()); got != 3 {
		t.Errorf("packages in 1 = %d, want 3", got)
	}
	if got := governance.Keywords; len(got) != 4 || got[1] != "DAO" {
		t.Errorf("keywords = %v", got)
	}

	knowledge := catalog.Categories[1]
	if knowledge.Provider.Name != "Clinamenic LLC" {
		t.Errorf("provider = %+v", knowledge.Provider)
	}

	tier := knowledge.Packages()[0].Tiers[0]
	if tier.Parent != "2.1" {
		t.Errorf("tier parent = %q", tier.Parent)
	}
	fixed, ok := tier.Pricing.(*domain.Fixed)
	if !ok {
		t.Fatalf("2.1.1 pricing = %T, want *domain.Fixed", tier.Pricing)
	}
	if len(fixed.Discounts) != 2 || fixed.Discounts[0].ID != "2.1.1:1" || fixed.Discounts[1].ID != "2.1.1:2" {
		t.Fatalf("derived discount ids = %+v", fixed.Discounts)
	}
	if fixed.Discounts[0].Owner != "2.1.1" {
		t.Errorf("discount owner = %q", fixed.Discounts[0].Owner)
	}

	review := knowledge.Packages()[0].Tiers[2]
	if ds := domain.DiscountsOf(review.Pricing); ds[0].ID != "2.1.3:returning" || ds[1].ID != "2.1.3:2" {
		t.Errorf("declared discount ids = %s, %s", ds[0].ID, ds[1].ID)
	}

	retainer := governance.Retainers()[0]
	rec, ok := retainer.Pricing.(*domain.Recurring)
	if !ok || rec.MinimumTermMonths != 2 || rec.Frequency != domain.FrequencyMonthly {
		t.Errorf("1.4 pricing = %+v", retainer.Pricing)
	}
}

func TestValidateMinimumTermInYears(t *testing.T) {
	doc := catalogtest.Document(t)
	doc.Services[0].Offering.Retainers[0].Pricing.MinimumTerm = &client.RawTerm{Value: "1", Unit: "years"}

	catalog, err := validator.Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rec := catalog.Categories[0].Retainers()[0].Pricing.(*domain.Recurring)
	if rec.MinimumTermMonths != 12 {
		t.Fatalf("minimum term = %d months, want 12", rec.MinimumTermMonths)
	}
}

func TestValidateViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(d *client.Document)
		kind   validator.Kind
		id     string
	}{
		{
			name: "duplicate id",
			mutate: func(d *client.Document) {
				pkg := &d.Services[0].Offering.Packages[1]
				pkg.Tiers = append(pkg.Tiers, pkg.Tiers[0])
			},
			kind: validator.DuplicateID,
			id:   "1.2.1",
		},
		{
			name:   "malformed id",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[0].Tiers[0].ID = "1.1.x" },
			kind:   validator.InvalidID,
			id:     "1.1.x",
		},
		{
			name:   "tier under the wrong package",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[0].Tiers[1].ID = "1.2.9" },
			kind:   validator.ParentMismatch,
			id:     "1.2.9",
		},
		{
			name:   "nested service id",
			mutate: func(d *client.Document) { d.Services[1].Metadata.ID = "2.0" },
			kind:   validator.ParentMismatch,
			id:     "2.0",
		},
		{
			name:   "missing name",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[0].Name = "  " },
			kind:   validator.MissingField,
			id:     "1.1",
		},
		{
			name:   "package without tiers",
			mutate: func(d *client.Document) { d.Services[1].Offering.Packages[1].Tiers = nil },
			kind:   validator.EmptyTiers,
			id:     "2.2",
		},
		{
			name:   "tier without deliverables",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[0].Tiers[0].Deliverables = []string{" "} },
			kind:   validator.EmptyDeliverables,
			id:     "1.1.1",
		},
		{
			name: "duplicate deliverable",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Packages[0].Tiers[0].Deliverables = []string{"Audit report", "Audit report "}
			},
			kind: validator.DuplicateDeliverable,
			id:   "1.1.1",
		},
		{
			name:   "tier without pricing",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[1].Tiers[0].Pricing = nil },
			kind:   validator.MissingPricing,
			id:     "1.2.1",
		},
		{
			name: "two price variants",
			mutate: func(d *client.Document) {
				note := "Contact us"
				d.Services[0].Offering.Packages[0].Tiers[0].Pricing.CustomQuote = &note
			},
			kind: validator.AmbiguousPricing,
			id:   "1.1.1",
		},
		{
			name:   "amount is not a number",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[0].Tiers[0].Pricing.BasePrice.Value = "2.5k" },
			kind:   validator.InvalidAmount,
			id:     "1.1.1",
		},
		{
			name:   "negative amount",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[0].Tiers[1].Pricing.BasePrice.Value = "-1" },
			kind:   validator.NegativeAmount,
			id:     "1.1.2",
		},
		{
			name:   "inverted range",
			mutate: func(d *client.Document) { d.Services[0].Offering.Packages[2].Tiers[0].Pricing.RangeFee.Min = "5000" },
			kind:   validator.InvalidRange,
			id:     "1.3.1",
		},
		{
			name:   "negative minimum term",
			mutate: func(d *client.Document) { d.Services[0].Offering.Retainers[0].Pricing.MinimumTerm.Value = "-2" },
			kind:   validator.NegativeTerm,
			id:     "1.4",
		},
		{
			name:   "unknown term unit",
			mutate: func(d *client.Document) { d.Services[0].Offering.Retainers[0].Pricing.MinimumTerm.Unit = "weeks" },
			kind:   validator.InvalidTermUnit,
			id:     "1.4",
		},
		{
			name:   "unknown frequency",
			mutate: func(d *client.Document) { d.Services[1].Offering.Retainers[0].Pricing.RecurringPrice.Frequency = "weekly" },
			kind:   validator.InvalidFrequency,
			id:     "2.3",
		},
		{
			name: "discount larger than base",
			mutate: func(d *client.Document) {
				d.Services[1].Offering.Packages[0].Tiers[0].Pricing.Discounts[0].Amount.Value = "800"
			},
			kind: validator.DiscountExceedsBase,
			id:   "2.1.1:1",
		},
		{
			name: "discount in another currency",
			mutate: func(d *client.Document) {
				d.Services[1].Offering.Packages[0].Tiers[0].Pricing.Discounts[1].Amount.Currency = "DAI"
			},
			kind: validator.CurrencyMismatch,
			id:   "2.1.1:2",
		},
		{
			name: "discount on custom pricing",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Packages[2].Tiers[1].Pricing.Discounts = []client.RawDiscount{{
					Condition: "Early bird",
					Amount:    &client.RawAmount{Value: "10", Currency: "USD"},
				}}
			},
			kind: validator.DiscountNotAllowed,
			id:   "1.3.2",
		},
		{
			name: "declared discount id outside its owner",
			mutate: func(d *client.Document) {
				d.Services[1].Offering.Packages[0].Tiers[2].Pricing.Discounts[0].ID = "2.1.1:returning"
			},
			kind: validator.ParentMismatch,
			id:   "2.1.1:returning",
		},
		{
			name: "module fees in two currencies",
			mutate: func(d *client.Document) {
				d.Services[1].Offering.Retainers[0].Modules[0].Pricing.RecurringFee.Currency = "DAI"
			},
			kind: validator.CurrencyMismatch,
			id:   "2.3.1",
		},
		{
			name:   "module without fees",
			mutate: func(d *client.Document) { d.Services[1].Offering.Retainers[0].Modules[2].Pricing = &client.RawPricing{} },
			kind:   validator.MissingPricing,
			id:     "2.3.3",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := catalogtest.Document(t)
			tc.mutate(doc)

			catalog, err := validator.Validate(doc)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if catalog != nil {
				t.Fatal("catalog must not be built when violations exist")
			}

			var verr *validator.Errors
			if !errors.As(err, &verr) {
				t.Fatalf("error %T is not *validator.Errors", err)
			}
			if !errors.Is(err, validator.ErrInvalidCatalog) {
				t.Fatal("errors.Is(err, ErrInvalidCatalog) = false")
			}
			if !verr.Has(tc.kind, tc.id) {
				t.Fatalf("missing %s on %s, got: %v", tc.kind, tc.id, verr.Violations)
			}
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	doc := catalogtest.Document(t)
	doc.Services[0].Offering.Packages[0].Tiers[0].Pricing = nil
	doc.Services[1].Offering.Packages[1].Tiers = nil
	doc.Services[1].Metadata.Name = ""

	_, err := validator.Validate(doc)

	var verr *validator.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validator.Errors, got %v", err)
	}
	if len(verr.Violations) != 3 {
		t.Fatalf("violations = %d, want 3: %v", len(verr.Violations), verr.Violations)
	}
	if !verr.Has(validator.MissingPricing, "1.1.1") || !verr.Has(validator.EmptyTiers, "2.2") || !verr.Has(validator.MissingField, "2") {
		t.Fatalf("unexpected violations: %v", verr.Violations)
	}
}

func TestValidateNilDocument(t *testing.T) {
	if _, err := validator.Validate(nil); err == nil {
		t.Fatal("expected error for nil document")
	}
}

func TestValidateRejectsRepeatedPricingElements(t *testing.T) {
	cases := []struct {
		name  string
		old   string
		new   string
		id    string
		field string
	}{
		{
			name: "retainer with two pricing blocks",
			old:  "<MinimumTerm unit=\"months\">2</MinimumTerm>\n        </Pricing>",
			new: "<MinimumTerm unit=\"months\">2</MinimumTerm>\n        </Pricing>\n" +
				"        <Pricing>\n          <RecurringPrice currency=\"USD\">300</RecurringPrice>\n        </Pricing>",
			id:    "1.4",
			field: "Pricing",
		},
		{
			name:  "tier with two base prices",
			old:   "<BasePrice currency=\"USD\">2500</BasePrice>",
			new:   "<BasePrice currency=\"USD\">2500</BasePrice>\n              <BasePrice currency=\"USD\">10</BasePrice>",
			id:    "1.1.1",
			field: "BasePrice",
		},
		{
			name:  "module with two setup fees",
			old:   "<SetupFee currency=\"USD\">750</SetupFee>",
			new:   "<SetupFee currency=\"USD\">750</SetupFee>\n              <SetupFee currency=\"USD\">75</SetupFee>",
			id:    "2.3.1",
			field: "SetupFee",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if bytes.Count(catalogtest.XML, []byte(tc.old)) != 1 {
				t.Fatalf("fixture does not contain %q exactly once", tc.old)
			}
			data := bytes.Replace(catalogtest.XML, []byte(tc.old), []byte(tc.new), 1)

			doc, err := client.DecodeDocument(data, client.FormatXML)
			if err != nil {
				t.Fatalf("DecodeDocument: %v", err)
			}

			_, err = validator.Validate(doc)
			var verr *validator.Errors
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validator.Errors, got %v", err)
			}
			got := verr.ByKind(validator.AmbiguousPricing)
			if len(got) != 1 || got[0].ID != tc.id || got[0].Field != tc.field {
				t.Fatalf("ambiguous pricing = %v, want one on %s field %s", got, tc.id, tc.field)
			}
		})
	}
}

func TestValidateMissingIDsReportNearestAncestor(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*client.Document)
		missing []string
	}{
		{
			name:    "package without id keeps its tiers valid",
			mutate:  func(d *client.Document) { d.Services[0].Offering.Packages[0].ID = "" },
			missing: []string{"1"},
		},
		{
			name: "tier without id under a package without id",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Packages[0].ID = ""
				d.Services[0].Offering.Packages[0].Tiers[0].ID = ""
			},
			missing: []string{"1", "1"},
		},
		{
			name:    "module without id",
			mutate:  func(d *client.Document) { d.Services[1].Offering.Retainers[0].Modules[1].ID = "" },
			missing: []string{"2.3"},
		},
		{
			name:    "service without id",
			mutate:  func(d *client.Document) { d.Services[1].Metadata.ID = "" },
			missing: []string{""},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := catalogtest.Document(t)
			tc.mutate(doc)

			_, err := validator.Validate(doc)
			var verr *validator.Errors
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validator.Errors, got %v", err)
			}
			if len(verr.Violations) != len(tc.missing) {
				t.Fatalf("violations = %v, want %d missing ids", verr.Violations, len(tc.missing))
			}
			for i, v := range verr.Violations {
				if v.Kind != validator.MissingField || v.Field != "id" || v.ID != tc.missing[i] {
					t.Errorf("violation %d = %s, want missing id on %q", i, v, tc.missing[i])
				}
			}
		})
	}
}

func TestValidateDescendantOfAnonymousParent(t *testing.T) {
	doc := catalogtest.Document(t)
	doc.Services[0].Offering.Packages[0].ID = ""
	doc.Services[0].Offering.Packages[0].Tiers[1].ID = "2.9.9"

	_, err := validator.Validate(doc)
	var verr *validator.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validator.Errors, got %v", err)
	}
	if !verr.Has(validator.ParentMismatch, "2.9.9") {
		t.Fatalf("expected parent mismatch on 2.9.9, got %v", verr.Violations)
	}
	if verr.Has(validator.ParentMismatch, "1.1.1") {
		t.Fatalf("1.1.1 sits under service 1 and must not mismatch: %v", verr.Violations)
	}
}

func TestValidateFieldPaths(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*client.Document)
		id     string
		kind   validator.Kind
		field  string
	}{
		{
			name: "recurring frequency",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Retainers[0].Pricing.RecurringPrice.Frequency = "weekly"
			},
			id: "1.4", kind: validator.InvalidFrequency, field: "RecurringPrice.frequency",
		},
		{
			name: "term unit",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Retainers[0].Pricing.MinimumTerm.Unit = "fortnights"
			},
			id: "1.4", kind: validator.InvalidTermUnit, field: "MinimumTerm.unit",
		},
		{
			name: "fractional term",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Retainers[0].Pricing.MinimumTerm.Value = "1.5"
			},
			id: "1.4", kind: validator.InvalidAmount, field: "MinimumTerm",
		},
		{
			name: "range bound",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Packages[2].Tiers[0].Pricing.RangeFee.Min = "lots"
			},
			id: "1.3.1", kind: validator.InvalidAmount, field: "RangeFee.min",
		},
		{
			name: "negative module fee",
			mutate: func(d *client.Document) {
				d.Services[1].Offering.Retainers[0].Modules[2].Pricing.PerSessionFee.Value = "-90"
			},
			id: "2.3.3", kind: validator.NegativeAmount, field: "PerSessionFee",
		},
		{
			name: "blank amount",
			mutate: func(d *client.Document) {
				d.Services[0].Offering.Packages[0].Tiers[1].Pricing.BasePrice.Value = " "
			},
			id: "1.1.2", kind: validator.MissingField, field: "BasePrice",
		},
		{
			name: "discount without amount",
			mutate: func(d *client.Document) {
				d.Services[1].Offering.Packages[0].Tiers[2].Pricing.Discounts[0].Amount = nil
			},
			id: "2.1.3:returning", kind: validator.MissingField, field: "Amount",
		},
		{
			name: "discount without condition",
			mutate: func(d *client.Document) {
				d.Services[1].Offering.Packages[0].Tiers[2].Pricing.Discounts[1].Condition = ""
			},
			id: "2.1.3:2", kind: validator.MissingField, field: "Condition",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := catalogtest.Document(t)
			tc.mutate(doc)

			_, err := validator.Validate(doc)
			var verr *validator.Errors
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validator.Errors, got %v", err)
			}
			for _, v := range verr.ByKind(tc.kind) {
				if v.ID == tc.id && v.Field == tc.field {
					return
				}
			}
			t.Fatalf("missing %s on %s field %s, got: %v", tc.kind, tc.id, tc.field, verr.Violations)
		})
	}
}
