package config

import (
	"os"
	"path/filepath"
	"testing"

	"servicecatalog/engine/internal/pricing"
)

func TestLoadOptionalDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadOptional()
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Pricing.DiscountStacking != "stack" || cfg.Pricing.RecurringTerm != "per_period" {
		t.Fatalf("unexpected pricing defaults: %+v", cfg.Pricing)
	}
	if cfg.Workers.Count != 4 {
		t.Fatalf("workers.count = %d, want 4", cfg.Workers.Count)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("redis addr = %s", cfg.Redis.Addr())
	}
}

func TestLoadRequiresFile(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected error without config.yaml")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("catalog:\n  source: ./services.json\n  format: json\nworkers:\n  count: 9\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("PRICING_DISCOUNT_STACKING", "once_per_condition")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Source != "./services.json" || cfg.Catalog.Format != "json" {
		t.Fatalf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Workers.Count != 9 {
		t.Fatalf("workers.count = %d, want 9", cfg.Workers.Count)
	}
	if cfg.Pricing.DiscountStacking != "once_per_condition" {
		t.Fatalf("env override ignored: %q", cfg.Pricing.DiscountStacking)
	}
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"stacking", Config{Pricing: PricingConfig{DiscountStacking: "best_only", RecurringTerm: "per_period"}}},
		{"term", Config{Pricing: PricingConfig{DiscountStacking: "stack", RecurringTerm: "forever"}}},
		{"format", Config{Pricing: PricingConfig{DiscountStacking: "stack", RecurringTerm: "per_period"}, Catalog: CatalogConfig{Format: "yaml"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateAcceptsEveryResolverPolicy(t *testing.T) {
	for _, stacking := range []pricing.DiscountStacking{pricing.StackAll, pricing.OncePerCondition} {
		for _, term := range []pricing.RecurringTerm{pricing.PerPeriod, pricing.FullTerm} {
			cfg := Config{Pricing: PricingConfig{DiscountStacking: string(stacking), RecurringTerm: string(term)}}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate(%s, %s): %v", stacking, term, err)
			}
		}
	}
}
