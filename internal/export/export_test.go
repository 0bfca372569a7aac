package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"servicecatalog/engine/internal/catalogtest"
	"servicecatalog/engine/internal/export"
	"servicecatalog/engine/internal/store"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, catalogtest.Store(t)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var tree export.Tree
	if err := json.Unmarshal(buf.Bytes(), &tree); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if len(tree.Services) != 2 {
		t.Fatalf("services = %d", len(tree.Services))
	}

	gov := tree.Services[0]
	if gov.Provider.Name != "Clinamenic LLC" || len(gov.Packages) != 3 || len(gov.Retainers) != 1 {
		t.Fatalf("service 1 = %+v", gov)
	}
	tier := gov.Packages[0].Tiers[0]
	if tier.BasePrice == nil || tier.BasePrice.Amount != "2500" || tier.BasePrice.Currency != "USD" {
		t.Fatalf("tier 1.1.1 base price = %+v", tier.BasePrice)
	}
	if gov.Packages[2].Tiers[1].BasePrice != nil {
		t.Fatal("custom quote tier must not carry a base price")
	}
	ret := gov.Retainers[0].Pricing
	if ret == nil || ret.Frequency != "monthly" || ret.MinimumTerm == nil || ret.MinimumTerm.Value != 2 {
		t.Fatalf("retainer pricing = %+v", ret)
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, store.New(nil)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != `{
  "services": []
}` {
		t.Fatalf("got %s", got)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestWriteCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := export.WriteCSV(dir, catalogtest.Store(t))
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("paths = %v", paths)
	}

	services := readCSV(t, paths["services"])
	if len(services) != 3 || services[1][4] != "governance,DAO,voting,constitution" {
		t.Fatalf("services = %v", services)
	}

	packages := readCSV(t, paths["packages"])
	if len(packages) != 6 || packages[4][1] != "2" {
		t.Fatalf("packages = %v", packages)
	}

	tiers := readCSV(t, paths["tiers"])
	if len(tiers) != 11 {
		t.Fatalf("tiers rows = %d", len(tiers))
	}
	if !slices.Equal(tiers[1][4:], []string{"2500", "USD"}) {
		t.Fatalf("tier 1.1.1 = %v", tiers[1])
	}
	for _, row := range tiers[1:] {
		if row[0] == "2.1.2" && row[4] != "" {
			t.Fatalf("per-unit tier exported a base price: %v", row)
		}
	}

	retainers := readCSV(t, paths["retainers"])
	if len(retainers) != 3 || !slices.Equal(retainers[1][4:], []string{"1200", "USD", "2 months"}) {
		t.Fatalf("retainers = %v", retainers)
	}
}
