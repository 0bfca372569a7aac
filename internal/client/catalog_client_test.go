package client_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"servicecatalog/engine/internal/catalogtest"
	"servicecatalog/engine/internal/client"
	"servicecatalog/engine/internal/config"
)

type staticMirrors []string

func (m *staticMirrors) Next() string {
	if len(*m) == 0 {
		return ""
	}
	url := (*m)[0]
	*m = append((*m)[1:], url)
	return url
}

func (m *staticMirrors) Len() int { return len(*m) }

func serve(status int, body []byte, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
}

func testConfig() config.CatalogConfig {
	return config.CatalogConfig{Timeout: 5, MaxRetries: 0, MaxRequestsPerSecond: 100}
}

func TestFetchHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := serve(http.StatusOK, catalogtest.XML, &hits)
	defer srv.Close()

	p, err := client.NewCatalogClient(testConfig(), nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	sum := sha256.Sum256(catalogtest.XML)
	if p.Digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("digest = %s", p.Digest)
	}
	if p.Format != client.FormatXML || p.Source != srv.URL || len(p.Data) != len(catalogtest.XML) {
		t.Fatalf("payload = %s %s %d", p.Format, p.Source, len(p.Data))
	}
}

func TestFetchFailsOverToMirror(t *testing.T) {
	var primaryHits, mirrorHits atomic.Int32
	primary := serve(http.StatusNotFound, nil, &primaryHits)
	defer primary.Close()
	backup := serve(http.StatusOK, catalogtest.XML, &mirrorHits)
	defer backup.Close()

	mirrors := staticMirrors{backup.URL}
	p, err := client.NewCatalogClient(testConfig(), &mirrors).Fetch(context.Background(), primary.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Source != backup.URL || primaryHits.Load() != 1 || mirrorHits.Load() != 1 {
		t.Fatalf("source %s, hits %d/%d", p.Source, primaryHits.Load(), mirrorHits.Load())
	}
}

func TestCircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := serve(http.StatusInternalServerError, nil, &hits)
	defer srv.Close()

	cfg := testConfig()
	cfg.BreakerCooldown = 60
	c := client.NewCatalogClient(cfg, nil)

	if _, err := c.Fetch(context.Background(), srv.URL); err == nil || errors.Is(err, client.ErrCircuitOpen) {
		t.Fatalf("first fetch err = %v", err)
	}
	if _, err := c.Fetch(context.Background(), srv.URL); !errors.Is(err, client.ErrCircuitOpen) {
		t.Fatalf("second fetch err = %v, want open breaker", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times while breaker was open", hits.Load())
	}
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog")
	if err := os.WriteFile(path, []byte(jsonCatalog), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Source = "file://" + path
	p, err := client.NewCatalogClient(cfg, nil).Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Source != path || p.Format != client.FormatJSON {
		t.Fatalf("payload = %s %s", p.Source, p.Format)
	}

	if _, err := client.NewCatalogClient(cfg, nil).Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Fatal("missing file must fail")
	}
}
