package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"servicecatalog/engine/internal/config"
	"servicecatalog/engine/internal/mirror"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Payload is one fetched copy of the catalog document.
type Payload struct {
	Source    string
	Format    Format
	Data      []byte
	Digest    string // hex sha256 of Data
	FetchedAt time.Time
}

type CatalogClient interface {
	// Fetch reads the catalog document from a file path, file:// URL or
	// http(s):// URL. HTTP sources fail over to the configured mirrors.
	Fetch(ctx context.Context, source string) (*Payload, error)
}

type catalogClient struct {
	rl         ratelimit.Limiter
	config     config.CatalogConfig
	httpClient *resty.Client
	mirrors    mirror.MirrorSupplier

	// Circuit breaker for sources that keep failing
	circuitBreakerMutex sync.RWMutex
	openUntil           time.Time
	circuitBreakerDelay time.Duration
}

func NewCatalogClient(cfg config.CatalogConfig, mirrors mirror.MirrorSupplier) CatalogClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("User-Agent", "servicecatalog-engine/1.0").
		SetHeader("Accept", "application/xml, application/json;q=0.9, */*;q=0.5")

	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &catalogClient{
		rl:                  ratelimit.New(rps),
		config:              cfg,
		httpClient:          client,
		mirrors:             mirrors,
		circuitBreakerDelay: time.Duration(cfg.BreakerCooldown) * time.Second,
	}
}

func (c *catalogClient) Fetch(ctx context.Context, source string) (*Payload, error) {
	if source == "" {
		source = c.config.Source
	}

	var (
		data    []byte
		fetched string
		err     error
	)
	if isHTTPSource(source) {
		data, fetched, err = c.fetchHTTP(ctx, source)
	} else {
		fetched = strings.TrimPrefix(source, "file://")
		data, err = os.ReadFile(fetched)
		if err != nil {
			err = fmt.Errorf("failed to read catalog file: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	format, err := ParseFormat(c.config.Format)
	if err != nil {
		return nil, err
	}
	if format == "" {
		if format, err = DetectFormat(fetched, data); err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(data)
	payload := &Payload{
		Source:    fetched,
		Format:    format,
		Data:      data,
		Digest:    hex.EncodeToString(sum[:]),
		FetchedAt: time.Now().UTC(),
	}

	log.Debugf("Fetched catalog from %s (%d bytes, %s)", fetched, len(data), payload.Digest[:12])
	return payload, nil
}

func isHTTPSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// fetchHTTP tries the primary URL and then every healthy mirror once. When all of
// them fail the breaker opens for the configured cooldown.
func (c *catalogClient) fetchHTTP(ctx context.Context, url string) ([]byte, string, error) {
	if c.isCircuitBreakerOpen() {
		remaining := c.getRemainingCircuitBreakerTime()
		return nil, "", fmt.Errorf("%w: requests disabled for %v more", ErrCircuitOpen, remaining.Round(time.Second))
	}

	data, err := c.get(ctx, url)
	if err == nil {
		return data, url, nil
	}
	if ctx.Err() != nil {
		return nil, "", fmt.Errorf("request cancelled: %w", ctx.Err())
	}
	log.Warnf("⚠️ Catalog fetch from %s failed: %v", url, err)

	lastErr := err
	if c.mirrors != nil {
		for range c.mirrors.Len() {
			mirrorURL := c.mirrors.Next()
			if mirrorURL == "" {
				break
			}

			log.Infof("🔄 Falling back to mirror %s", mirrorURL)
			data, err := c.get(ctx, mirrorURL)
			if err == nil {
				log.Infof("✅ Fetched catalog from mirror %s", mirrorURL)
				return data, mirrorURL, nil
			}
			if ctx.Err() != nil {
				return nil, "", fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			log.Warnf("⚠️ Mirror %s failed: %v", mirrorURL, err)
			lastErr = err
		}
	}

	c.triggerCircuitBreaker()
	return nil, "", fmt.Errorf("failed to fetch catalog from any source: %w", lastErr)
}

func (c *catalogClient) get(ctx context.Context, url string) ([]byte, error) {
	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	return resp.Bytes(), nil
}

func (c *catalogClient) isCircuitBreakerOpen() bool {
	c.circuitBreakerMutex.RLock()
	now := time.Now()
	open := now.Before(c.openUntil)
	triggered := !c.openUntil.IsZero()
	c.circuitBreakerMutex.RUnlock()

	if !open && triggered {
		c.circuitBreakerMutex.Lock()
		if !c.openUntil.IsZero() && now.After(c.openUntil) {
			c.openUntil = time.Time{}
			log.Infof("✅ Circuit breaker closed, catalog fetches are allowed again")
		}
		c.circuitBreakerMutex.Unlock()
	}

	return open
}

func (c *catalogClient) triggerCircuitBreaker() {
	if c.circuitBreakerDelay <= 0 {
		return
	}

	c.circuitBreakerMutex.Lock()
	defer c.circuitBreakerMutex.Unlock()

	c.openUntil = time.Now().Add(c.circuitBreakerDelay)
	log.Warnf("🚫 Circuit breaker activated, catalog fetches disabled until %v",
		c.openUntil.Format("15:04:05"))
}

func (c *catalogClient) getRemainingCircuitBreakerTime() time.Duration {
	c.circuitBreakerMutex.RLock()
	defer c.circuitBreakerMutex.RUnlock()

	remaining := time.Until(c.openUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}
