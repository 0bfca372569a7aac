package mirror

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// MirrorSupplier hands out catalog mirror URLs in round-robin order
type MirrorSupplier interface {
	Next() string
	Len() int
}

type mirrorSupplier struct {
	mirrors []string
	current int
	mutex   sync.Mutex
}

// NewMirrorSupplier checks every mirror in parallel and keeps the ones that answer.
// Declared order is preserved among the healthy mirrors.
func NewMirrorSupplier(ctx context.Context, mirrors []string, timeout time.Duration) MirrorSupplier {
	if len(mirrors) == 0 {
		return &mirrorSupplier{}
	}

	log.Infof("🔄 Probing %d catalog mirrors...", len(mirrors))

	healthy := make([]bool, len(mirrors))
	semaphore := make(chan struct{}, 8)

	var wg sync.WaitGroup
	for i, url := range mirrors {
		wg.Add(1)

		go func(index int, url string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if isMirrorHealthy(ctx, url, timeout) {
				healthy[index] = true
				log.Debugf("✅ Mirror %s is reachable", url)
			} else {
				log.Warnf("❌ Mirror %s is not reachable, skipping", url)
			}
		}(i, url)
	}
	wg.Wait()

	valid := make([]string, 0, len(mirrors))
	for i, ok := range healthy {
		if ok {
			valid = append(valid, mirrors[i])
		}
	}

	log.Infof("✅ Mirror supplier initialized with %d reachable mirrors out of %d", len(valid), len(mirrors))

	return &mirrorSupplier{mirrors: valid}
}

// Next returns the next mirror URL, or "" when none are available
func (m *mirrorSupplier) Next() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.mirrors) == 0 {
		return ""
	}

	url := m.mirrors[m.current]
	m.current = (m.current + 1) % len(m.mirrors)

	return url
}

func (m *mirrorSupplier) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.mirrors)
}

func isMirrorHealthy(ctx context.Context, url string, timeout time.Duration) bool {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Head(url)
	if err != nil {
		log.Debugf("Mirror health check failed for %s: %v", url, err)
		return false
	}

	if resp.IsError() {
		log.Debugf("Mirror health check failed for %s with status: %s", url, resp.Status())
		return false
	}

	return true
}
