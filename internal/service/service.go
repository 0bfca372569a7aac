package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"servicecatalog/engine/internal/client"
	"servicecatalog/engine/internal/pricing"
	"servicecatalog/engine/internal/queue"
	"servicecatalog/engine/internal/repository"
	"servicecatalog/engine/internal/state"
	"servicecatalog/engine/internal/store"
	"servicecatalog/engine/internal/validator"

	log "github.com/sirupsen/logrus"
)

// Service owns the reload lifecycle of the published catalog and the workers that
// serve queued tasks. Queue, state and repository are optional; a nil dependency
// disables the feature built on it.
type Service struct {
	handle     *store.Handle
	client     client.CatalogClient
	resolver   *pricing.Resolver
	queue      queue.Queue
	state      state.StateManager
	repository repository.SnapshotRepository

	groupName   string
	minIdleTime time.Duration
	retryDelay  time.Duration

	reloadMutex sync.Mutex
	digest      string
}

// readRetryDelay is how long a worker waits after a failed stream read.
const readRetryDelay = time.Second

type Options struct {
	Handle     *store.Handle
	Client     client.CatalogClient
	Resolver   *pricing.Resolver
	Queue      queue.Queue
	State      state.StateManager
	Repository repository.SnapshotRepository

	GroupName   string
	MinIdleTime int // seconds
}

func NewService(opts Options) *Service {
	handle := opts.Handle
	if handle == nil {
		handle = store.NewHandle(nil)
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = pricing.NewResolver(pricing.DefaultPolicy())
	}
	minIdle := time.Duration(opts.MinIdleTime) * time.Second
	if minIdle <= 0 {
		minIdle = 2 * time.Minute
	}

	return &Service{
		handle:      handle,
		client:      opts.Client,
		resolver:    resolver,
		queue:       opts.Queue,
		state:       opts.State,
		repository:  opts.Repository,
		groupName:   opts.GroupName,
		minIdleTime: minIdle,
		retryDelay:  readRetryDelay,
	}
}

func (s *Service) Handle() *store.Handle {
	return s.handle
}

// Quote prices a selection against the currently published catalog.
func (s *Service) Quote(sel pricing.Selection) (*pricing.Quote, error) {
	return s.resolver.Quote(s.handle.Current(), sel)
}

type ReloadResult struct {
	Digest   string
	Source   string
	Entities int
	Skipped  bool // document unchanged since the last publish
}

// Reload fetches, validates and publishes the catalog. A document that fails any
// step is discarded and the previously published store keeps serving.
func (s *Service) Reload(ctx context.Context, source string, force bool) (*ReloadResult, error) {
	s.reloadMutex.Lock()
	defer s.reloadMutex.Unlock()

	payload, err := s.client.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	if !force && payload.Digest == s.digest {
		log.Debugf("Catalog %s unchanged, skipping reload", payload.Digest[:12])
		return &ReloadResult{Digest: payload.Digest, Source: payload.Source, Entities: s.handle.Current().Len(), Skipped: true}, nil
	}

	st, err := s.build(payload.Data, payload.Format)
	if err != nil {
		log.Warnf("⚠️ Rejected catalog from %s: %v", payload.Source, err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reload abandoned: %w", err)
	}

	s.publish(st, payload.Digest)
	log.Infof("✅ Published catalog from %s (%d entities, %s)", payload.Source, st.Len(), payload.Digest[:12])

	s.persist(ctx, &repository.Snapshot{
		Digest:   payload.Digest,
		Source:   payload.Source,
		Format:   string(payload.Format),
		Data:     payload.Data,
		Entities: st.Len(),
		LoadedAt: payload.FetchedAt,
	})

	return &ReloadResult{Digest: payload.Digest, Source: payload.Source, Entities: st.Len()}, nil
}

// Restore publishes the latest stored snapshot. It is used at startup when the
// catalog source cannot be read.
func (s *Service) Restore(ctx context.Context) (*ReloadResult, error) {
	if s.repository == nil {
		return nil, repository.ErrNoSnapshot
	}

	s.reloadMutex.Lock()
	defer s.reloadMutex.Unlock()

	snap, err := s.repository.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.build(snap.Data, client.Format(snap.Format))
	if err != nil {
		return nil, fmt.Errorf("stored snapshot %s no longer validates: %w", snap.Digest, err)
	}

	s.publish(st, snap.Digest)
	log.Infof("♻️ Restored catalog snapshot %s from %v", snap.Digest[:12], snap.LoadedAt.Format(time.RFC3339))

	return &ReloadResult{Digest: snap.Digest, Source: snap.Source, Entities: st.Len()}, nil
}

func (s *Service) build(data []byte, format client.Format) (*store.Store, error) {
	doc, err := client.DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}

	catalog, err := validator.Validate(doc)
	if err != nil {
		var verr *validator.Errors
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				log.Debugf("Violation: %s", v)
			}
		}
		return nil, err
	}

	return store.New(catalog), nil
}

func (s *Service) publish(st *store.Store, digest string) {
	s.handle.Swap(st)
	s.digest = digest
}

// persist records the published document. Failures are logged only; the catalog
// is already live.
func (s *Service) persist(ctx context.Context, snap *repository.Snapshot) {
	if s.repository != nil {
		if err := s.repository.SaveSnapshot(ctx, snap); err != nil {
			log.Errorf("❌ Failed to save catalog snapshot: %v", err)
		}
	}
	if s.state != nil {
		if err := s.state.SetLoadedDigest(ctx, snap.Digest); err != nil {
			log.Errorf("❌ Failed to record loaded digest: %v", err)
		}
	}
}

// QuoteResult is what workers store for a queued quote request.
type QuoteResult struct {
	RequestID string            `json:"request_id"`
	Selection pricing.Selection `json:"selection"`
	Quote     *pricing.Quote    `json:"quote,omitempty"`
	Error     *QuoteError       `json:"error,omitempty"`
}

type QuoteError struct {
	Kind    pricing.ErrorKind `json:"kind,omitempty"`
	IDs     []string          `json:"ids,omitempty"`
	Message string            `json:"message"`
}

func newQuoteResult(requestID string, sel pricing.Selection, q *pricing.Quote, err error) *QuoteResult {
	res := &QuoteResult{RequestID: requestID, Selection: sel, Quote: q}
	if err != nil {
		res.Error = &QuoteError{Message: err.Error()}
		var perr *pricing.PricingError
		if errors.As(err, &perr) {
			res.Error.Kind = perr.Kind
			res.Error.IDs = perr.IDs
		}
	}
	return res
}

func (r *QuoteResult) marshal() ([]byte, error) {
	return json.Marshal(r)
}
