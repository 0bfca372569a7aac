package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"servicecatalog/engine/internal/domain/task"
	"servicecatalog/engine/internal/queue"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RunWorkers consumes reload and quote tasks until ctx is cancelled. Quote workers
// scale with numWorkers; a single worker is enough for reloads since they
// serialise anyway.
func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	if s.queue == nil {
		return fmt.Errorf("task queue is not configured")
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup

	s.runWorkersForStream(ctx, &wg, numWorkers, queue.StreamName(task.TypeQuote), "quote")
	s.runWorkersForStream(ctx, &wg, 1, queue.StreamName(task.TypeReload), "reload")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName, workerType string) {
	// Reclaims messages left pending by a crashed consumer
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s-%d", workerType, time.Now().UnixNano())
				claimed, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				if len(claimed) > 0 {
					log.Infof("🔄 Auto-claimed %d messages from %s stream", len(claimed), workerType)
				}
				for _, msg := range claimed {
					if err := s.processMessage(ctx, streamName, &msg); err != nil {
						log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
					if err != nil {
						if ctx.Err() == nil {
							log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						}
						select {
						case <-ctx.Done():
						case <-time.After(s.retryDelay):
						}
						continue
					}

					if msg != nil {
						if err := s.processMessage(ctx, streamName, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

// processMessage handles one stream message and acknowledges it. Messages that
// cannot be decoded are acknowledged too, so they do not come back through
// auto-claim forever.
func (s *Service) processMessage(ctx context.Context, streamName string, msg *redis.XMessage) error {
	taskType, _ := msg.Values["task_type"].(string)
	taskData, ok := msg.Values["task_data"].(string)

	var err error
	switch {
	case !ok:
		err = fmt.Errorf("invalid task data in message %s", msg.ID)
	case taskType == task.TypeQuote:
		err = s.handleQuote(ctx, taskData)
	case taskType == task.TypeReload:
		err = s.handleReload(ctx, taskData)
	default:
		err = fmt.Errorf("unknown task type %q in message %s", taskType, msg.ID)
	}

	if ackErr := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); ackErr != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, ackErr)
	}
	return err
}

func (s *Service) handleQuote(ctx context.Context, data string) error {
	qt, err := task.UnmarshalTask[*task.QuoteTask]([]byte(data))
	if err != nil {
		return fmt.Errorf("failed to unmarshal quote task: %w", err)
	}

	q, quoteErr := s.Quote(qt.Selection)
	if quoteErr != nil {
		log.Debugf("Quote %s rejected: %v", qt.RequestID, quoteErr)
	}

	if s.state == nil {
		return nil
	}
	body, err := newQuoteResult(qt.RequestID, qt.Selection, q, quoteErr).marshal()
	if err != nil {
		return fmt.Errorf("failed to encode quote result %s: %w", qt.RequestID, err)
	}
	return s.state.SaveQuoteResult(ctx, qt.RequestID, body)
}

func (s *Service) handleReload(ctx context.Context, data string) error {
	rt, err := task.UnmarshalTask[*task.ReloadTask]([]byte(data))
	if err != nil {
		return fmt.Errorf("failed to unmarshal reload task: %w", err)
	}

	log.Infof("🔄 Reload %s requested", rt.RequestID)
	if _, err := s.Reload(ctx, rt.Source, rt.Force); err != nil {
		return fmt.Errorf("reload %s failed: %w", rt.RequestID, err)
	}
	return nil
}
