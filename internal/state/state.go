package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrResultNotFound = errors.New("quote result not found")

type StateManager interface {
	GetLoadedDigest(ctx context.Context) (string, error)
	SetLoadedDigest(ctx context.Context, digest string) error
	SaveQuoteResult(ctx context.Context, requestID string, result []byte) error
	GetQuoteResult(ctx context.Context, requestID string) ([]byte, error)
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
	resultTTL   time.Duration
}

func NewRedisStateManager(redisClient *redis.Client, resultTTL time.Duration) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "catalog:",
		resultTTL:   resultTTL,
	}
}

func (s *redisStateManager) GetLoadedDigest(ctx context.Context) (string, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+"digest").Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // Nothing loaded yet
		}
		return "", fmt.Errorf("failed to get loaded catalog digest: %w", err)
	}
	return val, nil
}

func (s *redisStateManager) SetLoadedDigest(ctx context.Context, digest string) error {
	err := s.redisClient.Set(ctx, s.keyPrefix+"digest", digest, 0).Err() // No expiration
	if err != nil {
		return fmt.Errorf("failed to set loaded catalog digest: %w", err)
	}
	return nil
}

func (s *redisStateManager) SaveQuoteResult(ctx context.Context, requestID string, result []byte) error {
	key := s.keyPrefix + "quote:" + requestID
	if err := s.redisClient.Set(ctx, key, result, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to save quote result %s: %w", requestID, err)
	}
	return nil
}

func (s *redisStateManager) GetQuoteResult(ctx context.Context, requestID string) ([]byte, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+"quote:"+requestID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrResultNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to get quote result %s: %w", requestID, err)
	}
	return val, nil
}
