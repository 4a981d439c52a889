// Package sceneindex produces and serves the precomputed per-tenant footage
// index that the shortlist stage draws broad review windows from.
package sceneindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
)

// Reader serves the precomputed index. Stale reads succeed with a staleness
// flag; callers surface a warning, not an error.
type Reader interface {
	Read(ctx context.Context, tenant string) (*domain.SceneIndex, bool, error)
}

type Store interface {
	Reader
	Write(ctx context.Context, index *domain.SceneIndex) error
}

type redisStore struct {
	rdb        *redis.Client
	log        *logger.Logger
	staleAfter time.Duration
}

func NewStore(rdb *redis.Client, baseLog *logger.Logger, staleAfter time.Duration) Store {
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &redisStore{
		rdb:        rdb,
		log:        baseLog.With("store", "SceneIndexStore"),
		staleAfter: staleAfter,
	}
}

func indexKey(tenant string) string { return "sceneindex:" + tenant }

func (s *redisStore) Read(ctx context.Context, tenant string) (*domain.SceneIndex, bool, error) {
	raw, err := s.rdb.Get(ctx, indexKey(tenant)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, fmt.Errorf("no scene index built for tenant %s", tenant)
		}
		return nil, false, fmt.Errorf("read scene index: %w", err)
	}
	var index domain.SceneIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, false, fmt.Errorf("decode scene index: %w", err)
	}
	stale := time.Since(index.BuiltAt) > s.staleAfter
	if stale {
		s.log.Warn("scene index is stale", "tenant", tenant, "built_at", index.BuiltAt)
	}
	return &index, stale, nil
}

func (s *redisStore) Write(ctx context.Context, index *domain.SceneIndex) error {
	if index.BuiltAt.IsZero() {
		index.BuiltAt = time.Now().UTC()
	}
	raw, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode scene index: %w", err)
	}
	if err := s.rdb.Set(ctx, indexKey(index.Tenant), raw, 0).Err(); err != nil {
		return fmt.Errorf("write scene index: %w", err)
	}
	s.log.Info("scene index written", "tenant", index.Tenant, "videos", len(index.Videos))
	return nil
}
