// Package store persists storyboard scene state and the append-only
// activity event log in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
)

// StoryboardStore loads and saves the full scene list of one editing session.
// It is the sole writer of scene state.
type StoryboardStore interface {
	Load(ctx context.Context, sessionID string) ([]*domain.Scene, error)
	Save(ctx context.Context, sessionID string, scenes []*domain.Scene) error
}

type storyboardStore struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewStoryboardStore(rdb *redis.Client, baseLog *logger.Logger) StoryboardStore {
	return &storyboardStore{rdb: rdb, log: baseLog.With("store", "StoryboardStore")}
}

func storyboardKey(sessionID string) string { return "storyboard:" + sessionID }

func (s *storyboardStore) Load(ctx context.Context, sessionID string) ([]*domain.Scene, error) {
	raw, err := s.rdb.Get(ctx, storyboardKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*domain.Scene{}, nil
		}
		return nil, fmt.Errorf("load storyboard %s: %w", sessionID, err)
	}
	var scenes []*domain.Scene
	if err := json.Unmarshal(raw, &scenes); err != nil {
		return nil, fmt.Errorf("decode storyboard %s: %w", sessionID, err)
	}
	return scenes, nil
}

func (s *storyboardStore) Save(ctx context.Context, sessionID string, scenes []*domain.Scene) error {
	raw, err := json.Marshal(scenes)
	if err != nil {
		return fmt.Errorf("encode storyboard %s: %w", sessionID, err)
	}
	if err := s.rdb.Set(ctx, storyboardKey(sessionID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save storyboard %s: %w", sessionID, err)
	}
	s.log.Debug("storyboard saved", "session_id", sessionID, "scenes", len(scenes))
	return nil
}
