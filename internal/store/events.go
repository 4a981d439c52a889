package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/storycut-backend/internal/platform/logger"
)

// maxEvents caps the per-session activity log; oldest entries fall off.
const maxEvents = 500

// Event is one append-only activity record.
type Event struct {
	ID        string         `json:"event_id"`
	Kind      string         `json:"kind"`
	SceneID   string         `json:"scene_id,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	EventMatchCompleted      = "match_completed"
	EventCandidateSelected   = "candidate_selected"
	EventCandidateRestored   = "candidate_restored"
	EventCandidateTrimmed    = "candidate_trimmed"
	EventCandidatesReplaced  = "candidates_replaced"
	EventSceneIndexRefreshed = "scene_index_refreshed"
)

// EventLog appends activity events per editing session.
type EventLog interface {
	Append(ctx context.Context, sessionID string, event Event) error
	List(ctx context.Context, sessionID string, limit int) ([]Event, error)
}

type eventLog struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewEventLog(rdb *redis.Client, baseLog *logger.Logger) EventLog {
	return &eventLog{rdb: rdb, log: baseLog.With("store", "EventLog")}
}

func eventsKey(sessionID string) string { return "events:" + sessionID }

func (l *eventLog) Append(ctx context.Context, sessionID string, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := eventsKey(sessionID)
	pipe := l.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -maxEvents, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append event %s: %w", event.Kind, err)
	}
	return nil
}

func (l *eventLog) List(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > maxEvents {
		limit = maxEvents
	}
	rows, err := l.rdb.LRange(ctx, eventsKey(sessionID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list events %s: %w", sessionID, err)
	}
	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		var ev Event
		if err := json.Unmarshal([]byte(row), &ev); err != nil {
			l.log.Warn("skipping undecodable event", "session_id", sessionID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
