package selection

import (
	"context"
	"fmt"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/platform/apperr"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/store"
)

// Usecases wraps the pure state machine with load/mutate/save/event plumbing
// against the storyboard store. It is the only writer of scene state.
type Usecases struct {
	log    *logger.Logger
	store  store.StoryboardStore
	events store.EventLog
}

func NewUsecases(baseLog *logger.Logger, sb store.StoryboardStore, events store.EventLog) *Usecases {
	return &Usecases{
		log:    baseLog.With("service", "SelectionUsecases"),
		store:  sb,
		events: events,
	}
}

func (u *Usecases) SelectCandidate(ctx context.Context, sessionID, sceneID, candidateID, changedBy, reason string) error {
	return u.mutate(ctx, sessionID, sceneID, func(scene *domain.Scene) (store.Event, error) {
		if err := Select(scene, candidateID, changedBy, reason); err != nil {
			return store.Event{}, err
		}
		return store.Event{
			Kind:    store.EventCandidateSelected,
			SceneID: sceneID,
			Actor:   changedBy,
			Detail:  map[string]any{"candidate_id": candidateID, "reason": reason},
		}, nil
	})
}

func (u *Usecases) RestoreSelection(ctx context.Context, sessionID, sceneID, entryID, changedBy, reason string) error {
	return u.mutate(ctx, sessionID, sceneID, func(scene *domain.Scene) (store.Event, error) {
		if err := Restore(scene, entryID, changedBy, reason); err != nil {
			return store.Event{}, err
		}
		return store.Event{
			Kind:    store.EventCandidateRestored,
			SceneID: sceneID,
			Actor:   changedBy,
			Detail:  map[string]any{"entry_id": entryID, "reason": reason},
		}, nil
	})
}

func (u *Usecases) TrimSelection(ctx context.Context, sessionID, sceneID string, startSeconds, endSeconds float64) error {
	return u.mutate(ctx, sessionID, sceneID, func(scene *domain.Scene) (store.Event, error) {
		if err := Trim(scene, startSeconds, endSeconds); err != nil {
			return store.Event{}, err
		}
		return store.Event{
			Kind:    store.EventCandidateTrimmed,
			SceneID: sceneID,
			Actor:   "user",
			Detail:  map[string]any{"start_seconds": startSeconds, "end_seconds": endSeconds},
		}, nil
	})
}

func (u *Usecases) ReplaceCandidates(ctx context.Context, sessionID, sceneID string, candidates []domain.Candidate, autoSelectBest bool) (ReplaceOutcome, error) {
	var outcome ReplaceOutcome
	err := u.mutate(ctx, sessionID, sceneID, func(scene *domain.Scene) (store.Event, error) {
		outcome = ReplaceCandidates(scene, candidates, autoSelectBest)
		if outcome.DanglingSelection {
			u.log.Warn("selected candidate missing from replacement set",
				"session_id", sessionID, "scene_id", sceneID, "selected", scene.SelectedCandidateID)
		}
		return store.Event{
			Kind:    store.EventCandidatesReplaced,
			SceneID: sceneID,
			Actor:   "agent",
			Detail: map[string]any{
				"candidates":         len(candidates),
				"auto_selected_id":   outcome.AutoSelectedID,
				"dangling_selection": outcome.DanglingSelection,
			},
		}, nil
	})
	return outcome, err
}

func (u *Usecases) mutate(ctx context.Context, sessionID, sceneID string, fn func(*domain.Scene) (store.Event, error)) error {
	scenes, err := u.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load storyboard: %w", err)
	}

	var scene *domain.Scene
	for _, s := range scenes {
		if s.ID == sceneID {
			scene = s
			break
		}
	}
	if scene == nil {
		return &apperr.NotFoundError{Kind: "scene", ID: sceneID}
	}

	event, err := fn(scene)
	if err != nil {
		return err
	}

	if err := u.store.Save(ctx, sessionID, scenes); err != nil {
		return fmt.Errorf("save storyboard: %w", err)
	}

	if u.events != nil {
		if err := u.events.Append(ctx, sessionID, event); err != nil {
			u.log.Warn("failed to record selection event", "session_id", sessionID, "scene_id", sceneID, "error", err)
		}
	}
	return nil
}
