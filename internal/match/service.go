package match

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/platform/visionai"
	"github.com/yungbote/storycut-backend/internal/sceneindex"
	"github.com/yungbote/storycut-backend/internal/store"
)

// Deps wires the batch service. CacheFactory yields a fresh per-batch
// resource cache so prepared uploads never leak across batches.
type Deps struct {
	Store        store.StoryboardStore
	Events       store.EventLog
	Library      media.Library
	Vision       visionai.Client
	Index        sceneindex.Reader
	CacheFactory func() media.ResourceCache
	Concurrency  int
}

// Service exposes the two batch matching operations.
type Service struct {
	log  *logger.Logger
	deps Deps
}

func NewService(baseLog *logger.Logger, deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Library == nil || deps.Vision == nil || deps.CacheFactory == nil {
		return nil, fmt.Errorf("match service: missing dependencies")
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultConcurrency
	}
	return &Service{log: baseLog.With("service", "MatchService"), deps: deps}, nil
}

// MatchScenes runs the explicit single-stage variant: every request names
// its candidate videos. The scene snapshot is loaded once and never re-read
// mid-batch.
func (s *Service) MatchScenes(ctx context.Context, sessionID string, requests []SceneMatchRequest) (*BatchResponse, error) {
	scenes, err := s.loadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	build := newJobBuilder(s.log, s.deps.Library).build(ctx, scenes, requests)

	executor := NewExecutor(s.log, s.deps.Library, s.deps.CacheFactory(), s.deps.Vision, s.deps.Concurrency)
	results := executor.RunJobs(ctx, build.Jobs)

	resp := buildResponse(requests, build, results, nil)
	s.recordRun(ctx, sessionID, resp)
	return &resp, nil
}

// MatchScenesIndexed runs the two-stage variant for voice-over scenes:
// shortlist broad windows from the precomputed index, then deep-analyze each
// surviving window. Stage A calls for different scenes run concurrently, as
// do stage B windows.
func (s *Service) MatchScenesIndexed(ctx context.Context, sessionID, tenant string, requests []SceneMatchRequest) (*BatchResponse, error) {
	if s.deps.Index == nil {
		return nil, fmt.Errorf("indexed matching requires a scene index reader")
	}

	scenes, err := s.loadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	index, stale, err := s.deps.Index.Read(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("read scene index: %w", err)
	}

	var build BuildOutcome
	if stale {
		build.Warnings = append(build.Warnings, Issue{
			Message: fmt.Sprintf("scene index for tenant %s is stale; results may miss recent footage", tenant),
		})
	}

	lister := newShortlister(s.log, s.deps.Vision, s.deps.Library)

	perScene := make([]stageAOutcome, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Concurrency)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			perScene[i] = s.shortlistScene(gctx, scenes, req, lister, index)
			return nil
		})
	}
	_ = g.Wait()

	var jobs []Job
	shortlists := map[string][]ShortlistWindow{}
	for i := range perScene {
		build.Errors = append(build.Errors, perScene[i].errors...)
		build.Warnings = append(build.Warnings, perScene[i].warnings...)
		jobs = append(jobs, perScene[i].jobs...)
		if len(perScene[i].windows) > 0 {
			shortlists[requests[i].SceneID] = perScene[i].windows
		}
	}

	executor := NewExecutor(s.log, s.deps.Library, s.deps.CacheFactory(), s.deps.Vision, s.deps.Concurrency)
	results := executor.RunJobs(ctx, jobs)

	resp := buildResponse(requests, build, results, shortlists)
	s.recordRun(ctx, sessionID, resp)
	return &resp, nil
}

// stageAOutcome collects everything stage A produced for one scene request.
type stageAOutcome struct {
	jobs     []Job
	windows  []ShortlistWindow
	errors   []Issue
	warnings []Issue
}

func (s *Service) shortlistScene(ctx context.Context, scenes map[string]*domain.Scene, req SceneMatchRequest, lister *shortlister, index *domain.SceneIndex) (out stageAOutcome) {
	fail := func(msg string) {
		out.errors = append(out.errors, Issue{SceneID: req.SceneID, Message: msg})
	}

	scene, ok := scenes[req.SceneID]
	if !ok {
		fail("unknown scene id")
		return
	}
	if !scene.UseVoiceOver {
		fail("indexed matching only applies to voice-over scenes")
		return
	}
	target, warn, err := resolveTargetDuration(scene, req.DurationSeconds)
	if err != nil {
		fail(err.Error())
		return
	}
	if warn != "" {
		out.warnings = append(out.warnings, Issue{SceneID: req.SceneID, Message: warn})
	}

	windows, warnings, err := lister.shortlist(ctx, scene, req.Notes, target, index)
	out.warnings = append(out.warnings, warnings...)
	if err != nil {
		fail(err.Error())
		return
	}
	out.windows = windows

	for _, w := range windows {
		out.jobs = append(out.jobs, Job{
			SceneID:        scene.ID,
			VideoID:        w.VideoID,
			Mode:           AudioVoiceOver,
			Notes:          req.Notes,
			TargetDuration: target,
			Window:         &SubWindow{StartOffset: w.StartSeconds, EndOffset: w.EndSeconds},
			SceneTitle:     scene.Title,
			ScenePurpose:   scene.Purpose,
			SceneScript:    scene.Script,
		})
	}
	return
}

func (s *Service) loadSnapshot(ctx context.Context, sessionID string) (map[string]*domain.Scene, error) {
	scenes, err := s.deps.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load storyboard snapshot: %w", err)
	}
	byID := make(map[string]*domain.Scene, len(scenes))
	for _, scene := range scenes {
		byID[scene.ID] = scene
	}
	return byID, nil
}

func (s *Service) recordRun(ctx context.Context, sessionID string, resp BatchResponse) {
	if s.deps.Events == nil {
		return
	}
	for _, result := range resp.Results {
		err := s.deps.Events.Append(ctx, sessionID, store.Event{
			Kind:    store.EventMatchCompleted,
			SceneID: result.SceneID,
			Actor:   "agent",
			Detail: map[string]any{
				"candidates": len(result.Candidates),
			},
		})
		if err != nil {
			s.log.Warn("failed to record match event", "session_id", sessionID, "scene_id", result.SceneID, "error", err)
		}
	}
}
