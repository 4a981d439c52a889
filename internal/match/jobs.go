package match

import (
	"context"
	"fmt"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
)

// maxCandidateVideos bounds how many videos one request may name.
const maxCandidateVideos = 5

// BuildOutcome is the result of turning a request batch into jobs. Failures
// are collected per scene; one bad request never blocks its siblings.
type BuildOutcome struct {
	Jobs     []Job
	Errors   []Issue
	Warnings []Issue
}

type jobBuilder struct {
	log     *logger.Logger
	library media.Library
}

func newJobBuilder(baseLog *logger.Logger, library media.Library) *jobBuilder {
	return &jobBuilder{log: baseLog.With("component", "JobBuilder"), library: library}
}

// build validates each request independently and emits one job per
// (scene, candidate video) pair.
func (b *jobBuilder) build(ctx context.Context, scenes map[string]*domain.Scene, requests []SceneMatchRequest) BuildOutcome {
	var out BuildOutcome

	for _, req := range requests {
		jobs, issues, warnings := b.buildOne(ctx, scenes, req)
		out.Jobs = append(out.Jobs, jobs...)
		out.Errors = append(out.Errors, issues...)
		out.Warnings = append(out.Warnings, warnings...)
	}
	return out
}

func (b *jobBuilder) buildOne(ctx context.Context, scenes map[string]*domain.Scene, req SceneMatchRequest) (jobs []Job, errs []Issue, warnings []Issue) {
	fail := func(msg string) ([]Job, []Issue, []Issue) {
		return nil, append(errs, Issue{SceneID: req.SceneID, Message: msg}), warnings
	}

	scene, ok := scenes[req.SceneID]
	if !ok {
		return fail("unknown scene id")
	}
	if len(req.CandidateVideoIDs) == 0 {
		return fail("no candidate videos supplied")
	}
	if len(req.CandidateVideoIDs) > maxCandidateVideos {
		return fail(fmt.Sprintf("too many candidate videos: %d (max %d)", len(req.CandidateVideoIDs), maxCandidateVideos))
	}
	for _, videoID := range req.CandidateVideoIDs {
		if _, err := b.library.Resolve(ctx, videoID); err != nil {
			return fail(fmt.Sprintf("video %s not resolvable: %v", videoID, err))
		}
	}

	target, warn, err := resolveTargetDuration(scene, req.DurationSeconds)
	if err != nil {
		return fail(err.Error())
	}
	if warn != "" {
		warnings = append(warnings, Issue{SceneID: req.SceneID, Message: warn})
	}

	if req.Window != nil {
		if req.Window.StartOffset < 0 {
			return fail("sub-window start_offset must be >= 0")
		}
		if req.Window.EndOffset <= req.Window.StartOffset {
			return fail("sub-window end_offset must be greater than start_offset")
		}
	}

	mode := AudioOriginal
	if scene.UseVoiceOver {
		mode = AudioVoiceOver
	}

	for _, videoID := range req.CandidateVideoIDs {
		jobs = append(jobs, Job{
			SceneID:        scene.ID,
			VideoID:        videoID,
			Mode:           mode,
			Notes:          req.Notes,
			TargetDuration: target,
			Window:         req.Window,
			SceneTitle:     scene.Title,
			ScenePurpose:   scene.Purpose,
			SceneScript:    scene.Script,
		})
	}
	return jobs, errs, warnings
}

// resolveTargetDuration prefers the measured voice-over duration, then the
// caller override. Voice-over scenes without either cannot be matched.
func resolveTargetDuration(scene *domain.Scene, override *float64) (float64, string, error) {
	if scene.VoiceOver != nil && scene.VoiceOver.DurationSeconds > 0 {
		return scene.VoiceOver.DurationSeconds, "", nil
	}
	if override != nil && *override > 0 {
		return *override, "using caller-supplied duration override; no measured voice-over duration exists", nil
	}
	if scene.UseVoiceOver {
		return 0, "", fmt.Errorf("duration missing for voice-over scene; generate the voice track first")
	}
	return 0, "", nil
}
