package match

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/apperr"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/platform/timecode"
	"github.com/yungbote/storycut-backend/internal/platform/visionai"
)

const (
	// durationTolerance is the allowed deviation from the voice-over target,
	// as a fraction of the target.
	durationTolerance = 0.10
	// windowTolerance is how far a candidate may poke past its sub-window
	// before the job fails.
	windowTolerance = 0.25

	defaultConcurrency = 8
)

// Executor runs analysis jobs under bounded concurrency. All collaborators
// are injected; the cache instance scopes prepared media to one batch.
type Executor struct {
	log         *logger.Logger
	library     media.Library
	cache       media.ResourceCache
	vision      visionai.Client
	concurrency int
}

func NewExecutor(baseLog *logger.Logger, library media.Library, cache media.ResourceCache, vision visionai.Client, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Executor{
		log:         baseLog.With("component", "AnalysisExecutor"),
		library:     library,
		cache:       cache,
		vision:      vision,
		concurrency: concurrency,
	}
}

// RunJobs settles every job. Job errors land in the per-job result; the
// group context is never cancelled by a sibling failure.
func (e *Executor) RunJobs(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = e.runJob(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Executor) runJob(ctx context.Context, job Job) JobResult {
	failed := func(err error) JobResult {
		e.log.Warn("analysis job failed", "scene_id", job.SceneID, "video_id", job.VideoID, "error", err)
		return JobResult{Job: job, Kind: ResultFailed, Err: err}
	}

	asset, err := e.library.Resolve(ctx, job.VideoID)
	if err != nil {
		return failed(&apperr.ServiceError{SceneID: job.SceneID, VideoID: job.VideoID, Err: err})
	}

	locator := asset.Locator
	if job.Mode == AudioVoiceOver && asset.NarrationSafeLocator != "" {
		locator = asset.NarrationSafeLocator
	}

	handle, err := e.cache.Prepare(ctx, locator, asset.MimeType)
	if err != nil {
		return failed(err)
	}

	var window *visionai.Window
	if job.Window != nil {
		window = &visionai.Window{StartSeconds: job.Window.StartOffset, EndSeconds: job.Window.EndOffset}
	}

	raw, err := e.vision.ProposeJSON(ctx, handle, buildBrief(job), window, proposalSchema(job.Mode))
	if err != nil {
		return failed(&apperr.ServiceError{SceneID: job.SceneID, VideoID: job.VideoID, Err: err})
	}

	proposal, err := decodeProposal(raw)
	if err != nil {
		return failed(&apperr.ServiceError{SceneID: job.SceneID, VideoID: job.VideoID, Err: err})
	}

	candidates, dropped, err := e.normalizeCandidates(job, proposal.Candidates)
	if err != nil {
		return failed(&apperr.ServiceError{SceneID: job.SceneID, VideoID: job.VideoID, Err: err})
	}

	kind := ResultOk
	if len(dropped) > 0 {
		kind = ResultFiltered
	}
	return JobResult{
		Job:        job,
		Kind:       kind,
		Candidates: candidates,
		Dropped:    dropped,
		Notes:      proposal.Notes,
	}
}

// rawCandidate mirrors the analysis response schema; timestamps arrive as
// text and are parsed during normalization.
type rawCandidate struct {
	VideoID     string `json:"video_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`

	NoVisibleSpeaker *bool `json:"no_visible_speaker,omitempty"`
	NoBurnedCaptions *bool `json:"no_burned_captions,omitempty"`
	NoEdgeSpeaker    *bool `json:"no_edge_speaker,omitempty"`
	ScriptCompatible *bool `json:"script_compatible,omitempty"`
}

type proposalResponse struct {
	Candidates []rawCandidate `json:"candidates"`
	Notes      string         `json:"notes"`
}

func decodeProposal(raw map[string]any) (*proposalResponse, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode analysis response: %w", err)
	}
	var out proposalResponse
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("analysis response shape: %w", err)
	}
	return &out, nil
}

// normalizeCandidates applies fail-closed structural checks first (any
// violation invalidates the whole job), then fail-open per-candidate filters.
func (e *Executor) normalizeCandidates(job Job, raws []rawCandidate) ([]domain.Candidate, []string, error) {
	type parsed struct {
		raw        rawCandidate
		start, end float64
	}
	parsedAll := make([]parsed, 0, len(raws))

	for i, raw := range raws {
		if raw.VideoID != job.VideoID {
			return nil, nil, fmt.Errorf("candidate %d echoes video %q, expected %q", i, raw.VideoID, job.VideoID)
		}
		start, err := timecode.Parse(raw.StartTime)
		if err != nil {
			return nil, nil, fmt.Errorf("candidate %d start: %w", i, err)
		}
		end, err := timecode.Parse(raw.EndTime)
		if err != nil {
			return nil, nil, fmt.Errorf("candidate %d end: %w", i, err)
		}
		if end <= start {
			return nil, nil, fmt.Errorf("candidate %d has end %.3f <= start %.3f", i, end, start)
		}
		if job.Window != nil {
			if start < job.Window.StartOffset-windowTolerance || end > job.Window.EndOffset+windowTolerance {
				return nil, nil, fmt.Errorf("candidate %d [%.3f,%.3f] outside window [%.3f,%.3f]",
					i, start, end, job.Window.StartOffset, job.Window.EndOffset)
			}
		}
		parsedAll = append(parsedAll, parsed{raw: raw, start: start, end: end})
	}

	var (
		candidates []domain.Candidate
		dropped    []string
	)
	now := time.Now().UTC()

	for _, p := range parsedAll {
		if job.Mode == AudioVoiceOver {
			if job.TargetDuration > 0 {
				span := p.end - p.start
				if math.Abs(span-job.TargetDuration) > job.TargetDuration*durationTolerance {
					dropped = append(dropped, fmt.Sprintf("clip %.2fs deviates more than 10%% from target %.2fs",
						span, job.TargetDuration))
					continue
				}
			}
			if reason := failedSelfCert(p.raw); reason != "" {
				dropped = append(dropped, reason)
				continue
			}
		}

		candidates = append(candidates, domain.Candidate{
			ID:            uuid.New().String(),
			SourceVideoID: job.VideoID,
			StartSeconds:  p.start,
			EndSeconds:    p.end,
			Description:   p.raw.Description,
			Rationale:     p.raw.Rationale,
			KeepAudio:     job.Mode == AudioOriginal,
			Rank:          len(candidates) + 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return candidates, dropped, nil
}

func failedSelfCert(raw rawCandidate) string {
	checks := []struct {
		val    *bool
		reason string
	}{
		{raw.NoVisibleSpeaker, "candidate self-reports a visible speaker"},
		{raw.NoBurnedCaptions, "candidate self-reports burned-in captions"},
		{raw.NoEdgeSpeaker, "candidate self-reports an edge-of-frame speaker"},
		{raw.ScriptCompatible, "candidate self-reports script incompatibility"},
	}
	for _, c := range checks {
		if c.val == nil || !*c.val {
			return c.reason
		}
	}
	return ""
}
