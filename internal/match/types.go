// Package match implements the scene matching engine: request validation and
// job construction, concurrent analysis execution, the two-stage
// shortlist/deep-analysis pipeline, and result aggregation.
package match

import (
	"context"

	"github.com/yungbote/storycut-backend/internal/domain"
)

// AudioMode selects how a matched clip treats its audio track.
type AudioMode string

const (
	// AudioVoiceOver means narration is laid over the clip; original audio
	// is discarded and the footage must be narration-safe.
	AudioVoiceOver AudioMode = "voice_over"
	// AudioOriginal means the clip's own audio is kept.
	AudioOriginal AudioMode = "original_audio"
)

// SubWindow restricts analysis to a time range of the source video.
type SubWindow struct {
	StartOffset float64 `json:"start_offset"`
	EndOffset   float64 `json:"end_offset"`
}

// SceneMatchRequest asks for clip candidates for one scene. CandidateVideoIDs
// is required for the explicit variant and ignored by the indexed variant.
type SceneMatchRequest struct {
	SceneID           string     `json:"scene_id"`
	CandidateVideoIDs []string   `json:"candidate_video_ids,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	DurationSeconds   *float64   `json:"duration_seconds,omitempty"`
	Window            *SubWindow `json:"window,omitempty"`
}

// Job is one (scene, candidate video) analysis unit. Ephemeral; consumed
// once by the executor.
type Job struct {
	SceneID        string
	VideoID        string
	Mode           AudioMode
	Notes          string
	TargetDuration float64
	Window         *SubWindow

	SceneTitle   string
	ScenePurpose string
	SceneScript  string
}

// ResultKind separates fail-open filtering from fail-closed job failure.
type ResultKind int

const (
	// ResultOk: every returned candidate survived validation.
	ResultOk ResultKind = iota
	// ResultFiltered: the job succeeded but some candidates were dropped
	// by soft filters (duration tolerance, self-certification).
	ResultFiltered
	// ResultFailed: the whole job failed; no candidates are usable.
	ResultFailed
)

// JobResult is the settled outcome of one job.
type JobResult struct {
	Job        Job
	Kind       ResultKind
	Candidates []domain.Candidate
	Dropped    []string
	Notes      string
	Err        error
}

// Issue is one scene-scoped error or warning surfaced to the caller.
type Issue struct {
	SceneID string `json:"scene_id"`
	VideoID string `json:"video_id,omitempty"`
	Message string `json:"message"`
}

// Note is free-text commentary the analysis service attached per video.
type Note struct {
	SceneID string `json:"scene_id"`
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
}

// ShortlistWindow is one broad review window proposed in the shortlist stage.
type ShortlistWindow struct {
	VideoID      string  `json:"video_id"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Reason       string  `json:"reason,omitempty"`
}

// SceneResult carries everything produced for one requested scene. Present
// for every request, even when Candidates is empty.
type SceneResult struct {
	SceneID    string             `json:"scene_id"`
	Candidates []domain.Candidate `json:"candidates"`
	// Shortlist holds the intermediate stage-A windows of the indexed
	// variant, for caller inspection.
	Shortlist []ShortlistWindow `json:"shortlist,omitempty"`
}

// BatchResponse is the aggregate of one matchScenes call. Results preserve
// the caller's request order.
type BatchResponse struct {
	Results  []SceneResult `json:"results"`
	Errors   []Issue       `json:"errors,omitempty"`
	Warnings []Issue       `json:"warnings,omitempty"`
	Notes    []Note        `json:"notes,omitempty"`
}

// VoiceSynthesizer is the narration synthesis contract consumed upstream of
// matching; only the measured duration matters here.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, script string) (audioLocator string, durationSeconds float64, err error)
}
