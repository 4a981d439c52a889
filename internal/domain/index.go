package domain

import "time"

// SubScene is a contiguous stretch of one source video, classified while
// building the per-tenant scene index.
type SubScene struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Summary      string  `json:"summary,omitempty"`
	// ExcludeReason is empty for eligible sub-scenes.
	ExcludeReason string `json:"exclude_reason,omitempty"`
}

// VideoIndex splits one video into eligible and excluded sub-scenes.
type VideoIndex struct {
	VideoID         string     `json:"video_id"`
	DurationSeconds float64    `json:"duration_seconds"`
	Eligible        []SubScene `json:"eligible"`
	Excluded        []SubScene `json:"excluded"`
}

// SceneIndex is the precomputed per-tenant footage index the shortlist stage
// draws broad review windows from.
type SceneIndex struct {
	Tenant  string                `json:"tenant"`
	Videos  map[string]VideoIndex `json:"videos"`
	BuiltAt time.Time             `json:"built_at"`
}
