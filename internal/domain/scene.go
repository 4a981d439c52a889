// Package domain holds the storyboard data model shared across the matching
// and selection packages.
package domain

import "time"

const (
	// MaxShortlisted bounds how many candidates per scene may carry the
	// shortlisted flag at once.
	MaxShortlisted = 5

	// MaxSelectionHistory caps per-scene selection history; oldest entries
	// are evicted first.
	MaxSelectionHistory = 20
)

// Scene is one storyboard unit. MatchedScene is always a pure projection of
// the selected candidate; it is never edited independently.
type Scene struct {
	ID                  string                  `json:"scene_id"`
	Title               string                  `json:"title"`
	Purpose             string                  `json:"purpose"`
	Script              string                  `json:"script,omitempty"`
	UseVoiceOver        bool                    `json:"use_voice_over"`
	VoiceOver           *VoiceOver              `json:"voice_over,omitempty"`
	Matched             *MatchedScene           `json:"matched_scene,omitempty"`
	Candidates          []Candidate             `json:"candidates,omitempty"`
	SelectedCandidateID string                  `json:"selected_candidate_id,omitempty"`
	SelectionHistory    []SelectionHistoryEntry `json:"selection_history,omitempty"`
}

// VoiceOver is a synthesized narration track with its measured duration.
type VoiceOver struct {
	Script          string  `json:"script"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// MatchedScene is the canonical clip projection for a scene.
type MatchedScene struct {
	SourceVideoID string  `json:"source_video_id"`
	StartSeconds  float64 `json:"start_seconds"`
	EndSeconds    float64 `json:"end_seconds"`
	Description   string  `json:"description"`
	KeepAudio     bool    `json:"keep_audio"`
}

// Candidate is one proposed clip for a scene. Rank 1 is best.
type Candidate struct {
	ID            string    `json:"candidate_id"`
	SourceVideoID string    `json:"source_video_id"`
	StartSeconds  float64   `json:"start_seconds"`
	EndSeconds    float64   `json:"end_seconds"`
	Description   string    `json:"description"`
	Rationale     string    `json:"rationale"`
	KeepAudio     bool      `json:"keep_audio"`
	Rank          int       `json:"rank"`
	Shortlisted   bool      `json:"shortlisted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DurationSeconds is the clip span of the candidate.
func (c Candidate) DurationSeconds() float64 {
	return c.EndSeconds - c.StartSeconds
}

// SelectionHistoryEntry records a previously active candidate.
type SelectionHistoryEntry struct {
	ID          string    `json:"entry_id"`
	CandidateID string    `json:"candidate_id"`
	ChangedAt   time.Time `json:"changed_at"`
	ChangedBy   string    `json:"changed_by"`
	Reason      string    `json:"reason"`
}

// CandidateByID returns the candidate with the given id, if present.
func (s *Scene) CandidateByID(id string) (*Candidate, bool) {
	for i := range s.Candidates {
		if s.Candidates[i].ID == id {
			return &s.Candidates[i], true
		}
	}
	return nil, false
}

// Project rebuilds MatchedScene from the currently selected candidate. If no
// valid selection exists the projection is left untouched.
func (s *Scene) Project() {
	if s.SelectedCandidateID == "" {
		return
	}
	cand, ok := s.CandidateByID(s.SelectedCandidateID)
	if !ok {
		return
	}
	s.Matched = &MatchedScene{
		SourceVideoID: cand.SourceVideoID,
		StartSeconds:  cand.StartSeconds,
		EndSeconds:    cand.EndSeconds,
		Description:   cand.Description,
		KeepAudio:     cand.KeepAudio,
	}
}
