// Package selection owns the per-scene candidate list, the active selection,
// and the capped selection history. All scene-state mutation goes through
// here.
package selection

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/platform/apperr"
)

// Select makes candidateID the active selection. Selecting the already
// active candidate is a no-op. The outgoing selection, when one exists, is
// recorded in history before the switch.
func Select(scene *domain.Scene, candidateID, changedBy, reason string) error {
	if _, ok := scene.CandidateByID(candidateID); !ok {
		return &apperr.NotFoundError{Kind: "candidate", ID: candidateID}
	}
	if scene.SelectedCandidateID == candidateID {
		return nil
	}

	if scene.SelectedCandidateID != "" {
		appendHistory(scene, domain.SelectionHistoryEntry{
			ID:          uuid.New().String(),
			CandidateID: scene.SelectedCandidateID,
			ChangedAt:   time.Now().UTC(),
			ChangedBy:   changedBy,
			Reason:      reason,
		})
	}

	scene.SelectedCandidateID = candidateID
	scene.Project()
	return nil
}

// Restore re-selects the candidate a history entry points at.
func Restore(scene *domain.Scene, entryID, changedBy, reason string) error {
	for _, entry := range scene.SelectionHistory {
		if entry.ID == entryID {
			return Select(scene, entry.CandidateID, changedBy, reason)
		}
	}
	return &apperr.NotFoundError{Kind: "history entry", ID: entryID}
}

// Trim edits the selected candidate's clip bounds in place. Trims are edits,
// not re-selections; no history entry is written.
func Trim(scene *domain.Scene, startSeconds, endSeconds float64) error {
	if scene.SelectedCandidateID == "" {
		return &apperr.InvalidStateError{SceneID: scene.ID, Reason: "no candidate selected"}
	}
	cand, ok := scene.CandidateByID(scene.SelectedCandidateID)
	if !ok {
		return &apperr.InvalidStateError{SceneID: scene.ID, Reason: "selected candidate is no longer in the candidate list"}
	}
	if endSeconds <= startSeconds {
		return &apperr.InvalidStateError{SceneID: scene.ID, Reason: "trim end must be greater than trim start"}
	}

	cand.StartSeconds = startSeconds
	cand.EndSeconds = endSeconds
	cand.UpdatedAt = time.Now().UTC()
	scene.Project()
	return nil
}

// ReplaceOutcome reports what a wholesale candidate replacement did to the
// existing selection.
type ReplaceOutcome struct {
	// DanglingSelection is set when the previously selected candidate is not
	// among the new candidates. The selection and the last projection are
	// preserved; the caller decides what to do.
	DanglingSelection bool
	AutoSelectedID    string
}

// ReplaceCandidates swaps the ranked candidate list wholesale, enforcing the
// shortlist cap. With autoSelectBest set and no current selection, the
// lowest-rank candidate becomes selected.
func ReplaceCandidates(scene *domain.Scene, candidates []domain.Candidate, autoSelectBest bool) ReplaceOutcome {
	var out ReplaceOutcome

	scene.Candidates = capShortlisted(candidates)

	if scene.SelectedCandidateID != "" {
		if _, ok := scene.CandidateByID(scene.SelectedCandidateID); !ok {
			out.DanglingSelection = true
		}
	}

	if autoSelectBest && scene.SelectedCandidateID == "" && len(scene.Candidates) > 0 {
		best := scene.Candidates[0]
		for _, cand := range scene.Candidates[1:] {
			if cand.Rank < best.Rank {
				best = cand
			}
		}
		scene.SelectedCandidateID = best.ID
		out.AutoSelectedID = best.ID
	}

	scene.Project()
	return out
}

// capShortlisted keeps at most MaxShortlisted candidates flagged, preferring
// the lowest ranks.
func capShortlisted(candidates []domain.Candidate) []domain.Candidate {
	out := append([]domain.Candidate(nil), candidates...)

	flagged := make([]int, 0, len(out))
	for i := range out {
		if out[i].Shortlisted {
			flagged = append(flagged, i)
		}
	}
	if len(flagged) <= domain.MaxShortlisted {
		return out
	}

	sort.SliceStable(flagged, func(a, b int) bool {
		return out[flagged[a]].Rank < out[flagged[b]].Rank
	})
	for _, idx := range flagged[domain.MaxShortlisted:] {
		out[idx].Shortlisted = false
	}
	return out
}

func appendHistory(scene *domain.Scene, entry domain.SelectionHistoryEntry) {
	scene.SelectionHistory = append(scene.SelectionHistory, entry)
	if over := len(scene.SelectionHistory) - domain.MaxSelectionHistory; over > 0 {
		scene.SelectionHistory = scene.SelectionHistory[over:]
	}
}
