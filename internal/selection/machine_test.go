package selection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/platform/apperr"
)

func testScene() *domain.Scene {
	return &domain.Scene{
		ID:      "scene-1",
		Title:   "Opening aerial",
		Purpose: "establish the location",
	}
}

func cand(id string, rank int, start, end float64) domain.Candidate {
	return domain.Candidate{
		ID:            id,
		SourceVideoID: "v1",
		StartSeconds:  start,
		EndSeconds:    end,
		Description:   "clip " + id,
		Rank:          rank,
	}
}

func TestReplaceAutoSelectsBestThenSelectWalkthrough(t *testing.T) {
	scene := testScene()

	out := ReplaceCandidates(scene, []domain.Candidate{
		cand("c1", 1, 0, 8),
		cand("c2", 2, 10, 18),
	}, true)
	if out.AutoSelectedID != "c1" || scene.SelectedCandidateID != "c1" {
		t.Fatalf("expected auto-select of c1, got %q", scene.SelectedCandidateID)
	}
	if scene.Matched == nil || scene.Matched.StartSeconds != 0 || scene.Matched.EndSeconds != 8 {
		t.Fatalf("projection not derived from c1: %#v", scene.Matched)
	}
	if len(scene.SelectionHistory) != 0 {
		t.Fatalf("auto-select must not write history: %#v", scene.SelectionHistory)
	}

	if err := Select(scene, "c2", "user", "prefer composition"); err != nil {
		t.Fatalf("select c2: %v", err)
	}
	if scene.SelectedCandidateID != "c2" {
		t.Fatalf("expected c2 selected, got %q", scene.SelectedCandidateID)
	}
	if len(scene.SelectionHistory) != 1 || scene.SelectionHistory[0].CandidateID != "c1" {
		t.Fatalf("expected one history entry for outgoing c1: %#v", scene.SelectionHistory)
	}

	// Re-selecting the active candidate is a no-op.
	if err := Select(scene, "c2", "user", "again"); err != nil {
		t.Fatalf("reselect c2: %v", err)
	}
	if len(scene.SelectionHistory) != 1 {
		t.Fatalf("no-op reselect must not grow history: %d", len(scene.SelectionHistory))
	}

	if err := Trim(scene, 2.0, 9.5); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if scene.Matched.StartSeconds != 2.0 || scene.Matched.EndSeconds != 9.5 {
		t.Fatalf("trim not reflected in projection: %#v", scene.Matched)
	}
	if len(scene.SelectionHistory) != 1 {
		t.Fatalf("trim must not write history: %d", len(scene.SelectionHistory))
	}
}

func TestSelectUnknownCandidate(t *testing.T) {
	scene := testScene()
	ReplaceCandidates(scene, []domain.Candidate{cand("c1", 1, 0, 8)}, false)

	err := Select(scene, "nope", "user", "")
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestTrimWithoutSelection(t *testing.T) {
	scene := testScene()
	ReplaceCandidates(scene, []domain.Candidate{cand("c1", 1, 0, 8)}, false)

	err := Trim(scene, 1, 2)
	var is *apperr.InvalidStateError
	if !errors.As(err, &is) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestRestoreDelegatesToSelect(t *testing.T) {
	scene := testScene()
	ReplaceCandidates(scene, []domain.Candidate{cand("c1", 1, 0, 8), cand("c2", 2, 10, 18)}, true)
	if err := Select(scene, "c2", "user", "switch"); err != nil {
		t.Fatalf("select: %v", err)
	}

	entry := scene.SelectionHistory[0]
	if err := Restore(scene, entry.ID, "user", "roll back"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if scene.SelectedCandidateID != "c1" {
		t.Fatalf("expected restored selection c1, got %q", scene.SelectedCandidateID)
	}
	if len(scene.SelectionHistory) != 2 || scene.SelectionHistory[1].CandidateID != "c2" {
		t.Fatalf("restore must record outgoing c2: %#v", scene.SelectionHistory)
	}

	var nf *apperr.NotFoundError
	if err := Restore(scene, "missing-entry", "user", ""); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError for unknown entry, got %v", err)
	}
}

func TestHistoryCappedAtTwenty(t *testing.T) {
	scene := testScene()

	candidates := make([]domain.Candidate, 26)
	for i := range candidates {
		candidates[i] = cand(fmt.Sprintf("c%d", i), i+1, 0, 8)
	}
	ReplaceCandidates(scene, candidates, false)

	for i := 0; i < 26; i++ {
		if err := Select(scene, fmt.Sprintf("c%d", i), "user", "walk"); err != nil {
			t.Fatalf("select c%d: %v", i, err)
		}
	}

	if len(scene.SelectionHistory) != domain.MaxSelectionHistory {
		t.Fatalf("expected %d history entries, got %d", domain.MaxSelectionHistory, len(scene.SelectionHistory))
	}
	// 25 switches recorded c0..c24; the first five were evicted.
	if scene.SelectionHistory[0].CandidateID != "c5" {
		t.Fatalf("expected oldest surviving entry c5, got %q", scene.SelectionHistory[0].CandidateID)
	}
	if last := scene.SelectionHistory[len(scene.SelectionHistory)-1]; last.CandidateID != "c24" {
		t.Fatalf("expected newest entry c24, got %q", last.CandidateID)
	}
}

func TestReplacePreservesDanglingSelection(t *testing.T) {
	scene := testScene()
	ReplaceCandidates(scene, []domain.Candidate{cand("c1", 1, 0, 8)}, true)

	out := ReplaceCandidates(scene, []domain.Candidate{cand("c9", 1, 4, 12)}, false)
	if !out.DanglingSelection {
		t.Fatalf("expected dangling selection flag")
	}
	if scene.SelectedCandidateID != "c1" {
		t.Fatalf("dangling selection must be preserved, got %q", scene.SelectedCandidateID)
	}
	if scene.Matched == nil || scene.Matched.EndSeconds != 8 {
		t.Fatalf("last approved projection must survive replacement: %#v", scene.Matched)
	}
}

func TestReplaceCapsShortlistedToLowestRanks(t *testing.T) {
	scene := testScene()

	candidates := make([]domain.Candidate, 7)
	for i := range candidates {
		c := cand(fmt.Sprintf("c%d", i), i+1, 0, 8)
		c.Shortlisted = true
		candidates[i] = c
	}
	ReplaceCandidates(scene, candidates, false)

	flagged := 0
	for _, c := range scene.Candidates {
		if c.Shortlisted {
			flagged++
			if c.Rank > domain.MaxShortlisted {
				t.Fatalf("candidate rank %d should have lost its shortlist flag", c.Rank)
			}
		}
	}
	if flagged != domain.MaxShortlisted {
		t.Fatalf("expected %d shortlisted, got %d", domain.MaxShortlisted, flagged)
	}
}
