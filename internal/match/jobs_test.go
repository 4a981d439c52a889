package match

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/media"
)

func buildFixture(t *testing.T) (*jobBuilder, map[string]*domain.Scene) {
	t.Helper()
	library := &fakeLibrary{assets: map[string]*media.Asset{
		"v1": {ID: "v1", Locator: "gs://footage/v1.mp4", DurationSeconds: 300},
		"v2": {ID: "v2", Locator: "gs://footage/v2.mp4", DurationSeconds: 240},
	}}
	scenes := map[string]*domain.Scene{
		"s1": voScene("s1", 8),
		"s2": {ID: "s2", Title: "Interview", Purpose: "hear the captain", UseVoiceOver: false},
	}
	return newJobBuilder(testLogger(t), library), scenes
}

func TestBuildEmitsJobPerVideoPair(t *testing.T) {
	builder, scenes := buildFixture(t)

	out := builder.build(context.Background(), scenes, []SceneMatchRequest{
		{SceneID: "s1", CandidateVideoIDs: []string{"v1", "v2"}, Notes: "keep it calm"},
	})
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %#v", out.Errors)
	}
	if len(out.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(out.Jobs))
	}
	for _, job := range out.Jobs {
		if job.Mode != AudioVoiceOver {
			t.Fatalf("voice-over scene must produce voice_over jobs, got %q", job.Mode)
		}
		if job.TargetDuration != 8 {
			t.Fatalf("expected measured target 8, got %v", job.TargetDuration)
		}
		if job.Notes != "keep it calm" {
			t.Fatalf("notes not carried: %q", job.Notes)
		}
	}
}

func TestBuildFailsRequestNotBatch(t *testing.T) {
	builder, scenes := buildFixture(t)

	out := builder.build(context.Background(), scenes, []SceneMatchRequest{
		{SceneID: "missing", CandidateVideoIDs: []string{"v1"}},
		{SceneID: "s1", CandidateVideoIDs: []string{"v1"}},
	})
	if len(out.Errors) != 1 || out.Errors[0].SceneID != "missing" {
		t.Fatalf("expected one error for the unknown scene: %#v", out.Errors)
	}
	if len(out.Jobs) != 1 || out.Jobs[0].SceneID != "s1" {
		t.Fatalf("sibling request must still build: %#v", out.Jobs)
	}
}

func TestBuildRejectsBadCandidateLists(t *testing.T) {
	builder, scenes := buildFixture(t)

	cases := []SceneMatchRequest{
		{SceneID: "s1"},
		{SceneID: "s1", CandidateVideoIDs: []string{"v1", "v2", "v1", "v2", "v1", "v2"}},
		{SceneID: "s1", CandidateVideoIDs: []string{"ghost"}},
	}
	for _, req := range cases {
		out := builder.build(context.Background(), scenes, []SceneMatchRequest{req})
		if len(out.Errors) != 1 || len(out.Jobs) != 0 {
			t.Fatalf("expected request failure for %#v, got %#v", req, out)
		}
	}
}

func TestBuildDurationResolution(t *testing.T) {
	builder, scenes := buildFixture(t)

	// Voice-over scene without a measured duration and no override fails.
	noVO := voScene("s3", 0)
	noVO.VoiceOver = nil
	scenes["s3"] = noVO
	out := builder.build(context.Background(), scenes, []SceneMatchRequest{
		{SceneID: "s3", CandidateVideoIDs: []string{"v1"}},
	})
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0].Message, "generate the voice track") {
		t.Fatalf("expected missing-duration failure: %#v", out.Errors)
	}

	// Caller override is accepted with a warning.
	override := 7.5
	out = builder.build(context.Background(), scenes, []SceneMatchRequest{
		{SceneID: "s3", CandidateVideoIDs: []string{"v1"}, DurationSeconds: &override},
	})
	if len(out.Errors) != 0 || len(out.Jobs) != 1 {
		t.Fatalf("override should build: %#v", out)
	}
	if out.Jobs[0].TargetDuration != 7.5 {
		t.Fatalf("expected override target, got %v", out.Jobs[0].TargetDuration)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0].Message, "override") {
		t.Fatalf("expected override warning: %#v", out.Warnings)
	}

	// The measured duration beats the override, no warning.
	out = builder.build(context.Background(), scenes, []SceneMatchRequest{
		{SceneID: "s1", CandidateVideoIDs: []string{"v1"}, DurationSeconds: &override},
	})
	if out.Jobs[0].TargetDuration != 8 || len(out.Warnings) != 0 {
		t.Fatalf("measured duration must win: %#v", out)
	}

	// Non-voice-over scenes may run without any target.
	out = builder.build(context.Background(), scenes, []SceneMatchRequest{
		{SceneID: "s2", CandidateVideoIDs: []string{"v1"}},
	})
	if len(out.Errors) != 0 || out.Jobs[0].TargetDuration != 0 || out.Jobs[0].Mode != AudioOriginal {
		t.Fatalf("original-audio request should build without target: %#v", out)
	}
}

func TestBuildValidatesSubWindow(t *testing.T) {
	builder, scenes := buildFixture(t)

	for _, window := range []*SubWindow{
		{StartOffset: -1, EndOffset: 5},
		{StartOffset: 10, EndOffset: 10},
		{StartOffset: 10, EndOffset: 4},
	} {
		out := builder.build(context.Background(), scenes, []SceneMatchRequest{
			{SceneID: "s1", CandidateVideoIDs: []string{"v1"}, Window: window},
		})
		if len(out.Errors) != 1 || len(out.Jobs) != 0 {
			t.Fatalf("expected window rejection for %#v: %#v", window, out)
		}
	}

	out := builder.build(context.Background(), scenes, []SceneMatchRequest{
		{SceneID: "s1", CandidateVideoIDs: []string{"v1"}, Window: &SubWindow{StartOffset: 10, EndOffset: 40}},
	})
	if len(out.Errors) != 0 || out.Jobs[0].Window == nil {
		t.Fatalf("valid window should carry into the job: %#v", out)
	}
}
