package match

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/apperr"
	"github.com/yungbote/storycut-backend/internal/platform/visionai"
)

func executorFixture(t *testing.T, vision *fakeVision) (*Executor, *fakeCache) {
	t.Helper()
	library := &fakeLibrary{assets: map[string]*media.Asset{
		"v1": {ID: "v1", Locator: "gs://footage/v1.mp4", NarrationSafeLocator: "gs://footage/v1_muted.mp4", DurationSeconds: 300},
		"v2": {ID: "v2", Locator: "gs://footage/v2.mp4", DurationSeconds: 240},
	}}
	cache := newFakeCache()
	return NewExecutor(testLogger(t), library, cache, vision, 4), cache
}

func voJob(videoID string, target float64) Job {
	return Job{
		SceneID:        "s1",
		VideoID:        videoID,
		Mode:           AudioVoiceOver,
		TargetDuration: target,
		SceneTitle:     "Harbor at dawn",
		ScenePurpose:   "set the mood",
		SceneScript:    "The harbor wakes slowly.",
	}
}

func TestRunJobsDurationToleranceBoundary(t *testing.T) {
	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("",
				voCandidate("v1", "00:10.000", "00:17.600"), // 7.6s: 5% under target 8.0
				voCandidate("v1", "00:10.000", "00:16.800"), // 6.8s: 15% under, dropped
			), nil
		},
	}
	executor, _ := executorFixture(t, vision)

	results := executor.RunJobs(context.Background(), []Job{voJob("v1", 8.0)})
	res := results[0]
	if res.Kind != ResultFiltered {
		t.Fatalf("expected ResultFiltered, got %v (err=%v)", res.Kind, res.Err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].EndSeconds != 17.6 {
		t.Fatalf("expected only the in-tolerance candidate: %#v", res.Candidates)
	}
	if len(res.Dropped) != 1 {
		t.Fatalf("expected one drop reason: %#v", res.Dropped)
	}
}

func TestRunJobsVideoIDEchoEnforced(t *testing.T) {
	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("",
				voCandidate("v1", "00:10.000", "00:18.000"),
				voCandidate("v2", "00:20.000", "00:28.000"),
			), nil
		},
	}
	executor, _ := executorFixture(t, vision)

	results := executor.RunJobs(context.Background(), []Job{voJob("v1", 8.0)})
	res := results[0]
	if res.Kind != ResultFailed || len(res.Candidates) != 0 {
		t.Fatalf("echo mismatch must fail the whole job: %#v", res)
	}
	var se *apperr.ServiceError
	if !errors.As(res.Err, &se) {
		t.Fatalf("expected ServiceError, got %v", res.Err)
	}
}

func TestRunJobsMalformedTimestampFailsJob(t *testing.T) {
	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("", voCandidate("v1", "ten seconds", "00:18.000")), nil
		},
	}
	executor, _ := executorFixture(t, vision)

	results := executor.RunJobs(context.Background(), []Job{voJob("v1", 8.0)})
	if results[0].Kind != ResultFailed {
		t.Fatalf("malformed timestamp must fail the job: %#v", results[0])
	}
}

func TestRunJobsWindowContainment(t *testing.T) {
	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("", voCandidate("v1", "00:09.900", "00:17.700")), nil
		},
	}
	executor, _ := executorFixture(t, vision)

	// 9.9 is within 0.25s of the 10.0 window start; accepted.
	job := voJob("v1", 7.8)
	job.Window = &SubWindow{StartOffset: 10, EndOffset: 30}
	results := executor.RunJobs(context.Background(), []Job{job})
	if results[0].Kind == ResultFailed {
		t.Fatalf("candidate within tolerance must pass: %v", results[0].Err)
	}

	// A tighter window puts the same candidate 2.3s outside; job fails.
	job.Window = &SubWindow{StartOffset: 12.2, EndOffset: 30}
	results = executor.RunJobs(context.Background(), []Job{job})
	if results[0].Kind != ResultFailed {
		t.Fatalf("candidate outside window must fail the job: %#v", results[0])
	}
}

func TestRunJobsSelfCertificationDrops(t *testing.T) {
	flagged := voCandidate("v1", "00:10.000", "00:18.000")
	flagged["no_burned_captions"] = false

	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("", flagged, voCandidate("v1", "00:30.000", "00:38.000")), nil
		},
	}
	executor, _ := executorFixture(t, vision)

	results := executor.RunJobs(context.Background(), []Job{voJob("v1", 8.0)})
	res := results[0]
	if res.Kind != ResultFiltered || len(res.Candidates) != 1 || res.Candidates[0].StartSeconds != 30 {
		t.Fatalf("self-cert failure must drop only that candidate: %#v", res)
	}
}

func TestRunJobsUsesNarrationSafeVariantForVoiceOver(t *testing.T) {
	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("", voCandidate("v1", "00:10.000", "00:18.000")), nil
		},
	}
	executor, cache := executorFixture(t, vision)

	executor.RunJobs(context.Background(), []Job{voJob("v1", 8.0)})
	if cache.prepared["gs://footage/v1_muted.mp4"] != 1 {
		t.Fatalf("voice-over job must prepare the narration-safe variant: %#v", cache.prepared)
	}
	if cache.prepared["gs://footage/v1.mp4"] != 0 {
		t.Fatalf("voice-over job must not prepare the original: %#v", cache.prepared)
	}
}

func TestRunJobsOriginalAudioKeepsAudio(t *testing.T) {
	cand := map[string]any{
		"video_id":    "v2",
		"start_time":  "00:05.000",
		"end_time":    "00:12.000",
		"description": "captain explains the route",
		"rationale":   "speaker on camera, clean take",
	}
	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("good interview footage", cand), nil
		},
	}
	executor, cache := executorFixture(t, vision)

	job := Job{SceneID: "s2", VideoID: "v2", Mode: AudioOriginal, SceneTitle: "Interview", ScenePurpose: "hear the captain"}
	results := executor.RunJobs(context.Background(), []Job{job})
	res := results[0]
	if res.Kind != ResultOk || len(res.Candidates) != 1 {
		t.Fatalf("expected clean result: %#v", res)
	}
	if !res.Candidates[0].KeepAudio {
		t.Fatalf("original-audio candidates must keep audio")
	}
	if res.Notes != "good interview footage" {
		t.Fatalf("notes not surfaced: %q", res.Notes)
	}
	if cache.prepared["gs://footage/v2.mp4"] != 1 {
		t.Fatalf("original-audio job must prepare the original locator: %#v", cache.prepared)
	}
}

func TestRunJobsPreparationFailureFailsOnlyThatVideo(t *testing.T) {
	vision := &fakeVision{
		propose: func(_ context.Context, _ visionai.Handle, _ string, _ *visionai.Window, _ map[string]any) (map[string]any, error) {
			return rawProposal("", voCandidate("v2", "00:05.000", "00:13.000")), nil
		},
	}
	library := &fakeLibrary{assets: map[string]*media.Asset{
		"v1": {ID: "v1", Locator: "gs://footage/v1.mp4", DurationSeconds: 300},
		"v2": {ID: "v2", Locator: "gs://footage/v2.mp4", DurationSeconds: 240},
	}}
	cache := newFakeCache()
	cache.fail["gs://footage/v1.mp4"] = true
	executor := NewExecutor(testLogger(t), library, cache, vision, 4)

	results := executor.RunJobs(context.Background(), []Job{voJob("v1", 8.0), voJob("v2", 8.0)})
	if results[0].Kind != ResultFailed {
		t.Fatalf("v1 job should fail on preparation: %#v", results[0])
	}
	var pe *apperr.PreparationError
	if !errors.As(results[0].Err, &pe) {
		t.Fatalf("expected PreparationError, got %v", results[0].Err)
	}
	if results[1].Kind == ResultFailed {
		t.Fatalf("v2 job must be unaffected: %v", results[1].Err)
	}
}
