package match

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/apperr"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/platform/visionai"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeLibrary struct {
	assets map[string]*media.Asset
}

func (f *fakeLibrary) Resolve(_ context.Context, videoID string) (*media.Asset, error) {
	if asset, ok := f.assets[videoID]; ok {
		return asset, nil
	}
	return nil, &apperr.NotFoundError{Kind: "video", ID: videoID}
}

func (f *fakeLibrary) ListAssets(_ context.Context, tenant string) ([]*media.Asset, error) {
	var out []*media.Asset
	for _, asset := range f.assets {
		if asset.Tenant == tenant {
			out = append(out, asset)
		}
	}
	return out, nil
}

type fakeCache struct {
	mu       sync.Mutex
	prepared map[string]int
	fail     map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{prepared: map[string]int{}, fail: map[string]bool{}}
}

func (f *fakeCache) Prepare(_ context.Context, locator, _ string) (visionai.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepared[locator]++
	if f.fail[locator] {
		return visionai.Handle{}, &apperr.PreparationError{Locator: locator}
	}
	return visionai.Handle{Name: "files/" + locator, URI: locator, MimeType: "video/mp4"}, nil
}

type fakeVision struct {
	propose  func(ctx context.Context, handle visionai.Handle, brief string, window *visionai.Window, schema map[string]any) (map[string]any, error)
	generate func(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error)
}

func (f *fakeVision) Upload(_ context.Context, displayName, mimeType string, _ io.Reader, _ int64) (visionai.Handle, error) {
	return visionai.Handle{Name: "files/" + displayName, URI: displayName, MimeType: mimeType}, nil
}

func (f *fakeVision) ProposeJSON(ctx context.Context, handle visionai.Handle, brief string, window *visionai.Window, schema map[string]any) (map[string]any, error) {
	return f.propose(ctx, handle, brief, window, schema)
}

func (f *fakeVision) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	return f.generate(ctx, prompt, schema)
}

// rawProposal builds a service response the way the wire delivers it.
func rawProposal(notes string, candidates ...map[string]any) map[string]any {
	list := make([]any, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, c)
	}
	out := map[string]any{"candidates": list}
	if notes != "" {
		out["notes"] = notes
	}
	return out
}

func voCandidate(videoID, start, end string) map[string]any {
	return map[string]any{
		"video_id":           videoID,
		"start_time":         start,
		"end_time":           end,
		"description":        "aerial pan over the bay",
		"rationale":          "matches the narration imagery",
		"no_visible_speaker": true,
		"no_burned_captions": true,
		"no_edge_speaker":    true,
		"script_compatible":  true,
	}
}

func voScene(id string, duration float64) *domain.Scene {
	return &domain.Scene{
		ID:           id,
		Title:        "Harbor at dawn",
		Purpose:      "set the mood",
		Script:       "The harbor wakes slowly.",
		UseVoiceOver: true,
		VoiceOver:    &domain.VoiceOver{Script: "The harbor wakes slowly.", DurationSeconds: duration},
	}
}
