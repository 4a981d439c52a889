package match

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/apperr"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/platform/visionai"
)

const (
	// maxShortlistWindows bounds one stage-A response; more is a service
	// contract violation and fails the stage outright.
	maxShortlistWindows = 5
	// maxWindowSpan caps a review window in seconds.
	maxWindowSpan = 120.0
	// overrunClampTolerance is how far past the video duration a window end
	// may land and still be clamped instead of rejected.
	overrunClampTolerance = 0.5
)

type shortlister struct {
	log     *logger.Logger
	vision  visionai.Client
	library media.Library
}

func newShortlister(baseLog *logger.Logger, vision visionai.Client, library media.Library) *shortlister {
	return &shortlister{
		log:     baseLog.With("component", "Shortlister"),
		vision:  vision,
		library: library,
	}
}

type rawWindow struct {
	VideoID      string  `json:"video_id"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Reason       string  `json:"reason"`
}

type shortlistResponse struct {
	Windows []rawWindow `json:"windows"`
}

// shortlist runs stage A for one scene: propose broad review windows from the
// index digest, then validate them. Structural violations fail the stage;
// a window whose span is not strictly greater than the target is dropped
// with a warning.
func (s *shortlister) shortlist(ctx context.Context, scene *domain.Scene, notes string, target float64, index *domain.SceneIndex) ([]ShortlistWindow, []Issue, error) {
	raw, err := s.vision.GenerateJSON(ctx, buildShortlistBrief(scene, notes, target, index), shortlistSchema())
	if err != nil {
		return nil, nil, &apperr.ServiceError{SceneID: scene.ID, Err: err}
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, &apperr.ServiceError{SceneID: scene.ID, Err: fmt.Errorf("re-encode shortlist response: %w", err)}
	}
	var resp shortlistResponse
	if err := json.Unmarshal(buf, &resp); err != nil {
		return nil, nil, &apperr.ServiceError{SceneID: scene.ID, Err: fmt.Errorf("shortlist response shape: %w", err)}
	}

	if len(resp.Windows) > maxShortlistWindows {
		return nil, nil, &apperr.ServiceError{
			SceneID: scene.ID,
			Err:     fmt.Errorf("shortlist returned %d windows, max %d", len(resp.Windows), maxShortlistWindows),
		}
	}

	var (
		windows  []ShortlistWindow
		warnings []Issue
	)
	for i, w := range resp.Windows {
		asset, err := s.library.Resolve(ctx, w.VideoID)
		if err != nil {
			return nil, nil, &apperr.ServiceError{
				SceneID: scene.ID,
				Err:     fmt.Errorf("shortlist window %d names unknown video %s", i, w.VideoID),
			}
		}
		if w.StartSeconds < 0 {
			return nil, nil, &apperr.ServiceError{
				SceneID: scene.ID,
				Err:     fmt.Errorf("shortlist window %d starts before 0", i),
			}
		}
		end := w.EndSeconds
		if end > asset.DurationSeconds {
			if end-asset.DurationSeconds > overrunClampTolerance {
				return nil, nil, &apperr.ServiceError{
					SceneID: scene.ID,
					Err: fmt.Errorf("shortlist window %d ends %.2fs past video duration %.2fs",
						i, end-asset.DurationSeconds, asset.DurationSeconds),
				}
			}
			end = asset.DurationSeconds
		}
		if end <= w.StartSeconds {
			return nil, nil, &apperr.ServiceError{
				SceneID: scene.ID,
				Err:     fmt.Errorf("shortlist window %d has end <= start", i),
			}
		}
		span := end - w.StartSeconds
		if span > maxWindowSpan {
			return nil, nil, &apperr.ServiceError{
				SceneID: scene.ID,
				Err:     fmt.Errorf("shortlist window %d spans %.2fs, max %.0fs", i, span, maxWindowSpan),
			}
		}
		if span <= target {
			s.log.Warn("dropping shortlist window not longer than target",
				"scene_id", scene.ID, "video_id", w.VideoID, "span", span, "target", target)
			warnings = append(warnings, Issue{
				SceneID: scene.ID,
				VideoID: w.VideoID,
				Message: fmt.Sprintf("dropped review window spanning %.2fs; must exceed target %.2fs", span, target),
			})
			continue
		}

		windows = append(windows, ShortlistWindow{
			VideoID:      w.VideoID,
			StartSeconds: w.StartSeconds,
			EndSeconds:   end,
			Reason:       w.Reason,
		})
	}

	if len(windows) == 0 {
		return nil, warnings, &apperr.ServiceError{
			SceneID: scene.ID,
			Err:     fmt.Errorf("no shortlist windows survived validation"),
		}
	}
	return windows, warnings, nil
}
