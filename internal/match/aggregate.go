package match

import (
	"fmt"

	"github.com/yungbote/storycut-backend/internal/domain"
)

// buildResponse merges settled job results into per-scene buckets, keeping
// the caller's request order. Every requested scene gets a result entry,
// empty candidate lists included.
func buildResponse(requests []SceneMatchRequest, build BuildOutcome, results []JobResult, shortlists map[string][]ShortlistWindow) BatchResponse {
	resp := BatchResponse{
		Errors:   append([]Issue(nil), build.Errors...),
		Warnings: append([]Issue(nil), build.Warnings...),
	}

	bySceneID := map[string][]JobResult{}
	for _, res := range results {
		bySceneID[res.Job.SceneID] = append(bySceneID[res.Job.SceneID], res)
	}

	for _, req := range requests {
		scene := SceneResult{
			SceneID:    req.SceneID,
			Candidates: []domain.Candidate{},
			Shortlist:  shortlists[req.SceneID],
		}

		for _, res := range bySceneID[req.SceneID] {
			switch res.Kind {
			case ResultFailed:
				resp.Errors = append(resp.Errors, Issue{
					SceneID: req.SceneID,
					VideoID: res.Job.VideoID,
					Message: res.Err.Error(),
				})
			default:
				scene.Candidates = append(scene.Candidates, res.Candidates...)
				for _, reason := range res.Dropped {
					resp.Warnings = append(resp.Warnings, Issue{
						SceneID: req.SceneID,
						VideoID: res.Job.VideoID,
						Message: reason,
					})
				}
				if res.Notes != "" {
					resp.Notes = append(resp.Notes, Note{
						SceneID: req.SceneID,
						VideoID: res.Job.VideoID,
						Text:    res.Notes,
					})
				}
			}
		}

		// Candidates from different videos keep their per-job order; ranks
		// are renumbered across the merged scene list.
		for i := range scene.Candidates {
			scene.Candidates[i].Rank = i + 1
		}

		if len(scene.Candidates) == 0 {
			resp.Warnings = append(resp.Warnings, Issue{
				SceneID: req.SceneID,
				Message: fmt.Sprintf("no clip candidates survived for scene %s", req.SceneID),
			})
		}

		resp.Results = append(resp.Results, scene)
	}

	return resp
}
