package match

import (
	"fmt"
	"strings"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/platform/timecode"
)

// buildBrief renders the analysis instructions for one job. The brief is the
// only channel for scene context; the service sees footage plus this text.
func buildBrief(job Job) string {
	var b strings.Builder

	b.WriteString("You are selecting clip candidates from the provided video for one scene of a storyboard.\n\n")
	fmt.Fprintf(&b, "Scene title: %s\n", job.SceneTitle)
	fmt.Fprintf(&b, "Scene purpose: %s\n", job.ScenePurpose)
	if strings.TrimSpace(job.SceneScript) != "" {
		fmt.Fprintf(&b, "Narration script: %s\n", job.SceneScript)
	}
	if strings.TrimSpace(job.Notes) != "" {
		fmt.Fprintf(&b, "Editor notes: %s\n", job.Notes)
	}
	fmt.Fprintf(&b, "Video id: %s\n", job.VideoID)

	if job.TargetDuration > 0 {
		fmt.Fprintf(&b, "\nEach proposed clip must run close to %.2f seconds (within 1 second either way).\n", job.TargetDuration)
	}
	if job.Window != nil {
		fmt.Fprintf(&b, "Only consider footage between %s and %s.\n",
			timecode.Format(job.Window.StartOffset), timecode.Format(job.Window.EndOffset))
	}

	switch job.Mode {
	case AudioVoiceOver:
		b.WriteString(`
Narration will be laid over the clip, so the footage must stand on its own:
- no visible speaker or talking head
- no burned-in captions or subtitles
- not a static frame; the shot must have motion or visual progression
- the imagery must plausibly illustrate the narration script
For every candidate report the self-check booleans defined in the response schema honestly.
`)
	case AudioOriginal:
		b.WriteString(`
The clip's own audio will be kept:
- the speaker must be on camera and clearly audible
- trim the clip to start at the first spoken syllable and end at the last
- avoid clips where speech is cut off mid-sentence
`)
	}

	b.WriteString("\nReturn timestamps as MM:SS.mmm (or HH:MM:SS.mmm for footage past the hour mark), measured from the start of the file.\n")
	b.WriteString("Echo the video id exactly as given for every candidate.\n")
	return b.String()
}

// proposalSchema is the structured-response contract for one analysis job.
func proposalSchema(mode AudioMode) map[string]any {
	candidate := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"video_id":    map[string]any{"type": "STRING"},
			"start_time":  map[string]any{"type": "STRING"},
			"end_time":    map[string]any{"type": "STRING"},
			"description": map[string]any{"type": "STRING"},
			"rationale":   map[string]any{"type": "STRING"},
		},
		"required": []string{"video_id", "start_time", "end_time", "description", "rationale"},
	}

	if mode == AudioVoiceOver {
		props := candidate["properties"].(map[string]any)
		props["no_visible_speaker"] = map[string]any{"type": "BOOLEAN"}
		props["no_burned_captions"] = map[string]any{"type": "BOOLEAN"}
		props["no_edge_speaker"] = map[string]any{"type": "BOOLEAN"}
		props["script_compatible"] = map[string]any{"type": "BOOLEAN"}
		candidate["required"] = append(candidate["required"].([]string),
			"no_visible_speaker", "no_burned_captions", "no_edge_speaker", "script_compatible")
	}

	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"candidates": map[string]any{"type": "ARRAY", "items": candidate},
			"notes":      map[string]any{"type": "STRING"},
		},
		"required": []string{"candidates"},
	}
}

// buildShortlistBrief renders the stage-A instructions: broad review windows
// drawn only from eligible sub-scenes of the index digest.
func buildShortlistBrief(scene *domain.Scene, notes string, target float64, index *domain.SceneIndex) string {
	var b strings.Builder

	b.WriteString("You are shortlisting broad review windows of stock footage for one storyboard scene.\n\n")
	fmt.Fprintf(&b, "Scene title: %s\n", scene.Title)
	fmt.Fprintf(&b, "Scene purpose: %s\n", scene.Purpose)
	if strings.TrimSpace(scene.Script) != "" {
		fmt.Fprintf(&b, "Narration script: %s\n", scene.Script)
	}
	if strings.TrimSpace(notes) != "" {
		fmt.Fprintf(&b, "Editor notes: %s\n", notes)
	}
	fmt.Fprintf(&b, "\nTarget narration duration: %.2f seconds.\n", target)

	b.WriteString(`
Rules:
- propose at most 5 windows
- every window must lie inside ONE video and inside its eligible ranges below
- each window must span strictly more than the target duration, and at most 120 seconds
- never use excluded ranges; their footage has disqualifying content

Available footage (seconds from file start):
`)
	for videoID, vi := range index.Videos {
		fmt.Fprintf(&b, "\nvideo %s (duration %.2fs)\n", videoID, vi.DurationSeconds)
		for _, sub := range vi.Eligible {
			fmt.Fprintf(&b, "  eligible %.2f-%.2f", sub.StartSeconds, sub.EndSeconds)
			if sub.Summary != "" {
				fmt.Fprintf(&b, " %s", sub.Summary)
			}
			b.WriteString("\n")
		}
		for _, sub := range vi.Excluded {
			fmt.Fprintf(&b, "  excluded %.2f-%.2f (%s)\n", sub.StartSeconds, sub.EndSeconds, sub.ExcludeReason)
		}
	}

	b.WriteString("\nReturn start/end in seconds from file start, echoing the video id exactly as listed.\n")
	return b.String()
}

func shortlistSchema() map[string]any {
	window := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"video_id":      map[string]any{"type": "STRING"},
			"start_seconds": map[string]any{"type": "NUMBER"},
			"end_seconds":   map[string]any{"type": "NUMBER"},
			"reason":        map[string]any{"type": "STRING"},
		},
		"required": []string{"video_id", "start_seconds", "end_seconds"},
	}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"windows": map[string]any{"type": "ARRAY", "items": window},
		},
		"required": []string{"windows"},
	}
}
