package sceneindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/storycut-backend/internal/domain"
	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
)

const (
	ExcludeTalkingHead     = "talking_head"
	ExcludeBurnedCaptions  = "burned_in_captions"
	ExcludeEdgeSpeaker     = "edge_speaker"
	ExcludeTestimonySpeech = "testimony_like_speech"
	ExcludeInvalidTiming   = "invalid_timing"
)

// Builder annotates every catalogued asset of a tenant and classifies its
// shots into eligible vs excluded sub-scenes.
type Builder struct {
	log         *logger.Logger
	client      *videointelligence.Client
	library     media.Library
	store       Store
	concurrency int
	maxRetries  int
}

func NewBuilder(baseLog *logger.Logger, client *videointelligence.Client, library media.Library, store Store, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Builder{
		log:         baseLog.With("service", "SceneIndexBuilder"),
		client:      client,
		library:     library,
		store:       store,
		concurrency: concurrency,
		maxRetries:  4,
	}
}

// Build annotates all assets of the tenant concurrently, writes the index,
// and returns it. Per-asset annotation failures skip that video with a
// warning rather than failing the whole build.
func (b *Builder) Build(ctx context.Context, tenant string) (*domain.SceneIndex, error) {
	assets, err := b.library.ListAssets(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("tenant %s has no catalogued assets", tenant)
	}

	indexes := make([]*domain.VideoIndex, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			vi, err := b.buildVideo(gctx, asset)
			if err != nil {
				b.log.Warn("skipping asset in index build", "video_id", asset.ID, "error", err)
				return nil
			}
			indexes[i] = vi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := &domain.SceneIndex{
		Tenant:  tenant,
		Videos:  map[string]domain.VideoIndex{},
		BuiltAt: time.Now().UTC(),
	}
	for _, vi := range indexes {
		if vi != nil {
			index.Videos[vi.VideoID] = *vi
		}
	}
	if len(index.Videos) == 0 {
		return nil, fmt.Errorf("index build produced no usable videos for tenant %s", tenant)
	}

	if err := b.store.Write(ctx, index); err != nil {
		return nil, err
	}
	return index, nil
}

func (b *Builder) buildVideo(ctx context.Context, asset *media.Asset) (*domain.VideoIndex, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if !strings.HasPrefix(asset.Locator, "gs://") {
		return nil, fmt.Errorf("locator must be gs://... got %q", asset.Locator)
	}

	req := &vipb.AnnotateVideoRequest{
		InputUri: asset.Locator,
		Features: []vipb.Feature{
			vipb.Feature_SHOT_CHANGE_DETECTION,
			vipb.Feature_TEXT_DETECTION,
			vipb.Feature_FACE_DETECTION,
			vipb.Feature_SPEECH_TRANSCRIPTION,
		},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               "en-US",
				EnableAutomaticPunctuation: true,
			},
			TextDetectionConfig: &vipb.TextDetectionConfig{},
			FaceDetectionConfig: &vipb.FaceDetectionConfig{
				IncludeBoundingBoxes: true,
			},
		},
	}

	resp, err := b.retryAnnotate(ctx, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := b.client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return nil, fmt.Errorf("no annotation results for %s", asset.ID)
	}

	obs := observationsFromAnnotations(resp.AnnotationResults[0])
	eligible, excluded := classifyShots(obs)

	return &domain.VideoIndex{
		VideoID:         asset.ID,
		DurationSeconds: asset.DurationSeconds,
		Eligible:        eligible,
		Excluded:        excluded,
	}, nil
}

// observations is the annotation payload reduced to what classification
// needs; it keeps classifyShots testable without the GCP client.
type observations struct {
	shots       []span
	textSpans   []span
	faceSpans   []faceSpan
	speechSpans []speechSpan
}

type span struct {
	start, end float64
}

type faceSpan struct {
	span
	// nearEdge is set when the face track hugs the left or right frame edge.
	nearEdge bool
}

type speechSpan struct {
	span
	transcript string
}

func observationsFromAnnotations(ar *vipb.VideoAnnotationResults) observations {
	var obs observations

	for _, sh := range ar.ShotAnnotations {
		if sh == nil {
			continue
		}
		obs.shots = append(obs.shots, span{durToSec(sh.StartTimeOffset), durToSec(sh.EndTimeOffset)})
	}

	for _, ta := range ar.TextAnnotations {
		if ta == nil || strings.TrimSpace(ta.Text) == "" {
			continue
		}
		for _, seg := range ta.Segments {
			if seg == nil || seg.Segment == nil {
				continue
			}
			obs.textSpans = append(obs.textSpans, span{
				durToSec(seg.Segment.StartTimeOffset),
				durToSec(seg.Segment.EndTimeOffset),
			})
		}
	}

	for _, fa := range ar.FaceDetectionAnnotations {
		if fa == nil {
			continue
		}
		for _, track := range fa.Tracks {
			if track == nil || track.Segment == nil {
				continue
			}
			fs := faceSpan{span: span{
				durToSec(track.Segment.StartTimeOffset),
				durToSec(track.Segment.EndTimeOffset),
			}}
			for _, obj := range track.TimestampedObjects {
				if obj == nil || obj.NormalizedBoundingBox == nil {
					continue
				}
				box := obj.NormalizedBoundingBox
				center := (box.Left + box.Right) / 2
				if center < 0.15 || center > 0.85 {
					fs.nearEdge = true
					break
				}
			}
			obs.faceSpans = append(obs.faceSpans, fs)
		}
	}

	for _, st := range ar.SpeechTranscriptions {
		if st == nil || len(st.Alternatives) == 0 || st.Alternatives[0] == nil {
			continue
		}
		alt := st.Alternatives[0]
		if strings.TrimSpace(alt.Transcript) == "" || len(alt.Words) == 0 {
			continue
		}
		obs.speechSpans = append(obs.speechSpans, speechSpan{
			span: span{
				durToSec(alt.Words[0].StartTime),
				durToSec(alt.Words[len(alt.Words)-1].EndTime),
			},
			transcript: alt.Transcript,
		})
	}

	return obs
}

// classifyShots labels each shot eligible or excluded. A shot picks up the
// first exclusion reason that applies, in severity order.
func classifyShots(obs observations) (eligible, excluded []domain.SubScene) {
	shots := append([]span(nil), obs.shots...)
	sort.Slice(shots, func(i, j int) bool { return shots[i].start < shots[j].start })

	for _, shot := range shots {
		sub := domain.SubScene{StartSeconds: shot.start, EndSeconds: shot.end}

		if reason := excludeReason(shot, obs); reason != "" {
			sub.ExcludeReason = reason
			excluded = append(excluded, sub)
			continue
		}
		eligible = append(eligible, sub)
	}
	return eligible, excluded
}

func excludeReason(shot span, obs observations) string {
	if shot.end <= shot.start {
		return ExcludeInvalidTiming
	}

	speech := false
	testimony := false
	for _, sp := range obs.speechSpans {
		if !overlaps(shot, sp.span) {
			continue
		}
		speech = true
		if looksLikeTestimony(sp.transcript) {
			testimony = true
		}
	}

	for _, fs := range obs.faceSpans {
		if !overlaps(shot, fs.span) {
			continue
		}
		if speech {
			if fs.nearEdge {
				return ExcludeEdgeSpeaker
			}
			return ExcludeTalkingHead
		}
	}

	for _, ts := range obs.textSpans {
		if overlaps(shot, ts) {
			return ExcludeBurnedCaptions
		}
	}

	if testimony {
		return ExcludeTestimonySpeech
	}
	return ""
}

func overlaps(a, b span) bool {
	return a.start < b.end && b.start < a.end
}

var testimonyMarkers = []string{
	"i think", "i believe", "in my experience", "my name is",
	"i remember", "for me personally", "when i was",
}

func looksLikeTestimony(transcript string) bool {
	t := strings.ToLower(transcript)
	for _, marker := range testimonyMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func (b *Builder) retryAnnotate(ctx context.Context, fn func() (*vipb.AnnotateVideoResponse, error)) (*vipb.AnnotateVideoResponse, error) {
	backoff := 750 * time.Millisecond
	var last error

	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == b.maxRetries {
			break
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}
