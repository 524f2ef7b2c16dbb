package assembly

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"newsreel/internal/model/render"
)

// CompositionPlan is the fully computed, engine-agnostic description of the
// video to render: timing, transitions, audio order, overlay text, output
// profile. It is a pure function of the render request and carries no
// knowledge of which backend executes it.
type CompositionPlan struct {
	Width            int
	Height           int
	FPS              int
	TransitionSec    float64
	TotalDurationSec float64

	Slides      []SlideClip
	Transitions []Crossfade
	AudioTrack  []AudioClip
	Overlay     TextOverlay

	// OutputFile is the canonical artifact name inside the render
	// working directory.
	OutputFile string
}

// SlideClip is one slide's render instruction.
type SlideClip struct {
	SlideIndex  int
	FileName    string // canonical in-sandbox name, e.g. slide_00.png
	SourceRef   string // where to fetch it from
	StartSec    float64
	DurationSec float64
	FrameCount  int
	Zoom        ZoomSpec
}

// ZoomSpec describes the linear pan/zoom over one slide's frames.
type ZoomSpec struct {
	Direction    render.ZoomDirection
	From         float64
	To           float64
	StepPerFrame float64
}

// Crossfade is one transition of the linear fade chain. OffsetSec is on the
// nominal timeline; backends translate it to their own clock.
type Crossfade struct {
	FromIndex   int
	ToIndex     int
	DurationSec float64
	OffsetSec   float64
}

// AudioClip is one narration segment of the single concatenated audio track.
// Order must exactly match the video timeline; any drift compounds across
// slides.
type AudioClip struct {
	SlideIndex  int
	FileName    string
	SourceRef   string
	DurationSec float64
}

// TextOverlay is the date badge burned into every frame. Text is raw;
// backends escape it for their own syntax.
type TextOverlay struct {
	Text string
}

var safeExt = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,4}$`)

// BuildPlan translates a timeline into render instructions: per-slide
// pan/zoom bounded by frame count, the cross-fade chain at the computed
// offsets, narration concatenation in slide-index order, and the localized
// date overlay.
func BuildPlan(req *render.RenderRequest, slots []TimelineSlot, p Profile) (*CompositionPlan, error) {
	slides := make(map[int]render.SlideAsset, len(req.Slides))
	for _, s := range req.Slides {
		slides[s.SlideIndex] = s
	}
	audio := make(map[int]render.AudioAsset, len(req.Audio))
	for _, a := range req.Audio {
		audio[a.SlideIndex] = a
	}

	overlayText, err := FormatOverlayDate(req.OverlayDate, p.OverlayLocale)
	if err != nil {
		return nil, err
	}

	plan := &CompositionPlan{
		Width:            p.Width,
		Height:           p.Height,
		FPS:              p.FPS,
		TransitionSec:    p.TransitionSec,
		TotalDurationSec: TotalDurationSec(slots, p.TransitionSec),
		Overlay:          TextOverlay{Text: overlayText},
		OutputFile:       "output.mp4",
	}

	for i, slot := range slots {
		slide, ok := slides[slot.SlideIndex]
		if !ok {
			return nil, fmt.Errorf("timeline slot %d has no slide asset", slot.SlideIndex)
		}
		clip, ok := audio[slot.SlideIndex]
		if !ok {
			return nil, fmt.Errorf("timeline slot %d has no audio asset", slot.SlideIndex)
		}

		zoom := ZoomSpec{Direction: slot.ZoomDirection, From: 1.0, To: p.ZoomMax}
		if slot.ZoomDirection == render.ZoomOut {
			zoom.From, zoom.To = p.ZoomMax, 1.0
		}
		if slot.FrameCount > 0 {
			zoom.StepPerFrame = (p.ZoomMax - 1.0) / float64(slot.FrameCount)
		}

		plan.Slides = append(plan.Slides, SlideClip{
			SlideIndex:  slot.SlideIndex,
			FileName:    assetFileName("slide", i, slide.LocationRef, ".png"),
			SourceRef:   slide.LocationRef,
			StartSec:    slot.CumulativeStartSec,
			DurationSec: slot.OnScreenDurationSec,
			FrameCount:  slot.FrameCount,
			Zoom:        zoom,
		})
		plan.AudioTrack = append(plan.AudioTrack, AudioClip{
			SlideIndex:  slot.SlideIndex,
			FileName:    assetFileName("audio", i, clip.LocationRef, ".mp3"),
			SourceRef:   clip.LocationRef,
			DurationSec: float64(clip.DurationMs) / 1000.0,
		})
		if i > 0 {
			plan.Transitions = append(plan.Transitions, Crossfade{
				FromIndex:   slots[i-1].SlideIndex,
				ToIndex:     slot.SlideIndex,
				DurationSec: p.TransitionSec,
				OffsetSec:   slot.CrossfadeOffsetSec,
			})
		}
	}
	return plan, nil
}

// FormatOverlayDate renders a YYYY-MM-DD date for the badge in the given
// locale. Japanese dates read 2026年8月24日; anything else falls back to the
// English long form.
func FormatOverlayDate(date, locale string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("parse overlay date: %w", err)
	}
	switch locale {
	case "ja":
		return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day()), nil
	default:
		return t.Format("January 2, 2006"), nil
	}
}

// assetFileName builds the canonical in-sandbox name for the i-th asset,
// keeping the source extension when it looks sane.
func assetFileName(kind string, i int, ref, defaultExt string) string {
	ext := defaultExt
	raw := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		raw = u.Path
	}
	if e := strings.ToLower(path.Ext(raw)); safeExt.MatchString(e) {
		ext = e
	}
	return fmt.Sprintf("%s_%02d%s", kind, i, ext)
}
