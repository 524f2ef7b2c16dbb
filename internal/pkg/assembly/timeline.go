package assembly

import (
	"math"
	"sort"

	"newsreel/internal/model/render"
)

// Profile carries the output geometry and the timing knobs every timeline
// and plan computation reads. One value is built from configuration and
// passed through the whole pipeline so no component re-declares its own
// constants.
type Profile struct {
	Width  int
	Height int
	FPS    int

	TransitionSec float64 // cross-fade duration between adjacent slides
	ZoomMax       float64 // pan/zoom peak scale, e.g. 1.2
	OverlayLocale string  // date badge locale, e.g. "ja"
}

// TimelineSlot is the derived timing for one slide. Computed once, never
// mutated afterwards.
type TimelineSlot struct {
	SlideIndex          int
	OnScreenDurationSec float64
	CumulativeStartSec  float64
	// CrossfadeOffsetSec is where the fade into this slide begins on the
	// nominal timeline: cumulative start minus the transition duration.
	// Zero for the first slide, which has no inbound fade.
	CrossfadeOffsetSec float64
	ZoomDirection      render.ZoomDirection
	FrameCount         int
}

// BuildTimeline converts per-slide narration durations into on-screen
// durations, cumulative offsets, and zoom parameters. Each slide stays on
// screen for its narration length plus one transition, so a cross-fade never
// encroaches on narration audio. Slots are ordered by slide index regardless
// of input order.
func BuildTimeline(audio []render.AudioAsset, p Profile) []TimelineSlot {
	clips := make([]render.AudioAsset, len(audio))
	copy(clips, audio)
	sort.Slice(clips, func(i, j int) bool { return clips[i].SlideIndex < clips[j].SlideIndex })

	slots := make([]TimelineSlot, 0, len(clips))
	cumulative := 0.0
	for i, clip := range clips {
		onScreen := float64(clip.DurationMs)/1000.0 + p.TransitionSec
		slot := TimelineSlot{
			SlideIndex:          clip.SlideIndex,
			OnScreenDurationSec: onScreen,
			CumulativeStartSec:  cumulative,
			FrameCount:          int(math.Ceil(onScreen * float64(p.FPS))),
		}
		if i%2 == 0 {
			slot.ZoomDirection = render.ZoomIn
		} else {
			slot.ZoomDirection = render.ZoomOut
		}
		if i > 0 {
			slot.CrossfadeOffsetSec = cumulative - p.TransitionSec
		}
		slots = append(slots, slot)
		cumulative += onScreen
	}
	return slots
}

// TotalDurationSec is the displayed runtime of the composed video. Adjacent
// slides overlap for one transition each, so the total is shorter than the
// naive sum of on-screen durations.
func TotalDurationSec(slots []TimelineSlot, transitionSec float64) float64 {
	if len(slots) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range slots {
		sum += s.OnScreenDurationSec
	}
	return sum - float64(len(slots)-1)*transitionSec
}
