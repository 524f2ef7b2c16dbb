package renderer

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"newsreel/internal/model/render"
	"newsreel/internal/pkg/assembly"
)

func testProfile() assembly.Profile {
	return assembly.Profile{
		Width:         1080,
		Height:        1920,
		FPS:           30,
		TransitionSec: 1.0,
		ZoomMax:       1.2,
		OverlayLocale: "ja",
	}
}

// threeSlidePlan is the 12s/15s/9s narration scenario: on-screen durations
// 13/16/10, fade offsets 12 and 28 on the nominal clock, 37s total.
func threeSlidePlan(t *testing.T) *assembly.CompositionPlan {
	t.Helper()
	req := &render.RenderRequest{
		Slides: []render.SlideAsset{
			{LocationRef: "https://cdn.example.com/s0.png", SlideIndex: 0},
			{LocationRef: "https://cdn.example.com/s1.png", SlideIndex: 1},
			{LocationRef: "https://cdn.example.com/s2.png", SlideIndex: 2},
		},
		Audio: []render.AudioAsset{
			{LocationRef: "https://cdn.example.com/a0.mp3", SlideIndex: 0, DurationMs: 12000},
			{LocationRef: "https://cdn.example.com/a1.mp3", SlideIndex: 1, DurationMs: 15000},
			{LocationRef: "https://cdn.example.com/a2.mp3", SlideIndex: 2, DurationMs: 9000},
		},
		Orientation: render.OrientationPortrait,
		OverlayDate: "2026-08-24",
	}
	slots := assembly.BuildTimeline(req.Audio, testProfile())
	plan, err := assembly.BuildPlan(req, slots, testProfile())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	return plan
}

func TestFiltergraphBuildCommand(t *testing.T) {
	Convey("Given the three-slide composition plan", t, func() {
		plan := threeSlidePlan(t)
		fg := NewFiltergraph("/usr/share/fonts/NotoSansCJK-Regular.ttc")
		command := fg.BuildCommand(plan)

		Convey("every asset is an input under its canonical name", func() {
			So(command, ShouldContainSubstring, "-i 'slide_00.png'")
			So(command, ShouldContainSubstring, "-i 'slide_01.png'")
			So(command, ShouldContainSubstring, "-i 'slide_02.png'")
			So(command, ShouldContainSubstring, "-i 'audio_00.mp3'")
			So(command, ShouldContainSubstring, "-i 'audio_02.mp3'")
		})

		Convey("fade offsets move from the nominal clock to the chain clock", func() {
			// Nominal offsets are 12 and 28; each earlier fade absorbs one
			// transition of overlap.
			So(command, ShouldContainSubstring, "xfade=transition=fade:duration=1.000:offset=12.000")
			So(command, ShouldContainSubstring, "xfade=transition=fade:duration=1.000:offset=27.000")
		})

		Convey("slides alternate zoom direction with a linear ramp", func() {
			So(command, ShouldContainSubstring, "z='min(1+on*")
			So(command, ShouldContainSubstring, "z='max(1.200000-on*")
		})

		Convey("narration concatenates in slide order", func() {
			So(command, ShouldContainSubstring, "[3:a][4:a][5:a]concat=n=3:v=0:a=1[aout]")
		})

		Convey("the date badge is burned in with the configured font", func() {
			So(command, ShouldContainSubstring, "drawtext=fontfile='/usr/share/fonts/NotoSansCJK-Regular.ttc'")
			So(command, ShouldContainSubstring, "text='2026年8月24日'")
		})

		Convey("the container is clamped to the nominal total", func() {
			So(command, ShouldContainSubstring, "-t 37.000")
			So(command, ShouldContainSubstring, "'output.mp4'")
		})

		Convey("both final labels are mapped", func() {
			So(command, ShouldContainSubstring, "-map '[vout]'")
			So(command, ShouldContainSubstring, "-map '[aout]'")
		})

		Convey("the output geometry follows the profile", func() {
			So(command, ShouldContainSubstring, "scale=1080:1920:force_original_aspect_ratio=increase")
			So(command, ShouldContainSubstring, "s=1080x1920:fps=30")
		})
	})

	Convey("Given a single-slide plan", t, func() {
		req := &render.RenderRequest{
			Slides: []render.SlideAsset{
				{LocationRef: "https://cdn.example.com/only.png", SlideIndex: 0},
			},
			Audio: []render.AudioAsset{
				{LocationRef: "https://cdn.example.com/only.mp3", SlideIndex: 0, DurationMs: 5000},
			},
			Orientation: render.OrientationLandscape,
			OverlayDate: "2025-01-02",
		}
		slots := assembly.BuildTimeline(req.Audio, testProfile())
		plan, err := assembly.BuildPlan(req, slots, testProfile())
		So(err, ShouldBeNil)

		command := NewFiltergraph("").BuildCommand(plan)

		Convey("there is no fade chain and the overlay applies to the lone slide", func() {
			So(command, ShouldNotContainSubstring, "xfade")
			So(command, ShouldContainSubstring, "[v0]drawtext=")
			So(command, ShouldNotContainSubstring, "fontfile")
		})
	})
}

func TestEscapeDrawText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026年8月24日", "2026年8月24日"},
		{"Jan 2, 2025", "Jan 2, 2025"},
		{"it's 10:00", `it\'s 10\:00`},
		{"50%", `50\%`},
		{`a\b`, `a\\b`},
	}
	for _, tt := range tests {
		if got := escapeDrawText(tt.in); got != tt.want {
			t.Errorf("escapeDrawText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZoomExpr(t *testing.T) {
	Convey("Zoom expressions ramp linearly over the slide's frames", t, func() {
		in := zoomExpr(assembly.ZoomSpec{Direction: render.ZoomIn, From: 1.0, To: 1.2, StepPerFrame: 0.0005})
		So(in, ShouldEqual, "min(1+on*0.000500,1.200000)")

		out := zoomExpr(assembly.ZoomSpec{Direction: render.ZoomOut, From: 1.2, To: 1.0, StepPerFrame: 0.0005})
		So(out, ShouldEqual, "max(1.200000-on*0.000500,1)")
	})
}
