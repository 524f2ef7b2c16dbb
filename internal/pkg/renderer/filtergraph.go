package renderer

import (
	"context"
	"fmt"
	"strings"

	"newsreel/internal/pkg/assembly"
)

// Filtergraph renders the plan with a single ffmpeg invocation: zoompan per
// slide, a chained xfade between consecutive slides, concatenated narration,
// and the date badge via drawtext.
type Filtergraph struct {
	fontFile string
}

// NewFiltergraph builds the ffmpeg backend. fontFile may be empty, in which
// case drawtext falls back to the engine's default font.
func NewFiltergraph(fontFile string) *Filtergraph {
	return &Filtergraph{fontFile: fontFile}
}

// Render executes the built command in the session and maps a non-zero exit
// to an EngineError carrying the diagnostics tail.
func (f *Filtergraph) Render(ctx context.Context, sess Session, plan *assembly.CompositionPlan) error {
	command := f.BuildCommand(plan)
	output, exitCode, err := sess.Exec(ctx, command)
	if err != nil {
		return fmt.Errorf("render exec: %w", err)
	}
	if exitCode != 0 {
		return engineFailure(exitCode, output)
	}
	return nil
}

// BuildCommand assembles the full ffmpeg command line for plan. Asset names
// are the plan's canonical in-place names, so the command must run in the
// session working directory.
func (f *Filtergraph) BuildCommand(plan *assembly.CompositionPlan) string {
	args := []string{"ffmpeg", "-y", "-v", "error", "-nostats"}
	for _, slide := range plan.Slides {
		args = append(args, "-i", shellQuote(slide.FileName))
	}
	for _, clip := range plan.AudioTrack {
		args = append(args, "-i", shellQuote(clip.FileName))
	}

	args = append(args, "-filter_complex", shellQuote(f.buildGraph(plan)))
	args = append(args,
		"-map", shellQuote("[vout]"),
		"-map", shellQuote("[aout]"),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", plan.FPS),
		"-c:a", "aac",
		"-b:a", "160k",
		"-movflags", "+faststart",
		"-t", fmt.Sprintf("%.3f", plan.TotalDurationSec),
		shellQuote(plan.OutputFile),
	)
	return strings.Join(args, " ")
}

func (f *Filtergraph) buildGraph(plan *assembly.CompositionPlan) string {
	var chains []string

	for i, slide := range plan.Slides {
		chains = append(chains, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
				"zoompan=z='%s':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d,setsar=1[v%d]",
			i, plan.Width, plan.Height, plan.Width, plan.Height,
			zoomExpr(slide.Zoom), slide.FrameCount, plan.Width, plan.Height, plan.FPS, i))
	}

	videoLabel := "[v0]"
	for k, t := range plan.Transitions {
		out := fmt.Sprintf("[x%d]", k+1)
		chains = append(chains, fmt.Sprintf("%s[v%d]xfade=transition=fade:duration=%.3f:offset=%.3f%s",
			videoLabel, k+1, t.DurationSec, compositeOffset(t, k, plan.TransitionSec), out))
		videoLabel = out
	}

	chains = append(chains, fmt.Sprintf("%s%s[vout]", videoLabel, f.drawtext(plan)))

	var audioInputs strings.Builder
	for j := range plan.AudioTrack {
		fmt.Fprintf(&audioInputs, "[%d:a]", len(plan.Slides)+j)
	}
	chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[aout]", audioInputs.String(), len(plan.AudioTrack)))

	return strings.Join(chains, ";")
}

// zoomExpr is the per-frame zoom level. 'on' is the output frame index, so
// the ramp is linear over the slide's frame count in both directions.
func zoomExpr(z assembly.ZoomSpec) string {
	if z.To >= z.From {
		return fmt.Sprintf("min(1+on*%.6f,%.6f)", z.StepPerFrame, z.To)
	}
	return fmt.Sprintf("max(%.6f-on*%.6f,1)", z.From, z.StepPerFrame)
}

func (f *Filtergraph) drawtext(plan *assembly.CompositionPlan) string {
	fontSize := plan.Height / 18
	margin := plan.Height / 30

	var font string
	if f.fontFile != "" {
		font = fmt.Sprintf("fontfile='%s':", f.fontFile)
	}
	return fmt.Sprintf(
		"drawtext=%stext='%s':fontcolor=white:fontsize=%d:box=1:boxcolor=black@0.55:boxborderw=%d:x=w-tw-%d:y=%d",
		font, escapeDrawText(plan.Overlay.Text), fontSize, margin/2, margin, margin)
}

// escapeDrawText escapes the characters drawtext treats specially inside a
// single-quoted text value.
func escapeDrawText(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(s)
}
