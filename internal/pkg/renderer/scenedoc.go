package renderer

import (
	"context"
	"encoding/json"
	"fmt"

	"newsreel/internal/pkg/assembly"
)

const sceneDocName = "scene.json"

// SceneDoc renders by writing a declarative scene document into the session
// and handing it to an external scene-renderer command. The document carries
// composited-clock placements so the external tool stacks clips as given.
type SceneDoc struct {
	command string
}

// NewSceneDoc builds the scene-document backend. command is invoked as
// `<command> <scene.json> <output>` in the session working directory.
func NewSceneDoc(command string) *SceneDoc {
	return &SceneDoc{command: command}
}

// SceneDocument is the on-disk scene description.
type SceneDocument struct {
	Version     int               `json:"version"`
	Canvas      SceneCanvas       `json:"canvas"`
	DurationSec float64           `json:"duration_sec"`
	Slides      []SceneSlide      `json:"slides"`
	Transitions []SceneTransition `json:"transitions"`
	Audio       []SceneAudio      `json:"audio"`
	Overlay     SceneOverlay      `json:"overlay"`
	Output      string            `json:"output"`
}

type SceneCanvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`
}

// SceneSlide places one slide on the composited clock.
type SceneSlide struct {
	Index       int       `json:"index"`
	File        string    `json:"file"`
	StartSec    float64   `json:"start_sec"`
	DurationSec float64   `json:"duration_sec"`
	Zoom        SceneZoom `json:"zoom"`
}

type SceneZoom struct {
	Direction string  `json:"direction"`
	From      float64 `json:"from"`
	To        float64 `json:"to"`
}

type SceneTransition struct {
	From        int     `json:"from"`
	To          int     `json:"to"`
	Type        string  `json:"type"`
	DurationSec float64 `json:"duration_sec"`
	OffsetSec   float64 `json:"offset_sec"`
}

type SceneAudio struct {
	File        string  `json:"file"`
	DurationSec float64 `json:"duration_sec"`
}

// SceneOverlay carries the badge text raw; JSON marshalling is the only
// escaping this backend needs.
type SceneOverlay struct {
	Text string `json:"text"`
}

// Render writes the scene document and invokes the external renderer on it.
func (s *SceneDoc) Render(ctx context.Context, sess Session, plan *assembly.CompositionPlan) error {
	doc, err := json.MarshalIndent(BuildSceneDocument(plan), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scene document: %w", err)
	}
	if err := sess.WriteFile(ctx, sceneDocName, doc); err != nil {
		return fmt.Errorf("write scene document: %w", err)
	}

	command := fmt.Sprintf("%s %s %s", s.command, shellQuote(sceneDocName), shellQuote(plan.OutputFile))
	output, exitCode, err := sess.Exec(ctx, command)
	if err != nil {
		return fmt.Errorf("render exec: %w", err)
	}
	if exitCode != 0 {
		return engineFailure(exitCode, output)
	}
	return nil
}

// BuildSceneDocument translates the plan's nominal timeline to composited
// placements.
func BuildSceneDocument(plan *assembly.CompositionPlan) *SceneDocument {
	doc := &SceneDocument{
		Version: 1,
		Canvas: SceneCanvas{
			Width:  plan.Width,
			Height: plan.Height,
			FPS:    plan.FPS,
		},
		DurationSec: plan.TotalDurationSec,
		Overlay:     SceneOverlay{Text: plan.Overlay.Text},
		Output:      plan.OutputFile,
	}

	for i, slide := range plan.Slides {
		doc.Slides = append(doc.Slides, SceneSlide{
			Index:       slide.SlideIndex,
			File:        slide.FileName,
			StartSec:    compositeStart(slide, i, plan.TransitionSec),
			DurationSec: slide.DurationSec,
			Zoom: SceneZoom{
				Direction: slide.Zoom.Direction.String(),
				From:      slide.Zoom.From,
				To:        slide.Zoom.To,
			},
		})
	}
	for k, t := range plan.Transitions {
		doc.Transitions = append(doc.Transitions, SceneTransition{
			From:        t.FromIndex,
			To:          t.ToIndex,
			Type:        "crossfade",
			DurationSec: t.DurationSec,
			OffsetSec:   compositeOffset(t, k, plan.TransitionSec),
		})
	}
	for _, clip := range plan.AudioTrack {
		doc.Audio = append(doc.Audio, SceneAudio{
			File:        clip.FileName,
			DurationSec: clip.DurationSec,
		})
	}
	return doc
}
