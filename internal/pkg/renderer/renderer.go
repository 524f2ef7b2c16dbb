package renderer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"newsreel/internal/config"
	"newsreel/internal/pkg/assembly"
)

// Session is the slice of a sandbox session the render backends need: a
// working directory, shell execution, and file transfer in both directions.
type Session interface {
	Workdir() string
	Exec(ctx context.Context, command string) (string, int, error)
	WriteFile(ctx context.Context, name string, data []byte) error
	DownloadFile(ctx context.Context, name string, w io.Writer) (int64, error)
}

// Renderer turns a composition plan into the plan's output file inside the
// session. Implementations translate the plan's nominal timeline to their own
// clock and escape overlay text for their own syntax.
type Renderer interface {
	Render(ctx context.Context, sess Session, plan *assembly.CompositionPlan) error
}

// New selects the configured backend.
func New(cfg *config.PipelineConfig) (Renderer, error) {
	switch cfg.Renderer {
	case "filtergraph":
		return NewFiltergraph(cfg.FontFile), nil
	case "scenedoc":
		if strings.TrimSpace(cfg.SceneCommand) == "" {
			return nil, fmt.Errorf("scenedoc renderer requires a scene command")
		}
		return NewSceneDoc(cfg.SceneCommand), nil
	default:
		return nil, fmt.Errorf("unknown renderer backend: %s", cfg.Renderer)
	}
}

// diagnosticsTailBytes bounds how much engine output an EngineError retains.
const diagnosticsTailBytes = 8 << 10

// EngineError is a render engine failure: bad exit code or an artifact that
// does not verify. It is never retried automatically; the diagnostics tail is
// kept for the render record.
type EngineError struct {
	ExitCode    int
	Diagnostics string
}

func (e *EngineError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("render engine exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("render engine exited with code %d: %s", e.ExitCode, e.Diagnostics)
}

// IsEngineError reports whether err is an engine failure.
func IsEngineError(err error) bool {
	var engineErr *EngineError
	return errors.As(err, &engineErr)
}

func engineFailure(exitCode int, output string) *EngineError {
	return &EngineError{ExitCode: exitCode, Diagnostics: tail(output, diagnosticsTailBytes)}
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}

// compositeOffset converts the k-th crossfade's nominal offset to the
// composited clock. Each earlier fade swallowed one transition's worth of
// overlap, so the chain offset shrinks by k transitions.
func compositeOffset(t assembly.Crossfade, k int, transitionSec float64) float64 {
	return t.OffsetSec - float64(k)*transitionSec
}

// compositeStart is where the i-th slide begins on the composited clock.
func compositeStart(slide assembly.SlideClip, i int, transitionSec float64) float64 {
	return slide.StartSec - float64(i)*transitionSec
}

// shellQuote single-quotes s for the sandbox shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
