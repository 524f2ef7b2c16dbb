package assembly

import (
	"errors"
	"fmt"
	"time"

	"newsreel/internal/model/render"
)

// ValidationError marks a structurally broken render request. It is a caller
// error: never retried, and raised before any sandbox or network call,
// because a mismatched timeline only shows up later as a corrupted video.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid render request: " + e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateRequest checks the structural invariants of a render request:
// slides and audio pair 1:1 by slide index, no duplicate indexes on either
// side, every narration duration positive, known orientation, parseable
// overlay date. It performs no I/O and no mutation.
func ValidateRequest(req *render.RenderRequest) error {
	if req == nil {
		return validationErrorf("request is nil")
	}
	if len(req.Slides) == 0 {
		return validationErrorf("no slides")
	}
	if len(req.Slides) != len(req.Audio) {
		return validationErrorf("slide count %d does not match audio count %d", len(req.Slides), len(req.Audio))
	}

	slideIdx := make(map[int]struct{}, len(req.Slides))
	for _, s := range req.Slides {
		if s.LocationRef == "" {
			return validationErrorf("slide %d has empty location_ref", s.SlideIndex)
		}
		if _, dup := slideIdx[s.SlideIndex]; dup {
			return validationErrorf("duplicate slide_index %d in slides", s.SlideIndex)
		}
		slideIdx[s.SlideIndex] = struct{}{}
	}

	audioIdx := make(map[int]struct{}, len(req.Audio))
	for _, a := range req.Audio {
		if a.LocationRef == "" {
			return validationErrorf("audio %d has empty location_ref", a.SlideIndex)
		}
		if _, dup := audioIdx[a.SlideIndex]; dup {
			return validationErrorf("duplicate slide_index %d in audio", a.SlideIndex)
		}
		audioIdx[a.SlideIndex] = struct{}{}
		if a.DurationMs <= 0 {
			return validationErrorf("audio %d has non-positive duration_ms %d", a.SlideIndex, a.DurationMs)
		}
	}

	for idx := range slideIdx {
		if _, ok := audioIdx[idx]; !ok {
			return validationErrorf("slide_index %d has no narration audio", idx)
		}
	}

	if !req.Orientation.Valid() {
		return validationErrorf("unknown orientation %q", req.Orientation)
	}
	if _, err := time.Parse("2006-01-02", req.OverlayDate); err != nil {
		return validationErrorf("overlay_date %q is not a YYYY-MM-DD date", req.OverlayDate)
	}
	return nil
}
