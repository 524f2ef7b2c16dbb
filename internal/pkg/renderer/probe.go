package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"newsreel/internal/pkg/assembly"
)

const (
	expectedVideoCodec = "h264"
	expectedAudioCodec = "aac"
)

// ArtifactInfo is what verification learned about the rendered file.
type ArtifactInfo struct {
	Width       int
	Height      int
	DurationSec float64
	SizeBytes   int64
	VideoCodec  string
	AudioCodec  string
	Format      string
}

// probeResult mirrors ffprobe's -of json output.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type probeFormat struct {
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// VerifyArtifact probes the output file inside the session and checks it
// against the plan: exactly one video and one audio stream, expected codecs,
// exact resolution, duration within tolerance of the nominal total. Failures
// are engine errors; nothing upstream retries a bad artifact.
func VerifyArtifact(ctx context.Context, sess Session, plan *assembly.CompositionPlan, toleranceSec float64) (*ArtifactInfo, error) {
	command := fmt.Sprintf("ffprobe -v error -show_format -show_streams -of json %s", shellQuote(plan.OutputFile))
	output, exitCode, err := sess.Exec(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("probe exec: %w", err)
	}
	if exitCode != 0 {
		return nil, engineFailure(exitCode, output)
	}

	var result probeResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		return nil, &EngineError{Diagnostics: tail(fmt.Sprintf("probe output is not JSON: %v", err), diagnosticsTailBytes)}
	}
	return checkArtifact(&result, plan, toleranceSec)
}

func checkArtifact(result *probeResult, plan *assembly.CompositionPlan, toleranceSec float64) (*ArtifactInfo, error) {
	var video, audio *probeStream
	videoCount, audioCount := 0, 0
	for i := range result.Streams {
		s := &result.Streams[i]
		switch strings.ToLower(s.CodecType) {
		case "video":
			videoCount++
			video = s
		case "audio":
			audioCount++
			audio = s
		}
	}
	if videoCount != 1 || audioCount != 1 {
		return nil, verifyFailure("expected 1 video and 1 audio stream, got %d and %d", videoCount, audioCount)
	}

	if !strings.EqualFold(video.CodecName, expectedVideoCodec) {
		return nil, verifyFailure("video codec %s, expected %s", video.CodecName, expectedVideoCodec)
	}
	if !strings.EqualFold(audio.CodecName, expectedAudioCodec) {
		return nil, verifyFailure("audio codec %s, expected %s", audio.CodecName, expectedAudioCodec)
	}
	if video.Width != plan.Width || video.Height != plan.Height {
		return nil, verifyFailure("resolution %dx%d, expected %dx%d", video.Width, video.Height, plan.Width, plan.Height)
	}

	duration := parseProbeFloat(result.Format.Duration)
	if duration <= 0 {
		return nil, verifyFailure("container reports no duration")
	}
	if math.Abs(duration-plan.TotalDurationSec) > toleranceSec {
		return nil, verifyFailure("duration %.3fs outside tolerance %.3fs of nominal %.3fs",
			duration, toleranceSec, plan.TotalDurationSec)
	}

	return &ArtifactInfo{
		Width:       video.Width,
		Height:      video.Height,
		DurationSec: duration,
		SizeBytes:   int64(parseProbeFloat(result.Format.Size)),
		VideoCodec:  strings.ToLower(video.CodecName),
		AudioCodec:  strings.ToLower(audio.CodecName),
		Format:      result.Format.FormatName,
	}, nil
}

func verifyFailure(format string, args ...any) *EngineError {
	return &EngineError{Diagnostics: "artifact verification: " + fmt.Sprintf(format, args...)}
}

func parseProbeFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}
