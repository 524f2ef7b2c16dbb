package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"newsreel/internal/config"
	"newsreel/internal/model/render"
	"newsreel/internal/pkg/retry"
)

const (
	uploadEndpoint      = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultPollInterval = 10 * time.Second
)

// ProtocolError is a resumable-session response outside the protocol: not a
// 308 continuation and not a completion. The session is abandoned; nothing
// resumes automatically.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected resumable protocol response %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected resumable protocol response %d: %s", e.StatusCode, e.Body)
}

// IsProtocolError reports whether err is a resumable protocol violation.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// VideoMeta is what the platform learns about a video before its bytes.
type VideoMeta struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     render.Privacy
}

// Client talks to the video platform: resumable upload sessions and
// processing-status polls, authenticated by a refresh token.
type Client struct {
	http      *http.Client
	service   *yt.Service
	cfg       *config.YouTubeConfig
	endpoint  string
	chunkSize int64
	retry     retry.Config
}

// New builds a platform client. The refresh token is exchanged lazily on the
// first request.
func New(ctx context.Context, cfg *config.YouTubeConfig, pipeline *config.PipelineConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("youtube credentials are not configured")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope, yt.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	httpClient := oauth2.NewClient(ctx, oauthCfg.TokenSource(ctx, token))

	service, err := yt.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		http:      httpClient,
		service:   service,
		cfg:       cfg,
		endpoint:  uploadEndpoint,
		chunkSize: pipeline.ChunkSizeBytes,
		retry: retry.Config{
			Attempts:  pipeline.UploadAttempts,
			BaseDelay: time.Second,
		},
	}, nil
}

// CreateSession registers the video's metadata and declared size, returning
// the session the bytes go through.
func (c *Client) CreateSession(ctx context.Context, meta VideoMeta, totalBytes int64) (*UploadSession, error) {
	if totalBytes <= 0 {
		return nil, fmt.Errorf("upload size must be positive, got %d", totalBytes)
	}
	if meta.Privacy == render.PrivacyBlocked {
		return nil, fmt.Errorf("blocked videos never reach the platform")
	}

	categoryID := meta.CategoryID
	if categoryID == "" {
		categoryID = c.cfg.CategoryID
	}
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  categoryID,
		},
		Status: &yt.VideoStatus{PrivacyStatus: meta.Privacy.String()},
	}
	body, err := json.Marshal(video)
	if err != nil {
		return nil, fmt.Errorf("marshal video metadata: %w", err)
	}

	url := c.endpoint + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/mp4")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(totalBytes, 10))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create upload session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: readBodyTail(resp.Body)}
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: "session response missing Location header"}
	}

	log.Info().
		Str("title", meta.Title).
		Str("privacy", meta.Privacy.String()).
		Int64("total_bytes", totalBytes).
		Msg("resumable upload session created")

	return &UploadSession{
		client:    c.http,
		uploadURL: location,
		total:     totalBytes,
		chunkSize: c.chunkSize,
		retry:     c.retry,
	}, nil
}

// PollProcessing blocks until the platform finishes processing videoID,
// checking at the configured interval. A nil return means the video is
// serveable; processing failure and rejection come back as errors.
func (c *Client) PollProcessing(ctx context.Context, videoID string) error {
	if c.cfg.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.PollTimeout)
		defer cancel()
	}
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := c.checkProcessing(ctx, videoID)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("processing poll ended: %w", ctx.Err())
			}
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("processing poll ended: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) checkProcessing(ctx context.Context, videoID string) (bool, error) {
	resp, err := c.service.Videos.List([]string{"status", "processingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return false, fmt.Errorf("video %s not found on the platform", videoID)
	}

	video := resp.Items[0]
	if video.Status != nil {
		switch video.Status.UploadStatus {
		case "processed":
			return true, nil
		case "failed":
			return false, fmt.Errorf("platform processing failed: %s", video.Status.FailureReason)
		case "rejected":
			return false, fmt.Errorf("platform rejected the video: %s", video.Status.RejectionReason)
		}
	}
	if details := video.ProcessingDetails; details != nil {
		switch details.ProcessingStatus {
		case "succeeded":
			return true, nil
		case "failed", "terminated":
			return false, fmt.Errorf("platform processing ended in state %s", details.ProcessingStatus)
		}
	}
	return false, nil
}

func readBodyTail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
