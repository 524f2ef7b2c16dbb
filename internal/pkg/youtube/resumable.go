package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"newsreel/internal/pkg/retry"
)

// resumableChunkAlign is the platform's alignment rule: every non-final
// chunk must be a positive multiple of it.
const resumableChunkAlign = 256 * 1024

// UploadSession is one resumable upload. Source bytes are read once; the
// unacknowledged tail lives in the chunk buffer, never re-read from the
// source. bytesAcked never decreases.
type UploadSession struct {
	client    *http.Client
	uploadURL string
	total     int64
	chunkSize int64
	retry     retry.Config

	bytesAcked   int64
	degradedAcks int
}

// BytesAcknowledged returns how many leading bytes the server has confirmed.
func (s *UploadSession) BytesAcknowledged() int64 {
	return s.bytesAcked
}

// DegradedAcks counts continuations that arrived without a Range header,
// where the session advanced by the sent length instead of a confirmed
// offset.
func (s *UploadSession) DegradedAcks() int {
	return s.degradedAcks
}

type chunkOutcome struct {
	status      int
	rangeHeader string
	body        string
}

// Upload streams src into the session and returns the platform video ID from
// the completion response. src must yield exactly the declared total.
func (s *UploadSession) Upload(ctx context.Context, src io.Reader) (string, error) {
	if s.chunkSize <= 0 || s.chunkSize%resumableChunkAlign != 0 {
		return "", fmt.Errorf("chunk size %d is not a positive multiple of %d", s.chunkSize, resumableChunkAlign)
	}

	buf := make([]byte, s.chunkSize)
	filled := 0

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		// Top the buffer up to a full chunk, or to the declared end.
		want := int(s.chunkSize) - filled
		if remaining := s.total - s.bytesAcked - int64(filled); int64(want) > remaining {
			want = int(remaining)
		}
		if want > 0 {
			n, err := io.ReadFull(src, buf[filled:filled+want])
			filled += n
			if err != nil {
				return "", fmt.Errorf("source ended after %d of %d bytes: %w", s.bytesAcked+int64(filled), s.total, err)
			}
		}

		start := s.bytesAcked
		sent := int64(filled)
		isFinal := start+sent == s.total

		outcome, err := s.send(ctx, buf[:filled], start)
		if err != nil {
			return "", err
		}

		switch outcome.status {
		case http.StatusPermanentRedirect:
			newAcked, ok := parseAckRange(outcome.rangeHeader)
			if !ok {
				s.degradedAcks++
				newAcked = start + sent
				log.Warn().
					Int64("assumed_acked", newAcked).
					Int("degraded_acks", s.degradedAcks).
					Msg("continuation carried no Range header; advancing by sent length")
			}
			if newAcked < start || newAcked > start+sent {
				return "", &ProtocolError{
					StatusCode: outcome.status,
					Body:       fmt.Sprintf("acknowledged %d bytes, outside the sent window %d-%d", newAcked, start, start+sent),
				}
			}
			if isFinal && newAcked == s.total {
				return "", &ProtocolError{StatusCode: outcome.status, Body: "all bytes acknowledged without a completion response"}
			}

			// Keep the unacknowledged tail at the buffer front; the next
			// top-up restores alignment.
			keep := int(start + sent - newAcked)
			copy(buf, buf[filled-keep:filled])
			filled = keep
			s.bytesAcked = newAcked

			log.Debug().
				Int64("bytes_acked", s.bytesAcked).
				Int64("total", s.total).
				Msg("chunk acknowledged")

		case http.StatusOK, http.StatusCreated:
			var video struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal([]byte(outcome.body), &video); err != nil || video.ID == "" {
				return "", &ProtocolError{StatusCode: outcome.status, Body: "completion response missing video id"}
			}
			s.bytesAcked = s.total
			log.Info().Str("video_id", video.ID).Int64("total", s.total).Msg("resumable upload completed")
			return video.ID, nil

		default:
			return "", &ProtocolError{StatusCode: outcome.status, Body: outcome.body}
		}
	}
}

// send PUTs one chunk, retrying transport failures and 5xx responses. The
// same buffered bytes are re-sent on retry; the source is never touched.
func (s *UploadSession) send(ctx context.Context, chunk []byte, start int64) (*chunkOutcome, error) {
	contentRange := fmt.Sprintf("bytes %d-%d/%d", start, start+int64(len(chunk))-1, s.total)

	var outcome *chunkOutcome
	err := retry.Do(ctx, s.retry, "upload_chunk", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.uploadURL, bytes.NewReader(chunk))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Range", contentRange)

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.Transient(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return retry.Transient(err)
		}
		if resp.StatusCode >= 500 {
			return retry.Transient(fmt.Errorf("resumable endpoint returned %d", resp.StatusCode))
		}

		outcome = &chunkOutcome{
			status:      resp.StatusCode,
			rangeHeader: resp.Header.Get("Range"),
			body:        strings.TrimSpace(string(body)),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("send chunk at %d: %w", start, err)
	}
	return outcome, nil
}

// parseAckRange reads the server's cumulative acknowledgement
// ("bytes=0-<last>") and returns the count of confirmed bytes.
func parseAckRange(header string) (int64, bool) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "bytes=") {
		return 0, false
	}
	parts := strings.SplitN(strings.TrimPrefix(header, "bytes="), "-", 2)
	if len(parts) != 2 || parts[0] != "0" {
		return 0, false
	}
	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || end < 0 {
		return 0, false
	}
	return end + 1, true
}
