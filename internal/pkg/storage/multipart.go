package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"newsreel/internal/pkg/retry"
)

// MultipartConfig bounds one multipart upload.
type MultipartConfig struct {
	// PartSize is the fixed part size in bytes. Exactly one part's bytes
	// are held in memory at a time.
	PartSize int64

	// Retry bounds the per-part retry loop.
	Retry retry.Config
}

// MultipartResult reports a completed multipart upload.
type MultipartResult struct {
	Key           string
	UploadID      string
	PartCount     int
	BytesSent     int64
	FinalChecksum string
}

// UploadMultipart streams src into key as fixed-size parts: create session,
// upload parts with strictly increasing part numbers from 1, complete with
// the full ordered part list. Any part failure aborts the whole session; a
// gap in part numbers would invalidate the upload, so nothing is ever
// skipped. totalBytes must match what src yields.
func UploadMultipart(ctx context.Context, store Multiparter, key, contentType string, src io.Reader, totalBytes int64, cfg MultipartConfig, opts ...retry.Option) (*MultipartResult, error) {
	if totalBytes <= 0 {
		return nil, fmt.Errorf("multipart upload of %q: total size must be positive, got %d", key, totalBytes)
	}
	if cfg.PartSize <= 0 {
		return nil, fmt.Errorf("multipart upload of %q: part size must be positive, got %d", key, cfg.PartSize)
	}

	session, err := store.CreateMultipartUpload(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("create multipart upload for %q: %w", key, err)
	}

	log.Info().
		Str("key", key).
		Str("upload_id", session.UploadID()).
		Int64("total_bytes", totalBytes).
		Int64("part_size", cfg.PartSize).
		Msg("multipart upload started")

	result, err := uploadParts(ctx, session, key, src, totalBytes, cfg, opts...)
	if err != nil {
		abortSession(session, key)
		return nil, err
	}
	return result, nil
}

func uploadParts(ctx context.Context, session MultipartSession, key string, src io.Reader, totalBytes int64, cfg MultipartConfig, opts ...retry.Option) (*MultipartResult, error) {
	buf := make([]byte, cfg.PartSize)
	var (
		parts     []Part
		bytesSent int64
	)

	for partNumber := 1; bytesSent < totalBytes; partNumber++ {
		n, err := io.ReadFull(src, buf)
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read part %d of %q: %w", partNumber, key, err)
		}
		if n == 0 {
			break
		}

		chunk := buf[:n]
		var part Part
		uploadErr := retry.Do(ctx, cfg.Retry, "multipart upload part", func(ctx context.Context) error {
			p, err := session.UploadPart(ctx, partNumber, chunk)
			if err != nil {
				return retry.Transient(err)
			}
			part = p
			return nil
		}, opts...)
		if uploadErr != nil {
			return nil, fmt.Errorf("upload part %d of %q: %w", partNumber, key, uploadErr)
		}

		parts = append(parts, part)
		bytesSent += int64(n)
		log.Debug().
			Str("key", key).
			Int("part_number", partNumber).
			Int("part_bytes", n).
			Int64("bytes_sent", bytesSent).
			Msg("multipart part uploaded")
	}

	if bytesSent != totalBytes {
		return nil, fmt.Errorf("multipart upload of %q: source yielded %d bytes, expected %d", key, bytesSent, totalBytes)
	}

	checksum, err := session.Complete(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("complete multipart upload of %q: %w", key, err)
	}

	log.Info().
		Str("key", key).
		Str("upload_id", session.UploadID()).
		Int("parts", len(parts)).
		Msg("multipart upload completed")

	return &MultipartResult{
		Key:           key,
		UploadID:      session.UploadID(),
		PartCount:     len(parts),
		BytesSent:     bytesSent,
		FinalChecksum: checksum,
	}, nil
}

// abortTimeout bounds the cleanup call of a failed session.
const abortTimeout = 30 * time.Second

// abortSession discards a failed session so it cannot linger as zombie
// storage. The abort runs on a fresh context because the pipeline context
// may already be cancelled; abort failures are logged, never returned.
func abortSession(session MultipartSession, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	if err := session.Abort(ctx); err != nil {
		log.Warn().
			Str("key", key).
			Str("upload_id", session.UploadID()).
			Err(err).
			Msg("failed to abort multipart upload")
	}
}
