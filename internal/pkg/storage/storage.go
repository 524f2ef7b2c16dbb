package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the object storage interface the pipeline persists artifacts
// through.
type Storage interface {
	// Upload stores a whole object in one call (small files only; large
	// artifacts go through UploadMultipart).
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)

	// Download opens the object for streaming reads.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetPresignedDownloadURL returns a time-limited download URL.
	GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// Delete removes the object.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// GetFileInfo returns object metadata.
	GetFileInfo(ctx context.Context, key string) (*FileInfo, error)

	// GetStorageType returns the backend type.
	GetStorageType() string
}

// Multiparter is implemented by backends that support multipart upload.
type Multiparter interface {
	// CreateMultipartUpload opens a multipart session for key. The session
	// must end in exactly one Complete or Abort.
	CreateMultipartUpload(ctx context.Context, key, contentType string) (MultipartSession, error)
}

// MultipartSession is one in-flight multipart upload.
type MultipartSession interface {
	// UploadID identifies the session at the backend.
	UploadID() string

	// UploadPart stores one part. Part numbers start at 1 and must be
	// submitted in increasing order.
	UploadPart(ctx context.Context, partNumber int, data []byte) (Part, error)

	// Complete publishes the object from the full, gapless part list and
	// returns the final checksum.
	Complete(ctx context.Context, parts []Part) (string, error)

	// Abort discards the session and any uploaded parts.
	Abort(ctx context.Context) error
}

// Part identifies one uploaded part.
type Part struct {
	PartNumber int
	Checksum   string
}

// FileInfo is object metadata.
type FileInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// StorageType names a storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeOSS   StorageType = "oss"
)
