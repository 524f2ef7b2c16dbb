package oss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"newsreel/internal/pkg/storage"
)

// OSSStorage stores objects in an Aliyun OSS bucket.
type OSSStorage struct {
	bucket        *oss.Bucket
	bucketName    string
	presignExpiry int // seconds
}

// NewOSSStorage creates the OSS client and binds it to the bucket.
func NewOSSStorage(endpoint, bucketName, accessKeyID, accessKeySecret string, presignExpiry int) (*OSSStorage, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStorage{
		bucket:        bucket,
		bucketName:    bucketName,
		presignExpiry: presignExpiry,
	}, nil
}

// Upload stores a whole object in one call.
func (s *OSSStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	options := []oss.Option{
		oss.ContentType(contentType),
	}
	if err := s.bucket.PutObject(key, data, options...); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, s.bucket.Client.Config.Endpoint, key), nil
}

// Download opens the object for streaming reads.
func (s *OSSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	return body, nil
}

// GetPresignedDownloadURL returns a signed GET URL, capped at the configured
// expiry.
func (s *OSSStorage) GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	expiry := expiresIn
	if max := time.Duration(s.presignExpiry) * time.Second; max < expiresIn {
		expiry = max
	}

	url, err := s.bucket.SignURL(key, oss.HTTPGet, int64(expiry.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return url, nil
}

// Delete removes the object.
func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists reports whether the object is present.
func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(key)
	if err != nil {
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return exists, nil
}

// GetFileInfo returns object metadata.
func (s *OSSStorage) GetFileInfo(ctx context.Context, key string) (*storage.FileInfo, error) {
	props, err := s.bucket.GetObjectDetailedMeta(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object info: %w", err)
	}

	var size int64
	if sizeStr := props.Get("Content-Length"); sizeStr != "" {
		fmt.Sscanf(sizeStr, "%d", &size)
	}

	contentType := props.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	etag := strings.Trim(props.Get("ETag"), `"`)

	var lastModified time.Time
	if lm := props.Get("Last-Modified"); lm != "" {
		lastModified, _ = time.Parse(time.RFC1123, lm)
	}

	return &storage.FileInfo{
		Key:          key,
		Size:         size,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
	}, nil
}

// GetStorageType returns the backend type.
func (s *OSSStorage) GetStorageType() string {
	return string(storage.StorageTypeOSS)
}

// CreateMultipartUpload opens a multipart session for key.
func (s *OSSStorage) CreateMultipartUpload(ctx context.Context, key, contentType string) (storage.MultipartSession, error) {
	imur, err := s.bucket.InitiateMultipartUpload(key, oss.ContentType(contentType))
	if err != nil {
		return nil, fmt.Errorf("failed to initiate multipart upload: %w", err)
	}
	return &multipartSession{bucket: s.bucket, imur: imur}, nil
}

// multipartSession wraps one OSS multipart upload.
type multipartSession struct {
	bucket *oss.Bucket
	imur   oss.InitiateMultipartUploadResult
	parts  []oss.UploadPart
}

func (m *multipartSession) UploadID() string {
	return m.imur.UploadID
}

func (m *multipartSession) UploadPart(ctx context.Context, partNumber int, data []byte) (storage.Part, error) {
	part, err := m.bucket.UploadPart(m.imur, bytes.NewReader(data), int64(len(data)), partNumber)
	if err != nil {
		return storage.Part{}, fmt.Errorf("failed to upload part %d: %w", partNumber, err)
	}
	m.parts = append(m.parts, part)
	return storage.Part{PartNumber: part.PartNumber, Checksum: strings.Trim(part.ETag, `"`)}, nil
}

func (m *multipartSession) Complete(ctx context.Context, parts []storage.Part) (string, error) {
	if len(parts) != len(m.parts) {
		return "", fmt.Errorf("part list mismatch: completing %d of %d uploaded parts", len(parts), len(m.parts))
	}
	result, err := m.bucket.CompleteMultipartUpload(m.imur, m.parts)
	if err != nil {
		return "", fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return strings.Trim(result.ETag, `"`), nil
}

func (m *multipartSession) Abort(ctx context.Context) error {
	if err := m.bucket.AbortMultipartUpload(m.imur); err != nil {
		return fmt.Errorf("failed to abort multipart upload: %w", err)
	}
	return nil
}
