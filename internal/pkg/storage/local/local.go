package local

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"newsreel/internal/pkg/id"
	"newsreel/internal/pkg/storage"
)

// LocalStorage stores objects on the local filesystem, mainly for
// development and tests.
type LocalStorage struct {
	basePath      string
	baseURL       string
	presignExpiry int // seconds
}

// NewLocalStorage creates the base directory and returns the storage.
func NewLocalStorage(basePath, baseURL string, presignExpiry int) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalStorage{
		basePath:      basePath,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		presignExpiry: presignExpiry,
	}, nil
}

// Upload stores a whole object in one call.
func (s *LocalStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	fullPath := filepath.Join(s.basePath, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.getFileURL(key), nil
}

// Download opens the object for streaming reads.
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath := filepath.Join(s.basePath, key)

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// GetPresignedDownloadURL returns the plain file URL; local storage has no
// signing.
func (s *LocalStorage) GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return s.getFileURL(key), nil
}

// Delete removes the object. A missing object counts as deleted.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath := filepath.Join(s.basePath, key)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether the object is present.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetFileInfo returns object metadata with an MD5 ETag.
func (s *LocalStorage) GetFileInfo(ctx context.Context, key string) (*storage.FileInfo, error) {
	fullPath := filepath.Join(s.basePath, key)

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	return &storage.FileInfo{
		Key:          key,
		Size:         info.Size(),
		ContentType:  contentTypeFor(key),
		ETag:         hex.EncodeToString(hash.Sum(nil)),
		LastModified: info.ModTime(),
	}, nil
}

// GetStorageType returns the backend type.
func (s *LocalStorage) GetStorageType() string {
	return string(storage.StorageTypeLocal)
}

// CreateMultipartUpload opens a multipart session backed by a staging
// directory; parts land as numbered files and are assembled on Complete.
func (s *LocalStorage) CreateMultipartUpload(ctx context.Context, key, contentType string) (storage.MultipartSession, error) {
	uploadID := id.New()
	stageDir := filepath.Join(s.basePath, ".multipart", uploadID)
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &multipartSession{store: s, key: key, uploadID: uploadID, stageDir: stageDir}, nil
}

// multipartSession stages parts on disk until Complete assembles them.
type multipartSession struct {
	store    *LocalStorage
	key      string
	uploadID string
	stageDir string
	lastPart int
}

func (m *multipartSession) UploadID() string {
	return m.uploadID
}

func (m *multipartSession) UploadPart(ctx context.Context, partNumber int, data []byte) (storage.Part, error) {
	if partNumber <= m.lastPart {
		return storage.Part{}, fmt.Errorf("part number %d not increasing (last was %d)", partNumber, m.lastPart)
	}
	partPath := filepath.Join(m.stageDir, fmt.Sprintf("part_%06d", partNumber))
	if err := os.WriteFile(partPath, data, 0o644); err != nil {
		return storage.Part{}, fmt.Errorf("failed to write part %d: %w", partNumber, err)
	}
	m.lastPart = partNumber
	sum := md5.Sum(data)
	return storage.Part{PartNumber: partNumber, Checksum: hex.EncodeToString(sum[:])}, nil
}

func (m *multipartSession) Complete(ctx context.Context, parts []storage.Part) (string, error) {
	ordered := make([]storage.Part, len(parts))
	copy(ordered, parts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PartNumber < ordered[j].PartNumber })
	for i, p := range ordered {
		if p.PartNumber != i+1 {
			return "", fmt.Errorf("part list has a gap: expected part %d, got %d", i+1, p.PartNumber)
		}
	}

	fullPath := filepath.Join(m.store.basePath, m.key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	defer out.Close()

	hash := md5.New()
	for _, p := range ordered {
		partPath := filepath.Join(m.stageDir, fmt.Sprintf("part_%06d", p.PartNumber))
		part, err := os.Open(partPath)
		if err != nil {
			os.Remove(fullPath)
			return "", fmt.Errorf("failed to open part %d: %w", p.PartNumber, err)
		}
		if _, err := io.Copy(io.MultiWriter(out, hash), part); err != nil {
			part.Close()
			os.Remove(fullPath)
			return "", fmt.Errorf("failed to assemble part %d: %w", p.PartNumber, err)
		}
		part.Close()
	}

	os.RemoveAll(m.stageDir)
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (m *multipartSession) Abort(ctx context.Context) error {
	return os.RemoveAll(m.stageDir)
}

func (s *LocalStorage) getFileURL(key string) string {
	urlKey := strings.ReplaceAll(key, "\\", "/")
	return fmt.Sprintf("%s/%s", s.baseURL, urlKey)
}

// contentTypeFor maps a file extension to its MIME type.
func contentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	contentTypes := map[string]string{
		".json": "application/json",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
