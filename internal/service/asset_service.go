package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"newsreel/internal/config"
	"newsreel/internal/model/asset"
	"newsreel/internal/pkg/id"
	"newsreel/internal/pkg/storage"
	assetrepo "newsreel/internal/repository/asset"
)

var (
	// ErrAssetNotFound means no live asset record matches the ID.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrInvalidAssetKind means the upload named an unknown kind.
	ErrInvalidAssetKind = errors.New("asset kind must be slide or audio")
	// ErrAssetTooLarge means the upload exceeds the per-asset size cap.
	ErrAssetTooLarge = errors.New("asset exceeds the size limit")
	// ErrAssetEmpty means the upload carried no data.
	ErrAssetEmpty = errors.New("asset data is empty")
)

// AssetService stages slide images and narration audio in object storage so
// render requests can reference them by storage key.
type AssetService interface {
	// UploadAsset stores the file and creates the asset record. The returned
	// record carries the storage key a render request references.
	UploadAsset(ctx context.Context, req *UploadAssetRequest) (*asset.Asset, error)

	// GetAsset looks up one asset record.
	GetAsset(ctx context.Context, assetID string) (*asset.Asset, error)

	// ListAssets pages through asset records, newest first, optionally
	// filtered by kind.
	ListAssets(ctx context.Context, kind string, limit, offset int) ([]*asset.Asset, int64, error)

	// AssetLink returns a time-limited download URL for the stored file,
	// with its storage metadata.
	AssetLink(ctx context.Context, assetID string, expiresIn time.Duration) (*AssetLink, error)

	// OpenAsset opens the stored file for streaming reads. The caller closes
	// the reader.
	OpenAsset(ctx context.Context, assetID string) (*asset.Asset, io.ReadCloser, error)

	// DeleteAsset removes the stored file and soft-deletes the record.
	DeleteAsset(ctx context.Context, assetID string) error
}

// UploadAssetRequest is one staged upload.
type UploadAssetRequest struct {
	Kind        asset.AssetKind
	FileName    string
	ContentType string
	Ext         string // extension without the dot
	Data        io.Reader
}

// AssetLink is a presigned download view of one staged asset.
type AssetLink struct {
	AssetID     string
	StorageKey  string
	URL         string
	ExpiresAt   time.Time
	FileName    string
	SizeBytes   int64
	ContentType string
}

// assetService is the production implementation.
type assetService struct {
	repo     assetrepo.AssetRepository
	store    storage.Storage
	maxBytes int64
}

// NewAssetService creates the asset service. Uploads are capped at the same
// per-asset size the sandbox stage enforces, so a staged asset is always
// consumable by a render.
func NewAssetService(cfg *config.Config, repo assetrepo.AssetRepository, store storage.Storage) AssetService {
	return &assetService{
		repo:     repo,
		store:    store,
		maxBytes: cfg.Sandbox.MaxAssetBytes,
	}
}

// UploadAsset stores the file and creates the asset record.
func (s *assetService) UploadAsset(ctx context.Context, req *UploadAssetRequest) (*asset.Asset, error) {
	if !req.Kind.IsValid() {
		return nil, ErrInvalidAssetKind
	}
	if req.Data == nil {
		return nil, ErrAssetEmpty
	}

	data, err := io.ReadAll(io.LimitReader(req.Data, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset data: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrAssetEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrAssetTooLarge, s.maxBytes)
	}

	sum := md5.Sum(data)
	assetID := id.New()
	storageKey := assetStorageKey(req.Kind, assetID, req.Ext)

	if _, err := s.store.Upload(ctx, storageKey, bytes.NewReader(data), req.ContentType); err != nil {
		log.Error().Err(err).Str("key", storageKey).Msg("failed to upload asset")
		return nil, fmt.Errorf("failed to upload asset: %w", err)
	}

	rec := &asset.Asset{
		ID:          assetID,
		Kind:        req.Kind,
		Name:        req.FileName,
		Ext:         req.Ext,
		StorageKey:  storageKey,
		StorageType: s.store.GetStorageType(),
		FileSize:    int64(len(data)),
		ContentType: req.ContentType,
		MD5:         hex.EncodeToString(sum[:]),
		Status:      asset.AssetStatusReady,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		log.Error().Err(err).Str("key", storageKey).Msg("failed to create asset record")
		if delErr := s.store.Delete(ctx, storageKey); delErr != nil {
			log.Warn().Err(delErr).Str("key", storageKey).Msg("failed to clean up orphaned object")
		}
		return nil, fmt.Errorf("failed to create asset record: %w", err)
	}

	log.Info().
		Str("asset_id", assetID).
		Str("kind", req.Kind.String()).
		Str("key", storageKey).
		Int64("size", rec.FileSize).
		Msg("asset staged")

	return rec, nil
}

// GetAsset looks up one asset record.
func (s *assetService) GetAsset(ctx context.Context, assetID string) (*asset.Asset, error) {
	rec, err := s.repo.FindByID(ctx, assetID)
	if err != nil {
		return nil, ErrAssetNotFound
	}
	return rec, nil
}

// ListAssets pages through asset records.
func (s *assetService) ListAssets(ctx context.Context, kind string, limit, offset int) ([]*asset.Asset, int64, error) {
	if kind != "" && !asset.AssetKind(kind).IsValid() {
		return nil, 0, ErrInvalidAssetKind
	}
	return s.repo.FindAll(ctx, kind, limit, offset)
}

// AssetLink builds a time-limited download URL for the staged file.
func (s *assetService) AssetLink(ctx context.Context, assetID string, expiresIn time.Duration) (*AssetLink, error) {
	rec, err := s.repo.FindByID(ctx, assetID)
	if err != nil {
		return nil, ErrAssetNotFound
	}

	url, err := s.store.GetPresignedDownloadURL(ctx, rec.StorageKey, expiresIn)
	if err != nil {
		log.Error().Err(err).Str("key", rec.StorageKey).Msg("failed to presign asset URL")
		return nil, fmt.Errorf("failed to presign asset %q: %w", rec.StorageKey, err)
	}

	return &AssetLink{
		AssetID:     rec.ID,
		StorageKey:  rec.StorageKey,
		URL:         url,
		ExpiresAt:   time.Now().Add(expiresIn),
		FileName:    rec.Name,
		SizeBytes:   rec.FileSize,
		ContentType: rec.ContentType,
	}, nil
}

// OpenAsset opens the stored file for streaming reads.
func (s *assetService) OpenAsset(ctx context.Context, assetID string) (*asset.Asset, io.ReadCloser, error) {
	rec, err := s.repo.FindByID(ctx, assetID)
	if err != nil {
		return nil, nil, ErrAssetNotFound
	}

	reader, err := s.store.Download(ctx, rec.StorageKey)
	if err != nil {
		log.Error().Err(err).Str("key", rec.StorageKey).Msg("failed to open asset")
		return nil, nil, fmt.Errorf("failed to open asset %q: %w", rec.StorageKey, err)
	}
	return rec, reader, nil
}

// DeleteAsset removes the stored file and soft-deletes the record. A missing
// object does not block record deletion.
func (s *assetService) DeleteAsset(ctx context.Context, assetID string) error {
	rec, err := s.repo.FindByID(ctx, assetID)
	if err != nil {
		return ErrAssetNotFound
	}

	if err := s.store.Delete(ctx, rec.StorageKey); err != nil {
		log.Warn().Err(err).Str("key", rec.StorageKey).Msg("failed to delete asset object")
	}
	if err := s.repo.Delete(ctx, assetID); err != nil {
		return fmt.Errorf("failed to delete asset record: %w", err)
	}

	log.Info().Str("asset_id", assetID).Str("key", rec.StorageKey).Msg("asset deleted")
	return nil
}

// assetStorageKey builds the object key for a staged asset:
// assets/{kind}/{asset_id}.{ext}
func assetStorageKey(kind asset.AssetKind, assetID, ext string) string {
	if ext != "" {
		return fmt.Sprintf("assets/%s/%s.%s", kind, assetID, ext)
	}
	return fmt.Sprintf("assets/%s/%s", kind, assetID)
}
