package asset

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Asset is a staged input file: a slide image or a narration audio segment
// uploaded ahead of a render. Render requests reference staged assets by
// their storage key, so the sandbox can fetch them from object storage
// instead of the public internet.
type Asset struct {
	ID   string    `bson:"id" json:"id"`
	Kind AssetKind `bson:"kind" json:"kind"`
	Name string    `bson:"name" json:"name"` // original filename
	Ext  string    `bson:"ext" json:"ext"`   // extension without the dot

	StorageKey  string `bson:"storage_key" json:"storage_key"`
	StorageType string `bson:"storage_type" json:"storage_type"`

	FileSize    int64  `bson:"file_size" json:"file_size"`
	ContentType string `bson:"content_type" json:"content_type"`
	MD5         string `bson:"md5,omitempty" json:"md5,omitempty"`

	Status AssetStatus `bson:"status" json:"status"`

	UploadedAt time.Time  `bson:"uploaded_at" json:"uploaded_at"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// AssetKind classifies what role a staged file plays in a composition.
type AssetKind string

const (
	AssetKindSlide AssetKind = "slide" // still image shown on screen
	AssetKindAudio AssetKind = "audio" // narration audio segment
)

// IsValid reports whether k is a known asset kind.
func (k AssetKind) IsValid() bool {
	return k == AssetKindSlide || k == AssetKindAudio
}

// String returns the kind as a string.
func (k AssetKind) String() string {
	return string(k)
}

// AssetStatus is the lifecycle state of a staged asset.
type AssetStatus string

const (
	AssetStatusReady   AssetStatus = "ready"
	AssetStatusDeleted AssetStatus = "deleted"
)

// Collection returns the collection name.
func (a *Asset) Collection() string {
	return "assets"
}

// EnsureIndexes creates and maintains the collection indexes.
func (a *Asset) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(a.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_kind_created"),
		},
		{
			Keys:    bson.D{{Key: "storage_key", Value: 1}},
			Options: options.Index().SetName("idx_storage_key"),
		},
		{
			Keys:    bson.D{{Key: "md5", Value: 1}},
			Options: options.Index().SetName("idx_md5"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
