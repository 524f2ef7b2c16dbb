package asset

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newsreel/internal/model/asset"
)

// AssetRepository persists staged asset records.
type AssetRepository interface {
	Create(ctx context.Context, rec *asset.Asset) error
	FindByID(ctx context.Context, id string) (*asset.Asset, error)
	FindAll(ctx context.Context, kind string, limit, offset int) ([]*asset.Asset, int64, error)
	Delete(ctx context.Context, id string) error
}

// AssetRepo is the MongoDB implementation.
type AssetRepo struct {
	coll *mongo.Collection
}

// NewAssetRepo creates an asset repository.
func NewAssetRepo(db *mongo.Database) *AssetRepo {
	var rec asset.Asset
	return &AssetRepo{coll: db.Collection(rec.Collection())}
}

// Create inserts a new asset record.
func (r *AssetRepo) Create(ctx context.Context, rec *asset.Asset) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = now
	}
	_, err := r.coll.InsertOne(ctx, rec)
	return err
}

// FindByID looks up one asset by its ID.
func (r *AssetRepo) FindByID(ctx context.Context, id string) (*asset.Asset, error) {
	var rec asset.Asset
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindAll lists assets newest first, optionally filtered by kind.
func (r *AssetRepo) FindAll(ctx context.Context, kind string, limit, offset int) ([]*asset.Asset, int64, error) {
	filter := bson.M{"deleted_at": nil}
	if kind != "" {
		filter["kind"] = kind
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var records []*asset.Asset
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Delete soft-deletes the asset record.
func (r *AssetRepo) Delete(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"deleted_at": now,
			"status":     asset.AssetStatusDeleted,
			"updated_at": now,
		}},
	)
	return err
}
