package render

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newsreel/internal/model/render"
)

// RenderRepository persists render records and their status machines.
type RenderRepository interface {
	Create(ctx context.Context, rec *render.Render) error
	FindByID(ctx context.Context, id string) (*render.Render, error)
	FindAll(ctx context.Context, status string, limit, offset int) ([]*render.Render, int64, error)
	UpdateRenderStatus(ctx context.Context, id string, status render.RenderStatus, errorMsg string) error
	SetArtifact(ctx context.Context, id string, artifact *render.Artifact) error
	UpdatePublishStatus(ctx context.Context, id string, status render.PublishStatus, errorMsg string) error
	SetPrivacy(ctx context.Context, id string, privacy render.Privacy) error
	SetPlatformVideo(ctx context.Context, id string, videoID string) error
}

// RenderRepo is the MongoDB implementation.
type RenderRepo struct {
	coll *mongo.Collection
}

// NewRenderRepo creates a render repository.
func NewRenderRepo(db *mongo.Database) *RenderRepo {
	var rec render.Render
	return &RenderRepo{coll: db.Collection(rec.Collection())}
}

// Create inserts a new render record with both status machines at pending.
func (r *RenderRepo) Create(ctx context.Context, rec *render.Render) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.RenderStatus == "" {
		rec.RenderStatus = render.RenderStatusPending
	}
	if rec.PublishStatus == "" {
		rec.PublishStatus = render.PublishStatusPending
	}
	_, err := r.coll.InsertOne(ctx, rec)
	return err
}

// FindByID looks up one render by its ID.
func (r *RenderRepo) FindByID(ctx context.Context, id string) (*render.Render, error) {
	var rec render.Render
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindAll lists renders newest first, optionally filtered by render status.
func (r *RenderRepo) FindAll(ctx context.Context, status string, limit, offset int) ([]*render.Render, int64, error) {
	filter := bson.M{"deleted_at": nil}
	if status != "" {
		filter["render_status"] = status
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

	var records []*render.Render
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// UpdateRenderStatus moves the render state machine, recording the failure
// message on error transitions.
func (r *RenderRepo) UpdateRenderStatus(ctx context.Context, id string, status render.RenderStatus, errorMsg string) error {
	update := bson.M{
		"render_status": status,
		"updated_at":    time.Now(),
	}
	if errorMsg != "" {
		update["error_message"] = errorMsg
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": update})
	return err
}

// SetArtifact records the measured output and marks the render as rendered.
func (r *RenderRepo) SetArtifact(ctx context.Context, id string, artifact *render.Artifact) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"render_status": render.RenderStatusRendered,
			"storage_key":   artifact.StorageKey,
			"width":         artifact.Width,
			"height":        artifact.Height,
			"duration_ms":   artifact.DurationMs,
			"fps":           artifact.FPS,
			"video_codec":   artifact.VideoCodec,
			"audio_codec":   artifact.AudioCodec,
			"format":        artifact.Format,
			"updated_at":    time.Now(),
		}},
	)
	return err
}

// UpdatePublishStatus moves the publish state machine, recording the failure
// message on error transitions.
func (r *RenderRepo) UpdatePublishStatus(ctx context.Context, id string, status render.PublishStatus, errorMsg string) error {
	update := bson.M{
		"publish_status": status,
		"updated_at":     time.Now(),
	}
	if errorMsg != "" {
		update["error_message"] = errorMsg
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": update})
	return err
}

// SetPrivacy records the externally decided visibility for the video.
func (r *RenderRepo) SetPrivacy(ctx context.Context, id string, privacy render.Privacy) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"privacy":    privacy,
			"updated_at": time.Now(),
		}},
	)
	return err
}

// SetPlatformVideo records the durable platform video ID.
func (r *RenderRepo) SetPlatformVideo(ctx context.Context, id string, videoID string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"platform_video_id": videoID,
			"updated_at":        time.Now(),
		}},
	)
	return err
}
