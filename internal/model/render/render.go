package render

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Render is the persisted record of one assembly job: the request it was
// created from, the render and publish state machines, and the artifact
// metadata once the video exists.
type Render struct {
	ID          string       `bson:"id" json:"id"`
	Slides      []SlideAsset `bson:"slides" json:"slides"`
	Audio       []AudioAsset `bson:"audio" json:"audio"`
	Orientation Orientation  `bson:"orientation" json:"orientation"`
	OverlayDate string       `bson:"overlay_date" json:"overlay_date"`

	RenderStatus  RenderStatus  `bson:"render_status" json:"render_status"`
	PublishStatus PublishStatus `bson:"publish_status" json:"publish_status"`

	// Artifact metadata, set when render_status becomes rendered.
	StorageKey string `bson:"storage_key,omitempty" json:"storage_key,omitempty"`
	Width      int    `bson:"width,omitempty" json:"width,omitempty"`
	Height     int    `bson:"height,omitempty" json:"height,omitempty"`
	DurationMs int64  `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	FPS        int    `bson:"fps,omitempty" json:"fps,omitempty"`
	VideoCodec string `bson:"video_codec,omitempty" json:"video_codec,omitempty"`
	AudioCodec string `bson:"audio_codec,omitempty" json:"audio_codec,omitempty"`
	Format     string `bson:"format,omitempty" json:"format,omitempty"`

	// Platform delivery, set by the publish flow.
	Privacy         Privacy `bson:"privacy,omitempty" json:"privacy,omitempty"`
	PlatformVideoID string  `bson:"platform_video_id,omitempty" json:"platform_video_id,omitempty"`

	ErrorMessage string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Artifact bundles the measured output of a completed render for persistence.
type Artifact struct {
	StorageKey string
	Width      int
	Height     int
	DurationMs int64
	FPS        int
	VideoCodec string
	AudioCodec string
	Format     string
}

// Request rebuilds the immutable input this record was created from.
func (r *Render) Request() *RenderRequest {
	return &RenderRequest{
		Slides:      r.Slides,
		Audio:       r.Audio,
		Orientation: r.Orientation,
		OverlayDate: r.OverlayDate,
	}
}

// Collection returns the collection name.
func (r *Render) Collection() string {
	return "renders"
}

// EnsureIndexes creates and maintains the collection indexes.
func (r *Render) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(r.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "render_status", Value: 1}},
			Options: options.Index().SetName("idx_render_status"),
		},
		{
			Keys:    bson.D{{Key: "publish_status", Value: 1}},
			Options: options.Index().SetName("idx_publish_status"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
