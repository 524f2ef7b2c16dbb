package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"newsreel/internal/model/asset"
	"newsreel/internal/model/render"
)

// EnsureIndexes creates the indexes of every persisted model. Called once at
// application startup.
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	models := []Model{
		&render.Render{},
		&asset.Asset{},
	}
	return EnsureAllIndexes(ctx, db, models...)
}
