package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"melodex/internal/core"
)

type TrackRepo struct {
	col *mongo.Collection
}

func NewTrackRepo(db *mongo.Database) *TrackRepo {
	col := db.Collection("tracks")

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "track", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})

	return &TrackRepo{col: col}
}

func (r *TrackRepo) FindByID(ctx context.Context, id string) (*core.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var track core.Track
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&track)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: track %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// FindOrCreateByMediaURL upserts keyed on the media URL so the same playable
// media never yields two track documents. The stored media URL is immutable;
// name, thumbnail and artist fields are refreshed on every resolution.
func (r *TrackRepo) FindOrCreateByMediaURL(ctx context.Context, t core.Track) (*core.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if t.MediaURL == "" {
		// Nothing to key on; fall back to a plain insert under a local id.
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if _, err := r.col.InsertOne(ctx, t); err != nil {
			return nil, err
		}
		return &t, nil
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	update := bson.M{
		"$set": bson.M{
			"name":       t.Name,
			"thumbnail":  t.Thumbnail,
			"artistName": t.ArtistName,
		},
		"$setOnInsert": bson.M{
			"_id":   t.ID,
			"track": t.MediaURL,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored core.Track
	err := r.col.FindOneAndUpdate(ctx, bson.M{"track": t.MediaURL}, update, opts).Decode(&stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
