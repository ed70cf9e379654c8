package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"melodex/internal/core"
)

type PlaylistRepo struct {
	col *mongo.Collection
}

func NewPlaylistRepo(db *mongo.Database) *PlaylistRepo {
	return &PlaylistRepo{col: db.Collection("playlists")}
}

func (r *PlaylistRepo) FindByID(ctx context.Context, id string) (*core.Playlist, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var pl core.Playlist
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&pl)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: playlist %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (r *PlaylistRepo) ListByOwner(ctx context.Context, ownerID string) ([]core.Playlist, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"owner": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []core.Playlist
	for cur.Next(ctx) {
		var pl core.Playlist
		if err := cur.Decode(&pl); err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, cur.Err()
}

func (r *PlaylistRepo) Insert(ctx context.Context, pl *core.Playlist) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, pl)
	return err
}

func (r *PlaylistRepo) Save(ctx context.Context, pl *core.Playlist) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": pl.ID}, pl)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: playlist %s", core.ErrNotFound, pl.ID)
	}
	return nil
}

func (r *PlaylistRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: playlist %s", core.ErrNotFound, id)
	}
	return nil
}
