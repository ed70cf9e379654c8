package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"melodex/internal/core"
)

// trendingDocID keys the single snapshot document. Every refresh replaces
// the whole document, so concurrent readers see either the old snapshot or
// the new one, never a partial write.
const trendingDocID = "trending"

type trendingDoc struct {
	ID                    string `bson:"_id"`
	core.TrendingSnapshot `bson:",inline"`
}

type TrendingRepo struct {
	col *mongo.Collection
}

func NewTrendingRepo(db *mongo.Database) *TrendingRepo {
	return &TrendingRepo{col: db.Collection("trending")}
}

// Get returns the current snapshot. Before the first synchronization run it
// returns an empty snapshot, not an error.
func (r *TrendingRepo) Get(ctx context.Context) (*core.TrendingSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc trendingDoc
	err := r.col.FindOne(ctx, bson.M{"_id": trendingDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &core.TrendingSnapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.TrendingSnapshot, nil
}

// Replace swaps the whole snapshot document, creating it on the first run.
// Last writer wins; overlapping synchronization runs are tolerated by
// design.
func (r *TrendingRepo) Replace(ctx context.Context, snap *core.TrendingSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := trendingDoc{ID: trendingDocID, TrendingSnapshot: *snap}
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"_id": trendingDocID},
		doc,
		options.Replace().SetUpsert(true))
	return err
}
