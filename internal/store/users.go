package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"melodex/internal/core"
)

type UserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	col := db.Collection("users")

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &UserRepo{col: col}
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*core.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepo) Create(ctx context.Context, u *core.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: username %s taken", core.ErrValidation, u.Username)
	}
	return err
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*core.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u core.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user", core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
