package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/maelcorre/bibliotheque/models"
)

func (db *DB) ListUsers(ctx context.Context, p ListParams) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts := options.Find().
			SetSort(p.Sort).
			SetSkip(p.Skip()).
			SetLimit(int64(p.Limit))
		cur, err := db.Users().Find(ctx, p.Filter, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &users)
	})
	g.Go(func() error {
		var err error
		total, err = db.Users().CountDocuments(ctx, p.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByEmail looks up a user by email, optionally excluding one id. It
// backs the uniqueness pre-check on create and update; exclude is the user
// being updated. Returns (nil, nil) when no user matches.
func (db *DB) UserByEmail(ctx context.Context, email string, exclude primitive.ObjectID) (*models.User, error) {
	filter := bson.M{"email": email}
	if exclude != primitive.NilObjectID {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	var user models.User
	err := db.Users().FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) InsertUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	res, err := db.Users().InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		// Unique email index fired; the friendly pre-check lost a race.
		return primitive.NilObjectID, Conflict("a user with this email already exists")
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := db.Users().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound("user not found")
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, Conflict("another user with this email already exists")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return NotFound("user not found")
	}
	return nil
}
