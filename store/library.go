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

func (db *DB) ListLibraries(ctx context.Context, p ListParams) ([]models.Library, int64, error) {
	var (
		libraries []models.Library
		total     int64
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts := options.Find().
			SetSort(p.Sort).
			SetSkip(p.Skip()).
			SetLimit(int64(p.Limit))
		cur, err := db.Libraries().Find(ctx, p.Filter, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &libraries)
	})
	g.Go(func() error {
		var err error
		total, err = db.Libraries().CountDocuments(ctx, p.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if libraries == nil {
		libraries = []models.Library{}
	}
	return libraries, total, nil
}

func (db *DB) LibraryByID(ctx context.Context, id primitive.ObjectID) (*models.Library, error) {
	var library models.Library
	err := db.Libraries().FindOne(ctx, bson.M{"_id": id}).Decode(&library)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound("library not found")
	}
	if err != nil {
		return nil, err
	}
	return &library, nil
}

func (db *DB) InsertLibrary(ctx context.Context, library *models.Library) (primitive.ObjectID, error) {
	res, err := db.Libraries().InsertOne(ctx, library)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) UpdateLibrary(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Library, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var library models.Library
	err := db.Libraries().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&library)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound("library not found")
	}
	if err != nil {
		return nil, err
	}
	return &library, nil
}

func (db *DB) DeleteLibrary(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Libraries().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return NotFound("library not found")
	}
	return nil
}
