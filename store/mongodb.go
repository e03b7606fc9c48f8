package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
	Logger   *zap.Logger
}

func NewMongoDB(ctx context.Context, uri, dbName string, logger *zap.Logger) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	logger.Info("connected to MongoDB", zap.String("database", dbName))
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
		Logger:   logger,
	}, nil
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection("books")
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Libraries() *mongo.Collection {
	return db.Database.Collection("libraries")
}

func (db *DB) Loans() *mongo.Collection {
	return db.Database.Collection("loans")
}

// EnsureIndexes creates the search and integrity indexes. The unique email
// and one-active-loan-per-book indexes back the check-then-act guards in the
// handlers, so those invariants hold even under concurrent writes.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	_, err := db.Books().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "author", Value: "text"},
				{Key: "publisher", Value: "text"},
				{Key: "description", Value: "text"},
			},
			Options: options.Index().SetName("book_text").SetWeights(bson.D{
				{Key: "title", Value: 5},
				{Key: "author", Value: 3},
				{Key: "publisher", Value: 2},
				{Key: "description", Value: 1},
			}),
		},
		{Keys: bson.D{{Key: "isbn", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "firstName", Value: "text"}, {Key: "lastName", Value: "text"}}},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("unique_email").SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Libraries().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: "text"}},
	})
	if err != nil {
		return err
	}

	_, err = db.Loans().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "book", Value: 1}},
		Options: options.Index().
			SetName("one_active_loan_per_book").
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "returned", Value: false}}),
	})
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
