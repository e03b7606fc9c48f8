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

// ListBooks returns one page of books matching the params plus the total
// match count. The page query and the count run concurrently. A text query
// replaces the field filters and sorts by descending relevance.
func (db *DB) ListBooks(ctx context.Context, p ListParams) ([]models.Book, int64, error) {
	filter := p.Filter
	opts := options.Find().
		SetSort(p.Sort).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
	if p.TextQuery != "" {
		filter = bson.M{"$text": bson.M{"$search": p.TextQuery}}
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
			SetSort(bson.M{"score": bson.M{"$meta": "textScore"}})
	}

	var (
		books []models.Book
		total int64
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := db.Books().Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &books)
	})
	g.Go(func() error {
		var err error
		total, err = db.Books().CountDocuments(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, total, nil
}

// SearchBooks runs a full-text query over the weighted book index and returns
// matches sorted by descending relevance score.
func (db *DB) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	filter := bson.M{"$text": bson.M{"$search": query}}
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}})
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (db *DB) BookByISBN(ctx context.Context, isbn int64) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"isbn": isbn}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound("no book found with this ISBN")
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (db *DB) BooksByType(ctx context.Context, bookType string) ([]models.Book, error) {
	return db.findBooks(ctx, bson.M{"types": bookType})
}

func (db *DB) BooksByLanguage(ctx context.Context, language string) ([]models.Book, error) {
	return db.findBooks(ctx, bson.M{"language": language})
}

func (db *DB) findBooks(ctx context.Context, filter bson.M) ([]models.Book, error) {
	cur, err := db.Books().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// UpdateBook applies a partial $set and returns the updated document.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Book, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var book models.Book
	err := db.Books().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Books().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return NotFound("book not found")
	}
	return nil
}
