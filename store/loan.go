package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/maelcorre/bibliotheque/models"
)

// loanLookupStages expands the book, user and library references into
// embedded summary documents. Loans whose referenced document was deleted
// out from under them keep a null embed rather than vanishing from results.
func loanLookupStages() []bson.D {
	stages := make([]bson.D, 0, 6)
	for _, ref := range []struct {
		from  string
		field string
	}{
		{from: "books", field: "book"},
		{from: "users", field: "user"},
		{from: "libraries", field: "library"},
	} {
		stages = append(stages,
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: ref.from},
				{Key: "localField", Value: ref.field},
				{Key: "foreignField", Value: "_id"},
				{Key: "as", Value: ref.field},
			}}},
			bson.D{{Key: "$unwind", Value: bson.D{
				{Key: "path", Value: "$" + ref.field},
				{Key: "preserveNullAndEmptyArrays", Value: true},
			}}},
		)
	}
	return stages
}

func (db *DB) aggregateLoanViews(ctx context.Context, pipeline []bson.D) ([]models.LoanView, error) {
	cur, err := db.Loans().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	loans := []models.LoanView{}
	if err := cur.All(ctx, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// ListLoans returns one page of joined loan views plus the total match count.
func (db *DB) ListLoans(ctx context.Context, p ListParams) ([]models.LoanView, int64, error) {
	var (
		loans []models.LoanView
		total int64
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pipeline := []bson.D{
			{{Key: "$match", Value: p.Filter}},
			{{Key: "$sort", Value: p.Sort}},
			{{Key: "$skip", Value: p.Skip()}},
			{{Key: "$limit", Value: int64(p.Limit)}},
		}
		pipeline = append(pipeline, loanLookupStages()...)
		var err error
		loans, err = db.aggregateLoanViews(ctx, pipeline)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = db.Loans().CountDocuments(ctx, p.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

func (db *DB) LoanViewByID(ctx context.Context, id primitive.ObjectID) (*models.LoanView, error) {
	pipeline := append(
		[]bson.D{{{Key: "$match", Value: bson.M{"_id": id}}}},
		loanLookupStages()...,
	)
	loans, err := db.aggregateLoanViews(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, NotFound("loan not found")
	}
	return &loans[0], nil
}

func (db *DB) LoansForBook(ctx context.Context, bookID primitive.ObjectID) ([]models.LoanView, error) {
	pipeline := append(
		[]bson.D{{{Key: "$match", Value: bson.M{"book": bookID}}}},
		loanLookupStages()...,
	)
	return db.aggregateLoanViews(ctx, pipeline)
}

func (db *DB) LoansForUser(ctx context.Context, userID primitive.ObjectID) ([]models.LoanView, error) {
	pipeline := append(
		[]bson.D{
			{{Key: "$match", Value: bson.M{"user": userID}}},
			{{Key: "$sort", Value: LoanDefaultSort}},
		},
		loanLookupStages()...,
	)
	return db.aggregateLoanViews(ctx, pipeline)
}

// OverdueLoans returns active loans past their due date, soonest overdue
// first.
func (db *DB) OverdueLoans(ctx context.Context, now time.Time) ([]models.LoanView, error) {
	pipeline := append(
		[]bson.D{
			{{Key: "$match", Value: bson.M{
				"returnDate": bson.M{"$lt": now},
				"returned":   false,
			}}},
			{{Key: "$sort", Value: bson.D{{Key: "returnDate", Value: 1}}}},
		},
		loanLookupStages()...,
	)
	return db.aggregateLoanViews(ctx, pipeline)
}

func (db *DB) InsertLoan(ctx context.Context, loan *models.Loan) (primitive.ObjectID, error) {
	res, err := db.Loans().InsertOne(ctx, loan)
	if mongo.IsDuplicateKeyError(err) {
		// The partial unique index on active loans fired; the availability
		// pre-check lost a race.
		return primitive.NilObjectID, Conflict("this book is already on loan")
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// UpdateLoan applies a partial $set without any transition guard; only the
// dedicated return operation rejects double returns.
func (db *DB) UpdateLoan(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := db.Loans().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return NotFound("loan not found")
	}
	return nil
}

// ReturnLoan flips returned to true. The update is conditional on
// returned == false, so exactly one of two concurrent returns can succeed.
func (db *DB) ReturnLoan(ctx context.Context, id primitive.ObjectID) error {
	err := db.Loans().
		FindOneAndUpdate(ctx,
			bson.M{"_id": id, "returned": false},
			bson.M{"$set": bson.M{"returned": true}}).
		Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := db.Loans().CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return NotFound("loan not found")
		}
		return Conflict("this loan has already been returned")
	}
	return err
}

func (db *DB) DeleteLoan(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Loans().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return NotFound("loan not found")
	}
	return nil
}

// DeleteLoansForBook removes every loan referencing the book, returned or
// not. Used by the book delete cascade.
func (db *DB) DeleteLoansForBook(ctx context.Context, bookID primitive.ObjectID) (int64, error) {
	res, err := db.Loans().DeleteMany(ctx, bson.M{"book": bookID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (db *DB) CountActiveLoansForBook(ctx context.Context, bookID primitive.ObjectID) (int64, error) {
	return db.Loans().CountDocuments(ctx, bson.M{"book": bookID, "returned": false})
}

func (db *DB) CountActiveLoansForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return db.Loans().CountDocuments(ctx, bson.M{"user": userID, "returned": false})
}

func (db *DB) CountActiveLoansForLibrary(ctx context.Context, libraryID primitive.ObjectID) (int64, error) {
	return db.Loans().CountDocuments(ctx, bson.M{"library": libraryID, "returned": false})
}
