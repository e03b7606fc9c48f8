package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
)

// Narrow store contracts consumed by the handlers, all satisfied by
// *store.DB. Tests substitute in-memory fakes.

type BookStore interface {
	ListBooks(ctx context.Context, p store.ListParams) ([]models.Book, int64, error)
	SearchBooks(ctx context.Context, query string) ([]models.Book, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	BookByISBN(ctx context.Context, isbn int64) (*models.Book, error)
	BooksByType(ctx context.Context, bookType string) ([]models.Book, error)
	BooksByLanguage(ctx context.Context, language string) ([]models.Book, error)
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	UpdateBook(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Book, error)
	DeleteBook(ctx context.Context, id primitive.ObjectID) error
}

type UserStore interface {
	ListUsers(ctx context.Context, p store.ListParams) ([]models.User, int64, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UserByEmail(ctx context.Context, email string, exclude primitive.ObjectID) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

type LibraryStore interface {
	ListLibraries(ctx context.Context, p store.ListParams) ([]models.Library, int64, error)
	LibraryByID(ctx context.Context, id primitive.ObjectID) (*models.Library, error)
	InsertLibrary(ctx context.Context, library *models.Library) (primitive.ObjectID, error)
	UpdateLibrary(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Library, error)
	DeleteLibrary(ctx context.Context, id primitive.ObjectID) error
}

type LoanStore interface {
	ListLoans(ctx context.Context, p store.ListParams) ([]models.LoanView, int64, error)
	LoanViewByID(ctx context.Context, id primitive.ObjectID) (*models.LoanView, error)
	LoansForBook(ctx context.Context, bookID primitive.ObjectID) ([]models.LoanView, error)
	LoansForUser(ctx context.Context, userID primitive.ObjectID) ([]models.LoanView, error)
	OverdueLoans(ctx context.Context, now time.Time) ([]models.LoanView, error)
	InsertLoan(ctx context.Context, loan *models.Loan) (primitive.ObjectID, error)
	UpdateLoan(ctx context.Context, id primitive.ObjectID, set bson.M) error
	ReturnLoan(ctx context.Context, id primitive.ObjectID) error
	DeleteLoan(ctx context.Context, id primitive.ObjectID) error
	DeleteLoansForBook(ctx context.Context, bookID primitive.ObjectID) (int64, error)
	CountActiveLoansForBook(ctx context.Context, bookID primitive.ObjectID) (int64, error)
	CountActiveLoansForUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountActiveLoansForLibrary(ctx context.Context, libraryID primitive.ObjectID) (int64, error)
}

type StatsStore interface {
	BookStats(ctx context.Context) (*store.BookStats, error)
	StatsByLanguage(ctx context.Context, language string) (*store.LanguageStatsView, error)
	StatsByType(ctx context.Context, bookType string) (*store.TypeStatsView, error)
}

// objectIDParam resolves a hex id path parameter, failing with a 400-kind
// error naming the entity.
func objectIDParam(r *http.Request, name, entity string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, store.Invalid("invalid " + entity + " id")
	}
	return id, nil
}
