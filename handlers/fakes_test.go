package handlers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
)

// Function-field fakes: tests set only the calls they expect. Unset calls
// return zero values, and `calls` records every store hit so tests can assert
// that invalid input never reaches storage.

type fakeBooks struct {
	calls int

	listBooks   func(p store.ListParams) ([]models.Book, int64, error)
	searchBooks func(query string) ([]models.Book, error)
	byID        func(id primitive.ObjectID) (*models.Book, error)
	byISBN      func(isbn int64) (*models.Book, error)
	byType      func(bookType string) ([]models.Book, error)
	byLanguage  func(language string) ([]models.Book, error)
	insert      func(book *models.Book) (primitive.ObjectID, error)
	update      func(id primitive.ObjectID, set bson.M) (*models.Book, error)
	delete      func(id primitive.ObjectID) error
}

func (f *fakeBooks) ListBooks(_ context.Context, p store.ListParams) ([]models.Book, int64, error) {
	f.calls++
	if f.listBooks == nil {
		return nil, 0, nil
	}
	return f.listBooks(p)
}

func (f *fakeBooks) SearchBooks(_ context.Context, query string) ([]models.Book, error) {
	f.calls++
	if f.searchBooks == nil {
		return nil, nil
	}
	return f.searchBooks(query)
}

func (f *fakeBooks) BookByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	f.calls++
	if f.byID == nil {
		return nil, store.NotFound("book not found")
	}
	return f.byID(id)
}

func (f *fakeBooks) BookByISBN(_ context.Context, isbn int64) (*models.Book, error) {
	f.calls++
	if f.byISBN == nil {
		return nil, store.NotFound("no book found with this ISBN")
	}
	return f.byISBN(isbn)
}

func (f *fakeBooks) BooksByType(_ context.Context, bookType string) ([]models.Book, error) {
	f.calls++
	if f.byType == nil {
		return nil, nil
	}
	return f.byType(bookType)
}

func (f *fakeBooks) BooksByLanguage(_ context.Context, language string) ([]models.Book, error) {
	f.calls++
	if f.byLanguage == nil {
		return nil, nil
	}
	return f.byLanguage(language)
}

func (f *fakeBooks) InsertBook(_ context.Context, book *models.Book) (primitive.ObjectID, error) {
	f.calls++
	if f.insert == nil {
		return primitive.NewObjectID(), nil
	}
	return f.insert(book)
}

func (f *fakeBooks) UpdateBook(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Book, error) {
	f.calls++
	if f.update == nil {
		return nil, store.NotFound("book not found")
	}
	return f.update(id, set)
}

func (f *fakeBooks) DeleteBook(_ context.Context, id primitive.ObjectID) error {
	f.calls++
	if f.delete == nil {
		return nil
	}
	return f.delete(id)
}

type fakeUsers struct {
	calls int

	listUsers func(p store.ListParams) ([]models.User, int64, error)
	byID      func(id primitive.ObjectID) (*models.User, error)
	byEmail   func(email string, exclude primitive.ObjectID) (*models.User, error)
	insert    func(user *models.User) (primitive.ObjectID, error)
	update    func(id primitive.ObjectID, set bson.M) (*models.User, error)
	delete    func(id primitive.ObjectID) error
}

func (f *fakeUsers) ListUsers(_ context.Context, p store.ListParams) ([]models.User, int64, error) {
	f.calls++
	if f.listUsers == nil {
		return nil, 0, nil
	}
	return f.listUsers(p)
}

func (f *fakeUsers) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.calls++
	if f.byID == nil {
		return nil, store.NotFound("user not found")
	}
	return f.byID(id)
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string, exclude primitive.ObjectID) (*models.User, error) {
	f.calls++
	if f.byEmail == nil {
		return nil, nil
	}
	return f.byEmail(email, exclude)
}

func (f *fakeUsers) InsertUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	f.calls++
	if f.insert == nil {
		return primitive.NewObjectID(), nil
	}
	return f.insert(user)
}

func (f *fakeUsers) UpdateUser(_ context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	f.calls++
	if f.update == nil {
		return nil, store.NotFound("user not found")
	}
	return f.update(id, set)
}

func (f *fakeUsers) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	f.calls++
	if f.delete == nil {
		return nil
	}
	return f.delete(id)
}

type fakeLibraries struct {
	calls int

	list   func(p store.ListParams) ([]models.Library, int64, error)
	byID   func(id primitive.ObjectID) (*models.Library, error)
	insert func(library *models.Library) (primitive.ObjectID, error)
	update func(id primitive.ObjectID, set bson.M) (*models.Library, error)
	delete func(id primitive.ObjectID) error
}

func (f *fakeLibraries) ListLibraries(_ context.Context, p store.ListParams) ([]models.Library, int64, error) {
	f.calls++
	if f.list == nil {
		return nil, 0, nil
	}
	return f.list(p)
}

func (f *fakeLibraries) LibraryByID(_ context.Context, id primitive.ObjectID) (*models.Library, error) {
	f.calls++
	if f.byID == nil {
		return nil, store.NotFound("library not found")
	}
	return f.byID(id)
}

func (f *fakeLibraries) InsertLibrary(_ context.Context, library *models.Library) (primitive.ObjectID, error) {
	f.calls++
	if f.insert == nil {
		return primitive.NewObjectID(), nil
	}
	return f.insert(library)
}

func (f *fakeLibraries) UpdateLibrary(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Library, error) {
	f.calls++
	if f.update == nil {
		return nil, store.NotFound("library not found")
	}
	return f.update(id, set)
}

func (f *fakeLibraries) DeleteLibrary(_ context.Context, id primitive.ObjectID) error {
	f.calls++
	if f.delete == nil {
		return nil
	}
	return f.delete(id)
}

type fakeLoans struct {
	calls int

	list          func(p store.ListParams) ([]models.LoanView, int64, error)
	viewByID      func(id primitive.ObjectID) (*models.LoanView, error)
	forBook       func(bookID primitive.ObjectID) ([]models.LoanView, error)
	forUser       func(userID primitive.ObjectID) ([]models.LoanView, error)
	overdue       func(now time.Time) ([]models.LoanView, error)
	insert        func(loan *models.Loan) (primitive.ObjectID, error)
	update        func(id primitive.ObjectID, set bson.M) error
	returnLoan    func(id primitive.ObjectID) error
	delete        func(id primitive.ObjectID) error
	deleteForBook func(bookID primitive.ObjectID) (int64, error)
	activeBook    func(bookID primitive.ObjectID) (int64, error)
	activeUser    func(userID primitive.ObjectID) (int64, error)
	activeLibrary func(libraryID primitive.ObjectID) (int64, error)
}

func (f *fakeLoans) ListLoans(_ context.Context, p store.ListParams) ([]models.LoanView, int64, error) {
	f.calls++
	if f.list == nil {
		return nil, 0, nil
	}
	return f.list(p)
}

func (f *fakeLoans) LoanViewByID(_ context.Context, id primitive.ObjectID) (*models.LoanView, error) {
	f.calls++
	if f.viewByID == nil {
		return &models.LoanView{ID: id}, nil
	}
	return f.viewByID(id)
}

func (f *fakeLoans) LoansForBook(_ context.Context, bookID primitive.ObjectID) ([]models.LoanView, error) {
	f.calls++
	if f.forBook == nil {
		return nil, nil
	}
	return f.forBook(bookID)
}

func (f *fakeLoans) LoansForUser(_ context.Context, userID primitive.ObjectID) ([]models.LoanView, error) {
	f.calls++
	if f.forUser == nil {
		return nil, nil
	}
	return f.forUser(userID)
}

func (f *fakeLoans) OverdueLoans(_ context.Context, now time.Time) ([]models.LoanView, error) {
	f.calls++
	if f.overdue == nil {
		return nil, nil
	}
	return f.overdue(now)
}

func (f *fakeLoans) InsertLoan(_ context.Context, loan *models.Loan) (primitive.ObjectID, error) {
	f.calls++
	if f.insert == nil {
		return primitive.NewObjectID(), nil
	}
	return f.insert(loan)
}

func (f *fakeLoans) UpdateLoan(_ context.Context, id primitive.ObjectID, set bson.M) error {
	f.calls++
	if f.update == nil {
		return nil
	}
	return f.update(id, set)
}

func (f *fakeLoans) ReturnLoan(_ context.Context, id primitive.ObjectID) error {
	f.calls++
	if f.returnLoan == nil {
		return nil
	}
	return f.returnLoan(id)
}

func (f *fakeLoans) DeleteLoan(_ context.Context, id primitive.ObjectID) error {
	f.calls++
	if f.delete == nil {
		return nil
	}
	return f.delete(id)
}

func (f *fakeLoans) DeleteLoansForBook(_ context.Context, bookID primitive.ObjectID) (int64, error) {
	f.calls++
	if f.deleteForBook == nil {
		return 0, nil
	}
	return f.deleteForBook(bookID)
}

func (f *fakeLoans) CountActiveLoansForBook(_ context.Context, bookID primitive.ObjectID) (int64, error) {
	f.calls++
	if f.activeBook == nil {
		return 0, nil
	}
	return f.activeBook(bookID)
}

func (f *fakeLoans) CountActiveLoansForUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	f.calls++
	if f.activeUser == nil {
		return 0, nil
	}
	return f.activeUser(userID)
}

func (f *fakeLoans) CountActiveLoansForLibrary(_ context.Context, libraryID primitive.ObjectID) (int64, error) {
	f.calls++
	if f.activeLibrary == nil {
		return 0, nil
	}
	return f.activeLibrary(libraryID)
}

type fakeStats struct {
	calls int

	general    func() (*store.BookStats, error)
	byLanguage func(language string) (*store.LanguageStatsView, error)
	byType     func(bookType string) (*store.TypeStatsView, error)
}

func (f *fakeStats) BookStats(_ context.Context) (*store.BookStats, error) {
	f.calls++
	if f.general == nil {
		return &store.BookStats{}, nil
	}
	return f.general()
}

func (f *fakeStats) StatsByLanguage(_ context.Context, language string) (*store.LanguageStatsView, error) {
	f.calls++
	if f.byLanguage == nil {
		return &store.LanguageStatsView{Language: language}, nil
	}
	return f.byLanguage(language)
}

func (f *fakeStats) StatsByType(_ context.Context, bookType string) (*store.TypeStatsView, error) {
	f.calls++
	if f.byType == nil {
		return &store.TypeStatsView{Type: bookType}, nil
	}
	return f.byType(bookType)
}

// Interface conformance.
var (
	_ BookStore    = (*fakeBooks)(nil)
	_ UserStore    = (*fakeUsers)(nil)
	_ LibraryStore = (*fakeLibraries)(nil)
	_ LoanStore    = (*fakeLoans)(nil)
	_ StatsStore   = (*fakeStats)(nil)
)
