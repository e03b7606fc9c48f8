package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
	"github.com/maelcorre/bibliotheque/validation"
)

func newBooksRouter(h *BooksHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/books", h.List)
	r.Post("/books", h.Create)
	r.Get("/books/search/query", h.Search)
	r.Get("/books/type/{type}", h.ByType)
	r.Get("/books/language/{language}", h.ByLanguage)
	r.Get("/books/isbn/{isbn}", h.ByISBN)
	r.Get("/books/{id}", h.Get)
	r.Put("/books/{id}", h.Update)
	r.Delete("/books/{id}", h.Delete)
	r.Get("/books/{id}/loans", h.BookLoans)
	r.Get("/books/{id}/availability", h.Availability)
	return r
}

func newBooksHandler(books *fakeBooks, loans *fakeLoans) *BooksHandler {
	return &BooksHandler{
		Books:    books,
		Loans:    loans,
		Validate: validation.New(),
		Logger:   zap.NewNop(),
	}
}

func doRequest(t *testing.T, r chi.Router, method, target, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestBooksList_Paginated(t *testing.T) {
	books := &fakeBooks{
		listBooks: func(p store.ListParams) ([]models.Book, int64, error) {
			assert.Equal(t, 2, p.Page)
			assert.Equal(t, 5, p.Limit)
			assert.Equal(t, primitive.Regex{Pattern: "rowling", Options: "i"}, p.Filter["author"])
			return []models.Book{{Title: "a"}, {Title: "b"}}, 12, nil
		},
	}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/books?page=2&limit=5&author=rowling", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	require.NotNil(t, env.Count)
	assert.Equal(t, 2, *env.Count)
	require.NotNil(t, env.Total)
	assert.Equal(t, int64(12), *env.Total)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 5, env.Pagination.Limit)
	assert.Equal(t, 3, env.Pagination.TotalPages)
}

func TestBooksList_TextQuery(t *testing.T) {
	books := &fakeBooks{
		listBooks: func(p store.ListParams) ([]models.Book, int64, error) {
			assert.Equal(t, "harry potter", p.TextQuery)
			return nil, 0, nil
		},
	}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, _ := doRequest(t, r, http.MethodGet, "/books?query=harry+potter", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, books.calls)
}

func TestBooksSearch_RequiresQuery(t *testing.T) {
	books := &fakeBooks{}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/books/search/query", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "search query parameter is required", env.Message)
	assert.Zero(t, books.calls, "storage must not be hit without a query")
}

func TestBooksGet_InvalidID(t *testing.T) {
	books := &fakeBooks{}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/books/not-a-hex-id", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid book id", env.Message)
	assert.Zero(t, books.calls)
}

func TestBooksGet_NotFound(t *testing.T) {
	books := &fakeBooks{
		byID: func(primitive.ObjectID) (*models.Book, error) {
			return nil, store.NotFound("book not found")
		},
	}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/books/"+primitive.NewObjectID().Hex(), "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "book not found", env.Message)
}

func TestBooksCreate(t *testing.T) {
	id := primitive.NewObjectID()
	books := &fakeBooks{
		insert: func(book *models.Book) (primitive.ObjectID, error) {
			assert.Equal(t, "Dune", book.Title)
			assert.Equal(t, "fr", book.Language, "language defaults to fr")
			assert.Equal(t, 1965, book.PublishedDate.Year())
			return id, nil
		},
	}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	body := `{"title":"Dune","author":"Frank Herbert","types":"SF","publishedDate":"1965-08-01"}`
	rec, env := doRequest(t, r, http.MethodPost, "/books", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id.Hex(), data["id"])
}

func TestBooksCreate_ValidationFailure(t *testing.T) {
	books := &fakeBooks{}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	body := `{"author":"Frank Herbert","types":"Western","publishedDate":"1965-08-01"}`
	rec, env := doRequest(t, r, http.MethodPost, "/books", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Fields, "title")
	assert.Contains(t, env.Fields, "types")
	assert.Zero(t, books.calls, "invalid input must not reach storage")
}

func TestBooksCreate_BadDate(t *testing.T) {
	books := &fakeBooks{}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	body := `{"title":"Dune","author":"Frank Herbert","publishedDate":"last tuesday"}`
	rec, env := doRequest(t, r, http.MethodPost, "/books", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "invalid publishedDate")
	assert.Zero(t, books.calls)
}

func TestBooksUpdate_PartialSet(t *testing.T) {
	books := &fakeBooks{
		update: func(_ primitive.ObjectID, set bson.M) (*models.Book, error) {
			assert.Equal(t, bson.M{"title": "Dune Messiah", "pageNumber": 412}, set)
			return &models.Book{Title: "Dune Messiah", PageNumber: 412}, nil
		},
	}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	body := `{"title":"Dune Messiah","pageNumber":412}`
	rec, env := doRequest(t, r, http.MethodPut, "/books/"+primitive.NewObjectID().Hex(), body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestBooksUpdate_EmptyBodyFetches(t *testing.T) {
	fetched := false
	books := &fakeBooks{
		byID: func(primitive.ObjectID) (*models.Book, error) {
			fetched = true
			return &models.Book{Title: "unchanged"}, nil
		},
		update: func(primitive.ObjectID, bson.M) (*models.Book, error) {
			t.Fatal("update must not run for an empty change set")
			return nil, nil
		},
	}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, _ := doRequest(t, r, http.MethodPut, "/books/"+primitive.NewObjectID().Hex(), `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fetched)
}

func TestBooksDelete_ActiveLoanGuard(t *testing.T) {
	books := &fakeBooks{}
	loans := &fakeLoans{
		activeBook: func(primitive.ObjectID) (int64, error) { return 1, nil },
	}
	r := newBooksRouter(newBooksHandler(books, loans))

	rec, env := doRequest(t, r, http.MethodDelete, "/books/"+primitive.NewObjectID().Hex(), "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot delete a book with active loans", env.Message)
	assert.Zero(t, books.calls, "the book must survive the refused delete")
}

func TestBooksDelete_CascadesLoanHistory(t *testing.T) {
	id := primitive.NewObjectID()
	deletedBook := false
	var cascaded primitive.ObjectID
	books := &fakeBooks{
		delete: func(got primitive.ObjectID) error {
			assert.Equal(t, id, got)
			deletedBook = true
			return nil
		},
	}
	loans := &fakeLoans{
		deleteForBook: func(bookID primitive.ObjectID) (int64, error) {
			cascaded = bookID
			return 3, nil
		},
	}
	r := newBooksRouter(newBooksHandler(books, loans))

	rec, env := doRequest(t, r, http.MethodDelete, "/books/"+id.Hex(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.True(t, deletedBook)
	assert.Equal(t, id, cascaded)
}

func TestBooksByType_RejectsUnknownType(t *testing.T) {
	books := &fakeBooks{}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/books/type/Western", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid book type, valid types are: Fantaisie, Policier, SF", env.Message)
	assert.Zero(t, books.calls)
}

func TestBooksByLanguage(t *testing.T) {
	books := &fakeBooks{
		byLanguage: func(language string) ([]models.Book, error) {
			assert.Equal(t, "en", language)
			return []models.Book{{Title: "a"}}, nil
		},
	}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/books/language/en", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
}

func TestBooksByISBN_NotNumeric(t *testing.T) {
	books := &fakeBooks{}
	r := newBooksRouter(newBooksHandler(books, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/books/isbn/ninety-nine", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ISBN must be a valid number", env.Message)
	assert.Zero(t, books.calls)
}

func TestBooksAvailability(t *testing.T) {
	id := primitive.NewObjectID()
	books := &fakeBooks{
		byID: func(primitive.ObjectID) (*models.Book, error) {
			return &models.Book{ID: id, Title: "Dune", Author: "Frank Herbert"}, nil
		},
	}
	loans := &fakeLoans{
		activeBook: func(primitive.ObjectID) (int64, error) { return 1, nil },
	}
	r := newBooksRouter(newBooksHandler(books, loans))

	rec, env := doRequest(t, r, http.MethodGet, "/books/"+id.Hex()+"/availability", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["isAvailable"])
	assert.Equal(t, float64(1), data["activeLoansCount"])
	book, ok := data["book"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id.Hex(), book["id"])
	assert.Equal(t, "Dune", book["title"])
}
