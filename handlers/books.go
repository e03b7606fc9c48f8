package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
	"github.com/maelcorre/bibliotheque/validation"
)

type BooksHandler struct {
	Books    BookStore
	Loans    LoanStore
	Validate *validation.Validator
	Logger   *zap.Logger
}

// List handles GET /books. A `query` parameter switches to full-text search
// and replaces every field filter.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	p := store.ParseListParams(qs, store.BookFilters, store.BookDefaultSort)
	p.TextQuery = strings.TrimSpace(qs.Get("query"))

	books, total, err := h.Books.ListBooks(r.Context(), p)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondPage(w, h.Logger, books, len(books), total, p)
}

// Search handles GET /books/search/query: relevance-ranked text search
// without pagination.
func (h *BooksHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respondError(w, h.Logger, store.Invalid("search query parameter is required"))
		return
	}
	books, err := h.Books.SearchBooks(r.Context(), query)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondCollection(w, h.Logger, len(books), books)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "book")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	book, err := h.Books.BookByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, book)
}

func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateBookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}
	if err := h.Validate.Validate(&in); err != nil {
		respondError(w, h.Logger, err)
		return
	}
	publishedDate, err := models.ParseDate(in.PublishedDate)
	if err != nil {
		respondError(w, h.Logger, store.Invalid("invalid publishedDate: "+err.Error()))
		return
	}

	book := in.Book(publishedDate)
	id, err := h.Books.InsertBook(r.Context(), book)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	book.ID = id
	respondData(w, h.Logger, http.StatusCreated, book)
}

func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "book")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	var in models.UpdateBookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}
	if err := h.Validate.Validate(&in); err != nil {
		respondError(w, h.Logger, err)
		return
	}

	set := bson.M{}
	setIfPresent(set, "title", in.Title)
	setIfPresent(set, "author", in.Author)
	setIfPresent(set, "publisher", in.Publisher)
	setIfPresent(set, "description", in.Description)
	setIfPresent(set, "types", in.Types)
	setIfPresent(set, "language", in.Language)
	if in.PublishedDate != nil {
		publishedDate, err := models.ParseDate(*in.PublishedDate)
		if err != nil {
			respondError(w, h.Logger, store.Invalid("invalid publishedDate: "+err.Error()))
			return
		}
		set["publishedDate"] = publishedDate
	}
	if in.ISBN != nil {
		set["isbn"] = *in.ISBN
	}
	if in.PageNumber != nil {
		set["pageNumber"] = *in.PageNumber
	}

	if len(set) == 0 {
		book, err := h.Books.BookByID(r.Context(), id)
		if err != nil {
			respondError(w, h.Logger, err)
			return
		}
		respondData(w, h.Logger, http.StatusOK, book)
		return
	}

	book, err := h.Books.UpdateBook(r.Context(), id, set)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, book)
}

// Delete handles DELETE /books/{id}: refused while active loans reference
// the book, otherwise the book and every loan record pointing at it go.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "book")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}

	activeLoans, err := h.Loans.CountActiveLoansForBook(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	if activeLoans > 0 {
		respondError(w, h.Logger, store.Conflict("cannot delete a book with active loans"))
		return
	}

	if err := h.Books.DeleteBook(r.Context(), id); err != nil {
		respondError(w, h.Logger, err)
		return
	}
	if _, err := h.Loans.DeleteLoansForBook(r.Context(), id); err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, map[string]any{})
}

func (h *BooksHandler) ByType(w http.ResponseWriter, r *http.Request) {
	bookType := chi.URLParam(r, "type")
	if !models.ValidBookType(bookType) {
		respondError(w, h.Logger, store.Invalid(
			"invalid book type, valid types are: "+strings.Join(models.BookTypes, ", ")))
		return
	}
	books, err := h.Books.BooksByType(r.Context(), bookType)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondCollection(w, h.Logger, len(books), books)
}

func (h *BooksHandler) ByLanguage(w http.ResponseWriter, r *http.Request) {
	language := chi.URLParam(r, "language")
	if !models.ValidLanguage(language) {
		respondError(w, h.Logger, store.Invalid(
			"invalid language, valid languages are: "+strings.Join(models.Languages, ", ")))
		return
	}
	books, err := h.Books.BooksByLanguage(r.Context(), language)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondCollection(w, h.Logger, len(books), books)
}

func (h *BooksHandler) ByISBN(w http.ResponseWriter, r *http.Request) {
	isbn, err := strconv.ParseInt(chi.URLParam(r, "isbn"), 10, 64)
	if err != nil {
		respondError(w, h.Logger, store.Invalid("ISBN must be a valid number"))
		return
	}
	book, err := h.Books.BookByISBN(r.Context(), isbn)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, book)
}

// BookLoans handles GET /books/{id}/loans with user and library expanded.
func (h *BooksHandler) BookLoans(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "book")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	loans, err := h.Loans.LoansForBook(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondCollection(w, h.Logger, len(loans), loans)
}

// AvailabilityResponse is returned by GET /books/{id}/availability.
type AvailabilityResponse struct {
	Book             AvailabilityBook `json:"book"`
	IsAvailable      bool             `json:"isAvailable"`
	ActiveLoansCount int64            `json:"activeLoansCount"`
}

type AvailabilityBook struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

func (h *BooksHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "book")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	book, err := h.Books.BookByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	activeLoans, err := h.Loans.CountActiveLoansForBook(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, AvailabilityResponse{
		Book: AvailabilityBook{
			ID:     book.ID.Hex(),
			Title:  book.Title,
			Author: book.Author,
		},
		IsAvailable:      activeLoans == 0,
		ActiveLoansCount: activeLoans,
	})
}

// setIfPresent copies a non-nil string field into the update document.
func setIfPresent(set bson.M, key string, value *string) {
	if value != nil {
		set[key] = *value
	}
}
