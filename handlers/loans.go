package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
	"github.com/maelcorre/bibliotheque/validation"
)

type LoansHandler struct {
	Loans     LoanStore
	Books     BookStore
	Users     UserStore
	Libraries LibraryStore
	Validate  *validation.Validator
	Logger    *zap.Logger

	// Now is swapped in tests; defaults to time.Now.
	Now func() time.Time
}

func (h *LoansHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// List handles GET /loans. notReturned=true overrides returned; overdue=true
// restricts to active loans past their due date.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	p := store.ParseListParams(qs, nil, store.LoanDefaultSort)

	if v := qs.Get("returned"); v != "" {
		p.Filter["returned"] = v == "true"
	}
	if qs.Get("notReturned") == "true" {
		p.Filter["returned"] = false
	}
	if qs.Get("overdue") == "true" {
		p.Filter["returnDate"] = bson.M{"$lt": h.now()}
		p.Filter["returned"] = false
	}

	loans, total, err := h.Loans.ListLoans(r.Context(), p)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondPage(w, h.Logger, loans, len(loans), total, p)
}

func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "loan")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	loan, err := h.Loans.LoanViewByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, loan)
}

// Create handles POST /loans. All three referenced entities must exist
// (checked concurrently, reported in book, user, library order) and the book
// must not be out on another active loan.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateLoanInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}
	if err := h.Validate.Validate(&in); err != nil {
		respondError(w, h.Logger, err)
		return
	}

	bookID, err1 := primitive.ObjectIDFromHex(in.Book)
	userID, err2 := primitive.ObjectIDFromHex(in.User)
	libraryID, err3 := primitive.ObjectIDFromHex(in.Library)
	if err1 != nil || err2 != nil || err3 != nil {
		respondError(w, h.Logger, store.Invalid("one or more ids are invalid"))
		return
	}

	var bookErr, userErr, libraryErr error
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		_, bookErr = h.Books.BookByID(ctx, bookID)
		return nil
	})
	g.Go(func() error {
		_, userErr = h.Users.UserByID(ctx, userID)
		return nil
	})
	g.Go(func() error {
		_, libraryErr = h.Libraries.LibraryByID(ctx, libraryID)
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{bookErr, userErr, libraryErr} {
		if err != nil {
			respondError(w, h.Logger, err)
			return
		}
	}

	activeLoans, err := h.Loans.CountActiveLoansForBook(r.Context(), bookID)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	if activeLoans > 0 {
		respondError(w, h.Logger, store.Conflict("this book is already on loan"))
		return
	}

	loanDate := h.now()
	returnDate := loanDate.Add(models.DefaultLoanPeriod)
	if in.ReturnDate != "" {
		returnDate, err = models.ParseDate(in.ReturnDate)
		if err != nil {
			respondError(w, h.Logger, store.Invalid("invalid returnDate: "+err.Error()))
			return
		}
	}

	id, err := h.Loans.InsertLoan(r.Context(), &models.Loan{
		Book:       bookID,
		User:       userID,
		Library:    libraryID,
		LoanDate:   loanDate,
		ReturnDate: returnDate,
		Returned:   false,
	})
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}

	view, err := h.Loans.LoanViewByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondMessage(w, h.Logger, http.StatusCreated, "loan created successfully", view)
}

// Update accepts partial {returned, returnDate}. This path carries no
// transition guard; only the dedicated return operation rejects double
// returns.
func (h *LoansHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "loan")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	var in models.UpdateLoanInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}

	set := bson.M{}
	if in.Returned != nil {
		set["returned"] = *in.Returned
	}
	if in.ReturnDate != nil {
		returnDate, err := models.ParseDate(*in.ReturnDate)
		if err != nil {
			respondError(w, h.Logger, store.Invalid("invalid returnDate: "+err.Error()))
			return
		}
		set["returnDate"] = returnDate
	}

	if len(set) > 0 {
		if err := h.Loans.UpdateLoan(r.Context(), id, set); err != nil {
			respondError(w, h.Logger, err)
			return
		}
	}

	view, err := h.Loans.LoanViewByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondMessage(w, h.Logger, http.StatusOK, "loan updated successfully", view)
}

// Return handles PATCH /loans/{id}/return. Returning an already-returned
// loan fails; returnDate keeps the original due date.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "loan")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	if err := h.Loans.ReturnLoan(r.Context(), id); err != nil {
		respondError(w, h.Logger, err)
		return
	}
	view, err := h.Loans.LoanViewByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondMessage(w, h.Logger, http.StatusOK, "book returned successfully", view)
}

func (h *LoansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "loan")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	if err := h.Loans.DeleteLoan(r.Context(), id); err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondMessage(w, h.Logger, http.StatusOK, "loan deleted successfully", nil)
}

// Overdue handles GET /loans/overdue/list: active loans past their due date,
// soonest overdue first, each annotated with whole days overdue.
func (h *LoansHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	loans, err := h.Loans.OverdueLoans(r.Context(), now)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}

	overdue := make([]models.OverdueLoan, len(loans))
	for i, loan := range loans {
		overdue[i] = models.OverdueLoan{
			LoanView:    loan,
			DaysOverdue: models.DaysOverdue(loan.ReturnDate, now),
		}
	}
	respondCollection(w, h.Logger, len(overdue), overdue)
}
