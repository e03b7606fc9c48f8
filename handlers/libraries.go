package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
	"github.com/maelcorre/bibliotheque/validation"
)

type LibrariesHandler struct {
	Libraries LibraryStore
	Loans     LoanStore
	Validate  *validation.Validator
	Logger    *zap.Logger
}

func (h *LibrariesHandler) List(w http.ResponseWriter, r *http.Request) {
	p := store.ParseListParams(r.URL.Query(), store.LibraryFilters, store.LibraryDefaultSort)
	libraries, total, err := h.Libraries.ListLibraries(r.Context(), p)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondPage(w, h.Logger, libraries, len(libraries), total, p)
}

func (h *LibrariesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "library")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	library, err := h.Libraries.LibraryByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, library)
}

func (h *LibrariesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateLibraryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}
	if err := h.Validate.Validate(&in); err != nil {
		respondError(w, h.Logger, err)
		return
	}

	library := in.Library()
	id, err := h.Libraries.InsertLibrary(r.Context(), library)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	library.ID = id
	respondData(w, h.Logger, http.StatusCreated, library)
}

func (h *LibrariesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "library")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	var in models.UpdateLibraryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}
	if err := h.Validate.Validate(&in); err != nil {
		respondError(w, h.Logger, err)
		return
	}

	set := bson.M{}
	setIfPresent(set, "name", in.Name)
	setIfPresent(set, "localisation", in.Localisation)

	if len(set) == 0 {
		library, err := h.Libraries.LibraryByID(r.Context(), id)
		if err != nil {
			respondError(w, h.Logger, err)
			return
		}
		respondData(w, h.Logger, http.StatusOK, library)
		return
	}

	library, err := h.Libraries.UpdateLibrary(r.Context(), id, set)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, library)
}

// Delete refuses to remove a library that still has active loans, keeping
// the referential-integrity rule uniform across books, users and libraries.
func (h *LibrariesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "library")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}

	activeLoans, err := h.Loans.CountActiveLoansForLibrary(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	if activeLoans > 0 {
		respondError(w, h.Logger, store.Conflict("cannot delete a library with active loans"))
		return
	}

	if err := h.Libraries.DeleteLibrary(r.Context(), id); err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondMessage(w, h.Logger, http.StatusOK, "library deleted successfully", nil)
}
