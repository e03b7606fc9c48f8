package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
	"github.com/maelcorre/bibliotheque/validation"
)

type UsersHandler struct {
	Users    UserStore
	Loans    LoanStore
	Validate *validation.Validator
	Logger   *zap.Logger
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	p := store.ParseListParams(r.URL.Query(), store.UserFilters, store.UserDefaultSort)
	users, total, err := h.Users.ListUsers(r.Context(), p)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondPage(w, h.Logger, users, len(users), total, p)
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "user")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	user, err := h.Users.UserByID(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, user)
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}
	in.Normalize()
	if err := h.Validate.Validate(&in); err != nil {
		respondError(w, h.Logger, err)
		return
	}

	// Friendly uniqueness pre-check; the unique email index is the backstop
	// under concurrent creates.
	if in.Email != "" {
		existing, err := h.Users.UserByEmail(r.Context(), in.Email, primitive.NilObjectID)
		if err != nil {
			respondError(w, h.Logger, err)
			return
		}
		if existing != nil {
			respondError(w, h.Logger, store.Conflict("a user with this email already exists"))
			return
		}
	}

	user := in.User(time.Now())
	id, err := h.Users.InsertUser(r.Context(), user)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	user.ID = id
	respondMessage(w, h.Logger, http.StatusCreated, "user created successfully", user)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "user")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	var in models.UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.Logger, store.Invalid("invalid JSON body"))
		return
	}
	if err := h.Validate.Validate(&in); err != nil {
		respondError(w, h.Logger, err)
		return
	}

	if in.Email != nil && *in.Email != "" {
		existing, err := h.Users.UserByEmail(r.Context(), *in.Email, id)
		if err != nil {
			respondError(w, h.Logger, err)
			return
		}
		if existing != nil {
			respondError(w, h.Logger, store.Conflict("another user with this email already exists"))
			return
		}
	}

	set := bson.M{}
	setIfPresent(set, "firstName", in.FirstName)
	setIfPresent(set, "lastName", in.LastName)
	setIfPresent(set, "email", in.Email)
	setIfPresent(set, "phone", in.Phone)

	if len(set) == 0 {
		user, err := h.Users.UserByID(r.Context(), id)
		if err != nil {
			respondError(w, h.Logger, err)
			return
		}
		respondData(w, h.Logger, http.StatusOK, user)
		return
	}

	user, err := h.Users.UpdateUser(r.Context(), id, set)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondMessage(w, h.Logger, http.StatusOK, "user updated successfully", user)
}

// Delete refuses to remove a user still holding active loans.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "user")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}

	activeLoans, err := h.Loans.CountActiveLoansForUser(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	if activeLoans > 0 {
		respondError(w, h.Logger, store.Conflict("cannot delete a user with active loans"))
		return
	}

	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondMessage(w, h.Logger, http.StatusOK, "user deleted successfully", nil)
}

// UserLoans handles GET /users/{id}/loans with book and library expanded,
// most recent loan first.
func (h *UsersHandler) UserLoans(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id", "user")
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	loans, err := h.Loans.LoansForUser(r.Context(), id)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondCollection(w, h.Logger, len(loans), loans)
}
