package handlers

import (
	"net/http"
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

func newUsersRouter(h *UsersHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/users", h.List)
	r.Post("/users", h.Create)
	r.Get("/users/{id}", h.Get)
	r.Put("/users/{id}", h.Update)
	r.Delete("/users/{id}", h.Delete)
	r.Get("/users/{id}/loans", h.UserLoans)
	return r
}

func newUsersHandler(users *fakeUsers, loans *fakeLoans) *UsersHandler {
	return &UsersHandler{
		Users:    users,
		Loans:    loans,
		Validate: validation.New(),
		Logger:   zap.NewNop(),
	}
}

func TestUsersCreate_TrimsAndDefaults(t *testing.T) {
	var inserted *models.User
	users := &fakeUsers{
		insert: func(user *models.User) (primitive.ObjectID, error) {
			inserted = user
			return primitive.NewObjectID(), nil
		},
	}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	body := `{"firstName":"  Marie ","lastName":" Curie","email":" marie@example.org "}`
	rec, env := doRequest(t, r, http.MethodPost, "/users", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user created successfully", env.Message)
	require.NotNil(t, inserted)
	assert.Equal(t, "Marie", inserted.FirstName)
	assert.Equal(t, "Curie", inserted.LastName)
	assert.Equal(t, "marie@example.org", inserted.Email)
	assert.False(t, inserted.MembershipDate.IsZero())
}

func TestUsersCreate_ShortName(t *testing.T) {
	users := &fakeUsers{}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodPost, "/users", `{"firstName":"M","lastName":"Curie"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Fields, "firstName")
	assert.Zero(t, users.calls)
}

func TestUsersCreate_DuplicateEmail(t *testing.T) {
	inserted := false
	users := &fakeUsers{
		byEmail: func(email string, exclude primitive.ObjectID) (*models.User, error) {
			assert.Equal(t, "marie@example.org", email)
			assert.True(t, exclude.IsZero())
			return &models.User{Email: email}, nil
		},
		insert: func(*models.User) (primitive.ObjectID, error) {
			inserted = true
			return primitive.NewObjectID(), nil
		},
	}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	body := `{"firstName":"Marie","lastName":"Curie","email":"marie@example.org"}`
	rec, env := doRequest(t, r, http.MethodPost, "/users", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "a user with this email already exists", env.Message)
	assert.False(t, inserted)
}

func TestUsersCreate_NoEmailSkipsUniquenessCheck(t *testing.T) {
	checked := false
	users := &fakeUsers{
		byEmail: func(string, primitive.ObjectID) (*models.User, error) {
			checked = true
			return nil, nil
		},
	}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	rec, _ := doRequest(t, r, http.MethodPost, "/users", `{"firstName":"Marie","lastName":"Curie"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, checked, "email uniqueness is only checked when an email is supplied")
}

func TestUsersUpdate_EmailCheckExcludesSelf(t *testing.T) {
	id := primitive.NewObjectID()
	users := &fakeUsers{
		byEmail: func(email string, exclude primitive.ObjectID) (*models.User, error) {
			assert.Equal(t, id, exclude, "the user's own record must not count as a duplicate")
			return nil, nil
		},
		update: func(_ primitive.ObjectID, set bson.M) (*models.User, error) {
			assert.Equal(t, bson.M{"email": "new@example.org"}, set)
			return &models.User{ID: id, Email: "new@example.org"}, nil
		},
	}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodPut, "/users/"+id.Hex(), `{"email":"new@example.org"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user updated successfully", env.Message)
}

func TestUsersUpdate_EmailTaken(t *testing.T) {
	users := &fakeUsers{
		byEmail: func(string, primitive.ObjectID) (*models.User, error) {
			return &models.User{}, nil
		},
	}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodPut, "/users/"+primitive.NewObjectID().Hex(), `{"email":"taken@example.org"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "another user with this email already exists", env.Message)
}

func TestUsersDelete_ActiveLoanGuard(t *testing.T) {
	users := &fakeUsers{}
	loans := &fakeLoans{
		activeUser: func(primitive.ObjectID) (int64, error) { return 2, nil },
	}
	r := newUsersRouter(newUsersHandler(users, loans))

	rec, env := doRequest(t, r, http.MethodDelete, "/users/"+primitive.NewObjectID().Hex(), "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot delete a user with active loans", env.Message)
	assert.Zero(t, users.calls)
}

func TestUsersDelete(t *testing.T) {
	users := &fakeUsers{}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodDelete, "/users/"+primitive.NewObjectID().Hex(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user deleted successfully", env.Message)
}

func TestUsersGet_NotFound(t *testing.T) {
	users := &fakeUsers{
		byID: func(primitive.ObjectID) (*models.User, error) {
			return nil, store.NotFound("user not found")
		},
	}
	r := newUsersRouter(newUsersHandler(users, &fakeLoans{}))

	rec, env := doRequest(t, r, http.MethodGet, "/users/"+primitive.NewObjectID().Hex(), "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user not found", env.Message)
}

func TestUserLoans(t *testing.T) {
	id := primitive.NewObjectID()
	loans := &fakeLoans{
		forUser: func(userID primitive.ObjectID) ([]models.LoanView, error) {
			assert.Equal(t, id, userID)
			return []models.LoanView{{}, {}}, nil
		},
	}
	r := newUsersRouter(newUsersHandler(&fakeUsers{}, loans))

	rec, env := doRequest(t, r, http.MethodGet, "/users/"+id.Hex()+"/loans", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 2, *env.Count)
}
