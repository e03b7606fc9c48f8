package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
)

type StatsHandler struct {
	Stats  StatsStore
	Logger *zap.Logger
}

// General handles GET /book-stats.
func (h *StatsHandler) General(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.BookStats(r.Context())
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, stats)
}

// ByLanguage handles GET /book-stats/language/{language}.
func (h *StatsHandler) ByLanguage(w http.ResponseWriter, r *http.Request) {
	language := chi.URLParam(r, "language")
	if !models.ValidLanguage(language) {
		respondError(w, h.Logger, store.Invalid(
			"invalid language, valid languages are: "+strings.Join(models.Languages, ", ")))
		return
	}
	stats, err := h.Stats.StatsByLanguage(r.Context(), language)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, stats)
}

// ByType handles GET /book-stats/type/{type}.
func (h *StatsHandler) ByType(w http.ResponseWriter, r *http.Request) {
	bookType := chi.URLParam(r, "type")
	if !models.ValidBookType(bookType) {
		respondError(w, h.Logger, store.Invalid(
			"invalid book type, valid types are: "+strings.Join(models.BookTypes, ", ")))
		return
	}
	stats, err := h.Stats.StatsByType(r.Context(), bookType)
	if err != nil {
		respondError(w, h.Logger, err)
		return
	}
	respondData(w, h.Logger, http.StatusOK, stats)
}
