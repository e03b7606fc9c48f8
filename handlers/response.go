package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/store"
)

// Pagination echoes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the uniform response wrapper returned by every endpoint.
type Envelope struct {
	Success    bool              `json:"success"`
	Count      *int              `json:"count,omitempty"`
	Total      *int64            `json:"total,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
	Data       any               `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("encode response", zap.Error(err))
	}
}

func respondData(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data}, logger)
}

func respondMessage(w http.ResponseWriter, logger *zap.Logger, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data}, logger)
}

// respondCollection writes an unpaginated list response: {success, count, data}.
func respondCollection(w http.ResponseWriter, logger *zap.Logger, count int, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Count: &count, Data: data}, logger)
}

// respondPage writes a paginated list response with count, total and the
// pagination block.
func respondPage(w http.ResponseWriter, logger *zap.Logger, data any, count int, total int64, p store.ListParams) {
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Count:   &count,
		Total:   &total,
		Pagination: &Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages(total),
		},
		Data: data,
	}, logger)
}

// respondError maps domain errors to their wire status; anything else is an
// internal fault, logged and reported generically.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var domainErr *store.Error
	if errors.As(err, &domainErr) {
		writeJSON(w, domainErr.HTTPCode(), Envelope{
			Success: false,
			Message: domainErr.Message,
			Fields:  domainErr.Fields,
		}, logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", zap.Error(err))
	}
	writeJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "internal server error",
		Error:   err.Error(),
	}, logger)
}

// NotFoundRoute is mounted as the router's fallback for unmatched paths.
func NotFoundRoute(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{
			Success: false,
			Message: "route not found",
		}, logger)
	}
}
