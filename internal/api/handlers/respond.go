package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/api/middleware"
	"github.com/reelwork/marketplace/internal/api/types"
	"github.com/reelwork/marketplace/internal/api/validators"
	"github.com/reelwork/marketplace/pkg/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status. 5xx details are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := types.FromError(err)
	if status >= http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// decodeAndValidate reads a JSON body into req and validates it, writing the
// 400 itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeErrorStr(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			writeErrorStr(w, http.StatusBadRequest, "Request body is required")
		default:
			writeErrorStr(w, http.StatusBadRequest, "Invalid JSON")
		}
		return false
	}
	if msg := validators.Validate(req); msg != "" {
		writeErrorStr(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, msg)
		return uuid.Nil, false
	}
	return id, true
}

// caller returns the authenticated principal or writes 401.
func caller(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeErrorStr(w, http.StatusUnauthorized, "Unauthorized")
	}
	return p, ok
}
