package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nhle/buildfast/internal/apperr"
	"github.com/nhle/buildfast/internal/session"
)

const maxBodyBytes = 1 << 20

// writeJSON sends payload with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDomainError is the single place errors become HTTP responses.
// notFound is the message used when err wraps store.ErrNotFound.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	ae := apperr.From(err, notFound)

	switch ae.Kind {
	case apperr.KindValidation:
		writeJSON(w, ae.Status(), map[string]any{"error": ae.Issues})
		return
	case apperr.KindInternal:
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, ae.Status(), map[string]string{"error": ae.Message})
}

// decodeJSON reads a size-limited JSON body into dest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(apperr.Issue{Code: "invalid_type", Path: []any{}, Message: "Request body is required"})
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation(apperr.Issue{Code: "too_big", Path: []any{}, Message: "Request body is too large"})
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperr.Invalid(typeErr.Field, "invalid_type", "Expected "+typeErr.Type.String())
		}
		return apperr.Validation(apperr.Issue{Code: "invalid_type", Path: []any{}, Message: "Invalid JSON body"})
	}
	return nil
}

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, param, label string) (int64, error) {
	return parseID(chi.URLParam(r, param), param, label)
}

// queryID parses a required numeric query parameter.
func queryID(r *http.Request, param, label string) (int64, error) {
	raw := r.URL.Query().Get(param)
	if strings.TrimSpace(raw) == "" {
		return 0, apperr.Invalid(param, "invalid_type", label+" ID is required")
	}
	return parseID(raw, param, label)
}

func parseID(raw, field, label string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(field, "invalid_type", "Invalid "+strings.ToLower(label)+" ID")
	}
	return id, nil
}

// currentUser returns the id placed in the context by session.Require.
func currentUser(r *http.Request) string {
	id, _ := session.UserIDFrom(r.Context())
	return id
}
