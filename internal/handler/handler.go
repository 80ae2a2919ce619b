// Package handler exposes the order engine over HTTP. Every route works on
// the engine of the authenticated owner.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/micaja/api/internal/middleware"
	"github.com/micaja/api/internal/order"
	"github.com/micaja/api/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EngineProvider resolves the engine of an owner.
// Satisfied by *session.Manager; narrow interface for testability.
type EngineProvider interface {
	Engine(ctx context.Context, owner uuid.UUID) (*order.Engine, error)
}

// base carries what every handler needs.
type base struct {
	sessions EngineProvider
	validate *validator.Validate
	log      zerolog.Logger
}

func newBase(sessions EngineProvider, log zerolog.Logger) base {
	return base{
		sessions: sessions,
		validate: newValidator(),
		log:      log.With().Str("component", "http").Logger(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// engine resolves the caller's engine or writes the error response.
func (b *base) engine(w http.ResponseWriter, r *http.Request) (*order.Engine, bool) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return nil, false
	}
	e, err := b.sessions.Engine(r.Context(), owner)
	if err != nil {
		b.writeError(w, r, err)
		return nil, false
	}
	return e, true
}

// decode reads a JSON body into dst and runs its validate tags.
func (b *base) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := b.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// writeError maps engine errors to HTTP statuses.
func (b *base) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		b.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	msg := err.Error()
	switch status {
	case http.StatusBadGateway:
		msg = "could not save the change, please retry"
	case http.StatusServiceUnavailable:
		msg = "service is shutting down"
	case http.StatusInternalServerError:
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrReentrancyRejected):
		return http.StatusAccepted
	case errors.Is(err, order.ErrTableNotFound), errors.Is(err, order.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrTableExists), order.IsInvariant(err):
		return http.StatusConflict
	case order.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrClosed), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case order.IsPersistence(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// pathParam returns a URL parameter with percent-escapes decoded, so table
// names may hold spaces and slashes.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode JSON response")
	}
}
