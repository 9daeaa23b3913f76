package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/litespace/availability/libs/httpx"
	"github.com/litespace/availability/libs/timex"
	"github.com/litespace/availability/services/availability-service/internal/rules"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
	"github.com/litespace/availability/services/availability-service/internal/slots"
)

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidRule),
		errors.Is(err, schedule.ErrInvalidWindow),
		errors.Is(err, schedule.ErrInvalidNotice),
		errors.Is(err, timex.ErrInvalidInstant),
		errors.Is(err, slots.ErrInvalidLesson):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rules.ErrOverlap), errors.Is(err, rules.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, rules.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, rules.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "rule not found")
	default:
		logger.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeValidationError reports failed struct tags per json field.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	httpx.WriteErrorDetails(w, http.StatusBadRequest, "validation failed", details)
}

// newValidator reports json names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
