// Package handler serves the JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/pixelquest/internal/resolution"
)

var validate = newValidator()

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

// errBadRequest marks decode and validation failures.
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

// decodeJSON reads r's body into v and validates it. An empty body is
// allowed when allowEmpty is set and leaves v at its zero value.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		err = nil
	}
	if err != nil {
		return errBadRequest{"invalid JSON"}
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return errBadRequest{describe(verrs)}
		}
		return err
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be a date in YYYY-MM-DD form", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// parseIDParam returns the {id} path value if it is a UUID.
func parseIDParam(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if err := validate.Var(id, "required,uuid"); err != nil {
		return "", errBadRequest{"invalid id"}
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps err onto a status code: bad input 400, missing 404,
// anything else 500 with the detail logged rather than returned.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	var br errBadRequest
	switch {
	case errors.As(err, &br):
		writeMessage(w, http.StatusBadRequest, br.msg)
	case resolution.IsValidation(err):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, resolution.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "resolution not found")
	case errors.Is(err, resolution.ErrUnknownUser):
		writeMessage(w, http.StatusNotFound, "user not found")
	default:
		logger.Error("request failed", "action", action, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to "+action)
	}
}
