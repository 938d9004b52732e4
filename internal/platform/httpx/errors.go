// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("temporarily unavailable")
)

// problemTyper is implemented by domain errors carrying a stable code.
type problemTyper interface {
	ProblemType() string
}

// RespondError maps domain errors to HTTP responses using RFC7807. The
// problem type comes from the first error in the chain exposing ProblemType.
func RespondError(w http.ResponseWriter, err error) {
	problem := ProblemDetail{Type: problemType(err)}
	switch {
	case errors.Is(err, ErrNotFound):
		problem.Status, problem.Title = http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrValidation):
		problem.Status, problem.Title = http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, ErrUnauthorized):
		problem.Status, problem.Title = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, ErrUnavailable):
		problem.Status, problem.Title = http.StatusServiceUnavailable, "Service Unavailable"
	default:
		problem.Status, problem.Title = http.StatusInternalServerError, "Internal Error"
	}
	if problem.Status != http.StatusInternalServerError || problem.Type != "" {
		problem.Detail = err.Error()
	}
	writeProblem(w, problem)
}

func problemType(err error) string {
	var typed problemTyper
	if errors.As(err, &typed) {
		return typed.ProblemType()
	}
	return ""
}
