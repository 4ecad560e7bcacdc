// Package response writes JSON success and error bodies.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
)

// ErrorBody is the body written for a failed request.
type ErrorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// JSON writes v with the given status. NaN and infinite numbers are
// written as null.
func JSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	var unsupported *json.UnsupportedValueError
	if errors.As(err, &unsupported) {
		body, err = json.Marshal(finite(v))
	}
	if err != nil {
		Error(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// finite returns a copy of v with non-finite floats replaced by nil.
func finite(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = finite(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = finite(val)
		}
		return out
	}
	return v
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Error writes err as an ErrorBody with the status from StatusOf.
func Error(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	body, _ := json.Marshal(ErrorBody{Code: status, Error: err.Error()})

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// StatusOf returns the status carried by err. Deadline errors map to 504;
// everything else without a status is 500.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// StatusError attaches an HTTP status to an error.
type StatusError struct {
	Code int
	Err  error
}

// WithStatus wraps err with code.
func WithStatus(code int, err error) error {
	return &StatusError{Code: code, Err: err}
}

func (e *StatusError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }
