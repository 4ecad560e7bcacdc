package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type teapot struct{}

func (teapot) Error() string   { return "short and stout" }
func (teapot) StatusCode() int { return http.StatusTeapot }

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]any{"id": 1})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"carried status", teapot{}, http.StatusTeapot},
		{"wrapped status", fmt.Errorf("fetch: %w", teapot{}), http.StatusTeapot},
		{"with status", WithStatus(http.StatusBadRequest, errors.New("bad id")), http.StatusBadRequest},
		{"deadline", fmt.Errorf("upstream: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"out of range status", WithStatus(200, errors.New("odd")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Code)
			assert.Equal(t, tt.err.Error(), body.Error)
		})
	}
}

func TestJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]any{"fn": func() {}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestJSON_NonFiniteNumbers(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, []any{
		map[string]any{"price": math.NaN(), "qty": 2},
		map[string]any{"price": math.Inf(1), "tags": []any{math.Inf(-1), "a"}},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"price":null,"qty":2},{"price":null,"tags":[null,"a"]}]`, rec.Body.String())
}
