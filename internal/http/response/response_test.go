package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/store"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"status": "ok"}, discard())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "domain validation",
			err:     domainerrors.Validation("bad name"),
			status:  http.StatusBadRequest,
			code:    "VALIDATION_ERROR",
			message: "bad name",
		},
		{
			name:    "wrapped domain error",
			err:     errors.Join(errors.New("context"), domainerrors.Unauthorized("no token")),
			status:  http.StatusUnauthorized,
			code:    "UNAUTHORIZED",
			message: "no token",
		},
		{
			name:    "store not found",
			err:     store.ErrNotFound.WithCause(errors.New("no rows")),
			status:  http.StatusNotFound,
			code:    "NOT_FOUND",
			message: "resource not found",
		},
		{
			name:    "store conflict",
			err:     store.ErrConflict,
			status:  http.StatusConflict,
			code:    "CONFLICT",
			message: "concurrent modification",
		},
		{
			name:    "unknown",
			err:     errors.New("disk on fire"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL",
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, discard())

			assert.Equal(t, tt.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestHandleError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, domainerrors.ValidationWithDetails("validation failed", map[string]string{"name": "too long"}), discard())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"VALIDATION_ERROR","message":"validation failed","details":{"name":"too long"}}`, w.Body.String())
}

func TestTooManyRequests(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want string
	}{
		{0, "1"},
		{200 * time.Millisecond, "1"},
		{time.Second, "1"},
		{5500 * time.Millisecond, "6"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		TooManyRequests(w, tt.wait, discard())

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, tt.want, w.Header().Get("Retry-After"), "wait %s", tt.wait)
		assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)
	}
}

func TestFallbacks(t *testing.T) {
	w := httptest.NewRecorder()
	NotFound(w, "no such route", discard())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)

	w = httptest.NewRecorder()
	MethodNotAllowed(w, discard())
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	InternalError(w, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
