package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/handler"
)

type testRequest struct {
	Name string
}

func bindName(name string) handler.Bind {
	return func(_ *http.Request, v any) error {
		v.(*testRequest).Name = name
		return nil
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var got handler.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("binders run in order", func(t *testing.T) {
		t.Parallel()
		h := handler.HandlerFunc[handler.Context, testRequest](func(ctx handler.Context, req testRequest) handler.Response {
			assert.NotNil(t, ctx.Request())
			return handler.JSON(map[string]string{"name": req.Name})
		})
		w := httptest.NewRecorder()
		handler.Wrap(h, handler.WithBinders[handler.Context, testRequest](bindName("a"), bindName("b"))).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"name": "b"}, decodeBody(t, w).Data)
	})

	t.Run("binder error goes to the error handler", func(t *testing.T) {
		t.Parallel()
		called := false
		h := handler.HandlerFunc[handler.Context, testRequest](func(handler.Context, testRequest) handler.Response {
			called = true
			return handler.JSON(nil)
		})
		failing := func(*http.Request, any) error { return handler.ErrBadRequest }

		var handled error
		w := httptest.NewRecorder()
		handler.Wrap(h,
			handler.WithBinders[handler.Context, testRequest](failing),
			handler.WithErrorHandler[handler.Context, testRequest](func(ctx handler.Context, err error) {
				handled = err
				ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
			}),
		).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.False(t, called)
		assert.ErrorIs(t, handled, handler.ErrBadRequest)
		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("nil response renders default error", func(t *testing.T) {
		t.Parallel()
		h := handler.HandlerFunc[handler.Context, testRequest](func(handler.Context, testRequest) handler.Response {
			return nil
		})
		w := httptest.NewRecorder()
		handler.Wrap(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		got := decodeBody(t, w)
		require.NotNil(t, got.Error)
		assert.Equal(t, "internal_error", got.Error.Code)
	})

	t.Run("context delegates to request context", func(t *testing.T) {
		t.Parallel()
		type key struct{}
		h := handler.HandlerFunc[handler.Context, testRequest](func(ctx handler.Context, _ testRequest) handler.Response {
			return handler.JSON(ctx.Value(key{}))
		})
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(context.WithValue(r.Context(), key{}, "v"))
		w := httptest.NewRecorder()
		handler.Wrap(h).ServeHTTP(w, r)
		assert.Equal(t, "v", decodeBody(t, w).Data)
	})
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("data with status and meta", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		err := handler.JSON(map[string]int{"n": 1},
			handler.WithJSONStatus(http.StatusCreated),
			handler.WithJSONMeta(map[string]any{"total": 1}),
		).Render(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, handler.JSONResponse{
			Data: map[string]any{"n": float64(1)},
			Meta: map[string]any{"total": float64(1)},
		}, decodeBody(t, w))
	})

	t.Run("error value", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		require.NoError(t, handler.JSON(handler.ErrNotFound).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, &handler.ErrorDetail{Code: "not_found", Message: "Not Found"}, decodeBody(t, w).Error)
	})
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    any
		opts   []handler.JSONOption
		status int
		detail *handler.ErrorDetail
	}{
		{
			name:   "http error",
			err:    handler.ErrUnauthorized,
			status: http.StatusUnauthorized,
			detail: &handler.ErrorDetail{Code: "unauthorized", Message: "Unauthorized"},
		},
		{
			name:   "wrapped http error",
			err:    fmt.Errorf("load plan: %w", handler.NewHTTPError(http.StatusNotFound, "no_active_subscription")),
			status: http.StatusNotFound,
			detail: &handler.ErrorDetail{Code: "no_active_subscription", Message: "Not Found"},
		},
		{
			name:   "plain error hides its text",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			detail: &handler.ErrorDetail{Code: "internal_error", Message: "Internal Server Error"},
		},
		{
			name:   "detail with status",
			err:    &handler.ErrorDetail{Code: "change_not_possible", Details: map[string][]string{"reasons": {"no"}}},
			opts:   []handler.JSONOption{handler.WithJSONStatus(http.StatusConflict)},
			status: http.StatusConflict,
			detail: &handler.ErrorDetail{Code: "change_not_possible", Details: map[string][]string{"reasons": {"no"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			require.NoError(t, handler.JSONError(tt.err, tt.opts...).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
			assert.Equal(t, tt.status, w.Code)
			got := decodeBody(t, w)
			assert.Nil(t, got.Data)
			assert.Equal(t, tt.detail, got.Error)
		})
	}
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	errDomain := errors.New("plan not found")
	var buf bytes.Buffer
	eh := handler.NewErrorHandler(slog.New(slog.NewJSONHandler(&buf, nil)), handler.ErrorHandlerConfig{
		MapError: func(err error) error {
			if errors.Is(err, errDomain) {
				return handler.ErrNotFound
			}
			return err
		},
	})

	t.Run("mapped client error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/plans/x", nil)
		eh(handler.NewContext(w, r), fmt.Errorf("get: %w", errDomain))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeBody(t, w).Error.Code)
		assert.Contains(t, buf.String(), `"level":"WARN"`)
		assert.Contains(t, buf.String(), `"path":"/plans/x"`)
	})

	t.Run("unmapped error", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		eh(handler.NewContext(w, httptest.NewRequest(http.MethodGet, "/", nil)), errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
		assert.Contains(t, buf.String(), `"status_code":500`)
	})
}

func TestClassifyError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, handler.ErrorInfo{StatusCode: http.StatusConflict, LogLevel: slog.LevelWarn}, handler.ClassifyError(handler.ErrConflict))
	assert.Equal(t, handler.ErrorInfo{StatusCode: http.StatusServiceUnavailable, LogLevel: slog.LevelError}, handler.ClassifyError(handler.ErrServiceUnavailable))
	assert.Equal(t, handler.ErrorInfo{StatusCode: http.StatusInternalServerError, LogLevel: slog.LevelError}, handler.ClassifyError(errors.New("x")))
}
