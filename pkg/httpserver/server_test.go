package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/pkg/httpserver"
)

func TestServer_Run(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := httpserver.New(httpserver.Config{ShutdownTimeout: time.Second},
		httpserver.WithListener(ln),
		httpserver.WithLogger(slog.New(slog.DiscardHandler)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		}))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "pong"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunInvalidAddr(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: "bad-address"}, httpserver.WithLogger(slog.New(slog.DiscardHandler)))
	err := srv.Run(context.Background(), http.NotFoundHandler())
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestHealthChecks(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.Liveness()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("readiness", func(t *testing.T) {
		t.Parallel()
		log := slog.New(slog.DiscardHandler)
		ok := func(context.Context) error { return nil }
		fail := func(context.Context) error { return errors.New("down") }

		tests := []struct {
			name   string
			checks map[string]httpserver.Check
			status int
			body   map[string]string
		}{
			{"all pass", map[string]httpserver.Check{"pg": ok, "redis": ok}, http.StatusOK, map[string]string{"pg": "ok", "redis": "ok"}},
			{"one fails", map[string]httpserver.Check{"pg": ok, "redis": fail}, http.StatusServiceUnavailable, map[string]string{"pg": "ok", "redis": "fail"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				rec := httptest.NewRecorder()
				httpserver.Readiness(log, time.Second, tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
				assert.Equal(t, tt.status, rec.Code)
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.body, body)
			})
		}
	})
}
