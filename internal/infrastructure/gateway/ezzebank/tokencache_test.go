package ezzebank

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newTokenServer serves /oauth/token and counts exchanges.
func newTokenServer(t *testing.T, expiresIn int64, status int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			http.NotFound(w, r)
			return
		}
		n := calls.Add(1)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"message":"invalid client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":%d}`, n, expiresIn)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenCache(t *testing.T) {
	ctx := context.Background()

	t.Run("sequential calls within validity reuse one exchange", func(t *testing.T) {
		srv, calls := newTokenServer(t, 3600, http.StatusOK)
		tc := NewTokenCache(srv.Client(), srv.URL, "client-id", "client-secret", testLogger())

		first, err := tc.GetToken(ctx)
		require.NoError(t, err)
		second, err := tc.GetToken(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("concurrent callers trigger a single exchange", func(t *testing.T) {
		srv, calls := newTokenServer(t, 3600, http.StatusOK)
		tc := NewTokenCache(srv.Client(), srv.URL, "client-id", "client-secret", testLogger())

		const callers = 20
		tokens := make([]string, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				token, err := tc.GetToken(ctx)
				assert.NoError(t, err)
				tokens[i] = token
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int64(1), calls.Load())
		for _, token := range tokens {
			assert.Equal(t, tokens[0], token)
		}
	})

	t.Run("invalidate forces a fresh exchange", func(t *testing.T) {
		srv, calls := newTokenServer(t, 3600, http.StatusOK)
		tc := NewTokenCache(srv.Client(), srv.URL, "client-id", "client-secret", testLogger())

		first, err := tc.GetToken(ctx)
		require.NoError(t, err)
		tc.Invalidate()
		second, err := tc.GetToken(ctx)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("rejected exchange fails and caches nothing", func(t *testing.T) {
		srv, calls := newTokenServer(t, 0, http.StatusUnauthorized)
		tc := NewTokenCache(srv.Client(), srv.URL, "client-id", "client-secret", testLogger())

		_, err := tc.GetToken(ctx)
		require.Error(t, err)
		appErr := errors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrorTypeGatewayAuth, appErr.Type)
		assert.Equal(t, http.StatusUnauthorized, appErr.GatewayStatus)

		// The failure is not cached either; the next call tries again.
		_, err = tc.GetToken(ctx)
		require.Error(t, err)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("malformed response fails the exchange", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"access_token":""}`)
		}))
		t.Cleanup(srv.Close)
		tc := NewTokenCache(srv.Client(), srv.URL, "client-id", "client-secret", testLogger())

		_, err := tc.GetToken(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsGatewayError(err))
	})
}
