// Copyright (c) 2026 FileMyTax. All rights reserved.

package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	staleToken = "stale-token"
	freshToken = "fresh-token"
)

// newSessionServer returns a test server whose protected endpoint only
// accepts freshToken, plus counters for profile and refresh hits.
func newSessionServer(t *testing.T, refreshStatus int, refreshDelay time.Duration) (*httptest.Server, *atomic.Int64, *atomic.Int64) {
	t.Helper()

	var profileHits, refreshHits atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", func(writer http.ResponseWriter, request *http.Request) {
		profileHits.Add(1)
		if request.Header.Get("Authorization") != "Bearer "+freshToken {
			writer.WriteHeader(http.StatusUnauthorized)
			_, _ = writer.Write([]byte(`{"error":"Invalid or expired token","code":"TOKEN_EXPIRED"}`))
			return
		}
		_, _ = writer.Write([]byte(`{"email":"jo@example.com","hasPassword":true}`))
	})
	mux.HandleFunc("POST /api/auth/refresh", func(writer http.ResponseWriter, request *http.Request) {
		refreshHits.Add(1)
		time.Sleep(refreshDelay)
		if refreshStatus != http.StatusOK {
			writer.WriteHeader(refreshStatus)
			_, _ = writer.Write([]byte(`{"error":"Invalid or expired refresh token"}`))
			return
		}
		_, _ = writer.Write([]byte(`{"accessToken":"` + freshToken + `"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, &profileHits, &refreshHits
}

func TestRefreshAndRetry(t *testing.T) {
	server, profileHits, refreshHits := newSessionServer(t, http.StatusOK, 0)

	client, err := New(server.URL)
	require.NoError(t, err)
	client.SetAccessToken(staleToken)

	var profile struct {
		Email string `json:"email"`
	}
	err = client.Get(context.Background(), "/api/auth/me", &profile)

	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", profile.Email)
	assert.Equal(t, freshToken, client.AccessToken())
	assert.EqualValues(t, 2, profileHits.Load(), "expected the original attempt plus one retry")
	assert.EqualValues(t, 1, refreshHits.Load())
}

func TestConcurrentRefreshCoalesces(t *testing.T) {
	const callers = 6

	server, profileHits, refreshHits := newSessionServer(t, http.StatusOK, 150*time.Millisecond)

	client, err := New(server.URL)
	require.NoError(t, err)
	client.SetAccessToken(staleToken)

	start := make(chan struct{})
	errs := make([]error, callers)

	var waitGroup sync.WaitGroup
	for i := 0; i < callers; i++ {
		waitGroup.Add(1)
		go func(index int) {
			defer waitGroup.Done()
			<-start
			var out map[string]any
			errs[index] = client.Get(context.Background(), "/api/auth/me", &out)
		}(i)
	}
	close(start)
	waitGroup.Wait()

	for index, callErr := range errs {
		assert.NoError(t, callErr, "caller %d", index)
	}
	assert.EqualValues(t, 1, refreshHits.Load(), "concurrent failures must share one refresh")
	assert.EqualValues(t, callers*2, profileHits.Load(), "each caller retries exactly once")
}

func TestRefreshDenialSurfacesOriginalError(t *testing.T) {
	server, profileHits, refreshHits := newSessionServer(t, http.StatusUnauthorized, 0)

	client, err := New(server.URL)
	require.NoError(t, err)
	client.SetAccessToken(staleToken)

	err = client.Get(context.Background(), "/api/auth/me", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "TOKEN_EXPIRED", apiErr.Code, "the original failure is surfaced, not the refresh denial")

	assert.Empty(t, client.AccessToken(), "denial clears the stored token")
	assert.EqualValues(t, 1, profileHits.Load(), "a denied refresh is never retried")
	assert.EqualValues(t, 1, refreshHits.Load())
}

func TestRefreshEndpointNeverNestsRefresh(t *testing.T) {
	server, _, refreshHits := newSessionServer(t, http.StatusUnauthorized, 0)

	client, err := New(server.URL)
	require.NoError(t, err)

	err = client.Post(context.Background(), "/api/auth/refresh", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.EqualValues(t, 1, refreshHits.Load())
}

func TestLoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"accessToken":"` + freshToken + `","user":{"email":"jo@example.com"}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New(server.URL)
	require.NoError(t, err)

	require.NoError(t, client.Login(context.Background(), "jo@example.com", "password123"))
	assert.Equal(t, freshToken, client.AccessToken())
}

func TestLogoutClearsTokenEvenOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/logout", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusInternalServerError)
		_, _ = writer.Write([]byte(`{"error":"Internal server error"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New(server.URL)
	require.NoError(t, err)
	client.SetAccessToken(freshToken)

	err = client.Logout(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Empty(t, client.AccessToken())
}
