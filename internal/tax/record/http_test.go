// Copyright (c) 2026 FileMyTax. All rights reserved.

package record

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filemytax/filemytax/internal/platform/middleware"
	"github.com/filemytax/filemytax/internal/platform/sec"
)

// newDataRouter mounts the saved-return routes behind the real token
// middleware and returns a bearer header for the given user.
func newDataRouter(t *testing.T, userID string) (chi.Router, string) {
	t.Helper()

	tokenService, err := sec.NewTokenService("record-test-secret", "filemytax.test")
	require.NoError(t, err)

	token, err := tokenService.GenerateAccessToken(userID, time.Minute)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(tokenService))
	router.Mount("/api/data", NewHandler(NewService(newFakeRepository())).Routes())

	return router, "Bearer " + token
}

func TestDataEndpointsRequireAuth(t *testing.T) {
	router, _ := newDataRouter(t, "user-1")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/data/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/api/data/", strings.NewReader(`{"data":{}}`)))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoadEndpointReturnsNullWhenNeverSaved(t *testing.T) {
	router, bearer := newDataRouter(t, "user-1")

	request := httptest.NewRequest(http.MethodGet, "/api/data/", nil)
	request.Header.Set("Authorization", bearer)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":null}`, recorder.Body.String())
}

func TestSaveEndpointRoundTrip(t *testing.T) {
	router, bearer := newDataRouter(t, "user-1")

	putRequest := httptest.NewRequest(http.MethodPut, "/api/data/",
		strings.NewReader(`{"data":{"filingStatus":"married_joint","dependents":2}}`))
	putRequest.Header.Set("Authorization", bearer)
	putRecorder := httptest.NewRecorder()
	router.ServeHTTP(putRecorder, putRequest)

	require.Equal(t, http.StatusOK, putRecorder.Code)
	assert.JSONEq(t, `{"message":"Saved"}`, putRecorder.Body.String())

	getRequest := httptest.NewRequest(http.MethodGet, "/api/data/", nil)
	getRequest.Header.Set("Authorization", bearer)
	getRecorder := httptest.NewRecorder()
	router.ServeHTTP(getRecorder, getRequest)

	require.Equal(t, http.StatusOK, getRecorder.Code)
	assert.JSONEq(t, `{"data":{"filingStatus":"married_joint","dependents":2}}`, getRecorder.Body.String())
}

func TestSaveEndpointRejectsNonObjectPayload(t *testing.T) {
	router, bearer := newDataRouter(t, "user-1")

	tests := []struct {
		name string
		body string
	}{
		{name: "array data", body: `{"data":[1,2,3]}`},
		{name: "missing data", body: `{}`},
		{name: "malformed json", body: `{"data":`},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPut, "/api/data/", strings.NewReader(testCase.body))
			request.Header.Set("Authorization", bearer)
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}
