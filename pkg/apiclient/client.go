// Copyright (c) 2026 FileMyTax. All rights reserved.

/*
Package apiclient is a Go client for the FileMyTax API.

It reproduces the SPA's session behavior: the access token lives in memory
only, the refresh token rides in an HTTP-only cookie managed by the jar, and
an expired access token is renewed transparently.

# Refresh Coalescing

When several concurrent requests hit an authorization failure, only one
refresh call goes to the server (singleflight); every caller shares its
outcome. On success each caller retries its request once with the new token;
on denial each caller surfaces its original authorization failure and the
stored token is cleared. A denial is never retried.
*/
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout = 30 * time.Second

	refreshPath = "/api/auth/refresh"
	loginPath   = "/api/auth/login"
	logoutPath  = "/api/auth/logout"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	// StatusCode is the HTTP status of the failed response.
	StatusCode int
	// Code is the machine-readable error code, when the server sent one.
	Code string
	// Message is the server's error message.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// Client is a session-managing HTTP client for the FileMyTax API.
//
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// refreshGroup collapses concurrent refresh attempts into one call.
	refreshGroup singleflight.Group

	mu          sync.RWMutex
	accessToken string
}

// New constructs a [Client] for the given API base URL.
//
// The cookie jar is what carries the refresh token between calls; without it
// the refresh endpoint would never see its cookie.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("apiclient: cookie jar init failed: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
	}, nil
}

// # Token Management

// SetAccessToken stores the bearer token used for subsequent requests.
func (client *Client) SetAccessToken(token string) {
	client.mu.Lock()
	client.accessToken = token
	client.mu.Unlock()
}

// AccessToken returns the currently stored bearer token, "" when logged out.
func (client *Client) AccessToken() string {
	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.accessToken
}

// # Session Lifecycle

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login authenticates with email and password and stores the session.
func (client *Client) Login(ctx context.Context, email, password string) error {
	var result loginResponse
	err := client.Post(ctx, loginPath, map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return err
	}

	client.SetAccessToken(result.AccessToken)
	return nil
}

// Logout invalidates the server-side session and clears the stored token.
// The token is cleared even when the server call fails.
func (client *Client) Logout(ctx context.Context) error {
	err := client.Post(ctx, logoutPath, nil, nil)
	client.SetAccessToken("")
	return err
}

// # Request API

// Get issues a GET request and decodes the JSON response into out.
func (client *Client) Get(ctx context.Context, path string, out any) error {
	return client.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (client *Client) Post(ctx context.Context, path string, body, out any) error {
	return client.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out.
func (client *Client) Put(ctx context.Context, path string, body, out any) error {
	return client.do(ctx, http.MethodPut, path, body, out)
}

// do runs one request with transparent refresh-and-retry on auth failure.
func (client *Client) do(ctx context.Context, method, path string, body, out any) error {

	// Marshal once, replay per attempt
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode body failed: %w", err)
		}
		payload = encoded
	}

	status, responseBody, err := client.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	// The refresh endpoint itself never triggers a nested refresh
	if status == http.StatusUnauthorized && path != refreshPath {
		originalErr := decodeAPIError(status, responseBody)

		if refreshErr := client.refresh(ctx); refreshErr != nil {
			// Denial: clear the dead token, surface the ORIGINAL failure
			client.SetAccessToken("")
			return originalErr
		}

		// Exactly one retry with the renewed token
		status, responseBody, err = client.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return decodeAPIError(status, responseBody)
	}

	if out != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("apiclient: decode response failed: %w", err)
		}
	}

	return nil
}

// send performs a single HTTP round trip with the current bearer token.
func (client *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: build request failed: %w", err)
	}

	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token := client.AccessToken(); token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: read response failed: %w", err)
	}

	return response.StatusCode, responseBody, nil
}

// # Refresh Coordination

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// refresh renews the access token, coalescing concurrent attempts.
//
// All callers of the in-flight refresh share a single outcome: the renewed
// token is stored before any caller returns, so every retrier picks it up.
func (client *Client) refresh(ctx context.Context) error {
	_, err, _ := client.refreshGroup.Do("refresh", func() (any, error) {
		status, responseBody, sendErr := client.send(ctx, http.MethodPost, refreshPath, nil)
		if sendErr != nil {
			return nil, sendErr
		}
		if status != http.StatusOK {
			return nil, decodeAPIError(status, responseBody)
		}

		var result refreshResponse
		if decodeErr := json.Unmarshal(responseBody, &result); decodeErr != nil {
			return nil, fmt.Errorf("apiclient: decode refresh response failed: %w", decodeErr)
		}
		if result.AccessToken == "" {
			return nil, fmt.Errorf("apiclient: refresh response missing access token")
		}

		client.SetAccessToken(result.AccessToken)
		return result.AccessToken, nil
	})

	return err
}

// decodeAPIError builds an [*APIError] from an error response body.
func decodeAPIError(status int, body []byte) *APIError {
	apiError := &APIError{StatusCode: status}

	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		apiError.Message = envelope.Error
		apiError.Code = envelope.Code
	}

	return apiError
}
