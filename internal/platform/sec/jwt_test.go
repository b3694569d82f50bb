// Copyright (c) 2026 FileMyTax. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filemytax/filemytax/internal/platform/sec"
)

const testIssuer = "filemytax.test"

/*
TestTokenService_RoundTrip verifies that an issued token carries the user ID
and verifies successfully within its validity window.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := sec.NewTokenService("unit-test-secret", testIssuer)
	require.NoError(t, err)

	token, err := service.GenerateAccessToken("user-123", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, testIssuer, claims.Issuer)
}

/*
TestTokenService_Expiry checks that a token past its window fails with the
expiry classification, not a generic parse error.
*/
func TestTokenService_Expiry(t *testing.T) {
	service, err := sec.NewTokenService("unit-test-secret", testIssuer)
	require.NoError(t, err)

	// Negative TTL produces an already-expired token.
	token, err := service.GenerateAccessToken("user-123", -1*time.Minute)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	assert.Nil(t, claims)
	require.Error(t, err)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
	assert.NotErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_Tampering rejects bad signatures and malformed payloads as
invalid, never expired.
*/
func TestTokenService_Tampering(t *testing.T) {
	service, err := sec.NewTokenService("unit-test-secret", testIssuer)
	require.NoError(t, err)

	otherService, err := sec.NewTokenService("a-different-secret", testIssuer)
	require.NoError(t, err)

	foreign, err := otherService.GenerateAccessToken("user-123", 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong_secret", foreign},
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.VerifyToken(tt.token)
			assert.Nil(t, claims)
			require.Error(t, err)
			assert.ErrorIs(t, err, sec.ErrTokenInvalid)
			assert.NotErrorIs(t, err, sec.ErrTokenExpired)
		})
	}
}

/*
TestTokenService_FailsClosed verifies that a missing secret prevents
construction entirely.
*/
func TestTokenService_FailsClosed(t *testing.T) {
	service, err := sec.NewTokenService("", testIssuer)
	assert.Nil(t, service)
	assert.Error(t, err)
}
