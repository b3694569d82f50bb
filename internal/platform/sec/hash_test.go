// Copyright (c) 2026 FileMyTax. All rights reserved.

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filemytax/filemytax/internal/platform/sec"
)

/*
TestHashPassword_RoundTrip verifies that a hashed password matches itself
and nothing else.
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, sec.CheckPasswordHash("wrong password", hash))
	assert.False(t, sec.CheckPasswordHash("correct horse battery staple", "not-a-hash"))
}

/*
TestGenerateSecureToken checks entropy encoding and uniqueness.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	// 32 random bytes encode to 43 URL-safe characters.
	assert.Len(t, first, 43)
	assert.NotEqual(t, first, second)
}

/*
TestHashToken verifies the digest is deterministic and distinct per input.
*/
func TestHashToken(t *testing.T) {
	assert.Equal(t, sec.HashToken("abc"), sec.HashToken("abc"))
	assert.NotEqual(t, sec.HashToken("abc"), sec.HashToken("abd"))
	// hex-encoded SHA-256
	assert.Len(t, sec.HashToken("abc"), 64)
}
