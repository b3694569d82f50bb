// Copyright (c) 2026 FileMyTax. All rights reserved.

package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/filemytax/filemytax/internal/platform/apperr"
)

// # Federated Identity

// GooglePayload carries the identity claims extracted from a verified
// Google ID token.
type GooglePayload struct {
	// Subject is Google's stable account identifier ("sub" claim).
	Subject string
	// Email is the account's primary email address.
	Email string
	// Name is Google's display name for the account, possibly empty.
	Name string
	// EmailVerified reports whether Google has verified the email.
	// Account convergence by email is only allowed when true.
	EmailVerified bool
}

// GoogleVerifier validates a federated ID token and extracts its claims.
//
// # Why an interface?
//
// The concrete implementation calls Google's certificate endpoints over the
// network. Service tests substitute an in-memory fake.
type GoogleVerifier interface {

	/*
		Verify checks the token's signature, audience, and expiry.

		Parameters:
		  - context: context.Context
		  - idToken: string (raw JWT from the SPA's Google Sign-In flow)

		Returns:
		  - *GooglePayload: Verified identity claims
		  - error: apperr.Unauthorized for any verification failure
	*/
	Verify(context context.Context, idToken string) (*GooglePayload, error)
}

// IDTokenVerifier implements GoogleVerifier using Google's public keys.
type IDTokenVerifier struct {
	clientID string
}

// NewIDTokenVerifier constructs a verifier pinned to the given OAuth client ID.
//
// Fails closed: without a configured client ID every verification attempt is
// rejected rather than skipping the audience check.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID}
}

// Verify implements [GoogleVerifier].
func (verifier *IDTokenVerifier) Verify(context context.Context, rawToken string) (*GooglePayload, error) {
	if verifier.clientID == "" {
		return nil, apperr.Unauthorized("Google Sign-In is not configured")
	}

	payload, err := idtoken.Validate(context, rawToken, verifier.clientID)
	if err != nil {
		unauthorized := apperr.Unauthorized("Invalid Google token")
		unauthorized.Cause = fmt.Errorf("google_id_token_validate_failed: %w", err)
		return nil, unauthorized
	}

	return &GooglePayload{
		Subject:       payload.Subject,
		Email:         claimString(payload.Claims, "email"),
		Name:          claimString(payload.Claims, "name"),
		EmailVerified: claimBool(payload.Claims, "email_verified"),
	}, nil
}

// claimString reads an optional string claim.
func claimString(claims map[string]any, key string) string {
	value, _ := claims[key].(string)
	return value
}

// claimBool reads an optional bool claim. Some issuers encode it as a string.
func claimBool(claims map[string]any, key string) bool {
	switch value := claims[key].(type) {
	case bool:
		return value
	case string:
		return value == "true"
	default:
		return false
	}
}
