// Copyright (c) 2026 FileMyTax. All rights reserved.

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, RefreshToken) and logic for
authentication, federated login, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import "time"

// # Domain Entities

// User represents a registered filer on the FileMyTax platform.
//
// A usable account carries a password hash, a Google subject, or both. An
// account with neither cannot authenticate and is never created by this
// package. JSON keys are camelCase to match the SPA's expectations.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.
	GoogleID     string `json:"-"` // Federated subject. Omitted from JSON.

	// Display name, derived from first + last name on profile updates.
	Name string `json:"name,omitempty"`

	// Structured profile fields used to pre-fill the tax return.
	FirstName    string `json:"firstName,omitempty"`
	MiddleName   string `json:"middleName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Phone        string `json:"phone,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Country      string `json:"country,omitempty"`

	// HasPassword tells the SPA whether to render "change" or "set" password.
	// Derived from PasswordHash, never stored.
	HasPassword bool `json:"hasPassword"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// computeDerived refreshes fields that are projections of stored state.
// Call after hydration and after any password mutation.
func (user *User) computeDerived() {
	user.HasPassword = user.PasswordHash != ""
}

// RefreshToken represents a single-use rotating session credential.
//
// Only the SHA-256 hash of the opaque token value is ever stored; the plain
// value exists solely inside the HTTP-only cookie held by the browser.
type RefreshToken struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldName            = "name"
	FieldIDToken         = "idToken"
	FieldToken           = "token"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldAccessToken     = "accessToken"
	FieldUser            = "user"
	FieldMessage         = "message"
)
