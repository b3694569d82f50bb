// Copyright (c) 2026 FileMyTax. All rights reserved.

/*
Package auth implements the core identity and access management system.

It handles everything from user registration and secure password hashing to
federated Google login and refresh-token rotation.

Architecture:

  - Service: Orchestrates business logic (Register, Login, Refresh, Reset).
  - Repository: Abstracted interfaces for Postgres (Users, RefreshTokens)
    and Redis (Reset tokens).
  - Security: Bcrypt hashing, HMAC-signed JWTs, hashed-at-rest refresh tokens.

The package ensures that identity data remains consistent and secure throughout
the platform's lifecycle.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/filemytax/filemytax/internal/platform/apperr"
	"github.com/filemytax/filemytax/internal/platform/sec"
	"github.com/filemytax/filemytax/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating signed access tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID string, timeToLive time.Duration) (string, error)
}

// Notifier delivers out-of-band account notifications.
type Notifier interface {
	// SendPasswordReset emails the reset link to the account's address.
	SendPasswordReset(context context.Context, toEmail string, resetURL string) error
}

// Session represents a successfully established user session.
type Session struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, rotation,
// or login logic must be reviewed carefully.
type Service struct {
	userRepository       UserRepository
	tokenRepository      RefreshTokenRepository
	resetTokenRepository ResetTokenRepository
	tokenProvider        TokenProvider
	googleVerifier       GoogleVerifier
	notifier             Notifier
	frontendURL          string
	logger               *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	tokenRepo RefreshTokenRepository,
	resetRepo ResetTokenRepository,
	tokenProv TokenProvider,
	google GoogleVerifier,
	notifier Notifier,
	frontendURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:       userRepo,
		tokenRepository:      tokenRepo,
		resetTokenRepository: resetRepo,
		tokenProvider:        tokenProv,
		googleVerifier:       google,
		notifier:             notifier,
		frontendURL:          strings.TrimRight(frontendURL, "/"),
		logger:               logger,
	}
}

// issueSession mints the access/refresh pair after a verified identity.
func (service *Service) issueSession(context context.Context, user *User) (*Session, error) {

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate long-lived opaque Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Only the hash of the refresh token touches persistent storage
	expiresAt := time.Now().Add(RefreshTokenTTL)
	record := &RefreshToken{
		TokenHash: sec.HashToken(refreshToken),
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}

	if err := service.tokenRepository.Create(context, record); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_store_failed: %w", err)
	}

	return &Session{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new filer.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Deep-enrollment of a new filer, handling password hashing and
immediate session issuance.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Session: Transport-ready session identifiers
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Session, error) {

	// Verify email uniqueness. A federated-only account gets a distinguishable
	// code so the SPA can route the user to "Forgot password?" instead.
	existing, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		if existing.GoogleID != "" && existing.PasswordHash == "" {
			return nil, apperr.Conflict(
				`This email is linked to a Google account. Use "Forgot password?" to set a password and enable email login.`,
			).WithCode("GOOGLE_ACCOUNT")
		}
		return nil, apperr.Conflict("Email already in use")
	}

	// Prevent storing plain-text passwords. Cost 12 balances security against
	// CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Name:         strings.TrimSpace(input.Name),
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return service.issueSession(context, user)
}

// # Authentication Flow

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity, performs constant-time password comparison,
and initializes a new session with rotated security tokens.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *Session: Transport-ready session identifiers
  - err: Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, email, password string) (*Session, error) {
	user, err := service.userRepository.FindByEmail(context, email)

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	// Federated-only account: password login is impossible. Distinguishable
	// code so the SPA can point at Google Sign-In or the set-password flow.
	if user.PasswordHash == "" {
		return nil, apperr.Unauthorized(
			`This account uses Google Sign-In. Click the Google button to sign in, or use "Forgot password?" to set a password.`,
		).WithCode("GOOGLE_ACCOUNT")
	}

	// Verify password hash using bcrypt's constant-time comparison
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return service.issueSession(context, user)
}

/*
LoginWithGoogle authenticates a filer via a verified Google ID token.

Description: Resolves the federated subject to an account, converging on an
existing email-matching account or enrolling a new one on first login.

Parameters:
  - context: context.Context
  - idToken: string

Returns:
  - *Session: Transport-ready session identifiers
  - err: Unauthorized or storage failures
*/
func (service *Service) LoginWithGoogle(context context.Context, idToken string) (*Session, error) {
	payload, err := service.googleVerifier.Verify(context, idToken)
	if err != nil {
		return nil, err
	}

	if payload.Subject == "" || payload.Email == "" {
		return nil, apperr.Unauthorized("Could not read Google profile")
	}

	// 1. Known federated subject: straight login.
	user, err := service.userRepository.FindByGoogleID(context, payload.Subject)
	if err == nil {
		return service.issueSession(context, user)
	}

	// 2. Known email: converge by linking the subject onto the account.
	// Only a Google-verified email may take over an existing account.
	user, err = service.userRepository.FindByEmail(context, payload.Email)
	if err == nil {
		if !payload.EmailVerified {
			return nil, apperr.Unauthorized("Google account email is not verified")
		}
		if linkErr := service.userRepository.LinkGoogleID(context, user.ID, payload.Subject); linkErr != nil {
			return nil, fmt.Errorf("auth_service_google_link_failed: %w", linkErr)
		}
		user.GoogleID = payload.Subject
		return service.issueSession(context, user)
	}

	// 3. First federated login: enroll a passwordless account.
	user = &User{
		ID:       uuid.New(),
		Email:    payload.Email,
		GoogleID: payload.Subject,
		Name:     strings.TrimSpace(payload.Name),
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_google_register_failed: %w", err)
	}

	return service.issueSession(context, user)
}

// # Session Management

/*
Refresh implements the refresh token rotation mechanism.

Description: Atomically swaps the presented token for a fresh one. Of N
concurrent presentations of the same token exactly one succeeds; the rest
observe an invalid token (replay attack mitigation).

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *Session: New credentials (User is not hydrated on this path)
  - err: Unauthorized or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*Session, error) {

	// Mint the replacement token before touching storage
	newRefreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_secure_token_failed: %w", err)
	}

	// Single atomic swap: old hash out, new hash in
	expiresAt := time.Now().Add(RefreshTokenTTL)
	userID, err := service.tokenRepository.Rotate(
		context,
		sec.HashToken(refreshToken),
		sec.HashToken(newRefreshToken),
		expiresAt,
	)

	// If (err != nil) the token is expired, already rotated, or completely invalid.
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, fmt.Errorf("auth_service_refresh_rotate_failed: %w", err)
	}

	// Generate a fresh Access Token for the rotated session
	accessToken, err := service.tokenProvider.GenerateAccessToken(userID, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return &Session{
		AccessToken:           accessToken,
		RefreshToken:          newRefreshToken,
		RefreshTokenExpiresAt: expiresAt,
	}, nil
}

/*
Logout permanently invalidates the presented refresh token.

Description: Idempotent; an absent or already-deleted token still counts as
a successful logout.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Deletion failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := service.tokenRepository.Delete(context, sec.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// # Profile Management

/*
Profile returns the account owning the given user ID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated account entity
  - err: apperr.NotFound or retrieval failures
*/
func (service *Service) Profile(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

// ProfileInput holds the mutable profile fields of a tax filer.
type ProfileInput struct {
	FirstName    string
	MiddleName   string
	LastName     string
	Phone        string
	DateOfBirth  string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Zip          string
	Country      string
}

/*
UpdateProfile replaces the filer's structured profile fields.

Description: Trims every field and derives the display name from first + last.
Empty fields are cleared, not kept.

Parameters:
  - context: context.Context
  - userID: string
  - input: ProfileInput

Returns:
  - *User: Updated account entity
  - err: apperr.NotFound or update failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input ProfileInput) (*User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(input.FirstName)
	user.MiddleName = strings.TrimSpace(input.MiddleName)
	user.LastName = strings.TrimSpace(input.LastName)
	user.Phone = strings.TrimSpace(input.Phone)
	user.DateOfBirth = strings.TrimSpace(input.DateOfBirth)
	user.AddressLine1 = strings.TrimSpace(input.AddressLine1)
	user.AddressLine2 = strings.TrimSpace(input.AddressLine2)
	user.City = strings.TrimSpace(input.City)
	user.State = strings.TrimSpace(input.State)
	user.Zip = strings.TrimSpace(input.Zip)
	user.Country = strings.TrimSpace(input.Country)
	user.Name = deriveDisplayName(user.FirstName, user.LastName)

	if err := service.userRepository.UpdateProfile(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_update_profile_failed: %w", err)
	}

	return user, nil
}

// deriveDisplayName joins the non-empty name parts.
func deriveDisplayName(first, last string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

// # Password Management

/*
SetPassword sets or changes the authenticated filer's password.

Description: A federated-only account may set a password without presenting a
current one; an account that already has a hash must verify it first.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - err: Validation, Unauthorized, or storage failures
*/
func (service *Service) SetPassword(context context.Context, userID, currentPassword, newPassword string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash != "" {
		// Existing password account: verify the current password first
		if currentPassword == "" {
			return apperr.ValidationError("Current password is required")
		}
		if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
			return apperr.Unauthorized("Current password is incorrect")
		}
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_set_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_set_password_update_failed: %w", err)
	}

	return nil
}

// # Password Recovery

/*
RequestPasswordReset runs the asynchronous half of the forgot-password flow.

Description: For a registered email, invalidates any prior reset token, stores
a fresh one, and emails the reset link. Unknown emails are a silent no-op and
notification failures are logged, never surfaced: the HTTP layer has already
answered 200 by the time this runs.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Token generation or storage failures
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {

	// Unknown email: deliberately do nothing (enumeration prevention)
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return nil
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	// One live token per user: Replace drops the previous one
	if err := service.resetTokenRepository.Replace(context, user.ID, token, ResetTokenTTL); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	resetURL := service.frontendURL + ResetPasswordPath + "?token=" + token
	if err := service.notifier.SendPasswordReset(context, user.Email, resetURL); err != nil {
		service.logger.ErrorContext(context, "reset_email_send_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the token, hashes the new password, updates the account,
and consumes the token (single use).

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: Validation or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// Retrieve the userID associated with the reset token.
	// Generic message: never reveal whether the token existed or merely expired.
	userID, err := service.resetTokenRepository.Get(context, token)
	if err != nil {
		return apperr.ValidationError("Invalid or expired reset link. Please request a new one.")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Consume the token so it can never be replayed
	_ = service.resetTokenRepository.Delete(context, token, userID)

	return nil
}

// # Maintenance

/*
PurgeExpiredTokens removes refresh tokens that have passed their expiry.

Description: Startup sweep; rotation already refuses expired tokens, this
just reclaims storage.

Parameters:
  - context: context.Context

Returns:
  - err: Cleanup failures
*/
func (service *Service) PurgeExpiredTokens(context context.Context) error {
	return service.tokenRepository.DeleteExpired(context)
}
