// Copyright (c) 2026 FileMyTax. All rights reserved.

/*
HTTP delivery layer for user identity management.

It implements the gateway for the authentication lifecycle, from account
creation to session rotation and recovery.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface with flat camelCase bodies.
  - Security: Handles JWT orchestration and refresh token cookie injection.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/filemytax/filemytax/internal/platform/apperr"
	"github.com/filemytax/filemytax/internal/platform/constants"
	"github.com/filemytax/filemytax/internal/platform/ctxutil"
	"github.com/filemytax/filemytax/internal/platform/middleware"
	requestutil "github.com/filemytax/filemytax/internal/platform/request"
	"github.com/filemytax/filemytax/internal/platform/respond"
	"github.com/filemytax/filemytax/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the user lifecycle entry points
// (Registration, Login, Google Sign-In, Refresh, Profile, Password Recovery).
type Handler struct {
	authService *Service

	// secureCookies selects the production cookie profile: Secure with
	// SameSite=None (cross-site SPA), versus Lax without Secure in development.
	secureCookies bool
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{
		authService:   service,
		secureCookies: secureCookies,
	}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register        : Creates a new account.
//   - POST /login           : Authenticates and returns a JWT.
//   - POST /google          : Federated Google Sign-In.
//   - POST /refresh         : Rotates the refresh cookie.
//   - POST /logout          : Invalidates the session.
//   - GET  /me              : Returns the authenticated profile.
//   - PUT  /profile         : Updates profile fields.
//   - POST /set-password    : Sets or changes the password.
//   - POST /forgot-password : Starts password recovery.
//   - POST /reset-password  : Completes password recovery.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/google", handler.google)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
		r.Put("/profile", handler.updateProfile)
		r.Post("/set-password", handler.setPassword)
	})

	return router
}

// # Cookie Helpers

// setRefreshCookie installs the rotating refresh token on the browser.
func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, token string, expiresAt time.Time) {
	sameSite := http.SameSiteLaxMode
	if handler.secureCookies {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    token,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt) / time.Second),
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

// clearRefreshCookie instructs the browser to drop the refresh token.
func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if handler.secureCookies {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

// refreshCookieValue reads the refresh token cookie, "" when absent.
func refreshCookieValue(request *http.Request) string {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

// # Request & Response Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

type profileRequest struct {
	FirstName    string `json:"firstName"`
	MiddleName   string `json:"middleName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	DateOfBirth  string `json:"dateOfBirth"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Country      string `json:"country"`
}

type setPasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// sessionResponse is the flat body the SPA expects after authentication.
type sessionResponse struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
}

/*
Register handles the creation of a new user account.

POST /api/auth/register

Description: Validates input, checks for identity conflicts, persists a new
account, and establishes an immediate session.

Request:
  - Body: registerRequest (Email, Password, Name?)

Response:
  - 201: sessionResponse + refresh cookie
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already exists (code GOOGLE_ACCOUNT when federated-only)
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken, session.RefreshTokenExpiresAt)
	respond.Created(writer, sessionResponse{
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}

/*
Login authenticates a user and establishes a session.

POST /api/auth/login

Description: Verifies credentials, generates a JWT access token, and injects
a secure refresh token cookie into the response.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: sessionResponse + refresh cookie
  - 401: ErrUnauthorized: Invalid credentials (code GOOGLE_ACCOUNT when federated-only)
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken, session.RefreshTokenExpiresAt)
	respond.OK(writer, sessionResponse{
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}

/*
Google authenticates a user via a federated Google ID token.

POST /api/auth/google

Description: Verifies the ID token against Google's keys, resolves or enrolls
the matching account, and establishes a session.

Request:
  - Body: googleRequest (IDToken)

Response:
  - 200: sessionResponse + refresh cookie
  - 400: ErrInvalidJSON: Missing idToken
  - 401: ErrUnauthorized: Invalid token or unreadable profile
*/
func (handler *Handler) google(writer http.ResponseWriter, request *http.Request) {
	var input googleRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.IDToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldIDToken, "is required"))
		return
	}

	session, err := handler.authService.LoginWithGoogle(request.Context(), input.IDToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken, session.RefreshTokenExpiresAt)
	respond.OK(writer, sessionResponse{
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}

/*
Refresh rotates the session using the refresh token cookie.

POST /api/auth/refresh

Description: Validates and atomically rotates the refresh token, issuing a
fresh access token and an updated cookie. An invalid token clears the cookie.

Response:
  - 200: {accessToken} + rotated refresh cookie
  - 401: ErrUnauthorized: Missing, expired, or already-rotated token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken := refreshCookieValue(request)
	if refreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("No refresh token"))
		return
	}

	session, err := handler.authService.Refresh(request.Context(), refreshToken)
	if err != nil {
		// The cookie is worthless now, tell the browser to drop it
		handler.clearRefreshCookie(writer)
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken, session.RefreshTokenExpiresAt)
	respond.OK(writer, map[string]string{
		FieldAccessToken: session.AccessToken,
	})
}

/*
Logout terminates the current user session.

POST /api/auth/logout

Description: Invalidates the refresh token (if present) and clears the
security cookie from the client. Never fails.

Response:
  - 200: {message}: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if refreshToken := refreshCookieValue(request); refreshToken != "" {
		if err := handler.authService.Logout(request.Context(), refreshToken); err != nil {
			ctxutil.GetLogger(request.Context()).WarnContext(request.Context(),
				"logout_token_delete_failed", slog.Any("error", err))
		}
	}

	handler.clearRefreshCookie(writer)
	respond.OK(writer, map[string]string{
		FieldMessage: "Logged out",
	})
}

/*
Me returns the authenticated user's profile.

GET /api/auth/me

Response:
  - 200: User: Full profile
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: Token valid but account gone
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Profile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
UpdateProfile replaces the authenticated user's profile fields.

PUT /api/auth/profile

Request:
  - Body: profileRequest (camelCase profile fields, all optional)

Response:
  - 200: User: Updated profile
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input profileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	user, err := handler.authService.UpdateProfile(request.Context(), userID, ProfileInput{
		FirstName:    input.FirstName,
		MiddleName:   input.MiddleName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		DateOfBirth:  input.DateOfBirth,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		Zip:          input.Zip,
		Country:      input.Country,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
SetPassword sets or changes the authenticated user's password.

POST /api/auth/set-password

Description: A federated-only account may set its first password without a
current one; otherwise the current password must verify.

Request:
  - Body: setPasswordRequest (CurrentPassword?, NewPassword)

Response:
  - 200: {message}: Password stored
  - 400: ErrInvalidJSON: Weak password or missing current password
  - 401: ErrUnauthorized: Current password incorrect
  - 404: ErrNotFound: Account gone
*/
func (handler *Handler) setPassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.SetPassword(request.Context(), userID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password set successfully",
	})
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/auth/forgot-password

Description: Answers 200 unconditionally (enumeration prevention), then does
the real work in a detached goroutine: token issuance and email delivery for
registered addresses, nothing for unknown ones.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: {message}: Always, for any input
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	decodeErr := requestutil.DecodeJSON(request, &input)

	// The response never depends on the input
	respond.OK(writer, map[string]string{
		FieldMessage: "If this email is registered, a reset link has been sent.",
	})

	if decodeErr != nil || input.Email == "" {
		return
	}

	// Detach from the request: the client connection is already served
	logger := ctxutil.GetLogger(request.Context())
	background := context.WithoutCancel(request.Context())

	go func() {
		if err := handler.authService.RequestPasswordReset(background, input.Email); err != nil {
			logger.ErrorContext(background, "password_reset_request_failed", slog.Any("error", err))
		}
	}()
}

/*
ResetPassword completes the password recovery flow.

POST /api/auth/reset-password

Description: Validates the reset token and updates the user's password.

Request:
  - Body: resetPasswordRequest (Token, NewPassword)

Response:
  - 200: {message}: Password updated
  - 400: ErrInvalidJSON: Missing token, weak password, or invalid/expired token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password updated successfully. You can now log in.",
	})
}
