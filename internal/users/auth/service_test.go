// Copyright (c) 2026 FileMyTax. All rights reserved.

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filemytax/filemytax/internal/platform/apperr"
	"github.com/filemytax/filemytax/internal/platform/sec"
)

// # In-Memory Fakes

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*User)}
}

func (repo *fakeUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByGoogleID(_ context.Context, googleID string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.GoogleID == googleID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) Create(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user.computeDerived()
	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepository) UpdateProfile(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[user.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	clone := *user
	clone.PasswordHash = stored.PasswordHash
	clone.GoogleID = stored.GoogleID
	clone.computeDerived()
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = newHash
	stored.computeDerived()
	return nil
}

func (repo *fakeUserRepository) LinkGoogleID(_ context.Context, userID, googleID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.GoogleID = googleID
	return nil
}

type fakeRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newFakeRefreshTokenRepository() *fakeRefreshTokenRepository {
	return &fakeRefreshTokenRepository{tokens: make(map[string]*RefreshToken)}
}

func (repo *fakeRefreshTokenRepository) Create(_ context.Context, token *RefreshToken) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	clone := *token
	repo.tokens[token.TokenHash] = &clone
	return nil
}

// Rotate mirrors the production contract: a single atomic compare-and-swap,
// so only one of N concurrent presentations of the same hash can win.
func (repo *fakeRefreshTokenRepository) Rotate(_ context.Context, oldHash, newHash string, expiresAt time.Time) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.tokens[oldHash]
	if !ok || !stored.ExpiresAt.After(time.Now()) {
		return "", apperr.NotFound("Refresh token")
	}
	delete(repo.tokens, oldHash)
	repo.tokens[newHash] = &RefreshToken{
		TokenHash: newHash,
		UserID:    stored.UserID,
		ExpiresAt: expiresAt,
	}
	return stored.UserID, nil
}

func (repo *fakeRefreshTokenRepository) Delete(_ context.Context, tokenHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.tokens, tokenHash)
	return nil
}

func (repo *fakeRefreshTokenRepository) DeleteExpired(_ context.Context) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for hash, token := range repo.tokens {
		if !token.ExpiresAt.After(time.Now()) {
			delete(repo.tokens, hash)
		}
	}
	return nil
}

func (repo *fakeRefreshTokenRepository) count() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.tokens)
}

type fakeResetTokenRepository struct {
	mu          sync.Mutex
	tokenToUser map[string]string
	userToToken map[string]string
}

func newFakeResetTokenRepository() *fakeResetTokenRepository {
	return &fakeResetTokenRepository{
		tokenToUser: make(map[string]string),
		userToToken: make(map[string]string),
	}
}

func (repo *fakeResetTokenRepository) Replace(_ context.Context, userID, token string, _ time.Duration) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if previous, ok := repo.userToToken[userID]; ok {
		delete(repo.tokenToUser, previous)
	}
	repo.tokenToUser[token] = userID
	repo.userToToken[userID] = token
	return nil
}

func (repo *fakeResetTokenRepository) Get(_ context.Context, token string) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if userID, ok := repo.tokenToUser[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Reset token")
}

func (repo *fakeResetTokenRepository) Delete(_ context.Context, token, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.tokenToUser, token)
	delete(repo.userToToken, userID)
	return nil
}

func (repo *fakeResetTokenRepository) tokenFor(userID string) string {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.userToToken[userID]
}

type fakeGoogleVerifier struct {
	payload *GooglePayload
	err     error
}

func (verifier *fakeGoogleVerifier) Verify(_ context.Context, _ string) (*GooglePayload, error) {
	if verifier.err != nil {
		return nil, verifier.err
	}
	return verifier.payload, nil
}

type sentReset struct {
	to  string
	url string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentReset
	err  error
}

func (notifier *fakeNotifier) SendPasswordReset(_ context.Context, toEmail, resetURL string) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.sent = append(notifier.sent, sentReset{to: toEmail, url: resetURL})
	return notifier.err
}

func (notifier *fakeNotifier) sentCount() int {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return len(notifier.sent)
}

type stubTokenProvider struct{}

func (stubTokenProvider) GenerateAccessToken(userID string, _ time.Duration) (string, error) {
	return "access-" + userID, nil
}

// # Harness

type serviceFixture struct {
	service  *Service
	users    *fakeUserRepository
	tokens   *fakeRefreshTokenRepository
	resets   *fakeResetTokenRepository
	google   *fakeGoogleVerifier
	notifier *fakeNotifier
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	fixture := &serviceFixture{
		users:    newFakeUserRepository(),
		tokens:   newFakeRefreshTokenRepository(),
		resets:   newFakeResetTokenRepository(),
		google:   &fakeGoogleVerifier{},
		notifier: &fakeNotifier{},
	}
	fixture.service = NewService(
		fixture.users,
		fixture.tokens,
		fixture.resets,
		stubTokenProvider{},
		fixture.google,
		fixture.notifier,
		"https://app.filemytax.test/",
		slog.New(slog.DiscardHandler),
	)
	return fixture
}

// # Registration & Login

func TestRegisterThenLogin(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{
		Email:    "jo@example.com",
		Password: "password123",
		Name:     "  Jo Filer  ",
	})
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, "Jo Filer", session.User.Name)
	assert.True(t, session.User.HasPassword)

	loginSession, err := fixture.service.Login(ctx, "jo@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, loginSession.User.ID)
	assert.True(t, loginSession.User.HasPassword)
	assert.NotEqual(t, session.RefreshToken, loginSession.RefreshToken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "different456"})
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 409, appError.HTTPStatus)
	assert.Equal(t, "CONFLICT", appError.Code)
}

func TestRegisterConflictWithFederatedAccount(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	fixture.google.payload = &GooglePayload{
		Subject:       "google-sub-1",
		Email:         "jo@example.com",
		Name:          "Jo Filer",
		EmailVerified: true,
	}
	_, err := fixture.service.LoginWithGoogle(ctx, "valid-id-token")
	require.NoError(t, err)

	_, err = fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 409, appError.HTTPStatus)
	assert.Equal(t, "GOOGLE_ACCOUNT", appError.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = fixture.service.Login(ctx, "jo@example.com", "wrong-password")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, "Invalid credentials", appError.Message)
}

func TestLoginUnknownEmailUsesGenericMessage(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.service.Login(context.Background(), "nobody@example.com", "password123")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, "Invalid credentials", appError.Message)
}

func TestLoginFederatedOnlyAccount(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	fixture.google.payload = &GooglePayload{
		Subject:       "google-sub-1",
		Email:         "jo@example.com",
		EmailVerified: true,
	}
	_, err := fixture.service.LoginWithGoogle(ctx, "valid-id-token")
	require.NoError(t, err)

	_, err = fixture.service.Login(ctx, "jo@example.com", "password123")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, "GOOGLE_ACCOUNT", appError.Code)
}

// # Google Sign-In

func TestGoogleLoginCreatesPasswordlessAccount(t *testing.T) {
	fixture := newServiceFixture(t)

	fixture.google.payload = &GooglePayload{
		Subject:       "google-sub-1",
		Email:         "jo@example.com",
		Name:          "Jo Filer",
		EmailVerified: true,
	}

	session, err := fixture.service.LoginWithGoogle(context.Background(), "valid-id-token")
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.Equal(t, "jo@example.com", session.User.Email)
	assert.False(t, session.User.HasPassword)

	// A second login with the same subject lands on the same account
	repeat, err := fixture.service.LoginWithGoogle(context.Background(), "valid-id-token")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, repeat.User.ID)
}

func TestGoogleLoginLinksExistingEmailAccount(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	registered, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	fixture.google.payload = &GooglePayload{
		Subject:       "google-sub-1",
		Email:         "jo@example.com",
		EmailVerified: true,
	}

	session, err := fixture.service.LoginWithGoogle(ctx, "valid-id-token")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)

	linked, err := fixture.users.FindByGoogleID(ctx, "google-sub-1")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, linked.ID)
	assert.True(t, linked.HasPassword, "linking must not clear the password")
}

func TestGoogleLoginRejectsUnverifiedEmailTakeover(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	fixture.google.payload = &GooglePayload{
		Subject:       "google-sub-1",
		Email:         "jo@example.com",
		EmailVerified: false,
	}

	_, err = fixture.service.LoginWithGoogle(ctx, "valid-id-token")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)

	// The subject must not have been linked
	_, err = fixture.users.FindByGoogleID(ctx, "google-sub-1")
	assert.Error(t, err)
}

func TestGoogleLoginFailsClosedOnVerifierError(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.google.err = apperr.Unauthorized("Invalid Google token")

	_, err := fixture.service.LoginWithGoogle(context.Background(), "bad-token")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
}

func TestGoogleLoginRejectsIncompletePayload(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.google.payload = &GooglePayload{Subject: "google-sub-1"}

	_, err := fixture.service.LoginWithGoogle(context.Background(), "valid-id-token")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
}

// # Refresh Rotation

func TestRefreshRotatesToken(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	rotated, err := fixture.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "access-"+session.User.ID, rotated.AccessToken)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
	assert.Nil(t, rotated.User)

	// The used token is gone; only the replacement survives
	_, err = fixture.service.Refresh(ctx, session.RefreshToken)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, 1, fixture.tokens.count())

	_, err = fixture.service.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshConcurrentPresentationsSingleWinner(t *testing.T) {
	const presenters = 8

	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	start := make(chan struct{})
	errs := make([]error, presenters)

	var waitGroup sync.WaitGroup
	for i := 0; i < presenters; i++ {
		waitGroup.Add(1)
		go func(index int) {
			defer waitGroup.Done()
			<-start
			_, errs[index] = fixture.service.Refresh(ctx, session.RefreshToken)
		}(i)
	}
	close(start)
	waitGroup.Wait()

	winners := 0
	for _, rotateErr := range errs {
		if rotateErr == nil {
			winners++
		} else {
			appError := apperr.As(rotateErr)
			require.NotNil(t, appError)
			assert.Equal(t, 401, appError.HTTPStatus)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, fixture.tokens.count())
}

func TestRefreshUnknownToken(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.service.Refresh(context.Background(), "never-issued")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, "Invalid or expired refresh token", appError.Message)
}

// # Logout

func TestLogoutInvalidatesToken(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, fixture.service.Logout(ctx, session.RefreshToken))
	assert.Equal(t, 0, fixture.tokens.count())

	_, err = fixture.service.Refresh(ctx, session.RefreshToken)
	assert.Error(t, err)
}

func TestLogoutIsIdempotent(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	assert.NoError(t, fixture.service.Logout(ctx, ""))
	assert.NoError(t, fixture.service.Logout(ctx, "never-issued"))
}

// # Profile

func TestUpdateProfileTrimsAndDerivesName(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	updated, err := fixture.service.UpdateProfile(ctx, session.User.ID, ProfileInput{
		FirstName: "  Jo ",
		LastName:  " Filer ",
		City:      "Austin",
		State:     "TX",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jo", updated.FirstName)
	assert.Equal(t, "Filer", updated.LastName)
	assert.Equal(t, "Jo Filer", updated.Name)
	assert.Equal(t, "TX", updated.State)

	stored, err := fixture.service.Profile(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jo Filer", stored.Name)
	assert.True(t, stored.HasPassword, "profile update must not clear credentials")
}

func TestUpdateProfileClearsEmptiedFields(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = fixture.service.UpdateProfile(ctx, session.User.ID, ProfileInput{FirstName: "Jo", Phone: "555-0100"})
	require.NoError(t, err)

	updated, err := fixture.service.UpdateProfile(ctx, session.User.ID, ProfileInput{FirstName: "Jo"})
	require.NoError(t, err)
	assert.Empty(t, updated.Phone)
	assert.Equal(t, "Jo", updated.Name)
}

// # Password Management

func TestSetPasswordRequiresCurrentWhenHashExists(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	err = fixture.service.SetPassword(ctx, session.User.ID, "", "newpassword456")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 400, appError.HTTPStatus)

	err = fixture.service.SetPassword(ctx, session.User.ID, "wrong-password", "newpassword456")
	appError = apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)

	require.NoError(t, fixture.service.SetPassword(ctx, session.User.ID, "password123", "newpassword456"))

	_, err = fixture.service.Login(ctx, "jo@example.com", "newpassword456")
	assert.NoError(t, err)
}

func TestSetPasswordFederatedAccountSkipsCurrent(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	fixture.google.payload = &GooglePayload{
		Subject:       "google-sub-1",
		Email:         "jo@example.com",
		EmailVerified: true,
	}
	session, err := fixture.service.LoginWithGoogle(ctx, "valid-id-token")
	require.NoError(t, err)

	require.NoError(t, fixture.service.SetPassword(ctx, session.User.ID, "", "newpassword456"))

	loginSession, err := fixture.service.Login(ctx, "jo@example.com", "newpassword456")
	require.NoError(t, err)
	assert.True(t, loginSession.User.HasPassword)
}

// # Password Recovery

func TestRequestPasswordResetKnownEmail(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "jo@example.com"))

	token := fixture.resets.tokenFor(session.User.ID)
	require.NotEmpty(t, token)
	require.Len(t, fixture.notifier.sent, 1)
	assert.Equal(t, "jo@example.com", fixture.notifier.sent[0].to)
	assert.Equal(t, "https://app.filemytax.test/reset-password?token="+token, fixture.notifier.sent[0].url)
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	fixture := newServiceFixture(t)

	require.NoError(t, fixture.service.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, fixture.notifier.sent)
}

func TestRequestPasswordResetReplacesPriorToken(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "jo@example.com"))
	first := fixture.resets.tokenFor(session.User.ID)

	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "jo@example.com"))
	second := fixture.resets.tokenFor(session.User.ID)
	require.NotEqual(t, first, second)

	_, err = fixture.resets.Get(ctx, first)
	assert.Error(t, err, "the superseded token must be dead")
}

func TestRequestPasswordResetSwallowsNotifierFailure(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	fixture.notifier.err = errors.New("smtp unreachable")
	assert.NoError(t, fixture.service.RequestPasswordReset(ctx, "jo@example.com"))
}

func TestResetPasswordWithValidToken(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "jo@example.com"))
	token := fixture.resets.tokenFor(session.User.ID)

	require.NoError(t, fixture.service.ResetPassword(ctx, token, "newpassword456"))

	_, err = fixture.service.Login(ctx, "jo@example.com", "newpassword456")
	require.NoError(t, err)

	// Single use: the consumed token cannot reset again
	err = fixture.service.ResetPassword(ctx, token, "thirdpassword789")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 400, appError.HTTPStatus)
}

func TestResetPasswordInvalidTokenLeavesPasswordIntact(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, RegisterInput{Email: "jo@example.com", Password: "password123"})
	require.NoError(t, err)

	err = fixture.service.ResetPassword(ctx, "forged-token", "newpassword456")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 400, appError.HTTPStatus)
	assert.Equal(t, "Invalid or expired reset link. Please request a new one.", appError.Message)

	_, err = fixture.service.Login(ctx, "jo@example.com", "password123")
	assert.NoError(t, err)
}

// # Maintenance

func TestPurgeExpiredTokens(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.tokens.Create(ctx, &RefreshToken{
		TokenHash: sec.HashToken("expired"),
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, fixture.tokens.Create(ctx, &RefreshToken{
		TokenHash: sec.HashToken("live"),
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, fixture.service.PurgeExpiredTokens(ctx))
	assert.Equal(t, 1, fixture.tokens.count())
}
