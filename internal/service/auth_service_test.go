package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dom/account-auth/internal/domain"
	"github.com/dom/account-auth/internal/mail"
	"github.com/dom/account-auth/internal/repository/postgres"
	"github.com/dom/account-auth/internal/service"
	"github.com/dom/account-auth/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Registration(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	mailer := testutil.NewFakeMailer()
	repos, services := testutil.NewTestServices(t, testDB, mailer)
	ctx := context.Background()

	t.Run("creates inactive user and issues tokens", func(t *testing.T) {
		testDB.Truncate(t)

		result, err := services.Auth.Registration(ctx, service.RegistrationInput{
			Email:    "  New.User@Example.com ",
			Password: "password123",
			Name:     "New User",
		})
		require.NoError(t, err)

		assert.Equal(t, "new.user@example.com", result.User.Email)
		assert.Equal(t, "New User", result.User.Name)
		assert.False(t, result.User.IsActivated)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)

		stored, err := repos.Token.GetByUserID(ctx, result.User.ID)
		require.NoError(t, err)
		assert.Equal(t, result.RefreshToken, stored.RefreshToken)

		user, err := repos.User.GetByID(ctx, result.User.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "password123", user.PasswordHash)

		sent := mailer.Sent()
		require.NotEmpty(t, sent)
		last := sent[len(sent)-1]
		assert.Equal(t, "new.user@example.com", last.To)
		assert.Equal(t, user.ActivationLink, last.ActivationLink)
	})

	t.Run("duplicate email is rejected and first record kept", func(t *testing.T) {
		testDB.Truncate(t)

		first, err := services.Auth.Registration(ctx, service.RegistrationInput{
			Email: "dup@example.com", Password: "password123", Name: "First",
		})
		require.NoError(t, err)

		_, err = services.Auth.Registration(ctx, service.RegistrationInput{
			Email: "DUP@example.com", Password: "otherpass", Name: "Second",
		})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)

		user, err := repos.User.GetByEmail(ctx, "dup@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.User.ID, user.ID)
		assert.Equal(t, "First", user.Name)
	})

	t.Run("mail failure queues message and still succeeds", func(t *testing.T) {
		testDB.Truncate(t)
		mailer.SetError(errors.New("smtp unavailable"))
		defer mailer.SetError(nil)

		result, err := services.Auth.Registration(ctx, service.RegistrationInput{
			Email: "queued@example.com", Password: "password123", Name: "Queued",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)

		pending, err := repos.Outbox.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "queued@example.com", pending[0].Message.Data().To)
		assert.Equal(t, "smtp unavailable", pending[0].LastError)

		mailer.SetError(nil)
		dispatcher := mail.NewDispatcher(repos.Outbox, mailer, 0, testutil.DiscardLogger())
		require.NoError(t, dispatcher.Flush(ctx))

		pending, err = repos.Outbox.ListPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

// cancellingMailer cancels the caller's request mid-send and then fails the
// send the way a context-aware SMTP client does.
type cancellingMailer struct {
	cancel context.CancelFunc
}

func (m *cancellingMailer) SendActivationMail(ctx context.Context, _, _ string) error {
	m.cancel()
	<-ctx.Done()
	return ctx.Err()
}

func TestAuthService_Registration_CancelledRequestQueuesMail(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	tokenService, err := service.NewTokenService(repos.Token, service.TokenConfig{
		AccessSecret:    "access",
		RefreshSecret:   "refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	authService := service.NewAuthService(repos.User, repos.Outbox, tokenService,
		&cancellingMailer{cancel: cancel}, testutil.DiscardLogger())

	// Token issue runs on the dead context, so the call itself may fail.
	_, _ = authService.Registration(ctx, service.RegistrationInput{
		Email: "cancelled@example.com", Password: "password123", Name: "Cancelled",
	})

	user, err := repos.User.GetByEmail(context.Background(), "cancelled@example.com")
	require.NoError(t, err)

	pending, err := repos.Outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, user.Email, pending[0].Message.Data().To)
	assert.Equal(t, user.ActivationLink, pending[0].Message.Data().ActivationLink)
	assert.Equal(t, context.Canceled.Error(), pending[0].LastError)
}

func TestAuthService_Login(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos, services := testutil.NewTestServices(t, testDB, testutil.NewFakeMailer())
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().WithEmail("login@example.com").Build(t, testDB.DB)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "login@example.com", password, nil},
		{"email is case insensitive", "LOGIN@example.com", password, nil},
		{"wrong password", "login@example.com", "wrongpassword", domain.ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", password, domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := services.Auth.Login(ctx, service.LoginInput{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
			assert.Equal(t, user.Email, result.User.Email)
		})
	}

	t.Run("failed login leaves user unmodified", func(t *testing.T) {
		before, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)

		_, err = services.Auth.Login(ctx, service.LoginInput{Email: user.Email, Password: "wrongpassword"})
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)

		after, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	})

	t.Run("concurrent logins keep one token row", func(t *testing.T) {
		const workers = 8
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			issued = map[string]bool{}
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := services.Auth.Login(ctx, service.LoginInput{Email: user.Email, Password: password})
				if assert.NoError(t, err) {
					mu.Lock()
					issued[result.RefreshToken] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		var count int64
		require.NoError(t, testDB.DB.Model(&domain.Token{}).Where("user_id = ?", user.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		stored, err := repos.Token.GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, issued[stored.RefreshToken], "stored token must be one of the issued tokens")
	})
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	_, services := testutil.NewTestServices(t, testDB, testutil.NewFakeMailer())
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, testDB.DB)

	login := func(t *testing.T) *service.AuthResult {
		t.Helper()
		result, err := services.Auth.Login(ctx, service.LoginInput{Email: user.Email, Password: password})
		require.NoError(t, err)
		return result
	}

	t.Run("refresh rotates token and old one is rejected", func(t *testing.T) {
		t1 := login(t).RefreshToken

		rotated, err := services.Auth.RefreshTokens(ctx, t1)
		require.NoError(t, err)
		assert.NotEqual(t, t1, rotated.RefreshToken)
		assert.Equal(t, user.ID, rotated.User.ID)

		_, err = services.Auth.RefreshTokens(ctx, t1)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		_, err = services.Auth.RefreshTokens(ctx, rotated.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("logout revokes refresh token", func(t *testing.T) {
		token := login(t).RefreshToken

		require.NoError(t, services.Auth.Logout(ctx, token))

		_, err := services.Auth.RefreshTokens(ctx, token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		token := login(t).RefreshToken

		require.NoError(t, services.Auth.Logout(ctx, token))
		assert.NoError(t, services.Auth.Logout(ctx, token))
		assert.NoError(t, services.Auth.Logout(ctx, ""))
	})

	t.Run("refresh rejects missing and invalid tokens", func(t *testing.T) {
		_, err := services.Auth.RefreshTokens(ctx, "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		_, err = services.Auth.RefreshTokens(ctx, "garbage")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		access := login(t).AccessToken
		_, err = services.Auth.RefreshTokens(ctx, access)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("concurrent refresh with the same token succeeds once", func(t *testing.T) {
		token := login(t).RefreshToken

		const workers = 5
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := services.Auth.RefreshTokens(ctx, token)
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
	})
}

func TestAuthService_ActivateAccount(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos, services := testutil.NewTestServices(t, testDB, testutil.NewFakeMailer())
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	err := services.Auth.ActivateAccount(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrInvalidActivationLink)

	err = services.Auth.ActivateAccount(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidActivationLink)

	require.NoError(t, services.Auth.ActivateAccount(ctx, user.ActivationLink))

	activated, err := repos.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActivated)

	err = services.Auth.ActivateAccount(ctx, user.ActivationLink)
	assert.ErrorIs(t, err, domain.ErrInvalidActivationLink)
}

func TestAuthService_GetUser(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	_, services := testutil.NewTestServices(t, testDB, testutil.NewFakeMailer())
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithName("Profile").Activated().Build(t, testDB.DB)

	dto, err := services.Auth.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserDto{ID: user.ID, Email: user.Email, Name: "Profile", IsActivated: true}, *dto)

	_, err = services.Auth.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
