package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/app/models/dto"
	"github.com/deniz/learnstack/internal/pkg/apperrors"
	"github.com/deniz/learnstack/internal/pkg/auth"
)

// fakeUserRepo is an in-memory stand-in for the user repository
type fakeUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) (int64, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return 0, apperrors.ErrEmailAlreadyExists
		}
	}
	id := f.nextID
	f.nextID++
	stored := *user
	stored.ID = id
	f.users[id] = &stored
	return id, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int64, firstName, lastName string) error {
	u, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.FirstName = firstName
	u.LastName = lastName
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id int64) error {
	u, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeUserRepo) ListUsers(_ context.Context, page, pageSize int) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

// fakeTokenRepo is an in-memory stand-in for the refresh token repository
type fakeTokenRepo struct {
	tokens map[string]*models.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (f *fakeTokenRepo) CreateToken(_ context.Context, token *models.RefreshToken) error {
	stored := *token
	f.tokens[token.Token] = &stored
	return nil
}

func (f *fakeTokenRepo) GetTokenByValue(_ context.Context, token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok || t.IsRevoked || t.ExpiryDate.Before(time.Now()) {
		return nil, apperrors.ErrTokenInvalid
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTokenRepo) RotateToken(_ context.Context, oldToken string, newToken *models.RefreshToken) error {
	t, ok := f.tokens[oldToken]
	if !ok {
		return apperrors.ErrTokenInvalid
	}
	t.IsRevoked = true
	stored := *newToken
	f.tokens[newToken.Token] = &stored
	return nil
}

func (f *fakeTokenRepo) RevokeAllUserTokens(_ context.Context, userID int64) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeTokenRepo) CleanupExpiredTokens(_ context.Context) (int64, error) {
	var count int64
	for k, t := range f.tokens {
		if t.ExpiryDate.Before(time.Now()) {
			delete(f.tokens, k)
			count++
		}
	}
	return count, nil
}

type authFixture struct {
	svc      AuthService
	users    *fakeUserRepo
	tokens   *fakeTokenRepo
	sessions *fakeSessionRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	sessions := &fakeSessionRepo{}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 720 * time.Hour,
		TokenIssuer:     "learnstack.test",
	})

	sessionService := NewSessionService(sessions, 24*time.Hour, zerolog.Nop())
	svc := NewAuthService(users, tokens, sessionService, jwtService, zerolog.Nop())

	return &authFixture{svc: svc, users: users, tokens: tokens, sessions: sessions}
}

func (fx *authFixture) createUser(t *testing.T, email, password string, role models.RoleType, active bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Email:     email,
		Password:  hash,
		FirstName: "Test",
		LastName:  "User",
		RoleType:  role,
		IsActive:  active,
	}
	id, err := fx.users.CreateUser(context.Background(), user)
	require.NoError(t, err)
	user.ID = id
	return user
}

func TestValidatePassword(t *testing.T) {
	fx := newAuthFixture(t)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "Secret123"},
		{name: "empty", password: "", wantErr: true},
		{name: "too short", password: "Ab1", wantErr: true},
		{name: "no digit", password: "OnlyLetters", wantErr: true},
		{name: "no letter", password: "12345678", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fx.svc.ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	fx := newAuthFixture(t)

	resp, err := fx.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:     "New.Student@Learnstack.App",
		Password:  "Secret123",
		FirstName: "New",
		LastName:  "Student",
	}, "Safari on iPhone", "10.0.0.1")
	require.NoError(t, err)

	// Email is normalized and the account starts as an active student
	assert.Equal(t, "new.student@learnstack.app", resp.User.Email)
	assert.Equal(t, string(models.RoleStudent), resp.User.RoleType)
	assert.NotEmpty(t, resp.Token.AccessToken)
	assert.NotEmpty(t, resp.Token.RefreshToken)

	// Registration also opens a device session
	active, err := fx.sessions.ListActiveByUser(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)
	fx.createUser(t, "taken@learnstack.app", "Secret123", models.RoleStudent, true)

	_, err := fx.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:     "taken@learnstack.app",
		Password:  "Secret123",
		FirstName: "Dup",
		LastName:  "User",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestRegister_WeakPassword(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:     "weak@learnstack.app",
		Password:  "short",
		FirstName: "Weak",
		LastName:  "User",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
}

func TestLogin(t *testing.T) {
	fx := newAuthFixture(t)
	user := fx.createUser(t, "student@learnstack.app", "Secret123", models.RoleStudent, true)

	resp, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "student@learnstack.app",
		Password: "Secret123",
	}, "Safari on iPhone", "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "Bearer", resp.Token.TokenType)
	assert.NotEmpty(t, resp.Token.AccessToken)

	stored, ok := fx.users.users[user.ID]
	require.True(t, ok)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_SecondDeviceSupersedesFirst(t *testing.T) {
	fx := newAuthFixture(t)
	user := fx.createUser(t, "student@learnstack.app", "Secret123", models.RoleStudent, true)

	_, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "Secret123",
	}, "Device A", "10.0.0.1")
	require.NoError(t, err)

	_, err = fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "Secret123",
	}, "Device B", "10.0.0.2")
	require.NoError(t, err)

	active, err := fx.sessions.ListActiveByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].DeviceInfo)
	assert.Equal(t, "Device B", *active[0].DeviceInfo)
}

func TestLogin_WrongPassword(t *testing.T) {
	fx := newAuthFixture(t)
	fx.createUser(t, "student@learnstack.app", "Secret123", models.RoleStudent, true)

	_, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "WrongPass1",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	fx := newAuthFixture(t)

	// Same error as a wrong password so account existence is not leaked
	_, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "ghost@learnstack.app", Password: "Secret123",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogin_DisabledAccount(t *testing.T) {
	fx := newAuthFixture(t)
	fx.createUser(t, "disabled@learnstack.app", "Secret123", models.RoleStudent, false)

	_, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "disabled@learnstack.app", Password: "Secret123",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestRefreshToken(t *testing.T) {
	fx := newAuthFixture(t)
	fx.createUser(t, "student@learnstack.app", "Secret123", models.RoleStudent, true)

	loginResp, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "Secret123",
	}, "Device A", "10.0.0.1")
	require.NoError(t, err)

	refreshResp, err := fx.svc.RefreshToken(context.Background(), loginResp.Token.RefreshToken)
	require.NoError(t, err)

	assert.NotEmpty(t, refreshResp.AccessToken)
	assert.NotEqual(t, loginResp.Token.RefreshToken, refreshResp.RefreshToken)

	// The old refresh token is spent after rotation
	_, err = fx.svc.RefreshToken(context.Background(), loginResp.Token.RefreshToken)
	assert.Error(t, err)
}

func TestRefreshToken_SupersededSession(t *testing.T) {
	fx := newAuthFixture(t)
	fx.createUser(t, "student@learnstack.app", "Secret123", models.RoleStudent, true)

	first, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "Secret123",
	}, "Device A", "10.0.0.1")
	require.NoError(t, err)

	// Login from a second device supersedes the first session
	_, err = fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "Secret123",
	}, "Device B", "10.0.0.2")
	require.NoError(t, err)

	// A refresh is not a new device login: the first device stays out
	_, err = fx.svc.RefreshToken(context.Background(), first.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrSessionInvalid)
}

func TestRefreshToken_Empty(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.RefreshToken(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestRefreshToken_DisabledAccount(t *testing.T) {
	fx := newAuthFixture(t)
	user := fx.createUser(t, "student@learnstack.app", "Secret123", models.RoleStudent, true)

	loginResp, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "Secret123",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, fx.users.SetActive(context.Background(), user.ID, false))

	_, err = fx.svc.RefreshToken(context.Background(), loginResp.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestLogout(t *testing.T) {
	fx := newAuthFixture(t)
	user := fx.createUser(t, "student@learnstack.app", "Secret123", models.RoleStudent, true)

	loginResp, err := fx.svc.Login(context.Background(), &dto.LoginRequest{
		Email: "student@learnstack.app", Password: "Secret123",
	}, "", "")
	require.NoError(t, err)

	sessions, err := fx.sessions.ListActiveByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sessionToken := sessions[0].SessionToken

	require.NoError(t, fx.svc.Logout(context.Background(), user.ID, sessionToken))

	// Session gone and refresh token revoked
	active, err := fx.sessions.ListActiveByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = fx.svc.RefreshToken(context.Background(), loginResp.Token.RefreshToken)
	assert.Error(t, err)

	// Logging out twice is fine
	assert.NoError(t, fx.svc.Logout(context.Background(), user.ID, sessionToken))
}
