package service

import (
	"context"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newAccountService(t *testing.T) (*AccountService, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	middleware.InitMiddleware(&config.Config{JWTSecret: testSecret}, rdb)
	users := repository.NewUserRepository(testutil.NewTestDB(t))
	return NewAccountService(users, testSecret, rdb), rdb
}

func TestAccountService_SignupAndLogin(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, &forms.SignupForm{
		Username: "leo",
		Email:    "leo@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotZero(t, res.User.ID)
	assert.NotEqual(t, "correct-horse", res.User.Password)

	claims, err := middleware.ParseToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "leo", claims.Username)
	assert.WithinDuration(t, time.Now().Add(TokenLifetime), claims.ExpiresAt, time.Minute)

	login, err := svc.Login(ctx, &forms.LoginForm{Username: "leo", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, &forms.LoginForm{Username: "leo", Password: "wrong-horse"})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Login(ctx, &forms.LoginForm{Username: "ghost", Password: "whatever1"})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAccountService_SignupRejectsDuplicates(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, &forms.SignupForm{Username: "leo", Email: "leo@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, &forms.SignupForm{Username: "leo", Email: "LEO@example.com", Password: "correct-horse"})
	assertCode(t, err, models.CodeValidation)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "username")
	assert.Contains(t, appErr.Fields, "email")
}

func TestAccountService_SignupValidation(t *testing.T) {
	svc, _ := newAccountService(t)

	_, err := svc.Signup(context.Background(), &forms.SignupForm{Username: "x", Email: "bad", Password: "1"})
	assertCode(t, err, models.CodeValidation)
}

func TestAccountService_LogoutRevokesToken(t *testing.T) {
	svc, rdb := newAccountService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, &forms.SignupForm{Username: "mia", Email: "mia@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := middleware.ParseToken(ctx, res.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims))

	ttl, err := rdb.TTL(ctx, middleware.RevokedTokenKey(claims.JTI)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, err = middleware.ParseToken(ctx, res.Token)
	assert.Error(t, err)
}

func TestAccountService_LogoutWithoutRedis(t *testing.T) {
	svc := NewAccountService(nil, testSecret, nil)
	assert.NoError(t, svc.Logout(context.Background(), &middleware.Claims{JTI: "x", ExpiresAt: time.Now().Add(time.Hour)}))
}
