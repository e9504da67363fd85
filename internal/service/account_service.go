package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Token claims shared with the auth middleware.
const (
	TokenIssuer   = "quill-api"
	TokenAudience = "quill-client"
	TokenLifetime = 7 * 24 * time.Hour
)

const msgBadCredentials = "Please enter a correct username and password."

// AuthResult is a freshly issued session.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AccountService signs users up, in and out.
type AccountService struct {
	users  repository.UserRepository
	secret []byte
	rdb    *redis.Client
	now    func() time.Time
}

// NewAccountService creates an AccountService signing tokens with secret.
// rdb holds revoked token IDs and may be nil, which disables revocation.
func NewAccountService(users repository.UserRepository, secret string, rdb *redis.Client) *AccountService {
	return &AccountService{users: users, secret: []byte(secret), rdb: rdb, now: time.Now}
}

// Signup registers a new account and signs it in.
func (s *AccountService) Signup(ctx context.Context, form *forms.SignupForm) (*AuthResult, error) {
	errs := form.Validate()
	if errs.Any() {
		return nil, models.NewFieldValidationError(errs)
	}

	if _, err := s.users.GetByUsername(ctx, form.Username); err == nil {
		errs.Add("username", "A user with that username already exists.")
	} else if !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		errs.Add("email", "A user with that email already exists.")
	}
	if errs.Any() {
		return nil, models.NewFieldValidationError(errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  form.Username,
		Email:     form.Email,
		Password:  string(hash),
		FirstName: form.FirstName,
		LastName:  form.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user signed up", "username", user.Username)
	return s.issue(user)
}

// Login checks credentials and issues a token.
func (s *AccountService) Login(ctx context.Context, form *forms.LoginForm) (*AuthResult, error) {
	if errs := form.Validate(); errs.Any() {
		return nil, models.NewFieldValidationError(errs)
	}

	user, err := s.users.GetByUsername(ctx, form.Username)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError(msgBadCredentials)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)); err != nil {
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}

	return s.issue(user)
}

// Logout revokes the token until it would have expired anyway.
func (s *AccountService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if s.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, middleware.RevokedTokenKey(claims.JTI), "1", ttl).Err(); err != nil {
		return models.NewInternalError(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

func (s *AccountService) issue(user *models.User) (*AuthResult, error) {
	if len(s.secret) == 0 {
		return nil, models.NewInternalError(errors.New("JWT secret not configured"))
	}

	now := s.now()
	exp := now.Add(TokenLifetime)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      newJTI(now),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: time.Unix(exp.Unix(), 0), User: user}, nil
}

func newJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8])
}
