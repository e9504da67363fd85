// Package middleware provides logging, authentication, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quill/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// TokenCookie is the cookie the login flow stores the session token in.
const TokenCookie = "token"

// LoginPath is where unauthenticated visitors of protected pages are sent.
const LoginPath = "/auth/login/"

var (
	cfg *config.Config
	rdb *redis.Client
)

var (
	errNoToken      = errors.New("token required")
	errInvalidToken = errors.New("invalid or expired token")
	errRevokedToken = errors.New("token has been revoked")
)

// InitMiddleware initializes authentication middleware with the given config
// and the redis client used for token revocation (may be nil).
func InitMiddleware(c *config.Config, client *redis.Client) {
	cfg = c
	rdb = client
}

// Claims is what the auth guards extract from a verified token.
type Claims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// RevokedTokenKey is the redis key marking a token ID as logged out.
func RevokedTokenKey(jti string) string {
	return "jwt:revoked:" + jti
}

// ParseToken verifies signature, expiry and revocation of a token.
func ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}

	// Subject carries the user ID as a string per RFC 7519.
	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return nil, errInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, errInvalidToken
	}

	claims := &Claims{UserID: uint(userID)}
	claims.Username, _ = mapClaims["username"].(string)
	claims.JTI, _ = mapClaims["jti"].(string)
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	if claims.JTI != "" && rdb != nil {
		revoked, err := rdb.Exists(ctx, RevokedTokenKey(claims.JTI)).Result()
		if err == nil && revoked > 0 {
			return nil, errRevokedToken
		}
	}

	return claims, nil
}

// tokenFromRequest reads a bearer header first, then the session cookie.
func tokenFromRequest(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errInvalidToken
		}
		return parts[1], nil
	}
	if cookie := c.Cookies(TokenCookie); cookie != "" {
		return cookie, nil
	}
	return "", errNoToken
}

func authenticate(c *fiber.Ctx, tokenString string) error {
	claims, err := ParseToken(c.UserContext(), tokenString)
	if err != nil {
		return err
	}
	c.Locals("userID", claims.UserID)
	c.Locals("username", claims.Username)
	c.Locals("claims", claims)
	c.SetUserContext(WithUserID(c.UserContext(), claims.UserID))
	return nil
}

// AuthRequired guards pages that need a signed-in user. Visitors without a
// valid token are redirected to the login page with a next parameter.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := tokenFromRequest(c)
	if err == nil {
		err = authenticate(c, tokenString)
	}
	if err != nil {
		return c.Redirect(LoginURL(c.OriginalURL()), fiber.StatusFound)
	}
	return c.Next()
}

// OptionalAuth records the user when a valid token is present and never rejects.
func OptionalAuth(c *fiber.Ctx) error {
	if tokenString, err := tokenFromRequest(c); err == nil {
		_ = authenticate(c, tokenString)
	}
	return c.Next()
}

// LoginURL builds the login redirect target for next.
func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// WebSocketAuthRequired validates JWT tokens from the query string, header or
// cookie for WebSocket upgrades, where redirects are useless.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		var err error
		if tokenString, err = tokenFromRequest(c); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	if err := authenticate(c, tokenString); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Next()
}

// CurrentUserID returns the authenticated user ID, if any.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok
}

// CurrentClaims returns the verified claims of the request token, if any.
func CurrentClaims(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals("claims").(*Claims)
	return claims, ok
}
