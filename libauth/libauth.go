// Package libauth issues and validates the bearer tokens that guard the API.
package libauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotAuthorized           = errors.New("libauth: not authorized")
	ErrTokenExpired            = errors.New("libauth: token expired")
	ErrIssuedAtMissing         = errors.New("libauth: issued-at claim missing")
	ErrIssuedAtInFuture        = errors.New("libauth: issued-at claim in the future")
	ErrIdentityMissing         = errors.New("libauth: identity missing")
	ErrInvalidTokenClaims      = errors.New("libauth: invalid token claims")
	ErrTokenMissing            = errors.New("libauth: token missing")
	ErrUnexpectedSigningMethod = errors.New("libauth: unexpected signing method")
	ErrTokenParsingFailed      = errors.New("libauth: token parsing failed")
	ErrTokenSigningFailed      = errors.New("libauth: token signing failed")
	ErrInsufficientRole        = errors.New("libauth: insufficient role")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Allows reports whether a caller holding r may act where required is needed.
func (r Role) Allows(required Role) bool {
	switch required {
	case RoleAdmin:
		return r == RoleAdmin
	case RoleUser:
		return r == RoleUser || r == RoleAdmin
	default:
		return false
	}
}

type Config struct {
	SigningKey string
	TokenTTL   time.Duration
	Issuer     string
}

// Enabled is false when no signing key is configured; the API then runs
// without authentication.
func (c *Config) Enabled() bool {
	return c != nil && c.SigningKey != ""
}

type Claims struct {
	Identity string `json:"identity"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

func CreateToken(cfg *Config, identity string, role Role) (string, time.Time, error) {
	if identity == "" {
		return "", time.Time{}, ErrIdentityMissing
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Identity: identity,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SigningKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrTokenSigningFailed, err)
	}
	return signed, expiresAt, nil
}

func ValidateToken(cfg *Config, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigningMethod, t.Header["alg"])
		}
		return []byte(cfg.SigningKey), nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, ErrUnexpectedSigningMethod):
		return nil, ErrUnexpectedSigningMethod
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrTokenParsingFailed, err)
	case !token.Valid:
		return nil, ErrInvalidTokenClaims
	}
	if claims.IssuedAt == nil {
		return nil, ErrIssuedAtMissing
	}
	if claims.IssuedAt.After(time.Now().Add(time.Minute)) {
		return nil, ErrIssuedAtInFuture
	}
	if claims.Identity == "" {
		return nil, ErrIdentityMissing
	}
	if claims.Role != RoleAdmin && claims.Role != RoleUser {
		return nil, ErrInvalidTokenClaims
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash suitable for the admin_password_hash
// setting.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrNotAuthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrNotAuthorized
	}
	return nil
}
