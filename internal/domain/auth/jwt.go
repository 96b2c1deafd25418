// Package auth issues and validates the bearer tokens that identify the
// actor of every request.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "cashpoint/internal/core/context"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

var roles = []string{RoleAdmin, RoleManager, RoleCashier}

// ValidRole reports whether r is a POS role.
func ValidRole(r string) bool {
	return slices.Contains(roles, r)
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig issues tokens valid for one long shift.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "cashpoint",
		AccessTokenTTL: 12 * time.Hour,
	}
}

// tokenClaims carries the user in Subject and the tenant in "tid".
type tokenClaims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tid"`
	UserName string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
}

// JWTService signs and verifies HS256 access tokens.
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config, now: time.Now}
}

var (
	ErrEmptySecret = errors.New("jwt secret is empty")
	ErrUnknownRole = errors.New("token carries an unknown role")
)

// GenerateAccessToken signs a token for user. Used by the tenant CLI and tests.
func (s *JWTService) GenerateAccessToken(user appctx.UserContext) (string, time.Time, error) {
	if s.config.Secret == "" {
		return "", time.Time{}, ErrEmptySecret
	}
	if !slices.ContainsFunc(user.Roles, ValidRole) {
		return "", time.Time{}, ErrUnknownRole
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.AccessTokenTTL)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID: user.TenantID,
		UserName: user.UserName,
		Email:    user.Email,
		Roles:    user.Roles,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature, issuer and expiry. The first role must
// be a known one since it becomes the actor's role.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	if s.config.Secret == "" {
		return nil, ErrEmptySecret
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return []byte(s.config.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if len(claims.Roles) == 0 || !ValidRole(claims.Roles[0]) {
		return nil, ErrUnknownRole
	}

	return &appctx.UserContext{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		UserName: claims.UserName,
		Email:    claims.Email,
		Roles:    claims.Roles,
	}, nil
}
