// Package auth verifies caller tokens and maps them to wallet identities.
package auth

import (
	"strings"
	"time"

	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrUnauthenticated is returned for a missing, malformed or expired token.
var ErrUnauthenticated = errors.New("unauthenticated")

// AppClaims defines the custom claims for the application
type AppClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id,omitempty"`
}

// Identity returns the wallet identity of the token's (tenant, subject).
func (c *AppClaims) Identity() models.Identity {
	return models.IdentityFromSubject(c.TenantID, c.Subject)
}

// JWTManager handles JWT generation and validation
type JWTManager struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWTManager
func NewJWTManager(secretKey string, issuer string, tokenDuration time.Duration) (*JWTManager, error) {
	if len(secretKey) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if tokenDuration <= 0 {
		tokenDuration = time.Hour
	}
	return &JWTManager{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		tokenDuration: tokenDuration,
		now:           time.Now,
	}, nil
}

// Generate creates a new JWT token for subject within tenantID.
func (m *JWTManager) Generate(subject, tenantID string) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := m.now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   subject,
		},
		TenantID: tenantID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate validates the JWT token and returns the claims
func (m *JWTManager) Validate(tokenString string) (*AppClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthenticated, err.Error())
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		return nil, errors.Wrap(ErrUnauthenticated, "invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.Wrap(ErrUnauthenticated, "token has no subject")
	}
	return claims, nil
}

// FromAuthorizationHeader validates a "Bearer <token>" header value.
func (m *JWTManager) FromAuthorizationHeader(header string) (*AppClaims, error) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil, errors.Wrap(ErrUnauthenticated, "missing bearer token")
	}
	return m.Validate(strings.TrimSpace(header[len(prefix):]))
}
