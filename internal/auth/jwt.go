package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid access token")

// Claims identify an organizer or admin. The subject is the staff user id.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string { return c.Subject }

// Manager verifies HS256 access tokens minted by the identity service.
// Minting is kept for local tooling and tests.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
	leeway    time.Duration
}

type Option func(*Manager)

// WithIssuer pins the iss claim on minted tokens and requires it on verify.
func WithIssuer(iss string) Option {
	return func(m *Manager) { m.issuer = iss }
}

// WithLeeway tolerates clock skew between the identity service and us.
func WithLeeway(d time.Duration) Option {
	return func(m *Manager) { m.leeway = d }
}

func NewManager(secret string, accessTTL time.Duration, opts ...Option) *Manager {
	m := &Manager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) GenerateAccessToken(userID, email, role string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Email:     email,
		Role:      role,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != "access" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
