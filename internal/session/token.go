package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "ytdash"

// Claims is the payload of a session token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies session tokens with a shared HMAC secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a signer for secret. An empty secret is rejected.
func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: session secret is empty", shared.ErrInvalidConfig)
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// Sign issues a token for s that expires with it.
func (t *Tokens) Sign(s *models.Session) (string, error) {
	claims := Claims{
		Email: s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   s.UserID,
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
//
// Returns [shared.ErrTokenExpired] for a well-signed but expired token and [shared.ErrTokenInvalid] otherwise.
func (t *Tokens) Parse(token string) (*Claims, error) {
	return t.parse(token,
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
}

// ParseSignature verifies only the signature of token. Sign-out accepts expired tokens.
func (t *Tokens) ParseSignature(token string) (*Claims, error) {
	return t.parse(token, jwt.WithoutClaimsValidation())
}

func (t *Tokens) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, shared.ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenInvalid, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing jti or sub", shared.ErrTokenInvalid)
	}
	return claims, nil
}
