package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer      = "insight-api"
	accessTokenType  = "access"
	DefaultAccessTTL = 12 * time.Hour
)

// Scopes carried by API tokens.
const (
	ScopeRead          = "insight:read"
	ScopeWrite         = "insight:write"
	ScopeRevealSecrets = "secrets:reveal"
)

var ErrInvalidToken = errors.New("invalid token")

// APIClaims holds the stateless authorization data for API callers.
type APIClaims struct {
	Scopes    []string `json:"scopes,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *APIClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateAccessToken mints a bearer token for subject valid for ttl.
func (s *TokenService) GenerateAccessToken(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	now := time.Now()
	claims := APIClaims{
		Scopes:    scopes,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates the signature, expiry, issuer and token type.
func (s *TokenService) VerifyAccessToken(tokenString string) (*APIClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &APIClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 🛡️ Zero-Trust: Force the signing method check
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*APIClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}
	if claims.TokenType != accessTokenType {
		return nil, fmt.Errorf("%w: invalid token type: expected access", ErrInvalidToken)
	}
	return claims, nil
}
