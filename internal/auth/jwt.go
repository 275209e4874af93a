// Package auth provides JWT token management for operator actions.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleOperator marks tokens allowed to trigger operator actions
// (e.g. refunding a deposit).
const RoleOperator = "operator"

// OperatorTokenExpiry is how long an operator token stays valid.
const OperatorTokenExpiry = 12 * time.Hour

// DefaultLeeway for token validation.
const DefaultLeeway = 30 * time.Second

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token has expired.
var ErrExpiredToken = errors.New("token has expired")

// ErrNotOperator is returned when a valid token lacks the operator role.
var ErrNotOperator = errors.New("token does not carry the operator role")

// ErrEmptySubject is returned when the subject is empty.
var ErrEmptySubject = errors.New("subject cannot be empty")

// Claims represents custom JWT claims for the application.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTService handles JWT token operations.
type JWTService struct {
	secret []byte
	leeway time.Duration
}

// NewJWTService creates a new JWTService with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		leeway: DefaultLeeway,
	}
}

// NewJWTServiceWithLeeway creates a new JWTService with custom leeway.
func NewJWTServiceWithLeeway(secret string, leeway time.Duration) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		leeway: leeway,
	}
}

// GenerateOperatorToken creates a new operator token for the given subject.
func (s *JWTService) GenerateOperatorToken(subject string) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(OperatorTokenExpiry)),
		},
		Role: RoleOperator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateOperatorToken parses and validates a token and checks that it
// carries the operator role.
func (s *JWTService) ValidateOperatorToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleOperator {
		return nil, ErrNotOperator
	}

	return claims, nil
}
