package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sprintquest/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const devSecret = "super-secret-key-change-in-production"

// AuthService issues and checks session-scoped participant tokens
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewAuthService creates a new auth service. An empty secret falls back to a
// development key.
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if secret == "" {
		secret = devSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(secret),
		ttl:       ttl,
	}
}

// GenerateParticipantToken creates a token bound to one session and name
func (s *AuthService) GenerateParticipantToken(sessionID, name string, facilitator bool) (string, error) {
	now := time.Now()
	claims := &model.ParticipantClaims{
		SessionID:   sessionID,
		Name:        name,
		Facilitator: facilitator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateParticipantToken validates a participant JWT and returns its claims
func (s *AuthService) ValidateParticipantToken(tokenString string) (*model.ParticipantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.ParticipantClaims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.Name == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
