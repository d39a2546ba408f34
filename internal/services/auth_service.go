package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// TokenService issues and validates stateless HS256 bearer tokens whose
// subject is the user's email.
type TokenService struct {
	secretKey  []byte
	defaultTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

func NewTokenService(secret string, defaultTTL time.Duration, logger zerolog.Logger) *TokenService {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &TokenService{
		secretKey:  []byte(secret),
		defaultTTL: defaultTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Issue signs a token for subject. A non-positive ttl falls back to the
// default ttl.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error generating token")
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate returns the subject carried by tokenString. It never consults
// storage.
func (s *TokenService) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
