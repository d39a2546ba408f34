package services

import (
	"context"
	"errors"

	"socialsellers/internal/models"

	"github.com/rs/zerolog"
)

type identityStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Gate resolves bearer tokens into users. Role checks are a separate step,
// see RequireRole.
type Gate struct {
	tokens *TokenService
	users  identityStore
	logger zerolog.Logger
}

func NewGate(tokens *TokenService, users identityStore, logger zerolog.Logger) *Gate {
	return &Gate{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

func (g *Gate) ResolveIdentity(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	email, err := g.tokens.Validate(token)
	if err != nil {
		g.logger.Debug().Err(err).Msg("Invalid token")
		return nil, ErrUnauthenticated
	}

	user, err := g.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		g.logger.Warn().Str("email", email).Msg("Token subject no longer exists")
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequireRole returns a *ForbiddenError listing every allowed role when user
// does not hold one of them.
func RequireRole(user *models.User, allowed ...models.Role) error {
	if user == nil {
		return ErrUnauthenticated
	}
	for _, r := range allowed {
		if user.Role == r {
			return nil
		}
	}
	return &ForbiddenError{Allowed: allowed}
}
