package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
	"chatWs/internal/shared/auth"
)

// ErrUserInactive is returned when the token subject has no active account.
var ErrUserInactive = errors.New("user not found or inactive")

// Authenticator turns a bearer token into a verified identity.
type Authenticator struct {
	validator auth.TokenValidator
	users     port.UserDirectory
}

func NewAuthenticator(validator auth.TokenValidator, users port.UserDirectory) *Authenticator {
	return &Authenticator{validator: validator, users: users}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, auth.ErrMissingToken
	}

	claims, err := a.validator.Validate(token)
	if err != nil {
		slog.Warn("token validation failed", slog.Any("error", err))
		return domain.Identity{}, err
	}

	user, err := a.users.FindUser(ctx, claims.Username())
	if errors.Is(err, port.ErrUserNotFound) {
		return domain.Identity{}, fmt.Errorf("%w: %s", ErrUserInactive, claims.Username())
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("lookup user %s: %w", claims.Username(), err)
	}
	if !user.Active {
		return domain.Identity{}, fmt.Errorf("%w: %s", ErrUserInactive, claims.Username())
	}

	return domain.Identity{UserID: user.ID, Username: user.Username}, nil
}
