package auth

import (
	"context"

	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/logger"
)

// Provider verifies ID tokens presented by signed-in browsers
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

// NewProvider returns a Firebase verifier when token verification is on,
// and nil otherwise so the middleware lets requests through unauthenticated.
func NewProvider(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (Provider, error) {
	if !cfg.Firebase.VerifyTokens {
		log.Info("firebase token verification disabled")
		return nil, nil
	}
	return NewFirebaseAuth(ctx, cfg)
}
