package auth

import (
	"context"

	firebase "firebase.google.com/go"
	fbauth "firebase.google.com/go/auth"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/auth"
	ierr "github.com/facto/facto/internal/errors"
	"google.golang.org/api/option"
)

type firebaseAuth struct {
	client *fbauth.Client
}

// NewFirebaseAuth builds an Admin SDK client. Without a credentials file the
// application default credentials are used.
func NewFirebaseAuth(ctx context.Context, cfg *config.Configuration) (Provider, error) {
	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Firebase is not configured").
			Mark(ierr.ErrConfiguration)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Firebase auth is not available").
			Mark(ierr.ErrConfiguration)
	}

	return &firebaseAuth{client: client}, nil
}

func (f *firebaseAuth) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	decoded, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid token").
			Mark(ierr.ErrUnauthenticated)
	}

	claims := &auth.Claims{UID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		claims.Email = email
	}
	return claims, nil
}
