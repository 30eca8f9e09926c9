// Package identity verifies bearer tokens and resolves them to the subject
// id used as a person's userId.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookclub/internal/config"
	"bookclub/pkg/domain"
)

// Verifier resolves a token to its subject. Failures are domain.InvalidTokenError.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// DevSecret signs development tokens when no JWT secret is configured.
const DevSecret = "bookclub-development-secret"

// New builds the verifier selected by cfg.Mode.
func New(cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Mode {
	case config.AuthGoogle:
		return NewGoogleVerifier(cfg.GoogleClientID)
	case config.AuthHMAC, "":
		secret := cfg.JWTSecret
		if secret == "" {
			secret = DevSecret
		}
		v, err := NewHMACVerifier([]byte(secret), cfg.JWTIssuer)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("identity: unknown auth mode %q", cfg.Mode)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.InvalidTokenError{Reason: "missing bearer token"}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.InvalidTokenError{Reason: "missing bearer token"}
	}
	return token, nil
}

func invalid(err error) error {
	var tokenErr domain.InvalidTokenError
	if errors.As(err, &tokenErr) {
		return tokenErr
	}
	return domain.InvalidTokenError{Reason: err.Error()}
}

// StaticVerifier maps fixed tokens to subjects.
type StaticVerifier map[string]string

func (v StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	subject, ok := v[token]
	if !ok || subject == "" {
		return "", domain.InvalidTokenError{Reason: "unknown token"}
	}
	return subject, nil
}
