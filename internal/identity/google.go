package identity

import (
	"context"
	"errors"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"

	"bookclub/pkg/domain"
)

// GoogleVerifier accepts Google ID tokens issued for one OAuth client id.
type GoogleVerifier struct {
	clientID string
	verify   func(token string, audience []string) error
	subject  func(token string) (string, error)
}

// NewGoogleVerifier returns a verifier for tokens whose audience is clientID.
func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("identity: google client id is required")
	}
	return &GoogleVerifier{
		clientID: clientID,
		verify: func(token string, audience []string) error {
			v := googleAuthIDTokenVerifier.Verifier{}
			return v.VerifyIDToken(token, audience)
		},
		subject: func(token string) (string, error) {
			claims, err := googleAuthIDTokenVerifier.Decode(token)
			if err != nil {
				return "", err
			}
			return claims.Sub, nil
		},
	}, nil
}

// Verify checks the signature, audience and lifetime of token and returns
// its sub claim.
func (g *GoogleVerifier) Verify(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if token == "" {
		return "", domain.InvalidTokenError{Reason: "empty token"}
	}
	if err := g.verify(token, []string{g.clientID}); err != nil {
		return "", invalid(err)
	}
	sub, err := g.subject(token)
	if err != nil {
		return "", invalid(err)
	}
	if sub == "" {
		return "", domain.InvalidTokenError{Reason: "token has no subject"}
	}
	return sub, nil
}
