package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookclub/pkg/domain"
)

// HMACVerifier accepts HS256 tokens signed with a shared secret. It is used
// for local development and tests.
type HMACVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// HMACOption configures an HMACVerifier.
type HMACOption func(*HMACVerifier)

// WithTimeFunc overrides the clock used for expiry checks and issuing.
func WithTimeFunc(now func() time.Time) HMACOption {
	return func(v *HMACVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewHMACVerifier returns a verifier for tokens signed with secret. When
// issuer is set the iss claim must match.
func NewHMACVerifier(secret []byte, issuer string, opts ...HMACOption) (*HMACVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("identity: hmac secret is required")
	}
	v := &HMACVerifier{secret: secret, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *HMACVerifier) Verify(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, options...); err != nil {
		return "", invalid(err)
	}
	if claims.Subject == "" {
		return "", domain.InvalidTokenError{Reason: "token has no subject"}
	}
	return claims.Subject, nil
}

// IssueToken signs a token for subject valid for ttl.
func (v *HMACVerifier) IssueToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("identity: subject is required")
	}
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
