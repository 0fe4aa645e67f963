package jwt

import (
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/vladyslavplus/orderly/internal/domain"
)

// AccessTokenClaims is the custom JWT payload for access tokens.
type AccessTokenClaims struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// Signer signs and verifies short-lived access tokens with a symmetric key.
// Issuer and verifier share the secret, which is enough for services deployed
// from the same configuration source.
type Signer struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

// NewSigner constructs a Signer. accessTTL bounds token lifetime.
func NewSigner(secret []byte, issuer, audience string, accessTTL time.Duration) (*Signer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &Signer{secret: secret, issuer: issuer, audience: audience, accessTTL: accessTTL}, nil
}

// Sign produces a signed access token for the user. Each token gets a fresh
// jti so individual tokens stay distinguishable in logs and revocation lists.
func (s *Signer) Sign(user domain.User) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: s.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Audience:  gojwt.Audience{s.audience},
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(s.accessTTL)),
	}
	custom := AccessTokenClaims{
		Name:  user.UserName,
		Roles: user.Roles,
	}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, nil
}

// Verify parses the token, checks the signature, issuer, audience, and
// expiry, and returns both claim sets.
func (s *Signer) Verify(token string) (*gojwt.Claims, *AccessTokenClaims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, nil, fmt.Errorf("parse token: %w", err)
	}

	var std gojwt.Claims
	var custom AccessTokenClaims
	if err := parsed.Claims(s.secret, &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("verify token: %w", err)
	}

	if err := std.Validate(gojwt.Expected{
		Issuer:      s.issuer,
		AnyAudience: gojwt.Audience{s.audience},
		Time:        time.Now().UTC(),
	}); err != nil {
		return nil, nil, fmt.Errorf("validate claims: %w", err)
	}

	return &std, &custom, nil
}

// AccessTTL exposes the configured access token lifetime for responses.
func (s *Signer) AccessTTL() time.Duration {
	return s.accessTTL
}
