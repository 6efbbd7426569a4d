package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-booking/internal/models"
)

// OIDCVerifier validates ID tokens against an OIDC issuer (e.g. a Keycloak realm).
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer. An empty clientID skips the audience check.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          clientID,
		SkipClientIDCheck: clientID == "",
	})
	return &OIDCVerifier{verifier: verifier}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (models.Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	var claims tokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return models.Claims{}, fmt.Errorf("%w: failed to parse claims", models.ErrUnauthorized)
	}
	claims.Subject = idToken.Subject
	return claims.toClaims(), nil
}
