package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ms-booking/internal/models"
)

// Verifier checks a raw bearer token and returns its identity claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (models.Claims, error)
}

// ExtractTokenFromRequest extracts the bearer token from the Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// tokenClaims accepts both a flat roles list and the Keycloak realm_access layout.
type tokenClaims struct {
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	PreferredUsername string   `json:"preferred_username"`
	Roles             []string `json:"roles,omitempty"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access,omitempty"`
	jwt.RegisteredClaims
}

func (c tokenClaims) toClaims() models.Claims {
	name := c.Name
	if name == "" {
		name = c.PreferredUsername
	}
	roles := append([]string{}, c.Roles...)
	roles = append(roles, c.RealmAccess.Roles...)
	return models.Claims{
		Subject: c.Subject,
		Email:   c.Email,
		Name:    name,
		Roles:   roles,
	}
}

// HMACVerifier validates HS256 tokens signed with a shared secret.
// Used for local development and tests; production uses OIDC.
type HMACVerifier struct {
	secret []byte
	issuer string
}

func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (models.Claims, error) {
	var claims tokenClaims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	_, err := jwt.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	return claims.toClaims(), nil
}

// Issue signs a token for the given identity.
func (v *HMACVerifier) Issue(c models.Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: c.Email,
		Name:  c.Name,
		Roles: c.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
