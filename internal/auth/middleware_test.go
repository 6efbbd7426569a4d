package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, claims models.Claims) (*models.User, error) {
	args := m.Called(ctx, claims)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

const secret = "test-secret"

func issue(t *testing.T, c models.Claims, ttl time.Duration) string {
	t.Helper()
	tok, err := NewHMACVerifier(secret, "ms-booking").Issue(c, ttl)
	require.NoError(t, err)
	return tok
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/events/list/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func chain(resolver UserResolver, gate func(http.Handler) http.Handler) (http.Handler, *Principal) {
	var seen Principal
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := PrincipalFrom(r.Context()); p != nil {
			seen = *p
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mw := Middleware(NewHMACVerifier(secret, "ms-booking"), resolver, "admin", logger.NewWriterLogger(io.Discard))
	return mw(gate(final)), &seen
}

func TestHMACRoundTrip(t *testing.T) {
	v := NewHMACVerifier(secret, "ms-booking")
	tok, err := v.Issue(models.Claims{Subject: "s1", Email: "a@example.com", Roles: []string{"admin"}}, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.True(t, claims.HasRole("admin"))

	_, err = NewHMACVerifier("other", "ms-booking").Verify(context.Background(), tok)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	expired, err := v.Issue(models.Claims{Email: "a@example.com"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestMissingOrMalformedTokenIs401(t *testing.T) {
	resolver := new(MockResolver)
	h, _ := chain(resolver, Require(Authenticated))

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "garbage").Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestResolverFailureIs401(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: inactive", models.ErrUnauthorized))
	h, _ := chain(resolver, Require(Authenticated))

	rec := serve(h, issue(t, models.Claims{Email: "gone@example.com"}, time.Minute))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatedUserCannotReachAdmin(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&models.User{ID: 1, Email: "u@example.com", IsActive: true}, nil)

	h, _ := chain(resolver, RequireAdmin)
	assert.Equal(t, http.StatusForbidden, serve(h, issue(t, models.Claims{Email: "u@example.com"}, time.Minute)).Code)

	h, seen := chain(resolver, Require(Authenticated))
	assert.Equal(t, http.StatusNoContent, serve(h, issue(t, models.Claims{Email: "u@example.com"}, time.Minute)).Code)
	assert.False(t, seen.Admin)
	assert.Equal(t, int64(1), seen.User.ID)
}

func TestAdminByStaffFlagOrRole(t *testing.T) {
	staff := new(MockResolver)
	staff.On("Resolve", mock.Anything, mock.Anything).Return(&models.User{ID: 2, IsStaff: true, IsActive: true}, nil)
	h, seen := chain(staff, RequireAdmin)
	assert.Equal(t, http.StatusNoContent, serve(h, issue(t, models.Claims{Email: "s@example.com"}, time.Minute)).Code)
	assert.True(t, seen.Admin)

	plain := new(MockResolver)
	plain.On("Resolve", mock.Anything, mock.Anything).Return(&models.User{ID: 3, IsActive: true}, nil)
	h, seen = chain(plain, RequireAdmin)
	tok := issue(t, models.Claims{Email: "r@example.com", Roles: []string{"admin"}}, time.Minute)
	assert.Equal(t, http.StatusNoContent, serve(h, tok).Code)
	assert.True(t, seen.Admin)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Anonymous, Classify(nil))
	assert.Equal(t, Anonymous, Classify(&Principal{}))
	assert.Equal(t, Authenticated, Classify(&Principal{User: &models.User{ID: 1}}))
	assert.Equal(t, Admin, Classify(&Principal{User: &models.User{ID: 1}, Admin: true}))
}

func TestRequireWithoutMiddlewareIs401(t *testing.T) {
	h := Require(Authenticated)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not be reached")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(req)
	assert.Error(t, err)

	req.Header.Set("Authorization", "bearer abc.def")
	tok, err := ExtractTokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	req.Header.Set("Authorization", "Bearer a b")
	_, err = ExtractTokenFromRequest(req)
	assert.True(t, err != nil && !errors.Is(err, models.ErrUnauthorized))
}
