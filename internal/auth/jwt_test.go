package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/manuscript-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = models.User{ID: "user-1", Email: "a@x.com"}

func newManagerAt(t *testing.T, at *time.Time) *TokenManager {
	t.Helper()
	m := NewTokenManager("test-secret")
	m.now = func() time.Time { return *at }
	return m
}

func TestGenerateAndValidateJWT(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newManagerAt(t, &now)

	tok, exp, err := m.GenerateJWT(testUser)
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour), exp)

	claims, err := m.ValidateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestValidateJWTExpiryBoundary(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	m := newManagerAt(t, &clock)

	tok, _, err := m.GenerateJWT(testUser)
	require.NoError(t, err)

	clock = issued.Add(time.Hour)
	_, err = m.ValidateJWT(tok)
	require.NoError(t, err, "token must be accepted at T+1h")

	clock = issued.Add(2*time.Hour - time.Second)
	_, err = m.ValidateJWT(tok)
	require.NoError(t, err)

	clock = issued.Add(2 * time.Hour)
	_, err = m.ValidateJWT(tok)
	require.ErrorIs(t, err, ErrTokenInvalid, "no leeway at the expiry instant")

	clock = issued.Add(3 * time.Hour)
	_, err = m.ValidateJWT(tok)
	require.ErrorIs(t, err, ErrTokenInvalid, "token must be rejected at T+3h")
}

func TestValidateJWTRejects(t *testing.T) {
	now := time.Now()
	m := newManagerAt(t, &now)

	other := NewTokenManager("other-secret")
	foreign, _, err := other.GenerateJWT(testUser)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "user-1"})
	noExpStr, err := noExp.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	})
	noneStr, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"wrong signature": foreign,
		"malformed":       "not.a.token",
		"garbage":         "abc",
		"missing exp":     noExpStr,
		"alg none":        noneStr,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.ValidateJWT(tok)
			require.ErrorIs(t, err, ErrTokenInvalid)
		})
	}

	_, err = m.ValidateJWT("")
	require.ErrorIs(t, err, ErrTokenMissing)
}

func TestJWTMiddleware(t *testing.T) {
	m := NewTokenManager("test-secret")
	valid, _, err := m.GenerateJWT(testUser)
	require.NoError(t, err)

	var gotClaims *Claims
	protected := m.JWTMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, `{"error":"Token required"}`},
		{"raw token without prefix", valid, http.StatusUnauthorized, `{"error":"Token required"}`},
		{"lowercase scheme", "bearer " + valid, http.StatusUnauthorized, `{"error":"Token required"}`},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, `{"error":"Token required"}`},
		{"bad token", "Bearer abc.def.ghi", http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"valid", "Bearer " + valid, http.StatusNoContent, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotClaims = nil
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
				assert.Nil(t, gotClaims, "downstream handler must not run")
				return
			}
			require.NotNil(t, gotClaims)
			assert.Equal(t, "user-1", gotClaims.UserID)
			assert.Equal(t, "a@x.com", gotClaims.Email)
		})
	}
}
