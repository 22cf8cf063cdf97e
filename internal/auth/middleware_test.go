package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_AcceptsCookieAndBearer(t *testing.T) {
	identity := testIdentity()
	token, err := CreateToken(identity, "secret", 1)
	require.NoError(t, err)

	var seen Identity
	handler := AuthMiddleware("secret", false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetIdentity(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, identity, seen)

	seen = Identity{}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, identity, seen)
}

func TestAuthMiddleware_InvalidCookieIsCleared(t *testing.T) {
	handler := AuthMiddleware("secret", false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, uuid.Nil, GetUserID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookieName+"=;")
}

func TestRequireAuth_Rejects(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateCSRF(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.ErrorIs(t, ValidateCSRF(req), errMissingCSRFCookie)

	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
	require.ErrorIs(t, ValidateCSRF(req), errMissingCSRFToken)

	req.Header.Set(CSRFHeaderName, "abd")
	require.ErrorIs(t, ValidateCSRF(req), errCSRFMismatch)

	req.Header.Set(CSRFHeaderName, "abc")
	require.NoError(t, ValidateCSRF(req))
}

func TestRequiresCSRF(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/", nil)
	require.False(t, RequiresCSRF(get))

	bearer := httptest.NewRequest(http.MethodPost, "/", nil)
	bearer.Header.Set("Authorization", "Bearer token")
	require.False(t, RequiresCSRF(bearer))

	cookie := httptest.NewRequest(http.MethodDelete, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "token"})
	require.True(t, RequiresCSRF(cookie))

	anonymous := httptest.NewRequest(http.MethodPost, "/", nil)
	require.True(t, RequiresCSRF(anonymous))
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("long-enough-password")
	require.NoError(t, err)
	require.NoError(t, VerifyPassword(hash, "long-enough-password"))
	require.Error(t, VerifyPassword(hash, "wrong-password"))
}
