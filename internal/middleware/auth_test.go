package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mkorchagin/product-catalog/internal/service"
)

var secret = []byte("middleware-test-secret")

func callWithHeader(t *testing.T, header string) (error, string) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	next := func(c echo.Context) error {
		seen = Username(c)
		return c.NoContent(http.StatusOK)
	}

	err := RequireAuth(secret)(next)(c)
	return err, seen
}

func TestRequireAuthValidToken(t *testing.T) {
	token, err := service.SignAccessToken("alice", secret, service.AccessTokenTTL)
	require.NoError(t, err)

	err, username := callWithHeader(t, "Bearer "+token)
	require.NoError(t, err)
	require.Equal(t, "alice", username)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	err, _ := callWithHeader(t, "")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireAuthNotBearer(t *testing.T) {
	err, _ := callWithHeader(t, "Basic abc123")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireAuthGarbageToken(t *testing.T) {
	err, _ := callWithHeader(t, "Bearer garbage")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}
