package ingress

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/scheduler"
)

func signedToken(t *testing.T, secret []byte, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "test"})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	r := newTestEngine([]byte("secret"))
	req := httptest.NewRequest(http.MethodPost, "/trips", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerAuth_ValidTokenReachesHandler(t *testing.T) {
	secret := []byte("secret")
	r := newTestEngine(secret)

	// A valid token must clear the auth middleware; the request then
	// fails JSON binding (empty body) rather than auth, proving it got
	// past BearerAuth.
	token := signedToken(t, secret, jwt.SigningMethodHS256)
	req := httptest.NewRequest(http.MethodPost, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestBearerAuth_WrongSecretRejected(t *testing.T) {
	secret := []byte("secret")
	r := newTestEngine(secret)

	token := signedToken(t, []byte("not-the-secret"), jwt.SigningMethodHS256)
	req := httptest.NewRequest(http.MethodPost, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealth_Unauthenticated(t *testing.T) {
	r := newTestEngine([]byte("secret"))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func newTestEngine(secret []byte) http.Handler {
	logger := zap.NewNop().Sugar()
	sched := scheduler.New(nil, nil, nil, logger)
	ctrl := NewController(nil, sched, logger)
	return NewRouter(ctrl, secret)
}
