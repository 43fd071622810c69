package mw

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token := TokenFor(testSecret, "acct_alice", time.Hour)
	identity, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "acct_alice", identity)
}

func TestParseTokenRejections(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", TokenFor([]byte("other-secret"), "acct_alice", time.Hour)},
		{"expired", TokenFor(testSecret, "acct_alice", -time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(testSecret, tc.token)
			assert.Error(t, err)
		})
	}
}

func TestParseTokenTamperedPayload(t *testing.T) {
	token := TokenFor(testSecret, "acct_alice", time.Hour)
	sig := token[strings.LastIndex(token, ".")+1:]
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"acct_admin","exp":9999999999}`)) + "." + sig

	_, err := ParseToken(testSecret, forged)
	assert.Error(t, err)
}

func TestParseTokenEmptySubject(t *testing.T) {
	token := TokenFor(testSecret, "", time.Hour)
	_, err := ParseToken(testSecret, token)
	assert.Error(t, err)
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", Auth(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, Identity(c))
	})
	return r
}

func TestAuthMiddlewareAllowsValidToken(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+TokenFor(testSecret, "acct_alice", time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acct_alice", w.Body.String())
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := newAuthRouter()

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"bad token", "Bearer junk"},
		{"expired token", "Bearer " + TokenFor(testSecret, "acct_alice", -time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
