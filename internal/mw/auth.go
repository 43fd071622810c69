package mw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// identityKey is the gin context key the authenticated identity is
// stored under.
const identityKey = "identity"

type claims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

func sign(secret []byte, payload string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// TokenFor mints a signed bearer token for an identity.
func TokenFor(secret []byte, identity string, ttl time.Duration) string {
	b, _ := json.Marshal(claims{Sub: identity, Exp: time.Now().Add(ttl).Unix()})
	payload := base64.RawURLEncoding.EncodeToString(b)
	return payload + "." + sign(secret, payload)
}

// ParseToken verifies a token and returns the identity it carries.
func ParseToken(secret []byte, token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", errors.New("malformed token")
	}
	if !hmac.Equal([]byte(sign(secret, parts[0])), []byte(parts[1])) {
		return "", errors.New("invalid signature")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("invalid payload")
	}
	var c claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return "", errors.New("invalid claims")
	}
	if c.Sub == "" {
		return "", errors.New("empty subject")
	}
	if c.Exp < time.Now().Unix() {
		return "", errors.New("token expired")
	}
	return c.Sub, nil
}

// Auth is a middleware that requires a valid bearer token and exposes
// its identity to handlers via Identity.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		identity, err := ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// Identity returns the authenticated identity set by Auth.
func Identity(c *gin.Context) string {
	return c.GetString(identityKey)
}
