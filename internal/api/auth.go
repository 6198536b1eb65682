package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor_id"

// Claims are the bearer token claims. The subject is the numeric user id.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 bearer tokens
type JWTVerifier struct {
	Secret []byte
}

// Parse validates a token and returns the user id in its subject
func (v JWTVerifier) Parse(tokenString string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("token subject is not a user id")
	}
	return id, nil
}

// Authenticate resolves the caller from the Authorization header. Requests
// without the header continue anonymously; a bad token is rejected.
func Authenticate(verifier JWTVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := strings.TrimSpace(c.GetHeader("Authorization"))
		if authz == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortUnauthorized(c)
			return
		}
		id, err := verifier.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c)
			return
		}
		c.Set(actorKey, id)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    ErrCodeUnauthenticated,
			Message: "invalid bearer token",
		},
	})
}

// ActorID returns the authenticated user id, or 0 for anonymous callers
func ActorID(c *gin.Context) int64 {
	if v, ok := c.Get(actorKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
