package httpserver

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"luminix/internal/session"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
	claimsKey       = "sessionClaims"
)

// requestID propagates or assigns a request id.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requireSession(v sessionVerifier, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.Verify(c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, logger, err)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// optionalSession attaches claims when a valid token is present. Anonymous
// requests and bad tokens continue without claims.
func optionalSession(v sessionVerifier, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.TrimSpace(header) != "" {
			claims, err := v.Verify(header)
			if err == nil {
				c.Set(claimsKey, claims)
			} else {
				logger.Printf("http: ignoring session request_id=%s err=%v", c.GetString(requestIDKey), err)
			}
		}
		c.Next()
	}
}

// requireConfig short-circuits with 500 before any external call when secrets are missing.
func requireConfig(logger *log.Logger, check ConfigCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(); err != nil {
				writeError(c, logger, err)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func sessionClaims(c *gin.Context) (session.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return session.Claims{}, false
	}
	claims, ok := v.(session.Claims)
	return claims, ok
}

func writeJSON(c *gin.Context, payload gin.H) {
	payload["success"] = true
	c.JSON(http.StatusOK, payload)
}
