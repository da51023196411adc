package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// context keys set by Auth
const (
	ctxUserID = "keygate.userID"
	ctxOrg    = "keygate.org"
)

// Claims is the bearer token payload issued by the platform's identity service.
type Claims struct {
	Org string `json:"org"`
	jwt.RegisteredClaims
}

// Auth validates the HS256 bearer token and stores the caller's identity on
// the request context.
func Auth(signKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if header == "" || raw == header {
			abortJSON(c, http.StatusUnauthorized, "authentication required")
			return
		}

		var claims Claims
		tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return signKey, nil
		})
		if err != nil || !tok.Valid {
			abortJSON(c, http.StatusUnauthorized, "authentication required")
			return
		}
		uid, err := uuid.FromString(claims.Subject)
		if err != nil || uid == uuid.Nil {
			abortJSON(c, http.StatusUnauthorized, "authentication required")
			return
		}

		c.Set(ctxUserID, uid)
		c.Set(ctxOrg, claims.Org)
		c.Next()
	}
}

// Logging records one structured line per request: metadata only, no payloads.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.ClientIP()),
		)
	}
}

// Recover converts panics into a generic 500.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			}
		}()
		c.Next()
	}
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// callerID returns the authenticated user set by Auth.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// callerOrg returns the authenticated caller's organization claim.
func callerOrg(c *gin.Context) string {
	return c.GetString(ctxOrg)
}
