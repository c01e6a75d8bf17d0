package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/idlerpg-arena/internal/constants"
)

const (
	ctxUserID   = "userID"
	ctxUserName = "userName"
)

// setSessionCookie sets the session cookie with appropriate flags for dev/prod.
func setSessionCookie(c *gin.Context, name, value string, maxAge int) {
	secure := os.Getenv(constants.EnvSessionSecureCookie) == "1"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}

func clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1, "/", "", false, true)
}

// AuthRequired validates the session cookie and injects identity into context.
func AuthRequired(s *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(constants.CookieSessionName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
			return
		}
		claims, err := s.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrInvalidSession})
			return
		}
		c.Set(ctxUserID, claims.Sub)
		c.Set(ctxUserName, claims.Name)
		c.Next()
	}
}

// GMOnly must run after AuthRequired.
func GMOnly(isGM func(userID string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isGM(c.GetString(ctxUserID)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrGMOnly})
			return
		}
		c.Next()
	}
}
