package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "caller"

// authMiddleware accepts HS256 bearer tokens and stores the token subject as the caller.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing bearer token",
			})
			return
		}

		token, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Token has no subject",
			})
			return
		}

		c.Set(callerKey, subject)
		c.Next()
	}
}

// resolveOwner reconciles the userId a client sent with the authenticated caller.
// Without auth the requested id is used as-is. It writes a 403 and returns
// false when the two disagree.
func resolveOwner(c *gin.Context, requested string) (string, bool) {
	caller := c.GetString(callerKey)
	if caller == "" {
		return requested, true
	}

	if requested == "" {
		return caller, true
	}

	if requested != caller {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "userId does not match the authenticated user",
		})
		return "", false
	}

	return requested, true
}
