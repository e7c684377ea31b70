// utils/auth.go
package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const businessIDKey = "businessId"

// GenerateToken signs a tenant-scoped token. Token issuance belongs to the
// auth service; this is used by tooling and tests.
func GenerateToken(secret, userID, businessID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        userID,
		"businessId": businessID,
		"exp":        now.Add(ttl).Unix(),
		"iat":        now.Unix(),
	})
	return token.SignedString([]byte(secret))
}

// Auth middleware
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:6]) == "BEARER" {
			tokenString = tokenString[7:]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}
		businessID, _ := claims["businessId"].(string)
		if _, err := uuid.Parse(businessID); err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		c.Set("userId", claims["sub"])
		c.Set(businessIDKey, businessID)
		c.Next()
	}
}

// BusinessID returns the tenant set by AuthMiddleware. On failure it writes
// the error response and returns false.
func BusinessID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(businessIDKey)
	if !exists {
		RespondWithError(c, http.StatusUnauthorized, "Business ID not found in context")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, "Invalid business ID format")
		return uuid.Nil, false
	}
	return id, true
}
