package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/repository"
)

const accountContextKey = "account"

// DeviceIDHeader identifies an anonymous device for guest carts
const DeviceIDHeader = "X-Device-ID"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func authenticate(c *gin.Context, repos *repository.Repositories, logger *zap.Logger, token string) bool {
	account, err := repos.Account.GetByAPIKey(c.Request.Context(), token)
	if err != nil {
		logger.Debug("Authentication failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return false
	}

	c.Set(accountContextKey, *account)
	return true
}

// RequireAuth rejects requests without a valid bearer API key
func RequireAuth(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		if authenticate(c, repos, logger, token) {
			c.Next()
		}
	}
}

// OptionalAuth authenticates when a bearer key is present and lets
// anonymous requests through for guest-cart access.
func OptionalAuth(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		if authenticate(c, repos, logger, token) {
			c.Next()
		}
	}
}

// RequireRole gates a route group to specific account roles. Must run
// after RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := GetAccountFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		for _, role := range roles {
			if account.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

// GetAccountFromContext returns the authenticated account, if any
func GetAccountFromContext(c *gin.Context) (domain.Account, bool) {
	v, ok := c.Get(accountContextKey)
	if !ok {
		return domain.Account{}, false
	}
	account, ok := v.(domain.Account)
	return account, ok
}
