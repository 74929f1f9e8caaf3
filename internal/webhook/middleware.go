package webhook

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	headerAPIKey  = "X-Webhook-API-Key"
	contextKeyKey = "webhookKey"
)

// KeyLookup resolves an active key by hash.
type KeyLookup interface {
	GetByHash(ctx context.Context, keyHash string) (APIKey, error)
}

// APIKeyAuthMiddleware validates the X-Webhook-API-Key header and stores
// the resolved key on the gin context.
func APIKeyAuthMiddleware(keys KeyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(headerAPIKey)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		key, err := keys.GetByHash(c.Request.Context(), HashKey(apiKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		if len(key.AllowedDomains) > 0 {
			origin := c.GetHeader("Origin")
			if origin == "" {
				origin = c.GetHeader("Referer")
			}
			if !isDomainAllowed(origin, key.AllowedDomains) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "domain not allowed"})
				return
			}
		}

		c.Set(contextKeyKey, key)
		c.Next()
	}
}

func keyFromContext(c *gin.Context) (APIKey, bool) {
	v, ok := c.Get(contextKeyKey)
	if !ok {
		return APIKey{}, false
	}
	key, ok := v.(APIKey)
	return key, ok
}

// isDomainAllowed checks if the origin matches any of the allowed domains.
// Supports exact match and wildcard subdomains (e.g., "*.example.com").
func isDomainAllowed(origin string, allowedDomains []string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		switch {
		case domain == "*":
			return true
		case strings.HasPrefix(domain, "*."):
			if strings.HasSuffix(host, domain[1:]) || host == domain[2:] {
				return true
			}
		case host == domain:
			return true
		}
	}
	return false
}
