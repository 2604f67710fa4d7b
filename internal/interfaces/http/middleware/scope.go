package middleware

import (
	"net/http"
	"strings"

	"github.com/freteflow/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Headers and context keys identifying the organization, branch and actor of
// a request. Every ledger route is scoped; requests without a valid scope are
// rejected before reaching a handler.
const (
	OrganizationIDKey    = "organization_id"
	BranchIDKey          = "branch_id"
	ActorIDKey           = "actor_id"
	OrganizationIDHeader = "X-Organization-ID"
	BranchIDHeader       = "X-Branch-ID"
	ActorIDHeader        = "X-Actor-ID"
)

// ScopeConfig holds scope middleware configuration
type ScopeConfig struct {
	// SkipPaths are paths served without a scope (health checks)
	SkipPaths []string
	// ActorRequired rejects requests without an X-Actor-ID header
	ActorRequired bool
}

// DefaultScopeConfig returns the default scope middleware configuration
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		SkipPaths:     []string{"/health", "/healthz", "/ready"},
		ActorRequired: false,
	}
}

// Scope extracts the organization, branch and actor identifiers from request
// headers with default configuration
func Scope() gin.HandlerFunc {
	return ScopeWithConfig(DefaultScopeConfig())
}

// ScopeWithConfig returns scope middleware with custom configuration
func ScopeWithConfig(cfg ScopeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		organizationID, err := parseHeaderUUID(c, OrganizationIDHeader)
		if err != nil || organizationID == uuid.Nil {
			respondUnauthorized(c, "Valid "+OrganizationIDHeader+" header required")
			return
		}
		branchID, err := parseHeaderUUID(c, BranchIDHeader)
		if err != nil || branchID == uuid.Nil {
			respondUnauthorized(c, "Valid "+BranchIDHeader+" header required")
			return
		}
		actorID, err := parseHeaderUUID(c, ActorIDHeader)
		if err != nil {
			respondUnauthorized(c, "Invalid "+ActorIDHeader+" header")
			return
		}
		if cfg.ActorRequired && actorID == uuid.Nil {
			respondUnauthorized(c, "Valid "+ActorIDHeader+" header required")
			return
		}

		c.Set(OrganizationIDKey, organizationID)
		c.Set(BranchIDKey, branchID)
		c.Set(ActorIDKey, actorID)

		ctx := c.Request.Context()
		ctx = logger.WithOrganizationID(ctx, organizationID.String())
		ctx = logger.WithBranchID(ctx, branchID.String())
		if actorID != uuid.Nil {
			ctx = logger.WithActorID(ctx, actorID.String())
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func parseHeaderUUID(c *gin.Context, header string) (uuid.UUID, error) {
	value := c.GetHeader(header)
	if value == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(value)
}

// GetOrganizationID retrieves the organization ID set by the scope middleware
func GetOrganizationID(c *gin.Context) uuid.UUID {
	return getUUID(c, OrganizationIDKey)
}

// GetBranchID retrieves the branch ID set by the scope middleware
func GetBranchID(c *gin.Context) uuid.UUID {
	return getUUID(c, BranchIDKey)
}

// GetActorID retrieves the actor ID set by the scope middleware.
// Returns uuid.Nil for anonymous requests.
func GetActorID(c *gin.Context) uuid.UUID {
	return getUUID(c, ActorIDKey)
}

func getUUID(c *gin.Context, key string) uuid.UUID {
	if value, exists := c.Get(key); exists {
		if id, ok := value.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
