package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RoleAdmin may act on any lead and run batch operations.
	RoleAdmin = "admin"
	// RoleAgent may act on leads assigned to them.
	RoleAgent = "agent"
)

// Identity is the authenticated caller, independent of gin.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	IsAdmin() bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID        { return i.userID }
func (i *identity) Roles() []string          { return i.roles }
func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }
func (i *identity) IsAdmin() bool            { return i.HasRole(RoleAdmin) }
func (i *identity) IsAuthenticated() bool    { return i.authenticated }

// NewIdentity builds an authenticated identity, mainly for tests and workers.
func NewIdentity(userID uuid.UUID, roles ...string) Identity {
	return &identity{userID: userID, roles: roles, authenticated: true}
}

// GetIdentity extracts the Identity set by AuthRequired. An unauthenticated
// identity is returned when the request carries none.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := raw.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	var roles []string
	if v, ok := c.Get(ContextRolesKey); ok {
		roles, _ = v.([]string)
	}
	return &identity{userID: uid, roles: roles, authenticated: true}
}

// MustGetIdentity aborts with 401 and returns nil when the caller is anonymous.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
