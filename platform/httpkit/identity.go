// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated company administrator.
// Handlers read it without depending on how the token was parsed.
type Identity interface {
	// Subject returns the token subject (admin username).
	Subject() string
	// CompanyID returns the company the administrator acts for.
	CompanyID() uuid.UUID
	// HasRole checks if the caller has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the caller is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	subject       string
	companyID     uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) Subject() string      { return i.subject }
func (i *identity) CompanyID() uuid.UUID { return i.companyID }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if company info is not present.
func GetIdentity(c *gin.Context) Identity {
	companyRaw, ok := c.Get(ContextCompanyIDKey)
	if !ok {
		return &identity{authenticated: false}
	}
	companyID, ok := companyRaw.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	subject := c.GetString(ContextSubjectKey)
	var roleList []string
	if roles, ok := c.Get(ContextRolesKey); ok {
		roleList, _ = roles.([]string)
	}

	return &identity{
		subject:       subject,
		companyID:     companyID,
		roles:         roleList,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the caller is not authenticated, it aborts with 401 and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
