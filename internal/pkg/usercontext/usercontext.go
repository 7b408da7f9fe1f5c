package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	IsLoggedIn     bool   `json:"is_logged_in"`
	OrganizationID string `json:"organization_id"`
	OrgRole        string `json:"org_role"`
}

// HasOrganization reports whether this user belongs to an organization.
func (uc UserContext) HasOrganization() bool {
	return uc.OrganizationID != ""
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals("USER_CONTEXT"); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetOrganizationID returns the current user's organization, or "" if the
// user has not completed onboarding.
func GetOrganizationID(c *fiber.Ctx) string {
	return GetUserContext(c).OrganizationID
}

// HasOrganization reports whether the current user belongs to an organization.
func HasOrganization(c *fiber.Ctx) bool {
	return GetUserContext(c).HasOrganization()
}
