package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/session"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// This centralizes session handling so controllers only read the context.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth uses its own fiber session store on OAuth routes; skip ours there
	// to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous(c)
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous(c)
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)

	// Organization membership with session-first strategy: resolve once from
	// the DB, then keep it in the session.
	orgID := session.GetSessionValue(c, usercontext.KeyOrgID)
	orgRole := session.GetSessionValue(c, usercontext.KeyOrgRole)
	if orgID == "" {
		orgRepo := repository.GetGlobalFactory().GetOrganizationRepository()
		if membership, err := orgRepo.GetMembershipByUser(userID.(uint)); err == nil {
			orgID = membership.OrganizationID
			orgRole = membership.Role
			_ = session.SetSessionValue(c, usercontext.KeyOrgID, orgID)
			_ = session.SetSessionValue(c, usercontext.KeyOrgRole, orgRole)
		}
	}

	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:         userID.(uint),
		Username:       username,
		IsLoggedIn:     true,
		OrganizationID: orgID,
		OrgRole:        orgRole,
	})
	c.Locals(usercontext.KeyFromProtected, true)

	return c.Next()
}

func anonymous(c *fiber.Ctx) error {
	c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
	c.Locals(usercontext.KeyFromProtected, false)
	return c.Next()
}
