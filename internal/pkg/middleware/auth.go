package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

// RequireAuth redirects anonymous visitors to the login page.
func RequireAuth(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		fm := fiber.Map{
			"type":    "error",
			"message": "Bitte melde dich an, um fortzufahren.",
		}
		return flash.WithError(c, fm).Redirect("/login")
	}
	return c.Next()
}

// RequireOrganization ensures the user has completed onboarding and
// belongs to an organization before reaching workspace pages.
func RequireOrganization(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return c.Redirect("/login")
	}
	if !uc.HasOrganization() {
		return c.Redirect("/onboarding")
	}
	return c.Next()
}

// RequireAPISessionAuth guards JSON API routes that ride on the browser
// session. Responds with 401 instead of a redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}
	return c.Next()
}
