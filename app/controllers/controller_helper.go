package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

const (
	FROM_PROTECTED string = usercontext.KeyFromProtected
)

// renderPage merges the per-page bindings with the globals every template
// expects (login state, flash message, csrf token).
func renderPage(c *fiber.Ctx, name string, bind fiber.Map) error {
	uc := usercontext.GetUserContext(c)

	if bind == nil {
		bind = fiber.Map{}
	}
	bind["IsLoggedIn"] = uc.IsLoggedIn
	bind["Username"] = uc.Username
	bind["HasOrganization"] = uc.HasOrganization()
	bind["Flash"] = flash.Get(c)
	if token, ok := c.Locals("csrf").(string); ok {
		bind["CSRFToken"] = token
	}

	return c.Render(name, bind, "layouts/main")
}
