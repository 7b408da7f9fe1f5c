package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kontiq/kontiq/internal/pkg/middleware"
	"github.com/kontiq/kontiq/internal/pkg/oauth"
	"github.com/kontiq/kontiq/internal/pkg/session"
	"github.com/kontiq/kontiq/internal/pkg/storage"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// init receipt uploads (no-op when S3 is unconfigured)
	storage.SetupReceiptStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func loggedInMiddleware(c *fiber.Ctx) error {
	// UserContextMiddleware already set all user context
	return c.Next()
}
