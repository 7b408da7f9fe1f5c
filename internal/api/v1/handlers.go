package apiv1

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/billing"
	"github.com/kontiq/kontiq/internal/pkg/database"
	"github.com/kontiq/kontiq/internal/pkg/middleware"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

// APIServer implements the v1 JSON endpoints.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// RegisterHandlers wires the v1 endpoints onto the route group.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/subscription", middleware.RequireAPISessionAuth, s.GetSubscription)
	router.Post("/checkout-session", middleware.RequireAPISessionAuth, s.PostCheckoutSession)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetSubscription returns the organization's current subscription state as
// of the last webhook sync.
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.HasOrganization() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_organization"})
	}

	svc := billing.NewServiceFromDB(database.GetDB(), nil)
	sub, err := svc.GetActiveSubscription(context.Background(), uc.OrganizationID)
	if err != nil {
		log.Errorf("[API] subscription lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}
	if sub == nil {
		return c.JSON(SubscriptionStatus{Active: false})
	}

	resp := SubscriptionStatus{
		Active:            sub.IsEntitling(),
		Status:            sub.Status,
		PriceID:           sub.PriceID,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd != nil {
		v := sub.CurrentPeriodEnd.Format(time.RFC3339)
		resp.CurrentPeriodEnd = &v
	}
	return c.JSON(resp)
}

// PostCheckoutSession opens a hosted checkout session and returns its URL.
func (s *APIServer) PostCheckoutSession(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.HasOrganization() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_organization"})
	}

	var req CheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil || req.PriceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price_id_required"})
	}

	provider, err := billing.NewStripeClientFromEnv()
	if err != nil {
		log.Errorf("[API] billing provider not configured: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "billing_unavailable"})
	}
	svc := billing.NewServiceFromDB(database.GetDB(), provider)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(uc.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_lookup_failed"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	base := c.BaseURL()
	url, err := svc.StartCheckout(ctx, uc.OrganizationID, user.Email, req.PriceID,
		base+"/?checkout=success", base+"/pricing?checkout=cancelled")
	if err != nil {
		log.Errorf("[API] checkout session failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_failed"})
	}

	return c.JSON(CheckoutSessionResponse{URL: url})
}
