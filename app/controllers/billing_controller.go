package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/billing"
	"github.com/kontiq/kontiq/internal/pkg/database"
	"github.com/kontiq/kontiq/internal/pkg/env"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

const webhookProcessTimeout = 15 * time.Second

// billingServiceFactory builds the billing service per request. A package
// variable so handler tests can swap in a service backed by in-memory fakes.
var billingServiceFactory = billingServiceFromEnv

func billingServiceFromEnv() (*billing.Service, error) {
	provider, err := billing.NewStripeClientFromEnv()
	if err != nil {
		return nil, err
	}
	return billing.NewServiceFromDB(database.GetDB(), provider), nil
}

// billingReadServiceFactory builds a provider-less service for read-only
// paths such as entitlement checks. Swappable in tests as well.
var billingReadServiceFactory = func() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB(), nil)
}

// organizationEntitled reports whether the organization currently holds an
// entitling (trialing or active) subscription. Premium reports are locked
// without one.
func organizationEntitled(ctx context.Context, organizationID string) bool {
	sub, err := billingReadServiceFactory().GetActiveSubscription(ctx, organizationID)
	if err != nil || sub == nil {
		return false
	}
	return sub.IsEntitling()
}

// HandleStripeWebhook receives signed Stripe events. The signature is
// checked before anything touches the database; unsigned or badly signed
// payloads leave no trace beyond a log line.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := billing.ParseSignedEvent(rawBody, signature, secret)
	if err != nil {
		if errors.Is(err, billing.ErrConfiguration) {
			log.Errorf("[Billing] webhook rejected, missing configuration: %v", err)
			return c.Status(fiber.StatusBadRequest).SendString("Webhook secret or signature missing")
		}
		log.Warnf("[Billing] webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Webhook signature verification failed")
	}

	svc, err := billingServiceFactory()
	if err != nil {
		log.Errorf("[Billing] webhook rejected, provider not configured: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Billing provider not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, event)
	if err != nil {
		log.Errorf("[Billing] webhook persist failed: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Webhook could not be recorded")
	}
	// A redelivery only counts as a duplicate once the event was processed
	// without error. A delivery whose handler failed comes back on the
	// provider's retry schedule and must run again.
	if !created && stored.ProcessedSuccessfully() {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	if !billing.IsRelevantEvent(event.Type) {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.JSON(fiber.Map{"received": true, "ignored": true})
	}

	processor := billing.NewProcessor(svc)
	processErr := processor.Process(ctx, event)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, processErr)
	if processErr != nil {
		log.Errorf("[Billing] webhook handler failed for %s (%s): %v", event.ID, event.Type, processErr)
		return c.Status(fiber.StatusBadRequest).SendString("Webhook handler failed")
	}

	return c.JSON(fiber.Map{"received": true})
}

// HandleCreateCheckoutSession starts a subscription checkout for the
// current organization and redirects to the provider's hosted page.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	priceID := c.FormValue("price_id")
	if priceID == "" {
		priceID = c.Query("price_id")
	}
	if priceID == "" {
		return formError(c, "/pricing", "Kein Preis ausgewählt.")
	}

	svc, err := billingServiceFactory()
	if err != nil {
		log.Errorf("[Billing] checkout unavailable: %v", err)
		return formError(c, "/pricing", "Der Bezahlvorgang ist derzeit nicht verfügbar.")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(uc.UserID)
	if err != nil {
		return formError(c, "/pricing", "something went wrong")
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
	defer cancel()

	base := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:"+env.GetEnv("APP_PORT", "4000"))
	checkoutURL, err := svc.StartCheckout(ctx, uc.OrganizationID, user.Email, priceID,
		base+"/?checkout=success", base+"/pricing?checkout=cancelled")
	if err != nil {
		log.Errorf("[Billing] checkout session failed: %v", err)
		return formError(c, "/pricing", "Der Bezahlvorgang konnte nicht gestartet werden.")
	}

	return c.Redirect(checkoutURL, fiber.StatusSeeOther)
}

// HandleBillingResync re-fetches the current subscription from the
// provider and overwrites the local row with provider truth.
func HandleBillingResync(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	svc, err := billingServiceFactory()
	if err != nil {
		return formError(c, "/", "Die Abrechnung ist derzeit nicht verfügbar.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
	defer cancel()

	sub, err := svc.ResyncSubscription(ctx, uc.OrganizationID)
	if err != nil {
		log.Errorf("[Billing] resync failed: %v", err)
		return formError(c, "/", "Das Abo konnte nicht aktualisiert werden.")
	}
	if sub == nil {
		return formError(c, "/", "Kein aktives Abo gefunden.")
	}

	fm := fiber.Map{
		"type":    "success",
		"message": "Abo-Status aktualisiert.",
	}
	return flash.WithSuccess(c, fm).Redirect("/")
}
