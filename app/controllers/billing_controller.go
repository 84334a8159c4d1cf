package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
	"github.com/StKraemer/LeadRadar/internal/pkg/billing"
	"github.com/StKraemer/LeadRadar/internal/pkg/database"
	"github.com/StKraemer/LeadRadar/internal/pkg/env"
)

// HandleStripeWebhook ingests Stripe events: persist once, verify signature,
// dispatch by type, mark processed. Unknown event types are acknowledged so
// Stripe stops redelivering them.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	eventID, eventType, parseErr := billing.ParseEventEnvelope(rawBody)
	if parseErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := billing.VerifyStripeWebhookSignature(
		rawBody, signature, secret, billing.DefaultSignatureTolerance, time.Now())
	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	var handleErr error
	switch eventType {
	case billing.EventCheckoutCompleted:
		var sess *billing.CheckoutSession
		sess, handleErr = billing.ParseCheckoutSession(rawBody)
		if handleErr == nil {
			handleErr = svc.HandleCheckoutCompleted(ctx, sess)
		}
	case billing.EventSubscriptionUpdated:
		var ev *billing.SubscriptionEvent
		ev, handleErr = billing.ParseSubscriptionEvent(rawBody)
		if handleErr == nil {
			handleErr = svc.HandleSubscriptionUpdated(ctx, ev)
		}
	case billing.EventSubscriptionDeleted:
		var ev *billing.SubscriptionEvent
		ev, handleErr = billing.ParseSubscriptionEvent(rawBody)
		if handleErr == nil {
			handleErr = svc.HandleSubscriptionDeleted(ctx, ev)
		}
	default:
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	if errors.Is(handleErr, gorm.ErrRecordNotFound) {
		// No local account for this event; acknowledge so Stripe stops retrying.
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("no local account for event"))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	_ = svc.MarkWebhookProcessed(ctx, stored.ID, handleErr)
	if handleErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_handling_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
