package billing

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
	"github.com/StKraemer/LeadRadar/internal/pkg/entitlements"
)

// SubscriptionFetcher re-fetches the definitive subscription record. Satisfied
// by *StripeClient; tests swap in a fake.
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

// Service applies verified subscription state changes to user accounts.
//
// All handlers are Set operations: plan, counter reset and status are written
// absolutely, never incremented, so re-delivered webhooks converge instead of
// compounding. Only the usage recorder ever increments counters.
type Service struct {
	repo   Repository
	client SubscriptionFetcher
	prices PriceWhitelist
}

func NewService(repo Repository, client SubscriptionFetcher, prices PriceWhitelist) *Service {
	return &Service{repo: repo, client: client, prices: prices}
}

func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv(), NewPriceWhitelistFromEnv())
}

// RecordWebhookEvent persists an inbound webhook once. created=false means the
// event id was seen before and the caller should acknowledge without
// re-processing.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	eventID := strings.TrimSpace(in.ProviderEventID)
	if provider == "" || eventID == "" {
		return false, nil, errors.New("provider and provider_event_id are required")
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed stamps the stored event with the processing outcome.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// HandleCheckoutCompleted links the Stripe customer and subscription to the
// user referenced by the checkout session, then syncs the plan from the
// re-fetched subscription record.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, sess *CheckoutSession) error {
	user, err := s.resolveCheckoutUser(sess)
	if err != nil {
		return err
	}

	sub, err := s.client.GetSubscription(ctx, sess.SubscriptionID)
	if err != nil {
		return err
	}

	plan := s.resolvePlanOrFailClosed(user.ID, sub)
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"plan":                      string(plan),
		"stripe_customer_id":        sub.CustomerID,
		"stripe_subscription_id":    sub.ID,
		"subscription_status":       sub.Status,
		"monthly_analyses_count":    0,
		"monthly_analyses_reset_at": &now,
	}
	if sub.CustomerID == "" && sess.CustomerID != "" {
		updates["stripe_customer_id"] = sess.CustomerID
	}
	if err := s.repo.ApplySubscriptionState(user.ID, updates); err != nil {
		return err
	}

	log.Printf("[Billing] Checkout completed: user=%d plan=%s subscription=%s", user.ID, plan, sub.ID)
	return nil
}

// HandleSubscriptionUpdated syncs plan and status from the re-fetched
// subscription record. Every validated update resets the monthly counter:
// Stripe emits one on each renewal, so this is the period reset. Re-setting
// to 0 on re-delivery is a no-op, never a double reset. A price outside the
// whitelist or a non-entitling status reverts to free.
func (s *Service) HandleSubscriptionUpdated(ctx context.Context, ev *SubscriptionEvent) error {
	user, err := s.resolveSubscriptionUser(ev)
	if err != nil {
		return err
	}

	sub, err := s.client.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}

	plan := s.resolvePlanOrFailClosed(user.ID, sub)
	if !isEntitlingStatus(sub.Status) {
		plan = entitlements.PlanFree
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"plan":                      string(plan),
		"stripe_subscription_id":    sub.ID,
		"subscription_status":       sub.Status,
		"monthly_analyses_count":    0,
		"monthly_analyses_reset_at": &now,
	}
	if sub.CustomerID != "" {
		updates["stripe_customer_id"] = sub.CustomerID
	}
	if err := s.repo.ApplySubscriptionState(user.ID, updates); err != nil {
		return err
	}

	log.Printf("[Billing] Subscription updated: user=%d plan=%s status=%s", user.ID, plan, sub.Status)
	return nil
}

// HandleSubscriptionDeleted reverts the user to the free plan. No price
// validation: cancellation always lands on free.
func (s *Service) HandleSubscriptionDeleted(ctx context.Context, ev *SubscriptionEvent) error {
	_ = ctx
	user, err := s.resolveSubscriptionUser(ev)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"plan":                string(entitlements.PlanFree),
		"subscription_status": models.SubscriptionStatusCanceled,
	}
	if err := s.repo.ApplySubscriptionState(user.ID, updates); err != nil {
		return err
	}

	log.Printf("[Billing] Subscription deleted: user=%d reverted to free", user.ID)
	return nil
}

func (s *Service) resolveCheckoutUser(sess *CheckoutSession) (*models.User, error) {
	if ref := strings.TrimSpace(sess.ClientReferenceID); ref != "" {
		id, err := strconv.ParseUint(ref, 10, 32)
		if err != nil {
			return nil, errors.New("checkout session client_reference_id is not a user id")
		}
		return s.repo.GetUserByID(uint(id))
	}
	if sess.CustomerID != "" {
		return s.repo.GetUserByStripeCustomerID(sess.CustomerID)
	}
	return nil, errors.New("checkout session carries no user reference")
}

func (s *Service) resolveSubscriptionUser(ev *SubscriptionEvent) (*models.User, error) {
	user, err := s.repo.GetUserByStripeSubscriptionID(ev.SubscriptionID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if ev.CustomerID != "" {
		return s.repo.GetUserByStripeCustomerID(ev.CustomerID)
	}
	return nil, err
}

// resolvePlanOrFailClosed validates the subscribed price against the
// whitelist. An unknown price is a security event: the account lands on free
// and the rejection is logged loudly, never granted from event metadata.
func (s *Service) resolvePlanOrFailClosed(userID uint, sub *Subscription) entitlements.Plan {
	plan, ok := s.prices.ResolvePlan(sub.PriceID)
	if !ok {
		log.Printf("[Billing] SECURITY: unauthorized price id %q on subscription %s (user=%d), reverting to free",
			sub.PriceID, sub.ID, userID)
	}
	return plan
}
