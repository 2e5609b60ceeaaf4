package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// PlanStore is the identity provider side of plan sync.
type PlanStore interface {
	GrantPlan(ctx context.Context, userID, plan string) error
	RevokePlan(ctx context.Context, userID, plan string) error
}

type WebhookHandler struct {
	Plans         PlanStore
	WebhookSecret string
	// DefaultPlan is used when neither the price lookup key nor the
	// subscription metadata names a plan.
	DefaultPlan string
}

// HandleWebhook POST /api/v1/stripe/webhook. Raw body, signature verification,
// then subscription events drive the user's plans. Once the signature checks
// out the answer is always 200 so Stripe does not retry domain failures.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, sig, wh.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("Stripe subscription decode failed")
			break
		}
		if err := wh.syncPlan(c.UserContext(), string(event.Type), &sub); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Str("subscription", sub.ID).Msg("plan sync failed")
		}
	}
	return c.Status(200).SendString("ok")
}

func (wh *WebhookHandler) syncPlan(ctx context.Context, eventType string, sub *stripe.Subscription) error {
	userID := sub.Metadata["user_id"]
	if userID == "" {
		log.Warn().Str("subscription", sub.ID).Msg("subscription without user_id metadata")
		return nil
	}
	plan := subscriptionPlan(sub, wh.DefaultPlan)
	if plan == "" {
		return nil
	}

	active := eventType != "customer.subscription.deleted" &&
		(sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing)
	if active {
		log.Info().Str("user_id", userID).Str("plan", plan).Msg("plan granted")
		return wh.Plans.GrantPlan(ctx, userID, plan)
	}
	log.Info().Str("user_id", userID).Str("plan", plan).Str("status", string(sub.Status)).Msg("plan revoked")
	return wh.Plans.RevokePlan(ctx, userID, plan)
}

func subscriptionPlan(sub *stripe.Subscription, fallback string) string {
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Price != nil && item.Price.LookupKey != "" {
				return item.Price.LookupKey
			}
		}
	}
	if p := sub.Metadata["plan"]; p != "" {
		return p
	}
	return fallback
}
