package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret_123"

type memPlans map[string]bool

func (m memPlans) GrantPlan(ctx context.Context, userID, plan string) error {
	m[userID+":"+plan] = true
	return nil
}

func (m memPlans) RevokePlan(ctx context.Context, userID, plan string) error {
	delete(m, userID+":"+plan)
	return nil
}

func setupWebhook(t *testing.T) (*fiber.App, memPlans) {
	plans := memPlans{}
	wh := &WebhookHandler{Plans: plans, WebhookSecret: testSecret, DefaultPlan: "agent"}
	app := fiber.New()
	app.Post("/webhook", wh.HandleWebhook)
	return app, plans
}

func subscriptionEvent(eventType, status string, metadata map[string]string, lookupKey string) []byte {
	sub := map[string]interface{}{
		"id":       "sub_123",
		"object":   "subscription",
		"status":   status,
		"metadata": metadata,
	}
	if lookupKey != "" {
		sub["items"] = map[string]interface{}{
			"object": "list",
			"data": []interface{}{
				map[string]interface{}{"id": "si_1", "price": map[string]interface{}{"id": "price_1", "lookup_key": lookupKey}},
			},
		}
	}
	b, _ := json.Marshal(map[string]interface{}{
		"id":          "evt_test_123",
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data":        map[string]interface{}{"object": sub},
	})
	return b
}

func post(t *testing.T, app *fiber.App, payload []byte, sign bool) int {
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    testSecret,
			Timestamp: time.Now(),
		})
		req.Header.Set("Stripe-Signature", signed.Header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestWebhook_MissingSignature(t *testing.T) {
	app, _ := setupWebhook(t)
	assert.Equal(t, 400, post(t, app, []byte(`{}`), false))
}

func TestWebhook_InvalidSignature(t *testing.T) {
	app, _ := setupWebhook(t)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte(`{"type":"customer.subscription.created"}`)))
	req.Header.Set("Stripe-Signature", "t=123,v1=invalid")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestWebhook_EmptyBody(t *testing.T) {
	app, _ := setupWebhook(t)
	assert.Equal(t, 400, post(t, app, nil, false))
}

func TestWebhook_SubscriptionLifecycle(t *testing.T) {
	app, plans := setupWebhook(t)
	meta := map[string]string{"user_id": "u1"}

	assert.Equal(t, 200, post(t, app, subscriptionEvent("customer.subscription.created", "active", meta, "agent_pro"), true))
	assert.True(t, plans["u1:agent_pro"])

	assert.Equal(t, 200, post(t, app, subscriptionEvent("customer.subscription.updated", "past_due", meta, "agent_pro"), true))
	assert.False(t, plans["u1:agent_pro"])

	assert.Equal(t, 200, post(t, app, subscriptionEvent("customer.subscription.updated", "trialing", meta, ""), true))
	assert.True(t, plans["u1:agent"])

	assert.Equal(t, 200, post(t, app, subscriptionEvent("customer.subscription.deleted", "active", meta, ""), true))
	assert.False(t, plans["u1:agent"])
}

func TestWebhook_MetadataPlanAndMissingUser(t *testing.T) {
	app, plans := setupWebhook(t)

	assert.Equal(t, 200, post(t, app, subscriptionEvent("customer.subscription.created", "active", map[string]string{"user_id": "u2", "plan": "team"}, ""), true))
	assert.True(t, plans["u2:team"])

	assert.Equal(t, 200, post(t, app, subscriptionEvent("customer.subscription.created", "active", map[string]string{}, "agent"), true))
	assert.Len(t, plans, 1)

	assert.Equal(t, 200, post(t, app, subscriptionEvent("invoice.paid", "active", map[string]string{"user_id": "u3"}, "agent"), true))
	assert.Len(t, plans, 1)
}
