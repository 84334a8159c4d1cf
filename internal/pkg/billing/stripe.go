package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/StKraemer/LeadRadar/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeClient is a minimal Stripe API client. It covers exactly the calls the
// webhook path needs; everything else goes through Stripe's own tooling.
type StripeClient struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// Subscription is the slice of a Stripe subscription record the plan sync
// cares about.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PriceID           string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		APIKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetSubscription fetches the definitive subscription record from Stripe.
// Webhook handlers call this instead of trusting price data embedded in the
// event payload.
func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	u := c.APIBaseURL + "/subscriptions/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe subscription fetch failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	root := gjson.ParseBytes(body)
	sub := &Subscription{
		ID:                strings.TrimSpace(root.Get("id").String()),
		CustomerID:        strings.TrimSpace(root.Get("customer").String()),
		Status:            strings.TrimSpace(root.Get("status").String()),
		PriceID:           strings.TrimSpace(root.Get("items.data.0.price.id").String()),
		CancelAtPeriodEnd: root.Get("cancel_at_period_end").Bool(),
	}
	if ts := root.Get("items.data.0.current_period_end").Int(); ts > 0 {
		end := time.Unix(ts, 0).UTC()
		sub.CurrentPeriodEnd = &end
	} else if ts := root.Get("current_period_end").Int(); ts > 0 {
		end := time.Unix(ts, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}

	if sub.ID == "" {
		return nil, errors.New("stripe subscription response missing id")
	}
	if sub.PriceID == "" {
		return nil, errors.New("stripe subscription response missing price id")
	}
	return sub, nil
}
