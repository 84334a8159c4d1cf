package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestStripeClient(srv *httptest.Server) *StripeClient {
	return &StripeClient{
		APIKey:     "sk_test_123",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}
}

func TestGetSubscriptionParsesRecord(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "sub_123",
			"customer": "cus_456",
			"status": "active",
			"cancel_at_period_end": true,
			"items": {"data": [{"price": {"id": "price_pro"}, "current_period_end": 1767225600}]}
		}`))
	}))
	defer srv.Close()

	sub, err := newTestStripeClient(srv).GetSubscription(context.Background(), "sub_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/subscriptions/sub_123" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if sub.ID != "sub_123" || sub.CustomerID != "cus_456" || sub.Status != "active" {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if sub.PriceID != "price_pro" {
		t.Fatalf("unexpected price id %q", sub.PriceID)
	}
	if !sub.CancelAtPeriodEnd {
		t.Fatalf("expected cancel_at_period_end")
	}
	want := time.Unix(1767225600, 0).UTC()
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(want) {
		t.Fatalf("unexpected period end %v", sub.CurrentPeriodEnd)
	}
}

func TestGetSubscriptionTopLevelPeriodEndFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "sub_123",
			"status": "active",
			"current_period_end": 1767225600,
			"items": {"data": [{"price": {"id": "price_starter"}}]}
		}`))
	}))
	defer srv.Close()

	sub, err := newTestStripeClient(srv).GetSubscription(context.Background(), "sub_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.Unix() != 1767225600 {
		t.Fatalf("expected top-level current_period_end fallback, got %v", sub.CurrentPeriodEnd)
	}
}

func TestGetSubscriptionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"message": "No such subscription"}}`))
	}))
	defer srv.Close()

	_, err := newTestStripeClient(srv).GetSubscription(context.Background(), "sub_missing")
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestGetSubscriptionMissingPriceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "sub_123", "status": "active", "items": {"data": []}}`))
	}))
	defer srv.Close()

	_, err := newTestStripeClient(srv).GetSubscription(context.Background(), "sub_123")
	if err == nil || !strings.Contains(err.Error(), "missing price id") {
		t.Fatalf("expected missing price id error, got %v", err)
	}
}

func TestGetSubscriptionRequiresConfiguration(t *testing.T) {
	c := &StripeClient{APIBaseURL: "http://127.0.0.1:0", HTTPClient: http.DefaultClient}
	if _, err := c.GetSubscription(context.Background(), "sub_1"); err == nil {
		t.Fatalf("expected error without api key")
	}

	c.APIKey = "sk_test_123"
	if _, err := c.GetSubscription(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank subscription id")
	}
}
