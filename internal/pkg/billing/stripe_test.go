package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestStripeClient(handler http.HandlerFunc) (*StripeClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := &StripeClient{
		SecretKey:  "sk_test_123",
		APIBaseURL: server.URL,
		HTTPClient: server.Client(),
	}
	return client, server
}

func TestStripeClient_CreateCheckoutSession(t *testing.T) {
	var gotAuth, gotPath string
	var gotForm map[string][]string

	client, server := newTestStripeClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.example/cs_test_1"}`))
	})
	defer server.Close()

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		CustomerID:        "cus_1",
		PriceID:           "price_prem",
		SuccessURL:        "https://app/success",
		CancelURL:         "https://app/cancel",
		ClientReferenceID: "42",
		Metadata:          map[string]string{"tier": "premium"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.URL != "https://checkout.example/cs_test_1" {
		t.Fatalf("unexpected session url %q", session.URL)
	}

	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotPath != "/checkout/sessions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	for key, want := range map[string]string{
		"mode":                    "subscription",
		"line_items[0][price]":    "price_prem",
		"customer":                "cus_1",
		"client_reference_id":     "42",
		"metadata[tier]":          "premium",
		"line_items[0][quantity]": "1",
	} {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Fatalf("form[%q] = %v, want %q", key, got, want)
		}
	}
}

func TestStripeClient_GetSubscriptionFlattensItems(t *testing.T) {
	client, server := newTestStripeClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscriptions/sub_1" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"cancel_at_period_end": true,
			"cancel_at": 1700000000,
			"current_period_end": 1700009999,
			"latest_invoice": "in_1",
			"items": { "data": [ { "price": { "id": "price_std" } } ] }
		}`))
	})
	defer server.Close()

	sub, err := client.GetSubscription(context.Background(), "sub_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.PriceID != "price_std" || sub.LatestInvoiceID != "in_1" {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if !sub.CancelAtPeriodEnd || sub.CancelAt == nil || sub.CancelAt.Unix() != 1700000000 {
		t.Fatalf("cancel fields not mapped: %+v", sub)
	}
	if sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.Unix() != 1700009999 {
		t.Fatalf("period end not mapped: %+v", sub)
	}
}

func TestStripeClient_ErrorStatus(t *testing.T) {
	client, server := newTestStripeClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"insufficient funds"}}`))
	})
	defer server.Close()

	_, err := client.GetCharge(context.Background(), "ch_1")
	if err == nil {
		t.Fatalf("expected error on 402 response")
	}
}

func TestStripeClient_MissingSecret(t *testing.T) {
	client := &StripeClient{APIBaseURL: "https://api.example"}
	if _, err := client.GetCharge(context.Background(), "ch_1"); err == nil {
		t.Fatalf("expected error without configured secret")
	}
}

func TestStripeClient_CreateRefundAmount(t *testing.T) {
	var gotForm map[string][]string
	client, server := newTestStripeClient(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Write([]byte(`{"id":"re_1","charge":"ch_1","amount":500,"status":"succeeded"}`))
	})
	defer server.Close()

	if _, err := client.CreateRefund(context.Background(), "ch_1", 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := gotForm["amount"]; len(got) != 1 || got[0] != "500" {
		t.Fatalf("expected explicit amount, got %v", gotForm)
	}

	if _, err := client.CreateRefund(context.Background(), "ch_1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gotForm["amount"]; ok {
		t.Fatalf("full refund must omit amount, got %v", gotForm)
	}
}
