package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soundhaven/soundhaven/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// Customer is the processor-side customer record linked to a local user.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CheckoutSession is a hosted checkout redirect created for one tier.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Subscription is the processor's subscription snapshot.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PriceID           string
	CancelAtPeriodEnd bool
	CancelAt          *time.Time
	CurrentPeriodEnd  *time.Time
	LatestInvoiceID   string
}

// Invoice carries the fields needed for charge resolution.
type Invoice struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	ChargeID       string `json:"charge"`
	AmountPaid     int64  `json:"amount_paid"`
}

// Charge is a settled payment eligible for refunds.
type Charge struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Refunded       bool   `json:"refunded"`
}

// Refund is the processor's refund record.
type Refund struct {
	ID       string `json:"id"`
	ChargeID string `json:"charge"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}

// CheckoutParams configures a hosted checkout session.
type CheckoutParams struct {
	CustomerID        string
	PriceID           string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
}

// ProcessorClient is the payment-processor API surface the billing service
// depends on. Satisfied by StripeClient and by test fakes.
type ProcessorClient interface {
	CreateCustomer(ctx context.Context, email, name string, userID uint) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) (*Subscription, error)
	GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
	ListCharges(ctx context.Context, customerID string, limit int) ([]Charge, error)
	CreateRefund(ctx context.Context, chargeID string, amount int64) (*Refund, error)
}

// StripeClient talks to the processor's REST API with form-encoded writes
// and JSON reads.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email, name string, userID uint) (*Customer, error) {
	form := url.Values{}
	form.Set("email", strings.TrimSpace(email))
	form.Set("name", strings.TrimSpace(name))
	form.Set("metadata[user_id]", strconv.FormatUint(uint64(userID), 10))

	var customer Customer
	if err := c.postForm(ctx, "/customers", form, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if strings.TrimSpace(params.PriceID) == "" {
		return nil, errors.New("price id is required")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerID != "" {
		form.Set("customer", params.CustomerID)
	}
	if params.ClientReferenceID != "" {
		form.Set("client_reference_id", params.ClientReferenceID)
	}
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session CheckoutSession
	if err := c.postForm(ctx, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, errors.New("subscription id is required")
	}

	var raw subscriptionObject
	if err := c.get(ctx, "/subscriptions/"+url.PathEscape(subscriptionID), &raw); err != nil {
		return nil, err
	}
	return subscriptionFromObject(&raw), nil
}

func (c *StripeClient) CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, errors.New("subscription id is required")
	}

	form := url.Values{}
	form.Set("cancel_at_period_end", "true")

	var raw subscriptionObject
	if err := c.postForm(ctx, "/subscriptions/"+url.PathEscape(subscriptionID), form, &raw); err != nil {
		return nil, err
	}
	return subscriptionFromObject(&raw), nil
}

func (c *StripeClient) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, errors.New("invoice id is required")
	}

	var invoice Invoice
	if err := c.get(ctx, "/invoices/"+url.PathEscape(invoiceID), &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *StripeClient) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, errors.New("charge id is required")
	}

	var charge Charge
	if err := c.get(ctx, "/charges/"+url.PathEscape(chargeID), &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (c *StripeClient) ListCharges(ctx context.Context, customerID string, limit int) ([]Charge, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}
	if limit <= 0 {
		limit = 10
	}

	var list struct {
		Data []Charge `json:"data"`
	}
	path := fmt.Sprintf("/charges?customer=%s&limit=%d", url.QueryEscape(customerID), limit)
	if err := c.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// CreateRefund refunds a charge. amount <= 0 refunds the full charge.
func (c *StripeClient) CreateRefund(ctx context.Context, chargeID string, amount int64) (*Refund, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, errors.New("charge id is required")
	}

	form := url.Values{}
	form.Set("charge", chargeID)
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(amount, 10))
	}

	var refund Refund
	if err := c.postForm(ctx, "/refunds", form, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *StripeClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *StripeClient) do(req *http.Request, out any) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe api %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(string(body), 300))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func subscriptionFromObject(raw *subscriptionObject) *Subscription {
	sub := &Subscription{
		ID:                raw.ID,
		CustomerID:        raw.Customer,
		Status:            raw.Status,
		PriceID:           raw.priceID(),
		CancelAtPeriodEnd: raw.CancelAtPeriodEnd,
		CurrentPeriodEnd:  raw.periodEnd(),
		LatestInvoiceID:   raw.LatestInvoice,
	}
	if raw.CancelAt > 0 {
		t := time.Unix(raw.CancelAt, 0)
		sub.CancelAt = &t
	}
	return sub
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
