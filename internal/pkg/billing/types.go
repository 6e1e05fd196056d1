package billing

import (
	"encoding/json"
	"time"
)

// SubscriptionState is the partial user-record write produced by one billing
// event. Zero-valued fields are left untouched by the merge-write; the
// explicit Clear flags exist for fields that must be set to null.
type SubscriptionState struct {
	Plan             string
	Status           string
	PeriodEnd        *time.Time
	ClearPeriodEnd   bool
	CustomerID       string
	SubscriptionID   string
	LastRefundID     string
	LastRefundAmount *int64
}

// WebhookResult reports the outcome of processing one webhook delivery.
type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
	Ignored   bool
	Note      string
}

// Event is the processor's webhook envelope. Data.Object is kept raw so the
// verified body bytes decide the payload shape, never a re-serialization.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes the webhook envelope from the raw body.
func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// checkoutSessionObject is the event payload for checkout.session.completed.
type checkoutSessionObject struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// subscriptionObject is the event payload for customer.subscription.* events
// and the shape returned by the subscriptions API.
type subscriptionObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CancelAt           int64  `json:"cancel_at"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	LatestInvoice      string `json:"latest_invoice"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (s *subscriptionObject) priceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

func (s *subscriptionObject) periodEnd() *time.Time {
	if s.CurrentPeriodEnd <= 0 {
		return nil
	}
	t := time.Unix(s.CurrentPeriodEnd, 0)
	return &t
}

// invoiceObject is the event payload for invoice.payment_* events.
type invoiceObject struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Charge       string `json:"charge"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
}

// chargeObject is the event payload for charge.* events and the shape
// returned by the charges API.
type chargeObject struct {
	ID             string `json:"id"`
	Customer       string `json:"customer"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Refunded       bool   `json:"refunded"`
	Created        int64  `json:"created"`
	Refunds        struct {
		Data []struct {
			ID     string `json:"id"`
			Amount int64  `json:"amount"`
		} `json:"data"`
	} `json:"refunds"`
}

func (c *chargeObject) latestRefundID() string {
	if len(c.Refunds.Data) == 0 {
		return ""
	}
	return c.Refunds.Data[0].ID
}
