package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/soundhaven/soundhaven/app/models"
	"gorm.io/gorm"
)

type fakeRepo struct {
	users      map[uint]*models.User
	events     map[string]*models.BillingWebhookEvent
	nextEvent  uint
	trialCalls int
}

func newFakeRepo(users ...*models.User) *fakeRepo {
	r := &fakeRepo{
		users:  map[uint]*models.User{},
		events: map[string]*models.BillingWebhookEvent{},
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeRepo) GetUserByCustomerID(customerID string) (*models.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID == customerID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) SetStripeCustomerID(userID uint, customerID string) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if u.StripeCustomerID == "" {
		u.StripeCustomerID = customerID
	}
	return nil
}

func (r *fakeRepo) ApplySubscriptionState(userID uint, state SubscriptionState) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if state.Plan != "" {
		u.Plan = state.Plan
	}
	if state.Status != "" {
		u.SubscriptionStatus = state.Status
	}
	if state.ClearPeriodEnd {
		u.SubscriptionEndDate = nil
	} else if state.PeriodEnd != nil {
		u.SubscriptionEndDate = state.PeriodEnd
	}
	if state.CustomerID != "" {
		u.StripeCustomerID = state.CustomerID
	}
	if state.SubscriptionID != "" {
		u.StripeSubscriptionID = state.SubscriptionID
	}
	if state.LastRefundID != "" {
		u.LastRefundID = state.LastRefundID
	}
	if state.LastRefundAmount != nil {
		u.LastRefundAmount = *state.LastRefundAmount
	}
	return nil
}

func (r *fakeRepo) MarkTrialUsed(userID uint, periodEnd time.Time) error {
	r.trialCalls++
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if u.TrialUsed {
		return ErrTrialAlreadyUsed
	}
	u.TrialUsed = true
	u.Plan = "trial"
	u.SubscriptionStatus = models.BillingStatusTrialing
	u.SubscriptionEndDate = &periodEnd
	return nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.nextEvent++
	event.ID = r.nextEvent
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, note, processingError string) error {
	for _, ev := range r.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingNote = note
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeClient struct {
	subscriptions map[string]*Subscription
	invoices      map[string]*Invoice
	charges       map[string]*Charge
	chargeList    []Charge

	createdCustomers int
	refunds          []Refund
	canceled         []string
}

func (c *fakeClient) CreateCustomer(_ context.Context, email, name string, userID uint) (*Customer, error) {
	c.createdCustomers++
	return &Customer{ID: fmt.Sprintf("cus_new_%d", userID), Email: email, Name: name}, nil
}

func (c *fakeClient) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*CheckoutSession, error) {
	return &CheckoutSession{ID: "cs_1", URL: "https://checkout.example/" + params.PriceID}, nil
}

func (c *fakeClient) GetSubscription(_ context.Context, id string) (*Subscription, error) {
	sub, ok := c.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription %q", id)
	}
	return sub, nil
}

func (c *fakeClient) CancelSubscriptionAtPeriodEnd(_ context.Context, id string) (*Subscription, error) {
	c.canceled = append(c.canceled, id)
	sub, ok := c.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription %q", id)
	}
	clone := *sub
	clone.CancelAtPeriodEnd = true
	return &clone, nil
}

func (c *fakeClient) GetInvoice(_ context.Context, id string) (*Invoice, error) {
	inv, ok := c.invoices[id]
	if !ok {
		return nil, fmt.Errorf("no such invoice %q", id)
	}
	return inv, nil
}

func (c *fakeClient) GetCharge(_ context.Context, id string) (*Charge, error) {
	ch, ok := c.charges[id]
	if !ok {
		return nil, fmt.Errorf("no such charge %q", id)
	}
	return ch, nil
}

func (c *fakeClient) ListCharges(_ context.Context, _ string, _ int) ([]Charge, error) {
	return c.chargeList, nil
}

func (c *fakeClient) CreateRefund(_ context.Context, chargeID string, amount int64) (*Refund, error) {
	ch, ok := c.charges[chargeID]
	if !ok {
		return nil, fmt.Errorf("no such charge %q", chargeID)
	}
	if amount <= 0 {
		amount = ch.Amount
	}
	refund := Refund{ID: fmt.Sprintf("re_%d", len(c.refunds)+1), ChargeID: chargeID, Amount: amount, Status: "succeeded"}
	c.refunds = append(c.refunds, refund)
	return &refund, nil
}

func newTestService(repo *fakeRepo, client *fakeClient) *Service {
	return NewService(repo, client, NewPriceTable("price_std", "price_prem", "price_studio"))
}

func TestProcessWebhook_SubscriptionUpdatedAppliesPlan(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 7, StripeCustomerID: "cus_7", Plan: "free"})
	svc := newTestService(repo, &fakeClient{})

	end := time.Now().Add(30 * 24 * time.Hour).Unix()
	raw := []byte(fmt.Sprintf(`{
		"id": "evt_sub_1",
		"type": "customer.subscription.updated",
		"data": { "object": {
			"id": "sub_1",
			"customer": "cus_7",
			"status": "active",
			"current_period_end": %d,
			"items": { "data": [ { "price": { "id": "price_prem" } } ] }
		}}
	}`, end))

	result, err := svc.ProcessWebhook(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Duplicate || result.Ignored {
		t.Fatalf("unexpected result flags: %+v", result)
	}

	user := repo.users[7]
	if user.Plan != "premium" || user.SubscriptionStatus != models.BillingStatusActive {
		t.Fatalf("unexpected user state: plan=%q status=%q", user.Plan, user.SubscriptionStatus)
	}
	if user.StripeSubscriptionID != "sub_1" {
		t.Fatalf("expected subscription id to be recorded, got %q", user.StripeSubscriptionID)
	}
	if user.SubscriptionEndDate == nil || user.SubscriptionEndDate.Unix() != end {
		t.Fatalf("expected period end %d, got %v", end, user.SubscriptionEndDate)
	}
}

func TestProcessWebhook_DuplicateDeliveryIsNoOp(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 7, StripeCustomerID: "cus_7"})
	svc := newTestService(repo, &fakeClient{})

	raw := []byte(`{
		"id": "evt_dup",
		"type": "customer.subscription.updated",
		"data": { "object": {
			"id": "sub_1", "customer": "cus_7", "status": "active",
			"items": { "data": [ { "price": { "id": "price_std" } } ] }
		}}
	}`)

	first, err := svc.ProcessWebhook(context.Background(), raw)
	if err != nil || first.Duplicate {
		t.Fatalf("first delivery: result=%+v err=%v", first, err)
	}

	repo.users[7].Plan = "sentinel"
	second, err := svc.ProcessWebhook(context.Background(), raw)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("expected duplicate flag on replay")
	}
	if repo.users[7].Plan != "sentinel" {
		t.Fatalf("duplicate delivery mutated user state")
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected a single event marker, got %d", len(repo.events))
	}
}

func TestProcessWebhook_CheckoutCompleted(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 3, Plan: "free"})
	end := time.Now().Add(30 * 24 * time.Hour)
	client := &fakeClient{
		subscriptions: map[string]*Subscription{
			"sub_9": {ID: "sub_9", CustomerID: "cus_3", Status: "active", PriceID: "price_studio", CurrentPeriodEnd: &end},
		},
	}
	svc := newTestService(repo, client)

	// Customer not yet linked locally; resolution falls back to the
	// client_reference_id embedded at session creation.
	raw := []byte(`{
		"id": "evt_cs_1",
		"type": "checkout.session.completed",
		"data": { "object": {
			"id": "cs_1", "customer": "cus_3", "subscription": "sub_9",
			"client_reference_id": "3"
		}}
	}`)

	result, err := svc.ProcessWebhook(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Ignored {
		t.Fatalf("expected event to apply, note=%q", result.Note)
	}

	user := repo.users[3]
	if user.Plan != "studio" || user.StripeCustomerID != "cus_3" || user.StripeSubscriptionID != "sub_9" {
		t.Fatalf("unexpected user state: %+v", user)
	}
}

func TestProcessWebhook_SubscriptionDeletedDowngrades(t *testing.T) {
	end := time.Now().Add(24 * time.Hour)
	repo := newFakeRepo(&models.User{
		ID: 5, StripeCustomerID: "cus_5", Plan: "premium",
		SubscriptionStatus: models.BillingStatusActive, SubscriptionEndDate: &end,
	})
	svc := newTestService(repo, &fakeClient{})

	raw := []byte(`{
		"id": "evt_del_1",
		"type": "customer.subscription.deleted",
		"data": { "object": { "id": "sub_5", "customer": "cus_5", "status": "canceled" } }
	}`)

	if _, err := svc.ProcessWebhook(context.Background(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := repo.users[5]
	if user.Plan != "free" || user.SubscriptionStatus != models.BillingStatusCanceled {
		t.Fatalf("expected downgrade to free/canceled, got plan=%q status=%q", user.Plan, user.SubscriptionStatus)
	}
	if user.SubscriptionEndDate != nil {
		t.Fatalf("expected period end to be cleared")
	}
}

func TestProcessWebhook_PaymentFailedKeepsPlan(t *testing.T) {
	end := time.Now().Add(10 * 24 * time.Hour)
	repo := newFakeRepo(&models.User{
		ID: 2, StripeCustomerID: "cus_2", Plan: "standard",
		SubscriptionStatus: models.BillingStatusActive, SubscriptionEndDate: &end,
	})
	svc := newTestService(repo, &fakeClient{})

	raw := []byte(`{
		"id": "evt_fail_1",
		"type": "invoice.payment_failed",
		"data": { "object": { "id": "in_1", "customer": "cus_2", "subscription": "sub_2" } }
	}`)

	if _, err := svc.ProcessWebhook(context.Background(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := repo.users[2]
	if user.SubscriptionStatus != models.BillingStatusPastDue {
		t.Fatalf("expected past_due, got %q", user.SubscriptionStatus)
	}
	if user.Plan != "standard" || user.SubscriptionEndDate == nil {
		t.Fatalf("payment failure must not touch plan or period end: %+v", user)
	}
}

func TestProcessWebhook_UnknownPriceAcknowledged(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 4, StripeCustomerID: "cus_4", Plan: "free"})
	svc := newTestService(repo, &fakeClient{})

	raw := []byte(`{
		"id": "evt_unknown_price",
		"type": "customer.subscription.updated",
		"data": { "object": {
			"id": "sub_4", "customer": "cus_4", "status": "active",
			"items": { "data": [ { "price": { "id": "price_legacy" } } ] }
		}}
	}`)

	result, err := svc.ProcessWebhook(context.Background(), raw)
	if err != nil {
		t.Fatalf("unmapped price must be acknowledged, got %v", err)
	}
	if !result.Ignored {
		t.Fatalf("expected ignored result, got %+v", result)
	}
	if repo.users[4].Plan != "free" {
		t.Fatalf("unmapped price must not change the plan")
	}

	marker := repo.events[models.BillingProviderStripe+"/evt_unknown_price"]
	if marker == nil || marker.ProcessedAt == nil {
		t.Fatalf("expected processed marker for acknowledged event")
	}
	if marker.PayloadJSON == "" {
		t.Fatalf("raw payload must be retained for reconciliation")
	}
}

func TestProcessWebhook_UnknownCustomerAcknowledged(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClient{})

	raw := []byte(`{
		"id": "evt_foreign",
		"type": "invoice.payment_failed",
		"data": { "object": { "id": "in_x", "customer": "cus_nobody" } }
	}`)

	result, err := svc.ProcessWebhook(context.Background(), raw)
	if err != nil {
		t.Fatalf("foreign customer must be acknowledged, got %v", err)
	}
	if !result.Ignored {
		t.Fatalf("expected ignored result, got %+v", result)
	}
}

func TestProcessWebhook_UnhandledTypeAcknowledged(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClient{})

	result, err := svc.ProcessWebhook(context.Background(), []byte(`{"id":"evt_x","type":"payout.paid","data":{"object":{}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Note != "unhandled event type" {
		t.Fatalf("unexpected note %q", result.Note)
	}
}

func TestProcessWebhook_ChargeRefunded(t *testing.T) {
	repo := newFakeRepo(&models.User{
		ID: 9, StripeCustomerID: "cus_9", Plan: "premium",
		SubscriptionStatus: models.BillingStatusActive,
	})
	svc := newTestService(repo, &fakeClient{})

	partial := []byte(`{
		"id": "evt_refund_partial",
		"type": "charge.refunded",
		"data": { "object": {
			"id": "ch_9", "customer": "cus_9", "amount": 999, "amount_refunded": 300,
			"refunded": false,
			"refunds": { "data": [ { "id": "re_77", "amount": 300 } ] }
		}}
	}`)
	if _, err := svc.ProcessWebhook(context.Background(), partial); err != nil {
		t.Fatalf("partial refund: %v", err)
	}

	user := repo.users[9]
	if user.LastRefundID != "re_77" || user.LastRefundAmount != 300 {
		t.Fatalf("partial refund audit fields: id=%q amount=%d", user.LastRefundID, user.LastRefundAmount)
	}
	if user.SubscriptionStatus != models.BillingStatusActive {
		t.Fatalf("partial refund must not change status, got %q", user.SubscriptionStatus)
	}

	full := []byte(`{
		"id": "evt_refund_full",
		"type": "charge.refunded",
		"data": { "object": {
			"id": "ch_9", "customer": "cus_9", "amount": 999, "amount_refunded": 999,
			"refunded": true,
			"refunds": { "data": [ { "id": "re_78", "amount": 699 } ] }
		}}
	}`)
	if _, err := svc.ProcessWebhook(context.Background(), full); err != nil {
		t.Fatalf("full refund: %v", err)
	}

	user = repo.users[9]
	if user.SubscriptionStatus != models.BillingStatusRefunded {
		t.Fatalf("full refund should set refunded status, got %q", user.SubscriptionStatus)
	}
	if user.LastRefundID != "re_78" || user.LastRefundAmount != 999 {
		t.Fatalf("full refund audit fields: id=%q amount=%d", user.LastRefundID, user.LastRefundAmount)
	}
}

func TestProcessWebhook_InvalidPayload(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClient{})

	_, err := svc.ProcessWebhook(context.Background(), []byte(`{not json`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if len(repo.events) != 1 {
		t.Fatalf("malformed body should still leave an audit marker")
	}
}

func TestCheckout_LazyCustomerCreation(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 11, Email: "a@b.c", Name: "Someone"})
	client := &fakeClient{}
	svc := newTestService(repo, client)

	url, err := svc.Checkout(context.Background(), 11, "premium", "https://app/success", "https://app/cancel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://checkout.example/price_prem" {
		t.Fatalf("unexpected checkout url %q", url)
	}
	if client.createdCustomers != 1 {
		t.Fatalf("expected one customer creation, got %d", client.createdCustomers)
	}
	if repo.users[11].StripeCustomerID == "" {
		t.Fatalf("expected customer id to be persisted")
	}

	if _, err := svc.Checkout(context.Background(), 11, "premium", "s", "c"); err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if client.createdCustomers != 1 {
		t.Fatalf("existing customer must be reused")
	}
}

func TestCheckout_Errors(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 1})
	svc := newTestService(repo, &fakeClient{})

	if _, err := svc.Checkout(context.Background(), 0, "premium", "s", "c"); !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if _, err := svc.Checkout(context.Background(), 1, "platinum", "s", "c"); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}

	unconfigured := NewService(repo, &fakeClient{}, NewPriceTable("", "", ""))
	if _, err := unconfigured.Checkout(context.Background(), 1, "standard", "s", "c"); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier for unconfigured price, got %v", err)
	}
}

func TestRefund_ResolvesViaLatestInvoice(t *testing.T) {
	repo := newFakeRepo(&models.User{
		ID: 20, StripeCustomerID: "cus_20", StripeSubscriptionID: "sub_20",
		Plan: "standard", SubscriptionStatus: models.BillingStatusActive,
	})
	client := &fakeClient{
		subscriptions: map[string]*Subscription{
			"sub_20": {ID: "sub_20", CustomerID: "cus_20", Status: "active", LatestInvoiceID: "in_20"},
		},
		invoices: map[string]*Invoice{
			"in_20": {ID: "in_20", ChargeID: "ch_20", AmountPaid: 999},
		},
		charges: map[string]*Charge{
			"ch_20": {ID: "ch_20", CustomerID: "cus_20", Amount: 999},
		},
	}
	svc := newTestService(repo, client)

	refund, err := svc.Refund(context.Background(), 20, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refund.ChargeID != "ch_20" || refund.Amount != 999 {
		t.Fatalf("unexpected refund %+v", refund)
	}

	user := repo.users[20]
	if user.SubscriptionStatus != models.BillingStatusRefunded {
		t.Fatalf("full refund should set refunded status, got %q", user.SubscriptionStatus)
	}
	if user.LastRefundID != refund.ID || user.LastRefundAmount != 999 {
		t.Fatalf("refund audit fields: id=%q amount=%d", user.LastRefundID, user.LastRefundAmount)
	}
}

func TestRefund_PartialKeepsStatus(t *testing.T) {
	repo := newFakeRepo(&models.User{
		ID: 21, StripeCustomerID: "cus_21",
		Plan: "premium", SubscriptionStatus: models.BillingStatusActive,
	})
	client := &fakeClient{
		charges:    map[string]*Charge{"ch_21": {ID: "ch_21", CustomerID: "cus_21", Amount: 1999}},
		chargeList: []Charge{{ID: "ch_21", CustomerID: "cus_21", Amount: 1999}},
	}
	svc := newTestService(repo, client)

	refund, err := svc.Refund(context.Background(), 21, 500, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refund.Amount != 500 {
		t.Fatalf("expected partial amount 500, got %d", refund.Amount)
	}
	if repo.users[21].SubscriptionStatus != models.BillingStatusActive {
		t.Fatalf("partial refund must keep status, got %q", repo.users[21].SubscriptionStatus)
	}
}

func TestRefund_RemainderAfterPartialSetsRefunded(t *testing.T) {
	repo := newFakeRepo(&models.User{
		ID: 23, StripeCustomerID: "cus_23",
		Plan: "premium", SubscriptionStatus: models.BillingStatusActive,
	})
	// An earlier partial refund already returned 1499 of the 1999 charge.
	client := &fakeClient{
		charges:    map[string]*Charge{"ch_23": {ID: "ch_23", CustomerID: "cus_23", Amount: 1999, AmountRefunded: 1499}},
		chargeList: []Charge{{ID: "ch_23", CustomerID: "cus_23", Amount: 1999, AmountRefunded: 1499}},
	}
	svc := newTestService(repo, client)

	refund, err := svc.Refund(context.Background(), 23, 500, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refund.Amount != 500 {
		t.Fatalf("expected amount 500, got %d", refund.Amount)
	}
	if repo.users[23].SubscriptionStatus != models.BillingStatusRefunded {
		t.Fatalf("refund covering the remainder should set refunded status, got %q", repo.users[23].SubscriptionStatus)
	}
}

func TestRefund_NoChargeFound(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 22, StripeCustomerID: "cus_22"})
	svc := newTestService(repo, &fakeClient{})

	if _, err := svc.Refund(context.Background(), 22, 0, ""); !errors.Is(err, ErrNoChargeFound) {
		t.Fatalf("expected ErrNoChargeFound, got %v", err)
	}
}

func TestCancelAtPeriodEnd(t *testing.T) {
	repo := newFakeRepo(
		&models.User{ID: 30, StripeSubscriptionID: "sub_30"},
		&models.User{ID: 31},
	)
	client := &fakeClient{
		subscriptions: map[string]*Subscription{
			"sub_30": {ID: "sub_30", Status: "active"},
		},
	}
	svc := newTestService(repo, client)

	sub, err := svc.CancelAtPeriodEnd(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sub.CancelAtPeriodEnd {
		t.Fatalf("expected cancel_at_period_end to be set")
	}
	if len(client.canceled) != 1 || client.canceled[0] != "sub_30" {
		t.Fatalf("unexpected cancel calls: %v", client.canceled)
	}

	if _, err := svc.CancelAtPeriodEnd(context.Background(), 31); !errors.Is(err, ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestActivateTrial_OneWay(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 40})
	svc := newTestService(repo, &fakeClient{})

	user, err := svc.ActivateTrial(context.Background(), 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Plan != "trial" || !user.TrialUsed {
		t.Fatalf("unexpected user state after trial: %+v", user)
	}
	if user.SubscriptionEndDate == nil {
		t.Fatalf("expected trial period end to be set")
	}

	if _, err := svc.ActivateTrial(context.Background(), 40); !errors.Is(err, ErrTrialAlreadyUsed) {
		t.Fatalf("expected ErrTrialAlreadyUsed, got %v", err)
	}
	if repo.trialCalls != 2 {
		t.Fatalf("expected two trial attempts, got %d", repo.trialCalls)
	}
}
