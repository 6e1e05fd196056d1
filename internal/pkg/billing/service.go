package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soundhaven/soundhaven/app/models"
	"github.com/soundhaven/soundhaven/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// TrialDuration is the length of the one-time trial subscription.
const TrialDuration = 14 * 24 * time.Hour

// ErrInvalidPayload marks webhook bodies that passed signature verification
// but do not decode as an event envelope.
var ErrInvalidPayload = errors.New("billing: invalid webhook payload")

// Service reconciles processor billing events into local subscription state
// and fronts the processor API for checkout, refund and cancel flows.
type Service struct {
	repo   Repository
	client ProcessorClient
	prices *PriceTable
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, client ProcessorClient, prices *PriceTable) *Service {
	return &Service{repo: repo, client: client, prices: prices}
}

// NewServiceFromDB creates a billing service from a GORM DB handle using the
// environment-configured processor client and price table.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv(), NewPriceTableFromEnv())
}

// ProcessWebhook applies one verified webhook delivery exactly once.
//
// The event marker is written first via conditional insert, then effects are
// applied, then the marker is stamped processed. A crash between marker and
// apply drops the update (the retry is acknowledged as a duplicate); the
// marker's processing_error field flags such rows for manual replay.
func (s *Service) ProcessWebhook(ctx context.Context, raw []byte) (*WebhookResult, error) {
	ev, parseErr := ParseEvent(raw)

	eventID := ""
	eventType := ""
	if parseErr == nil {
		eventID = strings.TrimSpace(ev.ID)
		eventType = strings.TrimSpace(ev.Type)
	}
	if eventID == "" {
		sum := sha256.Sum256(raw)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(raw),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{EventID: eventID, EventType: eventType}
	if !created {
		result.Duplicate = true
		return result, nil
	}

	if parseErr != nil {
		_ = s.repo.MarkWebhookProcessed(stored.ID, "", parseErr.Error())
		return result, fmt.Errorf("%w: %v", ErrInvalidPayload, parseErr)
	}

	note, applyErr := s.applyEvent(ctx, ev)
	if applyErr != nil {
		if errors.Is(applyErr, ErrUserNotResolved) || errors.Is(applyErr, ErrUnknownPrice) {
			// Event may belong to a test or foreign customer, or to a price
			// not yet configured. Acknowledge; the raw payload stays on the
			// marker for later reconciliation.
			_ = s.repo.MarkWebhookProcessed(stored.ID, applyErr.Error(), "")
			result.Ignored = true
			result.Note = applyErr.Error()
			return result, nil
		}
		_ = s.repo.MarkWebhookProcessed(stored.ID, "", applyErr.Error())
		return result, applyErr
	}

	if err := s.repo.MarkWebhookProcessed(stored.ID, note, ""); err != nil {
		return result, err
	}
	result.Note = note
	return result, nil
}

// applyEvent dispatches one parsed event. Each handler performs at most one
// user merge-write and tolerates missing linkage.
func (s *Service) applyEvent(ctx context.Context, ev *Event) (string, error) {
	switch ev.Type {
	case "checkout.session.completed":
		return s.applyCheckoutCompleted(ctx, ev.Data.Object)
	case "customer.subscription.created", "customer.subscription.updated":
		return s.applySubscriptionUpserted(ctx, ev.Data.Object)
	case "customer.subscription.deleted":
		return s.applySubscriptionDeleted(ctx, ev.Data.Object)
	case "invoice.payment_succeeded":
		return s.applyInvoicePaid(ctx, ev.Data.Object)
	case "invoice.payment_failed":
		return s.applyInvoiceFailed(ctx, ev.Data.Object)
	case "charge.refunded":
		return s.applyChargeRefunded(ctx, ev.Data.Object)
	default:
		return "unhandled event type", nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, object json.RawMessage) (string, error) {
	var sess checkoutSessionObject
	if err := json.Unmarshal(object, &sess); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	user, err := s.resolveCheckoutUser(&sess)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(sess.Subscription) == "" {
		return "checkout session without subscription", nil
	}
	sub, err := s.client.GetSubscription(ctx, sess.Subscription)
	if err != nil {
		return "", err
	}

	plan, err := s.planForPrice(sub.PriceID)
	if err != nil {
		return "", err
	}

	state := SubscriptionState{
		Plan:           string(plan),
		Status:         sub.Status,
		PeriodEnd:      sub.CurrentPeriodEnd,
		CustomerID:     sess.Customer,
		SubscriptionID: sub.ID,
	}
	if err := s.repo.ApplySubscriptionState(user.ID, state); err != nil {
		return "", err
	}
	return "checkout completed: plan " + string(plan), nil
}

func (s *Service) applySubscriptionUpserted(ctx context.Context, object json.RawMessage) (string, error) {
	var raw subscriptionObject
	if err := json.Unmarshal(object, &raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	sub := subscriptionFromObject(&raw)

	user, err := s.resolveUserByCustomer(sub.CustomerID)
	if err != nil {
		return "", err
	}

	plan, err := s.planForPrice(sub.PriceID)
	if err != nil {
		return "", err
	}

	state := SubscriptionState{
		Plan:           string(plan),
		Status:         sub.Status,
		SubscriptionID: sub.ID,
	}
	note := "subscription synced: plan " + string(plan)
	if sub.CancelAtPeriodEnd {
		// Scheduled cancellation: the tier stays active until the recorded
		// timestamp; the deletion event performs the downgrade.
		end := sub.CancelAt
		if end == nil {
			end = sub.CurrentPeriodEnd
		}
		state.PeriodEnd = end
		note = "cancellation scheduled at period end"
	} else {
		state.PeriodEnd = sub.CurrentPeriodEnd
	}

	if err := s.repo.ApplySubscriptionState(user.ID, state); err != nil {
		return "", err
	}
	return note, nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, object json.RawMessage) (string, error) {
	var raw subscriptionObject
	if err := json.Unmarshal(object, &raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	user, err := s.resolveUserByCustomer(raw.Customer)
	if err != nil {
		return "", err
	}

	state := SubscriptionState{
		Plan:           string(entitlements.PlanFree),
		Status:         models.BillingStatusCanceled,
		ClearPeriodEnd: true,
	}
	if err := s.repo.ApplySubscriptionState(user.ID, state); err != nil {
		return "", err
	}
	return "subscription deleted: downgraded to free", nil
}

func (s *Service) applyInvoicePaid(ctx context.Context, object json.RawMessage) (string, error) {
	var invoice invoiceObject
	if err := json.Unmarshal(object, &invoice); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	user, err := s.resolveUserByCustomer(invoice.Customer)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(invoice.Subscription) == "" {
		return "invoice without subscription", nil
	}
	sub, err := s.client.GetSubscription(ctx, invoice.Subscription)
	if err != nil {
		return "", err
	}

	plan, err := s.planForPrice(sub.PriceID)
	if err != nil {
		return "", err
	}

	state := SubscriptionState{
		Plan:           string(plan),
		Status:         sub.Status,
		PeriodEnd:      sub.CurrentPeriodEnd,
		SubscriptionID: sub.ID,
	}
	if err := s.repo.ApplySubscriptionState(user.ID, state); err != nil {
		return "", err
	}
	return "renewal applied", nil
}

func (s *Service) applyInvoiceFailed(ctx context.Context, object json.RawMessage) (string, error) {
	var invoice invoiceObject
	if err := json.Unmarshal(object, &invoice); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	user, err := s.resolveUserByCustomer(invoice.Customer)
	if err != nil {
		return "", err
	}

	// Grace period: tier and period end stay untouched.
	state := SubscriptionState{Status: models.BillingStatusPastDue}
	if err := s.repo.ApplySubscriptionState(user.ID, state); err != nil {
		return "", err
	}
	return "payment failed: status past_due", nil
}

func (s *Service) applyChargeRefunded(ctx context.Context, object json.RawMessage) (string, error) {
	var charge chargeObject
	if err := json.Unmarshal(object, &charge); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	user, err := s.resolveUserByCustomer(charge.Customer)
	if err != nil {
		return "", err
	}

	refundID := charge.latestRefundID()
	if refundID == "" {
		refundID = charge.ID
	}
	amount := charge.AmountRefunded

	state := SubscriptionState{
		LastRefundID:     refundID,
		LastRefundAmount: &amount,
	}
	note := "partial refund recorded"
	if charge.Refunded {
		// Full refund is a status change by policy, not a forced downgrade.
		state.Status = models.BillingStatusRefunded
		note = "full refund recorded"
	}

	if err := s.repo.ApplySubscriptionState(user.ID, state); err != nil {
		return "", err
	}
	return note, nil
}

// Checkout resolves or lazily creates the user's processor customer and
// builds a hosted checkout session for the selected tier.
func (s *Service) Checkout(ctx context.Context, userID uint, tierSelector, successURL, cancelURL string) (string, error) {
	if userID == 0 {
		return "", ErrAuthenticationRequired
	}

	tier, ok := ParseTier(tierSelector)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tierSelector)
	}
	priceID, ok := s.prices.PriceForTier(tier)
	if !ok {
		return "", fmt.Errorf("%w: no price configured for %s", ErrUnknownTier, tier)
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return "", err
	}

	customerID := strings.TrimSpace(user.StripeCustomerID)
	if customerID == "" {
		customer, err := s.client.CreateCustomer(ctx, user.Email, user.Name, user.ID)
		if err != nil {
			return "", err
		}
		customerID = customer.ID
		if err := s.repo.SetStripeCustomerID(user.ID, customerID); err != nil {
			return "", err
		}
	}

	session, err := s.client.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:        customerID,
		PriceID:           priceID,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: strconv.FormatUint(uint64(user.ID), 10),
		Metadata: map[string]string{
			"user_id": strconv.FormatUint(uint64(user.ID), 10),
			"tier":    string(tier),
		},
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

// Refund locates the user's most recent charge and requests a refund.
// Charge preference order: explicit charge ID, then the latest invoice's
// charge, then the customer's most recent charge. amount <= 0 refunds in
// full.
func (s *Service) Refund(ctx context.Context, userID uint, amount int64, explicitChargeID string) (*Refund, error) {
	if userID == 0 {
		return nil, ErrAuthenticationRequired
	}
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	charge, err := s.resolveCharge(ctx, user, explicitChargeID)
	if err != nil {
		return nil, err
	}

	refund, err := s.client.CreateRefund(ctx, charge.ID, amount)
	if err != nil {
		return nil, err
	}

	state := SubscriptionState{
		LastRefundID:     refund.ID,
		LastRefundAmount: &refund.Amount,
	}
	// Prior partial refunds count toward full coverage of the charge.
	if refund.Amount >= charge.Amount-charge.AmountRefunded {
		state.Status = models.BillingStatusRefunded
	}
	if err := s.repo.ApplySubscriptionState(user.ID, state); err != nil {
		return nil, err
	}
	return refund, nil
}

// CancelAtPeriodEnd flags the user's subscription for cancellation with the
// processor. Local state is updated when the subscription.updated webhook
// lands.
func (s *Service) CancelAtPeriodEnd(ctx context.Context, userID uint) (*Subscription, error) {
	if userID == 0 {
		return nil, ErrAuthenticationRequired
	}
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.StripeSubscriptionID) == "" {
		return nil, ErrNoActiveSubscription
	}
	return s.client.CancelSubscriptionAtPeriodEnd(ctx, user.StripeSubscriptionID)
}

// ActivateTrial starts the one-time trial. The underlying update is guarded
// so trial_used only ever transitions false->true.
func (s *Service) ActivateTrial(ctx context.Context, userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, ErrAuthenticationRequired
	}
	if err := s.repo.MarkTrialUsed(userID, time.Now().Add(TrialDuration)); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(userID)
}

// GetUser loads the user's current subscription state.
func (s *Service) GetUser(userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, ErrAuthenticationRequired
	}
	return s.repo.GetUserByID(userID)
}

func (s *Service) resolveCharge(ctx context.Context, user *models.User, explicitChargeID string) (*Charge, error) {
	if id := strings.TrimSpace(explicitChargeID); id != "" {
		return s.client.GetCharge(ctx, id)
	}

	if subID := strings.TrimSpace(user.StripeSubscriptionID); subID != "" {
		sub, err := s.client.GetSubscription(ctx, subID)
		if err == nil && sub.LatestInvoiceID != "" {
			invoice, err := s.client.GetInvoice(ctx, sub.LatestInvoiceID)
			if err == nil && invoice.ChargeID != "" {
				return s.client.GetCharge(ctx, invoice.ChargeID)
			}
		}
	}

	if customerID := strings.TrimSpace(user.StripeCustomerID); customerID != "" {
		charges, err := s.client.ListCharges(ctx, customerID, 1)
		if err != nil {
			return nil, err
		}
		if len(charges) > 0 {
			return &charges[0], nil
		}
	}

	return nil, ErrNoChargeFound
}

func (s *Service) resolveUserByCustomer(customerID string) (*models.User, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, ErrUserNotResolved
	}
	user, err := s.repo.GetUserByCustomerID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotResolved, id)
		}
		return nil, err
	}
	return user, nil
}

// resolveCheckoutUser prefers the processor customer ID and falls back to
// the user reference embedded at session creation time.
func (s *Service) resolveCheckoutUser(sess *checkoutSessionObject) (*models.User, error) {
	if user, err := s.resolveUserByCustomer(sess.Customer); err == nil {
		return user, nil
	} else if !errors.Is(err, ErrUserNotResolved) {
		return nil, err
	}

	ref := strings.TrimSpace(sess.ClientReferenceID)
	if ref == "" {
		ref = strings.TrimSpace(sess.Metadata["user_id"])
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: checkout session %s", ErrUserNotResolved, sess.ID)
	}
	id, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user reference %q", ErrUserNotResolved, ref)
	}
	user, err := s.repo.GetUserByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrUserNotResolved, id)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) planForPrice(priceID string) (entitlements.Plan, error) {
	tier, ok := s.prices.TierForPrice(priceID)
	if !ok {
		return entitlements.PlanFree, fmt.Errorf("%w: %q", ErrUnknownPrice, priceID)
	}
	return PlanForTier(tier), nil
}
