package controllers

import (
	"errors"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/soundhaven/soundhaven/internal/pkg/billing"
	"github.com/soundhaven/soundhaven/internal/pkg/database"
	"github.com/soundhaven/soundhaven/internal/pkg/env"
	"github.com/soundhaven/soundhaven/internal/pkg/usercontext"
)

var (
	billingOnce sync.Once
	billingSvc  *billing.Service
)

func billingService() *billing.Service {
	billingOnce.Do(func() {
		billingSvc = billing.NewServiceFromDB(database.GetDB())
	})
	return billingSvc
}

// HandleStripeWebhook receives signed processor notifications.
//
// The raw body bytes are verified before anything touches the database; an
// unverifiable delivery leaves no trace beyond a log line. Verified events
// are deduplicated and applied by the billing service.
func HandleStripeWebhook(c *fiber.Ctx) error {
	// Copy the raw bytes; fasthttp reuses the underlying buffer.
	raw := append([]byte(nil), c.BodyRaw()...)

	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if secret == "" {
		log.Error("[Billing] STRIPE_WEBHOOK_SECRET is not configured, rejecting webhook")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	if !billing.VerifyWebhookSignature(raw, c.Get("Stripe-Signature"), secret) {
		ipv4, _ := GetClientIP(c)
		log.Warnf("[Billing] Webhook signature verification failed (ip=%s)", ipv4)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	result, err := billingService().ProcessWebhook(c.UserContext(), raw)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		}
		log.Errorf("[Billing] Webhook processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	if result.Duplicate {
		log.Infof("[Billing] Duplicate webhook delivery ignored: %s", result.EventID)
	}
	return c.JSON(fiber.Map{"received": true})
}

type checkoutRequest struct {
	Tier       string `json:"tier"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// HandleBillingCheckout creates a hosted checkout session for the selected
// tier and points the client at it.
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	var req checkoutRequest
	if c.Method() == fiber.MethodPost {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
		}
	}
	if req.Tier == "" {
		req.Tier = c.Query("tier")
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080"), "/")
	if req.SuccessURL == "" {
		req.SuccessURL = base + "/billing/success"
	}
	if req.CancelURL == "" {
		req.CancelURL = base + "/billing/cancelled"
	}

	url, err := billingService().Checkout(c.UserContext(), userCtx.UserID, req.Tier, req.SuccessURL, req.CancelURL)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrAuthenticationRequired):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
		case errors.Is(err, billing.ErrUnknownTier):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_tier", "message": "No such subscription tier"})
		default:
			log.Errorf("[Billing] Checkout failed for user %d: %v", userCtx.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create checkout session"})
		}
	}

	// Browsers get sent straight to the hosted page, API clients get the URL.
	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML) {
		return c.Redirect(url, fiber.StatusSeeOther)
	}
	return c.JSON(fiber.Map{"url": url})
}

type refundRequest struct {
	Amount   int64  `json:"amount"`
	ChargeID string `json:"charge_id"`
}

// HandleBillingRefund refunds the caller's most recent charge, or a named
// charge, fully or partially.
func HandleBillingRefund(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	var req refundRequest
	if err := c.BodyParser(&req); err != nil && c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if req.Amount < 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Amount must not be negative"})
	}

	refund, err := billingService().Refund(c.UserContext(), userCtx.UserID, req.Amount, req.ChargeID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNoChargeFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_charge_found", "message": "No refundable charge found"})
		default:
			log.Errorf("[Billing] Refund failed for user %d: %v", userCtx.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Refund failed"})
		}
	}

	return c.JSON(fiber.Map{
		"refund_id": refund.ID,
		"charge_id": refund.ChargeID,
		"amount":    refund.Amount,
		"status":    refund.Status,
	})
}

// HandleBillingCancel schedules the caller's subscription for cancellation at
// period end. The local record changes when the resulting webhook lands.
func HandleBillingCancel(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	sub, err := billingService().CancelAtPeriodEnd(c.UserContext(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrNoActiveSubscription) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no_active_subscription", "message": "No subscription to cancel"})
		}
		log.Errorf("[Billing] Cancel failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Cancellation failed"})
	}

	return c.JSON(fiber.Map{
		"subscription_id":      sub.ID,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"current_period_end":   sub.CurrentPeriodEnd,
	})
}

// HandleBillingTrial activates the one-time trial for the caller.
func HandleBillingTrial(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	user, err := billingService().ActivateTrial(c.UserContext(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrTrialAlreadyUsed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "trial_already_used", "message": "Trial has already been used"})
		}
		log.Errorf("[Billing] Trial activation failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Trial activation failed"})
	}

	return c.JSON(fiber.Map{
		"plan":                  user.Plan,
		"subscription_status":   user.SubscriptionStatus,
		"subscription_end_date": formatTimePtr(user.SubscriptionEndDate),
	})
}

// HandleGetSubscription returns the caller's current subscription state.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	user, err := billingService().GetUser(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load subscription"})
	}

	return c.JSON(fiber.Map{
		"plan":                  user.Plan,
		"subscription_status":   user.SubscriptionStatus,
		"subscription_end_date": formatTimePtr(user.SubscriptionEndDate),
		"trial_used":            user.TrialUsed,
		"active":                user.HasActiveSubscription(),
	})
}
