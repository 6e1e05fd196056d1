package billing

import "errors"

// Sentinel errors surfaced by the billing service. Handlers map these to
// HTTP status codes; webhook processing treats ErrUserNotResolved and
// ErrUnknownPrice as acknowledged no-ops.
var (
	ErrInvalidSignature       = errors.New("billing: invalid webhook signature")
	ErrUnknownTier            = errors.New("billing: unknown tier")
	ErrUnknownPrice           = errors.New("billing: unknown price id")
	ErrNoChargeFound          = errors.New("billing: no charge found")
	ErrUserNotResolved        = errors.New("billing: no local user for processor customer")
	ErrAuthenticationRequired = errors.New("billing: authentication required")
	ErrTrialAlreadyUsed       = errors.New("billing: trial already used")
	ErrNoActiveSubscription   = errors.New("billing: no active subscription")
)
