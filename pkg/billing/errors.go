package billing

import "errors"

var (
	ErrRecordNotFound  = errors.New("billing: subscription record not found")
	ErrAccountNotFound = errors.New("billing: account not found")

	ErrSubscriptionMissing = errors.New("billing: subscription not found at provider")
	ErrProviderUnavailable = errors.New("billing: payment provider unavailable")

	ErrEventVerificationFailed = errors.New("billing: webhook signature verification failed")
	ErrEventUnparseable        = errors.New("billing: webhook payload could not be parsed")
	ErrEventUnattributed       = errors.New("billing: webhook event cannot be attributed to an account")

	ErrMissingAPIKey        = errors.New("billing: provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing: provider webhook secret is required")
	ErrNoCheckoutURL        = errors.New("billing: no checkout URL returned from provider")
	ErrNoPortalURL          = errors.New("billing: no portal URL returned from provider")

	ErrPlanNotFound      = errors.New("billing: plan not found in catalog")
	ErrInvalidPlanConfig = errors.New("billing: invalid plan configuration")
)
