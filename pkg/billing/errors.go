package billing

import "errors"

var (
	ErrMissingSecret       = errors.New("billing: paddle webhook secret is required")
	ErrInvalidSignature    = errors.New("billing: webhook signature verification failed")
	ErrInvalidPayload      = errors.New("billing: malformed webhook payload")
	ErrPayloadTooLarge     = errors.New("billing: webhook payload exceeds the size limit")
	ErrMissingSubscription = errors.New("billing: webhook carries no user subscription id")
)
