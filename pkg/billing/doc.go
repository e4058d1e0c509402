// Package billing connects payment confirmations to the subscription
// lifecycle.
//
// WebhookHandler receives Paddle notifications, verifies the
// Paddle-Signature header with github.com/PaddleHQ/paddle-go-sdk/v4 and, for
// transaction.completed events, activates the user subscription whose ID the
// checkout stored in custom_data.user_subscription_id. It never charges or
// refunds; Paddle remains the system of record for payments.
//
// Paddle retries deliveries that do not get a 2xx answer. A Deduplicator,
// such as the Redis one, keeps a retried notification from extending a
// subscription twice.
package billing
