package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"

	"github.com/dmitrymomot/subkit/pkg/logger"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// EventTransactionCompleted is the Paddle event confirming a payment.
const EventTransactionCompleted = "transaction.completed"

// CustomDataKey is the checkout custom_data field carrying the user subscription ID.
const CustomDataKey = "user_subscription_id"

// Activator marks a user subscription as paid. *subscription.Manager implements it.
type Activator interface {
	Get(ctx context.Context, id uuid.UUID) (*subscription.UserSubscription, error)
	Activate(ctx context.Context, us *subscription.UserSubscription) error
}

// Deduplicator makes redelivered notifications idempotent.
type Deduplicator interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Notification is the part of a Paddle notification the handler reads.
type Notification struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		ID         string         `json:"id"`
		Status     string         `json:"status"`
		CustomData map[string]any `json:"custom_data"`
	} `json:"data"`
}

// UserSubscriptionID returns the ID placed into custom_data at checkout.
func (n Notification) UserSubscriptionID() (uuid.UUID, error) {
	raw, ok := n.Data.CustomData[CustomDataKey].(string)
	if !ok || raw == "" {
		return uuid.Nil, ErrMissingSubscription
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(ErrMissingSubscription, err)
	}
	return id, nil
}

// WebhookHandler verifies Paddle notifications and activates the user
// subscription on completed transactions. Other events are acknowledged.
type WebhookHandler struct {
	verifier  *paddle.WebhookVerifier
	activator Activator
	dedup     Deduplicator
	maxBody   int64
	logger    *slog.Logger
}

// WebhookOption configures WebhookHandler.
type WebhookOption func(*WebhookHandler)

func WithDeduplicator(d Deduplicator) WebhookOption {
	return func(h *WebhookHandler) { h.dedup = d }
}

func WithLogger(l *slog.Logger) WebhookOption {
	return func(h *WebhookHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewWebhookHandler creates the handler. Panics when activator is nil.
func NewWebhookHandler(cfg PaddleConfig, activator Activator, opts ...WebhookOption) (*WebhookHandler, error) {
	if !cfg.Enabled() {
		return nil, ErrMissingSecret
	}
	if activator == nil {
		panic("billing: activator is required")
	}
	h := &WebhookHandler{
		verifier:  paddle.NewWebhookVerifier(cfg.WebhookSecret),
		activator: activator,
		maxBody:   cfg.MaxBodyBytes,
		logger:    slog.Default(),
	}
	if h.maxBody <= 0 {
		h.maxBody = 1 << 20
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.parse(r)
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		h.logger.WarnContext(ctx, "rejected oversized paddle notification", logger.Error(err))
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, ErrInvalidSignature):
		h.logger.WarnContext(ctx, "rejected paddle notification", logger.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	case err != nil:
		h.logger.WarnContext(ctx, "malformed paddle notification", logger.Error(err))
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.Handle(ctx, n); err != nil {
		h.logger.ErrorContext(ctx, "failed to process paddle notification",
			slog.String("event_id", n.EventID),
			logger.EventType(n.EventType),
			logger.Error(err))
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// parse verifies the signature and decodes the body.
func (h *WebhookHandler) parse(r *http.Request) (Notification, error) {
	var n Notification

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		return n, errors.Join(ErrInvalidPayload, err)
	}
	if int64(len(body)) > h.maxBody {
		return n, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, h.maxBody)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	ok, err := h.verifier.Verify(r)
	if err != nil || !ok {
		return n, errors.Join(ErrInvalidSignature, err)
	}

	if err := json.Unmarshal(body, &n); err != nil {
		return n, errors.Join(ErrInvalidPayload, err)
	}
	if n.EventType == "" {
		return n, fmt.Errorf("%w: event_type is empty", ErrInvalidPayload)
	}
	return n, nil
}

// Handle processes a verified notification. Notifications that do not
// reference a known user subscription are logged and dropped; only
// failures worth a redelivery are returned.
func (h *WebhookHandler) Handle(ctx context.Context, n Notification) error {
	if n.EventType != EventTransactionCompleted {
		h.logger.DebugContext(ctx, "ignoring paddle notification", logger.EventType(n.EventType))
		return nil
	}

	id, err := n.UserSubscriptionID()
	if err != nil {
		h.logger.WarnContext(ctx, "paddle transaction without user subscription",
			slog.String("transaction_id", n.Data.ID), logger.Error(err))
		return nil
	}

	if h.dedup != nil && n.EventID != "" {
		first, err := h.dedup.Claim(ctx, n.EventID)
		if err != nil {
			return err
		}
		if !first {
			h.logger.InfoContext(ctx, "duplicate paddle notification", slog.String("event_id", n.EventID))
			return nil
		}
	}

	if err := h.activate(ctx, id); err != nil {
		if h.dedup != nil && n.EventID != "" {
			if rerr := h.dedup.Release(ctx, n.EventID); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
		return err
	}

	h.logger.InfoContext(ctx, "payment confirmed",
		logger.UserSubscriptionID(id.String()),
		slog.String("transaction_id", n.Data.ID))
	return nil
}

func (h *WebhookHandler) activate(ctx context.Context, id uuid.UUID) error {
	us, err := h.activator.Get(ctx, id)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		h.logger.WarnContext(ctx, "paddle transaction for unknown user subscription",
			logger.UserSubscriptionID(id.String()))
		return nil
	}
	if err != nil {
		return err
	}
	return h.activator.Activate(ctx, us)
}
