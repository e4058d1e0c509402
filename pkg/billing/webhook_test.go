package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/pkg/billing"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

const secret = "pdl_ntfset_test_secret"

type mockActivator struct {
	mock.Mock
}

func (m *mockActivator) Get(ctx context.Context, id uuid.UUID) (*subscription.UserSubscription, error) {
	args := m.Called(ctx, id)
	if us := args.Get(0); us != nil {
		return us.(*subscription.UserSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockActivator) Activate(ctx context.Context, us *subscription.UserSubscription) error {
	return m.Called(ctx, us).Error(0)
}

type memoryDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memoryDedup) Claim(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memoryDedup) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}

func sign(body string) string {
	ts := fmt.Sprint(time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + ":" + body))
	return "ts=" + ts + ";h1=" + hex.EncodeToString(mac.Sum(nil))
}

func notification(eventID, eventType string, usID uuid.UUID) string {
	return fmt.Sprintf(`{"event_id":%q,"event_type":%q,"occurred_at":"2024-03-10T12:00:00Z",`+
		`"data":{"id":"txn_01","status":"completed","custom_data":{"user_subscription_id":%q}}}`,
		eventID, eventType, usID)
}

func post(h http.Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Paddle-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newHandler(t *testing.T, activator billing.Activator, opts ...billing.WebhookOption) *billing.WebhookHandler {
	t.Helper()
	opts = append(opts, billing.WithLogger(slog.New(slog.DiscardHandler)))
	h, err := billing.NewWebhookHandler(billing.PaddleConfig{WebhookSecret: secret}, activator, opts...)
	require.NoError(t, err)
	return h
}

func TestNewWebhookHandler_RequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := billing.NewWebhookHandler(billing.PaddleConfig{}, &mockActivator{})
	assert.ErrorIs(t, err, billing.ErrMissingSecret)
}

func TestWebhookHandler_BodyLimit(t *testing.T) {
	t.Parallel()

	body := notification("evt_1", billing.EventTransactionCompleted, uuid.New())
	newLimited := func(t *testing.T, limit int64, activator billing.Activator) *billing.WebhookHandler {
		t.Helper()
		h, err := billing.NewWebhookHandler(billing.PaddleConfig{WebhookSecret: secret, MaxBodyBytes: limit}, activator,
			billing.WithLogger(slog.New(slog.DiscardHandler)))
		require.NoError(t, err)
		return h
	}

	t.Run("oversized body is rejected before verification", func(t *testing.T) {
		t.Parallel()
		activator := &mockActivator{}
		rec := post(newLimited(t, int64(len(body))-1, activator), body, sign(body))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		activator.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("body at the limit is accepted", func(t *testing.T) {
		t.Parallel()
		us := subscription.NewUserSubscription(uuid.New(), uuid.New(), time.Now())
		exact := notification("evt_2", billing.EventTransactionCompleted, us.ID)
		activator := &mockActivator{}
		activator.On("Get", mock.Anything, us.ID).Return(us, nil)
		activator.On("Activate", mock.Anything, us).Return(nil)

		rec := post(newLimited(t, int64(len(exact)), activator), exact, sign(exact))
		assert.Equal(t, http.StatusOK, rec.Code)
		activator.AssertExpectations(t)
	})
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	t.Run("completed transaction activates subscription", func(t *testing.T) {
		t.Parallel()
		us := subscription.NewUserSubscription(uuid.New(), uuid.New(), time.Now())
		activator := &mockActivator{}
		activator.On("Get", mock.Anything, us.ID).Return(us, nil)
		activator.On("Activate", mock.Anything, us).Return(nil)

		body := notification("evt_1", billing.EventTransactionCompleted, us.ID)
		rec := post(newHandler(t, activator), body, sign(body))

		assert.Equal(t, http.StatusOK, rec.Code)
		activator.AssertExpectations(t)
	})

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		activator := &mockActivator{}
		body := notification("evt_1", billing.EventTransactionCompleted, uuid.New())

		rec := post(newHandler(t, activator), body, sign(body+"tampered"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = post(newHandler(t, activator), body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		activator.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()
		body := `{"event_type":`
		rec := post(newHandler(t, &mockActivator{}), body, sign(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("other events are acknowledged", func(t *testing.T) {
		t.Parallel()
		activator := &mockActivator{}
		body := notification("evt_2", "subscription.updated", uuid.New())

		rec := post(newHandler(t, activator), body, sign(body))
		assert.Equal(t, http.StatusOK, rec.Code)
		activator.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("unknown subscription is acknowledged", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		activator := &mockActivator{}
		activator.On("Get", mock.Anything, id).Return(nil, subscription.ErrSubscriptionNotFound)

		body := notification("evt_3", billing.EventTransactionCompleted, id)
		rec := post(newHandler(t, activator), body, sign(body))
		assert.Equal(t, http.StatusOK, rec.Code)
		activator.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything)
	})

	t.Run("missing custom data is acknowledged", func(t *testing.T) {
		t.Parallel()
		activator := &mockActivator{}
		body := `{"event_id":"evt_4","event_type":"transaction.completed","data":{"id":"txn_02","custom_data":null}}`

		rec := post(newHandler(t, activator), body, sign(body))
		assert.Equal(t, http.StatusOK, rec.Code)
		activator.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("activation failure asks for redelivery", func(t *testing.T) {
		t.Parallel()
		us := subscription.NewUserSubscription(uuid.New(), uuid.New(), time.Now())
		activator := &mockActivator{}
		activator.On("Get", mock.Anything, us.ID).Return(us, nil)
		activator.On("Activate", mock.Anything, us).Return(errors.New("db down")).Once()
		activator.On("Activate", mock.Anything, us).Return(nil).Once()

		dedup := &memoryDedup{seen: map[string]bool{}}
		h := newHandler(t, activator, billing.WithDeduplicator(dedup))
		body := notification("evt_5", billing.EventTransactionCompleted, us.ID)

		assert.Equal(t, http.StatusInternalServerError, post(h, body, sign(body)).Code)
		assert.Equal(t, http.StatusOK, post(h, body, sign(body)).Code)
		assert.Equal(t, http.StatusOK, post(h, body, sign(body)).Code)

		activator.AssertNumberOfCalls(t, "Activate", 2)
	})
}

func TestWebhookHandler_ActivatesThroughManager(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	plan := subscription.Plan{
		ID: uuid.New(), Name: "Pro", Group: "pro",
		Price:            subscription.Money{Amount: 1000, Currency: "USD"},
		RecurrencePeriod: 1, RecurrenceUnit: subscription.UnitMonth,
	}
	store := subscription.NewMemoryStore(plan)
	mgr := subscription.NewManager(store, store, subscription.NewMemoryGroups(),
		subscription.WithClock(func() time.Time { return now }),
		subscription.WithLogger(slog.New(slog.DiscardHandler)))

	us, err := mgr.UserSubscriptionFor(ctx, uuid.New(), plan.ID)
	require.NoError(t, err)
	require.NoError(t, mgr.Signup(ctx, us))

	body := notification("evt_9", billing.EventTransactionCompleted, us.ID)
	rec := post(newHandler(t, mgr), body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := mgr.Get(ctx, us.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Expires)
	assert.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), *stored.Expires)
}
