package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventDeduper suppresses duplicate webhook deliveries by provider event id.
// Purely an optimization: reconciliation is idempotent, so dedupe failures
// must never fail the webhook.
//
// Seen must not record anything: an event id is marked only after the event
// has been fully applied. Marking earlier would classify the redelivery of a
// failed apply as a duplicate and lose the state change for good.
type EventDeduper interface {
	// Seen reports whether the event id was already marked as applied
	// within the window.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Mark records the event id as applied.
	Mark(ctx context.Context, eventID string) error
}

// Reconciler consumes verified lifecycle events from the payment provider
// and applies them to the local record. Safe under at-least-once,
// out-of-order and duplicate delivery: every branch writes the provider's
// own reported fields verbatim, never increments or toggles, so replays and
// reorderings converge to the latest provider truth.
type Reconciler struct {
	store    RecordStore
	provider PaymentProvider
	dedupe   EventDeduper
	log      *slog.Logger
}

// NewReconciler creates a Reconciler. The deduper is optional.
func NewReconciler(store RecordStore, provider PaymentProvider, dedupe EventDeduper, log *slog.Logger) *Reconciler {
	if store == nil {
		panic("billing: RecordStore is required")
	}
	if provider == nil {
		panic("billing: PaymentProvider is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: store, provider: provider, dedupe: dedupe, log: log}
}

// Apply reconciles one event. A nil return means the event is fully applied
// (or deliberately ignored) and may be acknowledged; an error means the
// record may be partially stale and the provider must redeliver.
func (r *Reconciler) Apply(ctx context.Context, event *Event) error {
	if event == nil {
		return nil
	}

	if r.dedupe != nil && event.ID != "" {
		seen, err := r.dedupe.Seen(ctx, event.ID)
		if err != nil {
			r.log.WarnContext(ctx, "event dedupe unavailable, applying anyway",
				slog.String("event_id", event.ID), slog.Any("error", err))
		} else if seen {
			r.log.DebugContext(ctx, "duplicate event suppressed",
				slog.String("event_id", event.ID))
			return nil
		}
	}

	var err error
	switch event.Type {
	case EventCheckoutCompleted:
		err = r.applyCheckoutCompleted(ctx, event)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		err = r.applySubscriptionChange(ctx, event)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	// Mark only after a successful apply so a failed apply is retried on
	// redelivery instead of being swallowed as a duplicate.
	if r.dedupe != nil && event.ID != "" {
		if err := r.dedupe.Mark(ctx, event.ID); err != nil {
			r.log.WarnContext(ctx, "failed to mark event as applied",
				slog.String("event_id", event.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, event *Event) error {
	if event.CheckoutMode != "subscription" {
		return nil
	}
	if event.AccountID == uuid.Nil {
		// Known gap: without the metadata tag the session cannot be mapped
		// to an account. Acknowledge so the provider stops redelivering; the
		// next authoritative resolve repairs the record.
		r.log.WarnContext(ctx, "checkout session carries no account tag, ignoring",
			slog.String("event_id", event.ID),
			slog.String("session_customer", event.CustomerID))
		return nil
	}
	if event.SubscriptionID == "" {
		// Same posture as the missing tag: there is nothing to fetch, and
		// redelivering an event without a subscription id never succeeds.
		r.log.WarnContext(ctx, "checkout session carries no subscription id, ignoring",
			slog.String("event_id", event.ID),
			slog.String("session_customer", event.CustomerID))
		return nil
	}

	// Re-fetch for freshness instead of trusting the event's nested object;
	// the session payload may already be stale on redelivery.
	sub, err := r.provider.Subscription(ctx, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing: fetch subscription %s for checkout event: %w", event.SubscriptionID, err)
	}

	if sub.AccountID == uuid.Nil {
		if err := r.provider.TagSubscription(ctx, sub.ID, event.AccountID); err != nil {
			r.log.WarnContext(ctx, "failed to tag subscription with account id",
				slog.String("subscription_id", sub.ID), slog.Any("error", err))
		}
	}

	state := sub.State()
	patch := RecordPatch{
		CustomerID:     &event.CustomerID,
		SubscriptionID: &event.SubscriptionID,
		State:          &state,
	}
	if sub.PriceID != "" {
		patch.PriceID = &sub.PriceID
	}
	if err := r.store.Upsert(ctx, event.AccountID, patch); err != nil {
		return fmt.Errorf("billing: upsert record for %s: %w", event.AccountID, err)
	}
	if err := r.store.SetProfileStatus(ctx, event.AccountID, sub.Status); err != nil {
		return fmt.Errorf("billing: update profile status for %s: %w", event.AccountID, err)
	}

	r.log.InfoContext(ctx, "checkout completed",
		slog.String("account_id", event.AccountID.String()),
		slog.String("subscription_id", event.SubscriptionID),
		slog.String("status", string(sub.Status)))
	return nil
}

func (r *Reconciler) applySubscriptionChange(ctx context.Context, event *Event) error {
	sub := event.Subscription
	if sub == nil {
		return errors.Join(ErrEventUnparseable,
			fmt.Errorf("event %s has no subscription object", event.ID))
	}

	accountID, err := r.attribute(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrEventUnattributed) {
			// Orphan event: acknowledged but dropped. The intended change is
			// lost until the next authoritative resolve.
			r.log.WarnContext(ctx, "cannot attribute subscription event, ignoring",
				slog.String("event_id", event.ID),
				slog.String("customer_id", sub.CustomerID),
				slog.String("provider_event", event.ProviderEvent))
			return nil
		}
		return err
	}

	// Only the provider-reported state group is written on these event
	// types; the customer and subscription links are never touched here.
	state := sub.State()
	if err := r.store.Upsert(ctx, accountID, RecordPatch{State: &state}); err != nil {
		return fmt.Errorf("billing: upsert record for %s: %w", accountID, err)
	}
	if err := r.store.SetProfileStatus(ctx, accountID, sub.Status); err != nil {
		return fmt.Errorf("billing: update profile status for %s: %w", accountID, err)
	}

	r.log.InfoContext(ctx, "subscription state reconciled",
		slog.String("account_id", accountID.String()),
		slog.String("subscription_id", sub.ID),
		slog.String("status", string(sub.Status)))
	return nil
}

// attribute maps a subscription event to an account: metadata tag first,
// then lookup of the local record by billing customer id. The tag is a
// best-effort index, never assumed present.
func (r *Reconciler) attribute(ctx context.Context, sub *ProviderSubscription) (uuid.UUID, error) {
	if sub.AccountID != uuid.Nil {
		return sub.AccountID, nil
	}
	rec, err := r.store.FindByCustomerID(ctx, sub.CustomerID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return uuid.Nil, ErrEventUnattributed
		}
		return uuid.Nil, fmt.Errorf("billing: lookup record by customer %s: %w", sub.CustomerID, err)
	}
	return rec.AccountID, nil
}

// redisDeduper implements EventDeduper on a Redis key window: Seen checks
// existence, Mark sets the key with the window TTL.
type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates an EventDeduper that remembers event ids for the
// given window. A zero ttl defaults to 24 hours, comfortably beyond the
// provider's redelivery horizon.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) EventDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisDeduper{client: client, ttl: ttl}
}

func (d *redisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, "billing:event:"+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisDeduper) Mark(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, "billing:event:"+eventID, 1, d.ttl).Err()
}
