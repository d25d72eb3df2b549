package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Resolver determines the current subscription status for an account,
// consulting the local record first and the payment provider when the record
// carries a billing link, reconciling any divergence. The provider is always
// the source of truth for subscription existence and status.
//
// Concurrent resolves for the same account race harmlessly: every write
// persists a whole provider-reported state group, so the persisted record
// converges to whatever the provider last reported.
type Resolver struct {
	store    RecordStore
	provider PaymentProvider
	log      *slog.Logger
}

// NewResolver creates a Resolver. Panics on nil dependencies to fail fast
// during initialization.
func NewResolver(store RecordStore, provider PaymentProvider, log *slog.Logger) *Resolver {
	if store == nil {
		panic("billing: RecordStore is required")
	}
	if provider == nil {
		panic("billing: PaymentProvider is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{store: store, provider: provider, log: log}
}

// Resolve returns the account's current subscription snapshot.
//
// "No subscription" is a valid snapshot, not an error. An error is returned
// only for infrastructure failures (store or provider unreachable) so callers
// can distinguish "known inactive" from "unknown" and avoid locking a paying
// user out during a transient outage.
func (r *Resolver) Resolve(ctx context.Context, accountID uuid.UUID) (Snapshot, error) {
	rec, err := r.store.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return NoSubscription(), nil
		}
		return Snapshot{}, fmt.Errorf("billing: read record for %s: %w", accountID, err)
	}

	// Without a billing customer there is nothing to ask the provider about.
	if rec.CustomerID == "" {
		return NoSubscription(), nil
	}

	subscriptionID := rec.SubscriptionID
	if subscriptionID == "" {
		// Repair path: a customer exists but the subscription link was never
		// persisted, typically after a partial failure between customer
		// creation and subscription linkage. Ask the provider directly.
		sub, err := r.provider.LatestSubscription(ctx, rec.CustomerID)
		if err != nil {
			if errors.Is(err, ErrSubscriptionMissing) {
				return NoSubscription(), nil
			}
			return Snapshot{}, errors.Join(ErrProviderUnavailable, err)
		}

		r.log.InfoContext(ctx, "recovered subscription link via customer lookup",
			slog.String("account_id", accountID.String()),
			slog.String("subscription_id", sub.ID))

		r.tagIfUntagged(ctx, sub, accountID)

		state := sub.State()
		patch := RecordPatch{
			SubscriptionID: &sub.ID,
			State:          &state,
		}
		if sub.PriceID != "" {
			patch.PriceID = &sub.PriceID
		}
		if err := r.store.Upsert(ctx, accountID, patch); err != nil {
			return Snapshot{}, fmt.Errorf("billing: persist recovered link for %s: %w", accountID, err)
		}
		subscriptionID = sub.ID
	}

	sub, err := r.provider.Subscription(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionMissing) {
			return r.markCanceled(ctx, accountID)
		}
		return Snapshot{}, errors.Join(ErrProviderUnavailable, err)
	}

	r.tagIfUntagged(ctx, sub, accountID)

	state := sub.State()
	if err := r.store.Upsert(ctx, accountID, RecordPatch{State: &state}); err != nil {
		return Snapshot{}, fmt.Errorf("billing: persist refreshed state for %s: %w", accountID, err)
	}
	if err := r.store.SetProfileStatus(ctx, accountID, sub.Status); err != nil {
		return Snapshot{}, fmt.Errorf("billing: update profile status for %s: %w", accountID, err)
	}

	return SnapshotOf(state), nil
}

// markCanceled resolves the terminal inconsistency where the local record
// points at a subscription the provider no longer knows about: trust the
// provider, mark the record canceled and sever the subscription link.
func (r *Resolver) markCanceled(ctx context.Context, accountID uuid.UUID) (Snapshot, error) {
	r.log.WarnContext(ctx, "stored subscription missing at provider, marking canceled",
		slog.String("account_id", accountID.String()))

	state := ProviderState{Status: StatusCanceled}
	patch := RecordPatch{
		SubscriptionID: ClearSubscriptionID(),
		State:          &state,
	}
	if err := r.store.Upsert(ctx, accountID, patch); err != nil {
		return Snapshot{}, fmt.Errorf("billing: mark canceled for %s: %w", accountID, err)
	}
	if err := r.store.SetProfileStatus(ctx, accountID, StatusCanceled); err != nil {
		return Snapshot{}, fmt.Errorf("billing: update profile status for %s: %w", accountID, err)
	}

	return Snapshot{Active: false, Status: StatusCanceled}, nil
}

// tagIfUntagged writes the account id into the provider-side subscription
// metadata when absent. Best effort: attribution has the customer-id fallback,
// so a tagging failure is logged rather than failing the resolve.
func (r *Resolver) tagIfUntagged(ctx context.Context, sub *ProviderSubscription, accountID uuid.UUID) {
	if sub.AccountID != uuid.Nil {
		return
	}
	if err := r.provider.TagSubscription(ctx, sub.ID, accountID); err != nil {
		r.log.WarnContext(ctx, "failed to tag subscription with account id",
			slog.String("subscription_id", sub.ID),
			slog.String("account_id", accountID.String()),
			slog.Any("error", err))
	}
}
