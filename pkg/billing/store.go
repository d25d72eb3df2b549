package billing

import (
	"context"

	"github.com/google/uuid"
)

// RecordStore persists the local subscription mirror. All mutations are
// expressed as field-level upserts keyed by account id rather than
// full-record replacement, so concurrent writers touching disjoint fields do
// not clobber each other.
type RecordStore interface {
	// Get returns the record for an account.
	// Returns ErrRecordNotFound when no record exists yet.
	Get(ctx context.Context, accountID uuid.UUID) (*Record, error)

	// FindByCustomerID looks a record up by the provider customer id.
	// Used as the attribution fallback when a webhook event carries no
	// account tag. Returns ErrRecordNotFound on no match.
	FindByCustomerID(ctx context.Context, customerID string) (*Record, error)

	// Upsert creates or patches the record for an account. Nil patch fields
	// are left untouched; the implementation must bump UpdatedAt on every
	// write.
	Upsert(ctx context.Context, accountID uuid.UUID, patch RecordPatch) error

	// SetProfileStatus updates the denormalized status mirror on the account
	// profile, kept in lockstep with the record for read-optimized access by
	// unrelated UI.
	SetProfileStatus(ctx context.Context, accountID uuid.UUID, status Status) error
}

// RecordPatch is a partial update of a Record. The provider-reported state is
// patched as one group (see ProviderState); identifiers are patched
// individually. A pointer to the empty string clears an identifier.
type RecordPatch struct {
	CustomerID     *string
	SubscriptionID *string
	PriceID        *string
	State          *ProviderState
	// Provisional is set true only by the optimistic checkout write. Any
	// patch carrying State resets it to false regardless of this field.
	Provisional *bool
}

// ClearSubscriptionID returns a patch field that severs the local
// subscription link, used when the provider reports the subscription gone.
func ClearSubscriptionID() *string {
	s := ""
	return &s
}
