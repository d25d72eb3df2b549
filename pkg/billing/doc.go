// Package billing keeps a local mirror of subscription state consistent with
// the payment provider, which is the source of truth.
//
// Three independent entry points mutate the mirror and may race or retry:
//
//   - Resolver: interactive status check; reads the record, consults the
//     provider when a billing link exists, repairs a missing subscription
//     link, and corrects local/provider inconsistencies.
//   - CheckoutService: creates the billing customer and hosted checkout
//     session for an account without a subscription, with an optimistic
//     provisional trialing write.
//   - Reconciler: applies asynchronous provider lifecycle events
//     idempotently under at-least-once, duplicate and out-of-order delivery.
//
// Convergence relies on two rules: every write persists the provider's own
// reported fields verbatim as one atomic group (never deltas), and
// attribution of provider objects to accounts uses a metadata tag with a
// fallback lookup by billing customer id.
//
// Persistence goes through RecordStore; provider access goes through
// PaymentProvider, implemented for Stripe in this package. NewMemoryStore
// provides an in-memory store for tests and local development.
package billing
