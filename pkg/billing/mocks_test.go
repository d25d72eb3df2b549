package billing_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/leadhustle/platform/pkg/billing"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, accountID uuid.UUID) (*billing.Record, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Record), args.Error(1)
}

func (m *mockStore) FindByCustomerID(ctx context.Context, customerID string) (*billing.Record, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Record), args.Error(1)
}

func (m *mockStore) Upsert(ctx context.Context, accountID uuid.UUID, patch billing.RecordPatch) error {
	args := m.Called(ctx, accountID, patch)
	return args.Error(0)
}

func (m *mockStore) SetProfileStatus(ctx context.Context, accountID uuid.UUID, status billing.Status) error {
	args := m.Called(ctx, accountID, status)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCustomer(ctx context.Context, accountID uuid.UUID, email, name string) (string, error) {
	args := m.Called(ctx, accountID, email, name)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Subscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderSubscription), args.Error(1)
}

func (m *mockProvider) LatestSubscription(ctx context.Context, customerID string) (*billing.ProviderSubscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderSubscription), args.Error(1)
}

func (m *mockProvider) TagSubscription(ctx context.Context, subscriptionID string, accountID uuid.UUID) error {
	args := m.Called(ctx, subscriptionID, accountID)
	return args.Error(0)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutSessionRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) ParseEvent(payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) GetAccount(ctx context.Context, accountID uuid.UUID) (string, string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.String(1), args.Error(2)
}
