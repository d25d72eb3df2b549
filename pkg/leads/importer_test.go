package leads_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadhustle/platform/pkg/leads"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBatch(ctx context.Context, batch []leads.Lead) (int, error) {
	args := m.Called(ctx, batch)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) List(ctx context.Context, accountID uuid.UUID, filter leads.ListFilter) ([]leads.Lead, error) {
	args := m.Called(ctx, accountID, filter)
	if v := args.Get(0); v != nil {
		return v.([]leads.Lead), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, accountID, leadID uuid.UUID) (*leads.Lead, error) {
	args := m.Called(ctx, accountID, leadID)
	if v := args.Get(0); v != nil {
		return v.(*leads.Lead), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, accountID, leadID uuid.UUID) error {
	args := m.Called(ctx, accountID, leadID)
	return args.Error(0)
}

func fullMapping() leads.HeaderMapping {
	return leads.HeaderMapping{
		"First Name": "first_name",
		"Last Name":  "last_name",
		"Email":      "email",
		"Company":    "company",
		"Status":     "status",
		"Ignore Me":  leads.FieldNone,
	}
}

func TestImporter_Import(t *testing.T) {
	t.Parallel()

	accountID := uuid.New()

	t.Run("imports mapped rows", func(t *testing.T) {
		t.Parallel()
		csvData := strings.Join([]string{
			"First Name,Last Name,Email,Company,Status,Ignore Me",
			"Jane,Doe,Jane@Example.COM,Acme,contacted,whatever",
			"John,Smith,john@example.com,Globex,,x",
		}, "\n")

		store := new(mockStore)
		store.On("CreateBatch", mock.Anything, mock.MatchedBy(func(batch []leads.Lead) bool {
			if len(batch) != 2 {
				return false
			}
			first := batch[0]
			return first.AccountID == accountID &&
				first.FirstName == "Jane" &&
				first.Email == "jane@example.com" &&
				first.Status == leads.StatusContacted &&
				batch[1].Status == leads.StatusNew
		})).Return(2, nil)

		result, err := leads.NewImporter(store).Import(t.Context(), accountID, strings.NewReader(csvData), fullMapping())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Imported)
		assert.Equal(t, 0, result.Skipped)
		store.AssertExpectations(t)
	})

	t.Run("skips rows with no mapped values", func(t *testing.T) {
		t.Parallel()
		csvData := strings.Join([]string{
			"First Name,Last Name,Email,Company,Status,Ignore Me",
			"Jane,Doe,jane@example.com,Acme,new,",
			",,,,,only-unmapped-column",
			",,,,,",
		}, "\n")

		store := new(mockStore)
		store.On("CreateBatch", mock.Anything, mock.MatchedBy(func(batch []leads.Lead) bool {
			return len(batch) == 1
		})).Return(1, nil)

		result, err := leads.NewImporter(store).Import(t.Context(), accountID, strings.NewReader(csvData), fullMapping())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
		assert.Equal(t, 2, result.Skipped)
	})

	t.Run("unknown status falls back to new", func(t *testing.T) {
		t.Parallel()
		csvData := "Email,Status\njane@example.com,definitely-not-a-stage\n"
		store := new(mockStore)
		store.On("CreateBatch", mock.Anything, mock.MatchedBy(func(batch []leads.Lead) bool {
			return len(batch) == 1 && batch[0].Status == leads.StatusNew
		})).Return(1, nil)

		_, err := leads.NewImporter(store).Import(t.Context(), accountID, strings.NewReader(csvData),
			leads.HeaderMapping{"Email": "email", "Status": "status"})
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		_, err := leads.NewImporter(new(mockStore)).Import(t.Context(), accountID, strings.NewReader(""), fullMapping())
		assert.ErrorIs(t, err, leads.ErrEmptyImport)
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		_, err := leads.NewImporter(new(mockStore)).Import(t.Context(), accountID,
			strings.NewReader("First Name,Email\n"), fullMapping())
		assert.ErrorIs(t, err, leads.ErrEmptyImport)
	})

	t.Run("mapping with only ignored columns", func(t *testing.T) {
		t.Parallel()
		_, err := leads.NewImporter(new(mockStore)).Import(t.Context(), accountID,
			strings.NewReader("A\nx\n"), leads.HeaderMapping{"A": leads.FieldNone})
		assert.ErrorIs(t, err, leads.ErrEmptyMapping)
	})

	t.Run("mapping to unknown field", func(t *testing.T) {
		t.Parallel()
		_, err := leads.NewImporter(new(mockStore)).Import(t.Context(), accountID,
			strings.NewReader("A\nx\n"), leads.HeaderMapping{"A": "shoe_size"})
		assert.ErrorIs(t, err, leads.ErrUnknownField)
	})
}

func TestGuessMapping(t *testing.T) {
	t.Parallel()

	m := leads.GuessMapping([]string{"First Name", "LAST NAME", "E-mail Address", "Phone Number", "Company", "Job Title", "Lead Source", "Notes", "Favorite Color"})

	assert.Equal(t, "first_name", m["First Name"])
	assert.Equal(t, "last_name", m["LAST NAME"])
	assert.Equal(t, "email", m["E-mail Address"])
	assert.Equal(t, "phone", m["Phone Number"])
	assert.Equal(t, "company", m["Company"])
	assert.Equal(t, "job_title", m["Job Title"])
	assert.Equal(t, "source", m["Lead Source"])
	assert.Equal(t, "notes", m["Notes"])
	assert.Equal(t, leads.FieldNone, m["Favorite Color"])
}
