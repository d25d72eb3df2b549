// Package leads owns the lead model, its storage contract and the CSV
// importer that maps spreadsheet columns onto lead fields.
package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound  = errors.New("leads: lead not found")
	ErrEmptyImport   = errors.New("leads: import contains no rows")
	ErrInvalidCSV    = errors.New("leads: malformed CSV")
	ErrEmptyMapping  = errors.New("leads: header mapping has no lead fields")
	ErrUnknownField  = errors.New("leads: unknown lead field in mapping")
	ErrInvalidStatus = errors.New("leads: invalid lead status")
)

// Status is the pipeline stage of a lead.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusUnqualified Status = "unqualified"
	StatusCustomer    Status = "customer"
)

// Valid reports whether s is one of the known pipeline stages.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusUnqualified, StatusCustomer:
		return true
	}
	return false
}

// Lead is one contact in an account's pipeline.
type Lead struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	JobTitle  string
	Status    Status
	Source    string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows a lead listing.
type ListFilter struct {
	// Search matches name, email and company, case-insensitively.
	Search string
	Status Status
	Limit  int
	Offset int
}

// Store persists leads per account.
type Store interface {
	// CreateBatch inserts leads in one round trip and returns the number
	// stored.
	CreateBatch(ctx context.Context, leads []Lead) (int, error)
	// List returns an account's leads, newest first.
	List(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]Lead, error)
	// Get returns one lead scoped to the account.
	Get(ctx context.Context, accountID, leadID uuid.UUID) (*Lead, error)
	// Delete removes one lead scoped to the account.
	Delete(ctx context.Context, accountID, leadID uuid.UUID) error
}
