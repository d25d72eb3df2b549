package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldNone marks a CSV column the caller chose not to import.
const FieldNone = "none"

// leadFields are the mapping targets a CSV column may be assigned to.
var leadFields = map[string]bool{
	"first_name": true,
	"last_name":  true,
	"email":      true,
	"phone":      true,
	"company":    true,
	"job_title":  true,
	"status":     true,
	"source":     true,
	"notes":      true,
}

// HeaderMapping assigns CSV column headers to lead fields. Columns mapped to
// FieldNone, or absent from the mapping, are ignored.
type HeaderMapping map[string]string

// Validate checks that every mapped target is a known lead field and that at
// least one column maps to something.
func (m HeaderMapping) Validate() error {
	mapped := 0
	for header, field := range m {
		if field == FieldNone || field == "" {
			continue
		}
		if !leadFields[field] {
			return fmt.Errorf("%w: column %q mapped to %q", ErrUnknownField, header, field)
		}
		mapped++
	}
	if mapped == 0 {
		return ErrEmptyMapping
	}
	return nil
}

// GuessMapping proposes a mapping from header names. Unrecognized headers
// map to FieldNone so the caller can fix them up.
func GuessMapping(headers []string) HeaderMapping {
	m := make(HeaderMapping, len(headers))
	for _, header := range headers {
		h := strings.ToLower(header)
		switch {
		case strings.Contains(h, "first") && strings.Contains(h, "name"):
			m[header] = "first_name"
		case strings.Contains(h, "last") && strings.Contains(h, "name"):
			m[header] = "last_name"
		case strings.Contains(h, "email"):
			m[header] = "email"
		case strings.Contains(h, "phone"):
			m[header] = "phone"
		case strings.Contains(h, "company"):
			m[header] = "company"
		case strings.Contains(h, "title") || strings.Contains(h, "position"):
			m[header] = "job_title"
		case strings.Contains(h, "status"):
			m[header] = "status"
		case strings.Contains(h, "source"):
			m[header] = "source"
		case strings.Contains(h, "note"):
			m[header] = "notes"
		default:
			m[header] = FieldNone
		}
	}
	return m
}

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer parses CSVs and stores the mapped rows.
type Importer struct {
	store Store
}

// NewImporter panics on a nil store.
func NewImporter(store Store) *Importer {
	if store == nil {
		panic("leads: store is required")
	}
	return &Importer{store: store}
}

// Import reads a CSV whose first row is the header, applies the mapping and
// batch-inserts the resulting leads for the account. Rows with no mapped
// value at all are skipped, not failed, matching spreadsheet reality where
// trailing rows are often blank.
func (i *Importer) Import(ctx context.Context, accountID uuid.UUID, r io.Reader, mapping HeaderMapping) (*ImportResult, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Spreadsheet exports routinely have ragged rows.
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyImport
		}
		return nil, errors.Join(ErrInvalidCSV, err)
	}

	now := time.Now().UTC()
	var batch []Lead
	skipped := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Join(ErrInvalidCSV, err)
		}

		lead, ok := mapRow(headers, row, mapping)
		if !ok {
			skipped++
			continue
		}
		lead.ID = uuid.New()
		lead.AccountID = accountID
		lead.CreatedAt = now
		lead.UpdatedAt = now
		batch = append(batch, lead)
	}

	if len(batch) == 0 {
		return nil, ErrEmptyImport
	}

	stored, err := i.store.CreateBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("store imported leads: %w", err)
	}
	return &ImportResult{Imported: stored, Skipped: skipped}, nil
}

// mapRow applies the mapping to one CSV row. The bool is false when the row
// carries no mapped values.
func mapRow(headers, row []string, mapping HeaderMapping) (Lead, bool) {
	var lead Lead
	hasValue := false

	for idx, header := range headers {
		if idx >= len(row) {
			break
		}
		field, ok := mapping[header]
		if !ok || field == FieldNone || field == "" {
			continue
		}
		value := strings.TrimSpace(row[idx])
		if value == "" {
			continue
		}
		hasValue = true

		switch field {
		case "first_name":
			lead.FirstName = value
		case "last_name":
			lead.LastName = value
		case "email":
			lead.Email = strings.ToLower(value)
		case "phone":
			lead.Phone = value
		case "company":
			lead.Company = value
		case "job_title":
			lead.JobTitle = value
		case "status":
			if s := Status(strings.ToLower(value)); s.Valid() {
				lead.Status = s
			}
		case "source":
			lead.Source = value
		case "notes":
			lead.Notes = value
		}
	}

	if lead.Status == "" {
		lead.Status = StatusNew
	}
	return lead, hasValue
}
