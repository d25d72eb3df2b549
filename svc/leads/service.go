// Package leads exposes CSV import and lead management over HTTP.
package leads

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leadhustle/platform/internal/httpx"
	"github.com/leadhustle/platform/pkg/file"
	"github.com/leadhustle/platform/pkg/identity"
	"github.com/leadhustle/platform/pkg/leads"
	"github.com/leadhustle/platform/pkg/logger"
)

// maxImportSize bounds a CSV upload. Larger exports should be split.
const maxImportSize = 10 << 20

// Service wires the lead importer and store to chi handlers.
type Service struct {
	importer *leads.Importer
	store    leads.Store
	archive  file.Storage
	log      *slog.Logger
}

// NewService panics on nil importer or store. The archive is optional;
// without it raw uploads are simply not retained.
func NewService(importer *leads.Importer, store leads.Store, archive file.Storage, log *slog.Logger) *Service {
	if importer == nil || store == nil {
		panic("leads service: importer and store are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{importer: importer, store: store, archive: archive, log: log}
}

// Router mounts the lead endpoints. Session auth is applied by the caller.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/import", s.handleImport)
	r.Get("/", s.handleList)
	r.Delete("/{leadID}", s.handleDelete)
	return r
}

type leadView struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	JobTitle  string    `json:"jobTitle"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

func toView(lead leads.Lead) leadView {
	return leadView{
		ID:        lead.ID,
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		JobTitle:  lead.JobTitle,
		Status:    string(lead.Status),
		Source:    lead.Source,
		Notes:     lead.Notes,
		CreatedAt: lead.CreatedAt,
	}
}

// handleImport accepts a multipart form with a "file" CSV part and an
// optional "mapping" part holding a header-to-field JSON object. Without a
// mapping the columns are auto-guessed from the header row.
func (s *Service) handleImport(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized", "session required")
		return
	}

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "malformed multipart form")
		return
	}

	_, fh, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "missing_file", "a CSV file part named 'file' is required")
		return
	}
	if err := file.ValidateCSV(fh); err != nil {
		httpx.Error(w, http.StatusBadRequest, "not_csv", "uploaded file is not a CSV")
		return
	}

	src, err := fh.Open()
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
		return
	}
	defer func() { _ = src.Close() }()

	raw, err := io.ReadAll(io.LimitReader(src, maxImportSize))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
		return
	}

	mapping, err := s.resolveMapping(r, raw)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_mapping", err.Error())
		return
	}

	s.archiveUpload(r, accountID, fh.Filename, raw)

	result, err := s.importer.Import(r.Context(), accountID, bytes.NewReader(raw), mapping)
	if err != nil {
		switch {
		case errors.Is(err, leads.ErrEmptyImport):
			httpx.Error(w, http.StatusBadRequest, "empty_import", "no importable rows found")
		case errors.Is(err, leads.ErrInvalidCSV):
			httpx.Error(w, http.StatusBadRequest, "invalid_csv", "CSV could not be parsed")
		case errors.Is(err, leads.ErrEmptyMapping), errors.Is(err, leads.ErrUnknownField):
			httpx.Error(w, http.StatusBadRequest, "bad_mapping", err.Error())
		default:
			s.log.ErrorContext(r.Context(), "lead import failed",
				logger.AccountID(accountID.String()), logger.Error(err), logger.Component("leads_http"))
			httpx.Error(w, http.StatusInternalServerError, "internal_error", "import failed")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// resolveMapping reads the mapping part, falling back to header guessing.
func (s *Service) resolveMapping(r *http.Request, raw []byte) (leads.HeaderMapping, error) {
	if rawMapping := r.FormValue("mapping"); rawMapping != "" {
		var mapping leads.HeaderMapping
		if err := json.Unmarshal([]byte(rawMapping), &mapping); err != nil {
			return nil, fmt.Errorf("mapping is not a JSON object: %w", err)
		}
		return mapping, nil
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, errors.New("CSV header row could not be read")
	}
	return leads.GuessMapping(headers), nil
}

// archiveUpload keeps the raw CSV for audit. Best effort only, an archive
// failure never fails the import.
func (s *Service) archiveUpload(r *http.Request, accountID uuid.UUID, filename string, raw []byte) {
	if s.archive == nil {
		return
	}
	path := fmt.Sprintf("imports/%s/%s_%s",
		accountID, time.Now().UTC().Format("20060102T150405Z"), filepath.Base(filename))
	if _, err := s.archive.Save(r.Context(), bytes.NewReader(raw), path, "text/csv"); err != nil {
		s.log.WarnContext(r.Context(), "failed to archive lead import",
			logger.AccountID(accountID.String()), logger.Error(err), logger.Component("leads_http"))
	}
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized", "session required")
		return
	}

	filter := leads.ListFilter{
		Search: r.URL.Query().Get("search"),
		Status: leads.Status(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httpx.Error(w, http.StatusBadRequest, "invalid_status", "unknown lead status")
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	list, err := s.store.List(r.Context(), accountID, filter)
	if err != nil {
		s.log.ErrorContext(r.Context(), "lead listing failed",
			logger.AccountID(accountID.String()), logger.Error(err), logger.Component("leads_http"))
		httpx.Error(w, http.StatusInternalServerError, "internal_error", "failed to list leads")
		return
	}

	views := make([]leadView, 0, len(list))
	for _, lead := range list {
		views = append(views, toView(lead))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"leads": views})
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized", "session required")
		return
	}

	leadID, err := uuid.Parse(chi.URLParam(r, "leadID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "lead id must be a UUID")
		return
	}

	if err := s.store.Delete(r.Context(), accountID, leadID); err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			httpx.Error(w, http.StatusNotFound, "lead_not_found", "lead does not exist")
			return
		}
		s.log.ErrorContext(r.Context(), "lead deletion failed",
			logger.AccountID(accountID.String()), logger.Error(err), logger.Component("leads_http"))
		httpx.Error(w, http.StatusInternalServerError, "internal_error", "failed to delete lead")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
