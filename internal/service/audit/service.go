package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/perioclinic/perio-records/internal/model"
	"github.com/perioclinic/perio-records/pkg/logger"
)

// Service keeps the audit trail for one process run. Entries live in
// memory and are mirrored to the structured log, so the log file holds
// a durable copy.
type Service struct {
	runID   uuid.UUID
	logger  *logger.Logger
	entries []model.AuditEntry
}

// NewService stamps every mirrored log line with this run's id.
func NewService(l *logger.Logger) *Service {
	runID := uuid.New()
	return &Service{
		runID:  runID,
		logger: l.WithFields(map[string]interface{}{"run_id": runID.String()}),
	}
}

// RunID identifies this process run in every entry it writes.
func (s *Service) RunID() uuid.UUID {
	return s.runID
}

type LogOptions struct {
	Kind    model.Kind
	Date    string
	Changes map[string]model.FieldChange
}

// Log records one mutation against the patient identified by mrn.
func (s *Service) Log(ctx context.Context, action, mrn string, opts *LogOptions) model.AuditEntry {
	entry := model.AuditEntry{
		ID:        uuid.New(),
		RunID:     s.runID,
		Action:    action,
		MRN:       mrn,
		CreatedAt: time.Now(),
	}
	if opts != nil {
		entry.Kind = opts.Kind
		entry.Date = opts.Date
		entry.Changes = opts.Changes
	}
	s.entries = append(s.entries, entry)

	fields := []interface{}{
		"audit_id", entry.ID.String(),
		"action", action,
		"mrn", mrn,
	}
	if entry.Kind != "" {
		fields = append(fields, "kind", string(entry.Kind))
	}
	if entry.Date != "" {
		fields = append(fields, "date", entry.Date)
	}
	s.logger.Info("audit", fields...)

	return entry
}

// Entries returns the entries recorded this run, oldest first.
func (s *Service) Entries() []model.AuditEntry {
	return s.entries
}
