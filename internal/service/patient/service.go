package patient

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/perioclinic/perio-records/internal/model"
	"github.com/perioclinic/perio-records/internal/repository"
	"github.com/perioclinic/perio-records/internal/service/audit"
	apperrors "github.com/perioclinic/perio-records/pkg/errors"
	"github.com/perioclinic/perio-records/pkg/metrics"
)

// Invalidator is notified after every mutation so derived caches can
// drop stale results.
type Invalidator interface {
	Invalidate()
}

// Service applies all mutations to the patient collection. Reads that
// only need the collection shape go straight to the repository; every
// write funnels through here so the audit trail and cache invalidation
// stay complete.
type Service struct {
	repo        *repository.Repository
	auditor     *audit.Service
	invalidator Invalidator
	metrics     *metrics.Metrics
}

func NewService(repo *repository.Repository, auditor *audit.Service, invalidator Invalidator, m *metrics.Metrics) *Service {
	return &Service{
		repo:        repo,
		auditor:     auditor,
		invalidator: invalidator,
		metrics:     m,
	}
}

// patientFields is the fixed field order used for diffs and summaries.
var patientFields = []string{
	model.FieldMRN,
	model.FieldFirst,
	model.FieldLast,
	model.FieldBirthday,
	model.FieldSex,
}

// AddAppointment records one flat record: the appointment lands on the
// patient with the record's mrn, or a new patient is built from the
// record's identity fields. A duplicate slot is stored as-is; nothing
// deduplicates repeat entries.
func (s *Service) AddAppointment(ctx context.Context, rec model.Record) error {
	p, appt, err := s.repo.Upsert(rec)
	if err != nil {
		s.count("add_appointment", "error")
		return fmt.Errorf("failed to add appointment: %w", err)
	}

	s.auditor.Log(ctx, model.AuditActionAddAppointment, p.MRN, &audit.LogOptions{
		Kind: appt.Kind(),
		Date: model.FormatDate(appt.When()),
	})
	s.invalidate()
	s.count("add_appointment", "ok")
	return nil
}

// ModifyAppointment rebuilds an appointment from rec and swaps it in
// for the stored appointment occupying the same slot: the same variant
// on the same date.
func (s *Service) ModifyAppointment(ctx context.Context, rec model.Record) error {
	appt, err := model.NewAppointment(rec)
	if err != nil {
		s.count("modify_appointment", "error")
		return fmt.Errorf("failed to modify appointment: %w", err)
	}

	mrn, ok := rec.StringVal(model.FieldMRN)
	if !ok {
		s.count("modify_appointment", "error")
		return apperrors.NewValidation("record has no mrn", nil)
	}
	p, found := s.repo.Find(mrn)
	if !found {
		s.count("modify_appointment", "not_found")
		return apperrors.NewNotFound("patient", nil)
	}

	for i, existing := range p.Appointments {
		if model.SameSlot(existing, appt) {
			p.Appointments[i] = appt
			s.auditor.Log(ctx, model.AuditActionModifyAppointment, p.MRN, &audit.LogOptions{
				Kind: appt.Kind(),
				Date: model.FormatDate(appt.When()),
			})
			s.invalidate()
			s.count("modify_appointment", "ok")
			return nil
		}
	}

	s.count("modify_appointment", "not_found")
	return apperrors.NewNotFound("appointment", nil)
}

// ChangeSet reports a modify-patient outcome.
type ChangeSet struct {
	MRN     string
	Changes map[string]model.FieldChange
}

// String renders the confirmation line shown to the operator.
func (c *ChangeSet) String() string {
	if len(c.Changes) == 0 {
		return "No changes."
	}
	parts := make([]string, 0, len(c.Changes))
	for _, field := range patientFields {
		if ch, ok := c.Changes[field]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v -> %v", field, ch.Before, ch.After))
		}
	}
	return "The following changes have been made. " + strings.Join(parts, ", ")
}

// ModifyPatient rebuilds the patient identified by rec's mrn from
// rec's identity fields, carries the appointment history over, and
// reports which fields changed.
func (s *Service) ModifyPatient(ctx context.Context, rec model.Record) (*ChangeSet, error) {
	mrn, ok := rec.StringVal(model.FieldMRN)
	if !ok {
		s.count("modify_patient", "error")
		return nil, apperrors.NewValidation("record has no mrn", nil)
	}
	old, found := s.repo.Find(mrn)
	if !found {
		s.count("modify_patient", "not_found")
		return nil, apperrors.NewNotFound("patient", nil)
	}

	updated, err := model.NewPatient(rec)
	if err != nil {
		s.count("modify_patient", "error")
		return nil, fmt.Errorf("failed to modify patient: %w", err)
	}
	updated.Appointments = old.Appointments

	changes := diffPatients(old.Record(), updated.Record())
	s.repo.Replace(old, updated)

	s.auditor.Log(ctx, model.AuditActionModifyPatient, updated.MRN, &audit.LogOptions{
		Changes: changes,
	})
	s.invalidate()
	s.count("modify_patient", "ok")
	return &ChangeSet{MRN: updated.MRN, Changes: changes}, nil
}

func diffPatients(before, after model.Record) map[string]model.FieldChange {
	changes := make(map[string]model.FieldChange)
	for _, field := range patientFields {
		if before[field] != after[field] {
			changes[field] = model.FieldChange{Before: before[field], After: after[field]}
		}
	}
	return changes
}

// DeleteAppointment removes the patient's first appointment on the
// given YYYYMMDD date, regardless of variant. At most one entry goes
// away per call.
func (s *Service) DeleteAppointment(ctx context.Context, mrn, date string) error {
	day, err := model.ParseDate(date)
	if err != nil {
		s.count("delete_appointment", "error")
		return err
	}
	p, found := s.repo.Find(mrn)
	if !found {
		s.count("delete_appointment", "not_found")
		return apperrors.NewNotFound("patient", nil)
	}

	for i, appt := range p.Appointments {
		if model.MatchesDate(appt, day) {
			kind := appt.Kind()
			p.Appointments = append(p.Appointments[:i], p.Appointments[i+1:]...)
			s.auditor.Log(ctx, model.AuditActionDeleteAppointment, p.MRN, &audit.LogOptions{
				Kind: kind,
				Date: date,
			})
			s.invalidate()
			s.count("delete_appointment", "ok")
			return nil
		}
	}

	s.count("delete_appointment", "not_found")
	return apperrors.NewNotFound("appointment", nil)
}

// DeletePatient removes a patient and their whole appointment history.
// The key may be a *Patient, a flat record, or a bare mrn.
func (s *Service) DeletePatient(ctx context.Context, key any) error {
	mrn, ok := model.MRNFromKey(key)
	if !ok {
		s.count("delete_patient", "error")
		return apperrors.NewInvalidArgument(fmt.Sprintf("cannot derive an mrn from %T", key))
	}
	p, removed := s.repo.Remove(mrn)
	if !removed {
		s.count("delete_patient", "not_found")
		return apperrors.NewNotFound("patient", nil)
	}

	s.auditor.Log(ctx, model.AuditActionDeletePatient, p.MRN, nil)
	s.invalidate()
	s.count("delete_patient", "ok")
	return nil
}

// FindPatient returns the patient identified by mrn, given as a string
// or an integer. Any other key type is a caller bug, reported as an
// invalid argument rather than a miss.
func (s *Service) FindPatient(ctx context.Context, key any) (*model.Patient, error) {
	mrn, err := lookupMRN(key)
	if err != nil {
		return nil, err
	}
	p, ok := s.repo.Find(mrn)
	if !ok {
		return nil, apperrors.NewNotFound("patient", nil)
	}
	return p, nil
}

// Chart is a patient's full display view: the identity record plus
// every appointment record, newest first.
type Chart struct {
	Patient      model.Record
	Appointments []model.Record
}

// Chart assembles the display view for the patient identified by key.
// Appointments sort by date, newest first; same-day entries keep their
// insertion order.
func (s *Service) Chart(ctx context.Context, key any) (*Chart, error) {
	mrn, err := lookupMRN(key)
	if err != nil {
		return nil, err
	}
	p, ok := s.repo.Find(mrn)
	if !ok {
		return nil, apperrors.NewNotFound("patient", nil)
	}

	sorted := make([]model.Appointment, len(p.Appointments))
	copy(sorted, p.Appointments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].When().After(sorted[j].When())
	})

	records := make([]model.Record, len(sorted))
	for i, appt := range sorted {
		records[i] = appt.Record()
	}
	return &Chart{Patient: p.Record(), Appointments: records}, nil
}

// Save persists the collection through the repository's store.
func (s *Service) Save(ctx context.Context) error {
	if err := s.repo.Save(ctx); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

// TodayDate returns today's calendar date, the reference point for
// scheduling conversations at the front desk.
func (s *Service) TodayDate() string {
	return model.FormatDate(model.Today())
}

func lookupMRN(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case int:
		return strconv.Itoa(k), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	default:
		return "", apperrors.NewInvalidArgument(fmt.Sprintf("mrn must be a string or integer, got %T", key))
	}
}

func (s *Service) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

func (s *Service) count(operation, status string) {
	s.metrics.Mutations.WithLabelValues(operation, status).Inc()
}
