package repository

import (
	"context"
	"time"

	"github.com/perioclinic/perio-records/internal/model"
	apperrors "github.com/perioclinic/perio-records/pkg/errors"
	"github.com/perioclinic/perio-records/pkg/logger"
	"github.com/perioclinic/perio-records/pkg/metrics"
)

// Repository holds the patient collection in memory between a Load and
// a Save. Patients keep their insertion order; an mrn index backs the
// point lookups.
type Repository struct {
	store   RecordStore
	metrics *metrics.Metrics
	logger  *logger.Logger

	patients []*model.Patient
	index    map[string]*model.Patient
}

func New(store RecordStore, m *metrics.Metrics, l *logger.Logger) *Repository {
	return &Repository{
		store:   store,
		metrics: m,
		logger:  l,
		index:   make(map[string]*model.Patient),
	}
}

// SkippedRecord describes one stored record rejected during load.
type SkippedRecord struct {
	Index int
	MRN   string
	Err   error
}

// LoadResult summarizes a load: how many records were normalized and
// which ones were skipped.
type LoadResult struct {
	Loaded  int
	Skipped []SkippedRecord
}

// Load replaces the collection with the normalized store contents.
// Records that fail to normalize are skipped and reported in the
// result instead of aborting the load. A missing backing file yields
// an empty collection so a first run needs no setup.
func (r *Repository) Load(ctx context.Context) (*LoadResult, error) {
	start := time.Now()
	records, err := r.store.Load(ctx)
	if err != nil {
		if apperrors.IsNotExist(err) {
			r.logger.Info("no record store yet, starting with an empty collection")
			r.patients = nil
			r.index = make(map[string]*model.Patient)
			return &LoadResult{}, nil
		}
		return nil, err
	}

	r.patients = nil
	r.index = make(map[string]*model.Patient)

	result := &LoadResult{}
	for i, rec := range records {
		if _, _, err := r.Upsert(rec); err != nil {
			mrn, _ := rec.StringVal(model.FieldMRN)
			result.Skipped = append(result.Skipped, SkippedRecord{Index: i, MRN: mrn, Err: err})
			r.metrics.RecordsSkipped.WithLabelValues(skipReason(err)).Inc()
			r.logger.Warn("skipping malformed record", "record", i, "mrn", mrn, "error", err.Error())
			continue
		}
		result.Loaded++
	}

	r.metrics.RecordsLoaded.Add(float64(result.Loaded))
	r.metrics.PatientsTracked.Set(float64(len(r.patients)))
	r.metrics.StoreLatency.WithLabelValues("load").Observe(time.Since(start).Seconds())
	return result, nil
}

func skipReason(err error) string {
	switch apperrors.Code(err) {
	case apperrors.ErrUnknownVariant:
		return "unknown_variant"
	case apperrors.ErrRecordCorrupt:
		return "corrupt"
	default:
		return "invalid"
	}
}

// Upsert normalizes one flat record into the collection. The record's
// appointment is attached to the existing patient with the same mrn,
// or a new patient is built from the record and appended. The first
// record seen for an mrn wins the patient identity fields; insertion
// order is preserved.
func (r *Repository) Upsert(rec model.Record) (*model.Patient, model.Appointment, error) {
	appt, err := model.NewAppointment(rec)
	if err != nil {
		return nil, nil, err
	}

	if mrn, ok := rec.StringVal(model.FieldMRN); ok {
		if p, found := r.index[mrn]; found {
			p.Appointments = append(p.Appointments, appt)
			return p, appt, nil
		}
	}

	p, err := model.NewPatient(rec)
	if err != nil {
		return nil, nil, err
	}
	p.Appointments = append(p.Appointments, appt)
	r.patients = append(r.patients, p)
	r.index[p.MRN] = p
	r.metrics.PatientsTracked.Set(float64(len(r.patients)))
	return p, appt, nil
}

// Find returns the patient identified by mrn.
func (r *Repository) Find(mrn string) (*model.Patient, bool) {
	p, ok := r.index[mrn]
	return p, ok
}

// Patients returns the collection in insertion order.
func (r *Repository) Patients() []*model.Patient {
	return r.patients
}

func (r *Repository) Len() int {
	return len(r.patients)
}

// Remove deletes the patient identified by mrn from the collection.
func (r *Repository) Remove(mrn string) (*model.Patient, bool) {
	p, ok := r.index[mrn]
	if !ok {
		return nil, false
	}
	delete(r.index, mrn)
	for i, cur := range r.patients {
		if cur == p {
			r.patients = append(r.patients[:i], r.patients[i+1:]...)
			break
		}
	}
	r.metrics.PatientsTracked.Set(float64(len(r.patients)))
	return p, true
}

// Replace swaps old for updated at the same position in the collection,
// reindexing in case the chart number changed.
func (r *Repository) Replace(old, updated *model.Patient) {
	for i, cur := range r.patients {
		if cur == old {
			r.patients[i] = updated
			delete(r.index, old.MRN)
			r.index[updated.MRN] = updated
			return
		}
	}
}

// Denormalize flattens the collection back into storage shape: one
// record per appointment, the patient's identity fields merged with
// the appointment's fields. A patient with no appointments produces no
// records and so does not survive a save/load cycle.
func (r *Repository) Denormalize() []model.Record {
	var records []model.Record
	for _, p := range r.patients {
		pRec := p.Record()
		for _, appt := range p.Appointments {
			records = append(records, pRec.Merge(appt.Record()))
		}
	}
	return records
}

// Save writes the whole collection through the store.
func (r *Repository) Save(ctx context.Context) error {
	start := time.Now()
	records := r.Denormalize()
	if err := r.store.Save(ctx, records); err != nil {
		return err
	}
	r.metrics.RecordsSaved.Add(float64(len(records)))
	r.metrics.StoreLatency.WithLabelValues("save").Observe(time.Since(start).Seconds())
	r.logger.Debug("collection saved", "records", len(records))
	return nil
}
