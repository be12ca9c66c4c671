package model

import (
	"time"

	"github.com/perioclinic/perio-records/pkg/errors"
)

// Kind discriminates the appointment variants. The names travel
// verbatim in the record's _type field.
type Kind string

const (
	KindPeriodicExam      Kind = "PeriodicExam"
	KindLimitedExam       Kind = "LimitedExam"
	KindComprehensiveExam Kind = "ComprehensiveExam"
	KindSurgery           Kind = "Surgery"
)

// KindOrder is the fixed reporting order for per-variant output.
var KindOrder = []Kind{KindPeriodicExam, KindLimitedExam, KindComprehensiveExam, KindSurgery}

// Display defaults for clinical fields that were never recorded. They
// live at the display boundary only and are never written to storage.
const (
	NoASA  = "No ASA number."
	NoNote = "No note."
)

// Visit carries the fields shared by every appointment variant.
type Visit struct {
	Date time.Time
	ASA  *string
	Note *string
}

func (v Visit) When() time.Time { return v.Date }

// ASADisplay returns the ASA classification, or the placeholder when
// none was recorded.
func (v Visit) ASADisplay() string {
	if v.ASA == nil {
		return NoASA
	}
	return *v.ASA
}

// NoteDisplay returns the clinical note, or the placeholder when none
// was recorded.
func (v Visit) NoteDisplay() string {
	if v.Note == nil {
		return NoNote
	}
	return *v.Note
}

// base starts the flat record every variant shares: discriminator,
// date, and the optional clinical fields when present.
func (v Visit) base(kind Kind) Record {
	rec := Record{
		FieldType: string(kind),
		FieldDate: FormatDate(v.Date),
	}
	if v.ASA != nil {
		rec[FieldASA] = *v.ASA
	}
	if v.Note != nil {
		rec[FieldNote] = *v.Note
	}
	return rec
}

func newVisit(rec Record) (Visit, error) {
	dateStr, ok := rec.StringVal(FieldDate)
	if !ok {
		return Visit{}, errors.NewValidation("appointment record has no date", nil)
	}
	date, err := ParseDate(dateStr)
	if err != nil {
		return Visit{}, err
	}

	v := Visit{Date: date}
	if s, ok := rec.StringVal(FieldASA); ok && s != "" {
		v.ASA = &s
	}
	if s, ok := rec.StringVal(FieldNote); ok && s != "" {
		v.Note = &s
	}
	return v, nil
}

// Appointment is one clinical visit. Each variant carries its own set
// of procedure flags.
type Appointment interface {
	Kind() Kind
	When() time.Time
	ASADisplay() string
	NoteDisplay() string
	// Record returns the appointment's fields as a flat record,
	// including the _type discriminator. Procedure flags appear only
	// when truthy; consumers treat an absent key the same as a null
	// one.
	Record() Record
}

// PeriodicExam is a routine recall visit; it tracks no procedures.
type PeriodicExam struct {
	Visit
}

func (a *PeriodicExam) Kind() Kind { return KindPeriodicExam }

func (a *PeriodicExam) Record() Record {
	return a.base(KindPeriodicExam)
}

// LimitedExam is a problem-focused exam.
type LimitedExam struct {
	Visit
	Abscess          any
	CrownLengthening any
	CVExam           any
	Extraction       any
	Frenectomy       any
	Fracture         any
	Implant          any
	OralPath         any
	Periodontitis    any
	PeriImplantitis  any
	Postop           any
	Return           any
	Recession        any
	ReEvaluation     any
	Miscellaneous    any
}

func (a *LimitedExam) Kind() Kind { return KindLimitedExam }

func (a *LimitedExam) Record() Record {
	rec := a.base(KindLimitedExam)
	putFlag(rec, "abscess", a.Abscess)
	putFlag(rec, "crown_lengthening", a.CrownLengthening)
	putFlag(rec, "cv_exam", a.CVExam)
	putFlag(rec, "extraction", a.Extraction)
	putFlag(rec, "frenectomy", a.Frenectomy)
	putFlag(rec, "fracture", a.Fracture)
	putFlag(rec, "implant", a.Implant)
	putFlag(rec, "oral_path", a.OralPath)
	putFlag(rec, "periodontitis", a.Periodontitis)
	putFlag(rec, "peri_implantitis", a.PeriImplantitis)
	putFlag(rec, "postop", a.Postop)
	// "return_" is the literal key used in stored records.
	putFlag(rec, "return_", a.Return)
	putFlag(rec, "recession", a.Recession)
	putFlag(rec, "re_evaluation", a.ReEvaluation)
	putFlag(rec, "miscellaneous", a.Miscellaneous)
	return rec
}

// ComprehensiveExam is a full new-patient or specialist evaluation.
type ComprehensiveExam struct {
	Visit
	Periodontitis   any
	ExecutiveHealth any
	Recession       any
	Hygiene         any
	Return          any
	Oncology        any
	Implant         any
	OralPath        any
}

func (a *ComprehensiveExam) Kind() Kind { return KindComprehensiveExam }

func (a *ComprehensiveExam) Record() Record {
	rec := a.base(KindComprehensiveExam)
	putFlag(rec, "periodontitis", a.Periodontitis)
	putFlag(rec, "executive_health", a.ExecutiveHealth)
	putFlag(rec, "recession", a.Recession)
	putFlag(rec, "hygiene", a.Hygiene)
	putFlag(rec, "return_", a.Return)
	putFlag(rec, "oncology", a.Oncology)
	putFlag(rec, "implant", a.Implant)
	putFlag(rec, "oral_path", a.OralPath)
	return rec
}

// Surgery is a surgical visit.
type Surgery struct {
	Visit
	Biopsy           any
	Extractions      any
	Uncovery         any
	Implant          any
	CrownLengthening any
	SoftTissue       any
	Perio            any
	Miscellaneous    any
	Sinus            any
	PeriImplantitis  any
}

func (a *Surgery) Kind() Kind { return KindSurgery }

func (a *Surgery) Record() Record {
	rec := a.base(KindSurgery)
	putFlag(rec, "biopsy", a.Biopsy)
	putFlag(rec, "extractions", a.Extractions)
	putFlag(rec, "uncovery", a.Uncovery)
	putFlag(rec, "implant", a.Implant)
	putFlag(rec, "crown_lengthening", a.CrownLengthening)
	putFlag(rec, "soft_tissue", a.SoftTissue)
	putFlag(rec, "perio", a.Perio)
	putFlag(rec, "miscellaneous", a.Miscellaneous)
	putFlag(rec, "sinus", a.Sinus)
	putFlag(rec, "peri_implantitis", a.PeriImplantitis)
	return rec
}

func newPeriodicExam(v Visit, _ Record) Appointment {
	return &PeriodicExam{Visit: v}
}

func newLimitedExam(v Visit, rec Record) Appointment {
	return &LimitedExam{
		Visit:            v,
		Abscess:          flag(rec, "abscess"),
		CrownLengthening: flag(rec, "crown_lengthening"),
		CVExam:           flag(rec, "cv_exam"),
		Extraction:       flag(rec, "extraction"),
		Frenectomy:       flag(rec, "frenectomy"),
		Fracture:         flag(rec, "fracture"),
		Implant:          flag(rec, "implant"),
		OralPath:         flag(rec, "oral_path"),
		Periodontitis:    flag(rec, "periodontitis"),
		PeriImplantitis:  flag(rec, "peri_implantitis"),
		Postop:           flag(rec, "postop"),
		Return:           flag(rec, "return_"),
		Recession:        flag(rec, "recession"),
		ReEvaluation:     flag(rec, "re_evaluation"),
		Miscellaneous:    flag(rec, "miscellaneous"),
	}
}

func newComprehensiveExam(v Visit, rec Record) Appointment {
	return &ComprehensiveExam{
		Visit:           v,
		Periodontitis:   flag(rec, "periodontitis"),
		ExecutiveHealth: flag(rec, "executive_health"),
		Recession:       flag(rec, "recession"),
		Hygiene:         flag(rec, "hygiene"),
		Return:          flag(rec, "return_"),
		Oncology:        flag(rec, "oncology"),
		Implant:         flag(rec, "implant"),
		OralPath:        flag(rec, "oral_path"),
	}
}

func newSurgery(v Visit, rec Record) Appointment {
	return &Surgery{
		Visit:            v,
		Biopsy:           flag(rec, "biopsy"),
		Extractions:      flag(rec, "extractions"),
		Uncovery:         flag(rec, "uncovery"),
		Implant:          flag(rec, "implant"),
		CrownLengthening: flag(rec, "crown_lengthening"),
		SoftTissue:       flag(rec, "soft_tissue"),
		Perio:            flag(rec, "perio"),
		Miscellaneous:    flag(rec, "miscellaneous"),
		Sinus:            flag(rec, "sinus"),
		PeriImplantitis:  flag(rec, "peri_implantitis"),
	}
}

// appointmentCtors is the closed variant set; an unlisted _type is
// rejected at construction.
var appointmentCtors = map[Kind]func(Visit, Record) Appointment{
	KindPeriodicExam:      newPeriodicExam,
	KindLimitedExam:       newLimitedExam,
	KindComprehensiveExam: newComprehensiveExam,
	KindSurgery:           newSurgery,
}

// NewAppointment builds the variant named by rec's _type field. Flag
// keys the variant does not know are dropped.
func NewAppointment(rec Record) (Appointment, error) {
	kind, ok := rec.StringVal(FieldType)
	if !ok {
		return nil, errors.NewRecordCorrupt("record has no _type field", nil)
	}
	ctor, ok := appointmentCtors[Kind(kind)]
	if !ok {
		return nil, errors.NewUnknownVariant(kind)
	}
	visit, err := newVisit(rec)
	if err != nil {
		return nil, err
	}
	return ctor(visit, rec), nil
}

// flag returns the stored marker for a procedure field, or nil when the
// record does not claim the procedure happened.
func flag(rec Record, key string) any {
	if v, ok := rec[key]; ok && truthy(v) {
		return v
	}
	return nil
}

func putFlag(rec Record, key string, v any) {
	if v != nil {
		rec[key] = v
	}
}

// StatsRecord strips the fields that never count toward procedure
// statistics (asa and note) from the appointment's record.
func StatsRecord(a Appointment) Record {
	rec := a.Record()
	delete(rec, FieldASA)
	delete(rec, FieldNote)
	return rec
}

// SameSlot reports whether two appointments occupy the same slot: the
// same variant on the same date.
func SameSlot(a, b Appointment) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Kind() == b.Kind() && a.When().Equal(b.When())
}

// MatchesDate reports whether the appointment fell on the given date,
// regardless of variant.
func MatchesDate(a Appointment, date time.Time) bool {
	return a != nil && a.When().Equal(date)
}
