package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/perioclinic/perio-records/pkg/errors"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

var validate = validator.New()

// patientIntake mirrors the patient-shaped fields of a flat record for
// structural validation before the entity is built.
type patientIntake struct {
	MRN      string `validate:"required"`
	First    string `validate:"required"`
	Last     string `validate:"required"`
	Birthday string `validate:"required,len=8,numeric"`
	Sex      string `validate:"required,oneof=male female"`
}

// Patient is the root entity: one person under treatment, identified by
// chart number, holding every appointment recorded against it.
type Patient struct {
	MRN          string
	First        string
	Last         string
	Birthday     time.Time
	Sex          Sex
	Appointments []Appointment
}

// NewPatient builds a Patient from the patient-shaped fields of rec.
// Appointment-shaped fields in rec are ignored here; see NewAppointment.
func NewPatient(rec Record) (*Patient, error) {
	var intake patientIntake
	intake.MRN, _ = rec.StringVal(FieldMRN)
	intake.First, _ = rec.StringVal(FieldFirst)
	intake.Last, _ = rec.StringVal(FieldLast)
	intake.Birthday, _ = rec.StringVal(FieldBirthday)
	intake.Sex, _ = rec.StringVal(FieldSex)

	if err := validate.Struct(intake); err != nil {
		return nil, errors.NewValidation("invalid patient record", err)
	}
	birthday, err := ParseDate(intake.Birthday)
	if err != nil {
		return nil, err
	}

	return &Patient{
		MRN:      intake.MRN,
		First:    intake.First,
		Last:     intake.Last,
		Birthday: birthday,
		Sex:      Sex(intake.Sex),
	}, nil
}

// Record returns the patient identity fields as a flat record. The
// appointments are not included; storage merges them in, one record per
// appointment.
func (p *Patient) Record() Record {
	return Record{
		FieldMRN:      p.MRN,
		FieldFirst:    p.First,
		FieldLast:     p.Last,
		FieldBirthday: FormatDate(p.Birthday),
		FieldSex:      string(p.Sex),
	}
}

func (p *Patient) String() string {
	return fmt.Sprintf("%s %s (mrn %s)", p.First, p.Last, p.MRN)
}

// MRNFromKey extracts a chart number from the key forms lookups accept:
// a *Patient, a flat Record, or a bare mrn given as string or integer.
func MRNFromKey(key any) (string, bool) {
	switch k := key.(type) {
	case *Patient:
		if k == nil {
			return "", false
		}
		return k.MRN, true
	case Record:
		return k.StringVal(FieldMRN)
	case map[string]any:
		return Record(k).StringVal(FieldMRN)
	case string:
		return k, true
	case int:
		return strconv.Itoa(k), true
	case int64:
		return strconv.FormatInt(k, 10), true
	default:
		return "", false
	}
}

// MatchesMRN reports whether p is the patient identified by key.
// Unsupported key types never match.
func MatchesMRN(p *Patient, key any) bool {
	mrn, ok := MRNFromKey(key)
	return ok && p != nil && p.MRN == mrn
}
