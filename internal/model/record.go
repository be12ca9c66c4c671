package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/perioclinic/perio-records/pkg/errors"
)

// DateFormat is the layout for every externally supplied date, eg 20210123.
const DateFormat = "20060102"

// Field names shared by the flat record shape.
const (
	FieldMRN      = "mrn"
	FieldFirst    = "first"
	FieldLast     = "last"
	FieldBirthday = "birthday"
	FieldSex      = "sex"
	FieldType     = "_type"
	FieldDate     = "date"
	FieldASA      = "asa"
	FieldNote     = "note"
)

// Record is one flat, self-describing record: a patient's identity
// fields merged with the fields of a single appointment. It is the only
// shape that crosses the storage boundary.
type Record map[string]any

// StringVal returns the value under key coerced to a string. Numbers
// coerce to their decimal form; any other type reports false. YAML
// decodes fractional scalars like asa: 2.5 as float64.
func (r Record) StringVal(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Truthy reports whether key marks a procedure as performed: present,
// non-nil, not false and not an empty string.
func (r Record) Truthy(key string) bool {
	return truthy(r[key])
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

// Clone returns a shallow copy so callers can overlay fields without
// mutating the source.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge overlays other's fields onto a copy of r; other wins collisions.
func (r Record) Merge(other Record) Record {
	out := r.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ParseDate parses a date in the external YYYYMMDD form.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, errors.NewValidation(fmt.Sprintf("invalid date %q, want YYYYMMDD", s), err)
	}
	return t, nil
}

// FormatDate renders t in the external YYYYMMDD form.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// Today returns the current calendar date at UTC midnight, the same
// normal form ParseDate produces, so date comparisons stay exact.
func Today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
