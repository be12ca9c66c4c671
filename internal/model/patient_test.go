package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/perioclinic/perio-records/pkg/errors"
)

func patientRecord() Record {
	return Record{
		FieldMRN:      "222",
		FieldFirst:    "qi",
		FieldLast:     "wang",
		FieldBirthday: "19700101",
		FieldSex:      "female",
	}
}

func TestNewPatient(t *testing.T) {
	p, err := NewPatient(patientRecord())
	require.NoError(t, err)

	assert.Equal(t, "222", p.MRN)
	assert.Equal(t, "qi", p.First)
	assert.Equal(t, "wang", p.Last)
	assert.Equal(t, SexFemale, p.Sex)
	assert.Equal(t, "19700101", FormatDate(p.Birthday))
	assert.Empty(t, p.Appointments)
}

func TestNewPatientIgnoresAppointmentFields(t *testing.T) {
	rec := patientRecord()
	rec[FieldType] = "Surgery"
	rec[FieldDate] = "20210123"
	rec["biopsy"] = true

	p, err := NewPatient(rec)
	require.NoError(t, err)
	assert.Empty(t, p.Appointments)
	assert.NotContains(t, p.Record(), FieldType)
}

func TestNewPatientValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Record)
	}{
		{name: "missing mrn", mutate: func(r Record) { delete(r, FieldMRN) }},
		{name: "missing first", mutate: func(r Record) { delete(r, FieldFirst) }},
		{name: "missing last", mutate: func(r Record) { delete(r, FieldLast) }},
		{name: "missing birthday", mutate: func(r Record) { delete(r, FieldBirthday) }},
		{name: "missing sex", mutate: func(r Record) { delete(r, FieldSex) }},
		{name: "unknown sex", mutate: func(r Record) { r[FieldSex] = "other" }},
		{name: "short birthday", mutate: func(r Record) { r[FieldBirthday] = "1970011" }},
		{name: "non-numeric birthday", mutate: func(r Record) { r[FieldBirthday] = "1970-1-1" }},
		{name: "impossible birthday", mutate: func(r Record) { r[FieldBirthday] = "19701301" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := patientRecord()
			tt.mutate(rec)
			_, err := NewPatient(rec)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrValidation, apperrors.Code(err))
		})
	}
}

func TestNewPatientCoercesIntegerMRN(t *testing.T) {
	rec := patientRecord()
	rec[FieldMRN] = 222

	p, err := NewPatient(rec)
	require.NoError(t, err)
	assert.Equal(t, "222", p.MRN)
}

func TestPatientRecord(t *testing.T) {
	p, err := NewPatient(patientRecord())
	require.NoError(t, err)

	assert.Equal(t, Record{
		FieldMRN:      "222",
		FieldFirst:    "qi",
		FieldLast:     "wang",
		FieldBirthday: "19700101",
		FieldSex:      "female",
	}, p.Record())
}

func TestMatchesMRN(t *testing.T) {
	p, err := NewPatient(patientRecord())
	require.NoError(t, err)
	other, err := NewPatient(Record{
		FieldMRN:      "333",
		FieldFirst:    "al",
		FieldLast:     "mo",
		FieldBirthday: "19800101",
		FieldSex:      "male",
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		key   any
		match bool
	}{
		{name: "string mrn", key: "222", match: true},
		{name: "integer mrn", key: 222, match: true},
		{name: "other string mrn", key: "333", match: false},
		{name: "patient", key: p, match: true},
		{name: "other patient", key: other, match: false},
		{name: "record", key: patientRecord(), match: true},
		{name: "plain map", key: map[string]any{FieldMRN: "222"}, match: true},
		{name: "record without mrn", key: Record{FieldFirst: "qi"}, match: false},
		{name: "unsupported type", key: 2.22, match: false},
		{name: "nil", key: nil, match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, MatchesMRN(p, tt.key))
		})
	}
}
