package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perioclinic/perio-records/internal/model"
	apperrors "github.com/perioclinic/perio-records/pkg/errors"
)

func addIdentityFlags(cmd *cobra.Command) {
	cmd.Flags().String(model.FieldFirst, "", "first name when creating a new patient")
	cmd.Flags().String(model.FieldLast, "", "last name when creating a new patient")
	cmd.Flags().String(model.FieldBirthday, "", "birthday (yyyymmdd) when creating a new patient")
	cmd.Flags().String(model.FieldSex, "", "sex (male/female) when creating a new patient")
}

// appointmentRecord assembles the flat record behind add and
// modify-appointment: identity fields come from the patient already on file
// or from the identity flags, appointment fields from the attribute tokens.
func (a *app) appointmentRecord(cmd *cobra.Command, args []string) (model.Record, error) {
	mrn := args[0]
	if !isDecimal(mrn) {
		return nil, apperrors.NewInvalidArgument(fmt.Sprintf("mrn must be all digits, got %q", mrn))
	}

	identity := model.Record{model.FieldMRN: mrn}
	if p, ok := a.repo.Find(mrn); ok {
		identity = p.Record()
	}
	for _, field := range []string{model.FieldFirst, model.FieldLast, model.FieldBirthday, model.FieldSex} {
		if f := cmd.Flags().Lookup(field); f != nil {
			if v := f.Value.String(); v != "" {
				identity[field] = v
			}
		}
	}

	appt, err := parseAppointmentTokens(args[1:])
	if err != nil {
		return nil, err
	}
	return identity.Merge(appt), nil
}

// parseAppointmentTokens turns positional attribute tokens into appointment
// record fields. A DATE: token and an appointment type name are required;
// ASA: and NOTE: are optional, and every other token becomes a procedure
// flag set to true.
func parseAppointmentTokens(tokens []string) (model.Record, error) {
	rec := model.Record{}
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "DATE:"):
			rec[model.FieldDate] = strings.TrimPrefix(tok, "DATE:")
		case strings.HasPrefix(tok, "ASA:"):
			rec[model.FieldASA] = strings.TrimPrefix(tok, "ASA:")
		case strings.HasPrefix(tok, "NOTE:"):
			// note words arrive dash-separated so they survive shell splitting
			rec[model.FieldNote] = strings.ReplaceAll(strings.TrimPrefix(tok, "NOTE:"), "-", " ")
		case isKindName(tok):
			rec[model.FieldType] = tok
		default:
			rec[tok] = true
		}
	}
	if _, ok := rec[model.FieldDate]; !ok {
		return nil, apperrors.NewInvalidArgument("appointment date must be included (DATE:yyyymmdd)")
	}
	if _, ok := rec[model.FieldType]; !ok {
		return nil, apperrors.NewInvalidArgument("appointment type must be included (PeriodicExam, LimitedExam, ComprehensiveExam or Surgery)")
	}
	return rec, nil
}

func isKindName(s string) bool {
	for _, k := range model.KindOrder {
		if s == string(k) {
			return true
		}
	}
	return false
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
