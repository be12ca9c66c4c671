package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one mutation applied to the collection.
type AuditEntry struct {
	ID        uuid.UUID              `json:"id"`
	RunID     uuid.UUID              `json:"run_id"`
	Action    string                 `json:"action"`
	MRN       string                 `json:"mrn"`
	Kind      Kind                   `json:"kind,omitempty"`
	Date      string                 `json:"date,omitempty"`
	Changes   map[string]FieldChange `json:"changes,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// FieldChange is one field's before/after pair.
type FieldChange struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

const (
	// Action types
	AuditActionAddAppointment    = "add_appointment"
	AuditActionModifyAppointment = "modify_appointment"
	AuditActionModifyPatient     = "modify_patient"
	AuditActionDeleteAppointment = "delete_appointment"
	AuditActionDeletePatient     = "delete_patient"
)
