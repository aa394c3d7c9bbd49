package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	ClinicID   *uuid.UUID      `json:"clinic_id,omitempty" db:"clinic_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes" db:"changes"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionUpdate   = "update"
	AuditActionDelete   = "delete"
	AuditActionConfirm  = "confirm"
	AuditActionReassign = "reassign"

	// Entity types
	AuditEntityAppointment      = "appointment"
	AuditEntityConsultedService = "consulted_service"
	AuditEntityPaymentVoucher   = "payment_voucher"
)
