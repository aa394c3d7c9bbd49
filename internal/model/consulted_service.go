package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ServiceStatus string

const (
	ServiceStatusUnconfirmed ServiceStatus = "UNCONFIRMED"
	ServiceStatusConfirmed   ServiceStatus = "CONFIRMED"
)

// Stage is a step of the sales follow-up funnel. The vocabulary is configured, not fixed.
type Stage string

func (s Stage) String() string {
	return string(s)
}

// StageName renders a nullable stage, "" for none.
func StageName(s *Stage) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// Consulted-service field names used by field permissions and update requests.
const (
	FieldToothPositions     = "toothPositions"
	FieldQuantity           = "quantity"
	FieldPreferentialPrice  = "preferentialPrice"
	FieldConsultingDoctorID = "consultingDoctorId"
	FieldTreatingDoctorID   = "treatingDoctorId"
	FieldSpecificStatus     = "specificStatus"
	FieldSource             = "source"
	FieldSourceNote         = "sourceNote"
	FieldServiceNotes       = "notes"
)

// ConsultedServiceFields lists every writable consulted-service field.
var ConsultedServiceFields = []string{
	FieldToothPositions,
	FieldQuantity,
	FieldPreferentialPrice,
	FieldConsultingDoctorID,
	FieldTreatingDoctorID,
	FieldSpecificStatus,
	FieldSource,
	FieldSourceNote,
	FieldServiceNotes,
}

type ConsultedService struct {
	Base
	CustomerID      uuid.UUID `db:"customer_id" json:"customer_id"`
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	DentalServiceID uuid.UUID `db:"dental_service_id" json:"dental_service_id"`
	ServiceName     string    `db:"service_name" json:"service_name"`

	ToothPositions    pq.StringArray `db:"tooth_positions" json:"tooth_positions"`
	ListPrice         int64          `db:"list_price" json:"list_price"`
	MinPrice          int64          `db:"min_price" json:"min_price"`
	PreferentialPrice int64          `db:"preferential_price" json:"preferential_price"`
	Quantity          int            `db:"quantity" json:"quantity"`
	FinalPrice        int64          `db:"final_price" json:"final_price"`
	AmountPaid        int64          `db:"amount_paid" json:"amount_paid"`
	Debt              int64          `db:"debt" json:"debt"`

	ServiceStatus      ServiceStatus `db:"service_status" json:"service_status"`
	ServiceConfirmDate *time.Time    `db:"service_confirm_date" json:"service_confirm_date,omitempty"`
	Stage              *Stage        `db:"stage" json:"stage,omitempty"`
	TreatmentStatus    string        `db:"treatment_status" json:"treatment_status"`

	ConsultingSaleID   *uuid.UUID `db:"consulting_sale_id" json:"consulting_sale_id,omitempty"`
	ConsultingDoctorID *uuid.UUID `db:"consulting_doctor_id" json:"consulting_doctor_id,omitempty"`
	TreatingDoctorID   *uuid.UUID `db:"treating_doctor_id" json:"treating_doctor_id,omitempty"`

	SpecificStatus string `db:"specific_status" json:"specific_status"`
	Source         string `db:"source" json:"source"`
	SourceNote     string `db:"source_note" json:"source_note"`
	Notes          string `db:"notes" json:"notes"`
}

func (s *ConsultedService) IsConfirmed() bool {
	return s.ServiceStatus == ServiceStatusConfirmed
}

// StageHistoryEntry is an immutable record of one stage change.
type StageHistoryEntry struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	ConsultedServiceID uuid.UUID `db:"consulted_service_id" json:"consulted_service_id"`
	FromStage          *Stage    `db:"from_stage" json:"from_stage,omitempty"`
	ToStage            Stage     `db:"to_stage" json:"to_stage"`
	Reason             string    `db:"reason" json:"reason,omitempty"`
	ChangedBy          uuid.UUID `db:"changed_by" json:"changed_by"`
	ChangedAt          time.Time `db:"changed_at" json:"changed_at"`
}

// OwnershipChange records a move of follow-up responsibility between sales.
type OwnershipChange struct {
	ConsultedServiceID uuid.UUID  `json:"consulted_service_id"`
	FromSaleID         *uuid.UUID `json:"from_sale_id,omitempty"`
	ToSaleID           uuid.UUID  `json:"to_sale_id"`
	ChangedBy          uuid.UUID  `json:"changed_by"`
	ChangedAt          time.Time  `json:"changed_at"`
}

type UpdateConsultedServiceRequest struct {
	ToothPositions     *[]string  `json:"tooth_positions"`
	Quantity           *int       `json:"quantity" validate:"omitempty,min=1"`
	PreferentialPrice  *int64     `json:"preferential_price" validate:"omitempty,min=0"`
	ConsultingDoctorID *uuid.UUID `json:"consulting_doctor_id"`
	TreatingDoctorID   *uuid.UUID `json:"treating_doctor_id"`
	SpecificStatus     *string    `json:"specific_status" validate:"omitempty,max=100"`
	Source             *string    `json:"source" validate:"omitempty,max=100"`
	SourceNote         *string    `json:"source_note" validate:"omitempty,max=1000"`
	Notes              *string    `json:"notes" validate:"omitempty,max=2000"`
}

// Fields returns the names of the fields present in the request.
func (r *UpdateConsultedServiceRequest) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(r.ToothPositions != nil, FieldToothPositions)
	add(r.Quantity != nil, FieldQuantity)
	add(r.PreferentialPrice != nil, FieldPreferentialPrice)
	add(r.ConsultingDoctorID != nil, FieldConsultingDoctorID)
	add(r.TreatingDoctorID != nil, FieldTreatingDoctorID)
	add(r.SpecificStatus != nil, FieldSpecificStatus)
	add(r.Source != nil, FieldSource)
	add(r.SourceNote != nil, FieldSourceNote)
	add(r.Notes != nil, FieldServiceNotes)
	return fields
}

// ApplyTo copies the listed fields of the request onto svc.
func (r *UpdateConsultedServiceRequest) ApplyTo(svc *ConsultedService, fields []string) {
	for _, f := range fields {
		switch f {
		case FieldToothPositions:
			svc.ToothPositions = pq.StringArray(*r.ToothPositions)
		case FieldQuantity:
			svc.Quantity = *r.Quantity
		case FieldPreferentialPrice:
			svc.PreferentialPrice = *r.PreferentialPrice
		case FieldConsultingDoctorID:
			svc.ConsultingDoctorID = r.ConsultingDoctorID
		case FieldTreatingDoctorID:
			svc.TreatingDoctorID = r.TreatingDoctorID
		case FieldSpecificStatus:
			svc.SpecificStatus = *r.SpecificStatus
		case FieldSource:
			svc.Source = *r.Source
		case FieldSourceNote:
			svc.SourceNote = *r.SourceNote
		case FieldServiceNotes:
			svc.Notes = *r.Notes
		}
	}
}

type ChangeStageRequest struct {
	Stage  Stage  `json:"stage" validate:"required,stage"`
	Reason string `json:"reason" validate:"max=1000"`
}

type ReassignRequest struct {
	ConsultingSaleID uuid.UUID `json:"consulting_sale_id" validate:"required"`
}
