package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusArrived   AppointmentStatus = "Arrived"
	AppointmentStatusWalkIn    AppointmentStatus = "WalkIn"
	AppointmentStatusNoShow    AppointmentStatus = "NoShow"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusArrived,
		AppointmentStatusWalkIn, AppointmentStatusNoShow, AppointmentStatusCancelled:
		return true
	}
	return false
}

// DidNotHappen reports statuses that never occupy a dentist's time.
func (s AppointmentStatus) DidNotHappen() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

// Appointment field names used by field permissions and update requests.
const (
	FieldCustomer         = "customer"
	FieldDateTime         = "dateTime"
	FieldDuration         = "duration"
	FieldPrimaryDentist   = "primaryDentist"
	FieldSecondaryDentist = "secondaryDentist"
	FieldClinic           = "clinic"
	FieldStatus           = "status"
	FieldNotes            = "notes"
	FieldCheckInTime      = "checkInTime"
	FieldCheckOutTime     = "checkOutTime"
)

// AppointmentFields lists every appointment field covered by field permissions.
var AppointmentFields = []string{
	FieldCustomer,
	FieldDateTime,
	FieldDuration,
	FieldPrimaryDentist,
	FieldSecondaryDentist,
	FieldClinic,
	FieldStatus,
	FieldNotes,
	FieldCheckInTime,
	FieldCheckOutTime,
}

type Appointment struct {
	Base
	CustomerID          uuid.UUID         `db:"customer_id" json:"customer_id"`
	CustomerName        string            `db:"customer_name" json:"customer_name,omitempty"`
	ClinicID            uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	PrimaryDentistID    uuid.UUID         `db:"primary_dentist_id" json:"primary_dentist_id"`
	SecondaryDentistID  *uuid.UUID        `db:"secondary_dentist_id" json:"secondary_dentist_id,omitempty"`
	AppointmentDateTime time.Time         `db:"appointment_date_time" json:"appointment_date_time"`
	DurationMinutes     int               `db:"duration_minutes" json:"duration_minutes"`
	Status              AppointmentStatus `db:"status" json:"status"`
	Notes               string            `db:"notes" json:"notes,omitempty"`
	CheckInTime         *time.Time        `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime        *time.Time        `db:"check_out_time" json:"check_out_time,omitempty"`
}

// EndsAt is the exclusive end of the occupied interval.
func (a *Appointment) EndsAt() time.Time {
	return a.AppointmentDateTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// VisitTimesOrdered reports whether a recorded check-out has a check-in at or
// before it.
func (a *Appointment) VisitTimesOrdered() bool {
	if a.CheckOutTime == nil {
		return true
	}
	return a.CheckInTime != nil && !a.CheckOutTime.Before(*a.CheckInTime)
}

// HasDentist reports whether dentistID is the primary or secondary dentist.
func (a *Appointment) HasDentist(dentistID uuid.UUID) bool {
	if a.PrimaryDentistID == dentistID {
		return true
	}
	return a.SecondaryDentistID != nil && *a.SecondaryDentistID == dentistID
}

// Dentists returns the assigned dentist ids, primary first.
func (a *Appointment) Dentists() []uuid.UUID {
	ids := []uuid.UUID{a.PrimaryDentistID}
	if a.SecondaryDentistID != nil && *a.SecondaryDentistID != a.PrimaryDentistID {
		ids = append(ids, *a.SecondaryDentistID)
	}
	return ids
}

// Conflict is the display view of an overlapping appointment.
type Conflict struct {
	AppointmentID       uuid.UUID `json:"appointment_id"`
	AppointmentDateTime time.Time `json:"appointment_date_time"`
	DurationMinutes     int       `json:"duration_minutes"`
	CustomerName        string    `json:"customer_name"`
}

type Availability struct {
	DentistID uuid.UUID  `json:"dentist_id"`
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts"`
}

type UpdateAppointmentRequest struct {
	CustomerID          *uuid.UUID         `json:"customer_id"`
	AppointmentDateTime *time.Time         `json:"appointment_date_time"`
	DurationMinutes     *int               `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	PrimaryDentistID    *uuid.UUID         `json:"primary_dentist_id"`
	SecondaryDentistID  *uuid.UUID         `json:"secondary_dentist_id"`
	ClinicID            *uuid.UUID         `json:"clinic_id"`
	Status              *AppointmentStatus `json:"status"`
	Notes               *string            `json:"notes" validate:"omitempty,max=1000"`
	CheckInTime         *time.Time         `json:"check_in_time"`
	CheckOutTime        *time.Time         `json:"check_out_time"`
}

// Fields returns the names of the fields present in the request.
func (r *UpdateAppointmentRequest) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(r.CustomerID != nil, FieldCustomer)
	add(r.AppointmentDateTime != nil, FieldDateTime)
	add(r.DurationMinutes != nil, FieldDuration)
	add(r.PrimaryDentistID != nil, FieldPrimaryDentist)
	add(r.SecondaryDentistID != nil, FieldSecondaryDentist)
	add(r.ClinicID != nil, FieldClinic)
	add(r.Status != nil, FieldStatus)
	add(r.Notes != nil, FieldNotes)
	add(r.CheckInTime != nil, FieldCheckInTime)
	add(r.CheckOutTime != nil, FieldCheckOutTime)
	return fields
}

// ApplyTo copies the listed fields of the request onto apt.
func (r *UpdateAppointmentRequest) ApplyTo(apt *Appointment, fields []string) {
	for _, f := range fields {
		switch f {
		case FieldCustomer:
			apt.CustomerID = *r.CustomerID
		case FieldDateTime:
			apt.AppointmentDateTime = *r.AppointmentDateTime
		case FieldDuration:
			apt.DurationMinutes = *r.DurationMinutes
		case FieldPrimaryDentist:
			apt.PrimaryDentistID = *r.PrimaryDentistID
		case FieldSecondaryDentist:
			apt.SecondaryDentistID = r.SecondaryDentistID
		case FieldClinic:
			apt.ClinicID = *r.ClinicID
		case FieldStatus:
			apt.Status = *r.Status
		case FieldNotes:
			apt.Notes = *r.Notes
		case FieldCheckInTime:
			apt.CheckInTime = r.CheckInTime
		case FieldCheckOutTime:
			apt.CheckOutTime = r.CheckOutTime
		}
	}
}

// TouchesSchedule reports whether any of fields moves the occupied interval or its dentists.
func TouchesSchedule(fields []string) bool {
	for _, f := range fields {
		switch f {
		case FieldDateTime, FieldDuration, FieldPrimaryDentist, FieldSecondaryDentist:
			return true
		}
	}
	return false
}
