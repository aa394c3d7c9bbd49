package permission

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

// AppointmentSnapshot carries the appointment attributes the rules read.
type AppointmentSnapshot struct {
	ClinicID     uuid.UUID
	DateTime     time.Time
	Status       model.AppointmentStatus
	CheckInTime  *time.Time
	CheckOutTime *time.Time
}

func AppointmentSnapshotOf(apt *model.Appointment) AppointmentSnapshot {
	return AppointmentSnapshot{
		ClinicID:     apt.ClinicID,
		DateTime:     apt.AppointmentDateTime,
		Status:       apt.Status,
		CheckInTime:  apt.CheckInTime,
		CheckOutTime: apt.CheckOutTime,
	}
}

var appointmentBusinessFields = fields(
	model.FieldCustomer,
	model.FieldDateTime,
	model.FieldDuration,
	model.FieldPrimaryDentist,
	model.FieldSecondaryDentist,
	model.FieldClinic,
	model.FieldStatus,
	model.FieldNotes,
)

var appointmentAllFields = fields(model.AppointmentFields...)

// appointmentEditRules holds edit rights for an actor at the appointment's clinic.
var appointmentEditRules = map[model.Role]map[Timeline]Decision{
	model.RoleAdmin: {
		Past:   allow(),
		Today:  allow(),
		Future: allow(),
	},
	model.RoleEmployee: {
		Past:   deny("appointment is in the past"),
		Today:  allow(),
		Future: allow(),
	},
}

// appointmentFieldRules applies once edit rights hold. Check-in and check-out
// times are only written by the lifecycle actions for non-admins.
var appointmentFieldRules = map[model.Role]fieldSet{
	model.RoleAdmin:    appointmentAllFields,
	model.RoleEmployee: appointmentBusinessFields,
}

// clinicScoped roles may only touch appointments of their own clinic.
var clinicScoped = map[model.Role]bool{
	model.RoleEmployee: true,
}

var checkInBlockedStatuses = map[model.AppointmentStatus]string{
	model.AppointmentStatusCancelled: "appointment is cancelled",
	model.AppointmentStatusNoShow:    "appointment was marked as no-show",
}

func (r *Resolver) CanEditAppointment(actor model.Actor, apt AppointmentSnapshot) Decision {
	byTimeline, ok := appointmentEditRules[actor.Role]
	if !ok {
		return deny("unknown role")
	}
	if clinicScoped[actor.Role] && !actor.WorksAt(apt.ClinicID) {
		return deny("appointment belongs to another clinic")
	}
	return byTimeline[r.timeline(apt.DateTime)]
}

func (r *Resolver) CanDeleteAppointment(actor model.Actor, apt AppointmentSnapshot) Decision {
	if d := r.CanEditAppointment(actor, apt); !d.Allowed {
		return d
	}
	if !actor.IsAdmin() && apt.CheckInTime != nil {
		return deny("cannot delete a checked-in appointment")
	}
	return allow()
}

func (r *Resolver) CanCheckIn(apt AppointmentSnapshot) Decision {
	if r.timeline(apt.DateTime) != Today {
		return deny("check-in is only available on the appointment day")
	}
	if apt.CheckInTime != nil {
		return deny("appointment is already checked in")
	}
	if reason, blocked := checkInBlockedStatuses[apt.Status]; blocked {
		return deny(reason)
	}
	return allow()
}

func (r *Resolver) CanCheckOut(apt AppointmentSnapshot) Decision {
	if apt.CheckInTime == nil {
		return deny("appointment is not checked in")
	}
	if apt.CheckOutTime != nil {
		return deny("appointment is already checked out")
	}
	return allow()
}

func (r *Resolver) CanConfirmAppointment(apt AppointmentSnapshot) Decision {
	if apt.Status != model.AppointmentStatusPending {
		return deny("only pending appointments can be confirmed")
	}
	if r.timeline(apt.DateTime) != Future {
		return deny("only future appointments can be confirmed")
	}
	return allow()
}

func (r *Resolver) AppointmentFieldPermissions(actor model.Actor, apt AppointmentSnapshot) FieldPermissions {
	if !r.CanEditAppointment(actor, apt).Allowed {
		return fieldSet{}.expand(model.AppointmentFields)
	}
	return appointmentFieldRules[actor.Role].expand(model.AppointmentFields)
}

// AppointmentPermissions is the full decision set for one appointment.
type AppointmentPermissions struct {
	Timeline Timeline         `json:"timeline"`
	Fields   FieldPermissions `json:"fields"`
	Edit     Decision         `json:"edit"`
	Delete   Decision         `json:"delete"`
	CheckIn  Decision         `json:"check_in"`
	CheckOut Decision         `json:"check_out"`
	Confirm  Decision         `json:"confirm"`
}

func (r *Resolver) Appointment(actor model.Actor, apt AppointmentSnapshot) AppointmentPermissions {
	return AppointmentPermissions{
		Timeline: r.timeline(apt.DateTime),
		Fields:   r.AppointmentFieldPermissions(actor, apt),
		Edit:     r.CanEditAppointment(actor, apt),
		Delete:   r.CanDeleteAppointment(actor, apt),
		CheckIn:  r.CanCheckIn(apt),
		CheckOut: r.CanCheckOut(apt),
		Confirm:  r.CanConfirmAppointment(apt),
	}
}
