package permission

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

// ServicePhase is where a consulted service sits relative to its edit window.
type ServicePhase string

const (
	PhaseUnconfirmed   ServicePhase = "unconfirmed"
	PhaseWithinWindow  ServicePhase = "within_window"
	PhaseOutsideWindow ServicePhase = "outside_window"
)

type ConsultedServiceSnapshot struct {
	Status           model.ServiceStatus
	ConfirmDate      *time.Time
	ConsultingSaleID *uuid.UUID
	Stage            *model.Stage
}

func ConsultedServiceSnapshotOf(svc *model.ConsultedService) ConsultedServiceSnapshot {
	return ConsultedServiceSnapshot{
		Status:           svc.ServiceStatus,
		ConfirmDate:      svc.ServiceConfirmDate,
		ConsultingSaleID: svc.ConsultingSaleID,
		Stage:            svc.Stage,
	}
}

var personnelFields = fields(
	model.FieldConsultingDoctorID,
	model.FieldTreatingDoctorID,
	model.FieldSpecificStatus,
	model.FieldSource,
	model.FieldSourceNote,
)

var consultedAllFields = fields(model.ConsultedServiceFields...)

var consultedFieldRules = map[model.Role]map[ServicePhase]fieldSet{
	model.RoleAdmin: {
		PhaseUnconfirmed:   consultedAllFields,
		PhaseWithinWindow:  consultedAllFields,
		PhaseOutsideWindow: consultedAllFields,
	},
	model.RoleEmployee: {
		PhaseUnconfirmed:   consultedAllFields,
		PhaseWithinWindow:  personnelFields,
		PhaseOutsideWindow: {},
	},
}

var consultedDeleteRules = map[model.Role]map[model.ServiceStatus]bool{
	model.RoleAdmin: {
		model.ServiceStatusUnconfirmed: true,
		model.ServiceStatusConfirmed:   true,
	},
	model.RoleEmployee: {
		model.ServiceStatusUnconfirmed: true,
	},
}

// Phase places the service against the edit window. A confirmed service without
// a confirm date is treated as outside the window.
func (r *Resolver) Phase(svc ConsultedServiceSnapshot) ServicePhase {
	if svc.Status != model.ServiceStatusConfirmed {
		return PhaseUnconfirmed
	}
	if svc.ConfirmDate == nil {
		return PhaseOutsideWindow
	}
	if CalendarDaysBetween(*svc.ConfirmDate, r.now(), r.loc) <= r.editWindow {
		return PhaseWithinWindow
	}
	return PhaseOutsideWindow
}

func (r *Resolver) ConsultedServiceFieldPermissions(actor model.Actor, svc ConsultedServiceSnapshot) FieldPermissions {
	byPhase, ok := consultedFieldRules[actor.Role]
	if !ok {
		return fieldSet{}.expand(model.ConsultedServiceFields)
	}
	return byPhase[r.Phase(svc)].expand(model.ConsultedServiceFields)
}

func (r *Resolver) CanEditConsultedService(actor model.Actor, svc ConsultedServiceSnapshot) Decision {
	if _, ok := consultedFieldRules[actor.Role]; !ok {
		return deny("unknown role")
	}
	if len(r.ConsultedServiceFieldPermissions(actor, svc).Writable()) > 0 {
		return allow()
	}
	return deny(fmt.Sprintf("service confirmed more than %d days ago", r.editWindow))
}

func (r *Resolver) CanConfirmConsultedService(svc ConsultedServiceSnapshot) Decision {
	if svc.Status != model.ServiceStatusUnconfirmed {
		return deny("service is already confirmed")
	}
	return allow()
}

func (r *Resolver) CanDeleteConsultedService(actor model.Actor, svc ConsultedServiceSnapshot) Decision {
	if consultedDeleteRules[actor.Role][svc.Status] {
		return allow()
	}
	if svc.Status == model.ServiceStatusConfirmed {
		return deny("cannot delete a confirmed service")
	}
	return deny("unknown role")
}

// CanChangeStage lets the owning sale or an admin move the funnel stage. A
// service without a stage has not been claimed; the claim sets the first stage
// and nobody, admins included, can skip it.
func (r *Resolver) CanChangeStage(actor model.Actor, svc ConsultedServiceSnapshot) Decision {
	switch {
	case svc.Stage == nil:
		return deny("service has not been claimed")
	case actor.IsAdmin():
		return allow()
	case svc.ConsultingSaleID == nil:
		return deny("service has not been claimed")
	case actor.Is(svc.ConsultingSaleID):
		return allow()
	default:
		return deny("service is followed by another sale")
	}
}

type ConsultedServicePermissions struct {
	Phase       ServicePhase     `json:"phase"`
	Fields      FieldPermissions `json:"fields"`
	Edit        Decision         `json:"edit"`
	Confirm     Decision         `json:"confirm"`
	Delete      Decision         `json:"delete"`
	ChangeStage Decision         `json:"change_stage"`
}

func (r *Resolver) ConsultedService(actor model.Actor, svc ConsultedServiceSnapshot) ConsultedServicePermissions {
	return ConsultedServicePermissions{
		Phase:       r.Phase(svc),
		Fields:      r.ConsultedServiceFieldPermissions(actor, svc),
		Edit:        r.CanEditConsultedService(actor, svc),
		Confirm:     r.CanConfirmConsultedService(svc),
		Delete:      r.CanDeleteConsultedService(actor, svc),
		ChangeStage: r.CanChangeStage(actor, svc),
	}
}
