package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/repository"
	"github.com/jwalitptl/clinic-backoffice/internal/service/audit"
	"github.com/jwalitptl/clinic-backoffice/internal/service/availability"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
	"github.com/jwalitptl/clinic-backoffice/pkg/logger"
	"github.com/jwalitptl/clinic-backoffice/pkg/messaging"
	"github.com/jwalitptl/clinic-backoffice/pkg/metrics"
)

const entity = model.AuditEntityAppointment

type Service struct {
	repo     repository.AppointmentRepository
	checker  *availability.Checker
	resolver *permission.Resolver
	auditor  *audit.Service
	events   *messaging.Publisher
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	checker *availability.Checker,
	resolver *permission.Resolver,
	auditor *audit.Service,
	events *messaging.Publisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		checker:  checker,
		resolver: resolver,
		auditor:  auditor,
		events:   events,
		metrics:  m,
		log:      log,
	}
}

func (s *Service) Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.AppointmentPermissions, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	perms := s.resolver.Appointment(actor, permission.AppointmentSnapshotOf(apt))
	return &perms, nil
}

// Update writes the permitted subset of the requested fields. When the move
// touches the schedule, dentist conflicts come back as warnings; they never
// block the write.
func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.UpdateResult[*model.Appointment], error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	snap := permission.AppointmentSnapshotOf(apt)
	edit := s.resolver.CanEditAppointment(actor, snap)
	filtered, err := permission.Filter(s.resolver.AppointmentFieldPermissions(actor, snap), req.Fields(), edit.Reason)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrPermissionDenied {
			s.metrics.Denied(entity, "edit")
		}
		return nil, err
	}
	s.metrics.Dropped(entity, len(filtered.Ignored))

	req.ApplyTo(apt, filtered.Applied)
	if !apt.Status.IsValid() {
		return nil, apperrors.NewBadRequest("invalid appointment status", nil)
	}
	if apt.DurationMinutes <= 0 {
		return nil, apperrors.NewBadRequest("duration must be positive", nil)
	}
	if !apt.VisitTimesOrdered() {
		return nil, apperrors.NewBadRequest("check-out time requires an earlier check-in time", nil)
	}

	var warnings []string
	if model.TouchesSchedule(filtered.Applied) {
		warnings = s.conflictWarnings(ctx, apt)
	}

	apt.Touch(actor, s.resolver.Now())
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionUpdate, entity, apt.ID, &audit.LogOptions{
		ClinicID: &apt.ClinicID,
		Changes:  map[string]interface{}{"applied": filtered.Applied, "ignored": filtered.Ignored},
	})

	return &model.UpdateResult[*model.Appointment]{
		Record:   apt,
		Applied:  filtered.Applied,
		Ignored:  filtered.Ignored,
		Warnings: warnings,
	}, nil
}

func (s *Service) conflictWarnings(ctx context.Context, apt *model.Appointment) []string {
	results, err := s.checker.CheckAppointment(ctx, apt)
	if err != nil {
		s.log.Warn("availability check failed, saving without conflict warnings",
			"appointment_id", apt.ID.String(), "error", err.Error())
		return nil
	}
	return availability.Warnings(results, s.resolver.Location())
}

func (s *Service) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(s.resolver.CanConfirmAppointment(permission.AppointmentSnapshotOf(apt)), "confirm"); err != nil {
		return nil, err
	}

	apt.Status = model.AppointmentStatusConfirmed
	return s.save(ctx, actor, apt, messaging.EventAppointmentConfirmed)
}

// CheckIn stamps the arrival time. Walk-ins keep their status, anyone else
// becomes Arrived.
func (s *Service) CheckIn(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(s.resolver.CanCheckIn(permission.AppointmentSnapshotOf(apt)), "check_in"); err != nil {
		return nil, err
	}

	now := s.resolver.Now()
	apt.CheckInTime = &now
	if apt.Status != model.AppointmentStatusWalkIn {
		apt.Status = model.AppointmentStatusArrived
	}
	return s.save(ctx, actor, apt, messaging.EventCheckedIn)
}

func (s *Service) CheckOut(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(s.resolver.CanCheckOut(permission.AppointmentSnapshotOf(apt)), "check_out"); err != nil {
		return nil, err
	}

	now := s.resolver.Now()
	if now.Before(*apt.CheckInTime) {
		now = *apt.CheckInTime
	}
	apt.CheckOutTime = &now
	return s.save(ctx, actor, apt, messaging.EventCheckedOut)
}

func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(s.resolver.CanDeleteAppointment(actor, permission.AppointmentSnapshotOf(apt)), "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Record(ctx, actor, model.AuditActionDelete, entity, apt.ID, &audit.LogOptions{
		ClinicID: &apt.ClinicID,
		Metadata: map[string]interface{}{
			"appointment_date_time": apt.AppointmentDateTime,
			"checked_in":            apt.CheckInTime != nil,
		},
	})
	return nil
}

func (s *Service) CheckAvailability(ctx context.Context, dentistID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (*model.Availability, error) {
	return s.checker.Check(ctx, dentistID, start, durationMinutes, excludeID)
}

func (s *Service) save(ctx context.Context, actor model.Actor, apt *model.Appointment, eventType string) (*model.Appointment, error) {
	now := s.resolver.Now()
	apt.Touch(actor, now)
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	s.events.Publish(ctx, messaging.Event{
		Type:       eventType,
		EntityID:   apt.ID,
		ActorID:    actor.AuditID(),
		OccurredAt: now,
		Payload:    map[string]interface{}{"status": apt.Status},
	})
	return apt, nil
}

func (s *Service) check(d permission.Decision, action string) error {
	if d.Allowed {
		return nil
	}
	s.metrics.Denied(entity, action)
	return d.Err()
}
