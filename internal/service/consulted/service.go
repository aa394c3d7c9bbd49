package consulted

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/repository"
	"github.com/jwalitptl/clinic-backoffice/internal/service/audit"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	"github.com/jwalitptl/clinic-backoffice/internal/service/pricing"
	"github.com/jwalitptl/clinic-backoffice/internal/service/stage"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
	"github.com/jwalitptl/clinic-backoffice/pkg/messaging"
	"github.com/jwalitptl/clinic-backoffice/pkg/metrics"
)

const entity = model.AuditEntityConsultedService

type Service struct {
	repo     repository.ConsultedServiceRepository
	catalog  repository.CatalogRepository
	resolver *permission.Resolver
	engine   *stage.Engine
	auditor  *audit.Service
	events   *messaging.Publisher
	metrics  *metrics.Metrics
}

func NewService(
	repo repository.ConsultedServiceRepository,
	catalog repository.CatalogRepository,
	resolver *permission.Resolver,
	engine *stage.Engine,
	auditor *audit.Service,
	events *messaging.Publisher,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		resolver: resolver,
		engine:   engine,
		auditor:  auditor,
		events:   events,
		metrics:  m,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ConsultedService, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.ConsultedServicePermissions, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	perms := s.resolver.ConsultedService(actor, permission.ConsultedServiceSnapshotOf(svc))
	return &perms, nil
}

// UpdateFields writes the subset of requested fields the actor may edit.
// Unauthorized fields are dropped and reported; pricing totals are recomputed
// before the write.
func (s *Service) UpdateFields(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateConsultedServiceRequest) (*model.UpdateResult[*model.ConsultedService], error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	snap := permission.ConsultedServiceSnapshotOf(svc)
	edit := s.resolver.CanEditConsultedService(actor, snap)
	filtered, err := permission.Filter(s.resolver.ConsultedServiceFieldPermissions(actor, snap), req.Fields(), edit.Reason)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrPermissionDenied {
			s.metrics.Denied(entity, "edit")
		}
		return nil, err
	}
	s.metrics.Dropped(entity, len(filtered.Ignored))

	req.ApplyTo(svc, filtered.Applied)
	if touchesPrice(filtered.Applied) {
		if err := pricing.Validate(svc); err != nil {
			return nil, err
		}
	}
	pricing.Recompute(svc)
	if err := pricing.CheckDebt(svc); err != nil {
		return nil, err
	}
	svc.Touch(actor, s.resolver.Now())

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionUpdate, entity, svc.ID, &audit.LogOptions{
		ClinicID: &svc.ClinicID,
		Changes:  map[string]interface{}{"applied": filtered.Applied, "ignored": filtered.Ignored},
	})

	return &model.UpdateResult[*model.ConsultedService]{
		Record:  svc,
		Applied: filtered.Applied,
		Ignored: filtered.Ignored,
	}, nil
}

func (s *Service) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultedService, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(s.resolver.CanConfirmConsultedService(permission.ConsultedServiceSnapshotOf(svc)), "confirm"); err != nil {
		return nil, err
	}
	if err := pricing.Validate(svc); err != nil {
		return nil, err
	}

	now := s.resolver.Now()
	pricing.Confirm(svc, now)
	svc.Touch(actor, now)
	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionConfirm, entity, svc.ID, &audit.LogOptions{ClinicID: &svc.ClinicID})
	s.events.Publish(ctx, messaging.Event{
		Type:       messaging.EventServiceConfirmed,
		EntityID:   svc.ID,
		ActorID:    actor.AuditID(),
		OccurredAt: now,
		Payload:    map[string]interface{}{"final_price": svc.FinalPrice},
	})
	return svc, nil
}

func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(s.resolver.CanDeleteConsultedService(actor, permission.ConsultedServiceSnapshotOf(svc)), "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Record(ctx, actor, model.AuditActionDelete, entity, svc.ID, &audit.LogOptions{
		ClinicID: &svc.ClinicID,
		Metadata: map[string]interface{}{"confirmed": svc.IsConfirmed(), "final_price": svc.FinalPrice},
	})
	return nil
}

// Claim makes the calling employee the service's follow-up sale.
func (s *Service) Claim(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultedService, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	requires, err := s.catalog.RequiresFollowUp(ctx, svc.DentalServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog follow-up flag: %w", err)
	}

	claim, err := s.engine.Claim(svc, requires, actor)
	if err != nil {
		s.metrics.Transition("claim_rejected")
		return nil, err
	}
	if err := s.repo.Claim(ctx, svc.ID, claim.SaleID, claim.Entry); err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrAlreadyClaimed {
			s.metrics.Transition("claim_rejected")
		}
		return nil, err
	}
	s.metrics.Transition("claimed")

	saleID := claim.SaleID
	svc.ConsultingSaleID = &saleID
	if claim.Entry != nil {
		to := claim.Entry.ToStage
		svc.Stage = &to
	}

	s.events.Publish(ctx, messaging.Event{
		Type:     messaging.EventServiceClaimed,
		EntityID: svc.ID,
		ActorID:  actor.AuditID(),
		Payload:  map[string]interface{}{"stage": model.StageName(svc.Stage)},
	})
	return svc, nil
}

func (s *Service) ChangeStage(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ChangeStageRequest) (*model.StageHistoryEntry, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(s.resolver.CanChangeStage(actor, permission.ConsultedServiceSnapshotOf(svc)), "change_stage"); err != nil {
		return nil, err
	}

	entry, err := s.engine.Transition(svc.ID, svc.Stage, req.Stage, req.Reason, actor)
	if err != nil {
		s.metrics.Transition(transitionResult(err))
		return nil, err
	}
	if err := s.repo.AppendStageTransition(ctx, entry); err != nil {
		s.metrics.Transition(transitionResult(err))
		return nil, err
	}
	s.metrics.Transition("ok")

	s.events.Publish(ctx, messaging.Event{
		Type:       messaging.EventStageChanged,
		EntityID:   svc.ID,
		ActorID:    actor.AuditID(),
		OccurredAt: entry.ChangedAt,
		Payload:    entry,
	})
	return entry, nil
}

func (s *Service) StageHistory(ctx context.Context, id uuid.UUID) ([]*model.StageHistoryEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListStageHistory(ctx, id)
}

func (s *Service) Reassign(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ReassignRequest) (*model.OwnershipChange, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	change, err := s.engine.Reassign(svc, req.ConsultingSaleID, actor)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrPermissionDenied {
			s.metrics.Denied(entity, "reassign")
		}
		return nil, err
	}
	if err := s.repo.Reassign(ctx, change); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionReassign, entity, svc.ID, &audit.LogOptions{
		ClinicID: &svc.ClinicID,
		Changes:  change,
	})
	s.events.Publish(ctx, messaging.Event{
		Type:       messaging.EventOwnershipReassigned,
		EntityID:   svc.ID,
		ActorID:    actor.AuditID(),
		OccurredAt: change.ChangedAt,
		Payload:    change,
	})
	return change, nil
}

// SyncAmountPaid stores a new paid total and the debt derived from it.
func (s *Service) SyncAmountPaid(ctx context.Context, id uuid.UUID, amountPaid int64) (*model.ConsultedService, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pricing.ApplyAmountPaid(svc, amountPaid)
	if err := pricing.CheckDebt(svc); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAmountPaid(ctx, svc.ID, svc.AmountPaid, svc.Debt); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) check(d permission.Decision, action string) error {
	if d.Allowed {
		return nil
	}
	s.metrics.Denied(entity, action)
	return d.Err()
}

func touchesPrice(fields []string) bool {
	for _, f := range fields {
		if f == model.FieldPreferentialPrice || f == model.FieldQuantity {
			return true
		}
	}
	return false
}

func transitionResult(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrInvalidTransition:
		return "invalid"
	case apperrors.ErrReasonRequired:
		return "reason_required"
	default:
		return "error"
	}
}
