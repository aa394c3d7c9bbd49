// Package payment gates voucher edits and keeps the paid totals of the
// consulted services a voucher pays for in step with its details.
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/repository"
	"github.com/jwalitptl/clinic-backoffice/internal/service/audit"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
	"github.com/jwalitptl/clinic-backoffice/pkg/metrics"
)

const entity = model.AuditEntityPaymentVoucher

// AmountSyncer stores a recomputed paid total on a consulted service.
type AmountSyncer interface {
	SyncAmountPaid(ctx context.Context, id uuid.UUID, amountPaid int64) (*model.ConsultedService, error)
}

type Service struct {
	repo     repository.PaymentVoucherRepository
	services AmountSyncer
	tx       repository.Transactor
	resolver *permission.Resolver
	auditor  *audit.Service
	metrics  *metrics.Metrics
}

func NewService(repo repository.PaymentVoucherRepository, services AmountSyncer, tx repository.Transactor, resolver *permission.Resolver, auditor *audit.Service, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		services: services,
		tx:       tx,
		resolver: resolver,
		auditor:  auditor,
		metrics:  m,
	}
}

func (s *Service) Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.VoucherPermissions, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	perms := s.resolver.Voucher(actor, permission.VoucherSnapshotOf(v))
	return &perms, nil
}

func (s *Service) UpdateVoucher(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdatePaymentVoucherRequest) (*model.UpdateResult[*model.PaymentVoucher], error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	snap := permission.VoucherSnapshotOf(v)
	edit := s.resolver.CanEditVoucher(actor, snap)
	filtered, err := permission.Filter(s.resolver.VoucherFieldPermissions(actor, snap), req.Fields(), edit.Reason)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrPermissionDenied {
			s.metrics.Denied(entity, "edit")
		}
		return nil, err
	}
	s.metrics.Dropped(entity, len(filtered.Ignored))

	before := v.ServiceIDs()
	req.ApplyTo(v, filtered.Applied)
	if !v.PaymentMethod.IsValid() {
		return nil, apperrors.NewBadRequest("invalid payment method", nil)
	}

	v.Touch(actor, s.resolver.Now())
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, v); err != nil {
			return err
		}
		return s.resync(ctx, union(before, v.ServiceIDs()))
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionUpdate, entity, v.ID, &audit.LogOptions{
		ClinicID: &v.ClinicID,
		Changes:  map[string]interface{}{"applied": filtered.Applied, "ignored": filtered.Ignored},
	})

	return &model.UpdateResult[*model.PaymentVoucher]{
		Record:  v,
		Applied: filtered.Applied,
		Ignored: filtered.Ignored,
	}, nil
}

func (s *Service) DeleteVoucher(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if d := s.resolver.CanDeleteVoucher(actor, permission.VoucherSnapshotOf(v)); !d.Allowed {
		s.metrics.Denied(entity, "delete")
		return d.Err()
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.resync(ctx, v.ServiceIDs())
	})
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, actor, model.AuditActionDelete, entity, v.ID, &audit.LogOptions{
		ClinicID: &v.ClinicID,
		Metadata: map[string]interface{}{"details": v.Details},
	})
	return nil
}

// resync recomputes amountPaid from the stored details. It runs in the same
// transaction as the voucher write, so a rejected total undoes the write too.
func (s *Service) resync(ctx context.Context, serviceIDs []uuid.UUID) error {
	for _, sid := range serviceIDs {
		total, err := s.repo.SumPaidForService(ctx, sid)
		if err != nil {
			return err
		}
		if _, err := s.services.SyncAmountPaid(ctx, sid, total); err != nil {
			return fmt.Errorf("failed to sync amount paid for %s: %w", sid, err)
		}
	}
	return nil
}

func union(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(a)+len(b))
	var out []uuid.UUID
	for _, list := range [][]uuid.UUID{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
