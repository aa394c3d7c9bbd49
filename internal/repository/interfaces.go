package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

// All repository interfaces in one file
type (
	// Transactor runs fn inside one database transaction. Repository calls made
	// with the ctx passed to fn join that transaction; an error from fn rolls
	// all of them back.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	ConsultedServiceRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.ConsultedService, error)
		Update(ctx context.Context, svc *model.ConsultedService) error
		Delete(ctx context.Context, id uuid.UUID) error
		// Claim sets the consulting sale only while the service is unclaimed and
		// writes the optional history entry in the same transaction. It returns
		// an AlreadyClaimed error when another claim won.
		Claim(ctx context.Context, id, saleID uuid.UUID, entry *model.StageHistoryEntry) error
		// AppendStageTransition moves the stage and appends the history entry atomically.
		AppendStageTransition(ctx context.Context, entry *model.StageHistoryEntry) error
		ListStageHistory(ctx context.Context, id uuid.UUID) ([]*model.StageHistoryEntry, error)
		Reassign(ctx context.Context, change *model.OwnershipChange) error
		UpdateAmountPaid(ctx context.Context, id uuid.UUID, amountPaid, debt int64) error
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, apt *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		// ListByDentist returns appointments where the dentist is primary or
		// secondary and that start before to and end after from. Cancelled and
		// no-show appointments are left out.
		ListByDentist(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
	}

	PaymentVoucherRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.PaymentVoucher, error)
		// Update rewrites the voucher row and replaces its details.
		Update(ctx context.Context, v *model.PaymentVoucher) error
		Delete(ctx context.Context, id uuid.UUID) error
		SumPaidForService(ctx context.Context, serviceID uuid.UUID) (int64, error)
	}

	CatalogRepository interface {
		RequiresFollowUp(ctx context.Context, dentalServiceID uuid.UUID) (bool, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
	}
)
