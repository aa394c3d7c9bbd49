// Package stage validates sales-stage changes on consulted services and
// produces the history entries callers append.
package stage

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

type Engine struct {
	table *Table
	now   func() time.Time
}

func NewEngine(table *Table, clock func() time.Time) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{table: table, now: clock}
}

func (e *Engine) Table() *Table {
	return e.table
}

// Transition validates current -> requested and returns the entry to append.
// The engine does not touch the service; the caller must persist the entry and
// the new denormalized stage atomically.
func (e *Engine) Transition(serviceID uuid.UUID, current *model.Stage, requested model.Stage, reason string, actor model.Actor) (*model.StageHistoryEntry, error) {
	if !e.table.Allowed(current, requested) {
		return nil, apperrors.NewInvalidTransition(model.StageName(current), requested.String())
	}

	reason = strings.TrimSpace(reason)
	if requested == e.table.Lost() && reason == "" {
		return nil, apperrors.NewReasonRequired(requested.String())
	}

	return e.entry(serviceID, current, requested, reason, actor), nil
}

// Claim is the outcome of an employee taking ownership of an unowned service.
type Claim struct {
	SaleID uuid.UUID
	// Entry is nil when the service already carries a stage.
	Entry *model.StageHistoryEntry
}

// Claim assigns follow-up ownership to the calling employee. It is the only path
// from no stage to the table's initial stage.
func (e *Engine) Claim(svc *model.ConsultedService, requiresFollowUp bool, actor model.Actor) (*Claim, error) {
	if actor.EmployeeID == nil {
		return nil, apperrors.NewPermissionDenied("only employees can claim a service")
	}
	if svc.ConsultingSaleID != nil {
		return nil, apperrors.NewAlreadyClaimed(svc.ConsultingSaleID.String())
	}
	if !requiresFollowUp {
		return nil, apperrors.NewPermissionDenied("service does not require follow-up")
	}

	claim := &Claim{SaleID: *actor.EmployeeID}
	if svc.Stage == nil {
		claim.Entry = e.entry(svc.ID, nil, e.table.Initial(), "", actor)
	}
	return claim, nil
}

// Reassign moves ownership of a claimed service to another sale. It is
// independent of the stage graph and yields no history entry.
func (e *Engine) Reassign(svc *model.ConsultedService, toSaleID uuid.UUID, actor model.Actor) (*model.OwnershipChange, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can reassign a claimed service")
	}
	if svc.ConsultingSaleID == nil {
		return nil, apperrors.NewBadRequest("service has not been claimed", nil)
	}
	if *svc.ConsultingSaleID == toSaleID {
		return nil, apperrors.NewBadRequest("service is already owned by this sale", nil)
	}

	from := *svc.ConsultingSaleID
	return &model.OwnershipChange{
		ConsultedServiceID: svc.ID,
		FromSaleID:         &from,
		ToSaleID:           toSaleID,
		ChangedBy:          actor.AuditID(),
		ChangedAt:          e.now(),
	}, nil
}

func (e *Engine) entry(serviceID uuid.UUID, from *model.Stage, to model.Stage, reason string, actor model.Actor) *model.StageHistoryEntry {
	var fromCopy *model.Stage
	if from != nil {
		f := *from
		fromCopy = &f
	}
	return &model.StageHistoryEntry{
		ID:                 uuid.New(),
		ConsultedServiceID: serviceID,
		FromStage:          fromCopy,
		ToStage:            to,
		Reason:             reason,
		ChangedBy:          actor.AuditID(),
		ChangedAt:          e.now(),
	}
}
