package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

const consultedServiceColumns = `
	id, customer_id, clinic_id, dental_service_id, service_name, tooth_positions,
	list_price, min_price, preferential_price, quantity, final_price, amount_paid, debt,
	service_status, service_confirm_date, stage, treatment_status,
	consulting_sale_id, consulting_doctor_id, treating_doctor_id,
	specific_status, source, source_note, notes,
	created_at, created_by, updated_at, updated_by`

func (r *consultedServiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConsultedService, error) {
	query := `SELECT` + consultedServiceColumns + ` FROM consulted_services WHERE id = $1`
	var svc model.ConsultedService
	if err := sqlx.GetContext(ctx, r.conn(ctx), &svc, query, id); err != nil {
		return nil, notFound("consulted service", err)
	}
	return &svc, nil
}

// Update writes the editable, pricing and confirmation columns. Ownership and
// stage only move through Claim, Reassign and AppendStageTransition.
func (r *consultedServiceRepository) Update(ctx context.Context, svc *model.ConsultedService) error {
	query := `
		UPDATE consulted_services
		SET tooth_positions = $1, preferential_price = $2, quantity = $3, final_price = $4,
			amount_paid = $5, debt = $6, service_status = $7, service_confirm_date = $8,
			consulting_doctor_id = $9, treating_doctor_id = $10, specific_status = $11,
			source = $12, source_note = $13, notes = $14, updated_at = $15, updated_by = $16
		WHERE id = $17
	`
	result, err := r.GetDB().ExecContext(ctx, query,
		svc.ToothPositions,
		svc.PreferentialPrice,
		svc.Quantity,
		svc.FinalPrice,
		svc.AmountPaid,
		svc.Debt,
		svc.ServiceStatus,
		svc.ServiceConfirmDate,
		svc.ConsultingDoctorID,
		svc.TreatingDoctorID,
		svc.SpecificStatus,
		svc.Source,
		svc.SourceNote,
		svc.Notes,
		svc.UpdatedAt,
		svc.UpdatedBy,
		svc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consulted service: %w", err)
	}
	return expectRows("consulted service", result)
}

func (r *consultedServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM consulted_services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete consulted service: %w", err)
	}
	return expectRows("consulted service", result)
}

// Claim relies on the consulting_sale_id IS NULL predicate so that of two
// concurrent claims exactly one updates the row.
func (r *consultedServiceRepository) Claim(ctx context.Context, id, saleID uuid.UUID, entry *model.StageHistoryEntry) error {
	var toStage *model.Stage
	now := time.Now()
	if entry != nil {
		toStage = &entry.ToStage
		now = entry.ChangedAt
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE consulted_services
			SET consulting_sale_id = $1, stage = COALESCE($2, stage), updated_at = $3, updated_by = $1
			WHERE id = $4 AND consulting_sale_id IS NULL
		`, saleID, toStage, now, id)
		if err != nil {
			return fmt.Errorf("failed to claim consulted service: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			owner, err := currentOwner(ctx, tx, id)
			if err != nil {
				return err
			}
			return apperrors.NewAlreadyClaimed(ownerString(owner))
		}
		if entry != nil {
			return insertStageHistory(ctx, tx, entry)
		}
		return nil
	})
}

// AppendStageTransition only moves the stage if it still equals the entry's
// from stage, so a concurrent change makes the edge stale instead of silently
// overwriting it.
func (r *consultedServiceRepository) AppendStageTransition(ctx context.Context, entry *model.StageHistoryEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE consulted_services
			SET stage = $1, updated_at = $2, updated_by = $3
			WHERE id = $4 AND stage IS NOT DISTINCT FROM $5
		`, entry.ToStage, entry.ChangedAt, entry.ChangedBy, entry.ConsultedServiceID, entry.FromStage)
		if err != nil {
			return fmt.Errorf("failed to update stage: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			if _, err := currentOwner(ctx, tx, entry.ConsultedServiceID); err != nil {
				return err
			}
			return apperrors.NewInvalidTransition(model.StageName(entry.FromStage), entry.ToStage.String())
		}
		return insertStageHistory(ctx, tx, entry)
	})
}

func (r *consultedServiceRepository) ListStageHistory(ctx context.Context, id uuid.UUID) ([]*model.StageHistoryEntry, error) {
	query := `
		SELECT id, consulted_service_id, from_stage, to_stage, reason, changed_by, changed_at
		FROM stage_history
		WHERE consulted_service_id = $1
		ORDER BY changed_at ASC, id ASC
	`
	var entries []*model.StageHistoryEntry
	if err := r.GetDB().SelectContext(ctx, &entries, query, id); err != nil {
		return nil, fmt.Errorf("failed to list stage history: %w", err)
	}
	return entries, nil
}

func (r *consultedServiceRepository) Reassign(ctx context.Context, change *model.OwnershipChange) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE consulted_services
			SET consulting_sale_id = $1, updated_at = $2, updated_by = $3
			WHERE id = $4 AND consulting_sale_id IS NOT DISTINCT FROM $5
		`, change.ToSaleID, change.ChangedAt, change.ChangedBy, change.ConsultedServiceID, change.FromSaleID)
		if err != nil {
			return fmt.Errorf("failed to reassign consulted service: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			if _, err := currentOwner(ctx, tx, change.ConsultedServiceID); err != nil {
				return err
			}
			return apperrors.NewBadRequest("service ownership changed concurrently", nil)
		}
		return nil
	})
}

func (r *consultedServiceRepository) UpdateAmountPaid(ctx context.Context, id uuid.UUID, amountPaid, debt int64) error {
	result, err := r.conn(ctx).ExecContext(ctx, `
		UPDATE consulted_services SET amount_paid = $1, debt = $2 WHERE id = $3
	`, amountPaid, debt, id)
	if err != nil {
		return fmt.Errorf("failed to update amount paid: %w", err)
	}
	return expectRows("consulted service", result)
}

func currentOwner(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*uuid.UUID, error) {
	var owner *uuid.UUID
	err := tx.GetContext(ctx, &owner, `SELECT consulting_sale_id FROM consulted_services WHERE id = $1`, id)
	if err != nil {
		return nil, notFound("consulted service", err)
	}
	return owner, nil
}

func insertStageHistory(ctx context.Context, tx *sqlx.Tx, entry *model.StageHistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stage_history (id, consulted_service_id, from_stage, to_stage, reason, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.ConsultedServiceID, entry.FromStage, entry.ToStage, entry.Reason, entry.ChangedBy, entry.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stage history: %w", err)
	}
	return nil
}

func ownerString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
