package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

func (r *paymentVoucherRepository) Get(ctx context.Context, id uuid.UUID) (*model.PaymentVoucher, error) {
	query := `
		SELECT id, customer_id, clinic_id, payment_date, cashier_id, payment_method, notes,
			created_at, created_by, updated_at, updated_by
		FROM payment_vouchers
		WHERE id = $1
	`
	var v model.PaymentVoucher
	if err := sqlx.GetContext(ctx, r.conn(ctx), &v, query, id); err != nil {
		return nil, notFound("payment voucher", err)
	}

	err := sqlx.SelectContext(ctx, r.conn(ctx), &v.Details, `
		SELECT id, voucher_id, consulted_service_id, amount
		FROM payment_details
		WHERE voucher_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment details: %w", err)
	}
	return &v, nil
}

func (r *paymentVoucherRepository) Update(ctx context.Context, v *model.PaymentVoucher) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE payment_vouchers
			SET payment_date = $1, cashier_id = $2, payment_method = $3, notes = $4,
				updated_at = $5, updated_by = $6
			WHERE id = $7
		`, v.PaymentDate, v.CashierID, v.PaymentMethod, v.Notes, v.UpdatedAt, v.UpdatedBy, v.ID)
		if err != nil {
			return fmt.Errorf("failed to update payment voucher: %w", err)
		}
		if err := expectRows("payment voucher", result); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM payment_details WHERE voucher_id = $1`, v.ID); err != nil {
			return fmt.Errorf("failed to clear payment details: %w", err)
		}
		for _, d := range v.Details {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO payment_details (id, voucher_id, consulted_service_id, amount)
				VALUES ($1, $2, $3, $4)
			`, d.ID, v.ID, d.ConsultedServiceID, d.Amount)
			if err != nil {
				return fmt.Errorf("failed to insert payment detail: %w", err)
			}
		}
		return nil
	})
}

func (r *paymentVoucherRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM payment_vouchers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment voucher: %w", err)
	}
	return expectRows("payment voucher", result)
}

func (r *paymentVoucherRepository) SumPaidForService(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.conn(ctx), &total, `
		SELECT COALESCE(SUM(amount), 0) FROM payment_details WHERE consulted_service_id = $1
	`, serviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total, nil
}
