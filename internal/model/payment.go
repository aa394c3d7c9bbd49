package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// Payment-voucher field names used by field permissions and update requests.
const (
	FieldAmounts       = "amounts"
	FieldPaymentMethod = "paymentMethod"
	FieldCashier       = "cashier"
	FieldPaymentDate   = "paymentDate"
	FieldVoucherNotes  = "notes"
)

var PaymentVoucherFields = []string{
	FieldAmounts,
	FieldPaymentMethod,
	FieldCashier,
	FieldPaymentDate,
	FieldVoucherNotes,
}

// PaymentDetail allocates part of a voucher to one consulted service.
type PaymentDetail struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	VoucherID          uuid.UUID `db:"voucher_id" json:"voucher_id"`
	ConsultedServiceID uuid.UUID `db:"consulted_service_id" json:"consulted_service_id"`
	Amount             int64     `db:"amount" json:"amount"`
}

type PaymentVoucher struct {
	Base
	CustomerID    uuid.UUID       `db:"customer_id" json:"customer_id"`
	ClinicID      uuid.UUID       `db:"clinic_id" json:"clinic_id"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
	CashierID     uuid.UUID       `db:"cashier_id" json:"cashier_id"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
	Details       []PaymentDetail `db:"-" json:"details"`
}

// ServiceIDs returns the distinct consulted services the voucher pays for.
func (v *PaymentVoucher) ServiceIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(v.Details))
	var ids []uuid.UUID
	for _, d := range v.Details {
		if _, ok := seen[d.ConsultedServiceID]; ok {
			continue
		}
		seen[d.ConsultedServiceID] = struct{}{}
		ids = append(ids, d.ConsultedServiceID)
	}
	return ids
}

type DetailAmount struct {
	ConsultedServiceID uuid.UUID `json:"consulted_service_id" validate:"required"`
	Amount             int64     `json:"amount" validate:"min=0"`
}

type UpdatePaymentVoucherRequest struct {
	Amounts       *[]DetailAmount `json:"amounts" validate:"omitempty,dive"`
	PaymentMethod *PaymentMethod  `json:"payment_method"`
	CashierID     *uuid.UUID      `json:"cashier_id"`
	PaymentDate   *time.Time      `json:"payment_date"`
	Notes         *string         `json:"notes" validate:"omitempty,max=1000"`
}

func (r *UpdatePaymentVoucherRequest) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(r.Amounts != nil, FieldAmounts)
	add(r.PaymentMethod != nil, FieldPaymentMethod)
	add(r.CashierID != nil, FieldCashier)
	add(r.PaymentDate != nil, FieldPaymentDate)
	add(r.Notes != nil, FieldVoucherNotes)
	return fields
}

// ApplyTo copies the listed fields of the request onto v. Amounts replace the
// details wholesale.
func (r *UpdatePaymentVoucherRequest) ApplyTo(v *PaymentVoucher, fields []string) {
	for _, f := range fields {
		switch f {
		case FieldAmounts:
			details := make([]PaymentDetail, 0, len(*r.Amounts))
			for _, a := range *r.Amounts {
				details = append(details, PaymentDetail{
					ID:                 uuid.New(),
					VoucherID:          v.ID,
					ConsultedServiceID: a.ConsultedServiceID,
					Amount:             a.Amount,
				})
			}
			v.Details = details
		case FieldPaymentMethod:
			v.PaymentMethod = *r.PaymentMethod
		case FieldCashier:
			v.CashierID = *r.CashierID
		case FieldPaymentDate:
			v.PaymentDate = *r.PaymentDate
		case FieldVoucherNotes:
			v.Notes = *r.Notes
		}
	}
}
