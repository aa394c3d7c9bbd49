// Package pricing derives the monetary fields of a consulted service.
//
// Callers never set FinalPrice or Debt directly; they change the inputs and
// call Recompute before persisting.
package pricing

import (
	"time"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

const (
	BoundMin = "min"
	BoundMax = "max"
)

func FinalPrice(preferentialPrice int64, quantity int) int64 {
	return preferentialPrice * int64(quantity)
}

func Debt(finalPrice, amountPaid int64) int64 {
	return finalPrice - amountPaid
}

// ValidatePreferentialPrice accepts 0 (free of charge) or a value inside [minPrice, listPrice].
func ValidatePreferentialPrice(value, minPrice, listPrice int64) error {
	if value == 0 {
		return nil
	}
	if value < minPrice {
		return apperrors.NewPriceOutOfRange(BoundMin, minPrice)
	}
	if value > listPrice {
		return apperrors.NewPriceOutOfRange(BoundMax, listPrice)
	}
	return nil
}

func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return apperrors.NewBadRequest("quantity must be at least 1", nil)
	}
	return nil
}

// Validate checks the price inputs of svc against its catalog bounds.
func Validate(svc *model.ConsultedService) error {
	if err := ValidateQuantity(svc.Quantity); err != nil {
		return err
	}
	return ValidatePreferentialPrice(svc.PreferentialPrice, svc.MinPrice, svc.ListPrice)
}

// Recompute refreshes FinalPrice and Debt from the current inputs.
func Recompute(svc *model.ConsultedService) {
	svc.FinalPrice = FinalPrice(svc.PreferentialPrice, svc.Quantity)
	svc.Debt = Debt(svc.FinalPrice, svc.AmountPaid)
}

// CheckDebt rejects a service whose paid total exceeds its final price.
func CheckDebt(svc *model.ConsultedService) error {
	if svc.Debt >= 0 {
		return nil
	}
	err := apperrors.NewBadRequest("amount paid exceeds final price", nil)
	err.Details = map[string]interface{}{"final_price": svc.FinalPrice, "amount_paid": svc.AmountPaid}
	return err
}

// ApplyAmountPaid records a new paid total reported by the payment side and refreshes Debt.
func ApplyAmountPaid(svc *model.ConsultedService, amountPaid int64) {
	svc.AmountPaid = amountPaid
	Recompute(svc)
}

// Confirm flips svc to CONFIRMED and stamps the confirm date. It must only be
// called once; the permission resolver refuses a second confirm.
func Confirm(svc *model.ConsultedService, now time.Time) {
	svc.ServiceStatus = model.ServiceStatusConfirmed
	confirmed := now
	svc.ServiceConfirmDate = &confirmed
	Recompute(svc)
}
