package permission

import (
	"time"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

type VoucherSnapshot struct {
	PaymentDate time.Time
}

func VoucherSnapshotOf(v *model.PaymentVoucher) VoucherSnapshot {
	return VoucherSnapshot{PaymentDate: v.PaymentDate}
}

var voucherAllFields = fields(model.PaymentVoucherFields...)

var voucherFieldRules = map[model.Role]map[Timeline]fieldSet{
	model.RoleAdmin: {
		Past:   voucherAllFields,
		Today:  voucherAllFields,
		Future: voucherAllFields,
	},
	model.RoleEmployee: {
		Past:   {},
		Today:  fields(model.FieldPaymentMethod, model.FieldVoucherNotes),
		Future: {},
	},
}

var voucherDenyReasons = map[Timeline]string{
	Past:   "voucher is in the past",
	Future: "voucher is not dated today",
}

func (r *Resolver) VoucherFieldPermissions(actor model.Actor, v VoucherSnapshot) FieldPermissions {
	byTimeline, ok := voucherFieldRules[actor.Role]
	if !ok {
		return fieldSet{}.expand(model.PaymentVoucherFields)
	}
	return byTimeline[r.timeline(v.PaymentDate)].expand(model.PaymentVoucherFields)
}

func (r *Resolver) CanEditVoucher(actor model.Actor, v VoucherSnapshot) Decision {
	if _, ok := voucherFieldRules[actor.Role]; !ok {
		return deny("unknown role")
	}
	if len(r.VoucherFieldPermissions(actor, v).Writable()) > 0 {
		return allow()
	}
	return deny(voucherDenyReasons[r.timeline(v.PaymentDate)])
}

// CanDeleteVoucher follows the edit rule: non-admins only remove vouchers dated today.
func (r *Resolver) CanDeleteVoucher(actor model.Actor, v VoucherSnapshot) Decision {
	return r.CanEditVoucher(actor, v)
}

type VoucherPermissions struct {
	Timeline Timeline         `json:"timeline"`
	Fields   FieldPermissions `json:"fields"`
	Edit     Decision         `json:"edit"`
	Delete   Decision         `json:"delete"`
}

func (r *Resolver) Voucher(actor model.Actor, v VoucherSnapshot) VoucherPermissions {
	return VoucherPermissions{
		Timeline: r.timeline(v.PaymentDate),
		Fields:   r.VoucherFieldPermissions(actor, v),
		Edit:     r.CanEditVoucher(actor, v),
		Delete:   r.CanDeleteVoucher(actor, v),
	}
}
