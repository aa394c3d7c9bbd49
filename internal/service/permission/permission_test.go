package permission

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

var (
	ict      = time.FixedZone("ICT", 7*3600)
	fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, ict)
	clinicA  = uuid.New()
	clinicB  = uuid.New()
)

func newResolver() *Resolver {
	return NewResolver(Config{
		Location:       ict,
		EditWindowDays: 33,
		Clock:          func() time.Time { return fixedNow },
	})
}

func employeeAt(clinic uuid.UUID) model.Actor {
	id := uuid.New()
	return model.Actor{Role: model.RoleEmployee, EmployeeID: &id, ClinicID: &clinic}
}

func admin() model.Actor {
	id := uuid.New()
	return model.Actor{Role: model.RoleAdmin, EmployeeID: &id}
}

func daysAgo(n int) *time.Time {
	t := fixedNow.AddDate(0, 0, -n)
	return &t
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want Timeline
	}{
		{"yesterday late evening", time.Date(2024, 3, 14, 23, 59, 0, 0, ict), Past},
		{"today at midnight", time.Date(2024, 3, 15, 0, 0, 0, 0, ict), Today},
		{"today late evening", time.Date(2024, 3, 15, 23, 59, 0, 0, ict), Today},
		{"tomorrow", time.Date(2024, 3, 16, 0, 0, 0, 0, ict), Future},
		// 2024-03-14 18:00 UTC is already 2024-03-15 01:00 in ICT.
		{"read in clinic timezone", time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC), Today},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.date, fixedNow, ict))
		})
	}
}

func TestCalendarDaysBetween(t *testing.T) {
	late := time.Date(2024, 3, 14, 23, 0, 0, 0, ict)
	early := time.Date(2024, 3, 15, 1, 0, 0, 0, ict)

	assert.Equal(t, 1, CalendarDaysBetween(late, early, ict))
	assert.Equal(t, 0, CalendarDaysBetween(early, fixedNow, ict))
	assert.Equal(t, 40, CalendarDaysBetween(*daysAgo(40), fixedNow, ict))
}

func TestConsultedServiceOutsideWindow(t *testing.T) {
	r := newResolver()
	svc := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed, ConfirmDate: daysAgo(40)}
	actor := employeeAt(clinicA)

	perms := r.ConsultedServiceFieldPermissions(actor, svc)
	for _, f := range model.ConsultedServiceFields {
		assert.False(t, perms[f], f)
	}
	assert.Equal(t,
		Decision{Allowed: false, Reason: "service confirmed more than 33 days ago"},
		r.CanEditConsultedService(actor, svc))
}

func TestConsultedServiceWithinWindowAllowsPersonnelOnly(t *testing.T) {
	r := newResolver()
	svc := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed, ConfirmDate: daysAgo(10)}

	perms := r.ConsultedServiceFieldPermissions(employeeAt(clinicA), svc)

	assert.Equal(t, []string{
		model.FieldConsultingDoctorID,
		model.FieldSource,
		model.FieldSourceNote,
		model.FieldSpecificStatus,
		model.FieldTreatingDoctorID,
	}, perms.Writable())
	assert.False(t, perms[model.FieldPreferentialPrice])
	assert.False(t, perms[model.FieldQuantity])
	assert.False(t, perms[model.FieldToothPositions])
	assert.True(t, r.CanEditConsultedService(employeeAt(clinicA), svc).Allowed)
}

func TestConsultedServiceWindowBoundary(t *testing.T) {
	r := newResolver()

	edge := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed, ConfirmDate: daysAgo(33)}
	assert.Equal(t, PhaseWithinWindow, r.Phase(edge))

	past := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed, ConfirmDate: daysAgo(34)}
	assert.Equal(t, PhaseOutsideWindow, r.Phase(past))

	missing := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed}
	assert.Equal(t, PhaseOutsideWindow, r.Phase(missing))
}

func TestConsultedServiceWindowIsConfigurable(t *testing.T) {
	r := NewResolver(Config{Location: ict, EditWindowDays: 7, Clock: func() time.Time { return fixedNow }})
	svc := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed, ConfirmDate: daysAgo(10)}

	d := r.CanEditConsultedService(employeeAt(clinicA), svc)

	assert.Equal(t, "service confirmed more than 7 days ago", d.Reason)
}

func TestConsultedServiceUnconfirmedAndAdmin(t *testing.T) {
	r := newResolver()
	unconfirmed := ConsultedServiceSnapshot{Status: model.ServiceStatusUnconfirmed}
	old := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed, ConfirmDate: daysAgo(400)}

	assert.ElementsMatch(t, model.ConsultedServiceFields, r.ConsultedServiceFieldPermissions(employeeAt(clinicA), unconfirmed).Writable())
	assert.ElementsMatch(t, model.ConsultedServiceFields, r.ConsultedServiceFieldPermissions(admin(), old).Writable())
	assert.True(t, r.CanEditConsultedService(admin(), old).Allowed)
}

func TestConsultedServiceConfirmAndDelete(t *testing.T) {
	r := newResolver()
	unconfirmed := ConsultedServiceSnapshot{Status: model.ServiceStatusUnconfirmed}
	confirmed := ConsultedServiceSnapshot{Status: model.ServiceStatusConfirmed, ConfirmDate: daysAgo(1)}

	assert.True(t, r.CanConfirmConsultedService(unconfirmed).Allowed)
	assert.Equal(t, "service is already confirmed", r.CanConfirmConsultedService(confirmed).Reason)

	assert.True(t, r.CanDeleteConsultedService(employeeAt(clinicA), unconfirmed).Allowed)
	assert.Equal(t,
		Decision{Allowed: false, Reason: "cannot delete a confirmed service"},
		r.CanDeleteConsultedService(employeeAt(clinicA), confirmed))
	assert.True(t, r.CanDeleteConsultedService(admin(), confirmed).Allowed)
}

func TestCanChangeStage(t *testing.T) {
	r := newResolver()
	owner := employeeAt(clinicA)
	stage := model.Stage("qualifying")

	owned := ConsultedServiceSnapshot{ConsultingSaleID: owner.EmployeeID, Stage: &stage}
	unclaimed := ConsultedServiceSnapshot{}

	assert.True(t, r.CanChangeStage(owner, owned).Allowed)
	assert.True(t, r.CanChangeStage(admin(), owned).Allowed)
	assert.Equal(t, "service is followed by another sale", r.CanChangeStage(employeeAt(clinicA), owned).Reason)
	assert.Equal(t, "service has not been claimed", r.CanChangeStage(owner, unclaimed).Reason)
}

func TestAdminCannotSetFirstStage(t *testing.T) {
	r := newResolver()
	stageless := ConsultedServiceSnapshot{}

	d := r.CanChangeStage(admin(), stageless)
	assert.False(t, d.Allowed)
	assert.Equal(t, "service has not been claimed", d.Reason)

	assigned := employeeAt(clinicA)
	d = r.CanChangeStage(admin(), ConsultedServiceSnapshot{ConsultingSaleID: assigned.EmployeeID})
	assert.False(t, d.Allowed)
}

func appointmentOn(day int, clinic uuid.UUID) AppointmentSnapshot {
	return AppointmentSnapshot{
		ClinicID: clinic,
		DateTime: time.Date(2024, 3, day, 14, 0, 0, 0, ict),
		Status:   model.AppointmentStatusPending,
	}
}

func TestAppointmentEditInThePast(t *testing.T) {
	r := newResolver()
	yesterday := appointmentOn(14, clinicA)

	assert.Equal(t,
		Decision{Allowed: false, Reason: "appointment is in the past"},
		r.CanEditAppointment(employeeAt(clinicA), yesterday))
	assert.Equal(t, Decision{Allowed: true}, r.CanEditAppointment(admin(), yesterday))
}

func TestAppointmentEditRules(t *testing.T) {
	r := newResolver()
	tests := []struct {
		name   string
		actor  model.Actor
		apt    AppointmentSnapshot
		want   bool
		reason string
	}{
		{"employee today", employeeAt(clinicA), appointmentOn(15, clinicA), true, ""},
		{"employee future", employeeAt(clinicA), appointmentOn(20, clinicA), true, ""},
		{"employee other clinic", employeeAt(clinicB), appointmentOn(20, clinicA), false, "appointment belongs to another clinic"},
		{"admin other clinic past", admin(), appointmentOn(1, clinicB), true, ""},
		{"unknown role", model.Actor{Role: "guest"}, appointmentOn(20, clinicA), false, "unknown role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.CanEditAppointment(tt.actor, tt.apt)
			assert.Equal(t, tt.want, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestAppointmentDelete(t *testing.T) {
	r := newResolver()
	checkedIn := appointmentOn(15, clinicA)
	at := fixedNow.Add(-time.Hour)
	checkedIn.CheckInTime = &at

	assert.Equal(t, "cannot delete a checked-in appointment", r.CanDeleteAppointment(employeeAt(clinicA), checkedIn).Reason)
	assert.True(t, r.CanDeleteAppointment(admin(), checkedIn).Allowed)
	assert.Equal(t, "appointment is in the past", r.CanDeleteAppointment(employeeAt(clinicA), appointmentOn(10, clinicA)).Reason)
	assert.True(t, r.CanDeleteAppointment(employeeAt(clinicA), appointmentOn(16, clinicA)).Allowed)
}

func TestAppointmentCheckIn(t *testing.T) {
	r := newResolver()
	at := fixedNow

	cancelled := appointmentOn(15, clinicA)
	cancelled.Status = model.AppointmentStatusCancelled
	noShow := appointmentOn(15, clinicA)
	noShow.Status = model.AppointmentStatusNoShow
	already := appointmentOn(15, clinicA)
	already.CheckInTime = &at

	assert.True(t, r.CanCheckIn(appointmentOn(15, clinicA)).Allowed)
	assert.False(t, r.CanCheckIn(appointmentOn(16, clinicA)).Allowed)
	assert.False(t, r.CanCheckIn(appointmentOn(14, clinicA)).Allowed)
	assert.Equal(t, "appointment is cancelled", r.CanCheckIn(cancelled).Reason)
	assert.Equal(t, "appointment was marked as no-show", r.CanCheckIn(noShow).Reason)
	assert.Equal(t, "appointment is already checked in", r.CanCheckIn(already).Reason)
}

func TestAppointmentCheckOut(t *testing.T) {
	r := newResolver()
	at := fixedNow
	apt := appointmentOn(15, clinicA)

	assert.False(t, r.CanCheckOut(apt).Allowed)

	apt.CheckInTime = &at
	assert.True(t, r.CanCheckOut(apt).Allowed)

	apt.CheckOutTime = &at
	assert.Equal(t, "appointment is already checked out", r.CanCheckOut(apt).Reason)
}

func TestAppointmentConfirm(t *testing.T) {
	r := newResolver()
	confirmed := appointmentOn(20, clinicA)
	confirmed.Status = model.AppointmentStatusConfirmed

	assert.True(t, r.CanConfirmAppointment(appointmentOn(20, clinicA)).Allowed)
	assert.False(t, r.CanConfirmAppointment(appointmentOn(15, clinicA)).Allowed)
	assert.False(t, r.CanConfirmAppointment(appointmentOn(10, clinicA)).Allowed)
	assert.False(t, r.CanConfirmAppointment(confirmed).Allowed)
}

func TestAppointmentFieldPermissions(t *testing.T) {
	r := newResolver()

	today := r.AppointmentFieldPermissions(employeeAt(clinicA), appointmentOn(15, clinicA))
	assert.True(t, today[model.FieldDateTime])
	assert.True(t, today[model.FieldNotes])
	assert.False(t, today[model.FieldCheckInTime])
	assert.False(t, today[model.FieldCheckOutTime])
	assert.False(t, today.Allowed("unknownField"))
	assert.Len(t, today, len(model.AppointmentFields))

	past := r.AppointmentFieldPermissions(employeeAt(clinicA), appointmentOn(14, clinicA))
	assert.Empty(t, past.Writable())

	adminPast := r.AppointmentFieldPermissions(admin(), appointmentOn(1, clinicB))
	assert.ElementsMatch(t, model.AppointmentFields, adminPast.Writable())
}

func TestAppointmentDecisionsAreDeterministic(t *testing.T) {
	r := newResolver()
	actor := employeeAt(clinicA)
	apt := appointmentOn(15, clinicA)

	assert.Equal(t, r.Appointment(actor, apt), r.Appointment(actor, apt))
	assert.Equal(t, Today, r.Appointment(actor, apt).Timeline)
}

func TestVoucherRules(t *testing.T) {
	r := newResolver()
	today := VoucherSnapshot{PaymentDate: time.Date(2024, 3, 15, 8, 0, 0, 0, ict)}
	past := VoucherSnapshot{PaymentDate: time.Date(2024, 3, 10, 8, 0, 0, 0, ict)}
	future := VoucherSnapshot{PaymentDate: time.Date(2024, 3, 18, 8, 0, 0, 0, ict)}
	emp := employeeAt(clinicA)

	assert.Equal(t,
		[]string{model.FieldVoucherNotes, model.FieldPaymentMethod},
		r.VoucherFieldPermissions(emp, today).Writable())
	assert.Empty(t, r.VoucherFieldPermissions(emp, past).Writable())
	assert.Equal(t, "voucher is in the past", r.CanEditVoucher(emp, past).Reason)
	assert.Equal(t, "voucher is not dated today", r.CanDeleteVoucher(emp, future).Reason)
	assert.True(t, r.CanDeleteVoucher(emp, today).Allowed)

	assert.ElementsMatch(t, model.PaymentVoucherFields, r.VoucherFieldPermissions(admin(), past).Writable())
	assert.True(t, r.CanEditVoucher(admin(), past).Allowed)
}

func TestFilterDropsUnauthorizedFields(t *testing.T) {
	perms := FieldPermissions{model.FieldNotes: true, model.FieldDateTime: false}

	res, err := Filter(perms, []string{model.FieldNotes, model.FieldDateTime, "bogus", model.FieldNotes}, "")

	require.NoError(t, err)
	assert.Equal(t, []string{model.FieldNotes}, res.Applied)
	assert.Equal(t, []string{model.FieldDateTime, "bogus"}, res.Ignored)
}

func TestFilterRejectsWhenNothingRemains(t *testing.T) {
	perms := FieldPermissions{model.FieldNotes: false}

	res, err := Filter(perms, []string{model.FieldNotes}, "appointment is in the past")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "appointment is in the past")
	assert.Empty(t, res.Applied)
	assert.Equal(t, []string{model.FieldNotes}, res.Ignored)
}

func TestFilterEmptyRequest(t *testing.T) {
	_, err := Filter(FieldPermissions{}, nil, "")

	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, allow().Err())
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.CodeOf(deny("nope").Err()))
}
