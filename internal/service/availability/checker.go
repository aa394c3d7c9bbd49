// Package availability reports scheduling conflicts for a dentist.
//
// The check is advisory. It never blocks a booking and takes no lock;
// concurrent double bookings are resolved by people, not by this package.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
	"github.com/jwalitptl/clinic-backoffice/pkg/metrics"
)

// AppointmentLister reads a dentist's appointments overlapping [from, to).
type AppointmentLister interface {
	ListByDentist(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
}

type Checker struct {
	repo    AppointmentLister
	metrics *metrics.Metrics
}

func NewChecker(repo AppointmentLister, m *metrics.Metrics) *Checker {
	return &Checker{repo: repo, metrics: m}
}

// Check loads the dentist's commitments around the proposed interval and
// returns every overlap. excludeID drops the appointment being moved.
func (c *Checker) Check(ctx context.Context, dentistID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (*model.Availability, error) {
	if durationMinutes <= 0 {
		return nil, apperrors.NewBadRequest("duration must be positive", nil)
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	existing, err := c.repo.ListByDentist(ctx, dentistID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list dentist appointments: %w", err)
	}

	result := Evaluate(existing, dentistID, start, durationMinutes, excludeID)
	c.metrics.Availability(len(result.Conflicts))
	return result, nil
}

// CheckAppointment runs Check for every dentist assigned to apt, excluding apt itself.
func (c *Checker) CheckAppointment(ctx context.Context, apt *model.Appointment) ([]*model.Availability, error) {
	var results []*model.Availability
	for _, dentistID := range apt.Dentists() {
		id := apt.ID
		res, err := c.Check(ctx, dentistID, apt.AppointmentDateTime, apt.DurationMinutes, &id)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Evaluate is the pure part of Check over an already fetched appointment list.
func Evaluate(existing []*model.Appointment, dentistID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) *model.Availability {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	var hits []*model.Appointment
	for _, apt := range existing {
		if apt == nil || !apt.HasDentist(dentistID) {
			continue
		}
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		if apt.Status.DidNotHappen() {
			continue
		}
		if Overlaps(start, end, apt.AppointmentDateTime, apt.EndsAt()) {
			hits = append(hits, apt)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if !hits[i].AppointmentDateTime.Equal(hits[j].AppointmentDateTime) {
			return hits[i].AppointmentDateTime.Before(hits[j].AppointmentDateTime)
		}
		return hits[i].ID.String() < hits[j].ID.String()
	})

	conflicts := make([]model.Conflict, 0, len(hits))
	for _, apt := range hits {
		conflicts = append(conflicts, model.Conflict{
			AppointmentID:       apt.ID,
			AppointmentDateTime: apt.AppointmentDateTime,
			DurationMinutes:     apt.DurationMinutes,
			CustomerName:        apt.CustomerName,
		})
	}

	return &model.Availability{
		DentistID: dentistID,
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}
}

// Overlaps is half-open interval overlap: back-to-back intervals do not collide.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Warnings renders conflicts as display strings for a non-blocking warning.
func Warnings(results []*model.Availability, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	var out []string
	for _, res := range results {
		for _, c := range res.Conflicts {
			out = append(out, fmt.Sprintf("dentist %s is booked %s-%s for %s",
				res.DentistID,
				c.AppointmentDateTime.In(loc).Format("2006-01-02 15:04"),
				c.AppointmentDateTime.Add(time.Duration(c.DurationMinutes)*time.Minute).In(loc).Format("15:04"),
				c.CustomerName,
			))
		}
	}
	return out
}
