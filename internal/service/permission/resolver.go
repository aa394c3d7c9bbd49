// Package permission decides, per actor and entity snapshot, which fields may
// be written and which lifecycle actions are allowed. It is shared by
// appointments, consulted services and payment vouchers.
//
// Every rule lives in a lookup table keyed by role and timeline or phase so the
// tables can be audited on their own. The resolver holds no state besides its
// configuration; identical inputs always give identical decisions.
package permission

import "time"

const DefaultEditWindowDays = 33

type Config struct {
	// Location is the calendar used for Past/Today/Future.
	Location *time.Location
	// EditWindowDays is how many calendar days after confirmation non-admins
	// keep personnel-assignment edit rights on a consulted service.
	EditWindowDays int
	Clock          func() time.Time
}

type Resolver struct {
	loc        *time.Location
	editWindow int
	now        func() time.Time
}

func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		loc:        cfg.Location,
		editWindow: cfg.EditWindowDays,
		now:        cfg.Clock,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.editWindow <= 0 {
		r.editWindow = DefaultEditWindowDays
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) EditWindowDays() int {
	return r.editWindow
}

// Now is the resolver's clock, shared with callers that stamp dates.
func (r *Resolver) Now() time.Time {
	return r.now()
}

func (r *Resolver) timeline(date time.Time) Timeline {
	return Classify(date, r.now(), r.loc)
}
