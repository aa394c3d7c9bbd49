package permission

import (
	"sort"

	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

// Decision is the outcome of one lifecycle check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err returns nil for an allowed decision and a PermissionDenied error carrying
// the reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.NewPermissionDenied(d.Reason)
}

// FieldPermissions maps field names to writability. Unknown fields are not writable.
type FieldPermissions map[string]bool

func (p FieldPermissions) Allowed(field string) bool {
	return p[field]
}

// Writable returns the sorted writable field names.
func (p FieldPermissions) Writable() []string {
	var out []string
	for f, ok := range p {
		if ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

type fieldSet map[string]struct{}

func fields(names ...string) fieldSet {
	s := make(fieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// expand renders a set over the full field list, false for everything not in the set.
func (s fieldSet) expand(all []string) FieldPermissions {
	out := make(FieldPermissions, len(all))
	for _, f := range all {
		_, ok := s[f]
		out[f] = ok
	}
	return out
}
