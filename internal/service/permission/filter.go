package permission

import (
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

// FilterResult splits a request's fields into those that will be written and
// those dropped for lack of permission.
type FilterResult struct {
	Applied []string `json:"applied"`
	Ignored []string `json:"ignored,omitempty"`
}

// Filter keeps the requested fields the actor may write. Dropping some fields is
// not an error; the request fails only when nothing remains, with denyReason as
// the message when one is known.
func Filter(perms FieldPermissions, requested []string, denyReason string) (FilterResult, error) {
	if len(requested) == 0 {
		return FilterResult{}, apperrors.NewBadRequest("no fields to update", nil)
	}

	res := FilterResult{Applied: []string{}}
	seen := make(map[string]struct{}, len(requested))
	for _, f := range requested {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		if perms.Allowed(f) {
			res.Applied = append(res.Applied, f)
		} else {
			res.Ignored = append(res.Ignored, f)
		}
	}

	if len(res.Applied) == 0 {
		if denyReason == "" {
			denyReason = "none of the requested fields can be edited"
		}
		return res, apperrors.NewPermissionDenied(denyReason)
	}
	return res, nil
}
