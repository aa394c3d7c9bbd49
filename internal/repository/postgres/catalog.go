package postgres

import (
	"context"

	"github.com/google/uuid"
)

func (r *catalogRepository) RequiresFollowUp(ctx context.Context, dentalServiceID uuid.UUID) (bool, error) {
	var requires bool
	err := r.db.GetContext(ctx, &requires,
		`SELECT requires_follow_up FROM dental_services WHERE id = $1`, dentalServiceID)
	if err != nil {
		return false, notFound("dental service", err)
	}
	return requires, nil
}
