package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
}

// Touch stamps the update audit fields.
func (b *Base) Touch(actor Actor, now time.Time) {
	b.UpdatedAt = now
	b.UpdatedBy = actor.EmployeeID
}

// UpdateResult reports which requested fields were written and which were dropped.
type UpdateResult[T any] struct {
	Record   T        `json:"record"`
	Applied  []string `json:"applied"`
	Ignored  []string `json:"ignored,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
