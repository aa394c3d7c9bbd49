package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/repository"
	"github.com/jwalitptl/clinic-backoffice/pkg/logger"
)

type Service struct {
	repo repository.AuditRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo repository.AuditRepository, log *logger.Logger, clock func() time.Time) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, log: log, now: clock}
}

type LogOptions struct {
	ClinicID  *uuid.UUID
	Changes   interface{}
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, actor model.Actor, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	if opts == nil {
		opts = &LogOptions{}
	}

	var changes, metadata json.RawMessage
	var err error
	if opts.Changes != nil {
		if changes, err = json.Marshal(opts.Changes); err != nil {
			return err
		}
	}
	if opts.Metadata != nil {
		if metadata, err = json.Marshal(opts.Metadata); err != nil {
			return err
		}
	}

	ipAddress, userAgent := opts.IPAddress, opts.UserAgent
	if gc, ok := ctx.(*gin.Context); ok && ipAddress == "" {
		ipAddress = gc.ClientIP()
		userAgent = gc.GetHeader("User-Agent")
	}

	clinicID := opts.ClinicID
	if clinicID == nil {
		clinicID = actor.ClinicID
	}

	return s.repo.Create(ctx, &model.AuditLog{
		ID:         uuid.New(),
		UserID:     actor.AuditID(),
		ClinicID:   clinicID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Metadata:   metadata,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  s.now(),
	})
}

// Record is Log for writes that already committed: a failure is logged, not
// returned. A nil Service records nothing.
func (s *Service) Record(ctx context.Context, actor model.Actor, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	if s == nil {
		return
	}
	if err := s.Log(ctx, actor, action, entityType, entityID, opts); err != nil {
		s.log.Error(err, "failed to write audit log",
			"action", action, "entity_type", entityType, "entity_id", entityID.String())
	}
}
