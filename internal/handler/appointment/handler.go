package appointment

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/handler"
	"github.com/jwalitptl/clinic-backoffice/internal/middleware"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

type Service interface {
	Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.AppointmentPermissions, error)
	Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.UpdateResult[*model.Appointment], error)
	Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	CheckIn(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	CheckOut(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error
	CheckAvailability(ctx context.Context, dentistID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (*model.Availability, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.PATCH("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
		appointments.GET("/:id/permissions", h.Permissions)
		appointments.POST("/:id/confirm", h.lifecycle(h.service.Confirm))
		appointments.POST("/:id/check-in", h.lifecycle(h.service.CheckIn))
		appointments.POST("/:id/check-out", h.lifecycle(h.service.CheckOut))
	}
	r.GET("/availability", h.CheckAvailability)
}

func (h *Handler) Permissions(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	perms, err := h.service.Permissions(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, perms)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, res)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type transition func(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)

// lifecycle adapts confirm, check-in and check-out, which share a shape.
func (h *Handler) lifecycle(fn transition) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, id, ok := actorAndID(c)
		if !ok {
			return
		}
		apt, err := fn(c.Request.Context(), actor, id)
		if err != nil {
			handler.Error(c, err)
			return
		}
		handler.Success(c, apt)
	}
}

type availabilityQuery struct {
	DentistID string    `form:"dentist_id" validate:"required,uuid"`
	Start     time.Time `form:"start" validate:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Duration  int       `form:"duration" validate:"required,min=5,max=480"`
	ExcludeID string    `form:"exclude_id" validate:"omitempty,uuid"`
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.Error(c, apperrors.NewBadRequest("invalid availability query", err))
		return
	}

	dentistID, err := uuid.Parse(q.DentistID)
	if err != nil {
		handler.Error(c, apperrors.NewBadRequest("invalid dentist_id", err))
		return
	}
	var exclude *uuid.UUID
	if q.ExcludeID != "" {
		id, err := uuid.Parse(q.ExcludeID)
		if err != nil {
			handler.Error(c, apperrors.NewBadRequest("invalid exclude_id", err))
			return
		}
		exclude = &id
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), dentistID, q.Start, q.Duration, exclude)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, result)
}

func actorAndID(c *gin.Context) (model.Actor, uuid.UUID, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return model.Actor{}, uuid.Nil, false
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return model.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}
