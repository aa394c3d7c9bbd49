package consulted

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/handler"
	"github.com/jwalitptl/clinic-backoffice/internal/middleware"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*model.ConsultedService, error)
	Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.ConsultedServicePermissions, error)
	UpdateFields(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateConsultedServiceRequest) (*model.UpdateResult[*model.ConsultedService], error)
	Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultedService, error)
	Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error
	Claim(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultedService, error)
	ChangeStage(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ChangeStageRequest) (*model.StageHistoryEntry, error)
	StageHistory(ctx context.Context, id uuid.UUID) ([]*model.StageHistoryEntry, error)
	Reassign(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ReassignRequest) (*model.OwnershipChange, error)
}

type Handler struct {
	service   Service
	adminOnly []gin.HandlerFunc
}

// NewHandler builds the handler. adminOnly guards ownership reassignment; the
// service enforces the same rule.
func NewHandler(service Service, adminOnly ...gin.HandlerFunc) *Handler {
	return &Handler{service: service, adminOnly: adminOnly}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	services := r.Group("/consulted-services")
	{
		services.GET("/:id", h.Get)
		services.PATCH("/:id", h.Update)
		services.DELETE("/:id", h.Delete)
		services.GET("/:id/permissions", h.Permissions)
		services.GET("/:id/stage-history", h.StageHistory)
		services.POST("/:id/confirm", h.Confirm)
		services.POST("/:id/claim", h.Claim)
		services.POST("/:id/stage", h.ChangeStage)
		services.POST("/:id/reassign", append(h.adminOnly, h.Reassign)...)
	}
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	svc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, svc)
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

func (h *Handler) Update(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req model.UpdateConsultedServiceRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.service.UpdateFields(c.Request.Context(), actor, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, res)
}

func (h *Handler) Confirm(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	svc, err := h.service.Confirm(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, svc)
}

func (h *Handler) Delete(c *gin.Context) {
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

func (h *Handler) Claim(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	svc, err := h.service.Claim(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, svc)
}

func (h *Handler) ChangeStage(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req model.ChangeStageRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	entry, err := h.service.ChangeStage(c.Request.Context(), actor, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(entry))
}

func (h *Handler) StageHistory(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	history, err := h.service.StageHistory(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, history)
}

func (h *Handler) Reassign(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req model.ReassignRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	change, err := h.service.Reassign(c.Request.Context(), actor, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, change)
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
