package payment

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
	Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.VoucherPermissions, error)
	UpdateVoucher(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdatePaymentVoucherRequest) (*model.UpdateResult[*model.PaymentVoucher], error)
	DeleteVoucher(ctx context.Context, actor model.Actor, id uuid.UUID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	vouchers := r.Group("/payment-vouchers")
	{
		vouchers.PATCH("/:id", h.UpdateVoucher)
		vouchers.DELETE("/:id", h.DeleteVoucher)
		vouchers.GET("/:id/permissions", h.Permissions)
	}
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

func (h *Handler) UpdateVoucher(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req model.UpdatePaymentVoucherRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.service.UpdateVoucher(c.Request.Context(), actor, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, res)
}

func (h *Handler) DeleteVoucher(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteVoucher(c.Request.Context(), actor, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
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
