package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

type Response struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

// Error writes err with the status its code maps to and attaches it to the
// context for the request logger. Anything that is not an AppError is a 500
// and its text is not sent to the client.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		resp := NewErrorResponse("validation failed")
		resp.Details = fields
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternal(err)
	}

	status := appErr.StatusCode()
	resp := NewErrorResponse(appErr.Message)
	if status < http.StatusInternalServerError {
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(status, resp)
}

// BindJSON decodes and validates the request body, writing a 400 on failure.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			Error(c, err)
		} else {
			Error(c, apperrors.NewBadRequest("invalid request body", err))
		}
		return false
	}
	return true
}

// ParamID parses the named path parameter as a uuid, writing a 400 on failure.
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Error(c, apperrors.NewBadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}
