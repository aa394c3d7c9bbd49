package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/clinic-backoffice/internal/middleware"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.VoucherPermissions, error) {
	args := m.Called(ctx, actor, id)
	p, _ := args.Get(0).(*permission.VoucherPermissions)
	return p, args.Error(1)
}

func (m *mockService) UpdateVoucher(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdatePaymentVoucherRequest) (*model.UpdateResult[*model.PaymentVoucher], error) {
	args := m.Called(ctx, actor, id, req)
	res, _ := args.Get(0).(*model.UpdateResult[*model.PaymentVoucher])
	return res, args.Error(1)
}

func (m *mockService) DeleteVoucher(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func setup(withActor bool) (*gin.Engine, *mockService, model.Actor) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()
	actor := model.Actor{Role: model.RoleEmployee, EmployeeID: &id}

	svc := new(mockService)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		if withActor {
			middleware.SetActor(c, actor)
		}
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api)
	return r, svc, actor
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateVoucher(t *testing.T) {
	r, svc, actor := setup(true)
	id := uuid.New()
	res := &model.UpdateResult[*model.PaymentVoucher]{
		Record:  &model.PaymentVoucher{Base: model.Base{ID: id}},
		Applied: []string{model.FieldVoucherNotes},
	}
	svc.On("UpdateVoucher", mock.Anything, actor, id, mock.Anything).Return(res, nil)

	w := do(r, http.MethodPatch, "/api/v1/payment-vouchers/"+id.String(), `{"notes":"cash counted twice"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteVoucherDenied(t *testing.T) {
	r, svc, actor := setup(true)
	id := uuid.New()
	svc.On("DeleteVoucher", mock.Anything, actor, id).Return(apperrors.NewPermissionDenied("voucher is in the past"))

	w := do(r, http.MethodDelete, "/api/v1/payment-vouchers/"+id.String(), "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "voucher is in the past")
}

func TestMissingActor(t *testing.T) {
	r, svc, _ := setup(false)

	w := do(r, http.MethodGet, "/api/v1/payment-vouchers/"+uuid.New().String()+"/permissions", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "Permissions", mock.Anything, mock.Anything, mock.Anything)
}
