package consulted

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-backoffice/internal/handler"
	"github.com/jwalitptl/clinic-backoffice/internal/middleware"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	"github.com/jwalitptl/clinic-backoffice/internal/service/stage"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Get(ctx context.Context, id uuid.UUID) (*model.ConsultedService, error) {
	args := m.Called(ctx, id)
	svc, _ := args.Get(0).(*model.ConsultedService)
	return svc, args.Error(1)
}

func (m *mockService) Permissions(ctx context.Context, actor model.Actor, id uuid.UUID) (*permission.ConsultedServicePermissions, error) {
	args := m.Called(ctx, actor, id)
	p, _ := args.Get(0).(*permission.ConsultedServicePermissions)
	return p, args.Error(1)
}

func (m *mockService) UpdateFields(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateConsultedServiceRequest) (*model.UpdateResult[*model.ConsultedService], error) {
	args := m.Called(ctx, actor, id, req)
	res, _ := args.Get(0).(*model.UpdateResult[*model.ConsultedService])
	return res, args.Error(1)
}

func (m *mockService) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultedService, error) {
	args := m.Called(ctx, actor, id)
	svc, _ := args.Get(0).(*model.ConsultedService)
	return svc, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockService) Claim(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultedService, error) {
	args := m.Called(ctx, actor, id)
	svc, _ := args.Get(0).(*model.ConsultedService)
	return svc, args.Error(1)
}

func (m *mockService) ChangeStage(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ChangeStageRequest) (*model.StageHistoryEntry, error) {
	args := m.Called(ctx, actor, id, req)
	e, _ := args.Get(0).(*model.StageHistoryEntry)
	return e, args.Error(1)
}

func (m *mockService) StageHistory(ctx context.Context, id uuid.UUID) ([]*model.StageHistoryEntry, error) {
	args := m.Called(ctx, id)
	h, _ := args.Get(0).([]*model.StageHistoryEntry)
	return h, args.Error(1)
}

func (m *mockService) Reassign(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ReassignRequest) (*model.OwnershipChange, error) {
	args := m.Called(ctx, actor, id, req)
	ch, _ := args.Get(0).(*model.OwnershipChange)
	return ch, args.Error(1)
}

var actor = func() model.Actor {
	id := uuid.New()
	return model.Actor{Role: model.RoleEmployee, EmployeeID: &id}
}()

func setup(t *testing.T) (*gin.Engine, *mockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators(stage.DefaultTable()))

	svc := new(mockService)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		middleware.SetActor(c, actor)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api)
	return r, svc
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.Response {
	t.Helper()
	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestUpdateReportsIgnoredFields(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()
	res := &model.UpdateResult[*model.ConsultedService]{
		Record:  &model.ConsultedService{Base: model.Base{ID: id}},
		Applied: []string{model.FieldServiceNotes},
		Ignored: []string{model.FieldPreferentialPrice},
	}
	svc.On("UpdateFields", mock.Anything, actor, id, mock.MatchedBy(func(req *model.UpdateConsultedServiceRequest) bool {
		return req.Notes != nil && *req.Notes == "call back" && req.PreferentialPrice != nil
	})).Return(res, nil)

	w := do(r, http.MethodPatch, "/api/v1/consulted-services/"+id.String(), `{"notes":"call back","preferential_price":100}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "success", resp.Status)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{model.FieldPreferentialPrice}, data["ignored"])
}

func TestUpdateDenied(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()
	svc.On("UpdateFields", mock.Anything, actor, id, mock.Anything).
		Return(nil, apperrors.NewPermissionDenied("service confirmed more than 33 days ago"))

	w := do(r, http.MethodPatch, "/api/v1/consulted-services/"+id.String(), `{"notes":"x"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "service confirmed more than 33 days ago", decode(t, w).Message)
}

func TestUpdateRejectsInvalidBody(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()

	w := do(r, http.MethodPatch, "/api/v1/consulted-services/"+id.String(), `{"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/consulted-services/not-a-uuid", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStage(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()
	entry := &model.StageHistoryEntry{ConsultedServiceID: id, ToStage: model.Stage("LOST"), Reason: "price"}
	svc.On("ChangeStage", mock.Anything, actor, id, &model.ChangeStageRequest{Stage: "LOST", Reason: "price"}).Return(entry, nil)

	w := do(r, http.MethodPost, "/api/v1/consulted-services/"+id.String()+"/stage", `{"stage":"LOST","reason":"price"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestChangeStageErrors(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()

	w := do(r, http.MethodPost, "/api/v1/consulted-services/"+id.String()+"/stage", `{"stage":"ON_HOLD"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.On("ChangeStage", mock.Anything, actor, id, mock.Anything).Return(nil, apperrors.NewReasonRequired("LOST"))
	w = do(r, http.MethodPost, "/api/v1/consulted-services/"+id.String()+"/stage", `{"stage":"LOST"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestClaimConflict(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()
	owner := uuid.New().String()
	svc.On("Claim", mock.Anything, actor, id).Return(nil, apperrors.NewAlreadyClaimed(owner))

	w := do(r, http.MethodPost, "/api/v1/consulted-services/"+id.String()+"/claim", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, owner, decode(t, w).Details["consulting_sale_id"])
}

func TestDelete(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()
	svc.On("Delete", mock.Anything, actor, id).Return(nil)

	w := do(r, http.MethodDelete, "/api/v1/consulted-services/"+id.String(), "")

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPriceOutOfRange(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()
	svc.On("Confirm", mock.Anything, actor, id).Return(nil, apperrors.NewPriceOutOfRange("max", 500_000))

	w := do(r, http.MethodPost, "/api/v1/consulted-services/"+id.String()+"/confirm", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	details := decode(t, w).Details
	assert.Equal(t, "max", details["bound"])
	assert.Equal(t, float64(500_000), details["limit"])
}

func TestPermissions(t *testing.T) {
	r, svc := setup(t)
	id := uuid.New()
	perms := &permission.ConsultedServicePermissions{Phase: permission.PhaseUnconfirmed}
	svc.On("Permissions", mock.Anything, actor, id).Return(perms, nil)

	w := do(r, http.MethodGet, "/api/v1/consulted-services/"+id.String()+"/permissions", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReassignIsAdminGated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators(stage.DefaultTable()))
	auth := middleware.NewAuthMiddleware("secret", "")

	svc := new(mockService)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		middleware.SetActor(c, actor)
		c.Next()
	})
	NewHandler(svc, auth.RequireAdmin()).RegisterRoutes(api)

	id := uuid.New()
	w := do(r, http.MethodPost, "/api/v1/consulted-services/"+id.String()+"/reassign",
		`{"consulting_sale_id":"`+uuid.NewString()+`"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "Reassign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
