package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleetrent/internal/common"
	"fleetrent/internal/models"
	"fleetrent/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) ApplyPayment(ctx context.Context, input *services.ApplyPaymentInput) (*models.Payment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentService) VoidPayment(ctx context.Context, paymentID, actor uuid.UUID, reason *string) error {
	args := m.Called(ctx, paymentID, actor, reason)
	return args.Error(0)
}

func (m *mockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentService) ListPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]*models.Payment), args.Error(1)
}

// voidContext builds an authenticated request context for POST
// /payments/:id/void with the given role claim.
func voidContext(actor uuid.UUID, role string, paymentID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments/"+paymentID.String()+"/void", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	ctx := context.WithValue(req.Context(), common.ActorIDKey, actor)
	if role != "" {
		ctx = context.WithValue(ctx, common.ActorRoleKey, role)
	}
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(paymentID.String())
	return c, rec
}

func TestVoidPayment_RoleRequired(t *testing.T) {
	svc := &mockPaymentService{}
	svc.Test(t)
	h := NewPaymentHandlers(svc)

	c, rec := voidContext(uuid.New(), common.RoleStaff, uuid.New())
	assert.NoError(t, h.VoidPayment(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No VoidPayment expectation was set up; the service must not be hit.
	svc.AssertExpectations(t)
}

func TestVoidPayment_ManagerAllowed(t *testing.T) {
	svc := &mockPaymentService{}
	svc.Test(t)
	h := NewPaymentHandlers(svc)

	actor := uuid.New()
	paymentID := uuid.New()
	svc.On("VoidPayment", mock.Anything, paymentID, actor, (*string)(nil)).Return(nil)

	c, rec := voidContext(actor, common.RoleManager, paymentID)
	assert.NoError(t, h.VoidPayment(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestVoidPayment_MissingRoleClaimForbidden(t *testing.T) {
	svc := &mockPaymentService{}
	svc.Test(t)
	h := NewPaymentHandlers(svc)

	c, rec := voidContext(uuid.New(), "", uuid.New())
	assert.NoError(t, h.VoidPayment(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}
