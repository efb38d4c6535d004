package services

import (
	"context"
	"time"

	"fleetrent/internal/events"
	"fleetrent/internal/models"
	"fleetrent/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockPromotionRepository struct {
	mock.Mock
}

func (m *MockPromotionRepository) WithTx(q repositories.Querier) repositories.PromotionRepository {
	return m
}

func (m *MockPromotionRepository) Create(ctx context.Context, promo *models.Promotion) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

func (m *MockPromotionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) GetByCode(ctx context.Context, code string) (*models.Promotion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) Update(ctx context.Context, promo *models.Promotion) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

func (m *MockPromotionRepository) List(ctx context.Context, limit, offset int) ([]*models.Promotion, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) ConsumeUsage(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPromotionRepository) ReleaseUsage(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockRentalOrderRepository struct {
	mock.Mock
}

func (m *MockRentalOrderRepository) WithTx(q repositories.Querier) repositories.RentalOrderRepository {
	return m
}

func (m *MockRentalOrderRepository) Create(ctx context.Context, order *models.RentalOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockRentalOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalOrder), args.Error(1)
}

func (m *MockRentalOrderRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalOrder), args.Error(1)
}

func (m *MockRentalOrderRepository) Update(ctx context.Context, order *models.RentalOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockRentalOrderRepository) UpdateStatus(ctx context.Context, order *models.RentalOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockRentalOrderRepository) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockRentalOrderRepository) List(ctx context.Context, limit, offset int) ([]*models.RentalOrder, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.RentalOrder), args.Error(1)
}

func (m *MockRentalOrderRepository) AdvancedSearch(ctx context.Context, filter *models.RentalOrderSearchFilter) ([]*models.RentalOrder, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.RentalOrder), args.Error(1)
}

func (m *MockRentalOrderRepository) VehicleHasActiveOrder(ctx context.Context, vehicleID uuid.UUID, excludeOrderID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, vehicleID, excludeOrderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRentalOrderRepository) GenerateOrderNumber(ctx context.Context, orderDate time.Time) (string, error) {
	args := m.Called(ctx, orderDate)
	return args.String(0), args.Error(1)
}

type MockRentalStatusHistoryRepository struct {
	mock.Mock
}

func (m *MockRentalStatusHistoryRepository) WithTx(q repositories.Querier) repositories.RentalStatusHistoryRepository {
	return m
}

func (m *MockRentalStatusHistoryRepository) Append(ctx context.Context, entry *models.RentalStatusHistory) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRentalStatusHistoryRepository) ListByOrder(ctx context.Context, rentalOrderID uuid.UUID) ([]*models.RentalStatusHistory, error) {
	args := m.Called(ctx, rentalOrderID)
	return args.Get(0).([]*models.RentalStatusHistory), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) WithTx(q repositories.Querier) repositories.InvoiceRepository {
	return m
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetByRentalOrderID(ctx context.Context, rentalOrderID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, rentalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateBalance(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time) error {
	args := m.Called(ctx, id, dueDate)
	return args.Error(0)
}

func (m *MockInvoiceRepository) List(ctx context.Context, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) CreateDetail(ctx context.Context, detail *models.InvoiceDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ListDetails(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceDetail, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]*models.InvoiceDetail), args.Error(1)
}

func (m *MockInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, invoiceDate time.Time) (string, error) {
	args := m.Called(ctx, invoiceDate)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepository) ReceivablesSummary(ctx context.Context) (*models.ReceivablesSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReceivablesSummary), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) WithTx(q repositories.Querier) repositories.PaymentRepository {
	return m
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkVoided(ctx context.Context, id uuid.UUID, voidedAt time.Time) error {
	args := m.Called(ctx, id, voidedAt)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GeneratePaymentNumber(ctx context.Context, paymentDate time.Time) (string, error) {
	args := m.Called(ctx, paymentDate)
	return args.String(0), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerRepository) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Customer), args.Error(1)
}

type MockVehicleService struct {
	mock.Mock
}

func (m *MockVehicleService) GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleService) ListVehicles(ctx context.Context, status *string, limit, offset int) ([]*models.Vehicle, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Vehicle), args.Error(1)
}

func (m *MockVehicleService) ListVehicleHistory(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*models.VehicleStatusHistory, error) {
	args := m.Called(ctx, vehicleID, limit, offset)
	return args.Get(0).([]*models.VehicleStatusHistory), args.Error(1)
}

func (m *MockVehicleService) MarkRented(ctx context.Context, q repositories.Querier, vehicleID, rentalOrderID, actor uuid.UUID) (*events.VehicleStatusChanged, error) {
	args := m.Called(ctx, q, vehicleID, rentalOrderID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*events.VehicleStatusChanged), args.Error(1)
}

func (m *MockVehicleService) MarkReturned(ctx context.Context, q repositories.Querier, vehicleID, rentalOrderID, actor uuid.UUID) (*events.VehicleStatusChanged, error) {
	args := m.Called(ctx, q, vehicleID, rentalOrderID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*events.VehicleStatusChanged), args.Error(1)
}

type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) Validate(ctx context.Context, code string, subTotal float64, rentalStart, rentalEnd time.Time, asOf time.Time) (*PromotionValidation, error) {
	args := m.Called(ctx, code, subTotal, rentalStart, rentalEnd, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PromotionValidation), args.Error(1)
}

func (m *MockPromotionService) Consume(ctx context.Context, q repositories.Querier, promotionID uuid.UUID) error {
	args := m.Called(ctx, q, promotionID)
	return args.Error(0)
}

func (m *MockPromotionService) Release(ctx context.Context, q repositories.Querier, promotionID uuid.UUID) error {
	args := m.Called(ctx, q, promotionID)
	return args.Error(0)
}

func (m *MockPromotionService) ConsumeByCode(ctx context.Context, q repositories.Querier, code string) error {
	args := m.Called(ctx, q, code)
	return args.Error(0)
}

func (m *MockPromotionService) ReleaseByCode(ctx context.Context, q repositories.Querier, code string) error {
	args := m.Called(ctx, q, code)
	return args.Error(0)
}

func (m *MockPromotionService) CreatePromotion(ctx context.Context, promo *models.Promotion) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

func (m *MockPromotionService) GetPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Promotion), args.Error(1)
}

func (m *MockPromotionService) ListPromotions(ctx context.Context, limit, offset int) ([]*models.Promotion, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Promotion), args.Error(1)
}

func (m *MockPromotionService) UpdatePromotion(ctx context.Context, promo *models.Promotion) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishVehicleStatusChanged(ctx context.Context, event *events.VehicleStatusChanged) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func stringPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}
