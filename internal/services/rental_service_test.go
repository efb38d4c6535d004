package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/events"
	"fleetrent/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func TestCanTransition(t *testing.T) {
	statuses := []string{
		models.RentalStatusDraft, models.RentalStatusConfirmed, models.RentalStatusInProgress,
		models.RentalStatusCompleted, models.RentalStatusInvoiced, models.RentalStatusCancelled,
	}
	allowed := map[[2]string]bool{
		{models.RentalStatusDraft, models.RentalStatusConfirmed}:      true,
		{models.RentalStatusDraft, models.RentalStatusCancelled}:      true,
		{models.RentalStatusConfirmed, models.RentalStatusInProgress}: true,
		{models.RentalStatusConfirmed, models.RentalStatusCancelled}:  true,
		{models.RentalStatusInProgress, models.RentalStatusCompleted}: true,
		{models.RentalStatusInProgress, models.RentalStatusCancelled}: true,
		{models.RentalStatusCompleted, models.RentalStatusInvoiced}:   true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]string{from, to}], CanTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

type RentalServiceTestSuite struct {
	suite.Suite
	db           pgxmock.PgxPoolIface
	orderRepo    *MockRentalOrderRepository
	historyRepo  *MockRentalStatusHistoryRepository
	customerRepo *MockCustomerRepository
	vehicleSvc   *MockVehicleService
	promoSvc     *MockPromotionService
	publisher    *MockPublisher
	service      RentalServiceInterface
	context      context.Context
}

func (suite *RentalServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.db = db

	suite.orderRepo = &MockRentalOrderRepository{}
	suite.historyRepo = &MockRentalStatusHistoryRepository{}
	suite.customerRepo = &MockCustomerRepository{}
	suite.vehicleSvc = &MockVehicleService{}
	suite.promoSvc = &MockPromotionService{}
	suite.publisher = &MockPublisher{}

	suite.orderRepo.Test(suite.T())
	suite.historyRepo.Test(suite.T())
	suite.customerRepo.Test(suite.T())
	suite.vehicleSvc.Test(suite.T())
	suite.promoSvc.Test(suite.T())
	suite.publisher.Test(suite.T())

	pricingSvc := NewPricingService(suite.promoSvc)
	suite.service = NewRentalService(
		suite.db, suite.orderRepo, suite.historyRepo, suite.customerRepo,
		suite.vehicleSvc, pricingSvc, suite.promoSvc, suite.publisher, true,
	)
	suite.context = context.Background()
}

func (suite *RentalServiceTestSuite) TearDownTest() {
	suite.orderRepo.AssertExpectations(suite.T())
	suite.historyRepo.AssertExpectations(suite.T())
	suite.vehicleSvc.AssertExpectations(suite.T())
	suite.promoSvc.AssertExpectations(suite.T())
	suite.publisher.AssertExpectations(suite.T())
	suite.db.Close()
}

func TestRentalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RentalServiceTestSuite))
}

func draftOrder() *models.RentalOrder {
	start := time.Now().AddDate(0, 0, 1)
	return &models.RentalOrder{
		ID:          uuid.New(),
		OrderNumber: "RO-2026-08-000001",
		CustomerID:  uuid.New(),
		VehicleID:   uuid.New(),
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 3),
		DailyRate:   500000,
		TotalDays:   3,
		SubTotal:    1500000,
		TotalAmount: 1500000,
		Status:      models.RentalStatusDraft,
	}
}

func (suite *RentalServiceTestSuite) TestConfirmOrder_Success() {
	order := draftOrder()
	actor := uuid.New()

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.orderRepo.On("UpdateStatus", suite.context, mock.AnythingOfType("*models.RentalOrder")).Return(nil)
	suite.historyRepo.On("Append", suite.context, mock.AnythingOfType("*models.RentalStatusHistory")).Return(nil)
	suite.db.ExpectCommit()
	suite.db.ExpectRollback()

	confirmed, err := suite.service.ConfirmOrder(suite.context, order.ID, actor, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RentalStatusConfirmed, confirmed.Status)
	assert.Equal(suite.T(), actor, confirmed.UpdatedBy)
}

func (suite *RentalServiceTestSuite) TestConfirmOrder_ConsumesPromotion() {
	order := draftOrder()
	order.PromotionCode = stringPtr("SUMMER10")
	actor := uuid.New()

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.promoSvc.On("Validate", suite.context, "SUMMER10", 1500000.0, order.StartDate, order.EndDate, mock.AnythingOfType("time.Time")).
		Return(&PromotionValidation{Valid: true, DiscountAmount: 100000}, nil)
	suite.promoSvc.On("ConsumeByCode", suite.context, mock.Anything, "SUMMER10").Return(nil)
	suite.orderRepo.On("UpdateStatus", suite.context, mock.AnythingOfType("*models.RentalOrder")).Return(nil)
	suite.historyRepo.On("Append", suite.context, mock.AnythingOfType("*models.RentalStatusHistory")).Return(nil)
	suite.db.ExpectCommit()
	suite.db.ExpectRollback()

	confirmed, err := suite.service.ConfirmOrder(suite.context, order.ID, actor, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100000.0, confirmed.DiscountAmount)
	assert.Equal(suite.T(), 1400000.0, confirmed.TotalAmount)
}

func (suite *RentalServiceTestSuite) TestConfirmOrder_LastSlotLostAborts() {
	order := draftOrder()
	order.PromotionCode = stringPtr("SUMMER10")

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.promoSvc.On("Validate", suite.context, "SUMMER10", 1500000.0, order.StartDate, order.EndDate, mock.AnythingOfType("time.Time")).
		Return(&PromotionValidation{Valid: true, DiscountAmount: 100000}, nil)
	suite.promoSvc.On("ConsumeByCode", suite.context, mock.Anything, "SUMMER10").
		Return(common.ErrPromotionUsageExhausted)
	suite.db.ExpectRollback()

	_, err := suite.service.ConfirmOrder(suite.context, order.ID, uuid.New(), nil)
	assert.True(suite.T(), errors.Is(err, common.ErrPromotionUsageExhausted))
	// UpdateStatus was never set up; AssertExpectations catches any call.
}

func (suite *RentalServiceTestSuite) TestStartRental_FromDraftRejected() {
	order := draftOrder()

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.db.ExpectRollback()

	_, err := suite.service.StartRental(suite.context, order.ID, uuid.New(), nil)
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidTransition))
	assert.Equal(suite.T(), models.RentalStatusDraft, order.Status)
}

func (suite *RentalServiceTestSuite) TestStartRental_Success() {
	order := draftOrder()
	order.Status = models.RentalStatusConfirmed
	actor := uuid.New()
	event := &events.VehicleStatusChanged{VehicleID: order.VehicleID, NewStatus: models.VehicleStatusRented}

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.vehicleSvc.On("MarkRented", suite.context, mock.Anything, order.VehicleID, order.ID, actor).Return(event, nil)
	suite.orderRepo.On("UpdateStatus", suite.context, mock.AnythingOfType("*models.RentalOrder")).Return(nil)
	suite.historyRepo.On("Append", suite.context, mock.AnythingOfType("*models.RentalStatusHistory")).Return(nil)
	suite.db.ExpectCommit()
	suite.db.ExpectRollback()
	suite.publisher.On("PublishVehicleStatusChanged", suite.context, event).Return(nil)

	started, err := suite.service.StartRental(suite.context, order.ID, actor, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RentalStatusInProgress, started.Status)
	assert.NotNil(suite.T(), started.ActualStartDate)
}

func (suite *RentalServiceTestSuite) TestUpdateOrder_ZeroedDiscountReleasesSlot() {
	// Moving a confirmed order's dates out of the promotion window zeroes
	// the discount; the usage slot consumed at confirmation must come back
	// even though the code itself is unchanged.
	order := draftOrder()
	order.Status = models.RentalStatusConfirmed
	order.PromotionCode = stringPtr("SUMMER10")
	order.DiscountAmount = 100000
	order.TotalAmount = 1400000
	actor := uuid.New()

	newStart := time.Now().AddDate(0, 2, 0)
	newEnd := newStart.AddDate(0, 0, 3)

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.promoSvc.On("Validate", suite.context, "SUMMER10", 1500000.0, newStart, newEnd, mock.AnythingOfType("time.Time")).
		Return(&PromotionValidation{Valid: false, Reason: common.ErrPromotionOutOfWindow, Message: "promotion expired"}, nil)
	suite.promoSvc.On("ReleaseByCode", suite.context, mock.Anything, "SUMMER10").Return(nil)
	suite.orderRepo.On("Update", suite.context, mock.AnythingOfType("*models.RentalOrder")).Return(nil)
	suite.db.ExpectCommit()
	suite.db.ExpectRollback()

	updated, err := suite.service.UpdateOrder(suite.context, &UpdateRentalOrderInput{
		OrderID:   order.ID,
		StartDate: &newStart,
		EndDate:   &newEnd,
		Actor:     actor,
	})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0.0, updated.DiscountAmount)
	assert.Equal(suite.T(), 1500000.0, updated.TotalAmount)
	// ConsumeByCode was never set up; AssertExpectations catches any call.
}

func (suite *RentalServiceTestSuite) TestCancelOrder_ReleasesConsumedPromotion() {
	order := draftOrder()
	order.Status = models.RentalStatusConfirmed
	order.PromotionCode = stringPtr("SUMMER10")
	order.DiscountAmount = 100000
	actor := uuid.New()

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.promoSvc.On("ReleaseByCode", suite.context, mock.Anything, "SUMMER10").Return(nil)
	suite.orderRepo.On("UpdateStatus", suite.context, mock.AnythingOfType("*models.RentalOrder")).Return(nil)
	suite.historyRepo.On("Append", suite.context, mock.AnythingOfType("*models.RentalStatusHistory")).Return(nil)
	suite.db.ExpectCommit()
	suite.db.ExpectRollback()

	cancelled, err := suite.service.CancelOrder(suite.context, order.ID, actor, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RentalStatusCancelled, cancelled.Status)
}

func (suite *RentalServiceTestSuite) TestCancelOrder_InProgressReturnsVehicle() {
	order := draftOrder()
	order.Status = models.RentalStatusInProgress
	actor := uuid.New()
	event := &events.VehicleStatusChanged{VehicleID: order.VehicleID, NewStatus: models.VehicleStatusAvailable}

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.vehicleSvc.On("MarkReturned", suite.context, mock.Anything, order.VehicleID, order.ID, actor).Return(event, nil)
	suite.orderRepo.On("UpdateStatus", suite.context, mock.AnythingOfType("*models.RentalOrder")).Return(nil)
	suite.historyRepo.On("Append", suite.context, mock.AnythingOfType("*models.RentalStatusHistory")).Return(nil)
	suite.db.ExpectCommit()
	suite.db.ExpectRollback()
	suite.publisher.On("PublishVehicleStatusChanged", suite.context, event).Return(nil)

	cancelled, err := suite.service.CancelOrder(suite.context, order.ID, actor, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RentalStatusCancelled, cancelled.Status)
}

func (suite *RentalServiceTestSuite) TestCancelOrder_InvoicedRejected() {
	order := draftOrder()
	order.Status = models.RentalStatusInvoiced

	suite.db.ExpectBegin()
	suite.orderRepo.On("GetByIDForUpdate", suite.context, order.ID).Return(order, nil)
	suite.db.ExpectRollback()

	_, err := suite.service.CancelOrder(suite.context, order.ID, uuid.New(), nil)
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidTransition))
}

func (suite *RentalServiceTestSuite) TestCreateOrder_VehicleAlreadyBooked() {
	customerID := uuid.New()
	vehicleID := uuid.New()
	start := time.Now().AddDate(0, 0, 1)

	suite.customerRepo.On("GetByID", suite.context, customerID).Return(&models.Customer{ID: customerID}, nil)
	suite.vehicleSvc.On("GetVehicle", suite.context, vehicleID).Return(&models.Vehicle{
		ID: vehicleID, Status: models.VehicleStatusAvailable, DailyRate: 400000,
	}, nil)
	suite.orderRepo.On("VehicleHasActiveOrder", suite.context, vehicleID, (*uuid.UUID)(nil)).Return(true, nil)

	_, err := suite.service.CreateOrder(suite.context, &CreateRentalOrderInput{
		CustomerID: customerID,
		VehicleID:  vehicleID,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 2),
		Actor:      uuid.New(),
	})
	assert.True(suite.T(), errors.Is(err, common.ErrVehicleUnavailable))
}
