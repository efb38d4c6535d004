package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RentalOrderRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    RentalOrderRepository
	orderID uuid.UUID
	context context.Context
}

func (suite *RentalOrderRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewRentalOrderRepo(mock)
	suite.orderID = uuid.New()
	suite.context = context.Background()
}

func (suite *RentalOrderRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestRentalOrderRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RentalOrderRepoTestSuite))
}

func (suite *RentalOrderRepoTestSuite) TestGenerateOrderNumber() {
	orderDate := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	suite.mock.ExpectQuery(`WITH upsert AS`).
		WithArgs("2026-08").
		WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(17))

	number, err := suite.repo.GenerateOrderNumber(suite.context, orderDate)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "RO-2026-08-000017", number)
}

func (suite *RentalOrderRepoTestSuite) TestVehicleHasActiveOrder() {
	vehicleID := uuid.New()
	suite.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(vehicleID, models.RentalStatusInvoiced, models.RentalStatusCancelled, (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	busy, err := suite.repo.VehicleHasActiveOrder(suite.context, vehicleID, nil)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), busy)
}

func (suite *RentalOrderRepoTestSuite) TestVehicleHasActiveOrder_ExcludesOwnOrder() {
	vehicleID := uuid.New()
	suite.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(vehicleID, models.RentalStatusInvoiced, models.RentalStatusCancelled, &suite.orderID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	busy, err := suite.repo.VehicleHasActiveOrder(suite.context, vehicleID, &suite.orderID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), busy)
}

func (suite *RentalOrderRepoTestSuite) TestUpdateStatus_MissingOrder() {
	order := &models.RentalOrder{ID: suite.orderID, Status: models.RentalStatusConfirmed, UpdatedBy: uuid.New()}
	suite.mock.ExpectExec(`UPDATE rental_orders`).
		WithArgs(order.Status, order.ActualStartDate, order.ActualEndDate, order.SubTotal,
			order.DiscountAmount, order.TotalAmount, order.TotalDays, order.UpdatedBy, order.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.UpdateStatus(suite.context, order)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *RentalOrderRepoTestSuite) TestSoftDelete_Success() {
	actor := uuid.New()
	suite.mock.ExpectExec(`UPDATE rental_orders`).
		WithArgs(actor, suite.orderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.SoftDelete(suite.context, suite.orderID, actor)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}
