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

type PromotionRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    PromotionRepository
	promoID uuid.UUID
	context context.Context
}

func (suite *PromotionRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewPromotionRepo(mock)
	suite.promoID = uuid.New()
	suite.context = context.Background()
}

func (suite *PromotionRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestPromotionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(PromotionRepoTestSuite))
}

func (suite *PromotionRepoTestSuite) TestConsumeUsage_Success() {
	suite.mock.ExpectExec(`UPDATE promotions`).
		WithArgs(suite.promoID, models.PromotionStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.ConsumeUsage(suite.context, suite.promoID)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PromotionRepoTestSuite) TestConsumeUsage_LastSlotTaken() {
	// The conditional guard matches no row once usage_limit is reached, so
	// the loser of a race for the last slot gets zero rows affected.
	suite.mock.ExpectExec(`UPDATE promotions`).
		WithArgs(suite.promoID, models.PromotionStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.ConsumeUsage(suite.context, suite.promoID)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), errors.Is(err, common.ErrPromotionUsageExhausted))
}

func (suite *PromotionRepoTestSuite) TestReleaseUsage_Success() {
	suite.mock.ExpectExec(`UPDATE promotions`).
		WithArgs(suite.promoID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.ReleaseUsage(suite.context, suite.promoID)
	assert.NoError(suite.T(), err)
}

func (suite *PromotionRepoTestSuite) TestReleaseUsage_MissingPromotion() {
	suite.mock.ExpectExec(`UPDATE promotions`).
		WithArgs(suite.promoID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.ReleaseUsage(suite.context, suite.promoID)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *PromotionRepoTestSuite) TestGetByCode_Success() {
	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "code", "description", "type", "value", "min_amount", "max_discount",
		"start_date", "end_date", "usage_limit", "used_count", "status", "created_at", "updated_at",
	}).AddRow(
		suite.promoID, "SUMMER10", (*string)(nil), models.PromotionTypePercentage, 10.0,
		(*float64)(nil), (*float64)(nil), now, now.AddDate(0, 1, 0), (*int)(nil), 0,
		models.PromotionStatusActive, now, now,
	)

	suite.mock.ExpectQuery(`SELECT (.+) FROM promotions`).
		WithArgs("SUMMER10").
		WillReturnRows(rows)

	promo, err := suite.repo.GetByCode(suite.context, "SUMMER10")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "SUMMER10", promo.Code)
	assert.Equal(suite.T(), 10.0, promo.Value)
}

func (suite *PromotionRepoTestSuite) TestGetByCode_NotFound() {
	suite.mock.ExpectQuery(`SELECT (.+) FROM promotions`).
		WithArgs("MISSING").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	promo, err := suite.repo.GetByCode(suite.context, "MISSING")
	assert.Nil(suite.T(), promo)
	assert.True(suite.T(), errors.Is(err, common.ErrPromotionNotFound))
}
