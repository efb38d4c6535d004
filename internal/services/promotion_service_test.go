package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type PromotionServiceTestSuite struct {
	suite.Suite
	promoRepo *MockPromotionRepository
	service   PromotionServiceInterface
	context   context.Context
	now       time.Time
}

func (suite *PromotionServiceTestSuite) SetupTest() {
	suite.promoRepo = &MockPromotionRepository{}
	suite.promoRepo.Test(suite.T())
	suite.service = NewPromotionService(suite.promoRepo, nil)
	suite.context = context.Background()
	suite.now = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
}

func (suite *PromotionServiceTestSuite) TearDownTest() {
	suite.promoRepo.AssertExpectations(suite.T())
}

func TestPromotionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PromotionServiceTestSuite))
}

func (suite *PromotionServiceTestSuite) activePromo() *models.Promotion {
	return &models.Promotion{
		ID:        uuid.New(),
		Code:      "WEEKEND15",
		Type:      models.PromotionTypePercentage,
		Value:     15,
		StartDate: suite.now.AddDate(0, 0, -10),
		EndDate:   suite.now.AddDate(0, 0, 10),
		Status:    models.PromotionStatusActive,
	}
}

func (suite *PromotionServiceTestSuite) TestValidate_Valid() {
	suite.promoRepo.On("GetByCode", suite.context, "WEEKEND15").Return(suite.activePromo(), nil)

	result, err := suite.service.Validate(suite.context, "WEEKEND15", 1000000, suite.now, suite.now.AddDate(0, 0, 2), suite.now)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Valid)
	assert.Equal(suite.T(), 150000.0, result.DiscountAmount)
}

func (suite *PromotionServiceTestSuite) TestValidate_Inactive() {
	promo := suite.activePromo()
	promo.Status = models.PromotionStatusInactive
	suite.promoRepo.On("GetByCode", suite.context, "WEEKEND15").Return(promo, nil)

	result, err := suite.service.Validate(suite.context, "WEEKEND15", 1000000, suite.now, suite.now.AddDate(0, 0, 2), suite.now)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Valid)
	assert.True(suite.T(), errors.Is(result.Reason, common.ErrPromotionInactive))
	assert.Equal(suite.T(), 0.0, result.DiscountAmount)
}

func (suite *PromotionServiceTestSuite) TestValidate_WindowUsesRentalStart() {
	// The rental starts after the window closes; validation fails even
	// though the code is valid today.
	promo := suite.activePromo()
	suite.promoRepo.On("GetByCode", suite.context, "WEEKEND15").Return(promo, nil)

	rentalStart := promo.EndDate.AddDate(0, 0, 5)
	result, err := suite.service.Validate(suite.context, "WEEKEND15", 1000000, rentalStart, rentalStart.AddDate(0, 0, 2), suite.now)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Valid)
	assert.True(suite.T(), errors.Is(result.Reason, common.ErrPromotionOutOfWindow))
}

func (suite *PromotionServiceTestSuite) TestValidate_WindowBoundsInclusive() {
	promo := suite.activePromo()
	suite.promoRepo.On("GetByCode", suite.context, "WEEKEND15").Return(promo, nil).Twice()

	result, err := suite.service.Validate(suite.context, "WEEKEND15", 1000000, promo.StartDate, promo.StartDate.AddDate(0, 0, 1), suite.now)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Valid)

	result, err = suite.service.Validate(suite.context, "WEEKEND15", 1000000, promo.EndDate, promo.EndDate.AddDate(0, 0, 1), suite.now)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Valid)
}

func (suite *PromotionServiceTestSuite) TestValidate_Exhausted() {
	promo := suite.activePromo()
	promo.UsageLimit = intPtr(100)
	promo.UsedCount = 100
	suite.promoRepo.On("GetByCode", suite.context, "WEEKEND15").Return(promo, nil)

	result, err := suite.service.Validate(suite.context, "WEEKEND15", 1000000, suite.now, suite.now.AddDate(0, 0, 2), suite.now)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Valid)
	assert.True(suite.T(), errors.Is(result.Reason, common.ErrPromotionUsageExhausted))
}

func (suite *PromotionServiceTestSuite) TestValidate_BelowMinimum() {
	promo := suite.activePromo()
	promo.MinAmount = floatPtr(2000000)
	suite.promoRepo.On("GetByCode", suite.context, "WEEKEND15").Return(promo, nil)

	result, err := suite.service.Validate(suite.context, "WEEKEND15", 1000000, suite.now, suite.now.AddDate(0, 0, 2), suite.now)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Valid)
	assert.True(suite.T(), errors.Is(result.Reason, common.ErrPromotionBelowMinimum))
}

func (suite *PromotionServiceTestSuite) TestCodeLookupsCaseInsensitive() {
	// Codes are stored uppercase; lowercase input must hit the same row on
	// both the validation and the consumption path.
	promo := suite.activePromo()
	suite.promoRepo.On("GetByCode", suite.context, "WEEKEND15").Return(promo, nil).Twice()
	suite.promoRepo.On("ConsumeUsage", suite.context, promo.ID).Return(nil)

	result, err := suite.service.Validate(suite.context, "weekend15", 1000000, suite.now, suite.now.AddDate(0, 0, 2), suite.now)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Valid)

	err = suite.service.ConsumeByCode(suite.context, nil, " weekend15 ")
	assert.NoError(suite.T(), err)
}

func (suite *PromotionServiceTestSuite) TestValidate_UnknownCode() {
	suite.promoRepo.On("GetByCode", suite.context, "NOPE").Return(nil, common.ErrPromotionNotFound)

	result, err := suite.service.Validate(suite.context, "NOPE", 1000000, suite.now, suite.now.AddDate(0, 0, 2), suite.now)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Valid)
	assert.True(suite.T(), errors.Is(result.Reason, common.ErrPromotionNotFound))
}

func (suite *PromotionServiceTestSuite) TestValidate_EmptyCodeRejected() {
	_, err := suite.service.Validate(suite.context, "  ", 1000000, suite.now, suite.now.AddDate(0, 0, 2), suite.now)
	assert.True(suite.T(), errors.Is(err, common.ErrValidation))
}

func (suite *PromotionServiceTestSuite) TestCreatePromotion_UppercasesCode() {
	suite.promoRepo.On("Create", suite.context, mock.AnythingOfType("*models.Promotion")).Return(nil)

	promo := &models.Promotion{
		Code:      "summer10",
		Type:      models.PromotionTypePercentage,
		Value:     10,
		StartDate: suite.now,
		EndDate:   suite.now.AddDate(0, 1, 0),
	}
	err := suite.service.CreatePromotion(suite.context, promo)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "SUMMER10", promo.Code)
	assert.Equal(suite.T(), models.PromotionStatusActive, promo.Status)
}

func (suite *PromotionServiceTestSuite) TestCreatePromotion_RejectsBadValues() {
	tests := []struct {
		name   string
		mutate func(p *models.Promotion)
	}{
		{"missing code", func(p *models.Promotion) { p.Code = "" }},
		{"unknown type", func(p *models.Promotion) { p.Type = "bogus" }},
		{"zero value", func(p *models.Promotion) { p.Value = 0 }},
		{"percentage over 100", func(p *models.Promotion) { p.Value = 120 }},
		{"inverted window", func(p *models.Promotion) { p.EndDate = p.StartDate.AddDate(0, 0, -1) }},
		{"zero usage limit", func(p *models.Promotion) { p.UsageLimit = intPtr(0) }},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			promo := &models.Promotion{
				Code:      "TEST",
				Type:      models.PromotionTypePercentage,
				Value:     10,
				StartDate: suite.now,
				EndDate:   suite.now.AddDate(0, 1, 0),
			}
			tt.mutate(promo)
			err := suite.service.CreatePromotion(suite.context, promo)
			assert.True(suite.T(), errors.Is(err, common.ErrValidation))
		})
	}
}
