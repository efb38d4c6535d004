package services

import (
	"context"
	"math"
	"time"

	"fleetrent/internal/common"
)

// PriceQuote is the result of a rental price calculation. Used both for live
// quote previews and for the authoritative recalculation on transitions.
type PriceQuote struct {
	TotalDays        int     `json:"total_days"`
	SubTotal         float64 `json:"sub_total"`
	DiscountAmount   float64 `json:"discount_amount"`
	TotalAmount      float64 `json:"total_amount"`
	PromotionMessage string  `json:"promotion_message,omitempty"`
}

// PricingServiceInterface computes rental pricing. Calculate is pure: no
// persistence, callable repeatedly without side effects.
type PricingServiceInterface interface {
	Calculate(ctx context.Context, dailyRate float64, startDate, endDate time.Time, promotionCode *string) (*PriceQuote, error)
}

type pricingService struct {
	promoSvc PromotionServiceInterface
}

// NewPricingService creates a new pricing service
func NewPricingService(promoSvc PromotionServiceInterface) PricingServiceInterface {
	return &pricingService{promoSvc: promoSvc}
}

// RentalDays returns the billable day count for a date range: the number of
// started 24-hour periods, minimum one. A booking of less than a day still
// bills one day.
func RentalDays(startDate, endDate time.Time) int {
	days := int(math.Ceil(endDate.Sub(startDate).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// Calculate computes duration, subtotal and total for a rental. An invalid
// promotion code does not fail the calculation; the quote carries zero
// discount plus the validator's explanation so the console can show it.
func (s *pricingService) Calculate(ctx context.Context, dailyRate float64, startDate, endDate time.Time, promotionCode *string) (*PriceQuote, error) {
	if dailyRate <= 0 {
		return nil, common.ValidationError("daily_rate", "daily rate must be positive")
	}
	if !endDate.After(startDate) {
		return nil, common.ValidationError("end_date", "end date must be after start date")
	}

	quote := &PriceQuote{
		TotalDays: RentalDays(startDate, endDate),
	}
	quote.SubTotal = dailyRate * float64(quote.TotalDays)

	if code := common.SafeString(promotionCode); code != "" {
		result, err := s.promoSvc.Validate(ctx, code, quote.SubTotal, startDate, endDate, time.Now())
		if err != nil {
			return nil, err
		}
		quote.PromotionMessage = result.Message
		if result.Valid {
			quote.DiscountAmount = result.DiscountAmount
		}
	}

	quote.TotalAmount = quote.SubTotal - quote.DiscountAmount
	return quote, nil
}
