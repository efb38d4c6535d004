package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetrent/internal/caching"
	"fleetrent/internal/common"
	"fleetrent/internal/models"
	"fleetrent/internal/repositories"

	"github.com/google/uuid"
)

// PromotionValidation is the outcome of a read-only promotion check. Reason
// is one of the common.ErrPromotion* kinds when Valid is false; Message is
// safe to surface to the operator.
type PromotionValidation struct {
	Valid          bool              `json:"valid"`
	Message        string            `json:"message"`
	DiscountAmount float64           `json:"discount_amount"`
	Promotion      *models.Promotion `json:"promotion,omitempty"`
	Reason         error             `json:"-"`
}

// PromotionServiceInterface defines promotion validation, consumption and
// campaign management.
type PromotionServiceInterface interface {
	Validate(ctx context.Context, code string, subTotal float64, rentalStart, rentalEnd time.Time, asOf time.Time) (*PromotionValidation, error)
	Consume(ctx context.Context, q repositories.Querier, promotionID uuid.UUID) error
	Release(ctx context.Context, q repositories.Querier, promotionID uuid.UUID) error
	ConsumeByCode(ctx context.Context, q repositories.Querier, code string) error
	ReleaseByCode(ctx context.Context, q repositories.Querier, code string) error

	CreatePromotion(ctx context.Context, promo *models.Promotion) error
	GetPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	ListPromotions(ctx context.Context, limit, offset int) ([]*models.Promotion, error)
	UpdatePromotion(ctx context.Context, promo *models.Promotion) error
}

type promotionService struct {
	promoRepo repositories.PromotionRepository
	cacheSvc  caching.CacheService
}

// NewPromotionService creates a new promotion service
func NewPromotionService(promoRepo repositories.PromotionRepository, cacheSvc caching.CacheService) PromotionServiceInterface {
	return &promotionService{
		promoRepo: promoRepo,
		cacheSvc:  cacheSvc,
	}
}

// Validate checks a promotion code against the order context and computes
// the discount it would yield. It never mutates used_count; consumption is a
// separate step at confirmation time. The evaluation instant for the
// validity window is the rental start date when set, otherwise asOf. Codes
// are stored uppercase, so input is normalized before any lookup.
func (s *promotionService) Validate(ctx context.Context, code string, subTotal float64, rentalStart, rentalEnd time.Time, asOf time.Time) (*PromotionValidation, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, common.ValidationError("code", "promotion code is required")
	}
	if subTotal < 0 {
		return nil, common.ValidationError("sub_total", "sub total cannot be negative")
	}

	promo, err := s.lookupByCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrPromotionNotFound) {
			return invalid(common.ErrPromotionNotFound, fmt.Sprintf("promotion code %q does not exist", code)), nil
		}
		return nil, fmt.Errorf("failed to look up promotion: %w", err)
	}

	if promo.Status != models.PromotionStatusActive {
		return invalid(common.ErrPromotionInactive, fmt.Sprintf("promotion %q is not active", code)), nil
	}

	at := asOf
	if !rentalStart.IsZero() {
		at = rentalStart
	}
	if !promo.InWindow(at) {
		return invalid(common.ErrPromotionOutOfWindow,
			fmt.Sprintf("promotion %q is valid from %s to %s", code, promo.StartDate.Format("2006-01-02"), promo.EndDate.Format("2006-01-02"))), nil
	}

	if promo.Exhausted() {
		return invalid(common.ErrPromotionUsageExhausted, fmt.Sprintf("promotion %q has reached its usage limit", code)), nil
	}

	if promo.MinAmount != nil && subTotal < *promo.MinAmount {
		return invalid(common.ErrPromotionBelowMinimum,
			fmt.Sprintf("order amount must be at least %.2f to use promotion %q", *promo.MinAmount, code)), nil
	}

	discount := s.computeDiscount(promo, subTotal)
	return &PromotionValidation{
		Valid:          true,
		Message:        fmt.Sprintf("promotion %q applied", code),
		DiscountAmount: discount,
		Promotion:      promo,
	}, nil
}

func invalid(reason error, message string) *PromotionValidation {
	return &PromotionValidation{Valid: false, Reason: reason, Message: message}
}

// computeDiscount applies the promotion rule. The discount never exceeds the
// subtotal, and maxDiscount caps both promotion types.
func (s *promotionService) computeDiscount(promo *models.Promotion, subTotal float64) float64 {
	var discount float64
	switch promo.Type {
	case models.PromotionTypePercentage:
		discount = subTotal * promo.Value / 100
	case models.PromotionTypeFixedAmount:
		discount = promo.Value
	}
	if discount > subTotal {
		discount = subTotal
	}
	if promo.MaxDiscount != nil && discount > *promo.MaxDiscount {
		discount = *promo.MaxDiscount
	}
	return discount
}

func (s *promotionService) lookupByCode(ctx context.Context, code string) (*models.Promotion, error) {
	if s.cacheSvc != nil {
		if promo, err := s.cacheSvc.GetPromotion(ctx, code); err == nil && promo != nil {
			return promo, nil
		}
	}

	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.SetPromotion(ctx, promo, 2*time.Minute)
	}
	return promo, nil
}

// Consume claims one usage slot inside the caller's transaction. The usage
// cap is re-checked by the conditional UPDATE itself, so of two concurrent
// confirmations racing for the last slot exactly one succeeds.
func (s *promotionService) Consume(ctx context.Context, q repositories.Querier, promotionID uuid.UUID) error {
	if err := s.promoRepo.WithTx(q).ConsumeUsage(ctx, promotionID); err != nil {
		return err
	}
	s.invalidate(ctx, promotionID)
	return nil
}

// Release returns a previously consumed slot (cancellation of a confirmed
// order, when the release policy is on).
func (s *promotionService) Release(ctx context.Context, q repositories.Querier, promotionID uuid.UUID) error {
	if err := s.promoRepo.WithTx(q).ReleaseUsage(ctx, promotionID); err != nil {
		return err
	}
	s.invalidate(ctx, promotionID)
	return nil
}

// ConsumeByCode resolves the code inside the caller's transaction and claims
// a slot.
func (s *promotionService) ConsumeByCode(ctx context.Context, q repositories.Querier, code string) error {
	promo, err := s.promoRepo.WithTx(q).GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return err
	}
	return s.Consume(ctx, q, promo.ID)
}

// ReleaseByCode resolves the code inside the caller's transaction and returns
// a slot.
func (s *promotionService) ReleaseByCode(ctx context.Context, q repositories.Querier, code string) error {
	promo, err := s.promoRepo.WithTx(q).GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return err
	}
	return s.Release(ctx, q, promo.ID)
}

// normalizeCode maps operator input onto the stored form, so a lookup hits
// the same row (and cache key) regardless of letter case.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *promotionService) invalidate(ctx context.Context, promotionID uuid.UUID) {
	if s.cacheSvc == nil {
		return
	}
	if promo, err := s.promoRepo.GetByID(ctx, promotionID); err == nil {
		_ = s.cacheSvc.DeletePromotion(ctx, promo.Code)
	}
}

// CreatePromotion creates a new discount campaign
func (s *promotionService) CreatePromotion(ctx context.Context, promo *models.Promotion) error {
	if err := s.validatePromotion(promo); err != nil {
		return err
	}

	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	if promo.Status == "" {
		promo.Status = models.PromotionStatusActive
	}
	promo.UsedCount = 0
	promo.Code = normalizeCode(promo.Code)

	if err := s.promoRepo.Create(ctx, promo); err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}
	return nil
}

func (s *promotionService) GetPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	return s.promoRepo.GetByID(ctx, id)
}

func (s *promotionService) ListPromotions(ctx context.Context, limit, offset int) ([]*models.Promotion, error) {
	return s.promoRepo.List(ctx, limit, offset)
}

func (s *promotionService) UpdatePromotion(ctx context.Context, promo *models.Promotion) error {
	if err := s.validatePromotion(promo); err != nil {
		return err
	}

	existing, err := s.promoRepo.GetByID(ctx, promo.ID)
	if err != nil {
		return err
	}

	promo.Code = normalizeCode(promo.Code)
	if err := s.promoRepo.Update(ctx, promo); err != nil {
		return fmt.Errorf("failed to update promotion: %w", err)
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.DeletePromotion(ctx, existing.Code)
		_ = s.cacheSvc.DeletePromotion(ctx, promo.Code)
	}
	return nil
}

func (s *promotionService) validatePromotion(promo *models.Promotion) error {
	if strings.TrimSpace(promo.Code) == "" {
		return common.ValidationError("code", "promotion code is required")
	}
	if promo.Type != models.PromotionTypePercentage && promo.Type != models.PromotionTypeFixedAmount {
		return common.ValidationError("type", "type must be percentage or fixed_amount")
	}
	if promo.Value <= 0 {
		return common.ValidationError("value", "value must be positive")
	}
	if promo.Type == models.PromotionTypePercentage && promo.Value > 100 {
		return common.ValidationError("value", "percentage value cannot exceed 100")
	}
	if !promo.EndDate.After(promo.StartDate) {
		return common.ValidationError("end_date", "end date must be after start date")
	}
	if promo.MinAmount != nil && *promo.MinAmount < 0 {
		return common.ValidationError("min_amount", "minimum amount cannot be negative")
	}
	if promo.MaxDiscount != nil && *promo.MaxDiscount <= 0 {
		return common.ValidationError("max_discount", "maximum discount must be positive")
	}
	if promo.UsageLimit != nil && *promo.UsageLimit <= 0 {
		return common.ValidationError("usage_limit", "usage limit must be positive")
	}
	return nil
}
