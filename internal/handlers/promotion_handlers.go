package handlers

import (
	"net/http"
	"strconv"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/models"
	"fleetrent/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PromotionHandlers handles HTTP requests for promotion campaigns
type PromotionHandlers struct {
	promotionService services.PromotionServiceInterface
}

// NewPromotionHandlers creates a new promotion handlers instance
func NewPromotionHandlers(promotionService services.PromotionServiceInterface) *PromotionHandlers {
	return &PromotionHandlers{promotionService: promotionService}
}

type promotionRequest struct {
	Code        string   `json:"code"`
	Description *string  `json:"description"`
	Type        string   `json:"type"`
	Value       float64  `json:"value"`
	MinAmount   *float64 `json:"min_amount"`
	MaxDiscount *float64 `json:"max_discount"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	UsageLimit  *int     `json:"usage_limit"`
	Status      string   `json:"status"`
}

func (req *promotionRequest) toModel(id uuid.UUID) (*models.Promotion, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, common.ValidationError("start_date", "must be in YYYY-MM-DD format")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, common.ValidationError("end_date", "must be in YYYY-MM-DD format")
	}
	return &models.Promotion{
		ID:          id,
		Code:        req.Code,
		Description: req.Description,
		Type:        req.Type,
		Value:       req.Value,
		MinAmount:   req.MinAmount,
		MaxDiscount: req.MaxDiscount,
		StartDate:   startDate,
		EndDate:     endDate,
		UsageLimit:  req.UsageLimit,
		Status:      req.Status,
	}, nil
}

// CreatePromotion handles POST /promotions
func (h *PromotionHandlers) CreatePromotion(c echo.Context) error {
	ctx := c.Request().Context()

	var req promotionRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	promo, err := req.toModel(uuid.New())
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if err := h.promotionService.CreatePromotion(ctx, promo); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, promo)
}

// GetPromotion handles GET /promotions/:id
func (h *PromotionHandlers) GetPromotion(c echo.Context) error {
	ctx := c.Request().Context()

	promoID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	promo, err := h.promotionService.GetPromotion(ctx, promoID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, promo)
}

// ListPromotions handles GET /promotions
func (h *PromotionHandlers) ListPromotions(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	offset := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil && o >= 0 {
			offset = o
		}
	}

	promotions, err := h.promotionService.ListPromotions(ctx, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list promotions: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"promotions": promotions,
		"limit":      limit,
		"offset":     offset,
	})
}

// UpdatePromotion handles PUT /promotions/:id
func (h *PromotionHandlers) UpdatePromotion(c echo.Context) error {
	ctx := c.Request().Context()

	promoID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req promotionRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	promo, err := req.toModel(promoID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if err := h.promotionService.UpdatePromotion(ctx, promo); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, promo)
}

// ValidatePromotion handles POST /promotions/validate
// A dry-run check: reports validity and the discount the code would yield,
// without consuming anything.
func (h *PromotionHandlers) ValidatePromotion(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Code      string  `json:"code"`
		SubTotal  float64 `json:"sub_total"`
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	var rentalStart, rentalEnd time.Time
	if req.StartDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			return common.SendValidationError(c, "start_date", "must be an RFC3339 timestamp")
		}
		rentalStart = parsed
	}
	if req.EndDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return common.SendValidationError(c, "end_date", "must be an RFC3339 timestamp")
		}
		rentalEnd = parsed
	}

	result, err := h.promotionService.Validate(ctx, req.Code, req.SubTotal, rentalStart, rentalEnd, time.Now())
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
