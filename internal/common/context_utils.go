package common

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ActorIDKey   contextKey = "actor_id"
	ActorRoleKey contextKey = "actor_role"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// SendForbiddenError sends a forbidden error response
func SendForbiddenError(c echo.Context) error {
	return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", "Insufficient role for this operation", nil))
}

// SendDomainError maps domain error kinds to HTTP responses. Unrecognized
// errors fall through to a generic 500 so internals are not leaked.
func SendDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPromotionNotFound):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", err.Error(), nil))
	case errors.Is(err, ErrValidation):
		return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", err.Error(), nil))
	case errors.Is(err, ErrInvalidTransition):
		return c.JSON(http.StatusConflict, CreateErrorResponse("INVALID_TRANSITION", err.Error(), nil))
	case errors.Is(err, ErrAlreadyInvoiced):
		return c.JSON(http.StatusConflict, CreateErrorResponse("ALREADY_INVOICED", err.Error(), nil))
	case errors.Is(err, ErrOverpayment):
		return c.JSON(http.StatusUnprocessableEntity, CreateErrorResponse("OVERPAYMENT", err.Error(), nil))
	case errors.Is(err, ErrInvoiceCancelled):
		return c.JSON(http.StatusConflict, CreateErrorResponse("INVOICE_CANCELLED", err.Error(), nil))
	case errors.Is(err, ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, CreateErrorResponse("CONCURRENCY_CONFLICT", err.Error(), nil))
	case errors.Is(err, ErrVehicleUnavailable):
		return c.JSON(http.StatusConflict, CreateErrorResponse("VEHICLE_UNAVAILABLE", err.Error(), nil))
	case errors.Is(err, ErrPromotionInactive),
		errors.Is(err, ErrPromotionOutOfWindow),
		errors.Is(err, ErrPromotionUsageExhausted),
		errors.Is(err, ErrPromotionBelowMinimum):
		return c.JSON(http.StatusUnprocessableEntity, CreateErrorResponse("PROMOTION_ERROR", err.Error(), nil))
	}
	return SendServerError(c, err.Error())
}

// ValidateUUID validates UUID format
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	if strings.TrimSpace(idStr) == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	id, err := uuid.Parse(strings.TrimSpace(idStr))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s has invalid UUID format: %v", fieldName, err)
	}

	return id, nil
}

// ValidatePositiveFloat validates positive float values with upper bounds
func ValidatePositiveFloat(value float64, fieldName string, maxValue float64) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", fieldName)
	}
	if value > maxValue {
		return fmt.Errorf("%s cannot exceed %.2f", fieldName, maxValue)
	}
	return nil
}

// ValidateDateFormat validates date strings
func ValidateDateFormat(dateStr, fieldName string) error {
	if strings.TrimSpace(dateStr) == "" {
		return nil // Empty is allowed, will be handled elsewhere
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("%s must be in YYYY-MM-DD format", fieldName)
	}

	if date.After(time.Now().AddDate(10, 0, 0)) {
		return fmt.Errorf("%s cannot be more than 10 years in the future", fieldName)
	}
	if date.Before(time.Now().AddDate(-100, 0, 0)) {
		return fmt.Errorf("%s cannot be more than 100 years ago", fieldName)
	}

	return nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateOptionalString validates optional string fields
func ValidateOptionalString(value *string, fieldName string, maxLength int) error {
	if value != nil {
		if len(*value) > maxLength {
			return fmt.Errorf("%s cannot exceed %d characters", fieldName, maxLength)
		}
		*value = strings.TrimSpace(*value)
	}
	return nil
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SafeFloat64 safely handles float64 pointer operations
func SafeFloat64(f *float64) float64 {
	if f == nil {
		return 0.0
	}
	return *f
}

// GetActorIDFromContext extracts the authenticated employee ID from the request context
func GetActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	actorID, ok := ctx.Value(ActorIDKey).(uuid.UUID)
	return actorID, ok
}

// GetActorRoleFromContext extracts the authenticated employee role from the request context
func GetActorRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ActorRoleKey).(string)
	return role, ok
}

// Operator roles carried in the JWT role claim.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// ActorHasRole reports whether the acting operator holds one of the given
// roles. Tokens without a role claim hold none.
func ActorHasRole(ctx context.Context, roles ...string) bool {
	role, ok := GetActorRoleFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// SanitizeHTMLElement escapes HTML characters to prevent XSS attacks
func SanitizeHTMLElement(input string) string {
	return html.EscapeString(input)
}

// SanitizeHTMLField sanitizes string pointer fields for HTML display
func SanitizeHTMLField(field *string, fieldName string) error {
	if field != nil && *field != "" {
		sanitized := SanitizeHTMLElement(*field)

		// Limit length to prevent abuse
		if len(sanitized) > 1000 {
			return fmt.Errorf("%s content exceeds maximum allowed length", fieldName)
		}

		*field = sanitized
	}
	return nil
}

// SanitizeSearchQuery prevents SQL injection through LIKE queries
func SanitizeSearchQuery(query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	// Parameterized queries already protect us; stripping wildcards keeps
	// user input from turning into accidental full-table LIKE scans.
	query = strings.ReplaceAll(query, "%", "")
	query = strings.ReplaceAll(query, "_", "")
	query = strings.ReplaceAll(query, "'", "''")

	if len(query) > 100 {
		query = query[:100]
	}

	return strings.TrimSpace(query)
}

// ValidateSortOrder validates sort order parameters
func ValidateSortOrder(sortOrder string) string {
	if strings.ToLower(sortOrder) == "asc" {
		return "ASC"
	}
	return "DESC"
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50 // Default
	}
	if limit > 1000 {
		limit = 1000 // Maximum
	}

	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}

	return limit, offset, nil
}

// ValidateDateRange validates date ranges to prevent abuse
func ValidateDateRange(startDate, endDate time.Time) error {
	if endDate.Before(startDate) {
		return fmt.Errorf("end date cannot be before start date")
	}

	duration := endDate.Sub(startDate)
	maxDuration := time.Hour * 24 * 365 * 10 // 10 years
	if duration > maxDuration {
		return fmt.Errorf("date range cannot exceed 10 years")
	}

	return nil
}
