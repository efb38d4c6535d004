package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/events"
	"fleetrent/internal/models"
	"fleetrent/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// allowedTransitions is the rental-order state machine. Anything not listed
// here is rejected with InvalidTransition.
var allowedTransitions = map[string][]string{
	models.RentalStatusDraft:      {models.RentalStatusConfirmed, models.RentalStatusCancelled},
	models.RentalStatusConfirmed:  {models.RentalStatusInProgress, models.RentalStatusCancelled},
	models.RentalStatusInProgress: {models.RentalStatusCompleted, models.RentalStatusCancelled},
	models.RentalStatusCompleted:  {models.RentalStatusInvoiced},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateRentalOrderInput is the validated command for opening a draft order.
type CreateRentalOrderInput struct {
	CustomerID     uuid.UUID
	VehicleID      uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	PickupLocation *string
	ReturnLocation *string
	DailyRate      float64 // zero means use the vehicle's listed rate
	DepositAmount  float64
	PromotionCode  *string
	Notes          *string
	Actor          uuid.UUID
}

// UpdateRentalOrderInput carries the fields an operator may amend before the
// rental starts. Nil pointers leave the current value unchanged.
type UpdateRentalOrderInput struct {
	OrderID        uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	PickupLocation *string
	ReturnLocation *string
	DailyRate      *float64
	DepositAmount  *float64
	PromotionCode  *string
	ClearPromotion bool
	Notes          *string
	Actor          uuid.UUID
}

// RentalServiceInterface owns the rental-order lifecycle: draft creation,
// the status state machine with its vehicle and promotion side effects, and
// the order query surface.
type RentalServiceInterface interface {
	CreateOrder(ctx context.Context, input *CreateRentalOrderInput) (*models.RentalOrder, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*models.RentalOrder, error)
	SearchOrders(ctx context.Context, filter *models.RentalOrderSearchFilter) ([]*models.RentalOrder, error)
	UpdateOrder(ctx context.Context, input *UpdateRentalOrderInput) (*models.RentalOrder, error)
	DeleteOrder(ctx context.Context, id, actor uuid.UUID) error
	ConfirmOrder(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error)
	StartRental(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error)
	CompleteRental(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error)
	CancelOrder(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error)
	GetOrderHistory(ctx context.Context, id uuid.UUID) ([]*models.RentalStatusHistory, error)
	AttachAgreement(ctx context.Context, id, actor uuid.UUID, objectName string) error
}

type rentalService struct {
	db                   repositories.TxBeginner
	orderRepo            repositories.RentalOrderRepository
	historyRepo          repositories.RentalStatusHistoryRepository
	customerRepo         repositories.CustomerRepository
	vehicleSvc           VehicleServiceInterface
	pricingSvc           PricingServiceInterface
	promoSvc             PromotionServiceInterface
	publisher            events.Publisher
	releasePromoOnCancel bool
}

// NewRentalService creates a new rental lifecycle service. When
// releasePromoOnCancel is set, cancelling an order whose promotion was
// consumed returns the usage slot.
func NewRentalService(
	db repositories.TxBeginner,
	orderRepo repositories.RentalOrderRepository,
	historyRepo repositories.RentalStatusHistoryRepository,
	customerRepo repositories.CustomerRepository,
	vehicleSvc VehicleServiceInterface,
	pricingSvc PricingServiceInterface,
	promoSvc PromotionServiceInterface,
	publisher events.Publisher,
	releasePromoOnCancel bool,
) RentalServiceInterface {
	return &rentalService{
		db:                   db,
		orderRepo:            orderRepo,
		historyRepo:          historyRepo,
		customerRepo:         customerRepo,
		vehicleSvc:           vehicleSvc,
		pricingSvc:           pricingSvc,
		promoSvc:             promoSvc,
		publisher:            publisher,
		releasePromoOnCancel: releasePromoOnCancel,
	}
}

// CreateOrder validates references and availability, prices the rental and
// persists the draft together with its first history entry.
func (s *rentalService) CreateOrder(ctx context.Context, input *CreateRentalOrderInput) (*models.RentalOrder, error) {
	if err := common.SanitizeHTMLField(input.Notes, "order notes"); err != nil {
		return nil, common.ValidationError("notes", err.Error())
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, common.ValidationError("end_date", "end date must be after start date")
	}
	if err := common.ValidateDateRange(input.StartDate, input.EndDate); err != nil {
		return nil, common.ValidationError("end_date", err.Error())
	}
	if input.DepositAmount < 0 {
		return nil, common.ValidationError("deposit_amount", "deposit cannot be negative")
	}

	if _, err := s.customerRepo.GetByID(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleSvc.GetVehicle(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status != models.VehicleStatusAvailable {
		return nil, fmt.Errorf("vehicle %s is %s: %w", vehicle.ID, vehicle.Status, common.ErrVehicleUnavailable)
	}

	busy, err := s.orderRepo.VehicleHasActiveOrder(ctx, input.VehicleID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check vehicle availability: %w", err)
	}
	if busy {
		return nil, fmt.Errorf("vehicle %s already has an open rental order: %w", input.VehicleID, common.ErrVehicleUnavailable)
	}

	dailyRate := input.DailyRate
	if dailyRate == 0 {
		dailyRate = vehicle.DailyRate
	}

	quote, err := s.pricingSvc.Calculate(ctx, dailyRate, input.StartDate, input.EndDate, input.PromotionCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	order := &models.RentalOrder{
		ID:             uuid.New(),
		OrderNumber:    orderNumber,
		CustomerID:     input.CustomerID,
		VehicleID:      input.VehicleID,
		EmployeeID:     input.Actor,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		PickupLocation: input.PickupLocation,
		ReturnLocation: input.ReturnLocation,
		DailyRate:      dailyRate,
		TotalDays:      quote.TotalDays,
		SubTotal:       quote.SubTotal,
		DiscountAmount: quote.DiscountAmount,
		PromotionCode:  input.PromotionCode,
		TotalAmount:    quote.TotalAmount,
		DepositAmount:  input.DepositAmount,
		Status:         models.RentalStatusDraft,
		Notes:          input.Notes,
		CreatedBy:      input.Actor,
		UpdatedBy:      input.Actor,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create rental order: %w", err)
	}
	if err := s.historyRepo.WithTx(tx).Append(ctx, &models.RentalStatusHistory{
		ID:            uuid.New(),
		RentalOrderID: order.ID,
		OldStatus:     nil,
		NewStatus:     models.RentalStatusDraft,
		ChangedBy:     input.Actor,
		ChangedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("failed to append status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rental order: %w", err)
	}
	return order, nil
}

func (s *rentalService) GetOrder(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error) {
	return s.orderRepo.GetByID(ctx, id)
}

func (s *rentalService) ListOrders(ctx context.Context, limit, offset int) ([]*models.RentalOrder, error) {
	return s.orderRepo.List(ctx, limit, offset)
}

func (s *rentalService) SearchOrders(ctx context.Context, filter *models.RentalOrderSearchFilter) ([]*models.RentalOrder, error) {
	if filter == nil {
		return nil, common.ValidationError("filter", "filter cannot be nil")
	}
	if filter.Query != "" {
		filter.Query = common.SanitizeSearchQuery(filter.Query)
	}
	var err error
	filter.Limit, filter.Offset, err = common.ValidatePaginationParams(filter.Limit, filter.Offset)
	if err != nil {
		return nil, common.ValidationError("offset", err.Error())
	}
	return s.orderRepo.AdvancedSearch(ctx, filter)
}

// UpdateOrder amends an order's dates, rate, locations or promotion and
// reprices it. Amounts are mutable only while the order is Draft or
// Confirmed; once the vehicle is handed over they are frozen. Changing the
// promotion on a Confirmed order releases the consumed slot and claims one
// for the replacement inside the same transaction.
func (s *rentalService) UpdateOrder(ctx context.Context, input *UpdateRentalOrderInput) (*models.RentalOrder, error) {
	if err := common.SanitizeHTMLField(input.Notes, "order notes"); err != nil {
		return nil, common.ValidationError("notes", err.Error())
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	orders := s.orderRepo.WithTx(tx)
	order, err := orders.GetByIDForUpdate(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.AmountsMutable() {
		return nil, fmt.Errorf("order %s is %s, amounts are frozen: %w", order.ID, order.Status, common.ErrInvalidTransition)
	}

	oldPromoCode := common.SafeString(order.PromotionCode)
	oldConsumed := s.promotionConsumed(order)

	if input.StartDate != nil {
		order.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		order.EndDate = *input.EndDate
	}
	if !order.EndDate.After(order.StartDate) {
		return nil, common.ValidationError("end_date", "end date must be after start date")
	}
	if err := common.ValidateDateRange(order.StartDate, order.EndDate); err != nil {
		return nil, common.ValidationError("end_date", err.Error())
	}
	if input.PickupLocation != nil {
		order.PickupLocation = input.PickupLocation
	}
	if input.ReturnLocation != nil {
		order.ReturnLocation = input.ReturnLocation
	}
	if input.DailyRate != nil {
		if *input.DailyRate <= 0 {
			return nil, common.ValidationError("daily_rate", "daily rate must be positive")
		}
		order.DailyRate = *input.DailyRate
	}
	if input.DepositAmount != nil {
		if *input.DepositAmount < 0 {
			return nil, common.ValidationError("deposit_amount", "deposit cannot be negative")
		}
		order.DepositAmount = *input.DepositAmount
	}
	if input.ClearPromotion {
		order.PromotionCode = nil
	} else if input.PromotionCode != nil {
		order.PromotionCode = input.PromotionCode
	}
	if input.Notes != nil {
		order.Notes = input.Notes
	}

	quote, err := s.pricingSvc.Calculate(ctx, order.DailyRate, order.StartDate, order.EndDate, order.PromotionCode)
	if err != nil {
		return nil, err
	}
	order.TotalDays = quote.TotalDays
	order.SubTotal = quote.SubTotal
	order.DiscountAmount = quote.DiscountAmount
	order.TotalAmount = quote.TotalAmount
	order.UpdatedBy = input.Actor

	// Keep the consumed usage slot in step with the locked-in discount on
	// confirmed orders. A slot is held only while a promotion actually
	// discounts the order: repricing that zeroes the discount (dates moved
	// out of the validity window) releases it just like removing the code.
	if order.Status == models.RentalStatusConfirmed {
		newCode := ""
		if order.PromotionCode != nil && order.DiscountAmount > 0 {
			newCode = *order.PromotionCode
		}
		if oldConsumed && oldPromoCode != newCode {
			if err := s.promoSvc.ReleaseByCode(ctx, tx, oldPromoCode); err != nil {
				return nil, err
			}
		}
		if newCode != "" && (!oldConsumed || oldPromoCode != newCode) {
			if err := s.promoSvc.ConsumeByCode(ctx, tx, newCode); err != nil {
				return nil, err
			}
		}
	}

	if err := orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update rental order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order update: %w", err)
	}
	return order, nil
}

// DeleteOrder soft-deletes a draft or cancelled order. Orders that entered
// the financial flow are preserved.
func (s *rentalService) DeleteOrder(ctx context.Context, id, actor uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != models.RentalStatusDraft && order.Status != models.RentalStatusCancelled {
		return fmt.Errorf("only draft or cancelled orders can be deleted, order is %s: %w", order.Status, common.ErrInvalidTransition)
	}
	return s.orderRepo.SoftDelete(ctx, id, actor)
}

// ConfirmOrder locks in the price. The promotion, if any and still valid,
// is consumed here: this is the single point where used_count moves, and
// Confirmed -> Confirmed is not in the transition table so a double confirm
// cannot double-consume.
func (s *rentalService) ConfirmOrder(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	orders := s.orderRepo.WithTx(tx)
	order, err := orders.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, models.RentalStatusConfirmed) {
		return nil, common.TransitionError(order.Status, models.RentalStatusConfirmed)
	}

	// Authoritative recalculation at lock-in time.
	quote, err := s.pricingSvc.Calculate(ctx, order.DailyRate, order.StartDate, order.EndDate, order.PromotionCode)
	if err != nil {
		return nil, err
	}
	order.TotalDays = quote.TotalDays
	order.SubTotal = quote.SubTotal
	order.DiscountAmount = quote.DiscountAmount
	order.TotalAmount = quote.TotalAmount

	if order.PromotionCode != nil && order.DiscountAmount > 0 {
		if err := s.promoSvc.ConsumeByCode(ctx, tx, *order.PromotionCode); err != nil {
			return nil, err
		}
	}

	oldStatus := order.Status
	order.Status = models.RentalStatusConfirmed
	order.UpdatedBy = actor
	if err := orders.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := s.appendHistory(ctx, tx, order, oldStatus, actor, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}
	return order, nil
}

// StartRental hands the vehicle over: Confirmed -> InProgress, actual start
// stamped, vehicle marked rented with its own history entry, all in one
// transaction.
func (s *rentalService) StartRental(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	orders := s.orderRepo.WithTx(tx)
	order, err := orders.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, models.RentalStatusInProgress) {
		return nil, common.TransitionError(order.Status, models.RentalStatusInProgress)
	}

	event, err := s.vehicleSvc.MarkRented(ctx, tx, order.VehicleID, order.ID, actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	oldStatus := order.Status
	order.Status = models.RentalStatusInProgress
	order.ActualStartDate = &now
	order.UpdatedBy = actor
	if err := orders.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := s.appendHistory(ctx, tx, order, oldStatus, actor, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit pickup: %w", err)
	}
	s.publish(ctx, event)
	return order, nil
}

// CompleteRental takes the vehicle back: InProgress -> Completed, actual end
// stamped, vehicle released to available.
func (s *rentalService) CompleteRental(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	orders := s.orderRepo.WithTx(tx)
	order, err := orders.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, models.RentalStatusCompleted) {
		return nil, common.TransitionError(order.Status, models.RentalStatusCompleted)
	}

	event, err := s.vehicleSvc.MarkReturned(ctx, tx, order.VehicleID, order.ID, actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	oldStatus := order.Status
	order.Status = models.RentalStatusCompleted
	order.ActualEndDate = &now
	order.UpdatedBy = actor
	if err := orders.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := s.appendHistory(ctx, tx, order, oldStatus, actor, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}
	s.publish(ctx, event)
	return order, nil
}

// CancelOrder cancels an order from any non-terminal, non-completed state.
// Cancelling an in-progress rental returns the vehicle; cancelling after the
// promotion was consumed releases the usage slot when the release policy is
// on.
func (s *rentalService) CancelOrder(ctx context.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	orders := s.orderRepo.WithTx(tx)
	order, err := orders.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, models.RentalStatusCancelled) {
		return nil, common.TransitionError(order.Status, models.RentalStatusCancelled)
	}

	var event *events.VehicleStatusChanged
	if order.Status == models.RentalStatusInProgress {
		event, err = s.vehicleSvc.MarkReturned(ctx, tx, order.VehicleID, order.ID, actor)
		if err != nil {
			return nil, err
		}
	}

	if s.releasePromoOnCancel && s.promotionConsumed(order) {
		if err := s.promoSvc.ReleaseByCode(ctx, tx, *order.PromotionCode); err != nil {
			return nil, err
		}
	}

	oldStatus := order.Status
	order.Status = models.RentalStatusCancelled
	order.UpdatedBy = actor
	if err := orders.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := s.appendHistory(ctx, tx, order, oldStatus, actor, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	s.publish(ctx, event)
	return order, nil
}

func (s *rentalService) GetOrderHistory(ctx context.Context, id uuid.UUID) ([]*models.RentalStatusHistory, error) {
	if _, err := s.orderRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByOrder(ctx, id)
}

// AttachAgreement records the object name of the signed rental agreement.
func (s *rentalService) AttachAgreement(ctx context.Context, id, actor uuid.UUID, objectName string) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	order.AgreementObject = &objectName
	order.UpdatedBy = actor
	return s.orderRepo.Update(ctx, order)
}

// promotionConsumed reports whether the order holds a consumed usage slot:
// a promotion discount locked in at confirmation.
func (s *rentalService) promotionConsumed(order *models.RentalOrder) bool {
	if order.PromotionCode == nil || order.DiscountAmount <= 0 {
		return false
	}
	return order.Status == models.RentalStatusConfirmed || order.Status == models.RentalStatusInProgress
}

func (s *rentalService) appendHistory(ctx context.Context, tx pgx.Tx, order *models.RentalOrder, oldStatus string, actor uuid.UUID, note *string) error {
	entry := &models.RentalStatusHistory{
		ID:            uuid.New(),
		RentalOrderID: order.ID,
		OldStatus:     &oldStatus,
		NewStatus:     order.Status,
		ChangedBy:     actor,
		Note:          note,
		ChangedAt:     time.Now(),
	}
	if err := s.historyRepo.WithTx(tx).Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

func (s *rentalService) publish(ctx context.Context, event *events.VehicleStatusChanged) {
	if event == nil || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishVehicleStatusChanged(ctx, event); err != nil {
		log.Printf("Failed to publish vehicle status event for %s: %v", event.VehicleID, err)
	}
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		log.Printf("Failed to roll back transaction: %v", err)
	}
}
