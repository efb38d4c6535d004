package background

import (
	"context"
	"log"
	"sync"
	"time"

	"fleetrent/internal/caching"
	"fleetrent/internal/models"
	"fleetrent/internal/services"

	"github.com/go-co-op/gocron/v2"
)

func newOverdueRentalFilter(status string) *models.RentalOrderSearchFilter {
	return &models.RentalOrderSearchFilter{Status: &status, SortBy: "start_date", SortOrder: "asc", Limit: 1000}
}

// JobScheduler runs the periodic maintenance work: overdue invoice flagging,
// overdue-rental detection and cache cleanup.
type JobScheduler struct {
	scheduler  gocron.Scheduler
	invoiceSvc services.InvoiceServiceInterface
	rentalSvc  services.RentalServiceInterface
	cacheSvc   caching.CacheService
	jobs       map[string]gocron.Job
	mu         sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(invoiceSvc services.InvoiceServiceInterface, rentalSvc services.RentalServiceInterface, cacheSvc caching.CacheService) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:  scheduler,
		invoiceSvc: invoiceSvc,
		rentalSvc:  rentalSvc,
		cacheSvc:   cacheSvc,
		jobs:       make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	// Overdue invoice refresh - every hour
	overdueJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.refreshOverdueInvoices, context.Background()),
		gocron.WithName("overdue-invoice-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create overdue invoice job: %v", err)
	} else {
		js.jobs["overdue-invoices"] = overdueJob
	}

	// Overdue rental detection - every 30 minutes
	rentalJob, err := js.scheduler.NewJob(
		gocron.DurationJob(30*time.Minute),
		gocron.NewTask(js.reportOverdueRentals, context.Background()),
		gocron.WithName("overdue-rental-check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create overdue rental job: %v", err)
	} else {
		js.jobs["overdue-rentals"] = rentalJob
	}

	// Cache cleanup - daily
	cleanupJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.cleanupCache, context.Background()),
		gocron.WithName("cache-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create cache cleanup job: %v", err)
	} else {
		js.jobs["cache-cleanup"] = cleanupJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

// refreshOverdueInvoices flags unpaid invoices past their due date.
func (js *JobScheduler) refreshOverdueInvoices(ctx context.Context) error {
	flagged, err := js.invoiceSvc.RefreshOverdueStatuses(ctx, time.Now())
	if err != nil {
		log.Printf("Failed to refresh overdue invoices: %v", err)
		return err
	}
	if flagged > 0 {
		log.Printf("Flagged %d invoices as overdue", flagged)
	}
	return nil
}

// cleanupCache drops all cached vehicles and promotions to bound drift from
// out-of-band data changes.
func (js *JobScheduler) cleanupCache(ctx context.Context) error {
	if js.cacheSvc == nil {
		return nil
	}
	if err := js.cacheSvc.InvalidateAll(ctx); err != nil {
		log.Printf("Failed to clean up cache: %v", err)
		return err
	}
	return nil
}

// reportOverdueRentals logs in-progress rentals whose planned end date has
// passed without a return, so the console team can chase them.
func (js *JobScheduler) reportOverdueRentals(ctx context.Context) error {
	status := models.RentalStatusInProgress
	orders, err := js.rentalSvc.SearchOrders(ctx, newOverdueRentalFilter(status))
	if err != nil {
		log.Printf("Failed to list in-progress rentals: %v", err)
		return err
	}

	now := time.Now()
	overdue := 0
	for _, order := range orders {
		if order.EndDate.Before(now) {
			overdue++
			log.Printf("ALERT: rental order %s past planned end date %s", order.OrderNumber, order.EndDate.Format("2006-01-02"))
		}
	}
	if overdue > 0 {
		log.Printf("Found %d overdue rentals", overdue)
	}
	return nil
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		jobs = append(jobs, name)
	}
	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       jobs,
	}
}
