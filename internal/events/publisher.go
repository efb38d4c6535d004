package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// VehicleStatusChanged is the domain event emitted after a vehicle's status
// flips as part of a rental transition. Delivery and fan-out to subscribers
// belong to the notification collaborator; this side only publishes.
type VehicleStatusChanged struct {
	VehicleID     uuid.UUID `json:"vehicle_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	Action        string    `json:"action"`
	RentalOrderID uuid.UUID `json:"rental_order_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher emits domain events to the notification fan-out boundary.
type Publisher interface {
	PublishVehicleStatusChanged(ctx context.Context, event *VehicleStatusChanged) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher backed by Redis pub/sub. Events are
// scoped per vehicle so subscribers can watch a single unit.
func NewRedisPublisher(addr, password string, db int) Publisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisPublisher{client: client}
}

func vehicleChannel(vehicleID uuid.UUID) string {
	return fmt.Sprintf("events:vehicle-status:%s", vehicleID)
}

func (p *redisPublisher) PublishVehicleStatusChanged(ctx context.Context, event *VehicleStatusChanged) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle status event: %w", err)
	}

	if err := p.client.Publish(ctx, vehicleChannel(event.VehicleID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish vehicle status event: %w", err)
	}
	return nil
}
