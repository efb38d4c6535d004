package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"fleetrent/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CacheService is a Redis read-through cache for the hot, read-mostly
// lookups on the quote/confirmation path: vehicles and promotion codes.
type CacheService interface {
	GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error)
	SetVehicle(ctx context.Context, vehicle *models.Vehicle, ttl time.Duration) error
	DeleteVehicle(ctx context.Context, vehicleID uuid.UUID) error

	GetPromotion(ctx context.Context, code string) (*models.Promotion, error)
	SetPromotion(ctx context.Context, promotion *models.Promotion, ttl time.Duration) error
	DeletePromotion(ctx context.Context, code string) error

	InvalidateAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func vehicleKey(vehicleID uuid.UUID) string {
	return fmt.Sprintf("vehicle:%s", vehicleID)
}

func promotionKey(code string) string {
	return fmt.Sprintf("promotion:%s", strings.ToUpper(code))
}

func (s *redisCacheService) GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error) {
	data, err := s.client.Get(ctx, vehicleKey(vehicleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	vehicle := &models.Vehicle{}
	if err := json.Unmarshal([]byte(data), vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *redisCacheService) SetVehicle(ctx context.Context, vehicle *models.Vehicle, ttl time.Duration) error {
	data, err := json.Marshal(vehicle)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, vehicleKey(vehicle.ID), data, ttl).Err()
}

func (s *redisCacheService) DeleteVehicle(ctx context.Context, vehicleID uuid.UUID) error {
	return s.client.Del(ctx, vehicleKey(vehicleID)).Err()
}

func (s *redisCacheService) GetPromotion(ctx context.Context, code string) (*models.Promotion, error) {
	data, err := s.client.Get(ctx, promotionKey(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	promotion := &models.Promotion{}
	if err := json.Unmarshal([]byte(data), promotion); err != nil {
		return nil, err
	}
	return promotion, nil
}

func (s *redisCacheService) SetPromotion(ctx context.Context, promotion *models.Promotion, ttl time.Duration) error {
	data, err := json.Marshal(promotion)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, promotionKey(promotion.Code), data, ttl).Err()
}

func (s *redisCacheService) DeletePromotion(ctx context.Context, code string) error {
	return s.client.Del(ctx, promotionKey(code)).Err()
}

// InvalidateAll drops all cached vehicles and promotions. Used by the
// periodic cleanup job to bound drift from out-of-band data changes.
func (s *redisCacheService) InvalidateAll(ctx context.Context) error {
	for _, pattern := range []string{"vehicle:*", "promotion:*"} {
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *redisCacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
