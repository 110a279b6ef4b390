package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  []Service `json:"services"`
}

type Service struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker pings the backing services. Redis is optional; a nil client
// is simply skipped since the engine runs without it.
type HealthChecker struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	var services []Service
	overallStatus := "healthy"

	if h.DB != nil {
		service := Service{Name: "PostgreSQL"}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(pingCtx)
		}
		if err != nil {
			service.Status = "down"
			service.Message = err.Error()
			overallStatus = "degraded"
		} else {
			service.Status = "up"
		}
		services = append(services, service)
		cancel()
	}

	if h.Redis != nil {
		service := Service{Name: "Redis"}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.Redis.Ping(pingCtx).Err(); err != nil {
			service.Status = "down"
			service.Message = err.Error()
			overallStatus = "degraded"
		} else {
			service.Status = "up"
		}
		services = append(services, service)
		cancel()
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Services:  services,
	}
}
