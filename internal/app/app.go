package app

import (
	"os"

	"leavedesk/internal/balance"
	"leavedesk/internal/identity"
	"leavedesk/internal/leaverequest"
	"leavedesk/internal/leavetype"
	"leavedesk/internal/middleware"
	"leavedesk/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// BuildApp menyiapkan infrastruktur dan mendaftarkan semua module + routes.
func BuildApp(router *gin.Engine) error {
	logger := zap.L().Named("app")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}
	logger.Info("database connection established")

	if err := migrate(gormDB); err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	logger.Info("redis connection established")

	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitByIP(rate.Limit(20), 40))

	return registerModules(router, gormDB, redisClient)
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&identity.Employee{},
		&leavetype.LeaveType{},
		&balance.LeaveBalance{},
		&leaverequest.LeaveRequest{},
	); err != nil {
		return err
	}

	// Outbox table dikelola manual karena hanya diakses lewat raw SQL.
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS notification_events (
			id uuid PRIMARY KEY,
			event_type varchar(50) NOT NULL,
			topic varchar(100) NOT NULL,
			event_key varchar(100) NOT NULL DEFAULT '',
			payload jsonb NOT NULL,
			status varchar(10) NOT NULL DEFAULT 'pending',
			retry_count int NOT NULL DEFAULT 0,
			error_message text,
			next_retry_at timestamptz,
			processed_at timestamptz,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)
	`).Error
}
