package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DatabaseConfig holds the connection parameters for the durable store.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

// Connect opens the Postgres connection pool and configures it the way
// a long-running service should: bounded idle/open connections and a
// NowFunc pinned to UTC so every timestamp column round-trips in UTC
// regardless of the session's local time zone.
func Connect(cfg DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.TimeZone,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// AutoMigrate creates/updates the schema for every model the core owns.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Trip{},
		&FlightStatusHistoryRow{},
		&NotificationLogRow{},
		&Itinerary{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// CreateIndexes adds composite indexes AutoMigrate's tag-driven DDL
// doesn't express, concurrently so the migration never blocks writers.
func CreateIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_trips_next_check_departure ON trips(next_check_at, departure_date)",
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_history_recorded_at ON flight_status_history(recorded_at)",
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_notifications_trip_type_state ON notifications_log(trip_id, notification_type, delivery_state)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
