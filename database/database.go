package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bradselph/ThreadWarden/configuration"
	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bradselph/ThreadWarden/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	DB *gorm.DB
)

func Connect(cfg *configuration.Config) error {
	logger.Log.Info("Connecting to database...")
	db := cfg.Database

	// Log the presence of each setting
	logger.Log.Infof("DB_USER set: %v", db.User != "")
	logger.Log.Infof("DB_PASSWORD set: %v", db.Password != "")
	logger.Log.Infof("DB_HOST set: %v", db.Host != "")
	logger.Log.Infof("DB_PORT set: %v", db.Port != "")
	logger.Log.Infof("DB_NAME set: %v", db.Name != "")

	if db.User == "" || db.Password == "" || db.Host == "" || db.Port == "" || db.Name == "" {
		return fmt.Errorf("one or more database settings not set or missing")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s%s", db.User, db.Password, db.Host, db.Port, db.Name, db.Var)
	conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := conn.AutoMigrate(&models.ThreadClosure{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database models: %w", err)
	}

	DB = conn
	return nil
}

// MonitorHealth pings the database every five minutes until ctx is done.
func MonitorHealth(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sqlDB, err := DB.DB()
		if err != nil {
			logger.Log.WithError(err).Error("Failed to get database instance for health check")
			continue
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			logger.Log.WithError(err).Error("Database health check failed")
		} else {
			logger.Log.Debug("Database health check passed")
		}

		stats := sqlDB.Stats()
		logger.Log.Debugf("DB Stats - Open connections: %d, In use: %d, Idle: %d", stats.OpenConnections, stats.InUse, stats.Idle)
	}
}

func GetDB() *gorm.DB {
	return DB
}
