package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/model"
)

// CurrentAssignmentIndex is the unique index that keeps a user to one
// assigned/active room assignment.
const CurrentAssignmentIndex = "idx_room_assignments_one_current"

// Open connects to the configured database without migrating.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// Init opens the database and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates every table and applies the dialect-specific
// DDL that AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Block{},
		&model.Room{},
		&model.User{},
		&model.Application{},
		&model.Assignment{},
		&model.ChangeRequest{},
		&model.LeaveRequest{},
		&model.Notification{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if err := applyAssignmentIndex(db); err != nil {
		return err
	}
	return nil
}

// applyAssignmentIndex enforces one current assignment per user. postgres and
// sqlite get a partial unique index; mysql has no partial indexes, so a
// generated column that is NULL outside the current statuses carries the
// unique index instead.
func applyAssignmentIndex(db *gorm.DB) error {
	var ddls []string
	switch db.Dialector.Name() {
	case "postgres", "sqlite":
		ddls = []string{
			"CREATE UNIQUE INDEX IF NOT EXISTS " + CurrentAssignmentIndex +
				" ON room_assignments (user_id) WHERE status IN ('assigned', 'active')",
		}
	case "mysql":
		if db.Migrator().HasIndex(&model.Assignment{}, CurrentAssignmentIndex) {
			return nil
		}
		if !db.Migrator().HasColumn(&model.Assignment{}, "current_user_id") {
			ddls = append(ddls,
				"ALTER TABLE room_assignments ADD COLUMN current_user_id BIGINT "+
					"GENERATED ALWAYS AS (CASE WHEN status IN ('assigned', 'active') THEN user_id END) VIRTUAL")
		}
		ddls = append(ddls,
			"CREATE UNIQUE INDEX "+CurrentAssignmentIndex+" ON room_assignments (current_user_id)")
	default:
		log.Printf("Warning: no single-assignment index for dialect %q", db.Dialector.Name())
		return nil
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}
