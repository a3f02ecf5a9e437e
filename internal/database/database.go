package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hiyori/internal/entities"
)

// connectTimeout bounds the startup retry loop. Once the store has been
// unreachable for this long the process gives up and exits.
const connectTimeout = 2 * time.Minute

type Database struct {
	DB *gorm.DB
}

// Connect opens the backing store, retrying with exponential backoff until it
// is reachable or the overall timeout elapses, then runs the schema migration.
// A DSN that looks like a MySQL connection string selects the mysql driver;
// anything else is treated as a sqlite file path.
func Connect(databaseURL string) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectTimeout

	var db *gorm.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = gorm.Open(openDialector(databaseURL), gormCfg)
		if err != nil {
			logrus.Errorf("database not reachable, retrying: %v", err)
		}
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logrus.Info("database connected and migrated")

	return &Database{DB: db}, nil
}

// Migrate creates or updates the four catalog tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entities.Blob{},
		&entities.Collection{},
		&entities.Book{},
		&entities.Page{},
	)
}

func openDialector(databaseURL string) gorm.Dialector {
	if isMySQL(databaseURL) {
		return mysql.Open(strings.TrimPrefix(databaseURL, "mysql://"))
	}
	return sqlite.Open(databaseURL)
}

// isMySQL recognizes both DSN shapes the mysql driver accepts
// (user:pass@tcp(host)/db) and the scheme-prefixed form.
func isMySQL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "mysql://") || strings.Contains(databaseURL, "@tcp(")
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
