package db

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database variables
var (
	Db   *gorm.DB // GORM database instance
	Path string   // Path to the SQLite database file
)

func init() {
	_ = ConfigurePathErr()
}

// ConfigurePathErr resolves the database path from the environment.
// STOREKEEPER_HOME wins over XDG_DATA_HOME, which wins over ~/.storekeeper.
func ConfigurePathErr() error {
	if home := os.Getenv("STOREKEEPER_HOME"); home != "" {
		Path = filepath.Join(home, "storekeeper.db")
		return nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		Path = filepath.Join(xdg, "storekeeper", "storekeeper.db")
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		Path = filepath.Join(os.TempDir(), "storekeeper", "storekeeper.db")
		return nil
	}
	Path = filepath.Join(home, ".storekeeper", "storekeeper.db")
	return nil
}

// InitDB initializes the database and creates the tables if they don't exist.
// It returns an error if any step in the initialization process fails.
func InitDB() error {
	if err := createDBDirectory(); err != nil {
		return err
	}

	if err := openDatabase(); err != nil {
		return err
	}

	if err := migrateTables(); err != nil {
		return err
	}

	configureLogger()

	log.Info().Str("path", Path).Msg("Database initialized successfully")
	return nil
}

// createDBDirectory creates the directory for the database file if it does not exist.
func createDBDirectory() error {
	dir := filepath.Dir(Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error().Err(err).Msg("Failed to create database directory")
			return err
		}
	}
	return nil
}

// openDatabase opens a connection to the SQLite database.
func openDatabase() error {
	var err error
	Db, err = gorm.Open(sqlite.Open(Path), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return err
	}
	// SQLite allows one writer; the catalogue refresh writes from several workers.
	sqlDB, err := Db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// migrateTables performs automatic migration for all tables.
func migrateTables() error {
	if err := Migrate(Db); err != nil {
		log.Error().Err(err).Msg("Failed to auto-migrate database")
		return err
	}
	return nil
}

// Migrate creates or updates the schema on the given connection.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&Token{}, &Profile{}, &Product{})
}

// configureLogger silences GORM unless debug logging is enabled.
func configureLogger() {
	if zerolog.GlobalLevel() == zerolog.Disabled {
		Db.Logger = Db.Logger.LogMode(logger.Silent)
	} else {
		Db.Logger = Db.Logger.LogMode(logger.Info)
	}
}

// GetDB returns the global database connection.
func GetDB() *gorm.DB { return Db }

// CloseDB closes the database connection. A nil connection is not an error.
func CloseDB() error {
	if Db == nil {
		return nil
	}
	sqlDB, err := Db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get raw database connection")
		return err
	}
	return sqlDB.Close()
}

// Shutdown closes the database and only logs failures. Used from signal handlers.
func Shutdown() {
	if err := CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database during shutdown")
	}
}
