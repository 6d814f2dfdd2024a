// Package database provides the SQLite store for guilds and their articles
package database

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// DBConfig holds the connection settings of the main database
type DBConfig struct {
	MainDB          string // path to the sqlite file
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	WALMode         bool
	CacheSize       int // pages, negative values are KiB
	SyncMode        string
	BusyTimeout     time.Duration
}

// DefaultDBConfig returns the settings used by cmd/web and cmd/guildmgr
func DefaultDBConfig(path string) *DBConfig {
	return &DBConfig{
		MainDB:          path,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		WALMode:         true,
		CacheSize:       -8000,
		SyncMode:        "NORMAL",
		BusyTimeout:     30 * time.Second,
	}
}

// Database wraps the main sqlite connection
type Database struct {
	mainDB   *sql.DB
	dbconfig *DBConfig
}

// OpenDatabase opens the main database and applies pragmas.
// Callers run Migrate before using the store.
func OpenDatabase(dbconfig *DBConfig) (*Database, error) {
	if dbconfig == nil || dbconfig.MainDB == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	db := &Database{dbconfig: dbconfig}
	if err := db.initMainDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize main database: %w", err)
	}
	log.Printf("[DB]: opened %s (wal=%t)", dbconfig.MainDB, dbconfig.WALMode)
	return db, nil
}

// GetMainDB returns the main database connection for direct access
func (db *Database) GetMainDB() *sql.DB {
	return db.mainDB
}

// initMainDB initializes the main database connection
func (db *Database) initMainDB() error {
	dbPath := db.dbconfig.MainDB
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	mainDB, err := sql.Open("sqlite3", db.dsn())
	if err != nil {
		return fmt.Errorf("failed to open main database: %w", err)
	}

	if db.dbconfig.MaxOpenConns > 0 {
		mainDB.SetMaxOpenConns(db.dbconfig.MaxOpenConns)
	}
	if db.dbconfig.MaxIdleConns > 0 {
		mainDB.SetMaxIdleConns(db.dbconfig.MaxIdleConns)
	}
	if db.dbconfig.ConnMaxLifetime > 0 {
		mainDB.SetConnMaxLifetime(db.dbconfig.ConnMaxLifetime)
	}

	if err := mainDB.Ping(); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to ping main database: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to ping main database: %w", err)
	}

	db.mainDB = mainDB
	return nil
}

// dsn returns the sqlite file path with its pragmas as driver parameters.
// foreign_keys, busy_timeout, synchronous and cache_size are per connection,
// so the driver applies them to every connection the pool opens.
func (db *Database) dsn() string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	busy := db.dbconfig.BusyTimeout
	if busy <= 0 {
		busy = 30 * time.Second
	}
	params.Set("_busy_timeout", strconv.FormatInt(busy.Milliseconds(), 10))
	if db.dbconfig.CacheSize != 0 {
		params.Set("_cache_size", strconv.Itoa(db.dbconfig.CacheSize))
	}
	if db.dbconfig.SyncMode != "" {
		params.Set("_synchronous", db.dbconfig.SyncMode)
	}
	if db.dbconfig.WALMode {
		params.Set("_journal_mode", "WAL")
	}
	return db.dbconfig.MainDB + "?" + params.Encode()
}

// Shutdown closes the main database
func (db *Database) Shutdown() error {
	if db == nil || db.mainDB == nil {
		return nil
	}
	log.Printf("[DB]: closing %s", db.dbconfig.MainDB)
	if err := db.mainDB.Close(); err != nil {
		return fmt.Errorf("failed to close main database: %w", err)
	}
	db.mainDB = nil
	return nil
}
