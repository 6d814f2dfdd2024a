package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embeddedMigrationsFS embed.FS

// MigrationType represents the type of database that migrations apply to
type MigrationType string

const (
	MigrationTypeMain MigrationType = "main"
)

// MigrationFile represents a migration file with its metadata
type MigrationFile struct {
	FileName    string
	Version     int
	Type        MigrationType
	Description string
}

// Migrate applies all pending main database migrations in version order
func (db *Database) Migrate() error {
	if db.mainDB == nil {
		return fmt.Errorf("main database not initialized")
	}
	if err := ensureMigrationsTable(db.mainDB); err != nil {
		return err
	}

	migrations, err := getMigrationFiles(embeddedMigrationsFS)
	if err != nil {
		log.Printf("[DB]: failed to get migration files: %v", err)
		return err
	}

	applied, err := getAppliedMigrations(db.mainDB, MigrationTypeMain)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Type != MigrationTypeMain || applied[migration.FileName] {
			continue
		}
		if err := applyMigration(db.mainDB, embeddedMigrationsFS, migration); err != nil {
			log.Printf("[DB]: failed to apply migration %s: %v", migration.FileName, err)
			return err
		}
		log.Printf("[DB]: applied migration %s", migration.FileName)
	}
	return nil
}

// parseMigrationFileName parses 0001_type_description.sql
func parseMigrationFileName(fileName string) (*MigrationFile, error) {
	if !strings.HasSuffix(fileName, ".sql") {
		return nil, fmt.Errorf("migration file must have .sql extension: %s", fileName)
	}
	name := strings.TrimSuffix(fileName, ".sql")
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid migration file name format: %s (expected format: 0001_type_description.sql)", fileName)
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid version number in migration file: %s", fileName)
	}

	var migrationType MigrationType
	switch parts[1] {
	case "main":
		migrationType = MigrationTypeMain
	default:
		return nil, fmt.Errorf("invalid database migration type %q in %s", parts[1], fileName)
	}

	return &MigrationFile{
		FileName:    fileName,
		Version:     version,
		Type:        migrationType,
		Description: parts[2],
	}, nil
}

// getMigrationFiles reads and sorts the migrations of fsys
func getMigrationFiles(fsys fs.FS) ([]*MigrationFile, error) {
	files, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []*MigrationFile
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		migration, err := parseMigrationFileName(f.Name())
		if err != nil {
			log.Printf("[DB]: Warning: skipping invalid migration file %s: %v", f.Name(), err)
			continue
		}
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureMigrationsTable(db *sql.DB) error {
	_, err := retryableExec(context.Background(), db, `CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		db_type TEXT NOT NULL DEFAULT '',
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations returns the filenames already recorded for dbType
func getAppliedMigrations(db *sql.DB, dbType MigrationType) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := retryableQuery(context.Background(), db,
		`SELECT filename FROM schema_migrations WHERE db_type = ? OR db_type = ''`, string(dbType))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations for %s: %w", dbType, err)
	}
	defer rows.Close()

	for rows.Next() {
		var fname string
		if err := rows.Scan(&fname); err != nil {
			return nil, fmt.Errorf("failed to scan migration filename for %s: %w", dbType, err)
		}
		applied[fname] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows for %s: %w", dbType, err)
	}
	return applied, nil
}

// applyMigration runs one migration and records it in a single transaction
func applyMigration(db *sql.DB, fsys fs.FS, migration *MigrationFile) error {
	content, err := fs.ReadFile(fsys, path.Join("migrations", migration.FileName))
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", migration.FileName, err)
	}

	return retryableTransactionExec(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.FileName, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (filename, db_type) VALUES (?, ?)`,
			migration.FileName, string(migration.Type)); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.FileName, err)
		}
		return nil
	})
}
