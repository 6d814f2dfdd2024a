package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/go-while/go-guildhub/internal/models"
)

const guildColumns = `id, name, passphrase_hash, created_at, updated_at`

// GetGuild retrieves a guild by id
func (db *Database) GetGuild(ctx context.Context, guildID int64) (*models.Guild, error) {
	g := &models.Guild{}
	err := retryableQueryRowScan(ctx, db.mainDB,
		`SELECT `+guildColumns+` FROM guilds WHERE id = ?`, []interface{}{guildID},
		&g.ID, &g.Name, &g.PassphraseHash, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, guildNotFound(guildID)
	}
	if err != nil {
		return nil, internalError(err, fmt.Sprintf("failed to get guild %d", guildID))
	}
	return g, nil
}

// ListGuilds returns all guilds ordered by id
func (db *Database) ListGuilds(ctx context.Context) ([]*models.Guild, error) {
	rows, err := retryableQuery(ctx, db.mainDB, `SELECT `+guildColumns+` FROM guilds ORDER BY id`)
	if err != nil {
		return nil, internalError(err, "failed to list guilds")
	}
	defer rows.Close()

	var guilds []*models.Guild
	for rows.Next() {
		g := &models.Guild{}
		if err := rows.Scan(&g.ID, &g.Name, &g.PassphraseHash, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, internalError(err, "failed to scan guild")
		}
		guilds = append(guilds, g)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(err, "failed to iterate guilds")
	}
	return guilds, nil
}

// CreateGuild inserts a guild and returns its id. Names are unique.
func (db *Database) CreateGuild(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, goerrors.New("guild name is required", goerrors.CategoryBadInput)
	}

	res, err := retryableExec(ctx, db.mainDB, `INSERT INTO guilds (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, goerrors.New(fmt.Sprintf("guild name %q already exists", name), goerrors.CategoryConflict).
				WithTextCode(TextCodeGuildNameTaken)
		}
		return 0, internalError(err, "failed to create guild")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, internalError(err, "failed to read guild id")
	}
	return id, nil
}

// RenameGuild changes the display name of a guild
func (db *Database) RenameGuild(ctx context.Context, guildID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return goerrors.New("guild name is required", goerrors.CategoryBadInput)
	}

	res, err := retryableExec(ctx, db.mainDB,
		`UPDATE guilds SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, guildID)
	if err != nil {
		if isUniqueViolation(err) {
			return goerrors.New(fmt.Sprintf("guild name %q already exists", name), goerrors.CategoryConflict).
				WithTextCode(TextCodeGuildNameTaken)
		}
		return internalError(err, fmt.Sprintf("failed to rename guild %d", guildID))
	}
	return checkAffected(res, guildNotFound(guildID))
}

// SetGuildPassphrase stores the bcrypt hash of the editor passphrase.
// An empty hash opens the guild for editing.
func (db *Database) SetGuildPassphrase(ctx context.Context, guildID int64, hash string) error {
	res, err := retryableExec(ctx, db.mainDB,
		`UPDATE guilds SET passphrase_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, hash, guildID)
	if err != nil {
		return internalError(err, fmt.Sprintf("failed to set passphrase of guild %d", guildID))
	}
	return checkAffected(res, guildNotFound(guildID))
}
