package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-while/go-guildhub/internal/models"
)

const articleColumns = `id, guild_id, title, content, category, created_at, updated_at`

func scanArticle(scan func(dest ...interface{}) error) (*models.Article, error) {
	a := &models.Article{}
	if err := scan(&a.ID, &a.GuildID, &a.Title, &a.Content, &a.Category, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// FetchArticles returns all articles of a guild ordered by id
func (db *Database) FetchArticles(ctx context.Context, guildID int64) ([]*models.Article, error) {
	rows, err := retryableQuery(ctx, db.mainDB,
		`SELECT `+articleColumns+` FROM articles WHERE guild_id = ? ORDER BY id`, guildID)
	if err != nil {
		return nil, internalError(err, fmt.Sprintf("failed to fetch articles of guild %d", guildID))
	}
	defer rows.Close()

	articles := []*models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, internalError(err, "failed to scan article")
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(err, "failed to iterate articles")
	}
	return articles, nil
}

// FetchArticle returns one article by guild and id
func (db *Database) FetchArticle(ctx context.Context, guildID, articleID int64) (*models.Article, error) {
	a := &models.Article{}
	err := retryableQueryRowScan(ctx, db.mainDB,
		`SELECT `+articleColumns+` FROM articles WHERE guild_id = ? AND id = ?`,
		[]interface{}{guildID, articleID},
		&a.ID, &a.GuildID, &a.Title, &a.Content, &a.Category, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, articleNotFound(guildID, articleID)
	}
	if err != nil {
		return nil, internalError(err, fmt.Sprintf("failed to fetch article %d", articleID))
	}
	return a, nil
}

// CreateArticle inserts an article into a guild and returns its id
func (db *Database) CreateArticle(ctx context.Context, guildID int64, title, content, category string) (int64, error) {
	res, err := retryableExec(ctx, db.mainDB,
		`INSERT INTO articles (guild_id, title, content, category) VALUES (?, ?, ?, ?)`,
		guildID, title, content, category)
	if err != nil {
		return 0, internalError(err, fmt.Sprintf("failed to create article in guild %d", guildID))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, internalError(err, "failed to read article id")
	}
	return id, nil
}

// UpdateArticle replaces title, content and category of an article by id
func (db *Database) UpdateArticle(ctx context.Context, articleID int64, title, content, category string) error {
	res, err := retryableExec(ctx, db.mainDB,
		`UPDATE articles SET title = ?, content = ?, category = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, content, category, articleID)
	if err != nil {
		return internalError(err, fmt.Sprintf("failed to update article %d", articleID))
	}
	return checkAffected(res, articleNotFound(0, articleID))
}
