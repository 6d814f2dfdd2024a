package database

import (
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/mattn/go-sqlite3"
)

const (
	TextCodeGuildNotFound   = "GUILD_NOT_FOUND"
	TextCodeArticleNotFound = "ARTICLE_NOT_FOUND"
	TextCodeGuildNameTaken  = "GUILD_NAME_TAKEN"
)

func guildNotFound(guildID int64) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("guild %d not found", guildID), goerrors.CategoryNotFound).
		WithTextCode(TextCodeGuildNotFound)
}

func articleNotFound(guildID, articleID int64) *goerrors.Error {
	msg := fmt.Sprintf("article %d not found", articleID)
	if guildID > 0 {
		msg = fmt.Sprintf("article %d not found in guild %d", articleID, guildID)
	}
	return goerrors.New(msg, goerrors.CategoryNotFound).WithTextCode(TextCodeArticleNotFound)
}

// internalError wraps a driver error that is not a lookup miss
func internalError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, msg)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// checkAffected turns a zero row update into the given not found error
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
