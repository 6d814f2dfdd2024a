package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-while/go-guildhub/internal/models"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	guildKey        = "guild"
)

// RequestIDMiddleware assigns every request an id. A well formed incoming
// X-Request-ID is kept, anything else is replaced by a new uuid.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GuildMiddleware resolves :guildId into the guild for all guild scoped routes
func (s *WebServer) GuildMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		guildID, ok := s.parseID(c, "guildId")
		if !ok {
			return
		}
		guild, err := s.lookupGuild(c, guildID)
		if err != nil {
			s.renderStoreError(c, err, "Failed to load guild")
			return
		}
		c.Set(guildKey, guild)
		c.Next()
	}
}

// lookupGuild returns the guild id and display name from the cache or the
// guild store. The returned guild never carries the passphrase hash.
func (s *WebServer) lookupGuild(c *gin.Context, guildID int64) (*models.Guild, error) {
	if name, ok := s.GuildCache.Get(guildID); ok {
		return &models.Guild{ID: guildID, Name: name}, nil
	}
	guild, err := s.Guilds.GetGuild(c.Request.Context(), guildID)
	if err != nil {
		return nil, err
	}
	s.GuildCache.Set(guild.ID, guild.Name)
	return &models.Guild{ID: guild.ID, Name: guild.Name}, nil
}

func currentGuild(c *gin.Context) *models.Guild {
	guild, _ := c.MustGet(guildKey).(*models.Guild)
	return guild
}

// EditorGate protects the write routes of guilds with an editor passphrase.
// The guild is read from the store on every request so a passphrase set or
// rotated with guildmgr applies at once. Any username is accepted; the
// password must match the bcrypt hash.
func (s *WebServer) EditorGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		guild, err := s.Guilds.GetGuild(c.Request.Context(), currentGuild(c).ID)
		if err != nil {
			s.renderStoreError(c, err, "Failed to load guild")
			return
		}
		s.GuildCache.Set(guild.ID, guild.Name)
		c.Set(guildKey, &models.Guild{ID: guild.ID, Name: guild.Name})

		if !guild.Protected() {
			c.Next()
			return
		}
		_, password, ok := c.Request.BasicAuth()
		if ok && checkPassword(password, guild.PassphraseHash) {
			c.Next()
			return
		}
		c.Header("WWW-Authenticate", `Basic realm="guild `+strconv.FormatInt(guild.ID, 10)+` editors", charset="UTF-8"`)
		s.renderError(c, http.StatusUnauthorized, "Editor passphrase required", "missing or wrong editor credentials")
	}
}

// checkPassword checks if password matches hash
func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// parseID reads a positive int64 path parameter. On failure a 400 page is
// rendered and the request aborted.
func (s *WebServer) parseID(c *gin.Context, param string) (int64, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.renderError(c, http.StatusBadRequest, "Invalid "+strings.TrimSuffix(param, "Id")+" id", raw)
		return 0, false
	}
	return id, true
}

// statusForError maps go-errors categories onto HTTP status codes
func statusForError(err error) int {
	switch {
	case goerrors.IsNotFound(err):
		return http.StatusNotFound
	case goerrors.IsValidation(err), goerrors.IsCategory(err, goerrors.CategoryBadInput):
		return http.StatusBadRequest
	case goerrors.IsCategory(err, goerrors.CategoryConflict):
		return http.StatusConflict
	case goerrors.IsAuth(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
