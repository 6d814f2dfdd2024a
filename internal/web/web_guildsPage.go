package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-guildhub/internal/models"
)

// guildsPage lists all guilds
func (s *WebServer) guildsPage(c *gin.Context) {
	guilds, err := s.Guilds.ListGuilds(c.Request.Context())
	if err != nil {
		s.renderStoreError(c, err, "Failed to load guilds")
		return
	}
	s.renderTemplate(c, http.StatusOK, "guild/index", "Guilds", models.GuildIndexDto{Guilds: guilds})
}
