// Package web provides the HTTP server and the guild article pages for go-guildhub
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/go-while/go-guildhub/internal/cache"
	"github.com/go-while/go-guildhub/internal/config"
	"github.com/go-while/go-guildhub/internal/markup"
	"github.com/go-while/go-guildhub/internal/models"
)

// ArticleStore persists guild articles
type ArticleStore interface {
	FetchArticles(ctx context.Context, guildID int64) ([]*models.Article, error)
	FetchArticle(ctx context.Context, guildID, articleID int64) (*models.Article, error)
	CreateArticle(ctx context.Context, guildID int64, title, content, category string) (int64, error)
	UpdateArticle(ctx context.Context, articleID int64, title, content, category string) error
}

// GuildStore resolves guilds for the guild scoped routes
type GuildStore interface {
	GetGuild(ctx context.Context, guildID int64) (*models.Guild, error)
	ListGuilds(ctx context.Context) ([]*models.Guild, error)
}

// ServerDeps are the collaborators of the WebServer. Nil Markup, Templates
// and GuildCache are built from the config.
type ServerDeps struct {
	Articles   ArticleStore
	Guilds     GuildStore
	Markup     *markup.Factory
	Templates  TemplateRenderer
	GuildCache *cache.GuildCache
}

// WebServer represents the web server
type WebServer struct {
	Articles   ArticleStore
	Guilds     GuildStore
	Router     *gin.Engine
	Config     *config.MainConfig
	Markup     *markup.Factory
	Templates  TemplateRenderer
	GuildCache *cache.GuildCache
	StartTime  time.Time
	httpServer *http.Server
}

// NewServer creates a new web server instance
func NewServer(cfg *config.MainConfig, deps ServerDeps) *WebServer {
	if cfg.Web.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	if err := router.SetTrustedProxies(cfg.Web.TrustedProxies); err != nil {
		log.Printf("[WEB]: Warning: invalid trusted proxies %v: %v", cfg.Web.TrustedProxies, err)
	}

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if cfg.Web.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	s := &WebServer{
		Articles:   deps.Articles,
		Guilds:     deps.Guilds,
		Router:     router,
		Config:     cfg,
		Markup:     deps.Markup,
		Templates:  deps.Templates,
		GuildCache: deps.GuildCache,
	}
	if s.Markup == nil {
		s.Markup = markup.NewFactory(cfg.Markup)
	}
	if s.Templates == nil {
		s.Templates = MustEmbeddedTemplates()
	}
	if s.GuildCache == nil {
		s.GuildCache = cache.NewGuildCache(cfg.Articles.GuildCacheSize,
			time.Duration(cfg.Articles.GuildCacheExpiryMin)*time.Minute)
	}

	router.Use(RequestIDMiddleware(), ApacheLogFormat(), gin.Recovery(), secure.New(secureConfig))

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))
	s.Router.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "User-agent: *\nDisallow: /guilds/*/articles/input\nDisallow: /guilds/*/articles/*/edit\n")
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/guilds")
	})
	s.Router.GET("/guilds", s.guildsPage)

	guild := s.Router.Group("/guilds/:guildId", s.GuildMiddleware())
	{
		guild.GET("", func(c *gin.Context) {
			c.Redirect(http.StatusFound, articlesPath(currentGuild(c).ID))
		})
		guild.GET("/articles", s.articleIndexPage)
		guild.GET("/articles/:articleId", s.articleShowPage)

		editor := guild.Group("", s.EditorGate())
		editor.GET("/articles/input", s.articleInputPage)
		editor.POST("/articles/create", s.articleCreate)
		editor.GET("/articles/:articleId/edit", s.articleEditPage)
		editor.PUT("/articles/:articleId/update", s.articleUpdate)
	}

	s.Router.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page not found", c.Request.URL.Path)
	})
}

// Handler returns the root handler with form method override applied
func (s *WebServer) Handler() http.Handler {
	return MethodOverride(s.Router)
}

// Start starts the web server with SSL support if configured.
// It blocks until the server stops; a graceful Shutdown returns nil.
func (s *WebServer) Start() error {
	addr := ":" + strconv.Itoa(s.Config.Web.ListenPort)
	s.StartTime = time.Now()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	if s.Config.Web.SSL {
		if s.Config.Web.CertFile == "" || s.Config.Web.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		err = s.httpServer.ListenAndServeTLS(s.Config.Web.CertFile, s.Config.Web.KeyFile)
	} else {
		log.Printf("[WEB]: Starting HTTP server on %s", addr)
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for active ones until ctx ends
func (s *WebServer) Shutdown(ctx context.Context) error {
	defer s.GuildCache.Stop()
	log.Printf("[WEB]: Guild cache stats: %v", s.GuildCache.GetStats())
	if s.httpServer == nil {
		return nil
	}
	log.Printf("[WEB]: Shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}

// ApacheLogFormat logs requests in Apache combined format followed by the request id
func ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		requestID, _ := param.Keys[requestIDKey].(string)
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s" %s`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
			requestID,
		)
	})
}

func articlesPath(guildID int64) string {
	return fmt.Sprintf("/guilds/%d/articles", guildID)
}
