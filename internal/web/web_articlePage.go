package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-guildhub/internal/markup"
	"github.com/go-while/go-guildhub/internal/models"
)

// articleIndexPage lists all articles of a guild rendered with the baseline profile
func (s *WebServer) articleIndexPage(c *gin.Context) {
	guild := currentGuild(c)

	articles, err := s.Articles.FetchArticles(c.Request.Context(), guild.ID)
	if err != nil {
		s.renderStoreError(c, err, "Failed to load articles")
		return
	}

	renderer := s.Markup.New(markup.Baseline)
	dto := models.ArticleIndexDto{
		GuildID:   guild.ID,
		GuildName: guild.Name,
		Articles:  make([]models.ArticleDto, 0, len(articles)),
	}
	for _, article := range articles {
		html, err := renderer.Render(article.Content)
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, "Failed to render article", err.Error())
			return
		}
		dto.Articles = append(dto.Articles, models.ArticleDto{
			ID:          article.ID,
			Title:       article.Title,
			Category:    article.Category,
			HTMLContent: html,
		})
	}

	s.renderTemplate(c, http.StatusOK, "article/index", guild.Name+" articles", dto)
}

// articleShowPage shows one article rendered with the full profile
func (s *WebServer) articleShowPage(c *gin.Context) {
	guild := currentGuild(c)
	articleID, ok := s.parseID(c, "articleId")
	if !ok {
		return
	}

	article, err := s.Articles.FetchArticle(c.Request.Context(), guild.ID, articleID)
	if err != nil {
		s.renderStoreError(c, err, "Failed to load article")
		return
	}

	html, err := s.Markup.New(markup.Full).Render(article.Content)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to render article", err.Error())
		return
	}

	dto := models.ArticleShowDto{
		GuildID:   guild.ID,
		GuildName: guild.Name,
		Article: models.ArticleDto{
			ID:          article.ID,
			Title:       article.Title,
			Category:    article.Category,
			HTMLContent: html,
		},
	}
	s.renderTemplate(c, http.StatusOK, "article/show", article.Title, dto)
}

// articleInputPage shows the blank create form
func (s *WebServer) articleInputPage(c *gin.Context) {
	s.renderArticleForm(c, http.StatusOK, "article/input", 0, models.ArticleForm{}, nil)
}

// articleCreate stores a new article or shows the input form again with errors
func (s *WebServer) articleCreate(c *gin.Context) {
	guild := currentGuild(c)

	result := s.bindArticleForm(c)
	if !result.Valid() {
		s.renderArticleForm(c, http.StatusBadRequest, "article/input", 0, result.Form, result.Errors)
		return
	}

	form := result.Form
	articleID, err := s.Articles.CreateArticle(c.Request.Context(), guild.ID, form.Title, form.Content, form.Category)
	if err != nil {
		s.renderStoreError(c, err, "Failed to create article")
		return
	}
	log.Printf("[WEB]: Created article %d in guild %d", articleID, guild.ID)

	c.Redirect(http.StatusSeeOther, articlesPath(guild.ID))
}

// articleEditPage shows the edit form filled from the stored article.
// The article is fetched through the path guild but its GuildID is not compared again.
func (s *WebServer) articleEditPage(c *gin.Context) {
	guild := currentGuild(c)
	articleID, ok := s.parseID(c, "articleId")
	if !ok {
		return
	}

	article, err := s.Articles.FetchArticle(c.Request.Context(), guild.ID, articleID)
	if err != nil {
		s.renderStoreError(c, err, "Failed to load article")
		return
	}

	s.renderArticleForm(c, http.StatusOK, "article/edit", articleID, models.NewArticleForm(article), nil)
}

// articleUpdate saves an edited article or shows the edit form again with errors
func (s *WebServer) articleUpdate(c *gin.Context) {
	guild := currentGuild(c)
	articleID, ok := s.parseID(c, "articleId")
	if !ok {
		return
	}

	result := s.bindArticleForm(c)
	if !result.Valid() {
		s.renderArticleForm(c, http.StatusBadRequest, "article/edit", articleID, result.Form, result.Errors)
		return
	}

	form := result.Form
	if err := s.Articles.UpdateArticle(c.Request.Context(), articleID, form.Title, form.Content, form.Category); err != nil {
		s.renderStoreError(c, err, "Failed to update article")
		return
	}
	log.Printf("[WEB]: Updated article %d (guild %d)", articleID, guild.ID)

	c.Redirect(http.StatusSeeOther, articlesPath(guild.ID))
}

func (s *WebServer) renderArticleForm(c *gin.Context, status int, name string, articleID int64, form models.ArticleForm, fieldErrors map[string]string) {
	guild := currentGuild(c)
	dto := models.ArticleFormDto{
		GuildID:     guild.ID,
		GuildName:   guild.Name,
		ArticleID:   articleID,
		Categories:  models.ArticleCategories,
		Form:        form,
		FieldErrors: fieldErrors,
	}
	title := "New article"
	if articleID > 0 {
		title = "Edit article"
	}
	s.renderTemplate(c, status, name, title, dto)
}
