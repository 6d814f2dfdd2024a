package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"

	"github.com/go-while/go-guildhub/internal/config"
	"github.com/go-while/go-guildhub/internal/models"
)

// TemplateRenderer executes a named page template with its view data
type TemplateRenderer interface {
	Render(w io.Writer, name string, data interface{}) error
}

// PageData wraps a view model with the data every page layout needs
type PageData struct {
	Title      string
	AppVersion string
	RequestID  string
	Model      interface{}
}

// ErrorPageData represents data for the error page
type ErrorPageData struct {
	StatusCode int
	Error      string
}

// pageTemplates lists every page rendered through base.html
var pageTemplates = []string{
	"article/index",
	"article/show",
	"article/input",
	"article/edit",
	"guild/index",
	"error",
}

var templateFuncs = template.FuncMap{
	"categoryLabel": models.CategoryLabel,
}

// EmbeddedTemplates renders the page templates compiled into the binary.
// Each page is parsed together with base.html into its own set so the
// "content" blocks of different pages never collide.
type EmbeddedTemplates struct {
	pages map[string]*template.Template
}

// NewEmbeddedTemplates parses all page templates from fsys
func NewEmbeddedTemplates(fsys fs.FS) (*EmbeddedTemplates, error) {
	et := &EmbeddedTemplates{pages: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).
			ParseFS(fsys, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		et.pages[name] = tmpl
	}
	return et, nil
}

// MustEmbeddedTemplates parses the templates of EmbeddedTemplatesFS or panics
func MustEmbeddedTemplates() *EmbeddedTemplates {
	et, err := NewEmbeddedTemplates(EmbeddedTemplatesFS)
	if err != nil {
		panic(err)
	}
	return et
}

// Render executes the page template name
func (et *EmbeddedTemplates) Render(w io.Writer, name string, data interface{}) error {
	tmpl, ok := et.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return tmpl.ExecuteTemplate(w, "base.html", data)
}

// renderTemplate renders a page into a buffer first so a template error
// still produces a clean error page
func (s *WebServer) renderTemplate(c *gin.Context, status int, name, title string, model interface{}) {
	data := PageData{
		Title:      title,
		AppVersion: config.AppVersion,
		RequestID:  requestID(c),
		Model:      model,
	}
	var buf bytes.Buffer
	if err := s.Templates.Render(&buf, name, data); err != nil {
		log.Printf("[WEB]: Error rendering template %s: %v", name, err)
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderError renders the error page and aborts the handler chain
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	log.Printf("[WEB]: Error %d: %s - %s (request %s)", statusCode, message, errstring, requestID(c))
	c.Abort()

	data := PageData{
		Title:      "Error",
		AppVersion: config.AppVersion,
		RequestID:  requestID(c),
		Model:      ErrorPageData{StatusCode: statusCode, Error: message},
	}
	var buf bytes.Buffer
	if err := s.Templates.Render(&buf, "error", data); err != nil {
		log.Printf("[WEB]: Error rendering error template: %v", err)
		c.String(statusCode, "Error: %s", message)
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
}

// renderStoreError maps a store failure onto an error page
func (s *WebServer) renderStoreError(c *gin.Context, err error, message string) {
	status := statusForError(err)
	wrapped := goerrors.Wrap(err, goerrors.CategoryInternal, message).WithRequestID(requestID(c))
	text := message
	if status == http.StatusNotFound {
		text = "Not found"
	}
	s.renderError(c, status, text, wrapped.Error())
}
