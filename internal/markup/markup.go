// Package markup converts article markdown into HTML for the article pages.
//
// Two profiles exist: Baseline for list views (CommonMark core only) and Full
// for the detail view (GFM and friends). A Renderer is not meant to be shared:
// handlers obtain a fresh one from the Factory for every request.
package markup

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/go-while/go-guildhub/internal/config"
)

// Profile selects a renderer configuration
type Profile int

const (
	Baseline Profile = iota
	Full
)

func (p Profile) String() string {
	switch p {
	case Baseline:
		return "baseline"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// Factory hands out renderers configured from MarkupConfig
type Factory struct {
	fullExtensions []goldmark.Extender
	hardWraps      bool
	allowRawHTML   bool
}

// NewFactory builds a factory. Unknown extension names are ignored.
func NewFactory(cfg config.MarkupConfig) *Factory {
	return &Factory{
		fullExtensions: collectExtensions(cfg.FullExtensions),
		hardWraps:      cfg.FullHardWraps,
		allowRawHTML:   cfg.AllowRawHTML,
	}
}

// New returns a new Renderer for the profile. Every call builds its own engine.
func (f *Factory) New(profile Profile) *Renderer {
	return &Renderer{
		profile: profile,
		engine:  f.newEngine(profile),
	}
}

func (f *Factory) newEngine(profile Profile) goldmark.Markdown {
	if profile != Full {
		// CommonMark core; goldmark omits raw HTML unless WithUnsafe is set
		return goldmark.New()
	}

	rendererOptions := []renderer.Option{}
	if f.hardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if f.allowRawHTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	if len(f.fullExtensions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(f.fullExtensions...))
	}
	return goldmark.New(engineOptions...)
}

// Renderer converts markdown to HTML with one fixed profile
type Renderer struct {
	profile Profile
	engine  goldmark.Markdown
}

// Profile returns the profile the renderer was built for
func (r *Renderer) Profile() Profile {
	return r.profile
}

// Render converts markdown source into HTML safe to embed in templates
func (r *Renderer) Render(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown render (%s): %w", r.profile, err)
	}
	return template.HTML(buf.String()), nil
}

func collectExtensions(names []string) []goldmark.Extender {
	var extenders []goldmark.Extender
	seen := map[goldmark.Extender]struct{}{}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		// aliases map to the same extender
		if _, dup := seen[ext]; dup {
			continue
		}
		extenders = append(extenders, ext)
		seen[ext] = struct{}{}
	}
	return extenders
}
