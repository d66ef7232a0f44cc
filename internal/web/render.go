package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/errors"
	"github.com/hpungsan/binder/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "viewer", "saved"
}

// ViewerPageData is the template data for the search/selection page.
type ViewerPageData struct {
	PageData
	Query  string
	View   *ops.ViewOutput
	Detail *CardDetail // set when View resolved to one card
}

// SavedPageData is the template data for the saved cards page.
type SavedPageData struct {
	PageData
	Items      []ops.CardSummary
	Pagination ops.Pagination
	NamePrefix string
	Supertype  string
	Rarity     string
	Filtered   bool
}

// DetailPageData is the template data for a saved card's page.
type DetailPageData struct {
	PageData
	Card *CardDetail
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// CardDetail is a card flattened for templates.
type CardDetail struct {
	ID         string
	Name       string
	ImageSmall string
	ImageLarge string
	Supertype  string
	Subtypes   []string
	HP         string
	Types      []string
	Rarity     string
	SetName    string
	Number     string
	Artist     string
	Attacks    []card.Attack
	Flavor     template.HTML
	Rules      []template.HTML
	Price      string
	Saved      bool
}

// newCardDetail flattens c. Flavor text and rules are rendered as markdown.
func newCardDetail(c card.Card, saved bool) *CardDetail {
	d := &CardDetail{
		ID:         c.ID,
		Name:       c.Name,
		ImageSmall: c.Images.Small,
		ImageLarge: c.Images.Large,
		Supertype:  c.Supertype(),
		Subtypes:   c.Subtypes(),
		HP:         c.HP(),
		Types:      c.Types(),
		Rarity:     c.Rarity(),
		SetName:    c.SetName(),
		Number:     c.Number(),
		Artist:     c.Artist(),
		Attacks:    c.Attacks(),
		Saved:      saved,
	}
	if d.ImageLarge == "" {
		d.ImageLarge = d.ImageSmall
	}
	if ft := c.FlavorText(); ft != "" {
		d.Flavor = renderMarkdown(ft)
	}
	for _, rule := range c.Rules() {
		d.Rules = append(d.Rules, renderMarkdown(rule))
	}
	if p, ok := c.MarketPrice(); ok {
		d.Price = fmt.Sprintf("$%.2f", p)
	}
	return d
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *zap.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcMap := template.FuncMap{
		"add":  func(a, b int) int { return a + b },
		"sub":  func(a, b int) int { return a - b },
		"join": strings.Join,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html", "card.html"))

	pages := map[string]string{
		"viewer": "viewer.html",
		"saved":  "saved.html",
		"detail": "detail.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if isHTMX(req) {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for htmx partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.logger.Error("template not found", zap.String("template", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution failed", zap.String("template", page), zap.String("block", block), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var bErr *errors.BinderError
	if !stderrors.As(err, &bErr) {
		bErr = errors.NewInternal(err)
	}

	status := bErr.Status
	message := bErr.Message
	if status >= 500 {
		r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
	}

	// HTMX request: return HTML fragment
	if isHTMX(req) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(bErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the input is not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func isHTMX(r *http.Request) bool {
	return r != nil && r.Header.Get("HX-Request") == "true"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
