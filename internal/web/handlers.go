package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/binder/internal/collection"
	"github.com/hpungsan/binder/internal/errors"
	"github.com/hpungsan/binder/internal/ops"
	"github.com/hpungsan/binder/internal/viewer"
)

// sessionCookie carries the viewer session ID.
const sessionCookie = "binder_session"

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	mgr      *collection.Manager
	sessions *viewer.Sessions
	renderer *Renderer
}

// session returns the caller's viewer session, starting one if needed.
// Must run before anything is written to w.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) *viewer.Session {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	s, created := h.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    s.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

// HandleViewer handles GET /cards: the current search/selection view.
func (h *Handlers) HandleViewer(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	h.renderView(w, r, ops.Current(sess, h.mgr))
}

// HandleSearch handles GET /cards/search: run a query by code or name.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	query := r.URL.Query().Get("q")

	out, err := ops.Search(r.Context(), sess, h.mgr, ops.SearchInput{Query: query})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderView(w, r, out)
}

// HandleSelect handles POST /cards/select: pick a candidate by index or id.
func (h *Handlers) HandleSelect(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.SelectInput{ID: r.FormValue("id")}
	if s := r.FormValue("index"); s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("index must be an integer"))
			return
		}
		input.Index = &i
	}

	out, err := ops.Select(sess, h.mgr, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.afterAction(w, r, out)
}

// HandleSave handles POST /cards/save: save the selected card.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := ops.Save(r.Context(), sess, h.mgr, ops.SaveInput{ID: r.FormValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: swap the save button for its saved state
	if isHTMX(r) {
		h.renderer.renderBlock(w, http.StatusOK, "viewer", "save-button", &CardDetail{ID: result.ID, Saved: true})
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	// Default: redirect
	http.Redirect(w, r, "/cards", http.StatusSeeOther)
}

// HandleReset handles POST /cards/reset: clear the current view.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	h.afterAction(w, r, ops.Reset(sess, h.mgr))
}

// HandleDismiss handles POST /cards/dismiss: hide the current notice.
func (h *Handlers) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	h.afterAction(w, r, ops.DismissNotice(sess, h.mgr))
}

// HandleSaved handles GET /cards/saved: the saved collection.
// The collection is re-read so saves from another process show up.
func (h *Handlers) HandleSaved(w http.ResponseWriter, r *http.Request) {
	// On a failed read the last known collection is listed.
	_ = h.mgr.Reload(r.Context())

	q := r.URL.Query()
	input := ops.ListSavedInput{
		NamePrefix: q.Get("name_prefix"),
		Supertype:  q.Get("supertype"),
		Rarity:     q.Get("rarity"),
		Limit:      parseIntParam(r, "limit", 60),
		Offset:     parseIntParam(r, "offset", 0),
	}

	result, err := ops.ListSaved(h.mgr, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "saved", SavedPageData{
		PageData: PageData{
			Title:   "Saved cards",
			Version: h.renderer.version,
			Nav:     "saved",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		NamePrefix: input.NamePrefix,
		Supertype:  input.Supertype,
		Rarity:     input.Rarity,
		Filtered:   input.NamePrefix != "" || input.Supertype != "" || input.Rarity != "",
	})
}

// HandleDetail handles GET /cards/{id}: view a saved card.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("card ID is required"))
		return
	}

	c, ok := h.mgr.Get(id)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, c)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   c.Name,
			Version: h.renderer.version,
			Nav:     "saved",
		},
		Card: newCardDetail(c, true),
	})
}

// afterAction answers a POST that changed the view: the view itself for
// htmx and JSON callers, otherwise a redirect back to the viewer.
func (h *Handlers) afterAction(w http.ResponseWriter, r *http.Request, out *ops.ViewOutput) {
	if isHTMX(r) || wantsJSON(r) {
		h.renderView(w, r, out)
		return
	}
	http.Redirect(w, r, "/cards", http.StatusSeeOther)
}

// renderView renders a session view as JSON, a results fragment, or the full page.
func (h *Handlers) renderView(w http.ResponseWriter, r *http.Request, out *ops.ViewOutput) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	data := ViewerPageData{
		PageData: PageData{
			Title:   "Card viewer",
			Version: h.renderer.version,
			Nav:     "viewer",
		},
		Query: out.Query,
		View:  out,
	}
	if out.Selected != nil {
		data.Detail = newCardDetail(*out.Selected, out.Saved)
		data.Title = out.Selected.Name
	}

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "viewer", "results", data)
		return
	}
	h.renderer.renderPage(w, r, "viewer", data)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
