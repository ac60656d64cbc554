package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/romiojoseph/at-protocol/internal/atproto/aturi"
	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
	"github.com/romiojoseph/at-protocol/internal/core/blogs"
)

const sessionCookieName = "blog_session"

// LoginFunc authenticates against a PDS with an app password. Tests
// substitute a fake.
type LoginFunc func(ctx context.Context, host, handle, password string) (pds.Client, error)

// Config wires the handler dependencies.
type Config struct {
	Templates  *Templates
	Sessions   *sessions.CookieStore
	Resolver   identity.Resolver
	Collection string
	PageSize   int
	PageBudget int

	// Login defaults to the real app-password flow when nil.
	Login LoginFunc
}

// userSession is the in-memory viewing state for one signed-in user.
type userSession struct {
	handle string
	view   *blogs.Session
}

// Handlers serves the web interface.
type Handlers struct {
	templates  *Templates
	cookies    *sessions.CookieStore
	resolver   identity.Resolver
	collection string
	pageSize   int
	pageBudget int
	login      LoginFunc

	mu    sync.Mutex
	users map[string]*userSession
}

// NewHandlers creates the web handlers.
func NewHandlers(config Config) *Handlers {
	login := config.Login
	if login == nil {
		login = func(ctx context.Context, host, handle, password string) (pds.Client, error) {
			return pds.NewFromPasswordAuth(ctx, host, handle, password)
		}
	}
	return &Handlers{
		templates:  config.Templates,
		cookies:    config.Sessions,
		resolver:   config.Resolver,
		collection: config.Collection,
		pageSize:   config.PageSize,
		pageBudget: config.PageBudget,
		login:      login,
		users:      make(map[string]*userSession),
	}
}

// Routes returns the web router.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.LoginSubmit)
	r.Post("/logout", h.Logout)
	r.Get("/posts", h.PostList)
	r.Post("/posts/load-more", h.LoadMore)
	r.Get("/posts/{rkey}", h.PostDetail)
	r.Get("/export", h.Export)
	return r
}

// Index redirects to the post list when signed in, the login page
// otherwise.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(r); ok {
		http.Redirect(w, r, "/posts", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// LoginPageData holds data for the login template.
type LoginPageData struct {
	Handle string
	Error  string
}

// LoginPage handles GET /login.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(r); ok {
		http.Redirect(w, r, "/posts", http.StatusFound)
		return
	}
	h.render(w, "login.html", LoginPageData{})
}

// LoginSubmit handles POST /login: resolves the handle, signs in with the
// app password, and starts a viewing session.
func (h *Handlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	handle := r.FormValue("handle")
	password := r.FormValue("password")
	if handle == "" || password == "" {
		h.render(w, "login.html", LoginPageData{Handle: handle, Error: "Handle and app password are required."})
		return
	}

	ident, err := h.resolver.Resolve(r.Context(), handle)
	if err != nil {
		slog.Warn("login: handle did not resolve", "handle", handle, "error", err)
		h.render(w, "login.html", LoginPageData{Handle: handle, Error: "Could not find that handle."})
		return
	}

	client, err := h.login(r.Context(), ident.PDSURL, ident.Handle, password)
	if err != nil {
		slog.Warn("login: password auth failed", "handle", handle, "error", err)
		h.render(w, "login.html", LoginPageData{Handle: handle, Error: "Sign in failed. Check the app password."})
		return
	}

	h.startSession(ident.DID, ident.Handle, client)

	cookie, _ := h.cookies.Get(r, sessionCookieName)
	cookie.Values["did"] = ident.DID
	cookie.Values["handle"] = ident.Handle
	if err := cookie.Save(r, w); err != nil {
		slog.Error("failed to save session cookie", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/posts", http.StatusFound)
}

// Logout handles POST /logout: drops the viewing session and expires the
// cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := h.currentUser(r); ok {
		user.view.Reset()
	}

	cookie, _ := h.cookies.Get(r, sessionCookieName)
	did, _ := cookie.Values["did"].(string)
	if did != "" {
		h.mu.Lock()
		delete(h.users, did)
		h.mu.Unlock()
	}

	cookie.Options.MaxAge = -1
	if err := cookie.Save(r, w); err != nil {
		slog.Warn("failed to expire session cookie", "error", err)
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

// postItem is one list entry with the rkey split out for links.
type postItem struct {
	RKey  string
	Value blogs.Value
}

// PostListData holds data for the post list template.
type PostListData struct {
	Handle     string
	Records    []postItem
	Categories []string
	View       blogs.ViewState
	SortParam  string
}

// PostList handles GET /posts. Query params q, category and sort adjust
// the view; the filtered projection is recomputed from the cache.
func (h *Handlers) PostList(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	query := r.URL.Query()
	if query.Has("q") {
		user.view.SetSearch(query.Get("q"))
	}
	if query.Has("category") {
		user.view.SetCategory(query.Get("category"))
	}
	if query.Has("sort") {
		if query.Get("sort") == "oldest" {
			user.view.SetSort(blogs.SortOldest)
		} else {
			user.view.SetSort(blogs.SortNewest)
		}
	}
	sortParam := "newest"
	if user.view.View().SortOrder == blogs.SortOldest {
		sortParam = "oldest"
	}

	// first visit pulls the first page; later pages come via load-more
	if user.view.Cache().Len() == 0 && !user.view.View().AllLoaded {
		if _, err := user.view.LoadMore(r.Context()); err != nil {
			slog.Warn("failed to load posts", "handle", user.handle, "error", err)
		}
	}

	records := user.view.Visible()
	items := make([]postItem, 0, len(records))
	for _, rec := range records {
		items = append(items, postItem{RKey: aturi.RKey(rec.URI), Value: rec.Value})
	}

	h.render(w, "posts.html", PostListData{
		Handle:     user.handle,
		Records:    items,
		Categories: user.view.Cache().Categories(),
		View:       user.view.View(),
		SortParam:  sortParam,
	})
}

// LoadMore handles POST /posts/load-more and bounces back to the list.
func (h *Handlers) LoadMore(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if _, err := user.view.LoadMore(r.Context()); err != nil {
		slog.Warn("load more failed", "handle", user.handle, "error", err)
	}

	http.Redirect(w, r, "/posts", http.StatusFound)
}

// PostDetailData holds data for the post detail template.
type PostDetailData struct {
	Handle string
	Value  blogs.Value
}

// PostDetail handles GET /posts/{rkey}.
func (h *Handlers) PostDetail(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	rkey := chi.URLParam(r, "rkey")
	rec, found := h.findByRKey(user, rkey)
	if !found {
		// the post may live beyond the loaded pages
		if err := user.view.LoadAll(r.Context()); err != nil {
			slog.Warn("failed to load posts", "handle", user.handle, "error", err)
		}
		rec, found = h.findByRKey(user, rkey)
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	h.render(w, "post.html", PostDetailData{
		Handle: user.handle,
		Value:  rec.Value,
	})
}

// Export handles GET /export: downloads the loaded posts as JSON.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := user.view.LoadAll(r.Context()); err != nil {
		slog.Warn("failed to load posts for export", "handle", user.handle, "error", err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blogs.ExportFilename(time.Now())))

	if err := blogs.Export(w, user.view.Visible()); err != nil {
		slog.Error("export write failed", "handle", user.handle, "error", err)
	}
}

// startSession creates the viewing session for a freshly signed-in user.
func (h *Handlers) startSession(did, handle string, client pds.Client) {
	session := blogs.NewSession(blogs.NewFetcher(client, h.collection), h.pageSize, h.pageBudget)
	session.SetAuthor(did)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[did] = &userSession{handle: handle, view: session}
}

// currentUser resolves the request's cookie to a live viewing session.
// After a restart the session is rebuilt read-only from the resolved PDS,
// so browsing keeps working without a fresh password.
func (h *Handlers) currentUser(r *http.Request) (*userSession, bool) {
	cookie, err := h.cookies.Get(r, sessionCookieName)
	if err != nil {
		return nil, false
	}
	did, _ := cookie.Values["did"].(string)
	handle, _ := cookie.Values["handle"].(string)
	if did == "" {
		return nil, false
	}

	h.mu.Lock()
	user, ok := h.users[did]
	h.mu.Unlock()
	if ok {
		return user, true
	}

	ident, err := h.resolver.Resolve(r.Context(), did)
	if err != nil {
		slog.Warn("failed to rebuild viewing session", "did", did, "error", err)
		return nil, false
	}
	client, err := pds.NewReadOnly(ident.PDSURL)
	if err != nil {
		slog.Warn("failed to rebuild viewing session", "did", did, "error", err)
		return nil, false
	}

	h.startSession(did, handle, client)

	h.mu.Lock()
	user = h.users[did]
	h.mu.Unlock()
	return user, true
}

// findByRKey scans the cached records for a matching rkey. Detail pages
// do not depend on the active filters.
func (h *Handlers) findByRKey(user *userSession, rkey string) (blogs.Record, bool) {
	for _, rec := range user.view.Cache().All() {
		if aturi.RKey(rec.URI) == rkey {
			return rec, true
		}
	}
	return blogs.Record{}, false
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	if err := h.templates.Render(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
