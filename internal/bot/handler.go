// Package bot turns Telegram webhook updates into blog browsing commands.
// Each chat gets its own viewing session; the selected author survives
// restarts through the chat state store.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
	"github.com/romiojoseph/at-protocol/internal/core/blogs"
	"github.com/romiojoseph/at-protocol/internal/store/sqlite"
	"github.com/romiojoseph/at-protocol/internal/telegram"
)

// maxListReply caps how many posts a single reply lists.
const maxListReply = 15

// telegram messages top out at 4096 characters; leave headroom.
const maxReplyLen = 3900

// Sender delivers replies back to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ChatStore persists the per-chat selected author.
type ChatStore interface {
	SaveChatState(ctx context.Context, state sqlite.ChatState) error
	LoadChatState(ctx context.Context, chatID int64) (*sqlite.ChatState, error)
}

// ClientFactory opens a read-only PDS client for an author's host.
// Authors can live on different PDS instances, so each chat session gets
// a client for the host its author resolved to.
type ClientFactory func(host string) (pds.Client, error)

type chatSession struct {
	session *blogs.Session
	handle  string
}

// Config wires the webhook handler dependencies. Secret is the Telegram
// webhook secret token; empty disables verification. Clients defaults to
// the real read-only PDS client when nil.
type Config struct {
	Sender     Sender
	Resolver   identity.Resolver
	Chats      ChatStore
	Collection string
	Secret     string
	PageSize   int
	PageBudget int
	Clients    ClientFactory
}

// Handler serves the Telegram webhook.
type Handler struct {
	sender     Sender
	resolver   identity.Resolver
	chats      ChatStore
	collection string
	secret     string
	pageSize   int
	pageBudget int
	clients    ClientFactory

	mu       sync.Mutex
	sessions map[int64]*chatSession
}

// NewHandler creates the webhook handler.
func NewHandler(config Config) *Handler {
	clients := config.Clients
	if clients == nil {
		clients = pds.NewReadOnly
	}
	return &Handler{
		sender:     config.Sender,
		resolver:   config.Resolver,
		chats:      config.Chats,
		collection: config.Collection,
		secret:     config.Secret,
		pageSize:   config.PageSize,
		pageBudget: config.PageBudget,
		clients:    clients,
		sessions:   make(map[int64]*chatSession),
	}
}

// Routes returns the webhook router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhook", h.handleWebhook)
	return r
}

// handleWebhook always answers 200 once the secret checks out: Telegram
// retries non-2xx deliveries, and a bad command is not worth a retry.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !telegram.CheckWebhookSecret(r, h.secret) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	if update.Message != nil && update.Message.Text != "" {
		if err := h.handleCommand(r.Context(), update.Message.Chat.ID, update.Message.Text); err != nil {
			log.Printf("[BOT] chat %d: %v", update.Message.Chat.ID, err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, text string) error {
	cmd, arg := splitCommand(text)

	switch cmd {
	case "/start":
		return h.reply(ctx, chatID, usageText)
	case "/author":
		return h.cmdAuthor(ctx, chatID, arg)
	case "/list":
		return h.cmdList(ctx, chatID)
	case "/search":
		return h.cmdSearch(ctx, chatID, arg)
	case "/category":
		return h.cmdCategory(ctx, chatID, arg)
	case "/sort":
		return h.cmdSort(ctx, chatID, arg)
	case "/export":
		return h.cmdExport(ctx, chatID)
	default:
		return h.reply(ctx, chatID, "Unknown command. Send /start for the command list.")
	}
}

const usageText = `Browse long-form blog posts stored on an AT Protocol account.

/author <handle> - pick whose posts to browse
/list - list the author's posts
/search <term> - filter posts by text
/category <name> - filter by category ("all" clears)
/sort newest|oldest - change ordering
/export - dump the loaded posts as JSON`

func (h *Handler) cmdAuthor(ctx context.Context, chatID int64, arg string) error {
	if arg == "" {
		return h.reply(ctx, chatID, "Usage: /author <handle>")
	}

	ident, err := h.resolver.Resolve(ctx, arg)
	if err != nil {
		var notFound *identity.ErrNotFound
		var invalid *identity.ErrInvalidIdentifier
		if errors.As(err, &notFound) || errors.As(err, &invalid) {
			return h.reply(ctx, chatID, fmt.Sprintf("Could not find %q. Check the handle and try again.", arg))
		}
		return h.reply(ctx, chatID, "Handle lookup failed, please try again.")
	}

	cs, err := h.setChatAuthor(chatID, ident)
	if err != nil {
		log.Printf("[BOT] open client for %s: %v", ident.DID, err)
		return h.reply(ctx, chatID, "Could not reach that author's data server, please try again.")
	}

	if err := h.chats.SaveChatState(ctx, sqlite.ChatState{
		ChatID:       chatID,
		AuthorDID:    ident.DID,
		AuthorHandle: ident.Handle,
	}); err != nil {
		log.Printf("[BOT] save chat state for %d: %v", chatID, err)
	}

	if err := cs.session.LoadAll(ctx); err != nil {
		return h.reply(ctx, chatID, fmt.Sprintf("Now browsing @%s, but loading posts failed. Try /list again.", ident.Handle))
	}

	count := len(cs.session.Cache().All())
	categories := cs.session.Cache().Categories()
	msg := fmt.Sprintf("Now browsing @%s: %d post(s).", ident.Handle, count)
	if len(categories) > 0 {
		msg += "\nCategories: " + strings.Join(categories, ", ")
	}
	return h.reply(ctx, chatID, msg)
}

func (h *Handler) cmdList(ctx context.Context, chatID int64) error {
	cs, err := h.restoredSession(ctx, chatID)
	if err != nil {
		return h.reply(ctx, chatID, "Pick an author first: /author <handle>")
	}

	if err := cs.session.LoadAll(ctx); err != nil {
		log.Printf("[BOT] load posts for chat %d: %v", chatID, err)
	}

	return h.replyWithList(ctx, chatID, cs)
}

func (h *Handler) cmdSearch(ctx context.Context, chatID int64, arg string) error {
	cs, err := h.restoredSession(ctx, chatID)
	if err != nil {
		return h.reply(ctx, chatID, "Pick an author first: /author <handle>")
	}

	cs.session.SetSearch(arg)
	if err := cs.session.LoadAll(ctx); err != nil {
		log.Printf("[BOT] load posts for chat %d: %v", chatID, err)
	}
	return h.replyWithList(ctx, chatID, cs)
}

func (h *Handler) cmdCategory(ctx context.Context, chatID int64, arg string) error {
	cs, err := h.restoredSession(ctx, chatID)
	if err != nil {
		return h.reply(ctx, chatID, "Pick an author first: /author <handle>")
	}

	if strings.EqualFold(arg, "all") {
		arg = ""
	}
	cs.session.SetCategory(arg)
	if err := cs.session.LoadAll(ctx); err != nil {
		log.Printf("[BOT] load posts for chat %d: %v", chatID, err)
	}
	return h.replyWithList(ctx, chatID, cs)
}

func (h *Handler) cmdSort(ctx context.Context, chatID int64, arg string) error {
	cs, err := h.restoredSession(ctx, chatID)
	if err != nil {
		return h.reply(ctx, chatID, "Pick an author first: /author <handle>")
	}

	switch strings.ToLower(arg) {
	case "newest":
		cs.session.SetSort(blogs.SortNewest)
	case "oldest":
		cs.session.SetSort(blogs.SortOldest)
	default:
		return h.reply(ctx, chatID, "Usage: /sort newest|oldest")
	}
	return h.replyWithList(ctx, chatID, cs)
}

func (h *Handler) cmdExport(ctx context.Context, chatID int64) error {
	cs, err := h.restoredSession(ctx, chatID)
	if err != nil {
		return h.reply(ctx, chatID, "Pick an author first: /author <handle>")
	}

	if err := cs.session.LoadAll(ctx); err != nil {
		log.Printf("[BOT] load posts for chat %d: %v", chatID, err)
	}

	var buf strings.Builder
	if err := blogs.Export(&buf, cs.session.Visible()); err != nil {
		return h.reply(ctx, chatID, "Export failed, please try again.")
	}

	out := buf.String()
	if len(out) > maxReplyLen {
		out = out[:maxReplyLen] + "\n... (truncated)"
	}
	return h.reply(ctx, chatID, out)
}

func (h *Handler) replyWithList(ctx context.Context, chatID int64, cs *chatSession) error {
	records := cs.session.Visible()
	view := cs.session.View()

	if len(records) == 0 {
		return h.reply(ctx, chatID, fmt.Sprintf("No posts from @%s match the current view.", cs.handle))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Posts by @%s", cs.handle)
	if view.SearchTerm != "" {
		fmt.Fprintf(&b, " matching %q", view.SearchTerm)
	}
	if view.CategoryFilter != "" {
		fmt.Fprintf(&b, " in %s", view.CategoryFilter)
	}
	b.WriteString(":\n")

	shown := records
	if len(shown) > maxListReply {
		shown = shown[:maxListReply]
	}
	for i, rec := range shown {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, rec.Value.Title, displayDate(rec.Value.PublishedAt))
	}
	if len(records) > maxListReply {
		fmt.Fprintf(&b, "... and %d more. Narrow with /search or /category.", len(records)-maxListReply)
	}

	return h.reply(ctx, chatID, strings.TrimSpace(b.String()))
}

// setChatAuthor builds a fresh viewing session for the chat against the
// author's PDS.
func (h *Handler) setChatAuthor(chatID int64, ident *identity.Identity) (*chatSession, error) {
	client, err := h.clients(ident.PDSURL)
	if err != nil {
		return nil, err
	}

	session := blogs.NewSession(blogs.NewFetcher(client, h.collection), h.pageSize, h.pageBudget)
	session.SetAuthor(ident.DID)
	cs := &chatSession{session: session, handle: ident.Handle}

	h.mu.Lock()
	h.sessions[chatID] = cs
	h.mu.Unlock()
	return cs, nil
}

// restoredSession returns the chat's session, rehydrating the selected
// author from the chat store after a restart. It errors when the chat has
// never picked an author.
func (h *Handler) restoredSession(ctx context.Context, chatID int64) (*chatSession, error) {
	h.mu.Lock()
	cs, ok := h.sessions[chatID]
	h.mu.Unlock()
	if ok {
		return cs, nil
	}

	state, err := h.chats.LoadChatState(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat state: %w", err)
	}
	if state == nil {
		return nil, fmt.Errorf("chat %d has no author selected", chatID)
	}

	ident, err := h.resolver.Resolve(ctx, state.AuthorDID)
	if err != nil {
		return nil, fmt.Errorf("re-resolve %s: %w", state.AuthorDID, err)
	}

	return h.setChatAuthor(chatID, ident)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) error {
	return h.sender.SendMessage(ctx, chatID, text)
}

// displayDate renders a stored publishedAt in the human layout, falling
// back to the raw value when it does not parse.
func displayDate(raw string) string {
	t, err := blogs.ParseDate(raw)
	if err != nil {
		return raw
	}
	return blogs.FormatDate(t)
}

// splitCommand separates "/cmd arg words" into the command and its
// argument. Command suffixes like "/list@mybot" are stripped.
func splitCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	cmd, arg, _ = strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, strings.TrimSpace(arg)
}
