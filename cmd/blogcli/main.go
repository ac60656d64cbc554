// blogcli manages long-form blog posts stored as records on an AT
// Protocol PDS: sign in with an app password, then list, search, create,
// edit, delete and export posts from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/romiojoseph/at-protocol/internal/atproto/aturi"
	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
	"github.com/romiojoseph/at-protocol/internal/atproto/profile"
	"github.com/romiojoseph/at-protocol/internal/config"
	"github.com/romiojoseph/at-protocol/internal/core/blogs"
	"github.com/romiojoseph/at-protocol/internal/store/sqlite"
)

const usage = `Usage: blogcli <command> [flags]

Commands:
  login    sign in with a handle and app password
  logout   forget the saved session
  whoami   show the signed-in account
  list     list posts (yours, or any author's with -author)
  search   list posts matching a text filter
  create   publish a new post
  edit     edit fields of an existing post
  delete   delete a post
  export   dump posts as JSON

Run 'blogcli <command> -h' for the command's flags.`

func main() {
	// .env is optional; flags and real env take precedence
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app := &cli{cfg: cfg}
	ctx := context.Background()

	switch os.Args[1] {
	case "login":
		err = app.login(ctx, os.Args[2:])
	case "logout":
		err = app.logout(ctx)
	case "whoami":
		err = app.whoami(ctx)
	case "list":
		err = app.list(ctx, os.Args[2:])
	case "search":
		err = app.search(ctx, os.Args[2:])
	case "create":
		err = app.create(ctx, os.Args[2:])
	case "edit":
		err = app.edit(ctx, os.Args[2:])
	case "delete":
		err = app.delete(ctx, os.Args[2:])
	case "export":
		err = app.export(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

type cli struct {
	cfg *config.Config
}

func (c *cli) openStore() (*sqlite.Store, error) {
	return sqlite.Open(c.cfg.DatabasePath)
}

func (c *cli) resolver() identity.Resolver {
	return identity.NewResolver(identity.Config{PLCURL: c.cfg.PLCURL})
}

func (c *cli) profiles() profile.Lookup {
	return profile.NewCached(profile.NewClient(c.cfg.AppViewURL), 256, time.Hour)
}

// authedClient resumes the saved session as an authenticated PDS client.
func (c *cli) authedClient(ctx context.Context, store *sqlite.Store) (pds.Client, *sqlite.Session, error) {
	sess, err := store.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, sqlite.ErrNoSession) {
			return nil, nil, fmt.Errorf("not signed in; run 'blogcli login' first")
		}
		return nil, nil, err
	}

	client, err := pds.NewFromAccessToken(sess.Host, sess.DID, sess.AccessJWT)
	if err != nil {
		return nil, nil, err
	}
	return client, sess, nil
}

// viewerFor builds a read session for the given author, defaulting to the
// signed-in account when author is empty.
func (c *cli) viewerFor(ctx context.Context, store *sqlite.Store, author string) (*blogs.Session, string, error) {
	var did, handle, host string

	if author == "" {
		sess, err := store.LoadSession(ctx)
		if err != nil {
			if errors.Is(err, sqlite.ErrNoSession) {
				return nil, "", fmt.Errorf("not signed in; pass -author or run 'blogcli login'")
			}
			return nil, "", err
		}
		did, handle, host = sess.DID, sess.Handle, sess.Host
	} else {
		ident, err := c.resolver().Resolve(ctx, author)
		if err != nil {
			return nil, "", fmt.Errorf("resolve %q: %w", author, err)
		}
		did, handle, host = ident.DID, ident.Handle, ident.PDSURL
	}

	client, err := pds.NewReadOnly(host)
	if err != nil {
		return nil, "", err
	}

	session := blogs.NewSession(blogs.NewFetcher(client, c.cfg.Collection), c.cfg.PageSize, c.cfg.PageBudget)
	session.SetAuthor(did)
	return session, handle, nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	handle := fs.String("handle", "", "account handle, e.g. alice.bsky.social")
	password := fs.String("password", os.Getenv("BLOG_APP_PASSWORD"), "app password (or BLOG_APP_PASSWORD)")
	fs.Parse(args)

	if *handle == "" || *password == "" {
		return fmt.Errorf("-handle and -password are required")
	}

	ident, err := c.resolver().Resolve(ctx, *handle)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", *handle, err)
	}

	auth, err := pds.CreateSession(ctx, ident.PDSURL, ident.Handle, *password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveSession(ctx, sqlite.Session{
		Host:       ident.PDSURL,
		DID:        auth.DID,
		Handle:     auth.Handle,
		AccessJWT:  auth.AccessJWT,
		RefreshJWT: auth.RefreshJWT,
	}); err != nil {
		return err
	}

	fmt.Printf("Signed in as @%s (%s)\n", auth.Handle, auth.DID)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, sqlite.ErrNoSession) {
			fmt.Println("Not signed in")
			return nil
		}
		return err
	}

	fmt.Printf("@%s (%s) on %s\n", sess.Handle, sess.DID, sess.Host)
	return nil
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	author := fs.String("author", "", "author handle or DID (default: signed-in account)")
	category := fs.String("category", "", "filter by category")
	sortOrder := fs.String("sort", "newest", "sort order: newest or oldest")
	fs.Parse(args)

	return c.runList(ctx, *author, *category, *sortOrder, "")
}

func (c *cli) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "text to search for")
	author := fs.String("author", "", "author handle or DID (default: signed-in account)")
	category := fs.String("category", "", "filter by category")
	sortOrder := fs.String("sort", "newest", "sort order: newest or oldest")
	fs.Parse(args)

	if *query == "" {
		return fmt.Errorf("-q is required")
	}
	return c.runList(ctx, *author, *category, *sortOrder, *query)
}

func (c *cli) runList(ctx context.Context, author, category, sortOrder, query string) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	session, handle, err := c.viewerFor(ctx, store, author)
	if err != nil {
		return err
	}

	if err := session.LoadAll(ctx); err != nil {
		return fmt.Errorf("load posts: %w", err)
	}

	session.SetSearch(query)
	session.SetCategory(category)
	switch sortOrder {
	case "newest":
		session.SetSort(blogs.SortNewest)
	case "oldest":
		session.SetSort(blogs.SortOldest)
	default:
		return fmt.Errorf("invalid -sort %q: want newest or oldest", sortOrder)
	}

	records := session.Visible()
	if len(records) == 0 {
		fmt.Printf("No posts from @%s match\n", handle)
		return nil
	}

	for _, rec := range records {
		date := rec.Value.PublishedAt
		if t, err := blogs.ParseDate(date); err == nil {
			date = blogs.FormatDate(t)
		}
		marker := " "
		if rec.Value.Recommended {
			marker = "*"
		}
		fmt.Printf("%s %-18s %-40s %-14s %s\n", marker, date, truncate(rec.Value.Title, 40), rec.Value.Category, rec.Value.Slug)
	}
	fmt.Printf("\n%d post(s); categories: %s\n", len(records), strings.Join(session.Cache().Categories(), ", "))
	return nil
}

func (c *cli) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "post title")
	desc := fs.String("desc", "", "short description (max 160 characters)")
	slug := fs.String("slug", "", "URL slug (default: derived from title)")
	category := fs.String("category", "", "post category")
	content := fs.String("content", "", "post content")
	contentFile := fs.String("content-file", "", "read content from this file instead of -content")
	published := fs.String("published", "", `publish date, e.g. "2 Jan 2006, 15:04" (default: now)`)
	cover := fs.String("cover", "", "cover image URL")
	tags := fs.String("tags", "", "comma-separated tags")
	comments := fs.String("comments", "", "Bluesky post URL or at:// URI for the comments thread")
	recommended := fs.Bool("recommended", false, "flag the post as recommended")
	fs.Parse(args)

	body := *content
	if *contentFile != "" {
		raw, err := os.ReadFile(*contentFile)
		if err != nil {
			return err
		}
		body = string(raw)
	}

	if *slug == "" {
		*slug = blogs.SanitizeSlug(*title)
	}

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client, sess, err := c.authedClient(ctx, store)
	if err != nil {
		return err
	}

	service := blogs.NewService(client, c.profiles(), c.resolver(), c.cfg.Collection)
	rec, err := service.Create(ctx, blogs.CreateRequest{
		Title:               *title,
		ShortDescription:    *desc,
		AuthorHandle:        sess.Handle,
		Slug:                *slug,
		Category:            *category,
		Content:             body,
		PublishedAt:         *published,
		CoverImage:          *cover,
		Tags:                splitTags(*tags),
		BskyCommentsPostURI: *comments,
		Recommended:         *recommended,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", rec.URI)
	return nil
}

func (c *cli) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	rkey := fs.String("rkey", "", "record key of the post to edit")
	title := fs.String("title", "", "new title")
	desc := fs.String("desc", "", "new short description")
	slug := fs.String("slug", "", "new slug (the record key and URI stay the same)")
	category := fs.String("category", "", "new category")
	content := fs.String("content", "", "new content")
	contentFile := fs.String("content-file", "", "read new content from this file")
	published := fs.String("published", "", "new publish date")
	cover := fs.String("cover", "", "new cover image URL")
	tags := fs.String("tags", "", "new comma-separated tags")
	comments := fs.String("comments", "", "new comments thread URL")
	recommended := fs.Bool("recommended", false, "new recommended flag")
	clear := fs.String("clear", "", "comma-separated optional fields to clear: cover, tags, comments, recommended")
	fs.Parse(args)

	if *rkey == "" {
		return fmt.Errorf("-rkey is required")
	}

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client, _, err := c.authedClient(ctx, store)
	if err != nil {
		return err
	}

	current, err := client.GetRecord(ctx, "", c.cfg.Collection, *rkey)
	if err != nil {
		return fmt.Errorf("fetch post %q: %w", *rkey, err)
	}
	rec, err := blogs.RecordFromEntry(pds.RecordEntry{URI: current.URI, CID: current.CID, Value: current.Value})
	if err != nil {
		return err
	}

	// only flags the user actually passed become edits
	provided := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { provided[f.Name] = true })

	var req blogs.UpdateRequest
	if provided["title"] {
		req.Title = blogs.Set(*title)
	}
	if provided["desc"] {
		req.ShortDescription = blogs.Set(*desc)
	}
	if provided["slug"] {
		req.Slug = blogs.Set(*slug)
	}
	if provided["category"] {
		req.Category = blogs.Set(*category)
	}
	if provided["content"] {
		req.Content = blogs.Set(*content)
	}
	if provided["content-file"] {
		raw, err := os.ReadFile(*contentFile)
		if err != nil {
			return err
		}
		req.Content = blogs.Set(string(raw))
	}
	if provided["published"] {
		req.PublishedAt = blogs.Set(*published)
	}
	if provided["cover"] {
		req.CoverImage = blogs.Set(*cover)
	}
	if provided["tags"] {
		req.Tags = blogs.Set(splitTags(*tags))
	}
	if provided["comments"] {
		req.BskyCommentsPostURI = blogs.Set(*comments)
	}
	if provided["recommended"] {
		req.Recommended = blogs.Set(*recommended)
	}

	for _, field := range splitTags(*clear) {
		switch field {
		case "cover":
			req.CoverImage = blogs.Clear[string]()
		case "tags":
			req.Tags = blogs.Clear[[]string]()
		case "comments":
			req.BskyCommentsPostURI = blogs.Clear[string]()
		case "recommended":
			req.Recommended = blogs.Clear[bool]()
		default:
			return fmt.Errorf("cannot clear field %q", field)
		}
	}

	service := blogs.NewService(client, c.profiles(), c.resolver(), c.cfg.Collection)
	updated, err := service.Update(ctx, rec, req)
	if err != nil {
		return err
	}

	fmt.Printf("Updated %s\n", updated.URI)
	return nil
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	rkey := fs.String("rkey", "", "record key of the post to delete")
	fs.Parse(args)

	if *rkey == "" {
		return fmt.Errorf("-rkey is required")
	}

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client, sess, err := c.authedClient(ctx, store)
	if err != nil {
		return err
	}

	service := blogs.NewService(client, c.profiles(), c.resolver(), c.cfg.Collection)
	uri := aturi.Compose(sess.DID, c.cfg.Collection, *rkey)
	if err := service.Delete(ctx, uri); err != nil {
		return err
	}

	fmt.Printf("Deleted %s\n", uri)
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	author := fs.String("author", "", "author handle or DID (default: signed-in account)")
	out := fs.String("o", "", "output file (default: blog-export-<timestamp>.json)")
	stdout := fs.Bool("stdout", false, "write to stdout instead of a file")
	fs.Parse(args)

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	session, handle, err := c.viewerFor(ctx, store, *author)
	if err != nil {
		return err
	}

	if err := session.LoadAll(ctx); err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	records := session.Visible()

	if *stdout {
		return blogs.Export(os.Stdout, records)
	}

	path := *out
	if path == "" {
		path = blogs.ExportFilename(time.Now())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := blogs.Export(f, records); err != nil {
		return err
	}

	fmt.Printf("Exported %d post(s) by @%s to %s\n", len(records), handle, path)
	return nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
