package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"

	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
	"github.com/romiojoseph/at-protocol/internal/config"
	"github.com/romiojoseph/at-protocol/internal/web"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if cfg.SessionSecret == "" {
		log.Fatal("BLOG_SESSION_SECRET must be set")
	}

	templates, err := web.NewTemplates()
	if err != nil {
		log.Fatal("Failed to parse templates:", err)
	}

	resolver := identity.NewResolver(identity.Config{PLCURL: cfg.PLCURL})

	handlers := web.NewHandlers(web.Config{
		Templates:  templates,
		Sessions:   sessions.NewCookieStore([]byte(cfg.SessionSecret)),
		Resolver:   resolver,
		Collection: cfg.Collection,
		PageSize:   cfg.PageSize,
		PageBudget: cfg.PageBudget,
	})

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Mount("/", handlers.Routes())

	fmt.Printf("Blog web starting on %s\n", cfg.ListenAddr)
	fmt.Printf("Collection: %s\n", cfg.Collection)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, r))
}
