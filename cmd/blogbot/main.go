package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
	"github.com/romiojoseph/at-protocol/internal/bot"
	"github.com/romiojoseph/at-protocol/internal/config"
	"github.com/romiojoseph/at-protocol/internal/store/sqlite"
	"github.com/romiojoseph/at-protocol/internal/telegram"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if cfg.TelegramToken == "" {
		log.Fatal("BLOG_TELEGRAM_TOKEN must be set")
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer store.Close()

	resolver := identity.NewResolver(identity.Config{PLCURL: cfg.PLCURL})
	sender := telegram.NewClient("", cfg.TelegramToken)

	handler := bot.NewHandler(bot.Config{
		Sender:     sender,
		Resolver:   resolver,
		Chats:      store,
		Collection: cfg.Collection,
		Secret:     cfg.TelegramWebhookSecret,
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

	r.Mount("/telegram", handler.Routes())

	fmt.Printf("Blog bot starting on %s\n", cfg.ListenAddr)
	fmt.Printf("Collection: %s\n", cfg.Collection)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, r))
}
