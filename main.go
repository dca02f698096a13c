package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linkup/messenger/internal/chat"
	"github.com/linkup/messenger/internal/config"
	"github.com/linkup/messenger/internal/handlers"
	"github.com/linkup/messenger/internal/logger"
	"github.com/linkup/messenger/internal/metrics"
	"github.com/linkup/messenger/internal/middleware"
	"github.com/linkup/messenger/internal/session"
	"github.com/linkup/messenger/internal/store/sqlstore"
	"github.com/linkup/messenger/internal/token"
	"github.com/linkup/messenger/internal/ws"
)

var addr = flag.String("addr", "", "http service address (overrides APP_ADDR)")

func main() {
	flag.Parse()
	godotenv.Load()
	logger.SetupDefault(os.Stdout)

	cfg := config.Load()
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	tokens := token.NewProvider(cfg.JWTSecret, cfg.JWTTTL)
	destinations := chat.NewRegistry()
	router := &chat.Router{
		Store:    store,
		Registry: destinations,
		Metrics:  collector,
		Log:      slog.Default(),
	}

	wsHandler := &ws.Handler{
		Auth:     &session.Authenticator{Tokens: tokens, Store: store, Log: slog.Default()},
		Router:   router,
		Registry: destinations,
		Metrics:  collector,
		Log:      slog.Default(),
	}

	authHandler := &handlers.AuthHandler{Store: store, Tokens: tokens, Log: slog.Default()}
	messageHandler := &handlers.MessageHandler{Store: store, Log: slog.Default()}

	loginLimiter := middleware.NewRateLimiter(30, 10)
	requireAuth := middleware.RequireAuth(tokens, store)

	r := mux.NewRouter()
	r.Use(middleware.Logging)

	r.Handle("/signup", loginLimiter.Middleware(http.HandlerFunc(authHandler.Signup))).Methods("POST")
	r.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login))).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(requireAuth)
	api.HandleFunc("/users/search", authHandler.SearchUsers).Methods("GET")
	api.HandleFunc("/messages/contacts", messageHandler.GetContacts).Methods("GET")
	api.HandleFunc("/messages/{userId}", messageHandler.GetConversation).Methods("GET")

	r.Handle("/ws", wsHandler)
	r.Handle("/metrics", metrics.Handler(registry)).Methods("GET")

	slog.Info("starting server", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
