package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"banking-api/internal/auth"
	"banking-api/internal/config"
	"banking-api/internal/domain"
	"banking-api/internal/handler"
	"banking-api/internal/metrics"
	"banking-api/internal/repository"
	"banking-api/internal/repository/memory"
	"banking-api/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router  *mux.Router
	server  *http.Server
	store   domain.Store
	metrics *metrics.Collector
	logger  *slog.Logger
	port    string
}

// OpenStore builds the store selected by cfg.StoreDriver. For Postgres the
// schema is migrated first when AutoMigrate is set.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Info("Using in-memory store")
		return memory.NewStore(logger), nil
	case config.StoreDriverPostgres:
		store, err := repository.Open(ctx, cfg.GetDBConnectionString(), logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := repository.MigrateUp(ctx, store.DB(), logger); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewWithStore(cfg, store, logger)
}

// NewWithStore wires services, handlers and routes around an existing store.
// The server takes ownership of the store and closes it on Stop.
func NewWithStore(cfg *config.Config, store domain.Store, logger *slog.Logger) (*Server, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		generated, err := randomSecret()
		if err != nil {
			return nil, err
		}
		logger.Warn("No JWT secret configured, tokens will not survive a restart")
		secret = generated
	}

	collector := metrics.NewCollector()

	// Initialize services
	userService := service.NewUserService(store, logger)
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, collector, logger)
	authService := service.NewAuthService(store, auth.NewTokenIssuer(secret, cfg.TokenTTL), logger)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userService, logger)
	accountHandler := handler.NewAccountHandler(accountService, logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	// Setup router
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handler.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handler.NotFound)

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(logger, collector))

	api := router.PathPrefix("/api/v1").Subrouter()

	// Auth routes
	api.HandleFunc("/auth/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/authenticate", authHandler.Authenticate).Methods(http.MethodGet)

	resources := api.NewRoute().Subrouter()
	if cfg.AuthRequired {
		resources.Use(authHandler.RequireAuth())
	}

	// User routes
	resources.HandleFunc("/users", userHandler.Register).Methods(http.MethodPost)
	resources.HandleFunc("/users", userHandler.ListUsers).Methods(http.MethodGet)
	resources.HandleFunc("/users/{id}", userHandler.GetUser).Methods(http.MethodGet)

	// Account routes
	resources.HandleFunc("/accounts", accountHandler.CreateAccount).Methods(http.MethodPost)
	resources.HandleFunc("/accounts", accountHandler.ListAccounts).Methods(http.MethodGet)
	resources.HandleFunc("/accounts/{id}", accountHandler.GetAccount).Methods(http.MethodGet)
	resources.HandleFunc("/accounts/{id}", accountHandler.DeleteAccount).Methods(http.MethodDelete)

	// Transaction routes
	resources.HandleFunc("/transactions", transactionHandler.Transfer).Methods(http.MethodPost)
	resources.HandleFunc("/transactions", transactionHandler.ListTransactions).Methods(http.MethodGet)
	resources.HandleFunc("/transactions/{id}", transactionHandler.GetTransaction).Methods(http.MethodGet)

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := store.Ping(r.Context()); err != nil {
			logger.Error("Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)

	return &Server{
		router:  router,
		store:   store,
		metrics: collector,
		logger:  logger,
	}, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then closes the store.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var shutdownErr error
	if s.server != nil {
		shutdownErr = s.server.Shutdown(ctx)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Closing store failed", "error", err)
		}
	}

	return shutdownErr
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger builds the process logger from the log settings. Port "0" marks
// a test run, which discards output.
func NewLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.ServerPort == "0" {
		out = io.Discard
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// StartServer starts the server with the given configuration
func StartServer(ctx context.Context, cfg *config.Config) (*Server, string, error) {
	logger := NewLogger(cfg)

	server, err := NewServer(ctx, cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(ctx)
		return nil, "", err
	}

	return server, port, nil
}
