package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrykmil/passy/internal/config"
	"github.com/patrykmil/passy/internal/handler"
	"github.com/patrykmil/passy/internal/logging"
	"github.com/patrykmil/passy/internal/middleware"
	"github.com/patrykmil/passy/internal/repository"
	"github.com/patrykmil/passy/internal/service"
	"github.com/patrykmil/passy/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level)

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		fatal(log, "Failed to connect to CouchDB: %v", err)
	}

	ctx := context.Background()
	exists, err := client.DBExists(ctx, cfg.Database.Name)
	if err != nil {
		fatal(log, "Failed to check database existence: %v", err)
	}

	if !exists {
		if err := client.CreateDB(ctx, cfg.Database.Name); err != nil {
			fatal(log, "Failed to create database: %v", err)
		}
		log.Infof("Created database: %s", cfg.Database.Name)
	}

	if err := repository.EnsureIndexes(ctx, client, cfg.Database.Name); err != nil {
		log.Warnf("Queries will run without indexes: %v", err)
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	secretRepo := repository.NewSecretRepository(client, cfg.Database.Name)
	teamRepo := repository.NewTeamRepository(client, cfg.Database.Name)

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
		Logger:         log,
	})
	go wsManager.Run()

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	userService := service.NewUserService(userRepo)
	secretService := service.NewSecretService(secretRepo, teamRepo, wsManager)
	teamService := service.NewTeamService(teamRepo, userRepo, secretService, wsManager)

	authHandler := handler.NewAuthHandler(authService, log)
	userHandler := handler.NewUserHandler(userService)
	secretHandler := handler.NewSecretHandler(secretService)
	teamHandler := handler.NewTeamHandler(teamService)
	wsHandler := handler.NewWebSocketHandler(
		wsManager,
		cfg.JWT.Secret,
		cfg.WebSocket.ReadBufferSize,
		cfg.WebSocket.WriteBufferSize,
		log,
	)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORSMiddleware(cfg.CORS))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")
	protected.HandleFunc("/auth/password", authHandler.ChangePassword).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/auth/keys", authHandler.ChangeKeys).Methods("PUT", "OPTIONS")

	protected.HandleFunc("/users/me", userHandler.GetMe).Methods("GET", "OPTIONS")
	protected.HandleFunc("/users/{id}", userHandler.GetPublic).Methods("GET", "OPTIONS")

	protected.HandleFunc("/secrets", secretHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/secrets", secretHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/secrets/batch", secretHandler.BatchUpdate).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/secrets/groups/{token}", secretHandler.ListGroup).Methods("GET", "OPTIONS")
	protected.HandleFunc("/secrets/groups/{token}", secretHandler.DeleteGroup).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/secrets/{id}", secretHandler.Update).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/secrets/{id}", secretHandler.Delete).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/teams", teamHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/teams", teamHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/teams/apply", teamHandler.Apply).Methods("POST", "OPTIONS")
	protected.HandleFunc("/teams/applications", teamHandler.Applications).Methods("GET", "OPTIONS")
	protected.HandleFunc("/teams/{id}/members", teamHandler.Members).Methods("GET", "OPTIONS")
	protected.HandleFunc("/teams/{id}/members/{userID}", teamHandler.RemoveMember).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/teams/{id}/membership", teamHandler.Leave).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/teams/{id}/applications/{userID}/accept", teamHandler.Accept).Methods("POST", "OPTIONS")
	protected.HandleFunc("/teams/{id}/applications/{userID}/decline", teamHandler.Decline).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting passy server on %s (env: %s)", addr, cfg.Server.Env)
		log.Infof("Connected to CouchDB at %s:%s", cfg.Database.Host, cfg.Database.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(log, "Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infof("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	wsManager.Stop()

	log.Infof("Server stopped gracefully")
}

func fatal(log *logging.Logger, msg string, args ...any) {
	log.Errorf(msg, args...)
	os.Exit(1)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"passy"}`))
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"passy API","version":"1.0.0","endpoints":{"/api/v1/auth/register":"POST","/api/v1/auth/login":"POST","/api/v1/secrets":"GET,POST (protected)","/api/v1/teams":"GET,POST (protected)","/ws":"GET (token)"}}`))
}
