package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/davlet61/costwatch/internal/config"
	"github.com/davlet61/costwatch/internal/database"
	"github.com/davlet61/costwatch/internal/handlers"
	"github.com/davlet61/costwatch/internal/livesync"
	"github.com/davlet61/costwatch/internal/repository"
	cronjobs "github.com/davlet61/costwatch/internal/scheduler"
	"github.com/davlet61/costwatch/internal/services"
	"github.com/davlet61/costwatch/pkg/email"
	"github.com/davlet61/costwatch/pkg/logger"
	"github.com/davlet61/costwatch/pkg/middleware"
	"github.com/davlet61/costwatch/pkg/push"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	pushLinkRepo := repository.NewPushLinkRepository(db)

	// --- External clients ---
	emailClient := email.NewClient(cfg.EmailRelayURL, cfg.EmailAPIKey, cfg.EmailSender, nil)
	pushClient := push.NewClient(cfg.PushAPIURL, cfg.PushClientID, cfg.PushClientSecret, nil)

	// --- Services ---
	emailDispatcher := services.NewEmailDispatcher(emailClient, cfg.AppBaseURL)
	pushDispatcher := services.NewPushDispatcher(pushClient, pushLinkRepo)
	notifService := services.NewNotificationService(notifRepo, userRepo, emailDispatcher, pushDispatcher)
	healthScan := services.NewHealthScanService(projectRepo, notifService)
	lifecycle := services.NewPushLifecycle(pushLinkRepo, notifService, services.DefaultLifecycleConfig())
	userService := services.NewUserService(userRepo, cfg.JWTSecret)

	// --- Live sync ---
	hub := livesync.NewHub()
	bridge := livesync.NewBridge(db, hub, notifRepo, projectRepo, userRepo, teamRepo)
	bridge.Start(context.Background())

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, lifecycle, hub)
	notifHandler := handlers.NewNotificationHandler(notifService, healthScan)
	pushHandler := handlers.NewPushHandler(lifecycle, pushClient)
	syncHandler := handlers.NewSyncHandler(hub, bridge, cfg.JWTSecret)

	router := mux.NewRouter()

	// Public routes
	router.HandleFunc("/users/login", userHandler.LoginHandler).Methods("POST")
	router.HandleFunc("/ws/sync", syncHandler.WebSocketHandler).Methods("GET")

	// Notification routes
	notifRoutes := router.PathPrefix("/notifications").Subrouter()
	notifRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	notifRoutes.HandleFunc("", notifHandler.ListHandler).Methods("GET")
	notifRoutes.HandleFunc("", notifHandler.DeleteAllHandler).Methods("DELETE")
	notifRoutes.HandleFunc("/{id}/read", notifHandler.MarkReadHandler).Methods("POST")
	notifRoutes.HandleFunc("/{id}", notifHandler.DeleteHandler).Methods("DELETE")

	// Push subscription routes
	pushRoutes := router.PathPrefix("/push").Subrouter()
	pushRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	pushRoutes.HandleFunc("/subscribe", pushHandler.SubscribeHandler).Methods("POST")
	pushRoutes.HandleFunc("/session-sync", pushHandler.SessionSyncHandler).Methods("POST")
	pushRoutes.HandleFunc("/unsubscribe", pushHandler.UnsubscribeHandler).Methods("POST")

	// Session + preference routes
	sessionRoutes := router.PathPrefix("/users").Subrouter()
	sessionRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	sessionRoutes.HandleFunc("/logout", userHandler.LogoutHandler).Methods("POST")
	sessionRoutes.HandleFunc("/preferences", userHandler.UpdatePreferencesHandler).Methods("PUT")

	// Health scan
	scanRoutes := router.PathPrefix("/scan").Subrouter()
	scanRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	scanRoutes.HandleFunc("", notifHandler.RunHealthScanHandler).Methods("POST")

	router.Use(middleware.LoggingMiddleware)

	// Daily sweep on top of the on-demand endpoint.
	cronjobs.StartHealthScanCron(healthScan)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppBaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}
