package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	appConfig "github.com/aisitebuildapp/aisitebuild/config"
	"github.com/aisitebuildapp/aisitebuild/internal/api"
	"github.com/aisitebuildapp/aisitebuild/internal/db"
	"github.com/aisitebuildapp/aisitebuild/internal/llm"
	"github.com/aisitebuildapp/aisitebuild/internal/middleware"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
	"github.com/aisitebuildapp/aisitebuild/internal/workflow"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appConfig.Load()

	// Initialize PostgreSQL client
	pgClient, err := db.NewPostgresClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pgClient.Close()

	log.Println("Successfully connected to PostgreSQL database")

	// Redis backs per-project revision locks and progress pub/sub. Without
	// it the server falls back to in-process equivalents.
	redisClient := newRedisClient(cfg)
	var locks workflow.Locker
	var progress workflow.Broker
	if redisClient != nil {
		log.Println("Successfully connected to Redis")
		locks = workflow.NewRedisLocker(redisClient)
		progress = workflow.NewRedisBroker(redisClient)
	} else {
		log.Println("Redis not configured, using in-process locks and progress")
		locks = workflow.NewLocalLocker()
		progress = workflow.NewLocalBroker()
	}

	// Initialize services
	authService := services.NewAuthService(pgClient, cfg)
	creditService := services.NewCreditService(pgClient)
	projectService := services.NewProjectService(pgClient)
	versionService := services.NewVersionService(pgClient)
	conversationService := services.NewConversationService(pgClient)
	paymentService := services.NewPaymentService(cfg)

	// Optional S3 mirror for published sites
	var sitePublisher *services.SitePublisher
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.AWSRegion),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKey,
				cfg.AWSSecretKey,
				"",
			)),
		)
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		sitePublisher = services.NewSitePublisher(s3.NewFromConfig(awsCfg), cfg)
	}

	// LLM client
	llmClient := llm.NewClient(cfg)

	// Workflows
	creation := &workflow.Creation{
		Ledger:        creditService,
		Projects:      projectService,
		Versions:      versionService,
		Conversations: conversationService,
		LLM:           llmClient,
		Progress:      progress,
		Timeout:       cfg.LLMTimeout,
	}
	revision := &workflow.Revision{
		Ledger:        creditService,
		Projects:      projectService,
		Versions:      versionService,
		Conversations: conversationService,
		LLM:           llmClient,
		Locks:         locks,
		Progress:      progress,
		Timeout:       cfg.LLMTimeout,
	}
	payment := &workflow.Payment{
		Ledger:   creditService,
		Checkout: paymentService,
	}

	// Initialize API handlers
	authHandler := api.NewAuthHandler(authService)
	projectHandler := api.NewProjectHandler(projectService, versionService, conversationService, creation, revision, sitePublisher, progress)
	userHandler := api.NewUserHandler(creditService, payment)

	// Setup router
	r := mux.NewRouter()

	// Public routes (no auth required)
	r.HandleFunc("/health", healthCheck).Methods("GET")

	// Auth routes (public)
	authRoutes := r.PathPrefix("/api/v1/auth").Subrouter()
	authRoutes.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	authRoutes.HandleFunc("/login", authHandler.Login).Methods("POST")
	authRoutes.HandleFunc("/refresh", authHandler.RefreshToken).Methods("POST")

	// Public gallery routes
	public := r.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/published", projectHandler.ListPublished).Methods("GET")
	public.HandleFunc("/published/{id}", projectHandler.GetPublishedCode).Methods("GET")
	public.HandleFunc("/user/plans", userHandler.ListPlans).Methods("GET")

	// Protected routes (require authentication)
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg))

	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	// User routes
	protected.HandleFunc("/user/credits", userHandler.GetCredits).Methods("GET")
	protected.HandleFunc("/user/checkout", userHandler.CreateCheckout).Methods("POST")
	protected.HandleFunc("/user/verify-payment", userHandler.VerifyPayment).Methods("POST")

	// Project routes
	protected.HandleFunc("/projects", projectHandler.ListProjects).Methods("GET")
	protected.HandleFunc("/projects", projectHandler.CreateProject).Methods("POST")
	protected.HandleFunc("/projects/{id}", projectHandler.GetProject).Methods("GET")
	protected.HandleFunc("/projects/{id}", projectHandler.DeleteProject).Methods("DELETE")
	protected.HandleFunc("/projects/{id}/revision", projectHandler.MakeRevision).Methods("POST")
	protected.HandleFunc("/projects/{id}/save", projectHandler.SaveProject).Methods("PUT")
	protected.HandleFunc("/projects/{id}/rollback/{versionId}", projectHandler.RollbackVersion).Methods("GET", "POST")
	protected.HandleFunc("/projects/{id}/publish", projectHandler.TogglePublish).Methods("PUT")
	protected.HandleFunc("/projects/{id}/status", projectHandler.GetStatus).Methods("GET")
	protected.HandleFunc("/projects/{id}/progress", projectHandler.StreamProgress).Methods("GET")

	// CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(r)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// newRedisClient connects to Redis when configured; nil means callers fall
// back to in-process implementations.
func newRedisClient(cfg *appConfig.Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("Invalid REDIS_URL, continuing without Redis: %v", err)
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Failed to ping Redis, continuing without it: %v", err)
		return nil
	}

	return client
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"healthy"}`)
}
