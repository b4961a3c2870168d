package main

import (
	"context"
	"log"
	"time"

	"fixit-be/config"
	"fixit-be/controllers"
	"fixit-be/health"
	"fixit-be/middlewares"
	"fixit-be/platform/classifier"
	"fixit-be/platform/geocoder"
	"fixit-be/platform/geoindex"
	"fixit-be/platform/queue"
	"fixit-be/platform/storage"
	"fixit-be/repository"
	"fixit-be/routes"
	"fixit-be/services"
	"fixit-be/workers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	client, db, err := config.ConnectDB(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := repository.EnsureIndexes(db); err != nil {
		log.Printf("Warning: Could not ensure indexes: %v", err)
	}

	rdb, err := config.ConnectRedis(cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		log.Printf("Warning: %v. Issue rate limiting disabled.", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if p, err := queue.NewRabbitPublisher(cfg.RabbitMQURL, services.IssueEventsQueue); err != nil {
		log.Printf("Warning: Could not connect to RabbitMQ: %v. Async features disabled.", err)
	} else {
		publisher = p
		defer p.Close()
	}

	var images services.ImageStore
	if cfg.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("Warning: Could not connect to MinIO: %v", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := store.EnsureBucket(ctx); err != nil {
				log.Printf("Warning: Could not initialize storage bucket: %v", err)
			}
			cancel()
			images = store
		}
	} else {
		log.Println("Warning: MINIO_ENDPOINT not set. Image uploads disabled.")
	}

	var analyzer services.ImageAnalyzer
	if cfg.AnalysisURL != "" {
		analyzer = classifier.New(cfg.AnalysisURL, cfg.AnalysisAPIKey)
	}
	var geo services.Geocoder
	if cfg.GeocoderURL != "" {
		geo = geocoder.NewNominatim(cfg.GeocoderURL, "fixit-be")
	}

	// Repositories
	issueRepo := repository.NewIssueRepository(db)
	userRepo := repository.NewUserRepository(db)
	thresholdRepo := repository.NewThresholdRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Services
	notifications := services.NewNotificationService(notificationRepo)
	scorer := services.NewScorer(userRepo, notifications)
	thresholds := services.NewThresholdService(thresholdRepo, cfg.DefaultLimits)
	issues := services.NewIssueService(issueRepo, userRepo, services.IssueDeps{
		Images:        images,
		Analyzer:      analyzer,
		Geocoder:      geo,
		Geo:           geoindex.New(geoindex.DefaultResolution),
		Scorer:        scorer,
		Notifications: notifications,
		Events:        publisher,
	})

	checks := map[string]health.CheckFunc{
		"mongodb": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	ctl := &controllers.Controller{
		Users:  userRepo,
		Issues: issues,
		Lifecycle: &services.Lifecycle{
			Issues:        issueRepo,
			Images:        images,
			Analyzer:      analyzer,
			Scorer:        scorer,
			Notifications: notifications,
			Events:        publisher,
		},
		Votes:         services.NewVoteService(issueRepo, scorer),
		Dashboard:     services.NewDashboardService(issueRepo, thresholds),
		Thresholds:    thresholds,
		Notifications: notifications,
		Rewards:       services.NewRewardService(userRepo, notifications),
		Health:        health.NewChecker(cfg.HealthCacheTTL, checks),
		JWTSecret:     cfg.JWTSecret,
		Domain:        cfg.Domain,
		Production:    cfg.Production(),
	}

	// Address enrichment runs off the request path.
	if consumer, err := queue.NewRabbitConsumer(cfg.RabbitMQURL, services.IssueEventsQueue); err != nil {
		log.Printf("Warning: Could not connect RabbitMQ Consumer: %v", err)
	} else {
		defer consumer.Close()
		go func() {
			if err := workers.NewIssueConsumer(consumer, issues).Start(context.Background()); err != nil {
				log.Printf("Warning: issue consumer stopped: %v", err)
			}
		}()
	}

	if err := controllers.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.Register(r, ctl, routes.Middleware{
		Auth:         middlewares.AuthMiddleware(cfg.JWTSecret, userRepo),
		OptionalAuth: middlewares.OptionalAuth(cfg.JWTSecret, userRepo),
		IssueLimiter: middlewares.IssueRateLimiter(rdb, cfg.IssueLimitPrefix, cfg.IssueDailyLimit),
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
