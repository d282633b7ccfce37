package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"app/internal/ai"
	"app/internal/api/v1/handler"
	"app/internal/billing"
	"app/internal/cache"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/storage"
	"app/internal/tier"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// 1. Open DB connection pool
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DB pool")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})
	objectStore := storage.NewS3Store(s3Client, cfg.S3Bucket)

	// 3. Initialize Redis-backed cache. Without REDIS_ADDR every lookup
	// misses and the services fall through to Postgres.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	appCache := cache.New(redisClient, time.Duration(cfg.CacheTTLSec)*time.Second)

	// 4. Initialize Pub/Sub publisher
	var publisher pubsub.Publisher = pubsub.NopPublisher{}
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
			return nil, nil, err
		}
		publisher = p
	}

	// 5. Resolve secrets kept out of the environment
	if err := resolveSecrets(ctx, cfg, logger); err != nil {
		return nil, nil, err
	}

	// 6. Initialize external clients
	aiClient := ai.New(ai.Config{
		Endpoint:    cfg.AIEndpoint,
		APIKey:      cfg.AIAPIKey,
		CustomerID:  cfg.AICustomerID,
		ChatModel:   cfg.AIChatModel,
		ScriptModel: cfg.AIScriptModel,
		VideoModel:  cfg.AIVideoModel,
	})
	if cfg.AIAPIKey != "" {
		// Non-fatal: the gateway may recover before the first pipeline call.
		if err := aiClient.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("AI gateway ping failed")
		} else {
			logger.Info().Msg("AI gateway connection successful")
		}
	}
	paypalClient := billing.NewClient(billing.Config{
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Environment:  cfg.PayPalEnvironment,
		WebhookID:    cfg.PayPalWebhookID,
		PlanIDs:      cfg.PlanIDs(),
	}, logger)

	// 7. Initialize validator and tier policy
	validate := validator.New(validator.WithRequiredStructEnabled())
	policy := tier.NewPolicy(tier.Default())

	// 8. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	projectRepo := repository.NewProjectRepo(pool)
	renderJobRepo := repository.NewRenderJobRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)

	usageSvc := service.NewUsageService(usageRepo, userRepo, policy, appCache, logger)
	projectSvc := service.NewProjectService(projectRepo, userRepo, policy, objectStore, usageSvc, publisher, cfg.PubSubPipelineTopic, logger)
	pipelineSvc := service.NewPipelineService(projectRepo, renderJobRepo, userRepo, usageSvc, policy, aiClient, publisher, cfg.PubSubPipelineTopic, service.StageTimeouts{
		Analyze: cfg.AnalyzeTimeout(),
		Script:  cfg.ScriptTimeout(),
		Render:  cfg.RenderTimeout(),
	}, logger)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, userRepo, paypalClient, policy, appCache, logger)
	userSvc := service.NewUserService(userRepo, usageSvc, logger)

	projectHandler := handler.NewProjectHandler(projectSvc, pipelineSvc, validate, logger)
	renderJobHandler := handler.NewRenderJobHandler(pipelineSvc, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc, usageSvc, paypalClient, validate, logger)
	adminHandler := handler.NewAdminHandler(userSvc, validate, logger)

	// 9. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 10. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	projectHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	renderJobHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Redirect root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 11. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// resolveSecrets fills credentials the environment leaves empty from
// Secret Manager. A missing project ID or secret name leaves the
// config value as-is.
func resolveSecrets(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.GCPProjectID == "" {
		return nil
	}
	needPayPal := cfg.PayPalClientSecret == "" && cfg.PayPalSecretName != ""
	needAIKey := cfg.AIAPIKey == "" && cfg.AIKeySecretName != ""
	if !needPayPal && !needAIKey {
		return nil
	}

	secrets, err := service.NewSecretManagerService(ctx, cfg.GCPProjectID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Secret Manager client")
		return err
	}
	defer secrets.Close()

	if needPayPal {
		value, err := secrets.GetSecret(ctx, cfg.PayPalSecretName)
		if err != nil {
			return err
		}
		cfg.PayPalClientSecret = value
	}
	if needAIKey {
		value, err := secrets.GetSecret(ctx, cfg.AIKeySecretName)
		if err != nil {
			return err
		}
		cfg.AIAPIKey = value
	}
	return nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
