package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/jwalitptl/medinfo-api/config"
	authhandler "github.com/jwalitptl/medinfo-api/internal/handler/auth"
	chatbothandler "github.com/jwalitptl/medinfo-api/internal/handler/chatbot"
	"github.com/jwalitptl/medinfo-api/internal/handler/health"
	medicinehandler "github.com/jwalitptl/medinfo-api/internal/handler/medicine"
	pharmacyhandler "github.com/jwalitptl/medinfo-api/internal/handler/pharmacy"
	translatehandler "github.com/jwalitptl/medinfo-api/internal/handler/translate"
	"github.com/jwalitptl/medinfo-api/internal/middleware"
	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/llm"
	"github.com/jwalitptl/medinfo-api/internal/provider/oauth"
	"github.com/jwalitptl/medinfo-api/internal/provider/ocr"
	"github.com/jwalitptl/medinfo-api/internal/provider/places"
	"github.com/jwalitptl/medinfo-api/internal/provider/translate"
	"github.com/jwalitptl/medinfo-api/internal/repository"
	"github.com/jwalitptl/medinfo-api/internal/repository/cache"
	"github.com/jwalitptl/medinfo-api/internal/repository/postgres"
	"github.com/jwalitptl/medinfo-api/internal/router"
	authservice "github.com/jwalitptl/medinfo-api/internal/service/auth"
	"github.com/jwalitptl/medinfo-api/internal/service/chatbot"
	"github.com/jwalitptl/medinfo-api/internal/service/medicine"
	"github.com/jwalitptl/medinfo-api/internal/service/pharmacy"
	"github.com/jwalitptl/medinfo-api/internal/service/prescription"
	"github.com/jwalitptl/medinfo-api/internal/service/translation"
	"github.com/jwalitptl/medinfo-api/pkg/auth"
	"github.com/jwalitptl/medinfo-api/pkg/logger"
	"github.com/jwalitptl/medinfo-api/pkg/messaging"
	"github.com/jwalitptl/medinfo-api/pkg/messaging/redis"
	"github.com/jwalitptl/medinfo-api/pkg/metrics"
	"github.com/jwalitptl/medinfo-api/pkg/security"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	appLogger := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			appLogger.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Metrics.Namespace, registry)

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	var medicineRepo repository.MedicineRepository = postgres.NewMedicineRepository(base)
	userRepo := postgres.NewUserRepository(base)

	var (
		publisher   messaging.Publisher = messaging.NopPublisher{}
		redisClient *goredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisClient.Close()

		medicineRepo = cache.NewMedicineRepository(medicineRepo, redisClient, cfg.Redis.CacheTTL,
			logger.Component(appLogger, "medicine-cache"))
		broker := redis.NewRedisBroker(redisClient, logger.Component(appLogger, "broker"))
		publisher = messaging.NewEventPublisher(broker, cfg.Redis.EventChannel)
	}

	// Initialize providers
	generator, err := newTextGenerator(cfg.LLM, m, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to configure text generation")
	}
	ocrEngine := newOCREngine(cfg.OCR, m)
	translator := translate.NewClient(cfg.Translate.URL, cfg.Translate.APIKey, cfg.Translate.Timeout)
	placesClient := places.NewClient(cfg.Places.OverpassURL, cfg.Places.NominatimURL, cfg.Places.UserAgent, cfg.Places.Timeout)

	verifiers := map[string]oauth.Verifier{}
	oauthHTTP := &http.Client{Timeout: 10 * time.Second}
	if cfg.OAuth.GoogleClientID != "" {
		verifiers[model.ProviderGoogle] = oauth.NewGoogleVerifier(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleTokenURL, oauthHTTP)
	}
	if cfg.OAuth.FacebookAppSecret != "" {
		verifiers[model.ProviderFacebook] = oauth.NewFacebookVerifier(cfg.OAuth.FacebookAppSecret, cfg.OAuth.FacebookGraphURL, oauthHTTP)
	}

	// Initialize services
	normalizer := medicine.NewNormalizer(generator, cfg.Medicine.NormalizerCacheTTL, logger.Component(appLogger, "normalizer"))
	medicineSvc := medicine.NewService(normalizer, generator, medicineRepo, publisher, m,
		logger.Component(appLogger, "medicine"),
		medicine.Options{Source: cfg.LLM.Provider, CoalesceGeneration: cfg.Medicine.CoalesceGeneration},
	)
	prescriptionSvc := prescription.NewService(ocrEngine, generator, medicineSvc, cfg.Prescription.Concurrency, m,
		logger.Component(appLogger, "prescription"))
	translationSvc := translation.NewService(translator, logger.Component(appLogger, "translation"))
	pharmacySvc := pharmacy.NewService(placesClient, cfg.Places.DefaultRadius, cfg.Places.CacheTTL,
		logger.Component(appLogger, "pharmacy"))

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authservice.NewService(userRepo, jwtSvc, security.NewBcryptHasher(cfg.Auth.BcryptCost), verifiers, publisher,
		logger.Component(appLogger, "auth"))

	// Initialize handlers
	var redisPinger health.Pinger
	if redisClient != nil {
		redisPinger = health.RedisPinger(redisClient)
	}
	handlers := router.Handlers{
		Health:    health.NewHandler(db, redisPinger),
		Medicine:  medicinehandler.NewHandler(medicineSvc, prescriptionSvc, translationSvc, cfg.Server.MaxUploadBytes, logger.Component(appLogger, "http")),
		Auth:      authhandler.NewHandler(authSvc, middleware.NewAuthMiddleware(jwtSvc).Authenticate()),
		Chatbot:   chatbothandler.NewHandler(chatbot.NewService()),
		Pharmacy:  pharmacyhandler.NewHandler(pharmacySvc),
		Translate: translatehandler.NewHandler(translationSvc),
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins

	r := router.NewRouter(handlers, router.RouterConfig{
		Mode:             cfg.Server.Mode,
		RequestTimeout:   cfg.Server.RequestTimeout,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		MaxUploadBytes:   cfg.Server.MaxUploadBytes,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RequestsPerSecond,
			Burst: cfg.RateLimit.Burst,
		},
		CORSConfig:     corsConfig,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		MetricsPrefix:  cfg.Metrics.Namespace,
		Registry:       registry,
	}, logger.Component(appLogger, "http"))

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		appLogger.Info().Str("addr", srv.Addr).Str("llm", cfg.LLM.Provider).Str("ocr", cfg.OCR.Engine).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	appLogger.Info().Msg("server exited properly")
}

func newTextGenerator(cfg config.LLMConfig, m *metrics.Metrics, l zerolog.Logger) (*llm.Client, error) {
	httpClient := &http.Client{}

	var (
		gen llm.TextGenerator
		err error
	)
	switch cfg.Provider {
	case "gemini":
		gen, err = llm.NewGeminiClient(cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient)
	case "openai":
		gen, err = llm.NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient)
	default:
		err = fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return llm.NewClient(gen, llm.Options{
		Name:             cfg.Provider,
		Timeout:          cfg.Timeout,
		MaxRetries:       cfg.MaxRetries,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
		Metrics:          m,
		Logger:           logger.Component(l, "llm"),
	}), nil
}

func newOCREngine(cfg config.OCRConfig, m *metrics.Metrics) ocr.Engine {
	if cfg.Engine == "http" {
		return ocr.NewHTTPEngine(cfg.URL, cfg.Timeout, &http.Client{}, m)
	}
	return ocr.NewTesseractEngine(cfg.Binary, cfg.Language, cfg.Timeout, m)
}
