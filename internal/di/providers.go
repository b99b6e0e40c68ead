package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/account-lifecycle-service/internal/app"
	"github.com/sandeepkv93/account-lifecycle-service/internal/config"
	"github.com/sandeepkv93/account-lifecycle-service/internal/database"
	"github.com/sandeepkv93/account-lifecycle-service/internal/health"
	"github.com/sandeepkv93/account-lifecycle-service/internal/http/handler"
	"github.com/sandeepkv93/account-lifecycle-service/internal/http/middleware"
	"github.com/sandeepkv93/account-lifecycle-service/internal/http/router"
	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
	"github.com/sandeepkv93/account-lifecycle-service/internal/repository"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
	"github.com/sandeepkv93/account-lifecycle-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewOneTimeCodeRepository,
	provideRevocationStore,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	providePasswordHasher,
	provideResetTokenCodec,
	wire.Bind(new(service.PasswordHasher), new(*security.Argon2Hasher)),
	wire.Bind(new(service.ResetTokenCodec), new(*security.ResetTokenCodec)),
	wire.Bind(new(middleware.AccessTokenParser), new(*security.JWTManager)),
)

var ServiceSet = wire.NewSet(
	provideOneTimeCodeService,
	provideTokenService,
	provideNotifier,
	provideDispatcher,
	wire.Bind(new(service.Dispatcher), new(*service.AsyncDispatcher)),
	provideAccountService,
	wire.Bind(new(service.AccountServiceInterface), new(*service.AccountService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAccountHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.UsesRedis() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideRevocationStore(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) repository.RevocationStore {
	if cfg.RevocationBackend == config.RevocationBackendRedis && redisClient != nil {
		return repository.NewRedisRevocationStore(redisClient, cfg.RedisPrefix)
	}
	return repository.NewGormRevocationStore(db)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func providePasswordHasher(cfg *config.Config) *security.Argon2Hasher {
	params := security.DefaultArgon2Params()
	params.Time = uint32(cfg.AuthHashTime)
	params.Memory = uint32(cfg.AuthHashMemoryKiB)
	params.Threads = uint8(cfg.AuthHashThreads)
	return security.NewArgon2Hasher(params)
}

func provideResetTokenCodec(cfg *config.Config) *security.ResetTokenCodec {
	return security.NewResetTokenCodec(cfg.AuthResetTokenSecret, cfg.AuthPasswordResetTTL)
}

func provideOneTimeCodeService(cfg *config.Config, repo repository.OneTimeCodeRepository) *service.OneTimeCodeService {
	return service.NewOneTimeCodeService(repo, cfg.AuthOTPLength, cfg.AuthOTPTTL, cfg.AuthOTPMaxAttempts, cfg.AuthStoreTimeout)
}

func provideTokenService(cfg *config.Config, jwt *security.JWTManager, revocations repository.RevocationStore) *service.TokenService {
	return service.NewTokenService(jwt, revocations, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, cfg.AuthStoreTimeout)
}

func provideNotifier(cfg *config.Config, logger *slog.Logger) service.Notifier {
	if cfg.Notifier == config.NotifierSMTP {
		return service.NewSMTPNotifier(service.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	return service.NewLogNotifier(logger)
}

func provideDispatcher(cfg *config.Config, notifier service.Notifier, logger *slog.Logger) *service.AsyncDispatcher {
	return service.NewAsyncDispatcher(notifier, cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifySendTimeout, logger)
}

func provideAccountService(
	cfg *config.Config,
	users repository.UserRepository,
	codes *service.OneTimeCodeService,
	tokens *service.TokenService,
	hasher service.PasswordHasher,
	resetCodec service.ResetTokenCodec,
	dispatcher service.Dispatcher,
	logger *slog.Logger,
) *service.AccountService {
	return service.NewAccountService(users, codes, tokens, hasher, resetCodec, dispatcher, service.AccountOptions{
		ResetBaseURL:             cfg.AuthPasswordResetBaseURL,
		ConcealUnknownResetEmail: cfg.AuthPasswordResetConcealUnknown,
		StoreTimeout:             cfg.AuthStoreTimeout,
	}, logger)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisPrefix)
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute, "api").Middleware()
}

// provideAuthRateLimiter counts account endpoints per client IP. The redis
// backed variant fails closed so an outage cannot lift brute-force limits.
func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisPrefix)
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute, "auth").Middleware()
}

func provideRouterDependencies(
	accountHandler *handler.AccountHandler,
	accessTokens middleware.AccessTokenParser,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AccountHandler:    accountHandler,
		AccessTokens:      accessTokens,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) (*health.ProbeRunner, error) {
	tables, err := database.TableNames(db)
	if err != nil {
		return nil, err
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, 0,
		health.NewDBChecker(db),
		health.NewSchemaChecker(db, tables...),
		health.NewRedisChecker(redisClient),
	), nil
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	notifications *service.AsyncDispatcher,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness, notifications)
}
