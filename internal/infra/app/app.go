package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/infra/config"
	"github.com/VickyKR37/autobook/internal/infra/database"
	kafkainfra "github.com/VickyKR37/autobook/internal/infra/kafka"
	"github.com/VickyKR37/autobook/internal/infra/logger"
	"github.com/VickyKR37/autobook/internal/infra/notification"
	redisinfra "github.com/VickyKR37/autobook/internal/infra/redis"
	"github.com/VickyKR37/autobook/internal/infra/security"
	"github.com/VickyKR37/autobook/internal/infra/telemetry"
	postgresrepo "github.com/VickyKR37/autobook/internal/repository/postgres"
	redisrepo "github.com/VickyKR37/autobook/internal/repository/redis"
	transportgrpc "github.com/VickyKR37/autobook/internal/transport/grpc"
	grpcinterceptors "github.com/VickyKR37/autobook/internal/transport/grpc/interceptors"
	"github.com/VickyKR37/autobook/internal/transport/http/middleware"
	"github.com/VickyKR37/autobook/internal/transport/http/routes"
	"github.com/VickyKR37/autobook/internal/usecase"
)

type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redisinfra.Client
	tracer     *telemetry.TracerProvider
	producer   *kafkainfra.Producer
	consumer   *kafkainfra.ConsumerGroup
	grpcServer *grpc.Server
	grpcAddr   string
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &Application{cfg: cfg, logger: log}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	app.tracer = tracer

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	app.pool = pool

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	app.redis = redisClient

	hasher, err := security.NewCodeHasher(security.HasherConfig{
		Algorithm: cfg.Hasher.Algorithm,
		Argon2: security.Argon2Config{
			Memory:      cfg.Argon2.Memory,
			Iterations:  cfg.Argon2.Iterations,
			Parallelism: cfg.Argon2.Parallelism,
			SaltLength:  cfg.Argon2.SaltLength,
			KeyLength:   cfg.Argon2.KeyLength,
		},
		Pepper:     cfg.Hasher.Pepper,
		BcryptCost: cfg.Hasher.BcryptCost,
	})
	if err != nil {
		return nil, fmt.Errorf("init access code hasher: %w", err)
	}

	var ownerTokens middleware.OwnerTokenParser
	if cfg.Auth.TokenSecret != "" {
		verifier, err := security.NewOwnerTokenVerifier(security.OwnerTokenConfig{
			Secret:   cfg.Auth.TokenSecret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Leeway:   cfg.Auth.Leeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init owner token verifier: %w", err)
		}
		ownerTokens = verifier
	} else {
		log.Warn("auth.token_secret not set; owner endpoints will reject requests")
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = 15 * time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})

	eventPublisher := app.newEventPublisher()

	accessMetrics, err := telemetry.NewAccessCodeMetrics(telemetry.AccessCodeMetricsOptions{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		return nil, fmt.Errorf("init access code metrics: %w", err)
	}

	profiles := postgresrepo.NewProfileRepository(pool)

	issuanceService := usecase.NewIssuanceService(profiles, hasher, security.NewAccessCodeGenerator(), eventPublisher, log)
	issuanceService.WithMetrics(accessMetrics)

	validationService := usecase.NewValidationService(cfg, profiles, hasher, rateLimitStore, eventPublisher, log)
	validationService.WithMetrics(accessMetrics)

	dispatcher := notification.NewLoggingDispatcher(log, cfg.App.IsDevelopment())
	app.consumer = app.newAccountConsumer(kafkainfra.NewAccountCreatedConsumer(issuanceService, dispatcher, log))

	grpcMetrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init grpc metrics: %w", err)
	}

	grpcSrv, err := transportgrpc.NewServer(transportgrpc.ServerDependencies{
		Issuance:       issuanceService,
		Validation:     validationService,
		OwnerTokens:    ownerTokens,
		Metrics:        grpcMetrics,
		TracerProvider: tracer.Provider(),
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("init grpc server: %w", err)
	}
	app.grpcServer = grpcSrv
	app.grpcAddr = fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	app.engine = routes.Register(routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		RateLimiter:    middleware.NewRateLimiter(rateLimitStore, log).WithMetrics(httpMetrics),
		OwnerTokens:    ownerTokens,
		Metrics:        httpMetrics,
		TracerProvider: tracer.Provider(),
		Database:       pool,
		Cache:          redisClient,
		Services: routes.ServiceSet{
			Issuance:   issuanceService,
			Validation: validationService,
		},
	})

	ok = true
	return app, nil
}

// newEventPublisher returns the Kafka publisher, or a logging stub when no broker is reachable.
func (a *Application) newEventPublisher() port.EventPublisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger)
	}

	a.producer = producer
	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger)
}

func (a *Application) newAccountConsumer(handler kafkainfra.MessageHandler) *kafkainfra.ConsumerGroup {
	if len(a.cfg.Kafka.Brokers) == 0 || a.cfg.Kafka.AccountCreatedTopic == "" {
		a.logger.Info("account-created consumer disabled")
		return nil
	}

	group, err := kafkainfra.NewConsumerGroup(a.cfg.Kafka, a.cfg.Kafka.AccountCreatedTopic, handler, a.logger)
	if err != nil {
		a.logger.Warn("failed to init account-created consumer", zap.Error(err))
		return nil
	}
	return group
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	consumerErrCh := make(chan error, 1)
	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.consumer.Run(ctx); err != nil {
				consumerErrCh <- fmt.Errorf("run account-created consumer: %w", err)
			}
		}()
	}

	grpcErrCh := make(chan error, 1)
	if a.grpcServer != nil && a.grpcAddr != "" {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		a.logger.Info("starting gRPC server", zap.String("address", a.grpcAddr))
		go func() {
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				a.logger.Error("gRPC server error", zap.Error(err))
				grpcErrCh <- fmt.Errorf("run grpc server: %w", err)
			}
		}()
		defer a.grpcServer.GracefulStop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting AutoBook access API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-grpcErrCh:
		return err
	case err := <-consumerErrCh:
		return err
	}
}

// close releases infrastructure in reverse order of construction.
func (a *Application) close() {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("close account-created consumer", zap.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
}
