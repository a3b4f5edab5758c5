package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	configs "github.com/jatinpathania/University-assignment-approval-system/config"
	"github.com/jatinpathania/University-assignment-approval-system/internal/cache"
	"github.com/jatinpathania/University-assignment-approval-system/internal/notify"
	"github.com/jatinpathania/University-assignment-approval-system/internal/repository"
	"github.com/jatinpathania/University-assignment-approval-system/internal/server/httpapi"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
	"github.com/jatinpathania/University-assignment-approval-system/internal/storage"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/db"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/kafka"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("cannot load config", zap.Error(err))
	}

	postgres, err := db.NewPostgres(db.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		log.Fatal("cannot connect to database", zap.Error(err))
	}
	defer func() { _ = postgres.Close() }()

	producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
	if err != nil {
		log.Fatal("cannot create kafka producer", zap.Error(err))
	}
	defer func() { _ = producer.Close() }()

	documents, err := storage.New(ctx, storage.Config{
		Endpoint:        cfg.S3.Endpoint,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		log.Fatal("cannot init document store", zap.Error(err))
	}

	redisConn := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	defer func() { _ = redisConn.Close() }()
	redisCache := cache.NewRedisCache(redisConn)

	assignmentRepo := repository.NewAssignmentRepository(postgres.DB())
	userRepo := repository.NewUserRepository(postgres.DB())
	departmentRepo := repository.NewDepartmentRepository(postgres.DB())
	challengeRepo := repository.NewChallengeRepository(postgres.DB())

	notifier := notify.NewKafkaNotifier(producer, cfg.Kafka.Topic, log)
	verifier := service.NewVerificationService(challengeRepo, notifier)
	hasher := service.BcryptHasher{}

	reviews := service.NewReviewService(assignmentRepo, userRepo, documents, verifier, notifier, log)
	users := service.NewUserService(userRepo, assignmentRepo, departmentRepo, verifier, notifier, hasher, log)
	auth := service.NewAuthService(userRepo, hasher, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	dashboards := service.NewDashboardService(assignmentRepo, userRepo)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Reviews:    reviews,
		Users:      users,
		Auth:       auth,
		Dashboards: dashboards,
		Cache:      redisCache,
		CacheTTL:   cfg.Redis.TTL,
		Logger:     log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("starting server", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("cannot start http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
