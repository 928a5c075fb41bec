package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/mateoabrbt/whistle-server/internal/handler/http"
	wsHandler "github.com/mateoabrbt/whistle-server/internal/handler/websocket"
	"github.com/mateoabrbt/whistle-server/internal/hub"
	gormpersistence "github.com/mateoabrbt/whistle-server/internal/infra/persistence/gorm"
	"github.com/mateoabrbt/whistle-server/internal/infra/setup"
	redisstate "github.com/mateoabrbt/whistle-server/internal/infra/state/redis"
	"github.com/mateoabrbt/whistle-server/internal/service"
	"github.com/mateoabrbt/whistle-server/internal/tasks"
	"github.com/mateoabrbt/whistle-server/internal/worker"
)

// App holds the wired components and their lifecycles.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server

	redisClientOpt asynq.RedisClientOpt
	scheduler      *asynq.Scheduler
}

// NewApp loads the configuration and builds every component.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := newLogger(cfg)
	log.Info("Configuration loaded successfully")

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Redis and Asynq clients initialized")

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	revokedRepo := gormpersistence.NewGormRevokedTokenRepository(db)
	transactor := gormpersistence.NewGormTransactor(db)
	revocationCache := redisstate.NewRedisRevocationCache(redisClient, cfg.KeyPrefix)
	rateLimiter := redisstate.NewRedisRateLimiter(redisClient, cfg.KeyPrefix)

	hubInstance := hub.NewHub()

	revocationService := service.NewRevocationService(revokedRepo, revocationCache)
	authService, err := service.NewAuthService(userRepo, revocationService, cfg.JWTSecret, cfg.JWTExpiryHours, cfg.JWTRefreshExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	roomService := service.NewRoomService(transactor, roomRepo, userRepo, hubInstance, hubInstance)
	messageService := service.NewMessageService(roomRepo, messageRepo, hubInstance)
	statusEngine := service.NewStatusEngine(transactor, roomRepo, hubInstance)
	log.Info("Services initialized")

	dispatcher := wsHandler.NewEventDispatcher(roomService, messageService, statusEngine, hubInstance)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := NewRouter(log, Routes{
		Auth:            httpHandler.NewAuthHandler(authService),
		Users:           httpHandler.NewUserHandler(authService),
		Rooms:           httpHandler.NewRoomHandler(roomService, messageService),
		Messages:        httpHandler.NewMessageHandler(messageService, statusEngine),
		WebSocket:       wsHandler.NewWebSocketHandler(hubInstance, roomService, dispatcher, cfg.CORSOrigin, cfg.SendQueueSize),
		Verifier:        authService,
		Revocations:     revocationService,
		Limiter:         rateLimiter,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		CORSOrigin:      cfg.CORSOrigin,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    worker.NewWorkerServer(redisClientOpt, revocationService, log),
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}, nil
}

func newLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	return log
}

// Start launches the hub, the worker, the scheduler and the HTTP server.
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.registerPeriodicTasks()
	a.enqueueStartupSweep()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{Location: time.UTC})

	task, err := tasks.NewRevokedSweepTask()
	if err != nil {
		a.Log.Errorf("Failed to create revoked sweep task: %v", err)
		return
	}
	entryID, err := scheduler.Register(a.Config.SweepCron, task, asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register revoked sweep task: %v", err)
		return
	}
	a.Log.Infof("Revoked sweep registered with schedule '%s' (EntryID: %s)", a.Config.SweepCron, entryID)

	a.scheduler = scheduler
	go func() {
		if err := scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
		}
	}()
}

// enqueueStartupSweep clears tokens that expired while the process was down.
func (a *App) enqueueStartupSweep() {
	task, err := tasks.NewRevokedSweepTask()
	if err != nil {
		a.Log.Errorf("Failed to create revoked sweep task: %v", err)
		return
	}
	info, err := a.AsynqClient.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(3))
	if err != nil {
		a.Log.Warnf("Could not enqueue startup revoked sweep: %v", err)
		return
	}
	a.Log.Infof("Startup revoked sweep enqueued (ID: %s)", info.ID)
}

// Shutdown stops accepting requests, then drains background work.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}
