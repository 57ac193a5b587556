package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/advance"
	advancepostgres "github.com/frahmantamala/cash-advance/internal/advance/postgres"
	"github.com/frahmantamala/cash-advance/internal/auth"
	authpostgres "github.com/frahmantamala/cash-advance/internal/auth/postgres"
	"github.com/frahmantamala/cash-advance/internal/core/events"
	"github.com/frahmantamala/cash-advance/internal/report"
	reportpostgres "github.com/frahmantamala/cash-advance/internal/report/postgres"
	"github.com/frahmantamala/cash-advance/internal/transport/rest"
	"github.com/frahmantamala/cash-advance/internal/user"
	userpostgres "github.com/frahmantamala/cash-advance/internal/user/postgres"
	"github.com/frahmantamala/cash-advance/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *gorm.DB
	SQLX   *sqlx.DB
	Redis  *redis.Client
	Bus    *events.EventBus
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Server.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.Bus.Drain(ctx); err != nil {
			deps.Logger.Error("Event handlers did not finish", "error", err)
		}
		deps.close()
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.SQLX.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	bus := events.NewEventBus(deps.Logger)
	events.SubscribeAuditLog(bus, deps.Logger)
	deps.Bus = bus

	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if deps.Redis != nil {
		revocations = auth.NewRedisRevocationStore(deps.Redis, cfg.Redis.KeyPrefix)
	}

	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.AccessTokenDuration)
	authService := auth.NewService(authpostgres.NewRepository(deps.DB), tokens, revocations, cfg.Security.BCryptCost, deps.Logger)
	userService := user.NewService(userpostgres.NewUserRepository(deps.DB), deps.Logger)
	advanceService := advance.NewService(advancepostgres.NewAdvanceRepository(deps.DB), bus, cfg.Advance, deps.Logger)
	reportService := report.NewService(reportpostgres.NewReportRepository(deps.SQLX), advanceService, deps.Logger)

	checks := map[string]rest.Checker{
		"database": func(ctx context.Context) error { return deps.SQLX.PingContext(ctx) },
	}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Auth:    auth.NewHandler(authService),
		RBAC:    auth.NewRBACAuthorization(deps.Logger),
		User:    user.NewHandler(userService),
		Advance: advance.NewHandler(advanceService),
		Report:  report.NewHandler(reportService),
		Health:  rest.NewHealthHandler(checks),
	}, rest.Options{AllowedOrigins: cfg.Server.AllowedOrigins}, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitWithOptions(config.Server.Env, logger.Options{
		Level:  config.Observability.Logging.Level,
		Format: config.Observability.Logging.Format,
	})
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}

	deps := &Dependencies{
		Config: config,
		Logger: log,
		DB:     db,
		SQLX:   sqlx.NewDb(sqlDB, "pgx"),
		Router: chi.NewRouter(),
	}

	if config.Redis.Enabled() {
		deps.Redis, err = initRedis(config.Redis)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
	} else {
		log.Warn("redis not configured; token revocations are kept in memory")
	}

	return deps, nil
}

// initDB opens the gorm connection and applies pool settings to the underlying *sql.DB.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if cfg.LogQueries {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func initRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
