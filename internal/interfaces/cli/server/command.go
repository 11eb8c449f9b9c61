package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"pixgate/internal/application/charge/poller"
	chargeUsecases "pixgate/internal/application/charge/usecases"
	"pixgate/internal/infrastructure/config"
	"pixgate/internal/infrastructure/database"
	"pixgate/internal/infrastructure/email"
	"pixgate/internal/infrastructure/gateway/ezzebank"
	"pixgate/internal/infrastructure/migration"
	"pixgate/internal/infrastructure/repository"
	"pixgate/internal/infrastructure/scheduler"
	httpRouter "pixgate/internal/interfaces/http"
	"pixgate/internal/interfaces/http/handlers"
	"pixgate/internal/shared/db"
	"pixgate/internal/shared/logger"
)

var (
	env                string
	autoMigrate        bool
	skipMigrationCheck bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Pixgate HTTP server with specified configuration.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	ginMode := mapEnvToGinMode(env)

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Server.Mode = ginMode

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting server",
		"environment", env,
		"auto-migrate", autoMigrate,
	)

	gin.SetMode(cfg.Server.Mode)

	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
	}

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := handleMigrations(env); err != nil {
		logger.Fatal("migration handling failed", "error", err)
	}

	log := logger.NewLogger()

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	gatewayClient := ezzebank.NewClient(&cfg.Gateway, log.Named("gateway.ezzebank"))

	chargeRepo := repository.NewChargeRepository(database.Get())

	notifier := email.NewSMTPNotifier(email.SMTPConfig{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		Username:    cfg.Email.SMTPUser,
		Password:    cfg.Email.SMTPPassword,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		OperatorTo:  cfg.Email.OperatorTo,
	}, log.Named("email"))

	txMgr := db.NewTransactionManager(database.Get())

	reconcileUC := chargeUsecases.NewReconcileObservationUseCase(chargeRepo, txMgr, notifier, log)
	createUC := chargeUsecases.NewCreateChargeUseCase(chargeRepo, gatewayClient, log)
	getUC := chargeUsecases.NewGetChargeUseCase(chargeRepo, log)
	listUC := chargeUsecases.NewListChargesUseCase(chargeRepo, log)
	deleteUC := chargeUsecases.NewDeleteChargeUseCase(chargeRepo, log)
	checkUC := chargeUsecases.NewCheckChargeStatusUseCase(chargeRepo, gatewayClient, reconcileUC, log)
	sweepUC := chargeUsecases.NewSweepStaleChargesUseCase(chargeRepo, gatewayClient, reconcileUC, log)

	statusPoller := poller.New(checkUC, cfg.Poll.Interval(), cfg.Poll.Timeout(), log.Named("poller"))

	sweepScheduler := scheduler.NewSweepScheduler(sweepUC, cfg.Poll.SweepInterval(), log.Named("scheduler.sweep"))
	sweepScheduler.Start(context.Background())
	defer sweepScheduler.Stop()

	chargeHandler := handlers.NewChargeHandler(createUC, getUC, listUC, deleteUC, checkUC, statusPoller, log)
	webhookHandler := handlers.NewWebhookHandler(reconcileUC, cfg.Webhook.Secret, log)

	router := httpRouter.NewRouter(chargeHandler, webhookHandler, redisClient, &cfg.Server, log)
	router.SetupRoutes()

	srv := &http.Server{
		Addr:        cfg.Server.GetAddr(),
		Handler:     router.GetEngine(),
		ReadTimeout: 15 * time.Second,
		// The wait endpoint holds its response open for the whole polling
		// window, so the write deadline has to outlast it.
		WriteTimeout: serverWriteTimeout(cfg.Poll.Timeout()),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

// initRedis connects the rate-limiter backend. The limiter is optional:
// when redis is unreachable the server starts without it.
func initRedis(cfg *config.Config, log logger.Interface) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnw("redis unavailable, webhook rate limiting disabled", "error", err)
		client.Close()
		return nil
	}

	log.Infow("redis connected", "addr", cfg.Redis.GetAddr())
	return client
}

func handleMigrations(environment string) error {
	if skipMigrationCheck {
		logger.Info("skipping migration check")
		return nil
	}

	scriptsPath, err := filepath.Abs("./internal/infrastructure/migration/scripts")
	if err != nil {
		logger.Warn("failed to get migration scripts path", "error", err)
		return nil
	}

	runner := migration.NewRunner(scriptsPath)

	if autoMigrate {
		if environment == "production" {
			logger.Warn("auto-migration is enabled in production environment - this is not recommended!")
		}

		logger.Info("running auto-migration")
		if err := runner.Up(database.Get()); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		logger.Info("auto-migration completed successfully")
		return nil
	}

	logger.Info("checking migration status")

	version, err := runner.Version(database.Get())
	if err != nil {
		logger.Warn("failed to check migration status", "error", err)
	} else {
		logger.Info("current migration version", "version", version)
	}

	return nil
}

// waitDeadlineSlack keeps long-poll responses writable after the polling
// window closes.
const waitDeadlineSlack = 30 * time.Second

// serverWriteTimeout sizes the server write deadline so it always exceeds
// the blocking wait endpoint's polling window.
func serverWriteTimeout(pollWindow time.Duration) time.Duration {
	timeout := 15 * time.Second
	if pollWindow+waitDeadlineSlack > timeout {
		timeout = pollWindow + waitDeadlineSlack
	}
	return timeout
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod":
		return "release"
	case "development", "dev":
		return "debug"
	case "test", "testing":
		return "test"
	case "debug":
		return "debug"
	case "release":
		return "release"
	default:
		return "debug"
	}
}
