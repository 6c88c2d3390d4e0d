package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	auth "github.com/goliatone/go-auth-users"
	"github.com/goliatone/go-auth-users/activitymap"
	"github.com/goliatone/go-auth-users/config"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file, the embedded config is used when empty")
	flag.Parse()

	// standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Application shut down complete.")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := auth.OpenDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := auth.EnsureSchema(ctx, db); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := auth.NewMetrics(reg)

	sink := activitymap.NewSink(logger.With("component", "activity"),
		activitymap.WithChannel(cfg.Activity.Channel),
	)

	repos := auth.NewRepositoryManager(db)
	repos.MustValidate()
	store := repos.Users()

	auther := auth.NewAuthenticator(store, cfg.Auth).
		WithLogger(logger).
		WithMetrics(metrics).
		WithActivitySink(sink)

	guard := auth.NewPermissionGuard().
		WithLogger(logger).
		WithMetrics(metrics)

	resolver := auth.NewSessionResolver(auther.TokenService(), store).
		WithLogger(logger).
		WithMetrics(metrics)

	users := auth.NewUserService(store, auther.PasswordHasher()).
		WithLogger(logger).
		WithGuard(guard).
		WithActivitySink(sink)

	admin := cfg.Auth.BootstrapAdmin
	if _, err := users.SeedAdmin(ctx, admin.Username, admin.Password, admin.Email); err != nil {
		return err
	}

	route := auth.NewHTTPAuthenticator(resolver, guard, cfg.Auth).WithLogger(logger)

	controller := auth.NewUserController(auther, users, route,
		auth.WithControllerLogger(logger),
		auth.WithHealthCheck(store.Ping),
		auth.WithMetricsGatherer(reg),
	)

	app := fiber.New(fiber.Config{
		AppName:               "go-auth-users",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          auth.ErrorHandler(logger),
		DisableStartupMessage: !cfg.IsDevelopment(),
	})
	app.Use(requestid.New())
	app.Use(recover.New())

	auth.RegisterUserRoutes(app, controller)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.Server.Addr))
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		return err
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// setupLogger configures and returns the application logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	if cfg.IsDevelopment() {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}))
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
