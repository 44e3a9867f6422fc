package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-queue/internal/app"
	"github.com/jwalitptl/opd-queue/internal/cache"
	"github.com/jwalitptl/opd-queue/internal/config"
	"github.com/jwalitptl/opd-queue/internal/middleware"
	"github.com/jwalitptl/opd-queue/internal/repository/postgres"
	"github.com/jwalitptl/opd-queue/internal/router"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/pkg/auth"
	"github.com/jwalitptl/opd-queue/pkg/circuitbreaker"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
	"github.com/jwalitptl/opd-queue/pkg/sms"
)

const metricsNamespace = "opd"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "queue-api",
		Short: "OPD appointment token queue API",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	log := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	statusCache, closeCache, err := newStatusCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	m := metrics.NewMetrics(metricsNamespace, prometheus.DefaultRegisterer)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	if !cfg.JWT.Enabled {
		log.Warn("authentication is disabled; every request runs as admin")
	}

	r, err := app.New(app.Deps{
		Store:          postgres.New(db).WithMetrics(m),
		StatusCache:    statusCache,
		SMS:            newSMSSender(cfg, m, log),
		Calendar:       service.NewCalendar(cfg.Location()),
		ReminderWindow: cfg.Clinic.ReminderWindow,
		Metrics:        m,
		Log:            log,
		Auth: middleware.NewAuthMiddleware(
			auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour),
			cfg.JWT.Enabled,
		),
		Router: router.RouterConfig{
			RequestTimeout:   cfg.Server.RequestTimeout,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        cfg.RateLimit.RequestsPerSecond,
			RateBurst:        cfg.RateLimit.Burst,
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			Namespace:        metricsNamespace,
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "timezone", cfg.Clinic.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited properly")
	return nil
}

func newStatusCache(ctx context.Context, cfg *config.Config) (cache.QueueStatusCache, func(), error) {
	if cfg.Cache.Driver != "redis" {
		return cache.NewLocalCache(cfg.Cache.TTL), func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisCache(client, cfg.Cache.TTL), func() { _ = client.Close() }, nil
}

func newSMSSender(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) sms.Sender {
	smsLog := log.With("component", "sms")
	if cfg.SMS.Driver != "mail" {
		return sms.NewLogSender(smsLog)
	}

	gateway := sms.NewMailGatewaySender(sms.MailConfig{
		Host:          cfg.SMS.SMTPHost,
		Port:          cfg.SMS.SMTPPort,
		Username:      cfg.SMS.SMTPUser,
		Password:      cfg.SMS.SMTPPassword,
		From:          cfg.SMS.From,
		GatewayDomain: cfg.SMS.GatewayDomain,
	})
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "sms-gateway",
		MaxFailures: cfg.SMS.MaxFailures,
		Timeout:     cfg.SMS.OpenTimeout,
		OnStateChange: func(name, from, to string) {
			smsLog.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		},
	})
	return sms.NewBreakerSender(gateway, cb)
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Schema applied successfully.")
			return nil
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			rawUser, _ := cmd.Flags().GetString("user")

			switch role {
			case auth.RolePatient, auth.RoleDoctor, auth.RoleAdmin, auth.RolePharmacist:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			userID := uuid.New()
			if rawUser != "" {
				parsed, err := uuid.Parse(rawUser)
				if err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
				userID = parsed
			}

			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			jwt := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
			token, err := jwt.GenerateAccessToken(userID, role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("role", auth.RolePatient, "role claim: patient, doctor, admin or pharmacist")
	cmd.Flags().String("user", "", "user id claim (random when empty)")
	return cmd
}
