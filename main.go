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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parisxmas/sangha/internal/backend"
	"github.com/parisxmas/sangha/internal/checkout"
	"github.com/parisxmas/sangha/internal/config"
	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/handler"
	"github.com/parisxmas/sangha/internal/logging"
	mw "github.com/parisxmas/sangha/internal/middleware"
	"github.com/parisxmas/sangha/internal/repository"
	"github.com/parisxmas/sangha/internal/router"
	"github.com/parisxmas/sangha/internal/service"
	"github.com/parisxmas/sangha/internal/storage"
	"github.com/parisxmas/sangha/internal/strapi"
	"github.com/parisxmas/sangha/internal/tilopay"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sangha",
	Short: "Sangha membership platform API",
	Long: `Sangha serves the membership platform API: dynamic forms, the product
store, Tilopay checkout, Strapi membership updates and admin dashboards.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath == "" {
			configPath = os.Getenv("SANGHA_CONFIG")
		}
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, verbose, cfg.GelfAddr)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()
		logger.Info("migrations applied", zap.String("driver", cfg.DBDriver))
		return nil
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()
		return seedAdmin(cmd.Context(), service.NewAuthService(repository.NewUserRepo(d), cfg.JWTSecret))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $SANGHA_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedAdminCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*db.DB, error) {
	d, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func seedAdmin(ctx context.Context, authSvc *service.AuthService) error {
	created, err := authSvc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPass)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info("admin user created", zap.String("email", cfg.AdminEmail))
	}
	return nil
}

// sessionStore picks Redis when configured so checkout sessions survive
// restarts and are shared between replicas.
func sessionStore(ctx context.Context) (checkout.Store, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("checkout sessions in memory")
		return checkout.NewMemoryStore(cfg.CheckoutTTL), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("checkout sessions in redis", zap.String("addr", cfg.RedisAddr))
	return checkout.NewRedisStore(client, cfg.CheckoutTTL), func() { client.Close() }, nil
}

func fileStore(ctx context.Context) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   "uploads/",
		})
	case "local", "":
		return storage.NewLocalStore(cfg.StorageDir)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func runServe(ctx context.Context) error {
	d, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer d.Close()
	logger.Info("database ready", zap.String("driver", cfg.DBDriver), zap.Int("pool_size", cfg.PoolSize))

	sessions, closeSessions, err := sessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	files, err := fileStore(ctx)
	if err != nil {
		return err
	}

	// External services
	cms := strapi.New(cfg.StrapiURL, cfg.StrapiToken)
	community := backend.New(cfg.BackendURL)
	gateway := tilopay.New(cfg.Tilopay.APIURL, cfg.Tilopay.APIUser, cfg.Tilopay.APIPassword, cfg.Tilopay.APIKey)

	// Repositories
	userRepo := repository.NewUserRepo(d)
	formRepo := repository.NewFormRepo(d)
	subRepo := repository.NewSubmissionRepo(d)
	productRepo := repository.NewProductRepo(d)
	orderRepo := repository.NewOrderRepo(d)
	auditRepo := repository.NewAuditRepo(d)

	// Services
	auditSvc := service.NewAuditService(auditRepo, logger)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret)
	formSvc := service.NewFormService(formRepo, auditSvc)
	fileSvc := service.NewFileService(files, formSvc)
	subSvc := service.NewSubmissionService(subRepo, formSvc, fileSvc)
	productSvc := service.NewProductService(productRepo, auditSvc)
	checkoutSvc := service.NewCheckoutService(orderRepo, userRepo, productSvc, subSvc, formSvc,
		sessions, gateway, cfg.Tilopay.RedirectURL, auditSvc, logger)
	membershipSvc := service.NewMembershipService(userRepo, cms, auditSvc, logger)
	dashboardSvc := service.NewDashboardService(userRepo, formRepo, subRepo, orderRepo, community, logger)

	if err := seedAdmin(ctx, authSvc); err != nil {
		logger.Warn("admin seeding failed", zap.Error(err))
	}

	limiter := mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	r := router.New(cfg.JWTSecret, logger, limiter, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Form:       handler.NewFormHandler(formSvc),
		Submission: handler.NewSubmissionHandler(subSvc),
		Product:    handler.NewProductHandler(productSvc, authSvc),
		Checkout:   handler.NewCheckoutHandler(checkoutSvc),
		Membership: handler.NewMembershipHandler(membershipSvc),
		Strapi:     handler.NewStrapiHandler(cms),
		Community:  handler.NewCommunityHandler(community),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc, auditSvc),
		File:       handler.NewFileHandler(fileSvc),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sangha server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
