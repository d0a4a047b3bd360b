package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glass-tracker/core/database"
	"glass-tracker/core/loader"
	"glass-tracker/core/logger"
	"glass-tracker/core/middleware/auth"
	"glass-tracker/core/middleware/rayid"
	"glass-tracker/core/storage"
	"glass-tracker/feature/glass"
	"glass-tracker/feature/glass/models"
	"glass-tracker/feature/glass/reconcile"
	"glass-tracker/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "glass-tracker/docs/swagger"
)

// @title Glass Tracker API
// @version 1.0
// @description Reconciles glass orders and deliveries against production orders.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

var skipMigrate bool

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the glass tracker server",
	Long: `Starts the HTTP server, loads all enabled features and runs the periodic
rematch sweep that picks up orders created after their glass was imported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		logg := rt.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if !skipMigrate {
			if err := database.Migrate(rt.db, models.All()...); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Report archive (optional)
		var archive *storage.Archive
		if rt.cfg.Storage.Enabled {
			client, err := storage.NewClient(rt.cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to create storage client: %w", err)
			}
			archive = storage.NewArchive(client, rt.cfg.Storage, logg)
			if err := archive.EnsureBucket(ctx); err != nil {
				logg.Warn("Report archive unavailable", zap.Error(err))
				archive = nil
			}
		}

		app := fiber.New(rt.cfg.Server.Fiber())

		mgr := loader.NewManager(logg)
		mgr.Register(glass.NewFeature(rt.engine, logg))
		mgr.Register(integrity.NewFeature(rt.engine, rt.db, archive, logg))

		// RayID first so every later log line carries it.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			start := time.Now()
			err := c.Next()
			fields := []zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Int("status", c.Response().StatusCode()),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				l.Error("Request error", append(fields, zap.Error(err))...)
				return err
			}
			l.Info("Request completed", fields...)
			return nil
		})

		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))
		if rt.cfg.Server.ApiKey == "" {
			logg.Warn("API key is empty; requests are not authenticated")
		}

		loaded, err := mgr.LoadAll(app)
		if err != nil {
			return fmt.Errorf("failed to load features: %w", err)
		}
		logg.Info("Features loaded", zap.Strings("features", loaded))

		done := make(chan struct{})
		go func() {
			defer close(done)
			runRematchTicker(ctx, rt.engine, rt.cfg.Reconcile.RematchInterval(), logg)
		}()

		errCh := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("addr", rt.cfg.Server.Addr()))
			errCh <- app.Listen(rt.cfg.Server.Addr())
		}()

		select {
		case err := <-errCh:
			stop()
			<-done
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logg.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			logg.Warn("Server shutdown incomplete", zap.Error(err))
		}
		<-done
		return nil
	},
}

// runRematchTicker sweeps the pending and unmatched backlog every interval until
// ctx ends. Conflicts wait for an operator. A non-positive interval disables the
// schedule.
func runRematchTicker(ctx context.Context, engine *reconcile.Engine, interval time.Duration, logg *zap.Logger) {
	if interval <= 0 {
		logg.Info("Scheduled rematch disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := engine.Rematch(ctx)
			if err != nil {
				logg.Warn("Scheduled rematch failed", zap.Error(err))
				continue
			}
			logg.Info("Scheduled rematch finished",
				zap.Int("matched", res.Match.Matched),
				zap.Int("conflict", res.Match.Conflict),
				zap.Int("unmatched", res.Match.Unmatched),
				zap.Int("released", res.Released),
				zap.Bool("shared", res.Shared),
			)
		}
	}
}

func init() {
	startCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not migrate the schema on startup")
	RootCmd.AddCommand(startCmd)
}
