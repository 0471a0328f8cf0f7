package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/constants"
	"github.com/kozaktomas/face-whitelist/internal/door"
	"github.com/kozaktomas/face-whitelist/internal/watcher"
	"github.com/kozaktomas/face-whitelist/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Whitelist web server.
The server exposes the whitelist, rebuild jobs with live progress,
recognition and the doorbell over HTTP. With --watch, changes in the
whitelist folder are applied as they happen. With --rebuild-cron, the
whitelist is rebuilt from the folder on a schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().Bool("watch", false, "Mirror changes of the whitelist folder into the whitelist")
	serveCmd.Flags().String("rebuild-cron", "", `Cron expression for scheduled rebuilds, e.g. "0 3 * * *"`)
}

// startRebuildSchedule rebuilds the whitelist on the cron schedule. A run
// that would overlap the previous one is skipped.
func startRebuildSchedule(a *app, expr string) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create cron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
			defer cancel()
			report, err := a.rec.CreateWhitelistFromFolder(ctx, a.id, "", nil)
			if err != nil {
				a.log.Error("scheduled rebuild failed", zap.Error(err))
				return
			}
			a.log.Info("scheduled rebuild completed",
				zap.Int("persons", report.Persons), zap.Int("registered", report.Registered), zap.Int("skipped", len(report.Skipped)))
		}),
		gocron.WithName("rebuild-whitelist"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduled rebuild: %w", err)
	}
	s.Start()
	a.log.Info("scheduled rebuild added", zap.String("cron", expr))
	return s, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}
	// a server without a whitelist still answers; builds can be started over HTTP
	if err := a.ensureWhitelist(ctx); err != nil {
		a.log.Warn("whitelist not loaded", zap.Error(err))
	}

	if mustGetBool(cmd, "watch") {
		w := watcher.New(a.cfg.Whitelist.Folder, a.rec,
			watcher.WithLogger(a.log),
			watcher.WithImageExtensions(a.cfg.Whitelist.ImageExtensions),
		)
		go func() {
			if err := w.Run(ctx); err != nil {
				a.log.Error("folder watcher stopped", zap.Error(err))
			}
		}()
	}

	if expr := mustGetString(cmd, "rebuild-cron"); expr != "" {
		s, err := startRebuildSchedule(a, expr)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Shutdown(); err != nil {
				a.log.Warn("cron scheduler shutdown", zap.Error(err))
			}
		}()
	}

	bell := door.New(a.rec, door.NewLogLock(a.log), a.cfg.Door.UnlockDuration, a.log)
	server := web.NewServer(a.cfg, a.rec, bell, a.log)

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Whitelist on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
