package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/config"
	"github.com/kozaktomas/face-whitelist/internal/database"
	"github.com/kozaktomas/face-whitelist/internal/database/mock"
	"github.com/kozaktomas/face-whitelist/internal/database/postgres"
	"github.com/kozaktomas/face-whitelist/internal/faceapi"
	"github.com/kozaktomas/face-whitelist/internal/recognizer"
	"github.com/kozaktomas/face-whitelist/internal/whitelist"
)

// app holds what every whitelist command needs.
type app struct {
	cfg *config.Config
	log *zap.Logger
	rec *recognizer.Recognizer
	id  string
}

func newLogger() *zap.Logger {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newApp loads the configuration and wires the Face API client, the snapshot
// store and the recognizer.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := newLogger()

	if cfg.FaceAPI.Key == "" {
		return nil, errors.New("FACE_API_KEY environment variable is required")
	}
	opts := []faceapi.Option{faceapi.WithRatePerMinute(cfg.FaceAPI.RatePerMinute)}
	if captureDir != "" {
		opts = append(opts, faceapi.WithCaptureDir(captureDir))
	}
	client, err := faceapi.New(cfg.FaceAPI.URL, cfg.FaceAPI.Key, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Face API client: %w", err)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	id := cfg.Whitelist.ID
	if id == "" {
		if id, err = whitelist.LoadOrCreateID(cfg.Whitelist.Folder); err != nil {
			return nil, err
		}
	}

	rec := recognizer.New(client,
		recognizer.WithLogger(log),
		recognizer.WithStore(store),
		recognizer.WithPollInterval(cfg.Whitelist.PollInterval),
		recognizer.WithTrainingTimeout(cfg.Whitelist.TrainingTimeout),
		recognizer.WithDetectConcurrency(cfg.Whitelist.DetectConcurrency),
		recognizer.WithDefaultFolder(cfg.Whitelist.Folder),
		recognizer.WithImageExtensions(cfg.Whitelist.ImageExtensions),
	)
	return &app{cfg: cfg, log: log, rec: rec, id: id}, nil
}

// openStore connects to PostgreSQL when DATABASE_URL is set and falls back to
// an in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (database.WhitelistStore, error) {
	if cfg.Database.URL == "" {
		log.Info("DATABASE_URL not set, whitelist index is kept in memory")
		return mock.NewMockWhitelistStore(), nil
	}
	if err := postgres.Initialize(&cfg.Database, log); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	store, err := database.GetWhitelistStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting whitelist store: %w", err)
	}
	return store, nil
}

func (a *app) close() {
	if pool := postgres.GetGlobalPool(); pool != nil {
		pool.Close()
	}
	_ = a.log.Sync()
}

// ensureWhitelist restores the stored index or, when there is none, builds
// the whitelist from the configured folder.
func (a *app) ensureWhitelist(ctx context.Context) error {
	err := a.rec.Restore(ctx, a.id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, recognizer.ErrNoWhitelist) {
		return err
	}
	fmt.Printf("Building whitelist %s from %s\n", a.id, a.cfg.Whitelist.Folder)
	report, err := a.build(ctx, "")
	if report != nil {
		printReport(report)
	}
	return err
}

// build rebuilds the whitelist with a progress bar on the terminal.
func (a *app) build(ctx context.Context, folder string) (*recognizer.BuildReport, error) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Building whitelist"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionFullWidth(),
	)
	report, err := a.rec.CreateWhitelistFromFolder(ctx, a.id, folder, func(percent int) {
		_ = bar.Set(percent)
	})
	_ = bar.Finish()
	fmt.Println()
	return report, err
}

func printReport(report *recognizer.BuildReport) {
	fmt.Printf("Persons: %d, faces registered: %d, images skipped: %d\n",
		report.Persons, report.Registered, len(report.Skipped))
	for _, s := range report.Skipped {
		fmt.Printf("  skipped %s (%s): %s\n", s.Path, s.Kind, s.Reason)
	}
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// withApp runs fn with a wired app whose whitelist is loaded.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.ensureWhitelist(ctx); err != nil {
		return err
	}
	return fn(a)
}
