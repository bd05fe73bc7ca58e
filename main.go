package main

import (
	"context"
	"os"
	"strings"

	"github.com/chxlky/homework-board-sync/config"
	"github.com/chxlky/homework-board-sync/database"
	"github.com/chxlky/homework-board-sync/integrations"
	"github.com/chxlky/homework-board-sync/internal/board"
	"github.com/chxlky/homework-board-sync/internal/reconcile"
	"github.com/chxlky/homework-board-sync/internal/syncer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

var configPath string

func newLogger() *zap.Logger {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := logConfig.Build()
	return logger
}

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	syncer    *syncer.Syncer
	store     *database.Store
	board     *board.Service
	configErr error
}

func loadApp(ctx context.Context) *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		zap.L().Fatal("Error reading config file", zap.String("path", configPath), zap.Error(err))
	}

	db := database.Init(cfg.Database.Path)
	a := &app{cfg: cfg, db: db}

	if err := cfg.Canvas.Validate(); err != nil {
		a.configErr = err
		zap.L().Warn("Canvas is not configured; syncs will fail", zap.Error(err))
	} else {
		deny, err := syncer.NewDenylist(cfg.Sync.Denylist)
		if err != nil {
			zap.L().Fatal("Invalid sync.denylist", zap.Error(err))
		}
		client := integrations.NewCanvasClient(cfg.Canvas.BaseURL, cfg.Canvas.APIToken, cfg.Canvas.RequestTimeout, cfg.Canvas.MaxPages)
		a.syncer = syncer.New(client, syncer.Options{
			BaseURL:           cfg.Canvas.BaseURL,
			Concurrency:       cfg.Sync.Concurrency,
			GraceWindow:       cfg.Sync.GraceWindow(),
			RecencyWindow:     cfg.Sync.RecencyWindow(),
			DiscoveryAttempts: cfg.Sync.DiscoveryAttempts,
			RetryDelay:        cfg.Sync.RetryDelay,
			Denylist:          deny,
		})
	}

	a.store = database.NewStore(db, cfg.Database.StorageKey)
	a.board = &board.Service{
		Store:      a.store,
		Reconciler: reconcile.New(),
	}
	if a.syncer != nil {
		a.board.Source = a.syncer
	}

	if err := cfg.Google.Validate(); err != nil {
		zap.L().Fatal("Invalid Google Calendar settings", zap.Error(err))
	}
	if cfg.Google.Enabled {
		calClient, err := integrations.NewCalendarClient(ctx, cfg.Google.ServiceAccount, cfg.Google.CalendarID)
		if err != nil {
			zap.L().Fatal("Failed to initialise Google Calendar client", zap.Error(err))
		}
		a.board.Calendar = calClient
		zap.L().Info("Successfully authenticated with Google Calendar API.")
	}

	return a
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		zap.L().Error("Error closing database", zap.Error(err))
	} else {
		zap.L().Info("Database connection closed.")
	}
}

func main() {
	logger := newLogger()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	root := &cobra.Command{
		Use:           "homework-board-sync",
		Short:         "Sync Canvas assignments and grades into a homework board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the TOML config file")
	root.AddCommand(newServeCmd(logger), newSyncCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		zap.L().Error("Command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
