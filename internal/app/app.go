package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dori/chalk/internal/config"
	"github.com/dori/chalk/internal/db"
	"github.com/dori/chalk/internal/logging"
	"github.com/dori/chalk/internal/notify"
	"github.com/dori/chalk/internal/store"
	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another chalk holds the lock
var ErrAlreadyRunning = errors.New("another instance of chalk is already running")

// App holds the application state and dependencies
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	DB        *db.DB
	Persister *store.Persister
	Tasks     *store.TaskStore
	Settings  *store.SettingsStore
	Notifier  *notify.Notifier

	logCloser io.Closer
	lockFile  *flock.Flock
}

// New creates a new application instance and loads stored state
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logOpts := logging.DefaultOptions(cfg.DataDir)
	logOpts.Level = cfg.LogLevel
	logOpts.Format = cfg.LogFormat
	logger, closer, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Notifier:  notify.NewNotifier(cfg.Notifications),
		logCloser: closer,
	}

	// Acquire lock to ensure single instance
	if !cfg.NoLock {
		if err := app.acquireLock(); err != nil {
			app.closeLog()
			return nil, err
		}
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		app.releaseLock()
		app.closeLog()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database

	app.Persister = store.NewPersister(database, logger)
	app.Tasks = store.NewTaskStore(database, app.Persister, logger)
	app.Settings = store.NewSettingsStore(database, app.Persister, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Tasks.Load(ctx); err != nil {
		logger.Error("load tasks", "err", err)
	}
	if err := app.Settings.Load(ctx); err != nil {
		logger.Error("load settings", "err", err)
	}

	logger.Info("started", "data_dir", cfg.DataDir, "tasks", app.Tasks.Len())
	return app, nil
}

// ClearAll wipes tasks and settings from memory and the record store
func (a *App) ClearAll() error {
	a.Tasks.Clear()
	a.Settings.Clear()
	a.Persister.Flush()

	if err := a.DB.DeleteKeys(db.KeyTasks, db.KeySettings); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	a.Logger.Info("cleared all data")
	return nil
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	a.lockFile = flock.New(a.Config.LockPath())

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return ErrAlreadyRunning
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

func (a *App) closeLog() {
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// Close waits for pending writes and cleans up application resources
func (a *App) Close() error {
	var errs []error

	if a.Persister != nil {
		a.Persister.Flush()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.releaseLock()
	a.closeLog()

	return errors.Join(errs...)
}
