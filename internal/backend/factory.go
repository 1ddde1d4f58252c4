package backend

import (
	"context"
	"fmt"
	"log/slog"

	"aurora/internal/config"
	"aurora/internal/store/firestore"
	"aurora/internal/store/memory"
	"aurora/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new gateway factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateGateway implements Factory.CreateGateway
func (f *DefaultFactory) CreateGateway(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryGateway()
	case SQLiteBackend:
		return f.createSQLiteGateway(config)
	case FirestoreBackend:
		return f.createFirestoreGateway(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryGateway() (*Result, error) {
	gw := memory.New()

	f.logger.Info("Initialized memory backend")

	return &Result{
		Gateway: gw,
		Cleanup: gw.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteGateway(config Config) (*Result, error) {
	gw, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite gateway: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Gateway: gw,
		Cleanup: gw.Close,
	}, nil
}

func (f *DefaultFactory) createFirestoreGateway(ctx context.Context, config Config) (*Result, error) {
	gw, err := firestore.New(ctx, config.FirestoreProjectID, config.GoogleCredentials)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore gateway: %w", err)
	}

	f.logger.Info("Initialized Firestore backend", "project_id", config.FirestoreProjectID)

	return &Result{
		Gateway: gw,
		Cleanup: gw.Close,
	}, nil
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:               backendType,
		SQLiteDBPath:       appConfig.SQLiteDBPath,
		FirestoreProjectID: appConfig.FirestoreProjectID,
		GoogleCredentials:  appConfig.GoogleCredentials,
	}, nil
}
