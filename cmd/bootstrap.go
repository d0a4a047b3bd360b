package cmd

import (
	"fmt"

	"glass-tracker/core/config"
	"glass-tracker/core/database"
	"glass-tracker/core/lock"
	"glass-tracker/core/logger"
	"glass-tracker/feature/glass/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// deps is what every command needs before it can touch orders.
type deps struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	engine *reconcile.Engine
}

// bootstrap loads configuration, connects to the database and wires the engine.
func bootstrap() (*deps, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	locker, err := lock.New(cfg.Lock, logg)
	if err != nil {
		return nil, fmt.Errorf("failed to create locker: %w", err)
	}

	return &deps{
		cfg:    cfg,
		logger: logg,
		db:     db,
		engine: reconcile.NewEngine(db, locker, logg, cfg.Reconcile),
	}, nil
}
