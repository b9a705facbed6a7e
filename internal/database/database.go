package database

import (
	"context"
	"fmt"

	"github.com/dudo-games/dudo/internal/logging"
	bolt "go.etcd.io/bbolt"
)

type Config struct {
	// Path of the bbolt file holding game state and statistics
	FilePath string `envconfig:"DUDO_DB_PATH" default:"dudo-state.db"`
}

type DB struct {
	DB *bolt.DB
}

func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("creating db connection")

	db, err := bolt.Open(config.FilePath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) Close(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Infof("closing db connection")

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("close state db: %w", err)
	}

	return nil
}
