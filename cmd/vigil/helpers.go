package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/marroweth/vigil/internal/config"
	"github.com/marroweth/vigil/internal/storage"
)

// openStorage opens the configured database and ensures the schema is
// current.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// modelPath resolves the model snapshot location.
func modelPath() string {
	path := viper.GetString("model.path")
	if path == "" {
		path = config.DefaultModelPath()
	}
	return config.ExpandPath(path)
}
