package db

import (
	"database/sql"

	"github.com/deemkeen/thrive/logging"
)

const (
	sqlCreateCredentialsTable = `CREATE TABLE IF NOT EXISTS credentials (
		instance TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL,
		client_id TEXT,
		client_secret TEXT,
		access_token TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateTimelineCacheTable = `CREATE TABLE IF NOT EXISTS timeline_cache (
		category TEXT NOT NULL,
		position INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (category, position)
	)`

	sqlCreateStreamEventsTable = `CREATE TABLE IF NOT EXISTS stream_events (
		id TEXT NOT NULL PRIMARY KEY,
		kind TEXT NOT NULL,
		item_id TEXT NOT NULL,
		received_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateStreamEventsIndices = `
		CREATE INDEX IF NOT EXISTS idx_stream_events_received_at ON stream_events(received_at DESC);
		CREATE INDEX IF NOT EXISTS idx_stream_events_item_id ON stream_events(item_id);
	`
)

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if err := db.createTableIfNotExists(tx, sqlCreateCredentialsTable, "credentials"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateTimelineCacheTable, "timeline_cache"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateStreamEventsTable, "stream_events"); err != nil {
			return err
		}

		if _, err := tx.Exec(sqlCreateStreamEventsIndices); err != nil {
			logging.Logger.Warn().Err(err).Msg("failed to create stream_events indices")
		}
		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		logging.Logger.Error().Err(err).Str("table", tableName).Msg("error creating table")
		return err
	}
	logging.Logger.Debug().Str("table", tableName).Msg("table created or already exists")
	return nil
}
