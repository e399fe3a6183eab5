package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbErr      error
	dbOnce     sync.Once
)

const busyRetries = 5

const (
	//Credentials
	sqlInsertCredentials = `INSERT INTO credentials(instance, username, client_id, client_secret, access_token, created_at) VALUES (?, ?, ?, ?, ?, ?)
                                ON CONFLICT(instance) DO UPDATE SET username = excluded.username, client_id = excluded.client_id,
                                client_secret = excluded.client_secret, access_token = excluded.access_token, created_at = excluded.created_at`
	sqlSelectCredentials       = `SELECT instance, username, client_id, client_secret, access_token, created_at FROM credentials WHERE instance = ?`
	sqlSelectLatestCredentials = `SELECT instance, username, client_id, client_secret, access_token, created_at FROM credentials ORDER BY created_at DESC LIMIT 1`
	sqlDeleteCredentials       = `DELETE FROM credentials WHERE instance = ?`

	//Timeline cache
	sqlDeleteTimeline = `DELETE FROM timeline_cache WHERE category = ?`
	sqlInsertTimeline = `INSERT INTO timeline_cache(category, position, item_id, kind, payload) VALUES (?, ?, ?, ?, ?)`
	sqlSelectTimeline = `SELECT kind, payload FROM timeline_cache WHERE category = ? ORDER BY position ASC`

	//Stream events
	sqlInsertStreamEvent  = `INSERT INTO stream_events(id, kind, item_id, received_at) VALUES (?, ?, ?, ?)`
	sqlSelectStreamEvents = `SELECT id, kind, item_id, received_at FROM stream_events ORDER BY received_at DESC LIMIT ?`
	sqlPruneStreamEvents  = `DELETE FROM stream_events WHERE id NOT IN (SELECT id FROM stream_events ORDER BY received_at DESC LIMIT ?)`
)

const (
	kindPost         = "post"
	kindNotification = "notification"
)

// StreamEvent is one journaled stream event.
type StreamEvent struct {
	Id         uuid.UUID
	Kind       string
	ItemId     string
	ReceivedAt time.Time
}

// GetDB opens the database at path once per process.
func GetDB(path string) (*DB, error) {
	dbOnce.Do(func() {
		dbInstance, dbErr = Open(path)
	})
	return dbInstance, dbErr
}

// Open connects to the sqlite file at path and brings the schema up to date.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	log := logging.Component("db")

	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)

		var journalMode string
		if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
			log.Warn().Err(err).Msg("failed to enable WAL mode")
		} else {
			log.Debug().Str("journal_mode", journalMode).Msg("database journal mode")
		}
	}

	db.Exec("PRAGMA synchronous = NORMAL")
	db.Exec("PRAGMA temp_store = MEMORY")
	db.Exec("PRAGMA busy_timeout = 5000")

	d := &DB{db: db}
	if err := d.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("database ready")
	return d, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) SaveCredentials(c *domain.Credentials) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertCredentials, c.Instance, c.Username, c.ClientId, c.ClientSecret, c.AccessToken, c.CreatedAt)
		return err
	})
}

func scanCredentials(row *sql.Row) (error, *domain.Credentials) {
	var c domain.Credentials
	err := row.Scan(&c.Instance, &c.Username, &c.ClientId, &c.ClientSecret, &c.AccessToken, &c.CreatedAt)
	if err != nil {
		return err, nil
	}
	return nil, &c
}

func (db *DB) ReadCredentials(instance string) (error, *domain.Credentials) {
	return scanCredentials(db.db.QueryRow(sqlSelectCredentials, instance))
}

// ReadLatestCredentials returns the most recent login, or sql.ErrNoRows.
func (db *DB) ReadLatestCredentials() (error, *domain.Credentials) {
	return scanCredentials(db.db.QueryRow(sqlSelectLatestCredentials))
}

func (db *DB) DeleteCredentials(instance string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteCredentials, instance)
		return err
	})
}

// SaveTimeline replaces the cached contents of cat.
func (db *DB) SaveTimeline(cat domain.Category, items []domain.Item) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteTimeline, string(cat)); err != nil {
			return err
		}
		for i, item := range items {
			kind := kindPost
			if _, ok := item.(*domain.Notification); ok {
				kind = kindNotification
			}
			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", item.ItemID(), err)
			}
			if _, err := tx.Exec(sqlInsertTimeline, string(cat), i, item.ItemID(), kind, string(payload)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadTimeline returns the cached contents of cat in their saved order.
func (db *DB) ReadTimeline(cat domain.Category) ([]domain.Item, error) {
	rows, err := db.db.Query(sqlSelectTimeline, string(cat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return items, err
		}
		var item domain.Item
		switch kind {
		case kindNotification:
			var n domain.Notification
			err = json.Unmarshal([]byte(payload), &n)
			item = &n
		default:
			var p domain.Post
			err = json.Unmarshal([]byte(payload), &p)
			item = &p
		}
		if err != nil {
			return items, fmt.Errorf("decoding cached %s: %w", kind, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (db *DB) RecordStreamEvent(kind, itemId string, at time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertStreamEvent, uuid.New().String(), kind, itemId, at)
		return err
	})
}

func (db *DB) ReadStreamEvents(limit int) (error, *[]StreamEvent) {
	rows, err := db.db.Query(sqlSelectStreamEvents, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var events []StreamEvent
	for rows.Next() {
		var ev StreamEvent
		var idStr string
		if err := rows.Scan(&idStr, &ev.Kind, &ev.ItemId, &ev.ReceivedAt); err != nil {
			return err, &events
		}
		ev.Id, _ = uuid.Parse(idStr)
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return err, &events
	}
	return nil, &events
}

// PruneStreamEvents keeps only the newest keep events.
func (db *DB) PruneStreamEvents(keep int) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlPruneStreamEvents, keep)
		return err
	})
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	log := logging.Component("db")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("error starting transaction")
		return err
	}
	for attempt := 0; ; attempt++ {
		err = f(tx)
		if err != nil {
			var serr *sqlite.Error
			if errors.As(err, &serr) && serr.Code() == sqlitelib.SQLITE_BUSY && attempt < busyRetries {
				continue
			}
			log.Error().Err(err).Msg("error in transaction")
			tx.Rollback()
			return err
		}
		if err = tx.Commit(); err != nil {
			log.Error().Err(err).Msg("error committing transaction")
			return err
		}
		return nil
	}
}
