package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// SQLiteStore keeps one row per document. The version column is the source of
// truth for the document's version and is injected into every read.
type SQLiteStore struct {
	db       *sql.DB
	logger   *zerolog.Logger
	notifier *notifier

	// publishMu orders "write, then snapshot, then fan out" so subscribers
	// never see an older snapshot after a newer one.
	publishMu sync.Mutex
	closeOnce sync.Once
}

func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Document store initialized")
	return &SQLiteStore{db: db, logger: logger, notifier: newNotifier()}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            id TEXT NOT NULL,
            body TEXT NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (collection, id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, collection string, handler SnapshotHandler) (CancelFunc, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	snap, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	sub := newSubscriber(handler)
	sub.push(delivery{snap: snap})
	s.notifier.add(collection, sub)

	cancel := func() { s.notifier.remove(collection, sub) }
	cancelOnDone(ctx, sub, cancel)
	return cancel, nil
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	var body string
	var version int64
	err = s.db.QueryRowContext(ctx,
		`SELECT body, version FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get document", err)
	}
	return withVersion(body, version)
}

func (s *SQLiteStore) List(ctx context.Context, collection string) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body, version FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, unavailable("list documents", err)
	}
	defer rows.Close()

	snap := make(Snapshot)
	for rows.Next() {
		var id, body string
		var version int64
		if err := rows.Scan(&id, &body, &version); err != nil {
			return nil, unavailable("scan document", err)
		}
		doc, err := withVersion(body, version)
		if err != nil {
			// keep the row visible; the decoder flags what it cannot read
			s.logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("Undecodable document body")
			doc = Document{VersionField: float64(version)}
		}
		snap[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list documents", err)
	}
	return snap, nil
}

func (s *SQLiteStore) Merge(ctx context.Context, path string, patch Patch, opts ...MergeOption) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin merge", err)
	}
	defer tx.Rollback()

	var body string
	var stored int64
	exists := true
	err = tx.QueryRowContext(ctx,
		`SELECT body, version FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body, &stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return unavailable("read document", err)
	}

	var current Document
	if exists {
		if current, err = withVersion(body, stored); err != nil {
			return err
		}
	}
	merged, err := applyMerge(current, exists, patch, buildMergeOptions(opts))
	if err != nil {
		return err
	}
	version := documentVersion(merged)
	encoded, err := encodeBody(merged)
	if err != nil {
		return err
	}

	if exists {
		result, err := tx.ExecContext(ctx,
			`UPDATE documents SET body = ?, version = ?, updated_at = ? WHERE collection = ? AND id = ? AND version = ?`,
			encoded, version, time.Now(), collection, id, stored)
		if err != nil {
			return unavailable("update document", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrVersionMismatch
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body, version, updated_at) VALUES (?, ?, ?, ?, ?)`,
			collection, id, encoded, version, time.Now()); err != nil {
			return unavailable("insert document", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit merge", err)
	}
	s.publishLocked(ctx, collection)
	return nil
}

func (s *SQLiteStore) Push(ctx context.Context, collection string, doc Document) (string, error) {
	created, err := applyMerge(nil, false, Patch(doc), mergeOptions{})
	if err != nil {
		return "", err
	}
	encoded, err := encodeBody(created)
	if err != nil {
		return "", err
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body, version, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, encoded, documentVersion(created), time.Now()); err != nil {
		return "", unavailable("insert document", err)
	}
	s.publishLocked(ctx, collection)
	return id, nil
}

func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.notifier.closeAll()
		err = s.db.Close()
	})
	return err
}

// publishLocked must be called with publishMu held.
func (s *SQLiteStore) publishLocked(ctx context.Context, collection string) {
	if !s.notifier.has(collection) {
		return
	}
	snap, err := s.List(context.WithoutCancel(ctx), collection)
	if err != nil {
		s.notifier.publish(collection, delivery{err: err})
		return
	}
	s.notifier.publish(collection, delivery{snap: snap})
}

func encodeBody(doc Document) (string, error) {
	body := make(Document, len(doc))
	for k, v := range doc {
		if k == VersionField {
			continue
		}
		body[k] = v
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func withVersion(body string, version int64) (Document, error) {
	doc, err := decodeDocument([]byte(body))
	if err != nil {
		return nil, err
	}
	doc[VersionField] = float64(version)
	return doc, nil
}
