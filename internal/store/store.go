package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the local document store. It replaces the browser's
// localStorage: one JSON document per namespace.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	createDocumentsTable := `
	CREATE TABLE IF NOT EXISTS documents (
		namespace TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(createDocumentsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	createMetricsTable := `
	CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT DEFAULT NULL,
		label_value TEXT DEFAULT NULL,
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	if _, err := db.Exec(createMetricsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metrics table: %w", err)
	}

	log.Println("Database initialized successfully.")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the raw document for a namespace. The second return is
// false when no document exists.
func (s *Store) Get(namespace string) (string, bool, error) {
	var body string
	query := `SELECT body FROM documents WHERE namespace = ?;`
	err := s.db.QueryRow(query, namespace).Scan(&body)
	if err == sql.ErrNoRows {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("failed to get document %s: %w", namespace, err)
	}
	return body, true, nil
}

// GetRecord returns the raw document and its last local write time.
func (s *Store) GetRecord(namespace string) (string, time.Time, bool, error) {
	var body string
	var updatedAt time.Time
	query := `SELECT body, updated_at FROM documents WHERE namespace = ?;`
	err := s.db.QueryRow(query, namespace).Scan(&body, &updatedAt)
	if err == sql.ErrNoRows {
		return "", time.Time{}, false, nil
	} else if err != nil {
		return "", time.Time{}, false, fmt.Errorf("failed to get document %s: %w", namespace, err)
	}
	return body, updatedAt, true, nil
}

// Put stores the raw document for a namespace, overwriting any previous
// document wholesale.
func (s *Store) Put(namespace, body string) error {
	query := `
	INSERT OR REPLACE INTO documents (namespace, body, updated_at)
	VALUES (?, ?, ?);`
	_, err := s.db.Exec(query, namespace, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to put document %s: %w", namespace, err)
	}
	return nil
}

// GetJSON decodes the document for a namespace into v. Returns false
// when no document exists; decoding errors are returned so callers can
// fall back to defaults.
func (s *Store) GetJSON(namespace string, v interface{}) (bool, error) {
	body, ok, err := s.Get(namespace)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return true, fmt.Errorf("failed to decode document %s: %w", namespace, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under the namespace.
func (s *Store) PutJSON(namespace string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", namespace, err)
	}
	return s.Put(namespace, string(body))
}

// Namespaces lists every namespace that currently has a document.
func (s *Store) Namespaces() ([]string, error) {
	rows, err := s.db.Query(`SELECT namespace FROM documents;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, nil
}
