// internal/database/database.go

// Package database provides PostgreSQL persistence for documents and
// their transaction log.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS document_transactions (
	id          BIGSERIAL PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	site_id     INTEGER NOT NULL,
	payload     JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_document_transactions_doc
	ON document_transactions(document_id, id);
`

// DB wraps the PostgreSQL connection.
type DB struct {
	conn *sqlx.DB
}

// Document is a persisted document row.
type Document struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// StoredTransaction is one entry of a document's transaction log.
type StoredTransaction struct {
	ID         int64     `db:"id"`
	DocumentID string    `db:"document_id"`
	SiteID     int       `db:"site_id"`
	Payload    []byte    `db:"payload"`
	ReceivedAt time.Time `db:"received_at"`
}

// New connects to PostgreSQL and bootstraps the schema.
func New(host, port, user, password, name string) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, name)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bootstrapping schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetDocument fetches a document by id. A missing document returns
// (nil, nil).
func (db *DB) GetDocument(id string) (*Document, error) {
	var doc Document
	err := db.conn.Get(&doc, `SELECT * FROM documents WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching document %s: %w", id, err)
	}
	return &doc, nil
}

// CreateDocument inserts a new document row; an existing id is left
// untouched.
func (db *DB) CreateDocument(id, content string) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (id, content) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, id, content)
	if err != nil {
		return fmt.Errorf("creating document %s: %w", id, err)
	}
	return nil
}

// UpdateDocument stores a document snapshot.
func (db *DB) UpdateDocument(id, content string, version int) error {
	_, err := db.conn.Exec(`
		UPDATE documents
		SET content = $2, version = $3, updated_at = now()
		WHERE id = $1`, id, content, version)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	return nil
}

// SaveTransaction appends a wire transaction to the document's log.
func (db *DB) SaveTransaction(docID string, siteID int, payload []byte) error {
	_, err := db.conn.Exec(`
		INSERT INTO document_transactions (document_id, site_id, payload)
		VALUES ($1, $2, $3)`, docID, siteID, payload)
	if err != nil {
		return fmt.Errorf("saving transaction for %s: %w", docID, err)
	}
	return nil
}

// LoadTransactions returns a document's transaction log in arrival order.
func (db *DB) LoadTransactions(docID string) ([]StoredTransaction, error) {
	var txs []StoredTransaction
	err := db.conn.Select(&txs, `
		SELECT * FROM document_transactions
		WHERE document_id = $1 ORDER BY id`, docID)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for %s: %w", docID, err)
	}
	return txs, nil
}
