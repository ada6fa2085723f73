package chunkstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

// SQLiteStore is a persistent chunk repository backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the chunk database under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "chunks.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		text TEXT NOT NULL,
		position INTEGER NOT NULL,
		token_count INTEGER NOT NULL,
		embedding BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// InsertDocument records a document and its ingestion status.
func (s *SQLiteStore) InsertDocument(ctx context.Context, doc *entities.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, filename, status) VALUES (?, ?, ?)`,
		doc.ID, doc.Filename, string(doc.Status))
	return err
}

// UpdateDocumentStatus moves a document through the ingestion lifecycle.
func (s *SQLiteStore) UpdateDocumentStatus(ctx context.Context, documentID string, status entities.DocumentStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), documentID)
	return err
}

// FindDocumentByFilename returns the most recent document indexed under
// filename.
func (s *SQLiteStore) FindDocumentByFilename(ctx context.Context, filename string) (*entities.Document, bool, error) {
	var doc entities.Document
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, status FROM documents WHERE filename = ? ORDER BY created_at DESC LIMIT 1`,
		filename).Scan(&doc.ID, &doc.Filename, &status)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc.Status = entities.DocumentStatus(status)
	return &doc, true, nil
}

// Insert stores a chunk.
func (s *SQLiteStore) Insert(ctx context.Context, chunk entities.Chunk) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, document_id, text, position, token_count, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocumentID, chunk.Text, chunk.Position, chunk.TokenCount,
		encodeEmbedding(chunk.Embedding))
	return err
}

// Delete removes a document and all of its chunks.
func (s *SQLiteStore) Delete(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// List returns the chunks of a document ordered by position.
func (s *SQLiteStore) List(ctx context.Context, documentID string) ([]entities.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, text, position, token_count, embedding
		 FROM chunks WHERE document_id = ? ORDER BY position`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Chunk
	for rows.Next() {
		var c entities.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Position, &c.TokenCount, &blob); err != nil {
			return nil, err
		}
		c.Embedding = decodeEmbedding(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns a chunk by id.
func (s *SQLiteStore) Get(ctx context.Context, chunkID string) (entities.Chunk, bool, error) {
	var c entities.Chunk
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, text, position, token_count, embedding FROM chunks WHERE id = ?`,
		chunkID).Scan(&c.ID, &c.DocumentID, &c.Text, &c.Position, &c.TokenCount, &blob)
	if err == sql.ErrNoRows {
		return entities.Chunk{}, false, nil
	}
	if err != nil {
		return entities.Chunk{}, false, err
	}
	c.Embedding = decodeEmbedding(blob)
	return c, true, nil
}

// LoadAll streams every stored chunk, used to rebuild the in-memory indices
// on startup.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]entities.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, text, position, token_count, embedding FROM chunks ORDER BY document_id, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Chunk
	for rows.Next() {
		var c entities.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Position, &c.TokenCount, &blob); err != nil {
			return nil, err
		}
		c.Embedding = decodeEmbedding(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func encodeEmbedding(vec []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(vec)*4))
	for _, v := range vec {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func decodeEmbedding(blob []byte) []float32 {
	vec := make([]float32, 0, len(blob)/4)
	for i := 0; i+4 <= len(blob); i += 4 {
		vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(blob[i:i+4])))
	}
	return vec
}
