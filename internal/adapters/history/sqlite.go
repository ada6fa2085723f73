// Package history persists evaluation runs and per-query metrics to SQLite
// for an external reporting layer to consume.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

// SQLiteSink implements ports.HistorySink on SQLite.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the history database under dataPath.
func NewSQLiteSink(dataPath string) (*SQLiteSink, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sink := &SQLiteSink{db: db}
	if err := sink.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return sink, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS eval_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_name TEXT NOT NULL,
		total_questions INTEGER NOT NULL,
		retrieval_accuracy REAL NOT NULL,
		avg_faithfulness REAL NOT NULL,
		avg_latency_ms REAL NOT NULL,
		details TEXT NOT NULL,
		run_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS query_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		confidence REAL NOT NULL,
		flags TEXT NOT NULL,
		refused INTEGER NOT NULL,
		latency_ms REAL NOT NULL,
		asked_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error { return s.db.Close() }

// SaveEvalRun stores one evaluation summary with its per-question details.
func (s *SQLiteSink) SaveEvalRun(ctx context.Context, summary entities.EvalSummary, results []entities.EvalResult) error {
	details, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding eval details: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO eval_runs (test_name, total_questions, retrieval_accuracy, avg_faithfulness, avg_latency_ms, details, run_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.TestName, summary.TotalQuestions, summary.RetrievalAccuracy,
		summary.AvgFaithfulness, float64(summary.AvgLatency.Microseconds())/1000.0,
		string(details), summary.RunAt)
	return err
}

// SaveQueryMetrics stores one per-query metrics record.
func (s *SQLiteSink) SaveQueryMetrics(ctx context.Context, m entities.QueryMetrics) error {
	flags, err := json.Marshal(m.Flags)
	if err != nil {
		return fmt.Errorf("encoding flags: %w", err)
	}
	refused := 0
	if m.Refused {
		refused = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_metrics (question, confidence, flags, refused, latency_ms, asked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.Question, m.Confidence, string(flags), refused,
		float64(m.Latency.Microseconds())/1000.0, m.AskedAt)
	return err
}

// RecentEvalRuns returns the most recent evaluation summaries, newest first.
func (s *SQLiteSink) RecentEvalRuns(ctx context.Context, limit int) ([]entities.EvalSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT test_name, total_questions, retrieval_accuracy, avg_faithfulness, avg_latency_ms, run_at
		 FROM eval_runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.EvalSummary
	for rows.Next() {
		var sum entities.EvalSummary
		var latencyMS float64
		if err := rows.Scan(&sum.TestName, &sum.TotalQuestions, &sum.RetrievalAccuracy,
			&sum.AvgFaithfulness, &latencyMS, &sum.RunAt); err != nil {
			return nil, err
		}
		sum.AvgLatency = time.Duration(latencyMS * float64(time.Millisecond))
		out = append(out, sum)
	}
	return out, rows.Err()
}
