package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/halden-labs/answercore/internal/core/domain"
)

// NeighborStore reads the spans adjacent to a cited passage. Passages are
// written by the ingestion service; this side is read-only apart from schema
// bootstrap.
type NeighborStore struct {
	db *sql.DB
}

func NewNeighborStore(db *sql.DB) *NeighborStore {
	return &NeighborStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *NeighborStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS passages (
	source_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	span_index INT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_passages_document_span ON passages(document_id, span_index);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Neighbors returns the spans immediately before and after the given
// passage within its document. Missing neighbors come back empty.
func (s *NeighborStore) Neighbors(ctx context.Context, sourceID string) (domain.NeighborSpans, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT n.span_index - p.span_index AS offset, n.content
FROM passages p
JOIN passages n
  ON n.document_id = p.document_id
 AND n.span_index IN (p.span_index - 1, p.span_index + 1)
WHERE p.source_id = $1
`, sourceID)
	if err != nil {
		return domain.NeighborSpans{}, domain.WrapError(domain.ErrTemporary, "query neighbors", err)
	}
	defer rows.Close()

	var spans domain.NeighborSpans
	for rows.Next() {
		var offset int
		var content string
		if err := rows.Scan(&offset, &content); err != nil {
			return domain.NeighborSpans{}, fmt.Errorf("scan neighbor: %w", err)
		}
		switch offset {
		case -1:
			spans.Before = content
		case 1:
			spans.After = content
		}
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NeighborSpans{}, nil
		}
		return domain.NeighborSpans{}, fmt.Errorf("iterate neighbors: %w", err)
	}
	return spans, nil
}
