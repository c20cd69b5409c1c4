package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/tokentable"
)

// Compilation is one stored run of the compiler over a notebook.
type Compilation struct {
	ID              string    `json:"id"`
	Seq             int64     `json:"seq"`
	SourcePath      string    `json:"source_path"`
	Digest          string    `json:"digest"`
	RecordCount     int       `json:"record_count"`
	CompilerVersion string    `json:"compiler_version"`
	FormatVersion   string    `json:"format_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// WriteCompilation stores the records and token table of a compilation
// of sourcePath. When the records digest equals the latest stored one for
// the same notebook nothing is written: the latest compilation is returned
// with written=false.
func (s *Store) WriteCompilation(ctx context.Context, sourcePath string, records *ir.Records, items []tokentable.Item) (c Compilation, written bool, err error) {
	digest, err := ir.Digest(records)
	if err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	latest, found, err := latestCompilation(ctx, tx, sourcePath)
	if err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: %w", err)
	}
	if found && latest.Digest == digest {
		return latest, false, nil
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM compilations`).Scan(&seq); err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: next seq: %w", err)
	}

	c = Compilation{
		ID:              s.ids.Generate(),
		Seq:             seq,
		SourcePath:      sourcePath,
		Digest:          digest,
		RecordCount:     records.Len(),
		CompilerVersion: ir.CompilerVersion,
		FormatVersion:   ir.FormatVersion,
		CreatedAt:       s.clock.Now().UTC().Truncate(time.Second),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO compilations
		(id, seq, source_path, digest, record_count, compiler_version, format_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.Seq,
		c.SourcePath,
		c.Digest,
		c.RecordCount,
		c.CompilerVersion,
		c.FormatVersion,
		c.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: %w", err)
	}

	if err := writeRecords(ctx, tx, c.ID, records); err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: %w", err)
	}
	if err := writeTokens(ctx, tx, c.ID, items); err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Compilation{}, false, fmt.Errorf("write compilation: commit: %w", err)
	}
	return c, true, nil
}

func writeRecords(ctx context.Context, tx *sql.Tx, compilationID string, records *ir.Records) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (compilation_id, position, token, kind, body, record_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare records: %w", err)
	}
	defer stmt.Close()

	for i, token := range records.Keys() {
		rec, _ := records.Lookup(token)
		body, err := records.EntryJSON(token)
		if err != nil {
			return err
		}
		hash, err := ir.RecordHash(records, token)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, compilationID, i, token, string(rec.Kind()), string(body), hash); err != nil {
			return fmt.Errorf("insert record %s: %w", token, err)
		}
	}
	return nil
}

func writeTokens(ctx context.Context, tx *sql.Tx, compilationID string, items []tokentable.Item) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tokens (compilation_id, position, token, activity, source, target, action, salt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare tokens: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, compilationID, i,
			it.Token, it.Activity, it.Source, it.Target, string(it.Action), it.Salt,
		); err != nil {
			return fmt.Errorf("insert token %s: %w", it.Token, err)
		}
	}
	return nil
}
