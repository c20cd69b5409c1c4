package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/tokentable"
)

// ErrNotFound is returned when a compilation ID is unknown.
var ErrNotFound = errors.New("compilation not found")

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const compilationColumns = `id, seq, source_path, digest, record_count, compiler_version, format_version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompilation(row rowScanner) (Compilation, error) {
	var (
		c         Compilation
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.Seq, &c.SourcePath, &c.Digest, &c.RecordCount,
		&c.CompilerVersion, &c.FormatVersion, &createdAt); err != nil {
		return Compilation{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Compilation{}, fmt.Errorf("compilation %s: created_at: %w", c.ID, err)
	}
	c.CreatedAt = t
	return c, nil
}

func latestCompilation(ctx context.Context, q queryer, sourcePath string) (Compilation, bool, error) {
	c, err := scanCompilation(q.QueryRowContext(ctx, `
		SELECT `+compilationColumns+`
		FROM compilations
		WHERE source_path = ?
		ORDER BY seq DESC
		LIMIT 1
	`, sourcePath))
	if errors.Is(err, sql.ErrNoRows) {
		return Compilation{}, false, nil
	}
	if err != nil {
		return Compilation{}, false, fmt.Errorf("latest compilation: %w", err)
	}
	return c, true, nil
}

// LatestCompilation returns the last compilation stored for sourcePath.
func (s *Store) LatestCompilation(ctx context.Context, sourcePath string) (Compilation, bool, error) {
	return latestCompilation(ctx, s.db, sourcePath)
}

// Compilation returns a compilation by ID, or ErrNotFound.
func (s *Store) Compilation(ctx context.Context, id string) (Compilation, error) {
	c, err := scanCompilation(s.db.QueryRowContext(ctx, `
		SELECT `+compilationColumns+`
		FROM compilations
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Compilation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Compilation{}, fmt.Errorf("read compilation: %w", err)
	}
	return c, nil
}

// ListCompilations returns the stored compilations of sourcePath, or of
// every notebook when sourcePath is empty, oldest first.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListCompilations(ctx context.Context, sourcePath string) ([]Compilation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+compilationColumns+`
		FROM compilations
		WHERE ? = '' OR source_path = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sourcePath, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	compilations := []Compilation{}
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, err
		}
		compilations = append(compilations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compilations: %w", err)
	}
	return compilations, nil
}

// ReadRecords rebuilds the token dictionary of a compilation.
func (s *Store) ReadRecords(ctx context.Context, compilationID string) (*ir.Records, error) {
	if _, err := s.Compilation(ctx, compilationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT token, body
		FROM records
		WHERE compilation_id = ?
		ORDER BY position ASC
	`, compilationID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	// Reassemble the records.json object and let ir restore the references.
	var buf bytes.Buffer
	buf.WriteByte('{')
	for n := 0; rows.Next(); n++ {
		var token, body string
		if err := rows.Scan(&token, &body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		key, err := json.Marshal(token)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	buf.WriteByte('}')

	records := ir.NewRecords()
	if err := records.UnmarshalJSON(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("compilation %s: %w", compilationID, err)
	}
	return records, nil
}

// ReadTokenTable returns the token table of a compilation in stored order.
func (s *Store) ReadTokenTable(ctx context.Context, compilationID string) ([]tokentable.Item, error) {
	if _, err := s.Compilation(ctx, compilationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT token, activity, source, target, action, salt
		FROM tokens
		WHERE compilation_id = ?
		ORDER BY position ASC
	`, compilationID)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	items := []tokentable.Item{}
	for rows.Next() {
		var (
			it     tokentable.Item
			action string
		)
		if err := rows.Scan(&it.Token, &it.Activity, &it.Source, &it.Target, &action, &it.Salt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		it.Action = tokentable.Action(action)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return items, nil
}
