// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DBFile is the graph database file name inside a run's graph directory.
const DBFile = "heritagenet.db"

// Store manages one run's knowledge-graph SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the graph database at path, creating parent
// directories and the schema if needed. The path comes from the run
// context; there is no shared default database.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating graph directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			label TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL REFERENCES nodes(id),
			object TEXT NOT NULL REFERENCES nodes(id),
			type TEXT NOT NULL,
			timestamp TEXT NOT NULL DEFAULT '',
			UNIQUE(subject, object, type, timestamp)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rel_subject ON relationships(subject)`,
		`CREATE INDEX IF NOT EXISTS idx_rel_object ON relationships(object)`,
		`CREATE INDEX IF NOT EXISTS idx_rel_type ON relationships(type)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='nodes_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE nodes_fts USING fts5(label, content=nodes, content_rowid=rowid)`,
			`CREATE TRIGGER nodes_ai AFTER INSERT ON nodes BEGIN
				INSERT INTO nodes_fts(rowid, label) VALUES (new.rowid, new.label);
			END`,
			`CREATE TRIGGER nodes_ad AFTER DELETE ON nodes BEGIN
				INSERT INTO nodes_fts(nodes_fts, rowid, label) VALUES('delete', old.rowid, old.label);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// AddSummary counts rows written by AddElements.
type AddSummary struct {
	NodesAdded         int
	RelationshipsAdded int
}

// AddElements stores nodes and relationships in one transaction. Existing
// nodes keep their first type; duplicate relationships are ignored.
func (s *Store) AddElements(ctx context.Context, e Elements) (AddSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AddSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var sum AddSummary

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO nodes (id, type, label) VALUES (?, ?, ?)`)
	if err != nil {
		return AddSummary{}, fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, n := range e.Nodes {
		res, err := nodeStmt.ExecContext(ctx, n.ID, string(n.Type), label(n.ID))
		if err != nil {
			return AddSummary{}, fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
		if k, _ := res.RowsAffected(); k > 0 {
			sum.NodesAdded++
		}
	}

	relStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO relationships (subject, object, type, timestamp) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return AddSummary{}, fmt.Errorf("preparing relationship insert: %w", err)
	}
	defer relStmt.Close()

	for _, r := range e.Relationships {
		res, err := relStmt.ExecContext(ctx, r.Subject, r.Object, r.Type, r.Timestamp)
		if err != nil {
			return AddSummary{}, fmt.Errorf("inserting relationship %s-%s->%s: %w", r.Subject, r.Type, r.Object, err)
		}
		if k, _ := res.RowsAffected(); k > 0 {
			sum.RelationshipsAdded++
		}
	}

	if err := tx.Commit(); err != nil {
		return AddSummary{}, fmt.Errorf("committing transaction: %w", err)
	}
	return sum, nil
}

// label turns a node id such as "spinal_blood_congestion" into searchable words.
func label(id string) string {
	return strings.Join(strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
}
