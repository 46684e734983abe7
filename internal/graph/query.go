// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chronos/pkg/types"
)

const defaultMaxResults = 50

// QueryOptions filters node queries.
type QueryOptions struct {
	// Query is an FTS5 search over node labels.
	Query string

	// Type restricts results to one node type.
	Type types.NodeType

	// MaxResults limits result count. Zero uses the default; a negative
	// value returns every match.
	MaxResults int
}

// Nodes returns nodes matching opts. Full-text queries are ranked by
// relevance; otherwise nodes come back in insertion order.
func (s *Store) Nodes(ctx context.Context, opts QueryOptions) ([]types.Node, error) {
	limit := opts.MaxResults
	if limit == 0 {
		limit = defaultMaxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(`SELECT n.id, n.type FROM nodes_fts
			JOIN nodes n ON n.rowid = nodes_fts.rowid
			WHERE nodes_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT n.id, n.type FROM nodes n WHERE 1=1`)
	}

	if opts.Type != "" {
		qb.WriteString(` AND n.type = ?`)
		args = append(args, string(opts.Type))
	}

	if useFTS {
		qb.WriteString(` ORDER BY nodes_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY n.rowid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []types.Node
	for rows.Next() {
		var n types.Node
		var typ string
		if err := rows.Scan(&n.ID, &typ); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Type = types.NodeType(typ)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Relationships returns relationships of relType, or all of them when
// relType is empty, in insertion order.
func (s *Store) Relationships(ctx context.Context, relType string) ([]types.Relationship, error) {
	q := `SELECT subject, object, type, timestamp FROM relationships`
	var args []any
	if relType != "" {
		q += ` WHERE type = ?`
		args = append(args, relType)
	}
	q += ` ORDER BY rowid`
	return s.scanRelationships(ctx, q, args...)
}

// Neighbors returns every relationship that touches node id.
func (s *Store) Neighbors(ctx context.Context, id string) ([]types.Relationship, error) {
	return s.scanRelationships(ctx,
		`SELECT subject, object, type, timestamp FROM relationships
		WHERE subject = ? OR object = ? ORDER BY rowid`, id, id)
}

func (s *Store) scanRelationships(ctx context.Context, q string, args ...any) ([]types.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	var rels []types.Relationship
	for rows.Next() {
		var r types.Relationship
		if err := rows.Scan(&r.Subject, &r.Object, &r.Type, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// Stats counts nodes and relationships, grouped by type.
func (s *Store) Stats(ctx context.Context) (types.GraphStats, error) {
	st := types.GraphStats{
		NodeTypes: map[string]int{},
		RelTypes:  map[string]int{},
	}

	if err := s.groupCount(ctx, `SELECT type, count(*) FROM nodes GROUP BY type`, st.NodeTypes, &st.Nodes); err != nil {
		return types.GraphStats{}, err
	}
	if err := s.groupCount(ctx, `SELECT type, count(*) FROM relationships GROUP BY type`, st.RelTypes, &st.Relationships); err != nil {
		return types.GraphStats{}, err
	}
	return st, nil
}

func (s *Store) groupCount(ctx context.Context, q string, into map[string]int, total *int) error {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("counting: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return fmt.Errorf("scanning count: %w", err)
		}
		into[k] = n
		*total += n
	}
	return rows.Err()
}

// Export is the full graph as written by ExportYAML and ExportJSON.
type Export struct {
	Nodes         []types.Node         `json:"nodes" yaml:"nodes"`
	Relationships []types.Relationship `json:"relationships" yaml:"relationships"`
	Stats         types.GraphStats     `json:"stats" yaml:"stats"`
}

// ExportYAML writes the whole graph to export.yaml next to the database
// and returns the file path.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	ex, err := s.export(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(ex)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(filepath.Dir(s.path), "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the whole graph to export.json next to the database
// and returns the file path.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	ex, err := s.export(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(filepath.Dir(s.path), "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) export(ctx context.Context) (Export, error) {
	var ex Export
	var err error

	if ex.Nodes, err = s.Nodes(ctx, QueryOptions{MaxResults: -1}); err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	if ex.Relationships, err = s.Relationships(ctx, ""); err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	if ex.Stats, err = s.Stats(ctx); err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	return ex, nil
}
