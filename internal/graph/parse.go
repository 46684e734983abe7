// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph parses HeritageNet knowledge-graph elements from model
// output and stores them in a per-run SQLite database.
package graph

import (
	"regexp"
	"strings"

	"github.com/pdiddy/chronos/pkg/types"
)

const nodeExpr = `Node\(\s*id\s*=\s*['"]([^'"\n]*)['"]\s*,\s*type\s*=\s*['"]([^'"\n]*)['"]\s*\)`

var (
	nodePattern = regexp.MustCompile(nodeExpr)
	relPattern  = regexp.MustCompile(
		`Relationship\(\s*subj\s*=\s*` + nodeExpr +
			`\s*,\s*obj\s*=\s*` + nodeExpr +
			`\s*,\s*type\s*=\s*['"]([^'"\n]*)['"]` +
			`(?:\s*,\s*timestamp\s*=\s*['"]([^'"\n]*)['"])?\s*\)`)
)

// Elements is the graph content parsed from one model response.
type Elements struct {
	Nodes         []types.Node         `json:"nodes" yaml:"nodes"`
	Relationships []types.Relationship `json:"relationships" yaml:"relationships"`

	// UnknownTypes counts nodes whose type is not a known HeritageNet type.
	UnknownTypes int `json:"unknown_types" yaml:"unknown_types"`

	// Dropped counts relationships whose endpoints were not parsed as nodes.
	Dropped int `json:"dropped" yaml:"dropped"`
}

// Empty reports whether nothing was parsed.
func (e Elements) Empty() bool {
	return len(e.Nodes) == 0 && len(e.Relationships) == 0
}

// ParseElements reads Node(...) and Relationship(...) literals. Nodes are
// deduplicated by id, first type wins; nodes written inline in a
// relationship count as declarations. Relationships are kept in order,
// duplicates removed.
func ParseElements(output string) Elements {
	var e Elements
	seen := map[string]bool{}

	for _, m := range nodePattern.FindAllStringSubmatch(output, -1) {
		id, typ := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if !types.KnownNodeTypes[types.NodeType(typ)] {
			e.UnknownTypes++
		}
		e.Nodes = append(e.Nodes, types.Node{ID: id, Type: types.NodeType(typ)})
	}

	dup := map[types.Relationship]bool{}
	for _, m := range relPattern.FindAllStringSubmatch(output, -1) {
		r := types.Relationship{
			Subject:   strings.TrimSpace(m[1]),
			Object:    strings.TrimSpace(m[3]),
			Type:      strings.TrimSpace(m[5]),
			Timestamp: strings.TrimSpace(m[6]),
		}
		if !seen[r.Subject] || !seen[r.Object] || r.Type == "" {
			e.Dropped++
			continue
		}
		if dup[r] {
			continue
		}
		dup[r] = true
		e.Relationships = append(e.Relationships, r)
	}

	return e
}

// Format writes elements back in the literal syntax ParseElements reads.
func Format(e Elements) string {
	nodeTypes := map[string]types.NodeType{}
	var b strings.Builder
	b.WriteString("Nodes:\n")
	for _, n := range e.Nodes {
		nodeTypes[n.ID] = n.Type
		b.WriteString("Node(id='" + n.ID + "', type='" + string(n.Type) + "')\n")
	}
	b.WriteString("\nRelationships:\n")
	for _, r := range e.Relationships {
		b.WriteString("Relationship(subj=Node(id='" + r.Subject + "', type='" + string(nodeTypes[r.Subject]) +
			"'), obj=Node(id='" + r.Object + "', type='" + string(nodeTypes[r.Object]) + "'), type='" + r.Type + "'")
		if r.Timestamp != "" {
			b.WriteString(", timestamp='" + r.Timestamp + "'")
		}
		b.WriteString(")\n")
	}
	return b.String()
}
