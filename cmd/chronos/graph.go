// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chronos/internal/graph"
	"github.com/pdiddy/chronos/internal/pipeline"
	"github.com/pdiddy/chronos/pkg/types"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and build HeritageNet knowledge graphs",
	Long: `Graph works on the SQLite knowledge graph a run builds from Phase 2
output. Point --db at a graph database, or --run at a run directory
(results-dir/<run id>) to use its graph/heritagenet.db.`,
}

// --- load subcommand ---

var graphLoadCmd = &cobra.Command{
	Use:   "load <graph-extraction.txt>",
	Short: "Parse Node(...) and Relationship(...) elements into a graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraphLoad,
}

func runGraphLoad(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	e := graph.ParseElements(string(data))
	if e.Empty() {
		return fmt.Errorf("no graph elements found in %s", args[0])
	}

	store, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.AddElements(cmd.Context(), e)
	if err != nil {
		return err
	}
	fmt.Printf("parsed %d nodes, %d relationships (%d unknown types, %d dropped)\n",
		len(e.Nodes), len(e.Relationships), e.UnknownTypes, e.Dropped)
	fmt.Printf("added %d nodes, %d relationships to %s\n", sum.NodesAdded, sum.RelationshipsAdded, store.Path())
	return nil
}

// --- query subcommand ---

var graphQueryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search nodes by label, or list the relationships of one node",
	Long: `Query runs a full-text search over node labels, optionally filtered by
--type. Without text it lists nodes in insertion order. With --neighbors
it prints every relationship touching that node id instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraphQuery,
}

func runGraphQuery(cmd *cobra.Command, args []string) error {
	store, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	if id, _ := cmd.Flags().GetString("neighbors"); id != "" {
		rels, err := store.Neighbors(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rels)
		}
		if len(rels) == 0 {
			fmt.Println("No relationships found.")
			return nil
		}
		for _, r := range rels {
			fmt.Println(formatRelationship(r))
		}
		return nil
	}

	typ, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	opts := graph.QueryOptions{Type: types.NodeType(typ), MaxResults: limit}
	if len(args) > 0 {
		opts.Query = args[0]
	}
	nodes, err := store.Nodes(ctx, opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(nodes)
	}
	if len(nodes) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-20s  %s\n", "Rank", "Type", "Node")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 70))
	for i, n := range nodes {
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %s\n", i+1, n.Type, n.ID)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(nodes))
	return nil
}

// --- stats subcommand ---

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count nodes and relationships by type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openGraph(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

// --- export subcommand ---

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the graph to YAML or JSON next to the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		store, err := openGraph(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		var path string
		switch format {
		case "yaml", "":
			path, err = store.ExportYAML(cmd.Context())
		case "json":
			path, err = store.ExportJSON(cmd.Context())
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	},
}

// --- shared helpers ---

// openGraph opens the database named by --db, or the graph of the run
// directory named by --run.
func openGraph(cmd *cobra.Command) (*graph.Store, error) {
	db, _ := cmd.Flags().GetString("db")
	if db == "" {
		run, _ := cmd.Flags().GetString("run")
		if run == "" {
			return nil, fmt.Errorf("--db or --run required")
		}
		db = filepath.Join(run, pipeline.GraphDir, graph.DBFile)
	}
	return graph.NewStore(db)
}

func formatRelationship(r types.Relationship) string {
	s := fmt.Sprintf("%s -[%s]-> %s", r.Subject, r.Type, r.Object)
	if r.Timestamp != "" {
		s += " (" + r.Timestamp + ")"
	}
	return s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{graphLoadCmd, graphQueryCmd, graphStatsCmd, graphExportCmd} {
		c.Flags().String("db", "", "path to a graph database")
		c.Flags().String("run", "", "run directory whose graph to use")
		graphCmd.AddCommand(c)
	}

	graphQueryCmd.Flags().String("type", "", "filter by node type (e.g. ClinicalObservation)")
	graphQueryCmd.Flags().Int("limit", 0, "maximum results (default 50, negative for all)")
	graphQueryCmd.Flags().String("neighbors", "", "list relationships of this node id")
	graphQueryCmd.Flags().Bool("json", false, "output as JSON")

	graphExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	rootCmd.AddCommand(graphCmd)
}
