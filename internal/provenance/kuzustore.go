//go:build cgo

package provenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at
// dbPath, so provenance survives between runs.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// KuzuDB creates the leaf directory itself.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Source(
		name STRING,
		rank INT64,
		root STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS OutputFile(
		path STRING,
		merger STRING,
		digest STRING,
		run_id STRING,
		PRIMARY KEY(path)
	)`,
	`CREATE REL TABLE IF NOT EXISTS CONTRIBUTED(FROM Source TO OutputFile, position INT64)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// Reset deletes every node together with its edges.
func (s *KuzuStore) Reset(_ context.Context) error {
	for _, table := range []string{"OutputFile", "Source"} {
		res, err := s.conn.Query(fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", table))
		if err != nil {
			return fmt.Errorf("kuzu: reset %s: %w", table, err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

func (s *KuzuStore) AddSource(_ context.Context, node SourceNode) error {
	return s.exec(
		"MERGE (n:Source {name: $name}) SET n.rank = $rank, n.root = $root",
		map[string]any{
			"name": node.Name,
			"rank": int64(node.Rank),
			"root": node.Root,
		},
	)
}

func (s *KuzuStore) AddFile(_ context.Context, node FileNode) error {
	return s.exec(
		`MERGE (f:OutputFile {path: $path})
		 SET f.merger = $merger, f.digest = $digest, f.run_id = $run`,
		map[string]any{
			"path":   node.Path,
			"merger": node.Merger,
			"digest": node.Digest,
			"run":    node.RunID,
		},
	)
}

func (s *KuzuStore) AddContribution(_ context.Context, c Contribution) error {
	return s.exec(
		`MATCH (a:Source {name: $src}), (b:OutputFile {path: $path})
		 CREATE (a)-[:CONTRIBUTED {position: $pos}]->(b)`,
		map[string]any{
			"src":  c.Source,
			"path": c.Path,
			"pos":  int64(c.Position),
		},
	)
}

// ---------- Read operations ----------

// GetFile retrieves a single OutputFile node by path, or returns nil if not found.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query(
		"MATCH (f:OutputFile {path: $path}) RETURN f.path, f.merger, f.digest, f.run_id",
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &FileNode{
		Path:   toString(r[0]),
		Merger: toString(r[1]),
		Digest: toString(r[2]),
		RunID:  toString(r[3]),
	}, nil
}

func (s *KuzuStore) Contributors(_ context.Context, path string) ([]string, error) {
	rows, err := s.query(
		`MATCH (a:Source)-[c:CONTRIBUTED]->(f:OutputFile {path: $path})
		 RETURN a.name ORDER BY c.position`,
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

func (s *KuzuStore) FilesFrom(_ context.Context, source string) ([]string, error) {
	rows, err := s.query(
		`MATCH (a:Source {name: $src})-[:CONTRIBUTED]->(f:OutputFile)
		 RETURN f.path ORDER BY f.path`,
		map[string]any{"src": source},
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

func (s *KuzuStore) Sources(_ context.Context) ([]SourceNode, error) {
	rows, err := s.query("MATCH (a:Source) RETURN a.name, a.rank, a.root", nil)
	if err != nil {
		return nil, err
	}
	out := make([]SourceNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, SourceNode{Name: toString(r[0]), Rank: toInt(r[1]), Root: toString(r[2])})
	}
	sortSources(out)
	return out, nil
}

func (s *KuzuStore) Contributions(_ context.Context) ([]Contribution, error) {
	rows, err := s.query(
		"MATCH (a:Source)-[c:CONTRIBUTED]->(f:OutputFile) RETURN a.name, f.path, c.position",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Contribution, 0, len(rows))
	for _, r := range rows {
		out = append(out, Contribution{Source: toString(r[0]), Path: toString(r[1]), Position: toInt(r[2])})
	}
	sortContributions(out)
	return out, nil
}

// ---------- Stats ----------

func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	sources, err := s.count("MATCH (n:Source) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	files, err := s.count("MATCH (n:OutputFile) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	edges, err := s.count("MATCH ()-[r:CONTRIBUTED]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &Stats{SourceCount: sources, FileCount: files, ContributionCount: edges}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
