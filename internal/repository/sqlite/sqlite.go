package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// Store implements repository.Store using SQLite
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	// outcome is held while a transaction ends and its hooks run
	outcome sync.Mutex
}

// New opens (and migrates) the SQLite database at dbPath
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: in-memory databases are per-connection, and a single
	// writer serializes structural mutations.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, logger: logger.Named("sqlite")}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.logger.Debug("database opened", zap.String("path", dbPath))
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		properties JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS node_labels (
		node_id TEXT NOT NULL,
		label TEXT NOT NULL,
		PRIMARY KEY (node_id, label),
		FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		type TEXT NOT NULL,
		properties JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (from_id) REFERENCES nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (to_id) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, type);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, type);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return s.addColumnIfNotExists("nodes", "updated_at", "DATETIME")
}

// addColumnIfNotExists adds a column to tables created by older versions
func (s *Store) addColumnIfNotExists(table, column, definition string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, ctyp string
			notNull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctyp, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a transaction
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// The previous transaction's hooks must have run
	s.outcome.Lock()
	s.outcome.Unlock()
	return &Tx{tx: sqlTx, id: uuid.New().String(), outcome: &s.outcome, logger: s.logger}, nil
}

// Tx implements repository.Tx over a database/sql transaction
type Tx struct {
	tx      *sql.Tx
	id      string
	outcome *sync.Mutex
	logger  *zap.Logger

	mu         sync.Mutex
	done       bool
	onCommit   []func()
	onRollback []func()
}

// ID identifies the transaction
func (t *Tx) ID() string {
	return t.id
}

// OnCommit registers fn to run after a successful commit
func (t *Tx) OnCommit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCommit = append(t.onCommit, fn)
}

// OnRollback registers fn to run after a rollback or failed commit
func (t *Tx) OnRollback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRollback = append(t.onRollback, fn)
}

// Commit commits the transaction and runs the matching hooks
func (t *Tx) Commit() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return sql.ErrTxDone
	}
	t.done = true
	t.mu.Unlock()

	t.outcome.Lock()
	defer t.outcome.Unlock()
	if err := t.tx.Commit(); err != nil {
		t.runHooks(t.onRollback)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.runHooks(t.onCommit)
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op,
// so it can be deferred unconditionally.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	t.done = true
	t.mu.Unlock()

	t.outcome.Lock()
	defer t.outcome.Unlock()
	err := t.tx.Rollback()
	t.logger.Debug("transaction rolled back", zap.String("tx", t.id))
	t.runHooks(t.onRollback)
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (t *Tx) runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

// ============================================================================
// Nodes
// ============================================================================

// CreateNode inserts a node and its labels. An empty ID is filled in.
func (t *Tx) CreateNode(ctx context.Context, node *domain.Node) error {
	if node.ID == "" {
		node.ID = uuid.New().String()
	}

	propsJSON, err := marshalToNull(node.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal node properties: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO nodes (id, properties, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, node.ID, propsJSON); err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	for _, label := range node.Labels {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO node_labels (node_id, label) VALUES (?, ?)
		`, node.ID, label); err != nil {
			return fmt.Errorf("failed to label node: %w", err)
		}
	}

	return nil
}

// GetNode retrieves a node by ID, nil when it does not exist
func (t *Tx) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	var row nodeRow
	err := t.tx.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes n WHERE n.id = ?`, id).
		Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}
	return row.toDomain()
}

// FindNode returns the first node with label whose property key equals value
func (t *Tx) FindNode(ctx context.Context, label, key string, value any) (*domain.Node, error) {
	nodes, err := t.ListNodes(ctx, label, map[string]any{key: value}, domain.Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// ListNodes returns the nodes with label matching every filter entry, in
// insertion order
func (t *Tx) ListNodes(ctx context.Context, label string, filter map[string]any, page domain.Page) ([]domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes n
		JOIN node_labels nl ON nl.node_id = n.id
		WHERE nl.label = ?`
	args := []any{label}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query += ` AND json_extract(n.properties, ?) = ?`
		args = append(args, jsonPath(k), sqlValue(filter[k]))
	}

	clause, pageArgs := pageClause(page)
	query += ` ORDER BY n.rowid` + clause
	args = append(args, pageArgs...)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		node, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

// CountNodes counts the nodes carrying label
func (t *Tx) CountNodes(ctx context.Context, label string) (int, error) {
	var count int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM node_labels WHERE label = ?`, label).
		Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}

// SetProperties merges props into the node's property bag. Nil values
// delete the key.
func (t *Tx) SetProperties(ctx context.Context, id string, props map[string]any) error {
	var current sql.NullString
	err := t.tx.QueryRowContext(ctx, `SELECT properties FROM nodes WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("node %s: %w", id, repository.ErrNodeNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query node properties: %w", err)
	}

	existing, err := unmarshalProperties(current)
	if err != nil {
		return fmt.Errorf("unmarshal properties: %w", err)
	}

	propsJSON, err := marshalToNull(mergeProperties(existing, props))
	if err != nil {
		return fmt.Errorf("failed to marshal node properties: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `
		UPDATE nodes SET properties = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, propsJSON, id); err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	return nil
}

// DeleteNode removes a node with its labels and every attached edge. The
// nodes at the other end of those edges are left alone.
func (t *Tx) DeleteNode(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
		return fmt.Errorf("failed to delete node edges: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM node_labels WHERE node_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete node labels: %w", err)
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("node %s: %w", id, repository.ErrNodeNotFound)
	}
	return nil
}

// ============================================================================
// Edges
// ============================================================================

// CreateEdge inserts an edge. An empty ID is filled in.
func (t *Tx) CreateEdge(ctx context.Context, edge *domain.Edge) error {
	if edge.ID == "" {
		edge.ID = uuid.New().String()
	}

	args, err := edgeInsertArgs(edge)
	if err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO edges (id, from_id, to_id, type, properties)
		VALUES (?, ?, ?, ?, ?)
	`, args...); err != nil {
		return fmt.Errorf("failed to create edge: %w", err)
	}
	return nil
}

// Edges returns the edges of a node in the given direction, optionally
// restricted to some types, in insertion order
func (t *Tx) Edges(ctx context.Context, nodeID string, dir repository.Direction, types ...domain.EdgeType) ([]domain.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM edges e WHERE ` + directionFilter(dir)
	args := []any{nodeID}
	if dir == repository.Both {
		args = append(args, nodeID)
	}

	typeClause, typeArgs := edgeTypeFilter("e", types)
	query += typeClause + ` ORDER BY e.rowid`
	args = append(args, typeArgs...)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.Edge
	for rows.Next() {
		var row edgeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		edges = append(edges, *edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return edges, nil
}

// SetEdgeProperties merges props into the edge's property bag
func (t *Tx) SetEdgeProperties(ctx context.Context, id string, props map[string]any) error {
	var current sql.NullString
	err := t.tx.QueryRowContext(ctx, `SELECT properties FROM edges WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("edge %s: %w", id, repository.ErrNodeNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query edge properties: %w", err)
	}

	existing, err := unmarshalProperties(current)
	if err != nil {
		return fmt.Errorf("unmarshal properties: %w", err)
	}

	propsJSON, err := marshalToNull(mergeProperties(existing, props))
	if err != nil {
		return fmt.Errorf("failed to marshal edge properties: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `UPDATE edges SET properties = ? WHERE id = ?`, propsJSON, id); err != nil {
		return fmt.Errorf("failed to update edge: %w", err)
	}
	return nil
}

// DeleteEdge removes an edge
func (t *Tx) DeleteEdge(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	return nil
}

// ============================================================================
// Traversal
// ============================================================================

// Traverse walks edges of the given types from start with a recursive CTE
func (t *Tx) Traverse(ctx context.Context, start string, dir repository.Direction, maxDepth int, types ...domain.EdgeType) ([]string, error) {
	var next, join string
	switch dir {
	case repository.Outgoing:
		next, join = "e.to_id", "e.from_id = r.id"
	case repository.Incoming:
		next, join = "e.from_id", "e.to_id = r.id"
	default:
		next = "CASE WHEN e.from_id = r.id THEN e.to_id ELSE e.from_id END"
		join = "(e.from_id = r.id OR e.to_id = r.id)"
	}
	typeClause, typeArgs := edgeTypeFilter("e", types)

	var query string
	args := []any{start}
	if maxDepth > 0 {
		// Depth-bounded walk; the depth column keeps the nearest distance.
		query = `
		WITH RECURSIVE reach(id, depth) AS (
			SELECT ?, 0
			UNION
			SELECT ` + next + `, r.depth + 1
			FROM edges e JOIN reach r ON ` + join + `
			WHERE r.depth < ?` + typeClause + `
		)
		SELECT id FROM reach WHERE id != ? GROUP BY id ORDER BY MIN(depth), id`
		args = append(args, maxDepth)
		args = append(args, typeArgs...)
	} else {
		// Unbounded walk; UNION over ids alone terminates on cycles.
		query = `
		WITH RECURSIVE reach(id) AS (
			SELECT ?
			UNION
			SELECT ` + next + `
			FROM edges e JOIN reach r ON ` + join + `
			WHERE 1 = 1` + typeClause + `
		)
		SELECT id FROM reach WHERE id != ?`
		args = append(args, typeArgs...)
	}
	args = append(args, start)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to traverse from %s: %w", start, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan traversal row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating traversal: %w", err)
	}
	return ids, nil
}
