package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/utils"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteGraphStore implements GraphStore using SQLite for persistence.
type SQLiteGraphStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteGraphStore creates a new SQLiteGraphStore rooted at projectRoot.
// It creates the database at .metakg/metakg.db.
func NewSQLiteGraphStore(projectRoot string) (*SQLiteGraphStore, error) {
	return OpenSQLiteGraphStore(DefaultDBPath(projectRoot))
}

// OpenSQLiteGraphStore opens (creating if needed) the database at dbPath.
func OpenSQLiteGraphStore(dbPath string) (*SQLiteGraphStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteGraphStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteGraphStore) Path() string {
	return s.dbPath
}

// WriteGraph upserts nodes, their xrefs, and edges in a single transaction.
func (s *SQLiteGraphStore) WriteGraph(ctx context.Context, nodes []models.Node, edges []models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range nodes {
		if err := upsertNode(ctx, tx, n); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := upsertEdge(ctx, tx, e); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func upsertNode(ctx context.Context, tx *sql.Tx, n models.Node) error {
	var stoichJSON, xrefJSON []byte
	var err error
	if n.Stoichiometry != nil {
		if stoichJSON, err = json.Marshal(n.Stoichiometry); err != nil {
			return fmt.Errorf("failed to marshal stoichiometry for %s: %w", n.ID, err)
		}
	}
	if len(n.Xrefs) > 0 {
		if xrefJSON, err = json.Marshal(n.Xrefs); err != nil {
			return fmt.Errorf("failed to marshal xrefs for %s: %w", n.ID, err)
		}
	}
	var charge sql.NullInt64
	if n.Charge != nil {
		charge = sql.NullInt64{Int64: int64(*n.Charge), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta_nodes (id, kind, name, description, formula, charge, ec_number,
			stoichiometry, xrefs, source_format, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			description = excluded.description,
			formula = excluded.formula,
			charge = excluded.charge,
			ec_number = excluded.ec_number,
			stoichiometry = excluded.stoichiometry,
			xrefs = excluded.xrefs,
			source_format = excluded.source_format,
			source_file = excluded.source_file`,
		n.ID, string(n.Kind), n.Name, nullString(n.Description), nullString(n.Formula), charge,
		nullString(n.ECNumber), nullBytes(stoichJSON), nullBytes(xrefJSON),
		nullString(n.SourceFormat), nullString(n.SourceFile))
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", n.ID, err)
	}

	for _, db := range sortedKeys(n.Xrefs) {
		ext := n.Xrefs[db]
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO xref_index (node_id, db_name, ext_id) VALUES (?, ?, ?)`,
			n.ID, strings.ToLower(db), ext); err != nil {
			return fmt.Errorf("failed to index xref %s:%s: %w", db, ext, err)
		}
	}
	return nil
}

func upsertEdge(ctx context.Context, tx *sql.Tx, e models.Edge) error {
	evidence, err := encodeEvidence(e)
	if err != nil {
		return err
	}
	// ON CONFLICT DO UPDATE keeps the original rowid, so scope order is stable.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta_edges (src, rel, dst, evidence) VALUES (?, ?, ?, ?)
		ON CONFLICT(src, rel, dst) DO UPDATE SET evidence = excluded.evidence`,
		e.Source, string(e.Relation), e.Target, nullBytes(evidence))
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s: %w", e.Key(), err)
	}
	return nil
}

// encodeEvidence packs typed edge attributes into the evidence JSON column.
func encodeEvidence(e models.Edge) ([]byte, error) {
	payload := map[string]interface{}{}
	if e.Stoich != 0 {
		payload["stoich"] = e.Stoich
	}
	if e.Compartment != "" {
		payload["compartment"] = e.Compartment
	}
	if len(payload) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evidence for %s: %w", e.Key(), err)
	}
	return b, nil
}

// decodeEvidence fills typed edge attributes from the evidence JSON column.
// Unparseable evidence leaves the defaults in place.
func decodeEvidence(e *models.Edge, raw sql.NullString) {
	if !raw.Valid || raw.String == "" {
		return
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw.String), &payload); err != nil {
		return
	}
	e.Stoich = utils.GetFloat64(payload, "stoich", 0)
	e.Compartment = utils.GetString(payload, "compartment", "")
}

const nodeColumns = `id, kind, name, description, formula, charge, ec_number,
	stoichiometry, xrefs, source_format, source_file`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var n models.Node
	var kind string
	var desc, formula, ec, stoich, xrefs, sfmt, sfile sql.NullString
	var charge sql.NullInt64
	if err := row.Scan(&n.ID, &kind, &n.Name, &desc, &formula, &charge, &ec,
		&stoich, &xrefs, &sfmt, &sfile); err != nil {
		return nil, err
	}
	n.Kind = models.NodeKind(kind)
	n.Description = desc.String
	n.Formula = formula.String
	n.ECNumber = ec.String
	n.SourceFormat = sfmt.String
	n.SourceFile = sfile.String
	if charge.Valid {
		c := int(charge.Int64)
		n.Charge = &c
	}
	if stoich.Valid {
		n.Stoichiometry = models.ParseStoichiometry(stoich.String)
	}
	if xrefs.Valid && xrefs.String != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(xrefs.String), &m); err == nil {
			n.Xrefs = m
		}
	}
	return &n, nil
}

// GetNode retrieves a node by ID. Returns nil, nil if not found.
func (s *SQLiteGraphStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM meta_nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return n, nil
}

// ResolveID tries, in order: exact internal ID, "db:ext" xref shorthand,
// and case-insensitive name match.
func (s *SQLiteGraphStore) ResolveID(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", nil
	}

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM meta_nodes WHERE id = ?`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to resolve id: %w", err)
	}

	if db, ext, ok := strings.Cut(userID, ":"); ok {
		err = s.db.QueryRowContext(ctx,
			`SELECT node_id FROM xref_index WHERE db_name = ? AND ext_id = ?`,
			strings.ToLower(db), ext).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("failed to resolve xref: %w", err)
		}
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM meta_nodes WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1`,
		userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to resolve name: %w", err)
	}
	return "", nil
}

// AllNodes returns nodes of the given kind, or every node when kind is empty.
func (s *SQLiteGraphStore) AllNodes(ctx context.Context, kind models.NodeKind) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + nodeColumns + ` FROM meta_nodes`
	var args []interface{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteGraphStore) queryEdges(ctx context.Context, query string, args ...interface{}) ([]models.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []models.Edge
	for rows.Next() {
		var e models.Edge
		var rel string
		var evidence sql.NullString
		if err := rows.Scan(&e.Source, &rel, &e.Target, &evidence); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Relation = models.Relation(rel)
		decodeEvidence(&e, evidence)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// EdgesOf returns all edges touching nodeID in insertion order.
func (s *SQLiteGraphStore) EdgesOf(ctx context.Context, nodeID string) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEdges(ctx,
		`SELECT src, rel, dst, evidence FROM meta_edges WHERE src = ? OR dst = ? ORDER BY rowid`,
		nodeID, nodeID)
}

// GetEdges returns edges connected to a node, optionally filtered by relation.
func (s *SQLiteGraphStore) GetEdges(ctx context.Context, nodeID string, direction Direction, rel models.Relation) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	var args []interface{}

	switch direction {
	case DirectionOutbound:
		query = `SELECT src, rel, dst, evidence FROM meta_edges WHERE src = ?`
		args = append(args, nodeID)
	case DirectionInbound:
		query = `SELECT src, rel, dst, evidence FROM meta_edges WHERE dst = ?`
		args = append(args, nodeID)
	default:
		query = `SELECT src, rel, dst, evidence FROM meta_edges WHERE (src = ? OR dst = ?)`
		args = append(args, nodeID, nodeID)
	}

	if rel != "" {
		query += " AND rel = ?"
		args = append(args, string(rel))
	}
	query += " ORDER BY rowid"

	return s.queryEdges(ctx, query, args...)
}

// AllEdges returns every edge in insertion order.
func (s *SQLiteGraphStore) AllEdges(ctx context.Context) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEdges(ctx, `SELECT src, rel, dst, evidence FROM meta_edges ORDER BY rowid`)
}

// ReactionsForPathway returns reaction IDs contained in the pathway, in
// edge insertion order.
func (s *SQLiteGraphStore) ReactionsForPathway(ctx context.Context, pathwayID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryIDs(ctx, `
		SELECT e.dst FROM meta_edges e
		JOIN meta_nodes n ON n.id = e.dst
		WHERE e.src = ? AND e.rel = ? AND n.kind = ?
		ORDER BY e.rowid`,
		pathwayID, string(models.RelContains), string(models.KindReaction))
}

// ReactionsForEnzyme returns reaction IDs catalyzed by the enzyme.
func (s *SQLiteGraphStore) ReactionsForEnzyme(ctx context.Context, enzymeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryIDs(ctx,
		`SELECT dst FROM meta_edges WHERE src = ? AND rel = ? ORDER BY rowid`,
		enzymeID, string(models.RelCatalyzes))
}

func (s *SQLiteGraphStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReactionMetadata returns name and reversibility for a reaction.
// Returns nil, nil if the reaction does not exist.
func (s *SQLiteGraphStore) ReactionMetadata(ctx context.Context, reactionID string) (*models.ReactionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	var stoich sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT name, stoichiometry FROM meta_nodes WHERE id = ? AND kind = ?`,
		reactionID, string(models.KindReaction)).Scan(&name, &stoich)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction metadata %s: %w", reactionID, err)
	}
	return &models.ReactionMeta{
		ID:         reactionID,
		Name:       name,
		Reversible: models.ParseStoichiometry(stoich.String).Reversible(),
	}, nil
}

// Stats counts nodes, edges, and kinetic rows.
func (s *SQLiteGraphStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		NodesByKind:     make(map[models.NodeKind]int),
		EdgesByRelation: make(map[models.Relation]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM meta_nodes GROUP BY kind`)
	if err != nil {
		return st, fmt.Errorf("failed to count nodes: %w", err)
	}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			rows.Close()
			return st, fmt.Errorf("failed to scan node count: %w", err)
		}
		st.NodesByKind[models.NodeKind(kind)] = n
		st.Nodes += n
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT rel, COUNT(*) FROM meta_edges GROUP BY rel`)
	if err != nil {
		return st, fmt.Errorf("failed to count edges: %w", err)
	}
	for rows.Next() {
		var rel string
		var n int
		if err := rows.Scan(&rel, &n); err != nil {
			rows.Close()
			return st, fmt.Errorf("failed to scan edge count: %w", err)
		}
		st.EdgesByRelation[models.Relation(rel)] = n
		st.Edges += n
	}
	rows.Close()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kinetic_parameters`).Scan(&st.KineticParams); err != nil {
		return st, fmt.Errorf("failed to count kinetic parameters: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM regulatory_interactions`).Scan(&st.RegulatoryInteractions); err != nil {
		return st, fmt.Errorf("failed to count regulatory interactions: %w", err)
	}
	return st, nil
}

// Clear removes all graph and kinetic data.
func (s *SQLiteGraphStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"regulatory_interactions", "kinetic_parameters", "xref_index", "meta_edges", "meta_nodes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteGraphStore) Close() error {
	return s.db.Close()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
