// Package persist implements the logical serialization layer:
// PointMaps and ShapeMaps, together with their attribute tables, stored in
// a SQLite database. The schema is this module's own stable format — legacy
// .graph compatibility is explicitly a separate collaborator.
//
// The store persists primary state only: cell flags, grid connections,
// merge links, shape geometry, layers, and attribute columns. Derived state
// (visibility Nodes, shape-graph connectors) is rebuilt by re-running
// BuildVisibilityGraph / MakeConnections after load. The pure-Go
// modernc.org/sqlite driver keeps the core cgo-free.
package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	_ "modernc.org/sqlite"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
	"github.com/salanous/spacesyntax/shapemap"
)

// Sentinel errors for store operations.
var (
	// ErrMapNotFound indicates no map with the requested name is stored.
	ErrMapNotFound = errors.New("persist: map not found")

	// ErrBadShape indicates a stored shape row could not be reconstructed.
	ErrBadShape = errors.New("persist: malformed stored shape")
)

const schema = `
CREATE TABLE IF NOT EXISTS point_maps (
	name TEXT PRIMARY KEY,
	blx REAL, bly REAL, trx REAL, try REAL,
	spacing REAL
);
CREATE TABLE IF NOT EXISTS point_cells (
	map TEXT, x INTEGER, y INTEGER,
	flags INTEGER, conns INTEGER, px INTEGER, py INTEGER,
	PRIMARY KEY (map, x, y)
);
CREATE TABLE IF NOT EXISTS point_attrs (
	map TEXT, x INTEGER, y INTEGER, col TEXT, value REAL,
	PRIMARY KEY (map, x, y, col)
);
CREATE TABLE IF NOT EXISTS shape_maps (
	name TEXT PRIMARY KEY,
	blx REAL, bly REAL, trx REAL, try REAL,
	bucket REAL
);
CREATE TABLE IF NOT EXISTS shapes (
	map TEXT, ref INTEGER,
	kind INTEGER, layer INTEGER, points TEXT,
	PRIMARY KEY (map, ref)
);
CREATE TABLE IF NOT EXISTS shape_attrs (
	map TEXT, ref INTEGER, col TEXT, value REAL,
	PRIMARY KEY (map, ref, col)
);
CREATE TABLE IF NOT EXISTS map_columns (
	map TEXT, kind TEXT, idx INTEGER, col TEXT,
	PRIMARY KEY (map, kind, idx)
);
CREATE TABLE IF NOT EXISTS layer_vis (
	map TEXT, layer INTEGER, visible INTEGER,
	PRIMARY KEY (map, layer)
);
`

// Store is a SQLite-backed map store. One Store may hold any number of
// named point maps and shape maps.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// StoreOption configures Open.
type StoreOption func(*Store)

// WithLogger sets the store's logger; the default is slog.Default.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists. Use ":memory:" for an in-memory store.
func Open(path string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: create schema: %w", err)
	}
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SavePointMap stores pm under name, replacing any previous map of that
// name. Only non-empty cells and non-NaN attribute values are written.
func (s *Store) SavePointMap(name string, pm *pointmap.PointMap) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}
	defer tx.Rollback()

	for _, del := range []string{
		"DELETE FROM point_maps WHERE name = ?",
		"DELETE FROM point_cells WHERE map = ?",
		"DELETE FROM point_attrs WHERE map = ?",
		"DELETE FROM map_columns WHERE map = ? AND kind = 'point'",
	} {
		if _, err := tx.Exec(del, name); err != nil {
			return fmt.Errorf("persist: clear old map: %w", err)
		}
	}

	r := pm.Region
	if _, err := tx.Exec(
		"INSERT INTO point_maps (name, blx, bly, trx, try, spacing) VALUES (?, ?, ?, ?, ?, ?)",
		name, r.BottomLeft.X, r.BottomLeft.Y, r.TopRight.X, r.TopRight.Y, pm.Spacing,
	); err != nil {
		return fmt.Errorf("persist: insert point map: %w", err)
	}

	cellStmt, err := tx.Prepare("INSERT INTO point_cells (map, x, y, flags, conns, px, py) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("persist: prepare: %w", err)
	}
	defer cellStmt.Close()
	for y := 0; y < pm.Rows(); y++ {
		for x := 0; x < pm.Cols(); x++ {
			ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
			p := pm.At(ref)
			if p.Flags == pointmap.Empty {
				continue
			}
			if _, err := cellStmt.Exec(name, x, y, int(p.Flags), int(p.GridConnections), int(p.MergePartner.X), int(p.MergePartner.Y)); err != nil {
				return fmt.Errorf("persist: insert cell: %w", err)
			}
		}
	}

	if err := saveColumns(tx, name, "point", pm.Attributes.Columns()); err != nil {
		return err
	}
	attrStmt, err := tx.Prepare("INSERT INTO point_attrs (map, x, y, col, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("persist: prepare: %w", err)
	}
	defer attrStmt.Close()
	cols := pm.Attributes.Columns()
	for _, key := range pm.Attributes.Keys() {
		for _, col := range cols {
			v, err := pm.Attributes.Get(key, col)
			if err != nil || math.IsNaN(v) {
				continue
			}
			if _, err := attrStmt.Exec(name, int(key.X), int(key.Y), col, v); err != nil {
				return fmt.Errorf("persist: insert attr: %w", err)
			}
		}
	}
	return tx.Commit()
}

// LoadPointMap reconstructs a PointMap stored under name. Cell flags,
// grid connections, merge links and attributes are restored; visibility
// Nodes are not (rebuild with BuildVisibilityGraph).
func (s *Store) LoadPointMap(name string) (*pointmap.PointMap, error) {
	var blx, bly, trx, try, spacing float64
	err := s.db.QueryRow("SELECT blx, bly, trx, try, spacing FROM point_maps WHERE name = ?", name).
		Scan(&blx, &bly, &trx, &try, &spacing)
	if err == sql.ErrNoRows {
		return nil, ErrMapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persist: load point map: %w", err)
	}
	pm, err := pointmap.New(geometry.NewRegion(geometry.Point{X: blx, Y: bly}, geometry.Point{X: trx, Y: try}), spacing)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT x, y, flags, conns, px, py FROM point_cells WHERE map = ?", name)
	if err != nil {
		return nil, fmt.Errorf("persist: load cells: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var x, y, flags, conns, px, py int
		if err := rows.Scan(&x, &y, &flags, &conns, &px, &py); err != nil {
			return nil, fmt.Errorf("persist: scan cell: %w", err)
		}
		ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
		if !pm.InBounds(ref) {
			s.logger.Warn("persist: stored cell outside grid, skipped", "map", name, "x", x, "y", y)
			continue
		}
		p := pm.At(ref)
		p.Flags = pointmap.Flags(flags)
		p.GridConnections = geometry.Direction(conns)
		p.MergePartner = geometry.PixelRef{X: int16(px), Y: int16(py)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persist: load cells: %w", err)
	}

	for _, col := range loadColumns(s.db, name, "point") {
		pm.Attributes.InsertOrResetColumn(col)
	}
	arows, err := s.db.Query("SELECT x, y, col, value FROM point_attrs WHERE map = ?", name)
	if err != nil {
		return nil, fmt.Errorf("persist: load attrs: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var x, y int
		var col string
		var v float64
		if err := arows.Scan(&x, &y, &col, &v); err != nil {
			return nil, fmt.Errorf("persist: scan attr: %w", err)
		}
		pm.Attributes.Set(geometry.PixelRef{X: int16(x), Y: int16(y)}, col, v)
	}
	return pm, arows.Err()
}

// SaveShapeMap stores m under name, replacing any previous map of that
// name. Shape geometry is stored as JSON point lists; refs are preserved
// in order (a map that has seen deletes loads with refs compacted — the
// stored-ref to loaded-ref mapping stays order-preserving).
func (s *Store) SaveShapeMap(name string, m *shapemap.ShapeMap) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}
	defer tx.Rollback()

	for _, del := range []string{
		"DELETE FROM shape_maps WHERE name = ?",
		"DELETE FROM shapes WHERE map = ?",
		"DELETE FROM shape_attrs WHERE map = ?",
		"DELETE FROM map_columns WHERE map = ? AND kind = 'shape'",
		"DELETE FROM layer_vis WHERE map = ?",
	} {
		if _, err := tx.Exec(del, name); err != nil {
			return fmt.Errorf("persist: clear old map: %w", err)
		}
	}

	r := m.Region
	if _, err := tx.Exec(
		"INSERT INTO shape_maps (name, blx, bly, trx, try, bucket) VALUES (?, ?, ?, ?, ?, ?)",
		name, r.BottomLeft.X, r.BottomLeft.Y, r.TopRight.X, r.TopRight.Y, m.BucketSpacing(),
	); err != nil {
		return fmt.Errorf("persist: insert shape map: %w", err)
	}

	shapeStmt, err := tx.Prepare("INSERT INTO shapes (map, ref, kind, layer, points) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("persist: prepare: %w", err)
	}
	defer shapeStmt.Close()
	seenLayers := make(map[int]bool)
	for _, ref := range m.Refs() {
		shape, err := m.Get(ref)
		if err != nil {
			return err
		}
		pts := make([][2]float64, len(shape.Points))
		for i, p := range shape.Points {
			pts[i] = [2]float64{p.X, p.Y}
		}
		enc, err := json.Marshal(pts)
		if err != nil {
			return fmt.Errorf("persist: encode shape points: %w", err)
		}
		layer := m.Layer(ref)
		seenLayers[layer] = true
		if _, err := shapeStmt.Exec(name, int(ref), int(shape.Kind), layer, string(enc)); err != nil {
			return fmt.Errorf("persist: insert shape: %w", err)
		}
	}
	for layer := range seenLayers {
		if _, err := tx.Exec("INSERT INTO layer_vis (map, layer, visible) VALUES (?, ?, ?)", name, layer, boolToInt(m.LayerVisible(layer))); err != nil {
			return fmt.Errorf("persist: insert layer: %w", err)
		}
	}

	if err := saveColumns(tx, name, "shape", m.Attributes.Columns()); err != nil {
		return err
	}
	attrStmt, err := tx.Prepare("INSERT INTO shape_attrs (map, ref, col, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("persist: prepare: %w", err)
	}
	defer attrStmt.Close()
	cols := m.Attributes.Columns()
	for _, key := range m.Attributes.Keys() {
		for _, col := range cols {
			v, err := m.Attributes.Get(key, col)
			if err != nil || math.IsNaN(v) {
				continue
			}
			if _, err := attrStmt.Exec(name, int(key), col, v); err != nil {
				return fmt.Errorf("persist: insert attr: %w", err)
			}
		}
	}
	return tx.Commit()
}

// LoadShapeMap reconstructs a ShapeMap stored under name. Shapes are
// re-added in stored-ref order; attribute rows follow the stored-ref to
// loaded-ref mapping.
func (s *Store) LoadShapeMap(name string) (*shapemap.ShapeMap, error) {
	var blx, bly, trx, try, bucket float64
	err := s.db.QueryRow("SELECT blx, bly, trx, try, bucket FROM shape_maps WHERE name = ?", name).
		Scan(&blx, &bly, &trx, &try, &bucket)
	if err == sql.ErrNoRows {
		return nil, ErrMapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persist: load shape map: %w", err)
	}
	m, err := shapemap.New(geometry.NewRegion(geometry.Point{X: blx, Y: bly}, geometry.Point{X: trx, Y: try}), bucket)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT ref, kind, layer, points FROM shapes WHERE map = ? ORDER BY ref", name)
	if err != nil {
		return nil, fmt.Errorf("persist: load shapes: %w", err)
	}
	defer rows.Close()
	refMap := make(map[int]shapemap.Ref)
	for rows.Next() {
		var stored, kind, layer int
		var enc string
		if err := rows.Scan(&stored, &kind, &layer, &enc); err != nil {
			return nil, fmt.Errorf("persist: scan shape: %w", err)
		}
		var pts [][2]float64
		if err := json.Unmarshal([]byte(enc), &pts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
		}
		points := make([]geometry.Point, len(pts))
		for i, p := range pts {
			points[i] = geometry.Point{X: p[0], Y: p[1]}
		}
		shape, err := rebuildShape(shapemap.Kind(kind), points)
		if err != nil {
			return nil, err
		}
		refMap[stored] = m.Add(shape, layer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persist: load shapes: %w", err)
	}

	lrows, err := s.db.Query("SELECT layer, visible FROM layer_vis WHERE map = ?", name)
	if err != nil {
		return nil, fmt.Errorf("persist: load layers: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var layer, visible int
		if err := lrows.Scan(&layer, &visible); err != nil {
			return nil, fmt.Errorf("persist: scan layer: %w", err)
		}
		m.SetLayerVisible(layer, visible != 0)
	}

	for _, col := range loadColumns(s.db, name, "shape") {
		m.Attributes.InsertOrResetColumn(col)
	}
	arows, err := s.db.Query("SELECT ref, col, value FROM shape_attrs WHERE map = ?", name)
	if err != nil {
		return nil, fmt.Errorf("persist: load attrs: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var stored int
		var col string
		var v float64
		if err := arows.Scan(&stored, &col, &v); err != nil {
			return nil, fmt.Errorf("persist: scan attr: %w", err)
		}
		ref, ok := refMap[stored]
		if !ok {
			s.logger.Warn("persist: attribute row for unknown shape ref, skipped", "map", name, "ref", stored)
			continue
		}
		m.Attributes.Set(ref, col, v)
	}
	return m, arows.Err()
}

func rebuildShape(kind shapemap.Kind, points []geometry.Point) (shapemap.SalaShape, error) {
	switch kind {
	case shapemap.KindPoint:
		if len(points) != 1 {
			return shapemap.SalaShape{}, ErrBadShape
		}
		return shapemap.NewPointShape(points[0]), nil
	case shapemap.KindLine:
		if len(points) != 2 {
			return shapemap.SalaShape{}, ErrBadShape
		}
		return shapemap.NewLineShape(geometry.NewLine(points[0], points[1])), nil
	case shapemap.KindPolyline:
		return shapemap.NewPolyShape(points, false)
	case shapemap.KindPolygon:
		return shapemap.NewPolyShape(points, true)
	default:
		return shapemap.SalaShape{}, ErrBadShape
	}
}

func saveColumns(tx *sql.Tx, name, kind string, cols []string) error {
	for i, col := range cols {
		if _, err := tx.Exec("INSERT INTO map_columns (map, kind, idx, col) VALUES (?, ?, ?, ?)", name, kind, i, col); err != nil {
			return fmt.Errorf("persist: insert column: %w", err)
		}
	}
	return nil
}

func loadColumns(db *sql.DB, name, kind string) []string {
	rows, err := db.Query("SELECT col FROM map_columns WHERE map = ? AND kind = ? ORDER BY idx", name, kind)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return out
		}
		out = append(out, col)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
