// Package index keeps pipeline results in a SQLite database so repeated runs
// can be compared and inspected without recomputing them.
package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/meyzoo/OptimizingCompiler/internal/pipeline"
)

var ErrUnitNotFound = errors.New("unit not in index")

// Index manages persistent storage for unit results
type Index struct {
	db     *sql.DB
	logger *zap.Logger
	dbPath string
}

// UnitRecord is one stored unit
type UnitRecord struct {
	ID            int64
	Name          string
	Source        string
	BlockCount    int
	NodeCount     int // nodes reachable from the root
	VariableCount int
	PhiGroups     int
	LoopCount     int
	Reducible     bool
	RoundTripOK   bool
	SSAListing    []string
	Edges         []pipeline.EdgeReport
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Open opens or creates the index at dbPath
func Open(dbPath string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create directory if it doesn't exist
	if err := ensureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_fk=true&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	index := &Index{
		db:     db,
		logger: logger,
		dbPath: dbPath,
	}

	if err := index.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("Opened index", zap.String("path", dbPath))
	return index, nil
}

// initSchema creates database tables if they don't exist
func (ix *Index) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		source TEXT NOT NULL,
		block_count INTEGER NOT NULL,
		node_count INTEGER NOT NULL,
		variable_count INTEGER NOT NULL,
		phi_groups INTEGER NOT NULL,
		loop_count INTEGER NOT NULL,
		reducible BOOLEAN NOT NULL,
		round_trip_ok BOOLEAN NOT NULL,
		ssa_listing TEXT NOT NULL,
		edge_report TEXT NOT NULL, -- JSON
		error TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_units_round_trip ON units(round_trip_ok);
	`

	_, err := ix.db.Exec(schema)
	return err
}

// StoreUnit stores or updates the record for a unit, keyed by name
func (ix *Index) StoreUnit(unit *pipeline.UnitResult) (*UnitRecord, error) {
	record := recordFrom(unit)
	edges, err := json.Marshal(record.Edges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edges: %w", err)
	}
	listing := strings.Join(record.SSAListing, "\n")
	now := time.Now()

	// Check if unit already exists
	var existingID, createdUnix int64
	err = ix.db.QueryRow(
		"SELECT id, created_at FROM units WHERE name = ?", record.Name,
	).Scan(&existingID, &createdUnix)

	if err == sql.ErrNoRows {
		result, err := ix.db.Exec(`
			INSERT INTO units (name, source, block_count, node_count, variable_count, phi_groups,
				loop_count, reducible, round_trip_ok, ssa_listing, edge_report, error, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Name, record.Source, record.BlockCount, record.NodeCount, record.VariableCount,
			record.PhiGroups, record.LoopCount, record.Reducible, record.RoundTripOK,
			listing, string(edges), record.Error, now.Unix(), now.Unix())
		if err != nil {
			return nil, fmt.Errorf("failed to insert unit: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get insert ID: %w", err)
		}
		record.ID = id
		record.CreatedAt = time.Unix(now.Unix(), 0)
		record.UpdatedAt = record.CreatedAt
		return record, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to check existing unit: %w", err)
	}

	// Update existing unit
	_, err = ix.db.Exec(`
		UPDATE units SET source = ?, block_count = ?, node_count = ?, variable_count = ?,
			phi_groups = ?, loop_count = ?, reducible = ?, round_trip_ok = ?,
			ssa_listing = ?, edge_report = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		record.Source, record.BlockCount, record.NodeCount, record.VariableCount,
		record.PhiGroups, record.LoopCount, record.Reducible, record.RoundTripOK,
		listing, string(edges), record.Error, now.Unix(), existingID)
	if err != nil {
		return nil, fmt.Errorf("failed to update unit: %w", err)
	}

	record.ID = existingID
	record.CreatedAt = time.Unix(createdUnix, 0)
	record.UpdatedAt = time.Unix(now.Unix(), 0)
	return record, nil
}

// StoreResult stores every unit of a run in one pass
func (ix *Index) StoreResult(result *pipeline.Result) error {
	for _, unit := range result.Units {
		if _, err := ix.StoreUnit(unit); err != nil {
			return fmt.Errorf("unit %s: %w", unit.Name, err)
		}
	}
	ix.logger.Info("Indexed units", zap.Int("units", len(result.Units)), zap.String("path", ix.dbPath))
	return nil
}

const selectUnit = `
	SELECT id, name, source, block_count, node_count, variable_count, phi_groups,
		loop_count, reducible, round_trip_ok, ssa_listing, edge_report, error, created_at, updated_at
	FROM units`

type scanner interface {
	Scan(dest ...any) error
}

// LoadUnit retrieves a unit record by name
func (ix *Index) LoadUnit(name string) (*UnitRecord, error) {
	record, err := scanRecord(ix.db.QueryRow(selectUnit+" WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", name, ErrUnitNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load unit %s: %w", name, err)
	}
	return record, nil
}

// ListUnits retrieves all unit records ordered by name
func (ix *Index) ListUnits() ([]*UnitRecord, error) {
	rows, err := ix.db.Query(selectUnit + " ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*UnitRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func scanRecord(row scanner) (*UnitRecord, error) {
	var record UnitRecord
	var listing, edges string
	var createdUnix, updatedUnix int64

	err := row.Scan(
		&record.ID, &record.Name, &record.Source, &record.BlockCount, &record.NodeCount,
		&record.VariableCount, &record.PhiGroups, &record.LoopCount, &record.Reducible,
		&record.RoundTripOK, &listing, &edges, &record.Error, &createdUnix, &updatedUnix)
	if err != nil {
		return nil, err
	}

	if listing != "" {
		record.SSAListing = strings.Split(listing, "\n")
	}
	if err := json.Unmarshal([]byte(edges), &record.Edges); err != nil {
		return nil, fmt.Errorf("failed to decode edges: %w", err)
	}
	record.CreatedAt = time.Unix(createdUnix, 0)
	record.UpdatedAt = time.Unix(updatedUnix, 0)

	return &record, nil
}

func recordFrom(unit *pipeline.UnitResult) *UnitRecord {
	record := &UnitRecord{
		Name:        unit.Name,
		Source:      unit.Source,
		RoundTripOK: unit.RoundTripOK,
		SSAListing:  unit.SSA,
		Edges:       unit.Edges,
		Error:       unit.Error,
	}
	if record.Edges == nil {
		record.Edges = []pipeline.EdgeReport{}
	}
	if m := unit.Metrics; m != nil {
		record.BlockCount = m.NodeCount
		record.NodeCount = m.ReachableNodes
		record.LoopCount = m.LoopCount
		record.Reducible = m.Reducible
	}
	if b := unit.Build; b != nil {
		record.VariableCount = len(b.Variables)
		record.PhiGroups = b.PhiGroups
	}
	return record
}

// Path returns the database file path
func (ix *Index) Path() string {
	return ix.dbPath
}

// Close closes the database connection
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Vacuum optimizes the database
func (ix *Index) Vacuum() error {
	_, err := ix.db.Exec("VACUUM")
	return err
}

// Size returns the size of the database in bytes
func (ix *Index) Size() (int64, error) {
	var size int64
	err := ix.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	return size, err
}

// Helper function to ensure directory exists
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
