// Package persistence provides a SQLite archive of finished simulation runs.
// Runs are written once and read back by reporting tools; the archive is
// never used to resume a simulation.
package persistence

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/lingnet/internal/engine"
	"github.com/talgya/lingnet/internal/world"
)

// DB wraps a SQLite connection for the run archive.
type DB struct {
	conn *sqlx.DB
}

// RunSummary is one archived run.
type RunSummary struct {
	ID          string `db:"id" json:"id"`
	Seed        int64  `db:"seed" json:"seed"`
	Size        int    `db:"size" json:"size"`
	Density     int    `db:"density" json:"density"`
	Model       string `db:"model" json:"model"`
	Init        string `db:"init" json:"init"`
	Rounds      int    `db:"rounds" json:"rounds"`
	Settlements int    `db:"settlements" json:"settlements"`
	CreatedAt   string `db:"created_at" json:"created_at"`
}

// SettlementRow is one archived settlement.
type SettlementRow struct {
	ID           int     `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	X            float64 `db:"x" json:"x"`
	Y            float64 `db:"y" json:"y"`
	Kind         string  `db:"kind" json:"type"`
	RateOfChange float64 `db:"rate_of_change" json:"rate_of_change"`
	FinalValue   float64 `db:"final_value" json:"final_value"`
}

// PhaseRow is one archived phase.
type PhaseRow struct {
	Index     int    `db:"idx" json:"index"`
	Rounds    int    `db:"rounds" json:"rounds"`
	Weighting string `db:"weighting" json:"weighting"`
	Learning  string `db:"learning" json:"learning"`
	Randomize bool   `db:"randomize" json:"randomize"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		size INTEGER NOT NULL,
		density INTEGER NOT NULL,
		model TEXT NOT NULL,
		init TEXT NOT NULL,
		rounds INTEGER NOT NULL,
		settlements INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS phases (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		rounds INTEGER NOT NULL,
		weighting TEXT NOT NULL,
		learning TEXT NOT NULL,
		randomize INTEGER NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE TABLE IF NOT EXISTS settlements (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		kind TEXT NOT NULL,
		rate_of_change REAL NOT NULL,
		final_value REAL NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS edges (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (run_id, a, b)
	);

	CREATE TABLE IF NOT EXISTS history (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		settlement_id INTEGER NOT NULL,
		round INTEGER NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (run_id, settlement_id, round)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_round ON history(run_id, round);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun archives a simulation's world, phases, and full history.
// Returns the new run ID.
func (db *DB) SaveRun(sim *engine.Simulation) (string, error) {
	w := sim.World
	runID := uuid.NewString()
	slog.Info("archiving run", "run", runID, "settlements", w.Len(), "rounds", sim.Round)

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, seed, size, density, model, init, rounds, settlements, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, w.Seed, w.Size, w.Density, w.Model.String(), sim.Init.String(),
		sim.Round, w.Len(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, p := range sim.Phases {
		randomize := 0
		if p.Randomize {
			randomize = 1
		}
		_, err := tx.Exec(`INSERT INTO phases (run_id, idx, rounds, weighting, learning, randomize)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, p.Rounds, p.Weighting.String(), p.Learning.String(), randomize,
		)
		if err != nil {
			return "", fmt.Errorf("insert phase %d: %w", i, err)
		}
	}

	for _, s := range w.Settlements {
		_, err := tx.Exec(`INSERT INTO settlements
			(run_id, id, name, x, y, kind, rate_of_change, final_value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, int(s.ID), s.Name, s.X(), s.Y(), s.Kind.String(), s.RateOfChange, s.Value(),
		)
		if err != nil {
			return "", fmt.Errorf("insert settlement %d: %w", s.ID, err)
		}
	}

	for _, e := range w.Edges() {
		_, err := tx.Exec("INSERT INTO edges (run_id, a, b, weight) VALUES (?, ?, ?, ?)",
			runID, int(e.A), int(e.B), e.Weight)
		if err != nil {
			return "", fmt.Errorf("insert edge %d-%d: %w", e.A, e.B, err)
		}
	}

	stmt, err := tx.Preparex("INSERT INTO history (run_id, settlement_id, round, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, s := range w.Settlements {
		for round, v := range s.History {
			if _, err := stmt.Exec(runID, int(s.ID), round, v); err != nil {
				return "", fmt.Errorf("insert history %d/%d: %w", s.ID, round, err)
			}
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES ('last_run', ?)", runID); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("run archived", "run", runID)
	return runID, nil
}

// ListRuns returns every archived run, newest first.
func (db *DB) ListRuns() ([]RunSummary, error) {
	var runs []RunSummary
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC, rowid DESC")
	return runs, err
}

// GetRun returns one run. A unique ID prefix is accepted.
func (db *DB) GetRun(id string) (RunSummary, error) {
	var runs []RunSummary
	err := db.conn.Select(&runs, "SELECT * FROM runs WHERE id LIKE ? ORDER BY rowid", stripWildcards(id)+"%")
	if err != nil {
		return RunSummary{}, err
	}
	switch len(runs) {
	case 0:
		return RunSummary{}, fmt.Errorf("run %q not found", id)
	case 1:
		return runs[0], nil
	default:
		return RunSummary{}, fmt.Errorf("run prefix %q is ambiguous (%d matches)", id, len(runs))
	}
}

// Phases returns the archived phases of a run in order.
func (db *DB) Phases(runID string) ([]PhaseRow, error) {
	var phases []PhaseRow
	err := db.conn.Select(&phases,
		"SELECT idx, rounds, weighting, learning, randomize FROM phases WHERE run_id = ? ORDER BY idx", runID)
	return phases, err
}

// Settlements returns the archived settlements of a run in ID order.
func (db *DB) Settlements(runID string) ([]SettlementRow, error) {
	var rows []SettlementRow
	err := db.conn.Select(&rows,
		`SELECT id, name, x, y, kind, rate_of_change, final_value
		 FROM settlements WHERE run_id = ? ORDER BY id`, runID)
	return rows, err
}

// Edges returns the archived edges of a run.
func (db *DB) Edges(runID string) ([]world.Edge, error) {
	rows, err := db.conn.Queryx("SELECT a, b, weight FROM edges WHERE run_id = ? ORDER BY a, b", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []world.Edge
	for rows.Next() {
		var a, b int
		var wt float64
		if err := rows.Scan(&a, &b, &wt); err != nil {
			return nil, err
		}
		edges = append(edges, world.Edge{A: world.ID(a), B: world.ID(b), Weight: wt})
	}
	return edges, rows.Err()
}

// History returns one settlement's recorded values in round order.
func (db *DB) History(runID string, id world.ID) ([]float64, error) {
	var values []float64
	err := db.conn.Select(&values,
		"SELECT value FROM history WHERE run_id = ? AND settlement_id = ? ORDER BY round",
		runID, int(id))
	return values, err
}

// MeanHistory returns the average recorded value per round.
func (db *DB) MeanHistory(runID string) ([]float64, error) {
	var means []float64
	err := db.conn.Select(&means,
		"SELECT AVG(value) FROM history WHERE run_id = ? GROUP BY round ORDER BY round", runID)
	return means, err
}

// DeleteRun removes a run and everything archived with it.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.conn.Exec("DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %q not found", runID)
	}
	return nil
}

// SaveMeta stores a key-value pair in archive metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

func stripWildcards(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
