// Package record persists run traces to a SQLite database for offline
// comparison of runs.
package record

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"slices"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/inference-sim/collision-risk/risk/trace"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUnknownRun is returned when a run id has no stored run.
var ErrUnknownRun = errors.New("unknown run")

// Recorder writes run traces to a SQLite database.
type Recorder struct {
	db *sql.DB
}

// NewRecorder opens (or creates) the database at path and applies all
// pending schema migrations.
func NewRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening recorder database: %w", err)
	}
	// A single connection serializes writers on the file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	logrus.Infof("Recorder database ready at %s", path)
	return &Recorder{db: db}, nil
}

// migrateUp applies the embedded migrations. The migrate instance is not
// closed because closing it would close db.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger on top of logrus.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logrus.Debugf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// RecordRun stores every tick of rt in one transaction and returns the new
// run id.
func (r *Recorder) RecordRun(ctx context.Context, rt *trace.RunTrace) (string, error) {
	if rt == nil {
		return "", errors.New("nil run trace")
	}
	runID := uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, seed, source, trace_level, timestep) VALUES (?, ?, ?, ?, ?)`,
		runID, rt.Config.Seed, rt.Config.Source, string(rt.Config.Level), rt.Config.Timestep,
	); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	tickStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ticks (run_id, tick, skipped, ego_class) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer tickStmt.Close()
	infStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO inference_outputs (run_id, tick, vehicle_id, model, role, node, state, prob, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer infStmt.Close()
	riskStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO risk_curves (run_id, tick, vehicle_id, role, behavior, step, risk)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer riskStmt.Close()

	for _, tick := range rt.Ticks {
		if _, err := tickStmt.ExecContext(ctx, runID, tick.Tick, tick.Skipped, tick.EgoClass); err != nil {
			return "", fmt.Errorf("inserting tick %d: %w", tick.Tick, err)
		}
		for _, inf := range tick.Inference {
			if inf.Error != "" {
				if _, err := infStmt.ExecContext(ctx, runID, tick.Tick, inf.VehicleID, inf.Model, inf.Role,
					nil, nil, nil, inf.Error); err != nil {
					return "", fmt.Errorf("inserting inference failure of vehicle %d: %w", inf.VehicleID, err)
				}
				continue
			}
			states := lo.Keys(inf.Posterior)
			slices.Sort(states)
			for _, state := range states {
				if _, err := infStmt.ExecContext(ctx, runID, tick.Tick, inf.VehicleID, inf.Model, inf.Role,
					inf.Node, state, inf.Posterior[state], nil); err != nil {
					return "", fmt.Errorf("inserting posterior of vehicle %d: %w", inf.VehicleID, err)
				}
			}
		}
		for _, vr := range tick.Risks {
			for step, p := range vr.Total {
				if _, err := riskStmt.ExecContext(ctx, runID, tick.Tick, vr.VehicleID, vr.Role, vr.Behavior,
					step, p); err != nil {
					return "", fmt.Errorf("inserting risk of vehicle %d: %w", vr.VehicleID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	logrus.Infof("Recorded run %s: %d ticks", runID, len(rt.Ticks))
	return runID, nil
}

// PeakRisks returns the highest stored risk of every vehicle in a run.
func (r *Recorder) PeakRisks(ctx context.Context, runID string) (map[int]float64, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT vehicle_id, MAX(risk) FROM risk_curves WHERE run_id = ? GROUP BY vehicle_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	peaks := make(map[int]float64)
	for rows.Next() {
		var id int
		var peak float64
		if err := rows.Scan(&id, &peak); err != nil {
			return nil, err
		}
		peaks[id] = peak
	}
	return peaks, rows.Err()
}

// TickCount returns the number of stored ticks of a run and how many of
// them were skipped.
func (r *Recorder) TickCount(ctx context.Context, runID string) (total, skipped int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(skipped), 0) FROM ticks WHERE run_id = ?`, runID).Scan(&total, &skipped)
	return total, skipped, err
}
