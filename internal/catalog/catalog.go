// Package catalog keeps a SQLite index of built sweeps so they can be listed
// and located without walking output directories.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/sweep"
	"github.com/banshee-data/gram/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned for an unknown sweep ID.
var ErrNotFound = errors.New("catalog: sweep not found")

// timeLayout is RFC 3339 with a fixed nine-digit fraction, so stored
// timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Catalog is an open sweep catalog database.
type Catalog struct {
	*sql.DB
	clock timeutil.Clock
}

// Option configures Open.
type Option func(*Catalog)

// WithClock sets the clock that stamps recorded_at.
func WithClock(c timeutil.Clock) Option {
	return func(cat *Catalog) { cat.clock = c }
}

// Entry is one catalogued sweep.
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Path       string    `json:"path"`
	Samples    int       `json:"samples"`
	Sequence   string    `json:"sequence"`
	Seed       uint64    `json:"seed"`
	Scheduler  string    `json:"scheduler"`
	Base       []float64 `json:"base"`
	Delta      []float64 `json:"delta"`
	CreatedAt  time.Time `json:"created_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Sample is one catalogued simulation of a sweep.
type Sample struct {
	Index      int       `json:"index"`
	Path       string    `json:"path"`
	Parameters []float64 `json:"parameters"`
}

// Open opens (creating if needed) the catalog at path and applies any
// pending migrations.
func Open(path string, opts ...Option) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure catalog (%s): %w", pragma, err)
		}
	}

	c := &Catalog{DB: db, clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// MigrateUp runs all pending migrations up to the latest version.
func (c *Catalog) MigrateUp() error {
	m, err := c.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state.
func (c *Catalog) MigrateVersion() (uint, bool, error) {
	m, err := c.newMigrate()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (c *Catalog) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(c.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Debugf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Record inserts or replaces a sweep and its samples.
func (c *Catalog) Record(ctx context.Context, st sweep.State) error {
	if st.ID == "" {
		return errors.New("catalog: sweep has no id")
	}
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	baseJSON, err := json.Marshal(st.Base)
	if err != nil {
		return fmt.Errorf("encode base: %w", err)
	}
	deltaJSON, err := json.Marshal(st.Delta)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}

	tx, err := c.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweeps (id, name, kind, path, samples, sequence, seed, scheduler,
			created_at, recorded_at, state_json, base_json, delta_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, kind = excluded.kind, path = excluded.path,
			samples = excluded.samples, sequence = excluded.sequence, seed = excluded.seed,
			scheduler = excluded.scheduler, created_at = excluded.created_at,
			recorded_at = excluded.recorded_at, state_json = excluded.state_json,
			base_json = excluded.base_json, delta_json = excluded.delta_json`,
		st.ID, st.Name, string(st.Kind), st.Path, len(st.SimulationPaths),
		st.Sampler.Sequence, int64(st.Sampler.Seed), st.Scheduler,
		st.CreatedAt.UTC().Format(timeLayout), c.clock.Now().UTC().Format(timeLayout),
		string(stateJSON), string(baseJSON), string(deltaJSON),
	)
	if err != nil {
		return fmt.Errorf("record sweep %s: %w", st.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sweep_samples WHERE sweep_id = ?`, st.ID); err != nil {
		return fmt.Errorf("clear samples of %s: %w", st.ID, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sweep_samples (sweep_id, sample_index, path, parameters_json)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < len(st.SimulationPaths); i++ {
		var params []float64
		if i < len(st.Parameters) {
			params = st.Parameters[i]
		}
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode parameters of sample %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, st.ID, i, st.SimulationPaths[i], string(paramsJSON)); err != nil {
			return fmt.Errorf("record sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	monitoring.Debugf("catalog: recorded sweep %s (%d samples)", st.ID, len(st.SimulationPaths))
	return nil
}

const entryColumns = `id, name, kind, path, samples, sequence, seed, scheduler,
	created_at, recorded_at, base_json, delta_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e                  Entry
		seed               int64
		created, recorded  string
		baseJSON, deltaJSN string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Kind, &e.Path, &e.Samples, &e.Sequence, &seed,
		&e.Scheduler, &created, &recorded, &baseJSON, &deltaJSN); err != nil {
		return Entry{}, err
	}
	e.Seed = uint64(seed)
	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	if err := json.Unmarshal([]byte(baseJSON), &e.Base); err != nil {
		return Entry{}, fmt.Errorf("parse base: %w", err)
	}
	if err := json.Unmarshal([]byte(deltaJSN), &e.Delta); err != nil {
		return Entry{}, fmt.Errorf("parse delta: %w", err)
	}
	return e, nil
}

// List returns every catalogued sweep, newest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.QueryContext(ctx, `SELECT `+entryColumns+` FROM sweeps ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the catalogued sweep with the given ID.
func (c *Catalog) Get(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(c.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM sweeps WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// State returns the full sweep state recorded for id.
func (c *Catalog) State(ctx context.Context, id string) (sweep.State, error) {
	var raw string
	err := c.QueryRowContext(ctx, `SELECT state_json FROM sweeps WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sweep.State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return sweep.State{}, err
	}
	var st sweep.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return sweep.State{}, fmt.Errorf("parse state of %s: %w", id, err)
	}
	return st, nil
}

// Samples returns the samples of a sweep in index order.
func (c *Catalog) Samples(ctx context.Context, id string) ([]Sample, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := c.QueryContext(ctx, `
		SELECT sample_index, path, parameters_json FROM sweep_samples
		WHERE sweep_id = ? ORDER BY sample_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			s   Sample
			raw string
		)
		if err := rows.Scan(&s.Index, &s.Path, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &s.Parameters); err != nil {
			return nil, fmt.Errorf("parse parameters of sample %d: %w", s.Index, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a sweep and its samples from the catalog. The sweep
// directory on disk is left untouched.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.ExecContext(ctx, `DELETE FROM sweeps WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
