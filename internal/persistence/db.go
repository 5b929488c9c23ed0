// Package persistence provides SQLite-based world state storage. Heatmaps
// are never stored: they are derived state, rebuilt from the statics on
// load.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/townsim/internal/engine"
	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/mobs"
	"github.com/talgya/townsim/internal/world"
)

// eventBacklog mirrors the simulation's in-memory event ring size: saving
// more than the ring holds is impossible, fewer would lose log on restart.
const eventBacklog = 512

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
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
	CREATE TABLE IF NOT EXISTS statics (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS mobs (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		name TEXT NOT NULL,
		age INTEGER NOT NULL,
		onset_age INTEGER NOT NULL,
		home_x INTEGER NOT NULL,
		home_y INTEGER NOT NULL,
		is_avaricious INTEGER NOT NULL,
		is_brave INTEGER NOT NULL,
		is_envious INTEGER NOT NULL,
		is_gluttonous INTEGER NOT NULL,
		is_slothful INTEGER NOT NULL,
		desires_json TEXT NOT NULL,
		task_json TEXT,
		history_json TEXT NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunID returns the run's identity, minting one on first use.
func (db *DB) RunID() (string, error) {
	id, err := db.GetMeta("run_id")
	if err == nil {
		return id, nil
	}
	id = uuid.NewString()
	if err := db.SaveMeta("run_id", id); err != nil {
		return "", err
	}
	return id, nil
}

// SaveWorld writes the static world grid (full replace).
func (db *DB) SaveWorld(w *world.World) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM statics"); err != nil {
		return err
	}

	stmt, err := tx.Preparex("INSERT INTO statics (x, y, kind) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			s, ok := w.StaticAt(grid.Point{X: x, Y: y})
			if !ok {
				continue
			}
			if _, err := stmt.Exec(x, y, uint8(s)); err != nil {
				return fmt.Errorf("insert static (%d,%d): %w", x, y, err)
			}
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES ('width', ?), ('height', ?)",
		strconv.Itoa(w.Width), strconv.Itoa(w.Height)); err != nil {
		return err
	}

	return tx.Commit()
}

// SaveMobs writes all mobs to the database (full replace).
func (db *DB) SaveMobs(views []engine.MobView) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM mobs"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO mobs
		(x, y, name, age, onset_age, home_x, home_y,
		 is_avaricious, is_brave, is_envious, is_gluttonous, is_slothful,
		 desires_json, task_json, history_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range views {
		m := v.Mob
		desiresJSON, _ := json.Marshal(m.Desires)
		historyJSON, _ := json.Marshal(m.History)
		var taskJSON *string
		if m.PriorityTask != nil {
			raw, _ := json.Marshal(m.PriorityTask)
			s := string(raw)
			taskJSON = &s
		}

		_, err := stmt.Exec(
			v.Pos.X, v.Pos.Y, m.Name, m.Age, m.OnsetAge,
			m.Home.X, m.Home.Y,
			boolInt(m.IsAvaricious), boolInt(m.IsBrave), boolInt(m.IsEnvious),
			boolInt(m.IsGluttonous), boolInt(m.IsSlothful),
			string(desiresJSON), taskJSON, string(historyJSON),
		)
		if err != nil {
			return fmt.Errorf("insert mob %q: %w", m.Name, err)
		}
	}

	return tx.Commit()
}

// SaveEvents replaces the stored event log, oldest first, matching the
// simulation's in-memory ring.
func (db *DB) SaveEvents(events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
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

// SaveState performs a full save of the simulation.
func (db *DB) SaveState(sim *engine.Simulation, seed int64) error {
	views := sim.SnapshotMobs()
	slog.Info("saving world state", "mobs", len(views), "tick", sim.CurrentTick())

	if err := db.SaveWorld(sim.World); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if err := db.SaveMobs(views); err != nil {
		return fmt.Errorf("save mobs: %w", err)
	}
	if err := db.SaveEvents(sim.RecentEvents(eventBacklog)); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_tick", strconv.FormatUint(sim.CurrentTick(), 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

// LoadWorld reconstructs the world and its heatmaps from the statics table.
// The heatmap fields come back by full rebuild, not from storage.
func (db *DB) LoadWorld() (*world.World, *heatmap.Maps, error) {
	width, err := db.metaInt("width")
	if err != nil {
		return nil, nil, fmt.Errorf("load width: %w", err)
	}
	height, err := db.metaInt("height")
	if err != nil {
		return nil, nil, fmt.Errorf("load height: %w", err)
	}

	w := world.New(width, height)
	maps := heatmap.NewMaps(width, height)

	rows, err := db.conn.Queryx("SELECT x, y, kind FROM statics")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var x, y int
		var kind uint8
		if err := rows.Scan(&x, &y, &kind); err != nil {
			return nil, nil, err
		}
		w.PlaceStatic(grid.Point{X: x, Y: y}, world.Static(kind), maps)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	maps.RebuildAll(w.Blocked)
	return w, maps, nil
}

// LoadMobs reconstructs the mob registry.
func (db *DB) LoadMobs() (mobs.Registry, error) {
	rows, err := db.conn.Queryx(`SELECT x, y, name, age, onset_age, home_x, home_y,
		is_avaricious, is_brave, is_envious, is_gluttonous, is_slothful,
		desires_json, task_json, history_json FROM mobs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reg := mobs.Registry{}
	for rows.Next() {
		var (
			x, y, homeX, homeY                               int
			avaricious, brave, envious, gluttonous, slothful int
			desiresJSON, historyJSON                         string
			taskJSON                                         *string
		)
		m := &mobs.Mobile{}
		if err := rows.Scan(&x, &y, &m.Name, &m.Age, &m.OnsetAge, &homeX, &homeY,
			&avaricious, &brave, &envious, &gluttonous, &slothful,
			&desiresJSON, &taskJSON, &historyJSON); err != nil {
			return nil, err
		}
		m.Home = grid.Point{X: homeX, Y: homeY}
		m.IsAvaricious = avaricious != 0
		m.IsBrave = brave != 0
		m.IsEnvious = envious != 0
		m.IsGluttonous = gluttonous != 0
		m.IsSlothful = slothful != 0
		if err := json.Unmarshal([]byte(desiresJSON), &m.Desires); err != nil {
			return nil, fmt.Errorf("mob %q desires: %w", m.Name, err)
		}
		if err := json.Unmarshal([]byte(historyJSON), &m.History); err != nil {
			return nil, fmt.Errorf("mob %q history: %w", m.Name, err)
		}
		if taskJSON != nil {
			m.PriorityTask = &mobs.Task{}
			if err := json.Unmarshal([]byte(*taskJSON), m.PriorityTask); err != nil {
				return nil, fmt.Errorf("mob %q task: %w", m.Name, err)
			}
		}
		reg[grid.Point{X: x, Y: y}] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadEvents returns the full stored event log, oldest first, ready to hand
// back to the simulation on resume.
func (db *DB) LoadEvents() ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id ASC",
	)
	return events, err
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// StoredSeed returns the master seed the saved world was generated from.
func (db *DB) StoredSeed() (int64, error) {
	raw, err := db.GetMeta("seed")
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// HasWorld reports whether a saved world exists.
func (db *DB) HasWorld() bool {
	_, err := db.GetMeta("width")
	return err == nil
}

func (db *DB) metaInt(key string) (int, error) {
	raw, err := db.GetMeta(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
