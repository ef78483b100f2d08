// Package persistence provides SQLite-based scene storage.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/widmanstatten/internal/engine"
	"github.com/talgya/widmanstatten/internal/scene"
)

// Metadata keys.
const (
	MetaLastTick = "last_tick"
	MetaSeed     = "seed"
	MetaWidth    = "scene_width"
	MetaHeight   = "scene_height"
)

// DB wraps a SQLite connection for scene persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
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
	CREATE TABLE IF NOT EXISTS rays (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		center_x REAL NOT NULL,
		center_y REAL NOT NULL,
		orientation REAL NOT NULL,
		speed REAL NOT NULL,
		width REAL NOT NULL,
		length_pos REAL NOT NULL,
		length_neg REAL NOT NULL,
		limit_pos REAL NOT NULL,
		limit_neg REAL NOT NULL,
		growing_pos INTEGER NOT NULL,
		growing_neg INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		ray_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS scene_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_ray ON events(ray_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// rayRow is the stored form of a ray. seq is the ray's resolution index.
type rayRow struct {
	Seq         int     `db:"seq"`
	ID          string  `db:"id"`
	CenterX     float64 `db:"center_x"`
	CenterY     float64 `db:"center_y"`
	Orientation float64 `db:"orientation"`
	Speed       float64 `db:"speed"`
	Width       float64 `db:"width"`
	LengthPos   float64 `db:"length_pos"`
	LengthNeg   float64 `db:"length_neg"`
	LimitPos    float64 `db:"limit_pos"`
	LimitNeg    float64 `db:"limit_neg"`
	GrowingPos  bool    `db:"growing_pos"`
	GrowingNeg  bool    `db:"growing_neg"`
}

type eventRow struct {
	Tick        uint64 `db:"tick"`
	Description string `db:"description"`
	Category    string `db:"category"`
	RayID       string `db:"ray_id"`
}

// SaveRays writes all rays to the database (full replace), keeping their order.
func (db *DB) SaveRays(rays []scene.Ray) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM rays"); err != nil {
		return err
	}

	stmt, err := tx.PrepareNamed(`INSERT INTO rays
		(seq, id, center_x, center_y, orientation, speed, width,
		 length_pos, length_neg, limit_pos, limit_neg, growing_pos, growing_neg)
		VALUES (:seq, :id, :center_x, :center_y, :orientation, :speed, :width,
		 :length_pos, :length_neg, :limit_pos, :limit_neg, :growing_pos, :growing_neg)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rays {
		row := rayRow{
			Seq:         i,
			ID:          r.ID,
			CenterX:     r.Center.X,
			CenterY:     r.Center.Y,
			Orientation: r.Orientation,
			Speed:       r.Speed,
			Width:       r.Width,
			LengthPos:   r.LengthPos,
			LengthNeg:   r.LengthNeg,
			LimitPos:    r.LimitPos,
			LimitNeg:    r.LimitNeg,
			GrowingPos:  r.GrowingPos,
			GrowingNeg:  r.GrowingNeg,
		}
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("insert ray %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// LoadRays rebuilds the stored rays through reg, in their saved order. The rays
// are not appended to reg.
func (db *DB) LoadRays(reg *scene.Registry) ([]*scene.Ray, error) {
	var rows []rayRow
	if err := db.conn.Select(&rows, "SELECT * FROM rays ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("select rays: %w", err)
	}

	rays := make([]*scene.Ray, 0, len(rows))
	for _, row := range rows {
		r, err := reg.Restore(row.ID, scene.Spec{
			Center:      scene.Point{X: row.CenterX, Y: row.CenterY},
			Orientation: row.Orientation,
			Speed:       row.Speed,
			Width:       row.Width,
		})
		if err != nil {
			return nil, err
		}
		r.LengthPos, r.LengthNeg = row.LengthPos, row.LengthNeg
		r.LimitPos, r.LimitNeg = row.LimitPos, row.LimitNeg
		r.GrowingPos, r.GrowingNeg = row.GrowingPos, row.GrowingNeg
		rays = append(rays, r)
	}
	return rays, nil
}

// SaveEvents replaces the stored event history.
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
			"INSERT INTO events (tick, description, category, ray_id) VALUES (?, ?, ?, ?)",
			e.Tick, e.Description, e.Category, e.RayID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, oldest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		`SELECT tick, description, category, ray_id FROM
			(SELECT * FROM events ORDER BY id DESC LIMIT ?)
		ORDER BY id`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]engine.Event, len(rows))
	for i, r := range rows {
		events[i] = engine.Event{Tick: r.Tick, Description: r.Description, Category: r.Category, RayID: r.RayID}
	}
	return events, nil
}

// SaveMeta stores a key-value pair in scene metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO scene_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM scene_meta WHERE key = ?", key)
	return value, err
}

// LastTick returns the saved tick counter, or 0 if none was saved.
func (db *DB) LastTick() (uint64, error) {
	v, err := db.GetMeta(MetaLastTick)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// HasScene reports whether a scene has been saved.
func (db *DB) HasScene() (bool, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM rays"); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveScene performs a full save of the scene state.
func (db *DB) SaveScene(sim *engine.Simulation) error {
	rays := sim.Snapshot()
	tick := sim.CurrentTick()
	slog.Info("saving scene", "rays", len(rays), "tick", tick)

	if err := db.SaveRays(rays); err != nil {
		return fmt.Errorf("save rays: %w", err)
	}
	if err := db.SaveEvents(sim.RecentEvents(engine.MaxEvents)); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	b := sim.Bounds()
	meta := map[string]string{
		MetaLastTick: strconv.FormatUint(tick, 10),
		MetaWidth:    strconv.FormatFloat(b.Width, 'g', -1, 64),
		MetaHeight:   strconv.FormatFloat(b.Height, 'g', -1, 64),
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	slog.Info("scene saved")
	return nil
}
