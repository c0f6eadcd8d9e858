package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pbaille/mindatlas/internal/logger"
)

// Schema versions:
// v1: journeys and the five child tables, cascading on journey delete
// v2: analytics_checkins
// v3: journey_action_items.target_date
// v4: journeys.sentiment (positive, negative, neutral)
// v5: no schema change, keeps version numbers aligned with released builds
// v6: journeys rebuilt so sentiment also accepts 'mixed'
const CurrentSchemaVersion = 6

// migration upgrades the schema to version. Every step must be safe to
// re-run against a database that already has its changes.
type migration struct {
	version int
	name    string
	// SQLite cannot drop a constraint in place, so table rebuilds need
	// foreign keys off or DROP TABLE cascades into the child tables.
	foreignKeysOff bool
	up             func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, name: "initial schema", up: execAll(schemaV1...)},
	{version: 2, name: "analytics check-ins", up: execAll(schemaV2...)},
	{version: 3, name: "action item target date", up: addColumn("journey_action_items", "target_date", "INTEGER")},
	{version: 4, name: "journey sentiment", up: addColumn("journeys", "sentiment",
		"TEXT CHECK(sentiment IN ('positive', 'negative', 'neutral'))")},
	{version: 5, name: "version alignment", up: execAll()},
	{version: 6, name: "widen sentiment constraint", foreignKeysOff: true, up: execAll(schemaV6...)},
}

var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS journeys (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER,
		is_draft INTEGER DEFAULT 1,
		current_step INTEGER DEFAULT 0,
		path_type TEXT CHECK(path_type IN ('REAL', 'NOT_REAL', 'EMOTIONAL')),
		thought_text TEXT,
		situation_text TEXT,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS journey_emotions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		journey_id TEXT NOT NULL,
		emotion_type TEXT NOT NULL,
		intensity INTEGER CHECK(intensity >= 1 AND intensity <= 5),
		captured_at_step INTEGER NOT NULL,
		FOREIGN KEY (journey_id) REFERENCES journeys(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS journey_action_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		journey_id TEXT NOT NULL,
		action_text TEXT NOT NULL,
		is_completed INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		completed_at INTEGER,
		FOREIGN KEY (journey_id) REFERENCES journeys(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS journey_transformations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		journey_id TEXT NOT NULL,
		original_thought TEXT NOT NULL,
		transformed_thought TEXT NOT NULL,
		transformation_type TEXT,
		FOREIGN KEY (journey_id) REFERENCES journeys(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS journey_habits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		journey_id TEXT NOT NULL,
		habit_description TEXT NOT NULL,
		reminder_enabled INTEGER DEFAULT 0,
		reminder_time TEXT,
		frequency TEXT CHECK(frequency IN ('DAILY', 'WEEKLY', 'CUSTOM')),
		FOREIGN KEY (journey_id) REFERENCES journeys(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS journey_reevaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		journey_id TEXT NOT NULL,
		original_belief_rating INTEGER CHECK(original_belief_rating >= 0 AND original_belief_rating <= 10),
		reevaluated_belief_rating INTEGER CHECK(reevaluated_belief_rating >= 0 AND reevaluated_belief_rating <= 10),
		insights TEXT,
		FOREIGN KEY (journey_id) REFERENCES journeys(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journeys_draft ON journeys(is_draft, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_journeys_completed ON journeys(is_draft, completed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_emotions_journey ON journey_emotions(journey_id)`,
	`CREATE INDEX IF NOT EXISTS idx_actions_journey ON journey_action_items(journey_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transformations_journey ON journey_transformations(journey_id)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_journey ON journey_habits(journey_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reevaluations_journey ON journey_reevaluations(journey_id)`,
}

var schemaV2 = []string{
	`CREATE TABLE IF NOT EXISTS analytics_checkins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		concerns TEXT NOT NULL,
		other_text TEXT,
		source TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_checkins_timestamp ON analytics_checkins(timestamp)`,
}

var schemaV6 = []string{
	`DROP TABLE IF EXISTS journeys_new`,
	`CREATE TABLE journeys_new (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER,
		is_draft INTEGER DEFAULT 1,
		current_step INTEGER DEFAULT 0,
		path_type TEXT CHECK(path_type IN ('REAL', 'NOT_REAL', 'EMOTIONAL')),
		sentiment TEXT CHECK(sentiment IN ('positive', 'negative', 'neutral', 'mixed')),
		thought_text TEXT,
		situation_text TEXT,
		notes TEXT
	)`,
	// explicit columns: v4 appended sentiment after notes
	`INSERT INTO journeys_new (id, created_at, updated_at, completed_at, is_draft, current_step,
		path_type, sentiment, thought_text, situation_text, notes)
	SELECT id, created_at, updated_at, completed_at, is_draft, current_step,
		path_type, sentiment, thought_text, situation_text, notes
	FROM journeys`,
	`DROP TABLE journeys`,
	`ALTER TABLE journeys_new RENAME TO journeys`,
	`CREATE INDEX IF NOT EXISTS idx_journeys_draft ON journeys(is_draft, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_journeys_completed ON journeys(is_draft, completed_at)`,
}

func execAll(stmts ...string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// addColumn is a no-op when the column is already there
func addColumn(table, column, def string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		exists, err := columnExists(ctx, tx, table, column)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def))
		return err
	}
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func schemaVersion(ctx context.Context, q querier) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func migrate(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return migrateTo(ctx, conn, CurrentSchemaVersion, log)
}

// migrateTo applies every migration above the stored version up to target,
// in order, each in its own transaction together with the version bump.
func migrateTo(ctx context.Context, conn *sql.Conn, target int, log *logger.Logger) error {
	current, err := schemaVersion(ctx, conn)
	if err != nil {
		return err
	}
	if current > CurrentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", current, CurrentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}
		if err := applyMigration(ctx, conn, m); err != nil {
			return fmt.Errorf("migration v%d (%s): %w", m.version, m.name, err)
		}
		log.Info("schema migrated", "version", m.version, "name", m.name)
	}
	return nil
}

func applyMigration(ctx context.Context, conn *sql.Conn, m migration) (err error) {
	if m.foreignKeysOff {
		// PRAGMA foreign_keys is ignored inside a transaction
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
			return fmt.Errorf("disable foreign keys: %w", err)
		}
		defer func() {
			if _, ferr := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); ferr != nil && err == nil {
				err = fmt.Errorf("enable foreign keys: %w", ferr)
			}
		}()
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = m.up(ctx, tx); err != nil {
		return err
	}

	if m.foreignKeysOff {
		if err = foreignKeyCheck(ctx, tx); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// foreignKeyCheck fails if any child row lost its parent
func foreignKeyCheck(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	violations := 0
	for rows.Next() {
		violations++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if violations > 0 {
		return fmt.Errorf("foreign key check: %d orphaned rows", violations)
	}
	return nil
}
