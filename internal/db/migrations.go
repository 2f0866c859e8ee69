package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
//
// Tables mirror the hosted schema closely enough that the same queries run
// against both. Columns declared BOOLEAN and DATETIME are converted back to
// bool and time.Time by the driver; columns declared JSON hold encoded arrays.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id         TEXT     PRIMARY KEY,
		full_name  TEXT     NOT NULL DEFAULT '',
		email      TEXT     NOT NULL DEFAULT '',
		phone      TEXT     NOT NULL DEFAULT '',
		role       TEXT     NOT NULL DEFAULT 'tenant'
			CHECK (role IN ('tenant', 'agent', 'landlord', 'admin')),
		avatar_url TEXT     NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id            TEXT     PRIMARY KEY,
		title         TEXT     NOT NULL,
		description   TEXT     NOT NULL DEFAULT '',
		address       TEXT     NOT NULL,
		price         REAL     NOT NULL DEFAULT 0,
		bedrooms      INTEGER  NOT NULL DEFAULT 0,
		bathrooms     INTEGER  NOT NULL DEFAULT 0,
		area_sqft     INTEGER  NOT NULL DEFAULT 0,
		property_type TEXT     NOT NULL DEFAULT '',
		amenities     JSON     NOT NULL DEFAULT '[]',
		is_verified   BOOLEAN  NOT NULL DEFAULT 0,
		is_available  BOOLEAN  NOT NULL DEFAULT 1,
		agent_id      TEXT     REFERENCES profiles(id) ON DELETE SET NULL,
		landlord_id   TEXT     REFERENCES profiles(id) ON DELETE SET NULL,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS property_images (
		id          TEXT     PRIMARY KEY,
		property_id TEXT     NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		image_url   TEXT     NOT NULL,
		position    INTEGER  NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS property_views (
		id          TEXT     PRIMARY KEY,
		property_id TEXT     NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		viewer_id   TEXT,
		viewed_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		id          TEXT     PRIMARY KEY,
		user_id     TEXT     NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		property_id TEXT     NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		created_at  DATETIME NOT NULL,
		UNIQUE (user_id, property_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id            TEXT     PRIMARY KEY,
		tenant_id     TEXT     NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		property_id   TEXT     NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		agent_id      TEXT     REFERENCES profiles(id) ON DELETE SET NULL,
		status        TEXT     NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
		scheduled_for DATETIME,
		notes         TEXT     NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id          TEXT     PRIMARY KEY,
		tenant_id   TEXT     NOT NULL REFERENCES profiles(id),
		landlord_id TEXT     REFERENCES profiles(id),
		property_id TEXT     REFERENCES properties(id) ON DELETE SET NULL,
		amount      REAL     NOT NULL CHECK (amount > 0),
		currency    TEXT     NOT NULL DEFAULT 'NGN',
		status      TEXT     NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'completed', 'failed', 'refunded')),
		reference   TEXT     NOT NULL DEFAULT '',
		receipt_url TEXT     NOT NULL DEFAULT '',
		paid_at     DATETIME,
		due_date    DATETIME,
		created_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id          TEXT     PRIMARY KEY,
		sender_id   TEXT     NOT NULL REFERENCES profiles(id),
		receiver_id TEXT     NOT NULL REFERENCES profiles(id),
		property_id TEXT     REFERENCES properties(id) ON DELETE SET NULL,
		content     TEXT     NOT NULL,
		is_read     BOOLEAN  NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id                  TEXT     PRIMARY KEY,
		user_id             TEXT     NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		title               TEXT     NOT NULL,
		message             TEXT     NOT NULL DEFAULT '',
		type                TEXT     NOT NULL DEFAULT 'system',
		is_read             BOOLEAN  NOT NULL DEFAULT 0,
		related_entity_type TEXT     NOT NULL DEFAULT '',
		related_entity_id   TEXT     NOT NULL DEFAULT '',
		created_at          DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_users (
		id            TEXT     PRIMARY KEY,
		email         TEXT     NOT NULL DEFAULT '',
		phone         TEXT     NOT NULL DEFAULT '',
		password_hash TEXT     NOT NULL DEFAULT '',
		metadata      JSON     NOT NULL DEFAULT '{}',
		created_at    DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS auth_users_email ON auth_users(email) WHERE email != ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS auth_users_phone ON auth_users(phone) WHERE phone != ''`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
		id         TEXT     PRIMARY KEY,
		user_id    TEXT     NOT NULL REFERENCES auth_users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_otps (
		id         INTEGER  PRIMARY KEY AUTOINCREMENT,
		target     TEXT     NOT NULL,
		code       TEXT     NOT NULL,
		expires_at DATETIME NOT NULL,
		used       INTEGER  NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_receiver ON messages(receiver_id, is_read)`,
	`CREATE INDEX IF NOT EXISTS messages_sender ON messages(sender_id)`,
	`CREATE INDEX IF NOT EXISTS notifications_user ON notifications(user_id, is_read)`,
	`CREATE INDEX IF NOT EXISTS payments_tenant ON payments(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS payments_landlord ON payments(landlord_id)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent, checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"payments", "method", "TEXT NOT NULL DEFAULT 'paystack'"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	cols, err := Columns(db, table)
	if err != nil {
		return err
	}
	for _, name := range cols {
		if name == column {
			return nil
		}
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// Columns returns the column names of a table in declaration order.
func Columns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return cols, nil
}
