// Package botstore provides SQLite persistence for registered competitor
// programs, so a match can be started by display name.
package botstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MJE43/maze-duel/internal/scripting"
)

// ErrNotFound is returned when no bot matches a lookup.
var ErrNotFound = errors.New("botstore: bot not found")

// Bot is a registered competitor program.
type Bot struct {
	ID        string         `json:"id"`
	Role      scripting.Role `json:"role"`
	Name      string         `json:"name"`
	Source    string         `json:"source,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Registration returns the bot as a scripting source.
func (b *Bot) Registration() scripting.Source {
	return scripting.Source{Role: b.Role, Name: b.Name, Code: b.Source}
}

// Store provides SQLite persistence for bots.
type Store struct {
	db *sql.DB
}

// New creates a new bot store using the given SQLite database path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("botstore: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("botstore: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("botstore: set busy timeout: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing sql.DB.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the bot tables.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS bots (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (role, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bots_role ON bots(role)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("botstore: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put registers src. Registering the same role and name again replaces the
// source and keeps the bot's ID.
func (s *Store) Put(src scripting.Source) (*Bot, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		return nil, fmt.Errorf("botstore: put: empty name")
	}
	if src.Role != scripting.RoleMazeMaster && src.Role != scripting.RoleAdventurers {
		return nil, fmt.Errorf("botstore: put: %w: %q", scripting.ErrInvalidRole, src.Role)
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO bots (id, role, name, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (role, name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		uuid.NewString(), string(src.Role), name, src.Code, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("botstore: put %s %q: %w", src.Role, name, err)
	}
	return s.Find(src.Role, name)
}

const botColumns = `id, role, name, source, created_at, updated_at`

// Get fetches a bot by ID.
func (s *Store) Get(id string) (*Bot, error) {
	return s.scanOne(s.db.QueryRow(`SELECT `+botColumns+` FROM bots WHERE id = ?`, id))
}

// Find fetches a bot by role and display name.
func (s *Store) Find(role scripting.Role, name string) (*Bot, error) {
	return s.scanOne(s.db.QueryRow(
		`SELECT `+botColumns+` FROM bots WHERE role = ? AND name = ?`, string(role), strings.TrimSpace(name)))
}

// List returns bots ordered by role and name, without their source text.
// An empty role lists both sides.
func (s *Store) List(role scripting.Role) ([]Bot, error) {
	query := `SELECT id, role, name, created_at, updated_at FROM bots`
	var args []interface{}
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, string(role))
	}
	query += ` ORDER BY role, name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("botstore: list: %w", err)
	}
	defer rows.Close()

	bots := []Bot{}
	for rows.Next() {
		var b Bot
		if err := rows.Scan(&b.ID, &b.Role, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("botstore: scan bot: %w", err)
		}
		bots = append(bots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("botstore: list: %w", err)
	}
	return bots, nil
}

// Delete removes a bot by ID.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("botstore: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("botstore: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanOne(row *sql.Row) (*Bot, error) {
	b := &Bot{}
	err := row.Scan(&b.ID, &b.Role, &b.Name, &b.Source, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("botstore: scan bot: %w", err)
	}
	return b, nil
}
