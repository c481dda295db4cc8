// Package database provides the local entry store for timelineview.
//
// It implements the Store interface using SQLite with WAL mode. Groups are
// the identifiers widgets are mounted with; each holds an ordered list of
// timeline entries. The DBService struct is the primary entry point for all
// database operations.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrGroupNotFound is returned when an operation names a group that does
// not exist.
var ErrGroupNotFound = errors.New("group not found")

// Store defines the interface for timeline entry persistence.
type Store interface {
	// ReplaceEntries makes entries the complete, ordered content of group,
	// creating the group if needed.
	ReplaceEntries(group string, entries []timeline.Entry) error
	// AppendEntry adds one entry at the end of group, creating it if needed.
	AppendEntry(group string, entry timeline.Entry) error
	// QueryEntries returns the entries of group in stored order. An unknown
	// group yields an empty list.
	QueryEntries(group string) ([]timeline.Entry, error)
	// ListGroups returns all groups, most recently updated first.
	ListGroups() ([]Group, error)
	// SetGroupTitle sets the display title of an existing group.
	SetGroupTitle(group, title string) error
	// DeleteGroup removes a group and its entries.
	DeleteGroup(group string) error

	// Close gracefully shuts down the database connection.
	Close() error
}

// ============================================================
// Domain Models
// ============================================================

// Group summarizes one stored timeline.
type Group struct {
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ============================================================
// DBService Implementation
// ============================================================

// DBService implements the Store interface using SQLite. Writes are
// serialized through a read-write mutex.
type DBService struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	now  func() time.Time

	stmtUpsertGroup  *sql.Stmt
	stmtInsertEntry  *sql.Stmt
	stmtDeleteGroup  *sql.Stmt
	stmtNextPosition *sql.Stmt
}

// NewDBService opens (or creates) the database at path, initializes the
// schema and prepares frequently-used statements.
//
// Use ":memory:" for in-memory databases (useful for testing).
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{
		db:   db,
		path: path,
		now:  time.Now,
	}

	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if err := svc.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}

	return svc, nil
}

func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

func (s *DBService) prepareStatements() error {
	var err error

	s.stmtUpsertGroup, err = s.db.Prepare(`
		INSERT INTO timeline_groups (name, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing UpsertGroup: %w", err)
	}

	s.stmtInsertEntry, err = s.db.Prepare(`
		INSERT INTO entries (group_name, position, date, display_name, image, related_links, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertEntry: %w", err)
	}

	s.stmtDeleteGroup, err = s.db.Prepare(`DELETE FROM timeline_groups WHERE name = ?`)
	if err != nil {
		return fmt.Errorf("preparing DeleteGroup: %w", err)
	}

	s.stmtNextPosition, err = s.db.Prepare(`
		SELECT COALESCE(MAX(position) + 1, 0) FROM entries WHERE group_name = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing NextPosition: %w", err)
	}

	return nil
}

// ReplaceEntries swaps the content of group in a single transaction, so
// readers see either the old list or the new one.
func (s *DBService) ReplaceEntries(group string, entries []timeline.Entry) error {
	if group == "" {
		return fmt.Errorf("replacing entries: empty group name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := s.now().UnixNano()
	if _, err := tx.Stmt(s.stmtUpsertGroup).Exec(group, now, now); err != nil {
		return fmt.Errorf("upserting group %s: %w", group, err)
	}
	if _, err := tx.Exec(`DELETE FROM entries WHERE group_name = ?`, group); err != nil {
		return fmt.Errorf("clearing entries of %s: %w", group, err)
	}

	stmt := tx.Stmt(s.stmtInsertEntry)
	for i, e := range entries {
		if _, err := stmt.Exec(group, i, e.Date, e.DisplayName, e.Image, e.RelatedLinks, e.Active); err != nil {
			return fmt.Errorf("inserting entry %d of %s: %w", i, group, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace transaction: %w", err)
	}
	return nil
}

// AppendEntry adds entry after the last entry of group.
func (s *DBService) AppendEntry(group string, entry timeline.Entry) error {
	if group == "" {
		return fmt.Errorf("appending entry: empty group name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	if _, err := tx.Stmt(s.stmtUpsertGroup).Exec(group, now, now); err != nil {
		return fmt.Errorf("upserting group %s: %w", group, err)
	}

	var pos int
	if err := tx.Stmt(s.stmtNextPosition).QueryRow(group).Scan(&pos); err != nil {
		return fmt.Errorf("finding next position in %s: %w", group, err)
	}

	if _, err := tx.Stmt(s.stmtInsertEntry).Exec(
		group, pos, entry.Date, entry.DisplayName, entry.Image, entry.RelatedLinks, entry.Active,
	); err != nil {
		return fmt.Errorf("appending entry to %s: %w", group, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing append transaction: %w", err)
	}
	return nil
}

// QueryEntries returns the entries of group ordered by position.
func (s *DBService) QueryEntries(group string) ([]timeline.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT date, display_name, image, related_links, active
		FROM entries
		WHERE group_name = ?
		ORDER BY position ASC
	`, group)
	if err != nil {
		return nil, fmt.Errorf("querying entries for group %s: %w", group, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListGroups returns every group with its entry count.
func (s *DBService) ListGroups() ([]Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT g.name, g.title, g.created_at, g.updated_at, COUNT(e.entry_id)
		FROM timeline_groups g
		LEFT JOIN entries e ON e.group_name = g.name
		GROUP BY g.name
		ORDER BY g.updated_at DESC, g.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		var created, updated int64
		if err := rows.Scan(&g.Name, &g.Title, &created, &updated, &g.EntryCount); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		g.CreatedAt = time.Unix(0, created)
		g.UpdatedAt = time.Unix(0, updated)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// SetGroupTitle sets the title shown for group in listings.
func (s *DBService) SetGroupTitle(group, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE timeline_groups SET title = ?, updated_at = ? WHERE name = ?`,
		title, s.now().UnixNano(), group)
	if err != nil {
		return fmt.Errorf("setting title of %s: %w", group, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("setting title of %s: %w", group, ErrGroupNotFound)
	}
	return nil
}

// DeleteGroup removes group; its entries go with it.
func (s *DBService) DeleteGroup(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.stmtDeleteGroup.Exec(group)
	if err != nil {
		return fmt.Errorf("deleting group %s: %w", group, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deleting group %s: %w", group, ErrGroupNotFound)
	}
	return nil
}

// Close closes the prepared statements and the connection pool.
func (s *DBService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmts := []*sql.Stmt{
		s.stmtUpsertGroup, s.stmtInsertEntry, s.stmtDeleteGroup, s.stmtNextPosition,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// ============================================================
// Scan Helpers
// ============================================================

func scanEntries(rows *sql.Rows) ([]timeline.Entry, error) {
	entries := []timeline.Entry{}
	for rows.Next() {
		var e timeline.Entry
		if err := rows.Scan(&e.Date, &e.DisplayName, &e.Image, &e.RelatedLinks, &e.Active); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
