// Package repl implements the interactive read-eval-print loop driver and
// its optional persisted line history.
package repl

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// History records REPL input lines. It is backed by a sqlite database when
// a path is given, or kept purely in memory (and discarded on exit) when
// NewMemoryHistory is used instead.
type History struct {
	db     *sql.DB
	memory []string
}

// Open backs a History with a sqlite database at path (":memory:" or a real
// file), creating the schema if needed.
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		line TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &History{db: db}, nil
}

// NewMemoryHistory returns a History that keeps lines only for the lifetime
// of the process, used when no -history path is given or sqlite can't be
// opened.
func NewMemoryHistory() *History {
	return &History{}
}

// Append records line as the most recent REPL input.
func (h *History) Append(line string) error {
	if h.db == nil {
		h.memory = append(h.memory, line)
		return nil
	}
	_, err := h.db.Exec("INSERT INTO history (line) VALUES (?)", line)
	return err
}

// Lines returns every recorded line, oldest first.
func (h *History) Lines() ([]string, error) {
	if h.db == nil {
		out := make([]string, len(h.memory))
		copy(out, h.memory)
		return out, nil
	}

	rows, err := h.db.Query("SELECT line FROM history ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Close releases the underlying database handle, if any.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}
