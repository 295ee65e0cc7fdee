// Package layoutdb records the slot and dispatch layout of linked classes
// in SQLite, so that a later build of the same bundle can be checked for
// layout drift.
package layoutdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/avmrt/vm"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("avmrt.layoutdb")

// Side says which vtable of a class an entry belongs to.
type Side string

const (
	SideInstance Side = "instance"
	SideClass    Side = "class"
)

// Entry is one resolved name in a class's vtable.
//
// ID is the slot id for slot and const entries, the dispatch id for
// methods and the getter's dispatch id for accessors. SetID is only used
// by accessors. Absent ids are -1.
type Entry struct {
	Class string
	Side  Side
	Name  string
	Kind  string
	ID    int64
	SetID int64
}

func (e Entry) sameLayout(o Entry) bool {
	return e.Kind == o.Kind && e.ID == o.ID && e.SetID == o.SetID
}

func (e Entry) String() string {
	if e.Kind == "virtual" {
		return fmt.Sprintf("%s get=%d set=%d", e.Kind, e.ID, e.SetID)
	}
	return fmt.Sprintf("%s %d", e.Kind, e.ID)
}

// Violation reports an entry whose layout differs from the recorded one.
// Got is nil when the name no longer exists.
type Violation struct {
	Recorded Entry
	Got      *Entry
}

func (v Violation) String() string {
	where := fmt.Sprintf("%s (%s) %s", v.Recorded.Class, v.Recorded.Side, v.Recorded.Name)
	if v.Got == nil {
		return fmt.Sprintf("%s: recorded as %s, now missing", where, v.Recorded)
	}
	return fmt.Sprintf("%s: recorded as %s, now %s", where, v.Recorded, v.Got)
}

// Store is an open layout database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			unit TEXT PRIMARY KEY,
			bundle TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS layouts (
			class TEXT NOT NULL,
			side TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			id INTEGER NOT NULL,
			set_id INTEGER NOT NULL,
			unit TEXT NOT NULL,
			PRIMARY KEY (class, side, name)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// Snapshot lists the resolved entries of both vtables of cls.
func Snapshot(cls *vm.ClassObject) []Entry {
	className := cls.Name().QualifiedName()
	var out []Entry
	collect := func(side Side, vt *vm.VTable) {
		if vt == nil {
			return
		}
		vt.Each(func(name vm.QName, p vm.Property) {
			out = append(out, entryFor(className, side, name, p))
		})
	}
	collect(SideInstance, cls.InstanceVTable())
	collect(SideClass, cls.ClassVTable())
	return out
}

func entryFor(class string, side Side, name vm.QName, p vm.Property) Entry {
	e := Entry{Class: class, Side: side, Name: traitKey(name), ID: -1, SetID: -1}
	switch p := p.(type) {
	case vm.SlotProperty:
		e.Kind, e.ID = "slot", int64(p.ID)
	case vm.ConstSlotProperty:
		e.Kind, e.ID = "const", int64(p.ID)
	case vm.MethodProperty:
		e.Kind, e.ID = "method", int64(p.DispID)
	case vm.VirtualProperty:
		e.Kind = "virtual"
		if p.HasGet {
			e.ID = int64(p.Get)
		}
		if p.HasSet {
			e.SetID = int64(p.Set)
		}
	default:
		panic(fmt.Sprintf("layoutdb: unknown property %T", p))
	}
	return e
}

// traitKey distinguishes names that share a local name and URI but not a
// namespace kind.
func traitKey(q vm.QName) string {
	if q.Namespace().IsPublic() {
		return q.LocalName()
	}
	return q.Namespace().String() + "::" + q.LocalName()
}

// ---------------------------------------------------------------------------
// Record / Verify
// ---------------------------------------------------------------------------

// Record stores the layouts of classes as the reference for later
// verification, replacing anything previously recorded for them.
func (s *Store) Record(unit *vm.TranslationUnit, classes []*vm.ClassObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	unitID := unit.ID().String()
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO runs (unit, bundle, recorded_at) VALUES (?, ?, ?)",
		unitID, unit.Name(), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	count := 0
	for _, cls := range classes {
		className := cls.Name().QualifiedName()
		if _, err := tx.Exec("DELETE FROM layouts WHERE class = ?", className); err != nil {
			return fmt.Errorf("clearing %s: %w", className, err)
		}
		for _, e := range Snapshot(cls) {
			if _, err := tx.Exec(
				"INSERT INTO layouts (class, side, name, kind, id, set_id, unit) VALUES (?, ?, ?, ?, ?, ?, ?)",
				e.Class, string(e.Side), e.Name, e.Kind, e.ID, e.SetID, unitID,
			); err != nil {
				return fmt.Errorf("recording %s %s: %w", className, e.Name, err)
			}
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing layouts: %w", err)
	}
	log.Infof("recorded %d layout entries for unit %s (%s)", count, unit.Name(), unitID)
	return nil
}

// Recorded returns the stored entries of class, in no particular order.
func (s *Store) Recorded(class string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorded(class)
}

func (s *Store) recorded(class string) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT side, name, kind, id, set_id FROM layouts WHERE class = ?", class)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", class, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{Class: class}
		var side string
		if err := rows.Scan(&side, &e.Name, &e.Kind, &e.ID, &e.SetID); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", class, err)
		}
		e.Side = Side(side)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Verify compares the current layouts of classes against the recorded
// ones. Classes with no recorded layout are skipped. Names added since the
// recording are not violations.
func (s *Store) Verify(classes []*vm.ClassObject) ([]Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var violations []Violation
	for _, cls := range classes {
		className := cls.Name().QualifiedName()
		recorded, err := s.recorded(className)
		if err != nil {
			return nil, err
		}
		if len(recorded) == 0 {
			log.Debugf("no recorded layout for %s", className)
			continue
		}

		current := make(map[string]Entry)
		for _, e := range Snapshot(cls) {
			current[string(e.Side)+"\x00"+e.Name] = e
		}
		for _, want := range recorded {
			got, ok := current[string(want.Side)+"\x00"+want.Name]
			switch {
			case !ok:
				violations = append(violations, Violation{Recorded: want})
			case !got.sameLayout(want):
				violations = append(violations, Violation{Recorded: want, Got: &got})
			}
		}
	}

	for _, v := range violations {
		log.Warningf("layout changed: %s", v)
	}
	return violations, nil
}
