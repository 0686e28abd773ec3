// Package datarecording stores end-of-run statistics in an SQLite database.
// Each table holds rows of one flat struct type; the struct field names
// become the column names.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrInvalidEntry is returned for entries that are not flat structs.
var ErrInvalidEntry = errors.New("entry is not a flat struct")

// A Recorder buffers rows and writes them to a database.
type Recorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers a row for a table created before.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of the tables created, in order.
	ListTables() []string

	// Flush writes the buffered rows.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type table struct {
	structType reflect.Type
	entries    []any
}

// SQLiteRecorder is a Recorder backed by an SQLite file.
type SQLiteRecorder struct {
	*sql.DB

	path       string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

// New creates the database file <path>.sqlite3. An empty path picks a
// unique name. The file must not exist yet. Buffered rows are flushed when
// the program exits through atexit.
func New(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = "vcml_stats_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	r := NewWithDB(db)
	r.path = filename

	return r, nil
}

// NewWithDB creates a recorder that writes to an open database.
func NewWithDB(db *sql.DB) *SQLiteRecorder {
	r := &SQLiteRecorder{
		DB:        db,
		tables:    make(map[string]*table),
		batchSize: 100000,
	}

	atexit.Register(func() { _ = r.Flush() })

	return r
}

// Path returns the database file, or "" for recorders built on an open
// database.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkEntry(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return ErrInvalidEntry
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || !isAllowedKind(f.Type.Kind()) {
			return fmt.Errorf("%w: field %s", ErrInvalidEntry, f.Name)
		}
	}

	return nil
}

// CreateTable creates a table with one column per field of sampleEntry.
func (r *SQLiteRecorder) CreateTable(tableName string, sampleEntry any) error {
	if !tableNameRe.MatchString(tableName) {
		return fmt.Errorf("invalid table name %q", tableName)
	}

	if _, exists := r.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	if err := checkEntry(sampleEntry); err != nil {
		return err
	}

	fields := strings.Join(structs.Names(sampleEntry), ",\n\t")
	query := "CREATE TABLE " + tableName + " (\n\t" + fields + "\n);"

	if _, err := r.Exec(query); err != nil {
		return fmt.Errorf("creating table %s: %w", tableName, err)
	}

	r.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}

	return nil
}

// InsertData buffers a row. The buffer is flushed once it holds a full
// batch.
func (r *SQLiteRecorder) InsertData(tableName string, entry any) error {
	t, exists := r.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		return fmt.Errorf("%w: %T does not match table %s",
			ErrInvalidEntry, entry, tableName)
	}

	t.entries = append(t.entries, entry)

	r.entryCount++
	if r.entryCount >= r.batchSize {
		return r.Flush()
	}

	return nil
}

// ListTables returns the names of the tables created, in order.
func (r *SQLiteRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Flush writes all buffered rows in one database transaction.
func (r *SQLiteRecorder) Flush() error {
	if r.entryCount == 0 {
		return nil
	}

	tx, err := r.Begin()
	if err != nil {
		return err
	}

	for _, name := range r.ListTables() {
		if err := r.flushTable(tx, name, r.tables[name]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range r.tables {
		t.entries = nil
	}

	r.entryCount = 0

	return nil
}

func (r *SQLiteRecorder) flushTable(tx *sql.Tx, name string, t *table) error {
	if len(t.entries) == 0 {
		return nil
	}

	marks := make([]string, t.structType.NumField())
	for i := range marks {
		marks[i] = "?"
	}

	stmt, err := tx.Prepare(
		"INSERT INTO " + name + " VALUES (" + strings.Join(marks, ", ") + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", name, err)
		}
	}

	return nil
}

// Close flushes the buffered rows and closes the database.
func (r *SQLiteRecorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}

	return r.DB.Close()
}
