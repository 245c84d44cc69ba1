// Package repository reads and writes traffic-log records in the cybersecurity_attacks
// table over PostgreSQL or SQLite.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/migrations"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/features"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

const table = "cybersecurity_attacks"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// ErrUnknownColumn is returned by CountBy for columns that cannot be grouped on.
var ErrUnknownColumn = errors.New("column cannot be grouped")

// groupable lists the columns CountBy accepts.
var groupable = map[string]bool{
	logs.FieldGeoLocation: true,
	logs.FieldAttackType:  true,
	logs.FieldProtocol:    true,
	logs.FieldSeverity:    true,
	logs.FieldTrafficType: true,
}

// integerColumns and realColumns are coerced before insert so CSV text lands typed.
var (
	integerColumns = map[string]bool{
		logs.FieldSourcePort:   true,
		logs.FieldDestPort:     true,
		logs.FieldPacketLength: true,
	}
	realColumns = map[string]bool{
		logs.FieldAnomalyScores: true,
		logs.FieldLatitude:      true,
		logs.FieldLongitude:     true,
	}
)

// SQLRepository implements the record data source over database/sql.
type SQLRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository connects to PostgreSQL.
func NewPostgresRepository(connectionString string) (*SQLRepository, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &SQLRepository{db: db}, nil
}

// NewSQLiteRepository opens (creating if needed) a SQLite database file.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "_time_format=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// one writer; WAL lets readers proceed during imports
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLRepository{db: db}, nil
}

// Open dispatches on the configured driver name.
func Open(driver, dsn string) (*SQLRepository, error) {
	switch driver {
	case "postgres":
		return NewPostgresRepository(dsn)
	case "sqlite":
		return NewSQLiteRepository(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunMigrations applies the embedded schema files in name order.
func (r *SQLRepository) RunMigrations(ctx context.Context) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

// FetchAll returns every stored record.
func (r *SQLRepository) FetchAll(ctx context.Context) ([]logs.Record, error) {
	return r.query(ctx, fmt.Sprintf(`SELECT %s FROM %s`, columnList(logs.Columns), table))
}

// Recent returns the newest records by timestamp, limited to the presentation columns.
func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]logs.Record, error) {
	if limit <= 0 {
		return []logs.Record{}, nil
	}
	cols := []string{
		logs.FieldTimestamp,
		logs.FieldSourceIP,
		logs.FieldDestinationIP,
		logs.FieldAttackType,
		logs.FieldGeoLocation,
		logs.FieldSeverity,
		logs.FieldLatitude,
		logs.FieldLongitude,
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY "timestamp" DESC LIMIT ?`, columnList(cols), table)
	return r.query(ctx, r.db.Rebind(query), limit)
}

// CountBy groups records by column. NULL values are counted under "unknown".
func (r *SQLRepository) CountBy(ctx context.Context, column string) ([]logs.Bucket, error) {
	if !groupable[column] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	query := fmt.Sprintf(
		`SELECT COALESCE(%[1]s, '%[3]s') AS label, COUNT(*) AS count FROM %[2]s GROUP BY COALESCE(%[1]s, '%[3]s') ORDER BY 2 DESC, 1`,
		quote(column), table, features.MissingCategory,
	)

	buckets := []logs.Bucket{}
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	return buckets, nil
}

// Insert stores records in a single transaction and returns how many were written.
// Columns outside the table are ignored.
func (r *SQLRepository) Insert(ctx context.Context, records []logs.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(logs.Columns)), ", ")
	query := r.db.Rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, columnList(logs.Columns), placeholders))

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(logs.Columns))
	for i, record := range records {
		for j, col := range logs.Columns {
			args[j] = storageValue(col, record[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Count returns the number of stored records.
func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
	return n, err
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]logs.Record, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []logs.Record{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		records = append(records, logs.Record(row))
	}
	return records, rows.Err()
}

// storageValue coerces loosely typed input to the column's storage type. Values that
// do not parse are stored as NULL in typed columns.
func storageValue(col string, v any) any {
	if v == nil {
		return nil
	}
	switch {
	case col == logs.FieldTimestamp:
		if t, ok := v.(time.Time); ok {
			return t.UTC()
		}
		sec, ok := features.ParseTimestamp(v)
		if !ok {
			return nil
		}
		return time.Unix(sec, 0).UTC()
	case integerColumns[col]:
		f, ok := logs.ParseFloat(v)
		if !ok {
			return nil
		}
		return int64(f)
	case realColumns[col]:
		f, ok := logs.ParseFloat(v)
		if !ok {
			return nil
		}
		return f
	default:
		return logs.FormatValue(v)
	}
}

func quote(col string) string {
	return `"` + col + `"`
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
