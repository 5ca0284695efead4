package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"ndcscan/internal"
)

const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var lookupQueries = map[string]string{
	DriverMySQL:    `CALL sp_GetRxcuiFromNdc(?)`,
	DriverSQLite:   `SELECT rxcui AS RXCUI, str AS STR FROM ndc_rxcui WHERE ndc = ? LIMIT 1`,
	DriverPostgres: `SELECT * FROM sp_get_rxcui_from_ndc($1)`,
}

type Options struct {
	Driver string
	// DSN is used as-is for sqlite (file path) and postgres (URL).
	DSN string

	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDatabase string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB owns the process-wide connection pool. Open it once at startup, share it
// across requests and Close it on shutdown.
type DB struct {
	conn        *sql.DB
	driver      string
	lookupQuery string
	logger      *zap.Logger
}

func Open(opts Options, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	query, ok := lookupQueries[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported db driver: %s", opts.Driver)
	}

	driverName, dsn, err := dataSource(opts)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	db := &DB{conn: conn, driver: opts.Driver, lookupQuery: query, logger: logger}
	if opts.Driver == DriverSQLite {
		if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := db.init(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	logger.Info("database pool opened", zap.String("driver", opts.Driver), zap.Int("max_open_conns", opts.MaxOpenConns))
	return db, nil
}

func dataSource(opts Options) (string, string, error) {
	switch opts.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = opts.MySQLUser
		cfg.Passwd = opts.MySQLPassword
		cfg.Net = "tcp"
		port := opts.MySQLPort
		if port == 0 {
			port = 3306
		}
		cfg.Addr = net.JoinHostPort(opts.MySQLHost, strconv.Itoa(port))
		cfg.DBName = opts.MySQLDatabase
		return "mysql", cfg.FormatDSN(), nil
	case DriverSQLite:
		if opts.DSN != ":memory:" && !strings.HasPrefix(opts.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(opts.DSN), 0o755); err != nil {
				return "", "", err
			}
		}
		return "sqlite", opts.DSN, nil
	case DriverPostgres:
		return "pgx", opts.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported db driver: %s", opts.Driver)
	}
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS ndc_rxcui (
  ndc TEXT PRIMARY KEY,
  rxcui TEXT NOT NULL,
  str TEXT,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_ndc_rxcui_rxcui ON ndc_rxcui(rxcui);
`
	_, err := d.conn.Exec(schema)
	return err
}

// LookupRxcui returns the first mapping row for ndc, or nil when there is none.
// Columns are located by name (RXCUI, STR) so stored procedures may return
// extra columns.
func (d *DB) LookupRxcui(ctx context.Context, ndc string) (*internal.RxcuiRecord, error) {
	rows, err := d.conn.QueryContext(ctx, d.lookupQuery, ndc)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rxcuiIdx, strIdx := -1, -1
	for i, c := range cols {
		switch strings.ToUpper(c) {
		case "RXCUI":
			rxcuiIdx = i
		case "STR":
			strIdx = i
		}
	}
	if rxcuiIdx < 0 {
		return nil, errors.New("lookup result has no RXCUI column")
	}

	if !rows.Next() {
		return nil, rows.Err()
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	if !values[rxcuiIdx].Valid {
		return nil, nil
	}
	rec := &internal.RxcuiRecord{RXCUI: values[rxcuiIdx].String}
	if strIdx >= 0 {
		rec.Name = values[strIdx].String
	}
	return rec, nil
}

// UpsertMappings loads NDC -> RXCUI rows into the local sqlite table.
func (d *DB) UpsertMappings(ctx context.Context, mappings []internal.NDCMapping) (int, error) {
	if d.driver != DriverSQLite {
		return 0, fmt.Errorf("mapping import requires the sqlite driver, have %s", d.driver)
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO ndc_rxcui (ndc, rxcui, str, updatedAt) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(ndc) DO UPDATE SET
  rxcui=excluded.rxcui,
  str=excluded.str,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for _, m := range mappings {
		if strings.TrimSpace(m.NDC) == "" || strings.TrimSpace(m.RXCUI) == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, m.NDC, m.RXCUI, m.Name); err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}
