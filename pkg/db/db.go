package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/SAP/go-hdb/driver"
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"sql-lab/configs"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	MSSQL    Dialect = "mssql"
	HANA     Dialect = "hana"
	SQLite   Dialect = "sqlite"
)

// Timeouts are applied to every connection handed out by Conn.
type Timeouts struct {
	Statement time.Duration
	Lock      time.Duration
	Idle      time.Duration
}

type Db struct {
	*sql.DB
	Dialect  Dialect
	Timeouts Timeouts
}

// New wraps an already opened handle.
func New(sqlDB *sql.DB, dialect Dialect, t Timeouts) *Db {
	return &Db{DB: sqlDB, Dialect: dialect, Timeouts: t}
}

// Open opens the pool for cfg without touching the network.
func Open(cfg configs.DbConfig) (*Db, error) {
	dialect := Dialect(strings.ToLower(cfg.Dialect))
	driver, err := DriverName(dialect)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if dialect == SQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	return New(sqlDB, dialect, Timeouts{
		Statement: cfg.StatementTimeout,
		Lock:      cfg.LockTimeout,
		Idle:      cfg.IdleTimeout,
	}), nil
}

// NewConnection opens the pool and verifies the connection.
func NewConnection(ctx context.Context, cfg configs.DbConfig) (*Db, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func DriverName(d Dialect) (string, error) {
	switch d {
	case Postgres:
		return "pgx", nil
	case MSSQL:
		return "sqlserver", nil
	case HANA:
		return "hdb", nil
	case SQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported db dialect: %s", d)
}

// DSN builds the driver connection string. An explicit db.dsn always wins.
func DSN(cfg configs.DbConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	host := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	switch Dialect(strings.ToLower(cfg.Dialect)) {
	case Postgres:
		u := &url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     host,
			Path:     "/" + cfg.Name,
			RawQuery: url.Values{"sslmode": {"disable"}}.Encode(),
		}
		return u.String(), nil
	case MSSQL:
		q := url.Values{}
		q.Set("database", cfg.Name)
		q.Set("encrypt", "disable")
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     host,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case HANA:
		u := &url.URL{
			Scheme: "hdb",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   host,
		}
		if cfg.Name != "" {
			u.RawQuery = url.Values{"databaseName": {cfg.Name}}.Encode()
		}
		return u.String(), nil
	case SQLite:
		if cfg.Name == "" {
			return "", fmt.Errorf("db.name or db.dsn is required for sqlite")
		}
		return cfg.Name, nil
	}
	return "", fmt.Errorf("unsupported db dialect: %s", cfg.Dialect)
}

// SessionStatements lists the statements that bound a session's waits.
func SessionStatements(d Dialect, t Timeouts) []string {
	switch d {
	case Postgres:
		var stmts []string
		if t.Statement > 0 {
			stmts = append(stmts, fmt.Sprintf("SET statement_timeout = %d", t.Statement.Milliseconds()))
		}
		if t.Lock > 0 {
			stmts = append(stmts, fmt.Sprintf("SET lock_timeout = %d", t.Lock.Milliseconds()))
		}
		if t.Idle > 0 {
			stmts = append(stmts, fmt.Sprintf("SET idle_in_transaction_session_timeout = %d", t.Idle.Milliseconds()))
		}
		return stmts
	case MSSQL:
		if t.Lock > 0 {
			return []string{fmt.Sprintf("SET LOCK_TIMEOUT %d", t.Lock.Milliseconds())}
		}
	}
	return nil
}

// Conn checks out a dedicated connection with the session timeouts applied.
// The caller must Close it.
func (db *Db) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	for _, stmt := range SessionStatements(db.Dialect, db.Timeouts) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return conn, nil
}
