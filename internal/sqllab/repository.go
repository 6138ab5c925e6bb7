package sqllab

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"sql-lab/pkg/api"
	"sql-lab/pkg/db"
)

type Repository struct {
	db *db.Db
}

func NewRepository(conn *db.Db) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Dialect() db.Dialect {
	return r.db.Dialect
}

func anyToJSONSafe(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
		return map[string]any{
			"type":   "bytes",
			"base64": base64.StdEncoding.EncodeToString(x),
		}
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return x
	}
}

func scanResultSets(rows *sql.Rows) ([]ResultSet, int, error) {
	totalRows := 0
	var resultSets []ResultSet

	for {
		cols, err := rows.Columns()
		if err != nil {
			return nil, 0, err
		}

		rs := ResultSet{
			Columns: cols,
			Rows:    make([]map[string]any, 0, 64),
		}

		for rows.Next() {
			totalRows++

			raw := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range raw {
				ptrs[i] = &raw[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, 0, err
			}

			rowMap := make(map[string]any, len(cols))
			for i, c := range cols {
				rowMap[c] = anyToJSONSafe(raw[i])
			}
			rs.Rows = append(rs.Rows, rowMap)
		}

		if err := rows.Err(); err != nil {
			return nil, 0, err
		}

		resultSets = append(resultSets, rs)

		if !rows.NextResultSet() {
			break
		}
	}

	return resultSets, totalRows, nil
}

// Query runs query on a dedicated connection with the session timeouts set.
func (r *Repository) Query(ctx context.Context, query string) (*QueryResult, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer conn.Close()

	start := time.Now()
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resultSets, totalRows, err := scanResultSets(rows)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		ResultSets: resultSets,
		RowsTotal:  totalRows,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

type introspectionQueries struct {
	schema  string
	tables  string
	columns string
}

// Every columns query yields column_name, data_type, is_nullable (YES/NO)
// and column_default for the table bound to its single parameter.
func buildIntrospectionQueries(dialect db.Dialect) (introspectionQueries, error) {
	switch dialect {
	case db.Postgres:
		return introspectionQueries{
			schema: "SELECT 'public'",
			tables: `SELECT table_name FROM information_schema.tables
				WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
				ORDER BY table_name`,
			columns: `SELECT column_name, data_type, is_nullable, column_default
				FROM information_schema.columns
				WHERE table_schema = 'public' AND table_name = $1
				ORDER BY ordinal_position`,
		}, nil
	case db.MSSQL:
		return introspectionQueries{
			schema: "SELECT SCHEMA_NAME()",
			tables: `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
				WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_TYPE = 'BASE TABLE'
				ORDER BY TABLE_NAME`,
			columns: `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT
				FROM INFORMATION_SCHEMA.COLUMNS
				WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1
				ORDER BY ORDINAL_POSITION`,
		}, nil
	case db.HANA:
		return introspectionQueries{
			schema: "SELECT CURRENT_SCHEMA FROM DUMMY",
			tables: `SELECT TABLE_NAME FROM SYS.TABLES
				WHERE SCHEMA_NAME = CURRENT_SCHEMA
				ORDER BY TABLE_NAME`,
			columns: `SELECT COLUMN_NAME, DATA_TYPE_NAME,
					CASE WHEN IS_NULLABLE = 'TRUE' THEN 'YES' ELSE 'NO' END,
					DEFAULT_VALUE
				FROM SYS.TABLE_COLUMNS
				WHERE SCHEMA_NAME = CURRENT_SCHEMA AND TABLE_NAME = ?
				ORDER BY POSITION`,
		}, nil
	case db.SQLite:
		return introspectionQueries{
			schema: "SELECT 'main'",
			tables: `SELECT name FROM sqlite_master
				WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
				ORDER BY name`,
			columns: `SELECT name, type,
					CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END,
					dflt_value
				FROM pragma_table_info(?)
				ORDER BY cid`,
		}, nil
	}
	return introspectionQueries{}, fmt.Errorf("unsupported db dialect: %s", dialect)
}

// Introspect lists the base tables of the default schema with their columns.
func (r *Repository) Introspect(ctx context.Context) (*api.IntrospectResponse, error) {
	q, err := buildIntrospectionQueries(r.db.Dialect)
	if err != nil {
		return nil, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer conn.Close()

	out := &api.IntrospectResponse{Tables: map[string][]api.ColumnInfo{}}
	if err := conn.QueryRowContext(ctx, q.schema).Scan(&out.Schema); err != nil {
		return nil, err
	}

	tables, err := queryStrings(ctx, conn, q.tables)
	if err != nil {
		return nil, err
	}

	for _, table := range tables {
		cols, err := queryColumns(ctx, conn, q.columns, table)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table, err)
		}
		out.Tables[table] = cols
	}
	return out, nil
}

func queryStrings(ctx context.Context, conn *sql.Conn, query string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryColumns(ctx context.Context, conn *sql.Conn, query, table string) ([]api.ColumnInfo, error) {
	rows, err := conn.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make([]api.ColumnInfo, 0, 8)
	for rows.Next() {
		var (
			c   api.ColumnInfo
			def sql.NullString
		)
		if err := rows.Scan(&c.ColumnName, &c.DataType, &c.IsNullable, &def); err != nil {
			return nil, err
		}
		if def.Valid {
			c.ColumnDefault = &def.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}
