package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// PostgresSink appends batches to Postgres tables. A connection is opened for
// each Append and closed before it returns.
type PostgresSink struct {
	connStr string
}

func NewPostgresSink(connStr string) *PostgresSink {
	return &PostgresSink{connStr: connStr}
}

func (s *PostgresSink) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, s.connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return conn, nil
}

func (s *PostgresSink) Ping(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}

// Append inserts rows within a single transaction. The table is created on
// first use; existing tables are never altered or truncated.
func (s *PostgresSink) Append(ctx context.Context, table string, columns []string, rows [][]any) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, CreateTableSQL(table, strings.HasSuffix(table, "_uncleaned"))); err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}

	insert := InsertSQL(table, columns)
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insert, row...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return tx.Commit(ctx)
}

// CreateTableSQL returns the idempotent DDL for a dataset table. Raw tables keep
// the scraped text in every column except the date.
func CreateTableSQL(table string, raw bool) string {
	numeric := "double precision"
	if raw {
		numeric = "text"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		model text,
		"price_USD" %s,
		brand text,
		"ram_GB" %s,
		"gpu_clock_speed_MHz" %s,
		date date
	)`, pgx.Identifier{table}.Sanitize(), numeric, numeric, numeric)
}

// InsertSQL returns a parameterized insert for columns.
func InsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(), strings.Join(quoted, ", "), strings.Join(params, ", "))
}
