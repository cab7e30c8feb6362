package publish

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ryansname/switchsum/src/config"
)

// Rows per INSERT statement, well under the 65535 bind parameter limit
const postgresChunk = 1000

// execer is the part of pgx.Conn the sink uses
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Postgres stores report rows as JSONB, one table row per report row
type Postgres struct {
	conn  *pgx.Conn
	db    execer
	table string
}

// NewPostgres connects and creates the table if needed
func NewPostgres(ctx context.Context, cfg config.Postgres) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	s := &Postgres{conn: conn, db: conn, table: pgx.Identifier{cfg.Table}.Sanitize()}
	if _, err := s.db.Exec(ctx, createTableSQL(s.table)); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("postgres create %s: %w", s.table, err)
	}
	return s, nil
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	run_id      uuid    NOT NULL,
	scenario_id integer NOT NULL,
	report      text    NOT NULL,
	row_num     integer NOT NULL,
	data        jsonb   NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, report, row_num)
)`
}

// Name implements Publisher
func (s *Postgres) Name() string { return "postgres" }

// insertStatements builds chunked multi-row inserts for b
func insertStatements(table string, b Batch) ([]string, [][]any, error) {
	var (
		queries []string
		args    [][]any
	)
	records := b.Records()
	for start := 0; start < len(records); start += postgresChunk {
		end := min(start+postgresChunk, len(records))
		q := sq.Insert(table).
			Columns("run_id", "scenario_id", "report", "row_num", "data").
			PlaceholderFormat(sq.Dollar)
		for i := start; i < end; i++ {
			data, err := json.Marshal(records[i])
			if err != nil {
				return nil, nil, err
			}
			q = q.Values(b.RunID, b.ScenarioID, b.Report, i, string(data))
		}
		sql, a, err := q.ToSql()
		if err != nil {
			return nil, nil, err
		}
		queries = append(queries, sql)
		args = append(args, a)
	}
	return queries, args, nil
}

// Publish implements Publisher
func (s *Postgres) Publish(ctx context.Context, batches []Batch) error {
	for _, b := range batches {
		queries, args, err := insertStatements(s.table, b)
		if err != nil {
			return err
		}
		for i, q := range queries {
			if _, err := s.db.Exec(ctx, q, args[i]...); err != nil {
				return fmt.Errorf("postgres insert %s: %w", b.Report, err)
			}
		}
	}
	return nil
}

// Close implements Publisher
func (s *Postgres) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close(context.Background())
}
