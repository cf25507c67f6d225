package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

const boardSchema = `
CREATE TABLE IF NOT EXISTS board_tasks (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	status      TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    TEXT NOT NULL DEFAULT '',
	tags        TEXT[] NOT NULL DEFAULT '{}',
	priority    TEXT NOT NULL DEFAULT ''
)`

const selectTasksSQL = `
SELECT id, title, status, description, due_date, tags, priority
FROM board_tasks
ORDER BY position, id`

const upsertTaskSQL = `
INSERT INTO board_tasks (id, position, title, status, description, due_date, tags, priority)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	position = EXCLUDED.position,
	title = EXCLUDED.title,
	status = EXCLUDED.status,
	description = EXCLUDED.description,
	due_date = EXCLUDED.due_date,
	tags = EXCLUDED.tags,
	priority = EXCLUDED.priority`

const deleteStaleSQL = `DELETE FROM board_tasks WHERE NOT (id = ANY($1))`

// pgDB is the part of *pgxpool.Pool used by Postgres.
type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres keeps one row per task in board_tasks, ordered by position.
type Postgres struct {
	db    pgDB
	close func()
}

// NewPostgres connects a pool to dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: pool, close: pool.Close}, nil
}

func (p *Postgres) Close() {
	if p.close != nil {
		p.close()
	}
}

// EnsureSchema creates the board_tasks table when it is missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, boardSchema); err != nil {
		return fmt.Errorf("create board_tasks: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) ([]domain.Task, error) {
	rows, err := p.db.Query(ctx, selectTasksSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		var (
			t        domain.Task
			status   string
			priority string
		)
		if err := rows.Scan(&t.ID, &t.Title, &status, &t.Description, &t.DueDate, &t.Tags, &priority); err != nil {
			return nil, err
		}
		t.Status = domain.Status(status)
		t.Priority = domain.Priority(priority)
		if len(t.Tags) == 0 {
			t.Tags = nil
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (p *Postgres) Save(ctx context.Context, tasks []domain.Task) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		queueSnapshot(batch, tasks)
		return tx.SendBatch(ctx, batch).Close()
	})
}

// queueSnapshot queues one upsert per task followed by the removal of rows
// that are no longer on the board.
func queueSnapshot(batch *pgx.Batch, tasks []domain.Task) {
	ids := make([]string, 0, len(tasks))
	for i, t := range tasks {
		batch.Queue(upsertTaskSQL, upsertArgs(i, t)...)
		ids = append(ids, t.ID)
	}
	batch.Queue(deleteStaleSQL, ids)
}

func upsertArgs(position int, t domain.Task) []any {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{t.ID, position, t.Title, string(t.Status), t.Description, t.DueDate, tags, string(t.Priority)}
}
