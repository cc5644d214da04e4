package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const taskCols = `id, text, completed, created_at, scheduled_for, owner`

func (s *sqliteStore) Create(ctx context.Context, text string, scheduledFor *time.Time, owner string) (task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return task.Task{}, task.ErrEmptyText
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(text, completed, created_at, scheduled_for, owner) VALUES(?,?,?,?,?)`,
		text, 0, now.Format(time.RFC3339Nano), timeOrNull(scheduledFor), owner,
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	return s.Get(ctx, id)
}

func (s *sqliteStore) List(ctx context.Context, owner string) ([]task.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks`
	args := []any{}
	if owner != "" {
		q += ` WHERE owner = ?`
		args = append(args, owner)
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	defer rows.Close()

	out := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, id int64) (task.Task, error) {
	return getTask(ctx, s.db, id)
}

func (s *sqliteStore) Update(ctx context.Context, id int64, u task.Update) (task.Task, error) {
	if u.Text != nil && strings.TrimSpace(*u.Text) == "" {
		return task.Task{}, task.ErrEmptyText
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return task.Task{}, err
	}
	u.Apply(&t)
	t.Text = strings.TrimSpace(t.Text)

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET text = ?, completed = ?, scheduled_for = ? WHERE id = ?`,
		t.Text, boolInt(t.Completed), timeOrNull(t.ScheduledFor), id,
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	if err := tx.Commit(); err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	return t, nil
}

func (s *sqliteStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	return n > 0, nil
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, actor, action, task_id, detail, err) VALUES(?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), nullStr(e.Actor), e.Action, e.TaskID, nullStr(e.Detail), nullStr(e.Error),
	)
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getTask(ctx context.Context, q queryer, id int64) (task.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: %d", task.ErrNotFound, id)
	}
	return t, err
}

func scanTask(sc scanner) (task.Task, error) {
	var (
		t         task.Task
		completed int
		created   string
		scheduled sql.NullString
	)
	if err := sc.Scan(&t.ID, &t.Text, &completed, &created, &scheduled, &t.Owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	t.Completed = completed != 0
	at, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return t, fmt.Errorf("%w: task %d created_at: %v", task.ErrStore, t.ID, err)
	}
	t.CreatedAt = at
	if scheduled.Valid && scheduled.String != "" {
		at, err := time.Parse(time.RFC3339Nano, scheduled.String)
		if err != nil {
			return t, fmt.Errorf("%w: task %d scheduled_for: %v", task.ErrStore, t.ID, err)
		}
		t.ScheduledFor = &at
	}
	return t, nil
}

func timeOrNull(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
