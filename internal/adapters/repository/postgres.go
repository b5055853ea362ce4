package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/podium/internal/domain/model"
)

const (
	backendPostgres = "postgres"

	defaultMaxConns        = 10
	defaultMaxConnIdleTime = 5 * time.Minute
)

// PostgresStore reads roster and activity data from PostgreSQL and keeps
// viewed flags in the ceremony_views table. Monthly windows are evaluated in UTC.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the schema when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaUp); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Classes returns the classes of a league.
func (s *PostgresStore) Classes(ctx context.Context, league string) ([]model.Class, error) {
	defer observe(backendPostgres, "classes", time.Now())
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, avatar_ref, league
		FROM classes
		WHERE league = $1
		ORDER BY position, id`, league)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Class, error) {
		var c model.Class
		err := row.Scan(&c.ID, &c.Name, &c.AvatarRef, &c.League)
		return c, err
	})
}

// Students returns the students of a league, optionally narrowed to a class.
func (s *PostgresStore) Students(ctx context.Context, league, classID string) ([]model.Student, error) {
	defer observe(backendPostgres, "students", time.Now())
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, avatar_ref, class_id, league
		FROM students
		WHERE league = $1 AND ($2 = '' OR class_id = $2)
		ORDER BY position, id`, league, classID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Student, error) {
		var st model.Student
		err := row.Scan(&st.ID, &st.Name, &st.AvatarRef, &st.ClassID, &st.League)
		return st, err
	})
}

// MonthlyLogs returns every star log awarded inside the month.
func (s *PostgresStore) MonthlyLogs(ctx context.Context, year int, month time.Month) ([]model.LogRecord, error) {
	defer observe(backendPostgres, "logs", time.Now())
	key, err := model.NewMonthKey(year, month)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT student_id, amount, reason_tag, awarded_at
		FROM star_logs
		WHERE awarded_at >= $1 AND awarded_at < $2
		ORDER BY awarded_at, id`, monthArgs(key)...)
	if err != nil {
		return nil, fmt.Errorf("query star logs: %w", err)
	}
	return pgx.CollectRows(rows, scanLog)
}

// TrialsForScope returns the month's trials of a class, or of everyone when
// scopeID is empty.
func (s *PostgresStore) TrialsForScope(ctx context.Context, scopeID string, month model.MonthKey) ([]model.TrialRecord, error) {
	defer observe(backendPostgres, "trials", time.Now())
	rows, err := s.pool.Query(ctx, `
		SELECT t.student_id, t.taken_at, t.numeric_score, t.max_score, t.qualitative_tier
		FROM trials t
		JOIN students s ON s.id = t.student_id
		WHERE t.taken_at >= $1 AND t.taken_at < $2 AND ($3 = '' OR s.class_id = $3)
		ORDER BY t.taken_at, t.id`, append(monthArgs(month), scopeID)...)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	return pgx.CollectRows(rows, scanTrial)
}

// MarkViewed records the key. Duplicate marks are ignored.
func (s *PostgresStore) MarkViewed(ctx context.Context, key model.ViewedKey) error {
	defer observe(backendPostgres, "mark_viewed", time.Now())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ceremony_views (scope_id, month, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope_id, month, kind) DO NOTHING`, viewedArgs(key)...)
	if err != nil {
		return fmt.Errorf("mark viewed %s: %w", key, err)
	}
	return nil
}

// IsViewed reports whether the key was recorded.
func (s *PostgresStore) IsViewed(ctx context.Context, key model.ViewedKey) (bool, error) {
	defer observe(backendPostgres, "is_viewed", time.Now())
	var ok bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ceremony_views WHERE scope_id = $1 AND month = $2 AND kind = $3
		)`, viewedArgs(key)...).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("is viewed %s: %w", key, err)
	}
	return ok, nil
}

// monthArgs binds the half-open UTC window [start, end) of a month.
func monthArgs(month model.MonthKey) []any {
	return []any{month.Start(time.UTC), month.End(time.UTC)}
}

func viewedArgs(key model.ViewedKey) []any {
	return []any{key.ScopeID, key.Month.String(), string(key.Kind)}
}

// scanLog reads a star_logs row. pgx returns timestamptz in the local zone, so
// dates are moved to UTC to match the query window.
func scanLog(row pgx.CollectableRow) (model.LogRecord, error) {
	var l model.LogRecord
	if err := row.Scan(&l.EntityID, &l.Amount, &l.ReasonTag, &l.Date); err != nil {
		return l, err
	}
	l.Date = l.Date.UTC()
	return l, nil
}

func scanTrial(row pgx.CollectableRow) (model.TrialRecord, error) {
	var t model.TrialRecord
	if err := row.Scan(&t.EntityID, &t.Date, &t.NumericScore, &t.MaxScore, &t.QualitativeTier); err != nil {
		return t, err
	}
	t.Date = t.Date.UTC()
	return t, nil
}
