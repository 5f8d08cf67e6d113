package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"ResearchPosts/internal/domain"
	"ResearchPosts/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	processedTable = "processed_posts"
)

const createProcessedTable = `CREATE TABLE IF NOT EXISTS processed_posts (
	dedup_key    TEXT PRIMARY KEY,
	permalink    TEXT NOT NULL DEFAULT '',
	paper_source TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
)`

// SQLRepository persists processed posts into Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ProcessedRepository = (*SQLRepository)(nil)

// OpenDatabase opens and pings a database for one of the supported drivers.
func OpenDatabase(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// NewSQLRepository wires a sql.DB implementation; driver selects the placeholder style.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// EnsureSchema creates the history table when missing.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createProcessedTable); err != nil {
		return fmt.Errorf("create %s: %w", processedTable, err)
	}
	return nil
}

// AlreadyProcessed returns the subset of keys that already exist in storage.
func (r *SQLRepository) AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error) {
	if r.db == nil || len(keys) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.builder.
		Select("dedup_key").
		From(processedTable).
		Where(sq.Eq{"dedup_key": keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build processed query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan key: %w", err)
		}
		result[key] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// SaveProcessed upserts the processed post snapshot.
func (r *SQLRepository) SaveProcessed(ctx context.Context, post domain.ProcessedPost) error {
	if r.db == nil {
		return nil
	}

	now := r.now().UTC()
	query, args, err := r.builder.
		Insert(processedTable).
		Columns("dedup_key", "permalink", "paper_source", "summary", "tags", "status", "created_at", "updated_at").
		Values(post.Key, post.Permalink, string(post.PaperSource), post.Summary, strings.Join(post.Tags, ","), string(post.Status), now, now).
		Suffix(`ON CONFLICT (dedup_key) DO UPDATE
			SET summary = EXCLUDED.summary,
			    tags = EXCLUDED.tags,
			    status = EXCLUDED.status,
			    updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}

	return nil
}

// lookup loads a stored snapshot by key.
func (r *SQLRepository) lookup(ctx context.Context, key string) (domain.ProcessedPost, bool, error) {
	if r.db == nil {
		return domain.ProcessedPost{}, false, nil
	}

	query, args, err := r.builder.
		Select("dedup_key", "permalink", "paper_source", "summary", "tags", "status", "created_at", "updated_at").
		From(processedTable).
		Where(sq.Eq{"dedup_key": key}).
		ToSql()
	if err != nil {
		return domain.ProcessedPost{}, false, fmt.Errorf("build lookup: %w", err)
	}

	var (
		post         domain.ProcessedPost
		source, tags string
		status       string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&post.Key, &post.Permalink, &source, &post.Summary, &tags, &status, &post.CreatedAt, &post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.ProcessedPost{}, false, nil
	}
	if err != nil {
		return domain.ProcessedPost{}, false, fmt.Errorf("lookup processed: %w", err)
	}

	post.PaperSource = domain.ParseSourceDomain(source)
	post.Status = domain.ProcessingStatus(status)
	if tags != "" {
		post.Tags = strings.Split(tags, ",")
	}
	return post, true, nil
}
