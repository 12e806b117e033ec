package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spacesedan/sentilyst/internal/models"
)

const ANALYZED_DATA_TABLE = "analyzed_data"

var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalyzedDataSchema creates the history table if it does not exist yet.
const AnalyzedDataSchema = `CREATE TABLE IF NOT EXISTS analyzed_data (
	id                UUID PRIMARY KEY,
	user_id           TEXT NOT NULL,
	query             TEXT NOT NULL,
	positive          DOUBLE PRECISION NOT NULL,
	negative          DOUBLE PRECISION NOT NULL,
	reddit_count      INTEGER NOT NULL DEFAULT 0,
	google_news_count INTEGER NOT NULL DEFAULT 0,
	source_counts     JSONB NOT NULL DEFAULT '{}'::jsonb,
	total_results     INTEGER NOT NULL DEFAULT 0,
	risk_level        DOUBLE PRECISION NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analyzed_data_user_created_idx ON analyzed_data (user_id, created_at DESC);`

var analyzedDataColumns = []string{
	"id", "user_id", "query", "positive", "negative", "reddit_count",
	"google_news_count", "source_counts", "total_results", "risk_level", "created_at",
}

// selectColumns mirrors analyzedDataColumns with id read back as text.
var selectColumns = append([]string{"id::text"}, analyzedDataColumns[1:]...)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps each user's analysis history in analyzed_data.
type PostgresStore struct {
	db  Querier
	psq sq.StatementBuilderType
	loc *time.Location
}

// NewPostgresStore renders created_at in loc when reading records back.
func NewPostgresStore(db Querier, loc *time.Location) *PostgresStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{
		db:  db,
		psq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		loc: loc,
	}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, AnalyzedDataSchema); err != nil {
		return fmt.Errorf("[Postgres] create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, record models.AnalysisRecord) error {
	query, args, err := s.insertQuery(record)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("[Postgres] insert analysis: %w", err)
	}

	slog.Debug("[Postgres] Saved analysis", slog.String("query", record.Query))
	return nil
}

func (s *PostgresStore) insertQuery(record models.AnalysisRecord) (string, []any, error) {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", nil, fmt.Errorf("[Postgres] generate id: %w", err)
		}
		record.ID = id.String()
	}

	createdAt, err := time.Parse(time.RFC3339, record.CreatedAt)
	if err != nil {
		return "", nil, fmt.Errorf("[Postgres] created_at %q: %w", record.CreatedAt, err)
	}

	sourceCounts := record.SourceCounts
	if sourceCounts == nil {
		sourceCounts = map[string]int{}
	}

	query, args, err := s.psq.Insert(ANALYZED_DATA_TABLE).
		Columns(analyzedDataColumns...).
		Values(record.ID, record.UserID, record.Query, record.Positive, record.Negative,
			record.RedditCount, record.GoogleNewsCount, sourceCounts, record.TotalResults,
			record.RiskLevel, createdAt).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("[Postgres] build insert: %w", err)
	}
	return query, args, nil
}

// ListAnalyses returns userID's records, newest first.
func (s *PostgresStore) ListAnalyses(ctx context.Context, userID string) ([]models.AnalysisRecord, error) {
	query, args, err := s.listQuery(userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("[Postgres] list analyses: %w", err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		var (
			r         models.AnalysisRecord
			createdAt time.Time
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Query, &r.Positive, &r.Negative,
			&r.RedditCount, &r.GoogleNewsCount, &r.SourceCounts, &r.TotalResults,
			&r.RiskLevel, &createdAt); err != nil {
			return nil, fmt.Errorf("[Postgres] scan analysis: %w", err)
		}
		r.CreatedAt = createdAt.In(s.loc).Format(time.RFC3339)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[Postgres] rows iteration: %w", err)
	}

	return records, nil
}

func (s *PostgresStore) listQuery(userID string) (string, []any, error) {
	query, args, err := s.psq.Select(selectColumns...).
		From(ANALYZED_DATA_TABLE).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("[Postgres] build select: %w", err)
	}
	return query, args, nil
}

// DeleteAnalysis removes one of userID's records. Another user's id is
// indistinguishable from a missing one.
func (s *PostgresStore) DeleteAnalysis(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrAnalysisNotFound
	}

	query, args, err := s.deleteQuery(userID, id)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("[Postgres] delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (s *PostgresStore) deleteQuery(userID, id string) (string, []any, error) {
	query, args, err := s.psq.Delete(ANALYZED_DATA_TABLE).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("[Postgres] build delete: %w", err)
	}
	return query, args, nil
}
