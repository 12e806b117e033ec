package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentilyst/internal/models"
)

type fakeQuerier struct {
	tag     pgconn.CommandTag
	err     error
	sql     string
	args    []any
	execs   int
	queries int
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs++
	f.sql, f.args = sql, args
	return f.tag, f.err
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries++
	f.sql, f.args = sql, args
	return nil, f.err
}

func sampleRecord() models.AnalysisRecord {
	return models.AnalysisRecord{
		UserID:          "user-1",
		Query:           "acme",
		Positive:        33.33,
		Negative:        66.67,
		RedditCount:     2,
		GoogleNewsCount: 1,
		SourceCounts:    map[string]int{"reddit": 2, "google_news": 1},
		TotalResults:    3,
		RiskLevel:       53.49,
		CreatedAt:       "2025-03-01T15:04:05+05:30",
	}
}

func TestPostgresStore_InsertQuery(t *testing.T) {
	store := NewPostgresStore(&fakeQuerier{}, nil)

	query, args, err := store.insertQuery(sampleRecord())
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO analyzed_data (id,user_id,query,positive,negative")
	assert.Contains(t, query, "$11")
	require.Len(t, args, len(analyzedDataColumns))

	id, ok := args[0].(string)
	require.True(t, ok)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	assert.Equal(t, "user-1", args[1])
	assert.Equal(t, 53.49, args[9])
	createdAt, ok := args[10].(time.Time)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01T09:34:05Z", createdAt.UTC().Format(time.RFC3339))
}

func TestPostgresStore_InsertQueryKeepsIDAndDefaultsCounts(t *testing.T) {
	store := NewPostgresStore(&fakeQuerier{}, nil)
	record := sampleRecord()
	record.ID = "0190c0de-0000-7000-8000-000000000001"
	record.SourceCounts = nil

	_, args, err := store.insertQuery(record)
	require.NoError(t, err)
	assert.Equal(t, record.ID, args[0])
	assert.Equal(t, map[string]int{}, args[7])
}

func TestPostgresStore_SaveAnalysis(t *testing.T) {
	q := &fakeQuerier{tag: pgconn.NewCommandTag("INSERT 0 1")}
	store := NewPostgresStore(q, nil)

	require.NoError(t, store.SaveAnalysis(context.Background(), sampleRecord()))
	assert.Equal(t, 1, q.execs)

	q.err = errors.New("connection reset")
	err := store.SaveAnalysis(context.Background(), sampleRecord())
	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresStore_SaveAnalysisRejectsBadTimestamp(t *testing.T) {
	q := &fakeQuerier{}
	record := sampleRecord()
	record.CreatedAt = "2025-03-01"

	err := NewPostgresStore(q, nil).SaveAnalysis(context.Background(), record)
	require.Error(t, err)
	assert.Zero(t, q.execs)
}

func TestPostgresStore_ListQuery(t *testing.T) {
	store := NewPostgresStore(&fakeQuerier{}, nil)

	query, args, err := store.listQuery("user-1")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id::text, user_id, query, positive, negative, reddit_count, google_news_count, "+
			"source_counts, total_results, risk_level, created_at FROM analyzed_data "+
			"WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
		query)
	assert.Equal(t, []any{"user-1"}, args)
}

func TestPostgresStore_ListAnalysesQueryError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("relation does not exist")}

	_, err := NewPostgresStore(q, nil).ListAnalyses(context.Background(), "user-1")
	assert.ErrorContains(t, err, "relation does not exist")
	assert.Equal(t, 1, q.queries)
}

func TestPostgresStore_DeleteAnalysis(t *testing.T) {
	id := uuid.Must(uuid.NewV7()).String()

	tests := []struct {
		name    string
		id      string
		tag     string
		err     error
		want    error
		wantSQL bool
	}{
		{"deleted", id, "DELETE 1", nil, nil, true},
		{"missing", id, "DELETE 0", nil, ErrAnalysisNotFound, true},
		{"not a uuid", "42", "", nil, ErrAnalysisNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{tag: pgconn.NewCommandTag(tt.tag), err: tt.err}
			err := NewPostgresStore(q, nil).DeleteAnalysis(context.Background(), "user-1", tt.id)

			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantSQL {
				assert.Equal(t, "DELETE FROM analyzed_data WHERE id = $1 AND user_id = $2", q.sql)
				assert.Equal(t, []any{tt.id, "user-1"}, q.args)
			} else {
				assert.Zero(t, q.execs)
			}
		})
	}
}
