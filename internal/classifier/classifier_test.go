package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentilyst/internal/models"
)

type fakeBackend struct {
	labels    []string
	loadErr   error
	loadDelay time.Duration
	logitsErr error
	// mangle lets a test corrupt the rows returned for a batch.
	mangle func([][]float64) [][]float64

	loads atomic.Int32
	mu    sync.Mutex
	calls []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{labels: []string{"NEGATIVE", "NEUTRAL", "POSITIVE"}}
}

func (f *fakeBackend) Load(context.Context) error {
	time.Sleep(f.loadDelay)
	f.loads.Add(1)
	return f.loadErr
}

func (f *fakeBackend) Labels() []string { return f.labels }

func (f *fakeBackend) Logits(_ context.Context, texts []string) ([][]float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, len(texts))
	f.mu.Unlock()

	if f.logitsErr != nil {
		return nil, f.logitsErr
	}

	rows := make([][]float64, len(texts))
	for i, text := range texts {
		row := make([]float64, len(f.labels))
		switch {
		case strings.Contains(text, "good"):
			row[len(row)-1] = 3
		case strings.Contains(text, "bad"):
			row[0] = 3
		default:
			row[len(row)/2] = 1
		}
		rows[i] = row
	}
	if f.mangle != nil {
		rows = f.mangle(rows)
	}
	return rows, nil
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func sampleTexts(n int) []string {
	words := []string{"good news", "bad news", "plain news"}
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("%s #%d", words[i%len(words)], i)
	}
	return texts
}

func TestClassify(t *testing.T) {
	c, err := New(newFakeBackend(), Options{})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "good quarter")
	require.NoError(t, err)
	assert.Equal(t, models.LabelPositive, got.Label)
	// softmax([0, 0, 3])[2]
	assert.InDelta(t, 0.9094, got.Confidence, 1e-4)
	assert.True(t, c.Ready())
}

func TestClassifyBatch_BatchSizeInvariance(t *testing.T) {
	const n = 45
	texts := sampleTexts(n)

	baseline, err := mustClassifier(t, newFakeBackend(), 1).ClassifyBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, baseline, n)

	for _, size := range []int{1, 7, 32, n, n + 10} {
		t.Run(fmt.Sprintf("batch size %d", size), func(t *testing.T) {
			backend := newFakeBackend()
			got, err := mustClassifier(t, backend, size).ClassifyBatch(context.Background(), texts)
			require.NoError(t, err)
			assert.Equal(t, baseline, got)

			calls := backend.batchSizes()
			assert.Len(t, calls, (n+size-1)/size)
			total := 0
			for _, c := range calls {
				assert.LessOrEqual(t, c, size)
				total += c
			}
			assert.Equal(t, n, total)
		})
	}
}

func TestClassifyBatch_PreservesOrder(t *testing.T) {
	got, err := mustClassifier(t, newFakeBackend(), 2).ClassifyBatch(context.Background(),
		[]string{"bad", "good", "meh", "good", "bad"})
	require.NoError(t, err)

	labels := make([]models.SentimentLabel, len(got))
	for i, r := range got {
		labels[i] = r.Label
	}
	assert.Equal(t, []models.SentimentLabel{
		models.LabelNegative, models.LabelPositive, models.LabelNeutral, models.LabelPositive, models.LabelNegative,
	}, labels)
}

func TestClassifyBatch_EmptyDoesNotLoad(t *testing.T) {
	backend := newFakeBackend()
	got, err := mustClassifier(t, backend, 4).ClassifyBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, backend.loads.Load())
}

func TestClassifier_LabelAliases(t *testing.T) {
	backend := newFakeBackend()
	backend.labels = []string{"LABEL_0", "LABEL_1", "LABEL_2"}

	t.Run("mapped", func(t *testing.T) {
		c, err := New(backend, Options{LabelAliases: map[string]string{
			"LABEL_0": "negative",
			"label_1": "Neutral",
			"LABEL_2": "positive",
		}})
		require.NoError(t, err)

		got, err := c.Classify(context.Background(), "bad")
		require.NoError(t, err)
		assert.Equal(t, models.LabelNegative, got.Label)
	})

	t.Run("unmapped", func(t *testing.T) {
		c, err := New(backend, Options{})
		require.NoError(t, err)

		_, err = c.Classify(context.Background(), "bad")
		assert.ErrorIs(t, err, ErrClassifierUnavailable)
		assert.False(t, c.Ready())
	})
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New(newFakeBackend(), Options{LabelAliases: map[string]string{"LABEL_0": "angry"}})
	assert.Error(t, err)

	c, err := New(newFakeBackend(), Options{BatchSize: -3})
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, c.BatchSize())
}

func TestClassifier_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	backend := newFakeBackend()
	backend.loadDelay = 20 * time.Millisecond
	c := mustClassifier(t, backend, 8)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ClassifyBatch(context.Background(), sampleTexts(10))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), backend.loads.Load())
}

func TestClassifier_FailedLoadCanBeRetried(t *testing.T) {
	backend := newFakeBackend()
	backend.loadErr = errors.New("model missing")
	c := mustClassifier(t, backend, 8)

	_, err := c.Classify(context.Background(), "good")
	require.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.Contains(t, err.Error(), "model missing")

	backend.loadErr = nil
	require.NoError(t, c.WarmUp(context.Background()))
	assert.True(t, c.Ready())
	assert.Equal(t, int32(2), backend.loads.Load())
}

func TestClassifyBatch_MalformedOutput(t *testing.T) {
	tests := []struct {
		name   string
		mangle func([][]float64) [][]float64
	}{
		{"missing row", func(rows [][]float64) [][]float64 { return rows[1:] }},
		{"extra row", func(rows [][]float64) [][]float64 { return append(rows, rows[0]) }},
		{"narrow row", func(rows [][]float64) [][]float64 { rows[0] = rows[0][:2]; return rows }},
		{"empty row", func(rows [][]float64) [][]float64 { rows[1] = nil; return rows }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.mangle = tt.mangle

			_, err := mustClassifier(t, backend, 8).ClassifyBatch(context.Background(), sampleTexts(3))
			assert.ErrorIs(t, err, ErrClassification)
		})
	}
}

func TestClassifyBatch_BackendError(t *testing.T) {
	backend := newFakeBackend()
	backend.logitsErr = errors.New("onnx exploded")

	_, err := mustClassifier(t, backend, 8).ClassifyBatch(context.Background(), sampleTexts(3))
	require.ErrorIs(t, err, ErrClassification)
	assert.NotErrorIs(t, err, ErrClassifierUnavailable)
	assert.Contains(t, err.Error(), "onnx exploded")
}

func mustClassifier(t *testing.T, backend Backend, batchSize int) *Classifier {
	t.Helper()
	c, err := New(backend, Options{BatchSize: batchSize})
	require.NoError(t, err)
	return c
}
