package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelineBackends"
	"github.com/knights-analytics/hugot/pipelines"
)

const hugotPipelineName = "sentimentClassificationPipeline"

// minProbability keeps log() finite for labels the model scored at zero.
const minProbability = 1e-9

// HugotBackend runs an ONNX sequence-classification model in process through
// ONNX Runtime. The model is downloaded into ModelDir on first load. Inputs
// longer than MaxTokens tokens, special tokens included, are cut before
// inference.
type HugotBackend struct {
	ModelName string
	ModelDir  string
	MaxTokens int

	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	labels   []string
	index    map[string]int
}

func NewHugotBackend(modelName, modelDir string, maxTokens int) *HugotBackend {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &HugotBackend{ModelName: modelName, ModelDir: modelDir, MaxTokens: maxTokens}
}

func (h *HugotBackend) modelPath() string {
	return filepath.Join(h.ModelDir, strings.ReplaceAll(h.ModelName, "/", "_"))
}

func (h *HugotBackend) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pipeline != nil {
		return nil
	}

	if err := os.MkdirAll(h.ModelDir, os.ModePerm); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	modelPath := h.modelPath()
	if _, err := os.Stat(modelPath); errors.Is(err, os.ErrNotExist) {
		slog.Info("[HugotBackend] Model not found, downloading...",
			slog.String("model", h.ModelName))
		downloaded, err := hugot.DownloadModel(h.ModelName, h.ModelDir, hugot.NewDownloadOptions())
		if err != nil {
			return fmt.Errorf("download model %s: %w", h.ModelName, err)
		}
		modelPath = downloaded
		slog.Info("[HugotBackend] Model downloaded successfully", slog.String("path", modelPath))
	} else {
		slog.Info("[HugotBackend] Using existing model", slog.String("path", modelPath))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return fmt.Errorf("initialize hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      hugotPipelineName,
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
			pipelines.WithMultiLabel(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("initialize classification pipeline: %w", err)
	}

	// Truncation needs token offsets and the special-token mask.
	pipelineBackends.AllInputTokens(pipeline.BasePipeline)

	// Multi-label output scores every class, so one run reveals the label set.
	sample, err := pipeline.RunPipeline([]string{warmUpText})
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("sample classification pipeline: %w", err)
	}
	if len(sample.ClassificationOutputs) != 1 || len(sample.ClassificationOutputs[0]) == 0 {
		_ = session.Destroy()
		return errors.New("sample run returned no class scores")
	}

	labels := make([]string, 0, len(sample.ClassificationOutputs[0]))
	index := make(map[string]int, cap(labels))
	for i, out := range sample.ClassificationOutputs[0] {
		labels = append(labels, out.Label)
		index[out.Label] = i
	}

	h.session = session
	h.pipeline = pipeline
	h.labels = labels
	h.index = index
	return nil
}

func (h *HugotBackend) Labels() []string {
	return h.labels
}

// Logits returns ln(p) per class; softmax over these reproduces the
// pipeline's probabilities.
func (h *HugotBackend) Logits(ctx context.Context, texts []string) ([][]float64, error) {
	if h.pipeline == nil {
		return nil, errors.New("hugot backend not loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := h.pipeline.RunPipeline(h.truncate(texts))
	if err != nil {
		return nil, err
	}
	if len(output.ClassificationOutputs) != len(texts) {
		return nil, fmt.Errorf("pipeline returned %d outputs for %d texts",
			len(output.ClassificationOutputs), len(texts))
	}

	logits := make([][]float64, len(texts))
	for i, scores := range output.ClassificationOutputs {
		row := make([]float64, len(h.labels))
		for j := range row {
			row[j] = math.Log(minProbability)
		}
		for _, s := range scores {
			j, ok := h.index[s.Label]
			if !ok {
				return nil, fmt.Errorf("pipeline returned unknown label %q", s.Label)
			}
			row[j] = math.Log(math.Max(float64(s.Score), minProbability))
		}
		logits[i] = row
	}
	return logits, nil
}

// truncate cuts every text that tokenizes to more than MaxTokens tokens.
func (h *HugotBackend) truncate(texts []string) []string {
	batch := pipelineBackends.NewBatch()
	pipelineBackends.TokenizeInputs(batch, h.pipeline.Model.Tokenizer, texts)
	if len(batch.Input) != len(texts) {
		return texts
	}

	out := make([]string, len(texts))
	for i, in := range batch.Input {
		out[i] = truncateToTokens(texts[i], in.Offsets, in.SpecialTokensMask, h.MaxTokens)
		if len(out[i]) < len(texts[i]) {
			slog.Debug("[HugotBackend] Truncated input",
				slog.Int("tokens", len(in.TokenIDs)),
				slog.Int("max_tokens", h.MaxTokens))
		}
	}
	return out
}

// truncateToTokens keeps the prefix of text covered by as many content tokens
// as fit in maxTokens once the special tokens are counted. offsets are byte
// ranges into text, one per token; special marks tokens such as [CLS].
func truncateToTokens(text string, offsets [][2]uint, special []uint32, maxTokens int) string {
	if maxTokens <= 0 || len(offsets) <= maxTokens {
		return text
	}

	specials := 0
	for _, m := range special {
		if m != 0 {
			specials++
		}
	}
	budget := maxTokens - specials
	if budget <= 0 {
		return ""
	}

	kept := 0
	end := 0
	for i, off := range offsets {
		if i < len(special) && special[i] != 0 {
			continue
		}
		if kept == budget {
			break
		}
		kept++
		end = max(end, int(off[1]))
	}

	end = min(end, len(text))
	for end > 0 && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[:end]
}

func (h *HugotBackend) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	err := h.session.Destroy()
	h.session, h.pipeline = nil, nil
	return err
}
