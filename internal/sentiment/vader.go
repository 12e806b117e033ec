package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// minProbability keeps log() finite for labels VADER scored at zero.
const minProbability = 1e-9

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := strings.Join(strings.Fields(stripTags(string(output))), " ")

	return RemoveLinks(plainText)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}

// VaderBackend is a lexicon classifier that needs no model download. It
// reports VADER's negative/neutral/positive proportions as log-probabilities.
type VaderBackend struct {
	once     sync.Once
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderBackend() *VaderBackend {
	return &VaderBackend{}
}

func (v *VaderBackend) Load(context.Context) error {
	v.once.Do(func() {
		v.analyzer = govader.NewSentimentIntensityAnalyzer()
	})
	return nil
}

func (v *VaderBackend) Labels() []string {
	return []string{"negative", "neutral", "positive"}
}

func (v *VaderBackend) Logits(ctx context.Context, texts []string) ([][]float64, error) {
	if err := v.Load(ctx); err != nil {
		return nil, err
	}

	logits := make([][]float64, len(texts))
	for i, text := range texts {
		scores := v.analyzer.PolarityScores(ConvertMarkdownToText(text))
		neg, neu, pos := scores.Negative, scores.Neutral, scores.Positive
		// nothing scorable reads as neutral
		if neg+neu+pos == 0 {
			neu = 1
		}
		logits[i] = []float64{logProb(neg), logProb(neu), logProb(pos)}
	}
	return logits, nil
}

func (v *VaderBackend) Close() error {
	return nil
}

func logProb(p float64) float64 {
	return math.Log(math.Max(p, minProbability))
}
