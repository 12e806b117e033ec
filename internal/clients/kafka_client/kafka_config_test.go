package kafka_client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentilyst/internal/clients/kafka_client/utils"
	"github.com/spacesedan/sentilyst/internal/models"
)

func TestKafkaConfig(t *testing.T) {
	assert.False(t, KafkaConfig{}.Enabled())
	assert.True(t, KafkaConfig{Broker: "localhost:9092"}.Enabled())

	assert.Equal(t, KAFKA_TOPIC_SENTIMENT_RESULTS, KafkaConfig{}.topic())
	assert.Equal(t, "custom", KafkaConfig{Topic: "custom"}.topic())
}

func TestEventPayload(t *testing.T) {
	event := models.AnalysisEvent{
		Query:           "Acme  Corp",
		SentimentCounts: models.SentimentCounts{Positive: 2, Negative: 1},
		RiskLevel:       53.49,
		TotalResults:    3,
		AnalyzedAt:      time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC),
	}

	payload, err := utils.SerializeToJSON(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "Acme  Corp", decoded["query"])
	assert.Equal(t, 53.49, decoded["risk_level"])
	assert.Equal(t, "2025-03-01T20:00:00Z", decoded["analyzed_at"])

	assert.Equal(t, []byte("acme corp"), utils.EventKey(event.Query))
	assert.Equal(t, utils.EventKey("ACME corp"), utils.EventKey(" acme   Corp "))
}
