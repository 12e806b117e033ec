package kafka_client

import "time"

const (
	KAFKA_TOPIC_SENTIMENT_RESULTS = "sentiment-results" // one event per completed analysis
)

const (
	DELIVERY_TIMEOUT = 5 * time.Second
	FLUSH_TIMEOUT_MS = 5000
	MAX_RETRIES      = 3
)
