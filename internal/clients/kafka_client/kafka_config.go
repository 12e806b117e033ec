package kafka_client

type KafkaConfig struct {
	Broker string
	Topic  string
}

// Enabled reports whether a broker is configured.
func (c KafkaConfig) Enabled() bool {
	return c.Broker != ""
}

func (c KafkaConfig) topic() string {
	if c.Topic == "" {
		return KAFKA_TOPIC_SENTIMENT_RESULTS
	}
	return c.Topic
}
