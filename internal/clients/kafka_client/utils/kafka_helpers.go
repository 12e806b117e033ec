package utils

import (
	"encoding/json"
	"log/slog"
	"strings"
)

func SerializeToJSON(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("[KafkaUtils] Failed to serialize JSON",
			slog.String("error", err.Error()))
		return nil, err
	}
	return data, nil
}

// EventKey normalizes a query into a message key so events for the same
// query land on the same partition.
func EventKey(query string) []byte {
	return []byte(strings.ToLower(strings.Join(strings.Fields(query), " ")))
}
