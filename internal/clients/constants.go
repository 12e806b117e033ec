package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 32 * time.Second
	USER_AGENT      = "sentilyst-bot/0.1 (+https://github.com/spacesedan/sentilyst)"

	DEFAULT_HTTP_TIMEOUT = 15 * time.Second
)
