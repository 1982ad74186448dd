package llm

import (
	"strings"
	"time"
)

// DefaultTemperature keeps generation close to the retrieved context.
const DefaultTemperature = 0.2

// Options holds settings shared by the embedding and generation clients.
type Options struct {
	// MaxRetries bounds automatic retries on 408/409/429/5xx responses and connection errors.
	MaxRetries int

	// RequestTimeout bounds each HTTP attempt. Zero means no per-attempt limit;
	// callers still bound the whole call through the context.
	RequestTimeout time.Duration
}

// apiBaseURL turns a server root such as http://localhost:8080 into the
// OpenAI-compatible API root http://localhost:8080/v1/.
func apiBaseURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/"
	}
	return base + "/v1/"
}
