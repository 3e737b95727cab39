package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the registry to the Pushgateway at url under job. An empty url
// disables pushing. A short-lived CLI cannot be scraped, so this replaces a
// /metrics endpoint.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	slog.Debug("metrics pushed", "url", url, "job", job)
	return nil
}
