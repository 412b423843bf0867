package status

import (
	"log"

	"github.com/posthog/posthog-go"

	"github.com/forgeloop-io/forgeloop/internal/models"
)

// TelemetrySink captures terminal outcomes as analytics events. Opt-in via
// settings; progress noise is never sent, only KindTerminal.
type TelemetrySink struct {
	client     posthog.Client
	distinctID string
}

// NewTelemetrySink creates a telemetry sink, or nil when telemetry is
// disabled or misconfigured. A nil return is safe to skip when composing
// the sink chain.
func NewTelemetrySink(cfg models.TelemetrySettings, distinctID string) *TelemetrySink {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://us.i.posthog.com"
	}
	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		log.Printf("[telemetry] disabled: %v", err)
		return nil
	}
	return &TelemetrySink{client: client, distinctID: distinctID}
}

// Notify implements Sink.
func (t *TelemetrySink) Notify(ev Event) {
	if ev.Kind != KindTerminal {
		return
	}
	err := t.client.Enqueue(posthog.Capture{
		DistinctId: t.distinctID,
		Event:      "run_completed",
		Properties: posthog.NewProperties().
			Set("workspace_id", ev.WorkspaceID).
			Set("message", ev.Message),
	})
	if err != nil {
		log.Printf("[telemetry] enqueue failed: %v", err)
	}
}

// Close flushes pending telemetry events.
func (t *TelemetrySink) Close() {
	if err := t.client.Close(); err != nil {
		log.Printf("[telemetry] close failed: %v", err)
	}
}
