package cli

import (
	"fmt"

	"github.com/forgeloop-io/forgeloop/internal/budget"
	"github.com/forgeloop-io/forgeloop/internal/builder"
	"github.com/forgeloop-io/forgeloop/internal/config"
	"github.com/forgeloop-io/forgeloop/internal/fixlog"
	"github.com/forgeloop-io/forgeloop/internal/models"
	"github.com/forgeloop-io/forgeloop/internal/session"
	"github.com/forgeloop-io/forgeloop/internal/status"
	"github.com/forgeloop-io/forgeloop/internal/workspace"
)

// app wires the managers every command needs. Each component owns its own
// load/persist lifecycle; nothing here is a global.
type app struct {
	Settings   *models.Settings
	Workspaces *workspace.Manager
	Sessions   *session.Manager
	Fixes      *fixlog.Store
	Budget     *budget.Tracker
	Builders   *builder.Registry
	Sink       status.Sink

	async     *status.AsyncSink
	telemetry *status.TelemetrySink
}

// newApp loads settings and constructs the component graph, including the
// registry-removal cascade into sessions and fix logs.
func newApp() (*app, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	workspaces, err := workspace.NewManager()
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewManager()
	if err != nil {
		return nil, err
	}
	tracker, err := budget.NewTracker(settings.DailyCapUSD)
	if err != nil {
		return nil, err
	}

	fixes := fixlog.NewStore()

	// A renamed workspace keeps its session under the new id.
	workspaces.SubscribeRename(func(oldID, newID string) {
		if err := sessions.Rename(oldID, newID); err != nil {
			fmt.Println(styleWarning.Render(fmt.Sprintf("warning: failed to move session %s to %s: %v", oldID, newID, err)))
		}
	})

	// Removing a workspace drops its session and fix memory with it.
	workspaces.SubscribeRemoval(func(ws models.Workspace) {
		if err := sessions.Reset(ws.ID); err != nil {
			fmt.Println(styleWarning.Render(fmt.Sprintf("warning: failed to drop session for %s: %v", ws.ID, err)))
		}
		if err := fixes.Clear(ws.Root); err != nil {
			fmt.Println(styleWarning.Render(fmt.Sprintf("warning: failed to clear fix log for %s: %v", ws.ID, err)))
		}
	})

	a := &app{
		Settings:   settings,
		Workspaces: workspaces,
		Sessions:   sessions,
		Fixes:      fixes,
		Budget:     tracker,
		Builders:   builder.NewRegistry(settings),
	}

	sinks := status.Multi{status.NewConsoleSink()}
	if t := status.NewTelemetrySink(settings.Telemetry, telemetryID(workspaces)); t != nil {
		a.telemetry = t
		sinks = append(sinks, t)
	}
	// Console writes are fast, but the sink contract is fire-and-forget:
	// the core never waits on a consumer.
	a.async = status.NewAsyncSink(sinks, 256)
	a.Sink = a.async

	return a, nil
}

// Close flushes sinks.
func (a *app) Close() {
	if a.async != nil {
		a.async.Close()
	}
	if a.telemetry != nil {
		a.telemetry.Close()
	}
}

// telemetryID derives a stable anonymous id from the install, falling back
// to a fixed id when the registry is empty.
func telemetryID(m *workspace.Manager) string {
	if list := m.List(); len(list) > 0 {
		return list[0].ID
	}
	return "anonymous"
}
