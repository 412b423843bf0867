// Package status delivers progress and outcome notifications from the
// orchestration core to external consumers. Sinks are fire-and-forget:
// nothing in the build-fix cycle depends on a notification being accepted.
package status

// Kind classifies a status event.
type Kind int

// Event kinds.
const (
	KindProgress Kind = iota // transient progress update
	KindArtifact             // a produced artifact (log file, build output)
	KindTerminal             // terminal outcome of a run or queue
)

// Event is one notification from the core.
type Event struct {
	Kind         Kind
	WorkspaceID  string
	Message      string
	ArtifactPath string // set for KindArtifact
}

// Sink consumes status events. Implementations must not be relied on for
// control flow and should return quickly.
type Sink interface {
	Notify(ev Event)
}

// Func adapts a function to the Sink interface.
type Func func(ev Event)

// Notify implements Sink.
func (f Func) Notify(ev Event) { f(ev) }

// Discard is a sink that drops everything.
var Discard Sink = Func(func(Event) {})

// Progress builds a progress event.
func Progress(workspaceID, message string) Event {
	return Event{Kind: KindProgress, WorkspaceID: workspaceID, Message: message}
}

// Artifact builds an artifact event.
func Artifact(workspaceID, message, path string) Event {
	return Event{Kind: KindArtifact, WorkspaceID: workspaceID, Message: message, ArtifactPath: path}
}

// Terminal builds a terminal-outcome event.
func Terminal(workspaceID, message string) Event {
	return Event{Kind: KindTerminal, WorkspaceID: workspaceID, Message: message}
}

// Multi fans an event out to several sinks.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(ev Event) {
	for _, s := range m {
		s.Notify(ev)
	}
}
