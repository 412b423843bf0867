package agent

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeloop-io/forgeloop/internal/builder"
	"github.com/forgeloop-io/forgeloop/internal/fixlog"
	"github.com/forgeloop-io/forgeloop/internal/models"
	"github.com/forgeloop-io/forgeloop/internal/session"
	"github.com/forgeloop-io/forgeloop/internal/status"
)

// fakeBuilder replays a scripted sequence of build results.
type fakeBuilder struct {
	results []builder.Result
	calls   int
}

func (f *fakeBuilder) Build(ctx context.Context, root string) builder.Result {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i]
}

type agentCall struct {
	prompt string
	token  string
}

// fakeAgent records calls and replays scripted errors.
type fakeAgent struct {
	calls   []agentCall
	errs    []error // error for call i; nil beyond the slice
	token   string
	summary string
}

func (f *fakeAgent) Invoke(ctx context.Context, root, prompt, token string, sink status.Sink) (InvokeResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, agentCall{prompt: prompt, token: token})
	if i < len(f.errs) && f.errs[i] != nil {
		return InvokeResult{}, f.errs[i]
	}
	summary := f.summary
	if summary == "" {
		summary = "changed a file"
	}
	return InvokeResult{Summary: summary, ContinuationToken: f.token, CostUSD: 0.05}, nil
}

func failedBuild(diag string) builder.Result {
	return builder.Result{Success: false, Err: diag, Output: diag, Duration: time.Second}
}

func okBuild() builder.Result {
	return builder.Result{Success: true, Duration: time.Second}
}

func newTestLoop(t *testing.T, b builder.Builder, a Invoker, maxAttempts int) *Loop {
	t.Helper()
	t.Setenv("FORGELOOP_DIR", t.TempDir())

	sessions, err := session.NewManager()
	require.NoError(t, err)

	return &Loop{
		Workspace:      models.Workspace{ID: "app", Root: t.TempDir()},
		Platform:       "android",
		MaxAttempts:    maxAttempts,
		Builder:        b,
		Agent:          a,
		Sessions:       sessions,
		Fixes:          fixlog.NewStore(),
		DigestMaxBytes: 1000,
	}
}

func TestRunSucceedsFirstBuild(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{okBuild()}}
	a := &fakeAgent{}
	l := newTestLoop(t, b, a, 8)

	res := l.Run(context.Background(), "")

	assert.Equal(t, StateSucceeded, res.State)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 1, b.calls)
	assert.Empty(t, a.calls, "no fix needed for a passing build")
	require.Len(t, res.Attempts, 1)
	assert.True(t, res.Attempts[0].Success)
}

func TestRunFixesThenSucceeds(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{
		failedBuild("unresolved reference: Foo"),
		failedBuild("unresolved reference: Bar"),
		okBuild(),
	}}
	a := &fakeAgent{token: "sess-1", summary: "added the missing import"}
	l := newTestLoop(t, b, a, 8)

	res := l.Run(context.Background(), "")

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 3, b.calls)
	require.Len(t, a.calls, 2)
	require.Len(t, res.Attempts, 3)

	// The fix prompt carries the diagnostic.
	assert.Contains(t, a.calls[0].prompt, "unresolved reference: Foo")
	// The second fix prompt carries fix memory from the first.
	assert.Contains(t, a.calls[1].prompt, "Previous fixes for this project:")
	assert.Contains(t, a.calls[1].prompt, "added the missing import")

	// Fix records persisted.
	records, err := l.Fixes.Records(l.Workspace.Root)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Costs accumulate across invocations.
	assert.InDelta(t, 0.10, res.CostUSD, 1e-9)
}

func TestRunExhaustsAttempts(t *testing.T) {
	const maxAttempts = 3
	b := &fakeBuilder{results: []builder.Result{failedBuild("it is broken")}}
	a := &fakeAgent{}
	l := newTestLoop(t, b, a, maxAttempts)

	res := l.Run(context.Background(), "")

	assert.Equal(t, StateExhausted, res.State)
	assert.False(t, res.Succeeded())
	assert.Equal(t, maxAttempts, b.calls, "exactly max_attempts builds")
	assert.Len(t, a.calls, maxAttempts-1, "no fix after the final failed build")
	assert.Len(t, res.Attempts, maxAttempts)
	assert.Contains(t, res.FinalMessage, "after 3 attempts")
	assert.Equal(t, "it is broken", res.LastDiagnostic)
	assert.Contains(t, res.FixDigest, "it is broken", "partial learning retained on exhaustion")
}

func TestRunIdenticalFailuresAreNotShortCircuited(t *testing.T) {
	// The same diagnostic on every attempt still runs to the cap; fix
	// memory injection is what breaks repeat cycles, exhaustion is the
	// backstop.
	const maxAttempts = 5
	b := &fakeBuilder{results: []builder.Result{failedBuild("identical error text")}}
	a := &fakeAgent{}
	l := newTestLoop(t, b, a, maxAttempts)

	res := l.Run(context.Background(), "")

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, maxAttempts, b.calls)
}

func TestRunAbortsOnAgentError(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{failedBuild("broken build")}}
	a := &fakeAgent{errs: []error{ErrAgentInvocation, ErrAgentInvocation}}
	l := newTestLoop(t, b, a, 8)

	res := l.Run(context.Background(), "")

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, 1, b.calls, "abort happens before any rebuild")
	assert.Len(t, a.calls, 2, "one retry with a fresh session before aborting")
	assert.Empty(t, a.calls[1].token, "retry starts a fresh conversation")
	assert.Contains(t, res.FinalMessage, "Agent errored")
}

func TestRunAgentRetryRecovers(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{failedBuild("broken"), okBuild()}}
	a := &fakeAgent{errs: []error{ErrAgentInvocation}, token: "sess-2"}
	l := newTestLoop(t, b, a, 8)

	res := l.Run(context.Background(), "")

	assert.Equal(t, StateSucceeded, res.State)
	assert.Len(t, a.calls, 2)
	assert.Equal(t, "sess-2", l.Sessions.Token("app"), "token from the recovered call is stored")
}

func TestRunInitialPromptFailureAborts(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{okBuild()}}
	a := &fakeAgent{errs: []error{ErrAgentInvocation, ErrAgentInvocation}}
	l := newTestLoop(t, b, a, 8)

	res := l.Run(context.Background(), "add a dark mode toggle")

	assert.Equal(t, StateAborted, res.State)
	assert.Zero(t, b.calls, "no build runs when the initial prompt fails")
	assert.Empty(t, res.Attempts)
}

func TestRunSessionContinuity(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{
		failedBuild("err one"),
		failedBuild("err two"),
		okBuild(),
	}}
	a := &fakeAgent{token: "sess-9"}
	l := newTestLoop(t, b, a, 8)

	res := l.Run(context.Background(), "")
	require.Equal(t, StateSucceeded, res.State)

	require.Len(t, a.calls, 2)
	assert.Empty(t, a.calls[0].token, "first call starts fresh")
	assert.Equal(t, "sess-9", a.calls[1].token, "second call resumes the minted session")
}

func TestFormatSummary(t *testing.T) {
	res := Result{
		FinalMessage:  "ANDROID build succeeded on attempt 2.",
		TotalDuration: 95 * time.Second,
		CostUSD:       0.1234,
		Attempts: []Attempt{
			{Index: 1, Success: false, Duration: 40 * time.Second},
			{Index: 2, Success: true, Duration: 35 * time.Second},
		},
	}

	out := FormatSummary(res)
	assert.Contains(t, out, "ANDROID build succeeded on attempt 2.")
	assert.Contains(t, out, "1m 35s")
	assert.Contains(t, out, "[FAIL] attempt 1")
	assert.Contains(t, out, "[OK] attempt 2")
	assert.Contains(t, out, "$0.1234")
}

func TestFormatSummarySingleAttempt(t *testing.T) {
	res := Result{
		FinalMessage:  "ANDROID build succeeded on attempt 1.",
		TotalDuration: 10 * time.Second,
		Attempts:      []Attempt{{Index: 1, Success: true}},
	}

	out := FormatSummary(res)
	assert.NotContains(t, out, "Build loop", "no attempt breakdown for a single attempt")
}

func TestRunEmitsTerminalEvent(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{okBuild()}}
	a := &fakeAgent{}
	l := newTestLoop(t, b, a, 8)

	var terminals []status.Event
	l.Sink = status.Func(func(ev status.Event) {
		if ev.Kind == status.KindTerminal {
			terminals = append(terminals, ev)
		}
	})

	l.Run(context.Background(), "")

	require.Len(t, terminals, 1)
	assert.Equal(t, "app", terminals[0].WorkspaceID)
	assert.Contains(t, terminals[0].Message, "succeeded")
}

func TestRunCancelledContext(t *testing.T) {
	b := &fakeBuilder{results: []builder.Result{failedBuild("broken")}}
	a := &fakeAgent{}
	l := newTestLoop(t, b, a, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := l.Run(ctx, "")
	assert.Equal(t, StateAborted, res.State)
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateBytes("abc", 10))
	assert.Equal(t, "ab", truncateBytes("abcdef", 2))
	assert.Equal(t, strings.Repeat("x", 300), truncateBytes(strings.Repeat("x", 1000), 300))
}

func TestTruncateBytesKeepsValidUTF8(t *testing.T) {
	// "héllo": the cut at 2 bytes lands inside the 2-byte é.
	assert.Equal(t, "h", truncateBytes("héllo", 2))
	assert.Equal(t, "hé", truncateBytes("héllo", 3))

	s := strings.Repeat("日", 100)
	for max := 0; max < 12; max++ {
		assert.True(t, utf8.ValidString(truncateBytes(s, max)), "max=%d", max)
	}
}
