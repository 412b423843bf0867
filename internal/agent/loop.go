package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/forgeloop-io/forgeloop/internal/builder"
	"github.com/forgeloop-io/forgeloop/internal/fixlog"
	"github.com/forgeloop-io/forgeloop/internal/models"
	"github.com/forgeloop-io/forgeloop/internal/session"
	"github.com/forgeloop-io/forgeloop/internal/status"
)

const (
	// errorSigMaxBytes bounds the error signature stored per fix record.
	errorSigMaxBytes = 300
	// fixSummaryMaxBytes bounds the fix summary stored per fix record.
	fixSummaryMaxBytes = 300
	// invokeRetries is how many times one agent call is attempted before
	// the run aborts; the session is reset between tries.
	invokeRetries = 2
)

// Attempt records one build-then-fix cycle.
type Attempt struct {
	Index      int
	Success    bool
	Duration   time.Duration
	Diagnostic string
	FixSummary string
}

// Result is the terminal outcome of one repair loop run.
type Result struct {
	RunID          string
	State          State // StateSucceeded, StateExhausted or StateAborted
	Attempts       []Attempt
	TotalDuration  time.Duration
	LastDiagnostic string
	FixDigest      string // fix memory accumulated during the run
	CostUSD        float64
	FinalMessage   string
}

// Succeeded reports whether the run ended with a passing build.
func (r Result) Succeeded() bool { return r.State == StateSucceeded }

// Loop is the repair state machine for one workspace and platform:
// build, and on failure have the agent patch the workspace, then rebuild,
// bounded by a maximum attempt count.
type Loop struct {
	Workspace    models.Workspace
	Platform     string
	PlatformHint string // extra prompt guidance for this platform
	MaxAttempts  int

	Builder  builder.Builder
	Agent    Invoker
	Sessions *session.Manager
	Fixes    *fixlog.Store
	Sink     status.Sink

	DigestMaxBytes int
}

// Run drives the loop to a terminal state. Fix records and session tokens
// persist even when the outcome is exhaustion or abort, so partial
// learning is retained.
func (l *Loop) Run(ctx context.Context, initialPrompt string) Result {
	start := time.Now()
	res := Result{RunID: ulid.Make().String()}

	sink := l.Sink
	if sink == nil {
		sink = status.Discard
	}
	maxAttempts := l.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxBuildAttempts
	}

	state := StateInit
	fail := func(finalState State, msg string) Result {
		res.State = finalState
		res.TotalDuration = time.Since(start)
		res.FinalMessage = msg
		res.FixDigest, _ = l.Fixes.Digest(l.Workspace.Root, l.DigestMaxBytes)
		sink.Notify(status.Terminal(l.Workspace.ID, msg))
		return res
	}

	log.Printf("[loop] run %s: workspace=%s platform=%s max_attempts=%d",
		res.RunID, l.Workspace.ID, l.Platform, maxAttempts)

	// Optional initial prompt before the first build.
	if initialPrompt != "" {
		sink.Notify(status.Progress(l.Workspace.ID, "Sending prompt to agent…"))
		inv, err := l.callAgent(ctx, initialPrompt, sink)
		res.CostUSD += inv.CostUSD
		if err != nil {
			state, _ = Transition(state, EventAgentError)
			return fail(state, fmt.Sprintf("Agent failed before the first build: %v", err))
		}
		sink.Notify(status.Progress(l.Workspace.ID, "Agent responded: "+truncateLine(inv.Summary, 200)))
	}

	state = mustTransition(state, EventStart)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sink.Notify(status.Progress(l.Workspace.ID,
			fmt.Sprintf("[%s] build attempt %d/%d…", strings.ToUpper(l.Platform), attempt, maxAttempts)))

		buildRes := l.Builder.Build(ctx, l.Workspace.Root)

		if buildRes.Success {
			state = mustTransition(state, EventBuildOK)
			res.Attempts = append(res.Attempts, Attempt{
				Index: attempt, Success: true, Duration: buildRes.Duration,
			})
			return fail(state, fmt.Sprintf("%s build succeeded on attempt %d.",
				strings.ToUpper(l.Platform), attempt))
		}

		state = mustTransition(state, EventBuildFailed)
		diagnostic := buildRes.Err
		if diagnostic == "" {
			diagnostic = "build failed with no output"
		}
		res.LastDiagnostic = diagnostic

		if attempt == maxAttempts {
			res.Attempts = append(res.Attempts, Attempt{
				Index: attempt, Duration: buildRes.Duration,
				Diagnostic: truncateBytes(diagnostic, 500),
			})
			state = mustTransition(state, EventAttemptsExhausted)
			return fail(state, fmt.Sprintf("Build failed after %d attempts.\n%s",
				maxAttempts, truncateBytes(diagnostic, 800)))
		}

		sink.Notify(status.Progress(l.Workspace.ID,
			fmt.Sprintf("Attempt %d failed, sending error to agent…", attempt)))

		state = mustTransition(state, EventStart) // failed -> fixing
		inv, err := l.callAgent(ctx, l.fixPrompt(diagnostic), sink)
		res.CostUSD += inv.CostUSD

		if err != nil {
			// The build attempt is recorded; the loop never retries an
			// invocation failure within a run.
			res.Attempts = append(res.Attempts, Attempt{
				Index: attempt, Duration: buildRes.Duration,
				Diagnostic: truncateBytes(diagnostic, 500),
			})
			state = mustTransition(state, EventAgentError)
			return fail(state, fmt.Sprintf("Agent errored while fixing: %v", err))
		}

		fixSummary := inv.Summary
		if strings.TrimSpace(fixSummary) == "" {
			fixSummary = "Applied fix"
		}
		res.Attempts = append(res.Attempts, Attempt{
			Index: attempt, Duration: buildRes.Duration,
			Diagnostic: truncateBytes(diagnostic, 500),
			FixSummary: truncateBytes(fixSummary, fixSummaryMaxBytes),
		})

		// Fix memory write failures never break the loop.
		if err := l.Fixes.Append(l.Workspace.Root, models.FixRecord{
			Platform:   l.Platform,
			ErrorSig:   truncateBytes(diagnostic, errorSigMaxBytes),
			FixSummary: truncateBytes(fixSummary, fixSummaryMaxBytes),
		}); err != nil {
			log.Printf("[loop] failed to record fix: %v", err)
		}

		state = mustTransition(state, EventFixApplied)
	}

	// Unreachable: the attempt loop always exits through a terminal state.
	return fail(StateExhausted, "Build failed.")
}

// fixPrompt composes the repair prompt: fix memory first, then the failure.
func (l *Loop) fixPrompt(diagnostic string) string {
	var b strings.Builder
	if digest, err := l.Fixes.Digest(l.Workspace.Root, l.DigestMaxBytes); err == nil && digest != "" {
		b.WriteString("Previous fixes for this project:\n")
		b.WriteString(digest)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "The %s build failed. Fix the code so it compiles.\n", l.Platform)
	b.WriteString("Only modify what's necessary.\n")
	if l.PlatformHint != "" {
		b.WriteString(l.PlatformHint)
		b.WriteString("\n")
	}
	b.WriteString("\n```\n")
	b.WriteString(diagnostic)
	b.WriteString("\n```")
	return b.String()
}

// callAgent invokes the agent with session continuity: the stored token is
// resumed, and the token the agent mints is stored back even when the
// run later fails. A failed invocation is retried once with a fresh
// session before giving up.
func (l *Loop) callAgent(ctx context.Context, prompt string, sink status.Sink) (InvokeResult, error) {
	var lastErr error
	for try := 1; try <= invokeRetries; try++ {
		if ctx.Err() != nil {
			return InvokeResult{}, ctx.Err()
		}
		token := l.Sessions.Token(l.Workspace.ID)
		inv, err := l.Agent.Invoke(ctx, l.Workspace.Root, prompt, token, sink)
		if err == nil {
			if serr := l.Sessions.Store(l.Workspace.ID, inv.ContinuationToken); serr != nil {
				log.Printf("[loop] failed to store session token: %v", serr)
			}
			return inv, nil
		}
		lastErr = err
		// A stale session is the most common cause; drop it and retry.
		if rerr := l.Sessions.Reset(l.Workspace.ID); rerr != nil {
			log.Printf("[loop] failed to reset session: %v", rerr)
		}
		if try < invokeRetries {
			sink.Notify(status.Progress(l.Workspace.ID, "Agent failed, retrying with a fresh session…"))
		}
	}
	return InvokeResult{}, lastErr
}

func mustTransition(s State, e LoopEvent) State {
	next, err := Transition(s, e)
	if err != nil {
		// The transition table is exhaustive for the loop's control flow;
		// hitting this is a bug.
		panic(err)
	}
	return next
}

// truncateBytes bounds s to max bytes, backing off to a rune boundary so
// the cut never produces invalid UTF-8.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// FormatSummary renders a run result for human consumption.
func FormatSummary(res Result) string {
	mins := int(res.TotalDuration.Minutes())
	secs := int(res.TotalDuration.Seconds()) % 60
	timeStr := fmt.Sprintf("%ds", secs)
	if mins > 0 {
		timeStr = fmt.Sprintf("%dm %ds", mins, secs)
	}

	lines := []string{res.FinalMessage}
	if len(res.Attempts) > 1 {
		lines = append(lines, fmt.Sprintf("\nBuild loop (%s, %d attempts):", timeStr, len(res.Attempts)))
		for _, a := range res.Attempts {
			mark := "FAIL"
			if a.Success {
				mark = "OK"
			}
			lines = append(lines, fmt.Sprintf("  [%s] attempt %d (%s)", mark, a.Index, a.Duration.Round(time.Second)))
		}
	}
	if res.CostUSD > 0 {
		lines = append(lines, fmt.Sprintf("Cost: $%.4f", res.CostUSD))
	}
	return strings.Join(lines, "\n")
}
