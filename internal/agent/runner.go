// Package agent drives the external code-modification agent and the
// build-then-fix repair loop around it.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/forgeloop-io/forgeloop/internal/status"
)

// Invocation errors.
var (
	ErrAgentInvocation = errors.New("agent invocation failed")
	ErrAgentTimeout    = errors.New("agent invocation timed out")
)

const (
	// minProgressInterval throttles sink notifications.
	minProgressInterval = 3 * time.Second
	// heartbeatInterval is how long the agent may stay silent before a
	// "still working" notification.
	heartbeatInterval = 10 * time.Second
	// maxLineBytes bounds one stream-json line; large file edits produce
	// events far beyond bufio's default.
	maxLineBytes = 10 * 1024 * 1024
)

// InvokeResult is the outcome of one agent invocation.
type InvokeResult struct {
	Summary           string
	ContinuationToken string
	CostUSD           float64
	Duration          time.Duration
}

// Invoker runs the external agent against a workspace. The continuation
// token is opaque; "" starts a fresh conversation.
type Invoker interface {
	Invoke(ctx context.Context, root, prompt, token string, sink status.Sink) (InvokeResult, error)
}

// Runner invokes the agent binary headless, reading its machine-readable
// stream output for progress, cost and session continuity.
type Runner struct {
	bin         string
	timeout     time.Duration
	workspaceID string
}

// NewRunner resolves the agent binary and returns a runner. An empty bin
// means "claude" looked up in PATH.
func NewRunner(bin string, timeout time.Duration, workspaceID string) (*Runner, error) {
	if bin == "" {
		bin = "claude"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("failed to find agent binary %q: %w", bin, err)
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Runner{bin: resolved, timeout: timeout, workspaceID: workspaceID}, nil
}

// Invoke implements Invoker. It blocks until the agent exits, the timeout
// elapses, or the context is cancelled. Progress events flow to the sink;
// the sink is never allowed to block the read loop (callers hand in an
// AsyncSink when the consumer may stall).
func (r *Runner) Invoke(ctx context.Context, root, prompt, token string, sink status.Sink) (InvokeResult, error) {
	if sink == nil {
		sink = status.Discard
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// All flags must come before the positional prompt argument.
	args := []string{
		"--dangerously-skip-permissions",
		"-p",
		"--output-format", "stream-json",
		"--verbose",
	}
	if token != "" {
		args = append(args, "-r", token)
	}
	args = append(args, prompt)

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = root

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return InvokeResult{}, fmt.Errorf("%w: %v", ErrAgentInvocation, err)
	}

	start := time.Now()
	log.Printf("[agent] starting: workspace=%s prompt_len=%d resume=%t", r.workspaceID, len(prompt), token != "")

	if err := cmd.Start(); err != nil {
		return InvokeResult{}, fmt.Errorf("%w: %v", ErrAgentInvocation, err)
	}

	var (
		mu           sync.Mutex
		lastProgress = time.Now()
	)
	notify := func(msg string) {
		sink.Notify(status.Progress(r.workspaceID, msg))
		mu.Lock()
		lastProgress = time.Now()
		mu.Unlock()
	}

	// Heartbeat: let the consumer know a silent agent is still alive.
	hbDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbDone:
				return
			case <-ticker.C:
				mu.Lock()
				silent := time.Since(lastProgress) >= heartbeatInterval
				mu.Unlock()
				if silent {
					notify("Still working…")
				}
			}
		}
	}()

	var res InvokeResult
	var resultSeen, resultIsError bool

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, ok := parseStreamEvent(line)
		if !ok {
			continue
		}

		if ev.Type == "result" {
			resultSeen = true
			resultIsError = ev.IsError
			res.Summary = ev.Result
			res.ContinuationToken = ev.SessionID
			res.CostUSD = ev.TotalCostUSD
			log.Printf("[agent] result: error=%t cost=$%.4f duration=%.1fs",
				ev.IsError, ev.TotalCostUSD, float64(ev.DurationMS)/1000)
			continue
		}

		if msg := progressFromEvent(ev); msg != "" {
			mu.Lock()
			throttled := time.Since(lastProgress) < minProgressInterval
			mu.Unlock()
			if !throttled {
				notify(msg)
			}
			log.Printf("[agent] %s", msg)
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	close(hbDone)
	res.Duration = time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		log.Printf("[agent] timed out after %s", r.timeout)
		return res, fmt.Errorf("%w after %s", ErrAgentTimeout, r.timeout)
	}
	if ctx.Err() == context.Canceled {
		return res, ctx.Err()
	}
	if scanErr != nil {
		return res, fmt.Errorf("%w: reading agent output: %v", ErrAgentInvocation, scanErr)
	}
	if waitErr != nil || resultIsError || !resultSeen {
		detail := firstNonEmpty(
			truncateLine(stderr.String(), 500),
			truncateLine(res.Summary, 500),
			"no output",
		)
		log.Printf("[agent] failed: workspace=%s err=%v detail=%s", r.workspaceID, waitErr, detail)
		return res, fmt.Errorf("%w: %s", ErrAgentInvocation, detail)
	}

	log.Printf("[agent] done: workspace=%s cost=$%.4f result_len=%d", r.workspaceID, res.CostUSD, len(res.Summary))
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
