// Package queue executes an ordered list of work items for one workspace,
// strictly sequentially, with budget enforcement before every item.
package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/forgeloop-io/forgeloop/internal/budget"
	"github.com/forgeloop-io/forgeloop/internal/models"
	"github.com/forgeloop-io/forgeloop/internal/session"
	"github.com/forgeloop-io/forgeloop/internal/status"
)

// SkipReason says why a queued task was not executed.
type SkipReason string

// Skip reasons.
const (
	SkipNone            SkipReason = ""
	SkipBudgetExceeded  SkipReason = "budget_exceeded"
	SkipUpstreamFailure SkipReason = "upstream_failure"
)

// Task is one queued work item.
type Task struct {
	Description string
	CostUSD     float64 // reserved against the daily budget before execution
	// ContinueOnFailure lets the queue keep going when this task fails.
	// Default is stop-on-failure.
	ContinueOnFailure bool
}

// TaskStatus is the outcome of one queued task.
type TaskStatus string

// Task outcomes.
const (
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Outcome pairs a task with what happened to it.
type Outcome struct {
	Task       Task
	Status     TaskStatus
	SkipReason SkipReason
	Err        error
	CostUSD    float64 // actual incurred cost
}

// Summary is the result of one queue run.
type Summary struct {
	Outcomes  []Outcome
	Completed int
	Failed    int
	Skipped   int
	CostUSD   float64
	Elapsed   time.Duration
}

// Executor runs one task and reports its actual cost. The queue owns
// budget reservation; the executor only does the work.
type Executor func(ctx context.Context, task Task) (costUSD float64, err error)

// Queue runs tasks for one workspace. Tasks never run concurrently: a
// single workspace's filesystem state stays consistent.
type Queue struct {
	Budget   *budget.Tracker
	Sessions *session.Manager
	Sink     status.Sink
}

// Run executes tasks in order. Before each task the estimated cost is
// reserved; a denial stops the queue and marks the rest skipped with
// SkipBudgetExceeded; the ledger is untouched for skipped tasks. A
// non-budget failure stops the queue (SkipUpstreamFailure for the rest)
// unless the failing task is marked ContinueOnFailure.
func (q *Queue) Run(ctx context.Context, ws models.Workspace, tasks []Task, exec Executor) (Summary, error) {
	sink := q.Sink
	if sink == nil {
		sink = status.Discard
	}

	start := time.Now()
	summary := Summary{Outcomes: make([]Outcome, 0, len(tasks))}

	skipRest := func(from int, reason SkipReason) {
		for _, task := range tasks[from:] {
			summary.Outcomes = append(summary.Outcomes, Outcome{
				Task: task, Status: TaskSkipped, SkipReason: reason,
			})
			summary.Skipped++
		}
	}

	log.Printf("[queue] starting: workspace=%s tasks=%d", ws.ID, len(tasks))
	sink.Notify(status.Progress(ws.ID, fmt.Sprintf("Queue started: %d task(s)", len(tasks))))

	for i, task := range tasks {
		if ctx.Err() != nil {
			skipRest(i, SkipUpstreamFailure)
			break
		}

		ok, err := q.Budget.Reserve(task.CostUSD)
		if err != nil {
			return summary, fmt.Errorf("budget check failed: %w", err)
		}
		if !ok {
			spent, _ := q.Budget.Spent()
			sink.Notify(status.Progress(ws.ID, fmt.Sprintf(
				"Budget limit reached: $%.2f spent (cap $%.2f). Skipping %d remaining task(s).",
				spent, q.Budget.Cap(), len(tasks)-i)))
			skipRest(i, SkipBudgetExceeded)
			break
		}

		// Fresh session per task: long conversations degrade the agent.
		if q.Sessions != nil {
			if err := q.Sessions.Reset(ws.ID); err != nil {
				log.Printf("[queue] failed to reset session: %v", err)
			}
		}

		sink.Notify(status.Progress(ws.ID, fmt.Sprintf(
			"Task %d/%d: %s", i+1, len(tasks), truncate(task.Description, 100))))

		actualCost, err := exec(ctx, task)
		if actualCost != task.CostUSD {
			// Settle the difference between estimate and reality in one
			// adjustment. A task that never reached the agent refunds its
			// whole reservation.
			if rerr := q.Budget.Record(actualCost - task.CostUSD); rerr != nil {
				log.Printf("[queue] failed to settle task cost: %v", rerr)
			}
		}
		summary.CostUSD += actualCost

		if err != nil {
			summary.Outcomes = append(summary.Outcomes, Outcome{
				Task: task, Status: TaskFailed, Err: err, CostUSD: actualCost,
			})
			summary.Failed++
			sink.Notify(status.Progress(ws.ID, fmt.Sprintf("Task %d failed: %v", i+1, err)))

			if !task.ContinueOnFailure {
				skipRest(i+1, SkipUpstreamFailure)
				break
			}
			continue
		}

		summary.Outcomes = append(summary.Outcomes, Outcome{
			Task: task, Status: TaskCompleted, CostUSD: actualCost,
		})
		summary.Completed++
		sink.Notify(status.Progress(ws.ID, fmt.Sprintf("Task %d done ($%.4f)", i+1, actualCost)))
	}

	summary.Elapsed = time.Since(start)
	sink.Notify(status.Terminal(ws.ID, FormatSummary(q.Budget, summary)))
	log.Printf("[queue] done: workspace=%s completed=%d failed=%d skipped=%d",
		ws.ID, summary.Completed, summary.Failed, summary.Skipped)
	return summary, nil
}

// FormatSummary renders a queue summary for human consumption.
func FormatSummary(tracker *budget.Tracker, s Summary) string {
	mins := int(s.Elapsed.Minutes())
	secs := int(s.Elapsed.Seconds()) % 60

	lines := []string{
		fmt.Sprintf("Queue complete in %dm %ds", mins, secs),
		fmt.Sprintf("  Completed: %d", s.Completed),
	}
	if s.Failed > 0 {
		lines = append(lines, fmt.Sprintf("  Failed: %d", s.Failed))
	}
	if s.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("  Skipped: %d", s.Skipped))
	}
	lines = append(lines, fmt.Sprintf("  Queue cost: $%.4f", s.CostUSD))
	if tracker != nil {
		if spent, err := tracker.Spent(); err == nil {
			lines = append(lines, fmt.Sprintf("  Today total: $%.2f / $%.2f", spent, tracker.Cap()))
		}
	}
	return strings.Join(lines, "\n")
}

// ParseTasks splits raw queue input on "---" separators, dropping blanks.
// Each task gets the given estimated cost.
func ParseTasks(raw string, costUSD float64) []Task {
	var tasks []Task
	for _, part := range strings.Split(raw, "---") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tasks = append(tasks, Task{Description: part, CostUSD: costUSD})
	}
	return tasks
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
