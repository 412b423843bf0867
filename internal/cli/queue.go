package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgeloop-io/forgeloop/internal/queue"
	"github.com/forgeloop-io/forgeloop/internal/workspace"
)

var (
	queuePlatform  string
	queueCost      float64
	queueKeepGoing bool
)

var queueCmd = &cobra.Command{
	Use:   "queue [workspace] [file]",
	Short: "Run a task queue against a workspace",
	Long: `Run a sequence of tasks against a workspace, one agent run per task.

Tasks are read from the given file, or from stdin when no file is given,
separated by lines containing "---". Each task gets a fresh agent session
and is reserved against the daily budget before it starts; once the cap
is hit the rest of the queue is skipped.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQueue,
}

func init() {
	queueCmd.Flags().StringVarP(&queuePlatform, "platform", "p", "android", "build platform (android, ios, web)")
	queueCmd.Flags().Float64Var(&queueCost, "cost", 1.0, "estimated cost per task in USD")
	queueCmd.Flags().BoolVar(&queueKeepGoing, "keep-going", false, "continue with later tasks when one fails")
}

func runQueue(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	var raw []byte
	if len(args) == 2 {
		raw, err = os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read task file: %w", err)
		}
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read tasks from stdin: %w", err)
		}
	}

	tasks := queue.ParseTasks(string(raw), queueCost)
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks found in input")
	}
	if queueKeepGoing {
		for i := range tasks {
			tasks[i].ContinueOnFailure = true
		}
	}

	release, err := a.Workspaces.TryAcquire(ws.ID)
	if err != nil {
		if errors.Is(err, workspace.ErrWorkspaceBusy) {
			return fmt.Errorf("workspace %s is busy: another run is in progress", ws.ID)
		}
		return err
	}
	defer release()

	exec := func(ctx context.Context, task queue.Task) (float64, error) {
		loop, err := newLoop(a, ws, queuePlatform, 0)
		if err != nil {
			return 0, err
		}
		res := loop.Run(ctx, task.Description)
		if !res.Succeeded() {
			return res.CostUSD, fmt.Errorf("run ended in state %s", res.State)
		}
		return res.CostUSD, nil
	}

	q := &queue.Queue{Budget: a.Budget, Sessions: a.Sessions, Sink: a.Sink}
	summary, err := q.Run(cmd.Context(), ws, tasks, exec)
	if err != nil {
		return err
	}

	fmt.Println(queue.FormatSummary(a.Budget, summary))
	if summary.Failed > 0 {
		return fmt.Errorf("%d task(s) failed", summary.Failed)
	}
	return nil
}
