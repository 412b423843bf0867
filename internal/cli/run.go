package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeloop-io/forgeloop/internal/agent"
	"github.com/forgeloop-io/forgeloop/internal/models"
	"github.com/forgeloop-io/forgeloop/internal/workspace"
)

var (
	runPlatform string
	runAttempts int
	runCost     float64
)

// platformHints adds build-target guidance to fix prompts.
var platformHints = map[string]string{
	"web": "This is a Kotlin/Wasm target; stick to APIs available on wasmJs.",
	"ios": "Do not modify the Xcode project files; fix the shared Kotlin code.",
}

var runCmd = &cobra.Command{
	Use:   "run [workspace] [prompt]",
	Short: "Run one build-repair cycle",
	Long: `Run the agent against a workspace until its build passes or the
attempt limit is reached.

With a prompt, the agent first applies the requested change, then the
build-fix cycle verifies the workspace still compiles. Without one, the
cycle starts from the current workspace state.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runPlatform, "platform", "p", "android", "build platform (android, ios, web)")
	runCmd.Flags().IntVar(&runAttempts, "attempts", 0, "max build attempts (default from settings)")
	runCmd.Flags().Float64Var(&runCost, "cost", 1.0, "estimated cost in USD, reserved against the daily cap")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	initialPrompt := ""
	if len(args) == 2 {
		initialPrompt = strings.TrimSpace(args[1])
	}

	release, err := a.Workspaces.TryAcquire(ws.ID)
	if err != nil {
		if errors.Is(err, workspace.ErrWorkspaceBusy) {
			return fmt.Errorf("workspace %s is busy: another run is in progress", ws.ID)
		}
		return err
	}
	defer release()

	ok, err := a.Budget.Reserve(runCost)
	if err != nil {
		return err
	}
	if !ok {
		spent, _ := a.Budget.Spent()
		return fmt.Errorf("daily budget exceeded: $%.2f spent of $%.2f cap", spent, a.Budget.Cap())
	}

	loop, err := newLoop(a, ws, runPlatform, runAttempts)
	if err != nil {
		return err
	}

	res := loop.Run(cmd.Context(), initialPrompt)

	// Settle the reservation against what the run actually cost.
	if res.CostUSD != runCost {
		if err := a.Budget.Record(res.CostUSD - runCost); err != nil {
			fmt.Println(styleWarning.Render(fmt.Sprintf("warning: failed to settle cost: %v", err)))
		}
	}

	fmt.Println(agent.FormatSummary(res))
	if !res.Succeeded() {
		return fmt.Errorf("run ended in state %s", res.State)
	}
	return nil
}

// newLoop assembles a repair loop for one workspace and platform out of the
// app's components.
func newLoop(a *app, ws models.Workspace, platform string, attempts int) (*agent.Loop, error) {
	bld, err := a.Builders.Get(platform)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(a.Settings.Agent.TimeoutSecs) * time.Second
	runner, err := agent.NewRunner(a.Settings.Agent.Bin, timeout, ws.ID)
	if err != nil {
		return nil, err
	}

	if attempts <= 0 {
		attempts = a.Settings.MaxBuildAttempts
	}

	return &agent.Loop{
		Workspace:      ws,
		Platform:       platform,
		PlatformHint:   platformHints[platform],
		MaxAttempts:    attempts,
		Builder:        bld,
		Agent:          runner,
		Sessions:       a.Sessions,
		Fixes:          a.Fixes,
		Sink:           a.Sink,
		DigestMaxBytes: a.Settings.DigestMaxBytes,
	}, nil
}
