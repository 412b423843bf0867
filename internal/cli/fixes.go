package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forgeloop-io/forgeloop/internal/models"
	"github.com/forgeloop-io/forgeloop/internal/watcher"
)

var fixesCmd = &cobra.Command{
	Use:   "fixes",
	Short: "Inspect a workspace's fix memory",
	Long: `Inspect the fix log a workspace accumulates across repair runs.

Every build failure the agent resolves is recorded with the error it hit
and a summary of the fix; later runs feed this log back to the agent so
it does not rediscover the same fixes.`,
}

var fixesShowCmd = &cobra.Command{
	Use:   "show [workspace]",
	Short: "Show recorded fixes",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixesShow,
}

var fixesClearCmd = &cobra.Command{
	Use:   "clear [workspace]",
	Short: "Delete a workspace's fix log",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixesClear,
}

var fixesWatchCmd = &cobra.Command{
	Use:   "watch [workspace]",
	Short: "Follow new fixes as they land",
	Long:  `Follow a workspace's fix log live. New fixes print as a running repair loop records them. Ctrl-C stops.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runFixesWatch,
}

func init() {
	fixesCmd.AddCommand(fixesClearCmd)
	fixesCmd.AddCommand(fixesShowCmd)
	fixesCmd.AddCommand(fixesWatchCmd)
}

func runFixesShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	records, err := a.Fixes.Records(ws.Root)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No fixes recorded yet.")
		return nil
	}

	fmt.Println(styleBrand.Render(fmt.Sprintf("Fixes for %s (%d):", ws.ID, len(records))))
	for _, rec := range records {
		printFixRecord(rec)
	}
	return nil
}

func printFixRecord(rec models.FixRecord) {
	fmt.Printf("\n%s %s\n", styleLabel.Render(rec.Timestamp.Format("2006-01-02 15:04")), styleValue.Render(rec.Platform))
	fmt.Printf("  %s %s\n", styleError.Render("Error:"), rec.ErrorSig)
	fmt.Printf("  %s %s\n", styleSuccess.Render("Fix:"), rec.FixSummary)
}

func runFixesClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	if err := a.Fixes.Clear(ws.Root); err != nil {
		return err
	}
	fmt.Printf("Fix log for %s cleared.\n", ws.ID)
	return nil
}

func runFixesWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	w, err := watcher.New()
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	if err := w.WatchWorkspace(ws.ID, ws.Root); err != nil {
		return err
	}

	// Print what's already there, then follow appends.
	seen := 0
	records, err := a.Fixes.Records(ws.Root)
	if err == nil {
		for _, rec := range records {
			printFixRecord(rec)
		}
		seen = len(records)
	}

	fmt.Println(styleHint.Render("\nWatching for new fixes. Ctrl-C to stop."))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			return nil
		case <-cmd.Context().Done():
			return nil
		case ev := <-w.Events():
			switch ev.Type {
			case watcher.EventFixLogCleared:
				fmt.Println(styleWarning.Render("Fix log cleared."))
				seen = 0
			case watcher.EventFixLogChanged:
				records, err := a.Fixes.Records(ws.Root)
				if err != nil {
					continue
				}
				for _, rec := range records[min(seen, len(records)):] {
					printFixRecord(rec)
				}
				seen = len(records)
			}
		}
	}
}
