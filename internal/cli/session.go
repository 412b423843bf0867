package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and reset agent sessions",
	Long: `Inspect the agent conversation attached to a workspace.

Each workspace keeps at most one session; runs resume it so the agent
retains context from earlier fixes. Reset it when the conversation has
grown stale or the agent keeps going in circles.`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [workspace]",
	Short: "Show a workspace's session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset [workspace]",
	Short: "Drop a workspace's session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionReset,
}

func init() {
	sessionCmd.AddCommand(sessionResetCmd)
	sessionCmd.AddCommand(sessionShowCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	token := a.Sessions.Token(ws.ID)
	if token == "" {
		fmt.Printf("No session for %s. The next run starts a fresh conversation.\n", ws.ID)
		return nil
	}

	fmt.Println(styleBrand.Render(ws.ID))
	fmt.Printf("  %s %s\n", styleLabel.Render("Session:"), token)
	fmt.Printf("  %s %s\n", styleLabel.Render("Last used:"), a.Sessions.LastUsed(ws.ID).Format("2006-01-02 15:04"))
	return nil
}

func runSessionReset(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	if err := a.Sessions.Reset(ws.ID); err != nil {
		return err
	}
	fmt.Printf("Session for %s dropped. The next run starts fresh.\n", ws.ID)
	return nil
}
