package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/forgeloop-io/forgeloop/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage registered workspaces",
	Long:    `Manage the registry of project workspaces forgeloop operates on.`,
}

var workspaceAddCmd = &cobra.Command{
	Use:   "add [path] [id]",
	Short: "Register a workspace",
	Long: `Register a directory as a workspace.

Without an id, a random one is generated. The id is case-insensitive.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWorkspaceAdd,
}

var workspaceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered workspaces",
	RunE:    runWorkspaceList,
}

var workspaceRenameCmd = &cobra.Command{
	Use:   "rename [old-id] [new-id]",
	Short: "Rename a workspace",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkspaceRename,
}

var workspaceRemoveCmd = &cobra.Command{
	Use:     "remove [id]",
	Aliases: []string{"rm"},
	Short:   "Remove a workspace from the registry",
	Long: `Remove a workspace from the registry.

The workspace's session and fix log are dropped with it. Files in the
workspace directory itself are never touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkspaceRemove,
}

var workspaceShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one workspace in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceShow,
}

func init() {
	workspaceCmd.AddCommand(workspaceAddCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceRemoveCmd)
	workspaceCmd.AddCommand(workspaceRenameCmd)
	workspaceCmd.AddCommand(workspaceShowCmd)
}

func runWorkspaceAdd(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("workspace path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace path is not a directory: %s", root)
	}

	id := ""
	if len(args) == 2 {
		id = args[1]
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Register(id, root, filepath.Base(root))
	if err != nil {
		return err
	}

	fmt.Println(styleSuccess.Render(fmt.Sprintf("Registered workspace %s", ws.ID)))
	fmt.Printf("  %s %s\n", styleLabel.Render("Root:"), ws.Root)
	return nil
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list := a.Workspaces.List()
	if len(list) == 0 {
		fmt.Println("No workspaces. Run 'forgeloop workspace add <path>' to register one.")
		return nil
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	fmt.Println(styleBrand.Render(fmt.Sprintf("Workspaces (%d):", len(list))))
	for _, ws := range list {
		session := ""
		if a.Sessions.Token(ws.ID) != "" {
			session = styleHint.Render("  [session]")
		}
		fmt.Printf("  %s  %s%s\n", styleValue.Render(ws.ID), ws.Root, session)
	}
	return nil
}

func runWorkspaceRename(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Rename(args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Println(styleSuccess.Render(fmt.Sprintf("Renamed to %s", ws.ID)))
	return nil
}

func runWorkspaceRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id := workspace.NormalizeID(args[0])
	if err := a.Workspaces.Remove(id); err != nil {
		return err
	}

	fmt.Printf("Workspace %s removed. Its session and fix log are gone with it.\n", id)
	return nil
}

func runWorkspaceShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.Workspaces.Lookup(args[0])
	if err != nil {
		return err
	}

	fmt.Println(styleBrand.Render(ws.ID))
	fmt.Printf("  %s %s\n", styleLabel.Render("Root:"), ws.Root)
	fmt.Printf("  %s %s\n", styleLabel.Render("Name:"), ws.Name)
	fmt.Printf("  %s %s\n", styleLabel.Render("Created:"), ws.CreatedAt.Format("2006-01-02 15:04"))

	if token := a.Sessions.Token(ws.ID); token != "" {
		fmt.Printf("  %s %s\n", styleLabel.Render("Session:"), token)
		fmt.Printf("  %s %s\n", styleLabel.Render("Last used:"), a.Sessions.LastUsed(ws.ID).Format("2006-01-02 15:04"))
	} else {
		fmt.Printf("  %s none\n", styleLabel.Render("Session:"))
	}

	records, err := a.Fixes.Records(ws.Root)
	if err != nil {
		return err
	}
	fmt.Printf("  %s %d\n", styleLabel.Render("Fix records:"), len(records))
	return nil
}
