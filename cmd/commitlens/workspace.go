package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspace roots",
	Long:  `Register, list, rescan and remove the root folders CommitLens scans for repositories.`,
}

var workspaceName string

var workspaceAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a root folder and scan it for repositories",
	Long: `Register a root folder as a workspace and run an initial repository scan.

Examples:
  # Register the current directory
  commitlens workspace add .

  # Register a projects folder under a friendly name
  commitlens workspace add ~/src --name personal`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkspaceAdd,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workspaces",
	RunE:  runWorkspaceList,
}

var workspaceRescanCmd = &cobra.Command{
	Use:   "rescan [id-or-path]",
	Short: "Re-run repository discovery for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceRescan,
}

var workspaceRemoveCmd = &cobra.Command{
	Use:   "remove [id-or-path]",
	Short: "Deactivate a workspace",
	Long: `Deactivate a workspace. Its repositories stay in the registry but stop
contributing to aggregated queries.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkspaceRemove,
}

var listAll bool

func init() {
	workspaceAddCmd.Flags().StringVar(&workspaceName, "name", "", "workspace display name (default: folder name)")
	workspaceListCmd.Flags().BoolVar(&listAll, "all", false, "include deactivated workspaces")

	workspaceCmd.AddCommand(workspaceAddCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceRescanCmd)
	workspaceCmd.AddCommand(workspaceRemoveCmd)
}

func runWorkspaceAdd(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	ws, found, err := eng.workspaces.Add(context.Background(), args[0], workspaceName)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{"workspace": ws, "repositories": found})
	}

	fmt.Printf("✅ Workspace %q registered (%s)\n", ws.Name, ws.ID)
	fmt.Printf("   Root: %s\n", ws.RootPath)
	fmt.Printf("   Repositories: %d\n", ws.RepoCount)
	for _, repo := range found {
		marker := "new"
		if repo.AlreadyAdded {
			marker = "known"
		}
		fmt.Printf("   - %s (%s)\n", repo.Name, marker)
	}
	return nil
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	workspaces, err := eng.workspaces.List(context.Background(), !listAll)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(workspaces)
	}

	if len(workspaces) == 0 {
		fmt.Println("No workspaces registered. Run 'commitlens workspace add <path>'.")
		return nil
	}

	for _, ws := range workspaces {
		status := "active"
		if !ws.Active {
			status = "inactive"
		}
		fmt.Printf("%s  %-20s %3d repos  %s  [%s]\n",
			ws.ID, ws.Name, ws.RepoCount, ws.RootPath, status)
	}
	return nil
}

func runWorkspaceRescan(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	ws, found, err := eng.workspaces.Rescan(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{"workspace": ws, "repositories": found})
	}

	fmt.Printf("✅ Workspace %q rescanned: %d repositories\n", ws.Name, len(found))
	return nil
}

func runWorkspaceRemove(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.workspaces.Remove(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Println("✅ Workspace deactivated")
	return nil
}
