package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-go/internal/discovery"
)

var (
	scanDepth   int
	scanSymlink bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Discover repositories under a folder",
	Long: `Walk a folder and report every git repository root found: working trees,
linked worktrees, and bare repositories. Discovered repositories are
registered without creating a workspace.

Examples:
  # Scan the current directory
  commitlens scan .

  # Scan deeper and follow symlinks
  commitlens scan ~/src --depth 8 --follow-symlinks`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanDepth, "depth", 0, "maximum directory depth (default: configured value)")
	scanCmd.Flags().BoolVar(&scanSymlink, "follow-symlinks", false, "descend into symlinked directories")
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	opts := discovery.Options{
		MaxDepth:       cfg.Scan.MaxDepth,
		Exclude:        cfg.Scan.Exclude,
		FollowSymlinks: cfg.Scan.FollowSymlinks || scanSymlink,
	}
	if scanDepth > 0 {
		opts.MaxDepth = scanDepth
	}

	found, err := eng.scanner.Scan(context.Background(), args[0], opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(found)
	}

	if len(found) == 0 {
		fmt.Println("No repositories found.")
		return nil
	}

	for _, repo := range found {
		name := repo.Name
		if repo.GitLabFullPath != "" {
			name = fmt.Sprintf("%s (%s)", repo.Name, repo.GitLabFullPath)
		}
		fmt.Printf("%-40s %s\n", name, repo.Path)
	}
	fmt.Printf("\n%d repositories\n", len(found))
	return nil
}
