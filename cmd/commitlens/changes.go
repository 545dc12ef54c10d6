package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Query commits with per-file change stats",
	Long: `Like 'commits', but each result carries its changed files with addition and
deletion counts. Stats are fetched per commit, so prefer narrow date ranges.

Examples:
  # One author's changes this month
  commitlens changes --author alice --since 2024-03-01

  # Inspect a single commit
  commitlens changes show <repo-id> <hash>`,
	RunE: runChanges,
}

var changesShowCmd = &cobra.Command{
	Use:   "show [repo-id] [hash]",
	Short: "Show one commit's change stats",
	Args:  cobra.ExactArgs(2),
	RunE:  runChangesShow,
}

func init() {
	changesCmd.Flags().StringVar(&commitAuthor, "author", "", "author pattern, matched against name or email")
	changesCmd.Flags().StringVar(&commitSince, "since", "", "start date (inclusive)")
	changesCmd.Flags().StringVar(&commitUntil, "until", "", "end date (inclusive)")
	changesCmd.Flags().StringVar(&commitBranch, "branch", "", "restrict to one branch")
	changesCmd.Flags().IntVar(&commitLimit, "limit", 0, "hard cap on total results")
	changesCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the commit month cache")

	changesCmd.AddCommand(changesShowCmd)
}

func runChanges(cmd *cobra.Command, args []string) error {
	query, err := buildCommitQuery()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	changes, err := eng.agg.CodeChanges(context.Background(), query)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(changes)
	}

	if len(changes) == 0 {
		fmt.Println("No changes found.")
		return nil
	}

	for _, change := range changes {
		fmt.Printf("%s  %s  %s  +%d -%d  %s\n",
			shortHash(change.Hash),
			change.Timestamp.Format("2006-01-02 15:04"),
			truncateString(change.Author, 22),
			change.Additions, change.Deletions,
			change.Subject)
		for _, file := range change.Files {
			if file.Binary {
				fmt.Printf("    bin      %s\n", file.Path)
				continue
			}
			fmt.Printf("    +%-4d -%-4d %s\n", file.Additions, file.Deletions, file.Path)
		}
	}
	return nil
}

func runChangesShow(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	change, err := eng.agg.CommitChange(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(change)
	}

	fmt.Printf("commit %s\n", change.Hash)
	fmt.Printf("Author: %s <%s>\n", change.Author, change.AuthorEmail)
	fmt.Printf("Date:   %s\n", change.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Repo:   %s\n\n", change.RepoName)
	fmt.Printf("    %s\n\n", change.Subject)
	for _, file := range change.Files {
		if file.Binary {
			fmt.Printf("  bin      %s\n", file.Path)
			continue
		}
		fmt.Printf("  +%-4d -%-4d %s\n", file.Additions, file.Deletions, file.Path)
	}
	fmt.Printf("\n%d files changed, %d insertions(+), %d deletions(-)\n",
		len(change.Files), change.Additions, change.Deletions)
	return nil
}

var diffCmd = &cobra.Command{
	Use:   "diff [repo-id] [hash] [file]",
	Short: "Show one file's diff for a commit",
	Args:  cobra.ExactArgs(3),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	diff, err := eng.agg.FileDiff(context.Background(), args[0], args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Print(diff)
	return nil
}
