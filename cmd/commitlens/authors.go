package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	authorsSince string
	authorsUntil string
)

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "List commit authors across every workspace",
	Long: `Aggregate commit activity per author across all repositories, ordered by
commit count. Authors are identified by email, case-insensitively.`,
	RunE: runAuthors,
}

func init() {
	authorsCmd.Flags().StringVar(&authorsSince, "since", "", "start date (inclusive)")
	authorsCmd.Flags().StringVar(&authorsUntil, "until", "", "end date (inclusive)")
	authorsCmd.Flags().BoolVar(&includeUnnamed, "include-unnamed", false, "include repositories without a resolvable display name")
}

func runAuthors(cmd *cobra.Command, args []string) error {
	since, err := parseDateFlag(authorsSince, false)
	if err != nil {
		return err
	}
	until, err := parseDateFlag(authorsUntil, true)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	authors, err := eng.agg.Authors(context.Background(), since, until, includeUnnamed)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(authors)
	}

	if len(authors) == 0 {
		fmt.Println("No authors found.")
		return nil
	}

	for _, author := range authors {
		fmt.Printf("%5d  %-24s %-32s %s → %s\n",
			author.Commits,
			truncateString(author.Name, 24),
			truncateString(author.Email, 32),
			author.FirstCommit.Format("2006-01-02"),
			author.LastCommit.Format("2006-01-02"))
	}
	return nil
}
