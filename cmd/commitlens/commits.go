package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-go/internal/aggregator"
	clerrors "github.com/commitlens/commitlens-go/internal/errors"
)

var (
	commitAuthor   string
	commitSince    string
	commitUntil    string
	commitBranch   string
	commitLimit    int
	commitPage     int
	commitPageSize int
	noCache        bool
	includeUnnamed bool
)

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "Query commits across every workspace",
	Long: `Aggregate commits from every repository in every active workspace, newest
first. Month-bucketed caching serves repeated queries; --no-cache forces
fresh git queries.

Examples:
  # Everything from the default lookback window
  commitlens commits

  # One author (name or email, regex) over a date range
  commitlens commits --author "alice|bob" --since 2024-01-01 --until 2024-03-31

  # Second page of a large result
  commitlens commits --page 2 --page-size 50`,
	RunE: runCommits,
}

func init() {
	commitsCmd.Flags().StringVar(&commitAuthor, "author", "", "author pattern, matched against name or email")
	commitsCmd.Flags().StringVar(&commitSince, "since", "", "start date (inclusive, YYYY-MM-DD or RFC 3339)")
	commitsCmd.Flags().StringVar(&commitUntil, "until", "", "end date (inclusive)")
	commitsCmd.Flags().StringVar(&commitBranch, "branch", "", "restrict to one branch (bypasses the cache)")
	commitsCmd.Flags().IntVar(&commitLimit, "limit", 0, "hard cap on total results")
	commitsCmd.Flags().IntVar(&commitPage, "page", 1, "page number")
	commitsCmd.Flags().IntVar(&commitPageSize, "page-size", 20, "results per page")
	commitsCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the commit month cache")
	commitsCmd.Flags().BoolVar(&includeUnnamed, "include-unnamed", false, "include repositories without a resolvable display name")
}

func runCommits(cmd *cobra.Command, args []string) error {
	query, err := buildCommitQuery()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	commits, err := eng.agg.Commits(context.Background(), query)
	if err != nil {
		return err
	}

	page, meta := aggregator.Paginate(commits, commitPage, commitPageSize)

	if jsonOutput {
		return printJSON(map[string]any{"commits": page, "pagination": meta})
	}

	if len(page) == 0 {
		fmt.Println("No commits found.")
		return nil
	}

	for _, c := range page {
		branch := c.Branch
		if branch == "" {
			branch = "-"
		}
		fmt.Printf("%s  %s  %-22s %-12s %s\n",
			shortHash(c.Hash),
			c.Timestamp.Format("2006-01-02 15:04"),
			truncateString(c.Author, 22),
			truncateString(branch, 12),
			c.Subject)
	}
	fmt.Printf("\nPage %d/%d (%d commits total)\n", meta.Page, meta.TotalPages, meta.Total)
	return nil
}

func buildCommitQuery() (aggregator.CommitQuery, error) {
	query := aggregator.CommitQuery{
		AuthorPattern:  commitAuthor,
		Branch:         commitBranch,
		Limit:          commitLimit,
		NoCache:        noCache,
		IncludeUnnamed: includeUnnamed,
	}

	var err error
	if query.Since, err = parseDateFlag(commitSince, false); err != nil {
		return query, err
	}
	if query.Until, err = parseDateFlag(commitUntil, true); err != nil {
		return query, err
	}
	return query, nil
}

// parseDateFlag accepts YYYY-MM-DD or RFC 3339. A date-only end bound is
// pushed to the last second of that day so the range stays inclusive.
func parseDateFlag(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, clerrors.ValidationErrorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", raw)
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
