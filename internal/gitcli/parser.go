package gitcli

import (
	"bufio"
	"strconv"
	"strings"
	"time"

	"github.com/commitlens/commitlens-go/internal/logging"
	"github.com/commitlens/commitlens-go/internal/models"
)

// Fallback layouts for non-epoch dates. %at is normally integer epoch
// seconds, but hooks and filters in the wild produce odd values.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseLogOutput parses pretty-format log lines into commits. Malformed
// lines and commits with unparseable dates are skipped with a warning, never
// fatal.
func parseLogOutput(output string) []models.Commit {
	var commits []models.Commit

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		commit, ok := parseLogLine(line)
		if !ok {
			continue
		}
		commits = append(commits, commit)
	}

	return commits
}

// parseLogLine parses one hash|author|email|epoch|refs|subject line
func parseLogLine(line string) (models.Commit, bool) {
	parts := strings.SplitN(line, "|", 6)
	if len(parts) != 6 {
		logging.Warn("skipping malformed log line", "line", truncate(line, 120))
		return models.Commit{}, false
	}

	timestamp, ok := parseCommitDate(parts[3])
	if !ok {
		logging.Warn("skipping commit with unparseable date",
			"hash", parts[0], "date", parts[3])
		return models.Commit{}, false
	}

	return models.Commit{
		Hash:        parts[0],
		Author:      parts[1],
		AuthorEmail: parts[2],
		Timestamp:   timestamp,
		Branch:      ResolveBranchFromRefs(parts[4]),
		Subject:     parts[5],
	}, true
}

// parseCommitDate prefers integer epoch seconds, then generic date layouts
func parseCommitDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(epoch, 0), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// parseShowOutput parses `git show --numstat --pretty=format:...` output:
// one header line followed by numstat lines.
func parseShowOutput(output string) *models.CodeChange {
	var change *models.CodeChange

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if change == nil {
			commit, ok := parseLogLine(line)
			if !ok {
				return nil
			}
			change = &models.CodeChange{Commit: commit}
			continue
		}

		fc, ok := parseNumstatLine(line)
		if !ok {
			continue
		}
		change.Files = append(change.Files, fc)
		change.Additions += fc.Additions
		change.Deletions += fc.Deletions
	}

	return change
}

// parseNumstatLine parses "additions<TAB>deletions<TAB>path". Binary files
// report "-" for both counts.
func parseNumstatLine(line string) (models.FileChange, bool) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) != 3 {
		return models.FileChange{}, false
	}

	if fields[0] == "-" || fields[1] == "-" {
		return models.FileChange{Path: fields[2], Binary: true}, true
	}

	additions, errA := strconv.Atoi(fields[0])
	deletions, errD := strconv.Atoi(fields[1])
	if errA != nil || errD != nil {
		return models.FileChange{}, false
	}

	return models.FileChange{
		Path:      fields[2],
		Additions: additions,
		Deletions: deletions,
	}, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
