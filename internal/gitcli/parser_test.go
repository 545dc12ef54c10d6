package gitcli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogOutput(t *testing.T) {
	output := "a1b2c3d|Alice Smith|alice@example.com|1709294400|origin/main, main, HEAD -> main|Fix the frobnicator\n" +
		"e4f5a6b|Bob Jones|bob@example.com|1709208000||Add tests for frobnicator\n"

	commits := parseLogOutput(output)
	require.Len(t, commits, 2)

	assert.Equal(t, "a1b2c3d", commits[0].Hash)
	assert.Equal(t, "Alice Smith", commits[0].Author)
	assert.Equal(t, "alice@example.com", commits[0].AuthorEmail)
	assert.Equal(t, time.Unix(1709294400, 0), commits[0].Timestamp)
	assert.Equal(t, "main", commits[0].Branch)
	assert.Equal(t, "Fix the frobnicator", commits[0].Subject)

	assert.Equal(t, "e4f5a6b", commits[1].Hash)
	assert.Empty(t, commits[1].Branch)
}

func TestParseLogOutputSubjectWithPipes(t *testing.T) {
	output := "abc1234|Alice|a@x.io|1709294400|main|feat: add a|b|c switch\n"

	commits := parseLogOutput(output)
	require.Len(t, commits, 1)
	assert.Equal(t, "feat: add a|b|c switch", commits[0].Subject)
}

func TestParseLogOutputSkipsMalformed(t *testing.T) {
	output := "not a log line\n" +
		"abc1234|Alice|a@x.io|1709294400|main|good commit\n" +
		"def5678|Bob|b@x.io|garbage-date|main|bad date commit\n"

	commits := parseLogOutput(output)
	require.Len(t, commits, 1)
	assert.Equal(t, "good commit", commits[0].Subject)
}

func TestParseCommitDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
		ok   bool
	}{
		{"epoch seconds", "1709294400", time.Unix(1709294400, 0), true},
		{"rfc3339", "2024-03-01T12:00:00Z", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), true},
		{"date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"garbage", "yesterday-ish", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCommitDate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseShowOutput(t *testing.T) {
	output := "abc1234|Alice|a@x.io|1709294400|main|refactor parser\n" +
		"10\t3\tinternal/parser.go\n" +
		"0\t25\tinternal/legacy.go\n" +
		"-\t-\tassets/logo.png\n"

	change := parseShowOutput(output)
	require.NotNil(t, change)

	assert.Equal(t, "abc1234", change.Hash)
	require.Len(t, change.Files, 3)
	assert.Equal(t, 10, change.Files[0].Additions)
	assert.Equal(t, 3, change.Files[0].Deletions)
	assert.True(t, change.Files[2].Binary)
	assert.Equal(t, 10, change.Additions)
	assert.Equal(t, 28, change.Deletions)
}

func TestParseShowOutputEmpty(t *testing.T) {
	assert.Nil(t, parseShowOutput(""))
}
