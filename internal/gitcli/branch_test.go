package gitcli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveBranchFromRefs(t *testing.T) {
	tests := []struct {
		name string
		refs string
		want string
	}{
		{
			name: "remote tracking preferred over local",
			refs: "origin/main, main, HEAD -> main",
			want: "main",
		},
		{
			name: "first remote tracking wins in decoration order",
			refs: "origin/develop, origin/main, develop",
			want: "develop",
		},
		{
			name: "local branch when no remote tracking",
			refs: "HEAD -> feature-x, tag: v1.2.0",
			want: "feature-x",
		},
		{
			name: "tags are never branch names",
			refs: "tag: v1.2.0, tag: latest",
			want: "",
		},
		{
			name: "HEAD alone resolves nothing",
			refs: "HEAD",
			want: "",
		},
		{
			name: "trailing segment from slashed local branch",
			refs: "HEAD, feature/login-rework",
			want: "login-rework",
		},
		{
			name: "origin HEAD pointer is skipped",
			refs: "origin/HEAD, origin/master",
			want: "master",
		},
		{
			name: "empty decoration",
			refs: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveBranchFromRefs(tt.refs))
		})
	}
}
