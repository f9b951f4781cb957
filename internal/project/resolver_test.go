package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	git "github.com/go-git/go-git/v5"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-project", "my-project"},
		{"proj_2", "proj_2"},
		{"", Unknown},
		{"has spaces", Unknown},
		{"path/segment", Unknown},
		{"dots.are.out", Unknown},
		{strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{strings.Repeat("a", 101), Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestResolveEmptyCWD(t *testing.T) {
	r := NewResolver()
	assert.Equal(t, Unknown, r.Resolve(""))
}

func TestResolveFallsBackToBaseName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plain-dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	r := NewResolver()
	assert.Equal(t, "plain-dir", r.Resolve(dir))
}

func TestResolveUsesRepositoryRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo-name")
	nested := filepath.Join(root, "internal", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, err := git.PlainInit(root, false)
	require.NoError(t, err)

	r := NewResolver()
	assert.Equal(t, "repo-name", r.Resolve(nested))
}

func TestResolveSanitizesDirectoryName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bad name!")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	r := NewResolver()
	assert.Equal(t, Unknown, r.Resolve(dir))
}

func TestResolveMemoizes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cached-dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	r := NewResolver()
	first := r.Resolve(dir)

	// Removing the directory does not change the cached answer.
	require.NoError(t, os.RemoveAll(dir))
	assert.Equal(t, first, r.Resolve(dir))
}
