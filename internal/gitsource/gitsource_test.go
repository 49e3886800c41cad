package gitsource

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/conorfennell/decks.git", want: filepath.Join("repos", "github.com", "conorfennell", "decks")},
		{name: "https without suffix", url: "https://gitlab.com/a/b", want: filepath.Join("repos", "gitlab.com", "a", "b")},
		{name: "scp-like", url: "git@github.com:conorfennell/decks.git", want: filepath.Join("repos", "github.com", "conorfennell", "decks")},
		{name: "local path", url: "decks/zh", wantErr: true},
		{name: "missing repo path", url: "git@github.com:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalPath("repos", tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsGitURL(t *testing.T) {
	assert.True(t, IsGitURL("https://github.com/a/b"))
	assert.True(t, IsGitURL("git@github.com:a/b.git"))
	assert.True(t, IsGitURL("/srv/decks.git"))
	assert.False(t, IsGitURL("decks/zh"))
}

func TestSync(t *testing.T) {
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("file transport needs git-upload-pack")
	}
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(upstream, name), []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
		_, err = wt.Commit("add "+name, &git.CommitOptions{
			Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
		})
		require.NoError(t, err)
	}
	commit("deck.yaml", "id: zh_CN\nfields: [text]\n")

	local := filepath.Join(t.TempDir(), "mirror")
	ctx := context.Background()
	require.NoError(t, Sync(ctx, upstream, local, nil))
	assert.FileExists(t, filepath.Join(local, "deck.yaml"))

	require.NoError(t, Sync(ctx, upstream, local, nil), "pulling an up-to-date mirror is not an error")

	commit("words.md", "text: apple\n")
	require.NoError(t, Sync(ctx, upstream, local, nil))
	assert.FileExists(t, filepath.Join(local, "words.md"))
}
