package gitinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *git.Repository, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add(name)
	require.NoError(t, err)
	_, err = worktree.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	require.NoError(t, err)
}

func TestDescribe_CleanRepo(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "README.md", "hello\n")

	info, err := Describe(dir)
	require.NoError(t, err)

	assert.NotEmpty(t, info.Branch)
	assert.Len(t, info.Commit, 7)
	assert.False(t, info.Dirty)
	assert.NotContains(t, info.String(), "+dirty")
}

func TestDescribe_DirtyRepo(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "README.md", "hello\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0644))

	info, err := Describe(dir)
	require.NoError(t, err)

	assert.True(t, info.Dirty)
	assert.Contains(t, info.String(), "+dirty")
}

func TestDescribe_Subdirectory(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "README.md", "hello\n")

	subDir := filepath.Join(dir, "deploy", "ome")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	info, err := Describe(subDir)
	require.NoError(t, err)
	assert.Len(t, info.Commit, 7)
}

func TestDescribe_NotARepo(t *testing.T) {
	_, err := Describe(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open repository")
}
