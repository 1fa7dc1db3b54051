package pathguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinAcceptsRelativePath(t *testing.T) {
	got, err := Within("app", "vendor/bin/dep")
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	want := filepath.Join(cwd, "app", "vendor", "bin", "dep")
	if resolved, rerr := filepath.EvalSymlinks(filepath.Join(cwd, "app")); rerr == nil {
		want = filepath.Join(resolved, "vendor", "bin", "dep")
	}
	assert.Equal(t, want, got)
}

func TestWithinRejectsParentEscape(t *testing.T) {
	_, err := Within("app", "../secrets")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestWithinRejectsAbsoluteEscape(t *testing.T) {
	_, err := Within("app", "/etc/passwd")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestWithinRejectsSiblingPrefix(t *testing.T) {
	// "app-data" shares "app" as a string prefix but is not inside it.
	_, err := Within("app", "../app-data/file")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestWithinRejectsDotDotInsideMiddle(t *testing.T) {
	_, err := Within("app", "vendor/../../other")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestWithinAcceptsBaseItself(t *testing.T) {
	base := t.TempDir()
	got, err := Within(base, ".")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(base)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWithinAcceptsAbsolutePathInsideBase(t *testing.T) {
	base := t.TempDir()
	resolved, err := filepath.EvalSymlinks(base)
	require.NoError(t, err)

	got, err := Within(base, filepath.Join(resolved, "bin", "dep"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolved, "bin", "dep"), got)
}

func TestWithinResolvesSymlinkedBase(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(real, link))

	resolvedReal, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)

	got, err := Within(link, "vendor/bin/dep")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedReal, "vendor", "bin", "dep"), got)
}
