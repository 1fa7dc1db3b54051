package deployer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenetaranov/depctl/internal/pathguard"
)

func writeDeployer(t *testing.T, dir, rel, script string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(script), mode))
	return path
}

func TestVerifySucceeds(t *testing.T) {
	dir := t.TempDir()
	writeDeployer(t, dir, "vendor/bin/dep", "#!/bin/sh\necho 'Deployer 7.3.1'\n", 0o755)

	v := NewVerifier()
	path, err := v.Verify(context.Background(), "vendor/bin/dep", dir, nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "dep", filepath.Base(path))
}

func TestVerifyRejectsEscapingPath(t *testing.T) {
	dir := t.TempDir()

	v := NewVerifier()
	_, err := v.Verify(context.Background(), "../outside/dep", dir, nil)
	assert.ErrorIs(t, err, pathguard.ErrPathEscape)
}

func TestVerifyMissingBinary(t *testing.T) {
	v := NewVerifier()
	_, err := v.Verify(context.Background(), "vendor/bin/dep", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifySelfHealsPermissions(t *testing.T) {
	dir := t.TempDir()
	path := writeDeployer(t, dir, "vendor/bin/dep", "#!/bin/sh\necho 'Deployer 7.3.1'\n", 0o644)

	v := NewVerifier()
	_, err := v.Verify(context.Background(), "vendor/bin/dep", dir, nil)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)
}

func TestVerifyFailsOnNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeDeployer(t, dir, "dep", "#!/bin/sh\nexit 3\n", 0o755)

	v := NewVerifier()
	_, err := v.Verify(context.Background(), "dep", dir, nil)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestVerifyFailsOnEmptyVersionOutput(t *testing.T) {
	dir := t.TempDir()
	writeDeployer(t, dir, "dep", "#!/bin/sh\nexit 0\n", 0o755)

	v := NewVerifier()
	_, err := v.Verify(context.Background(), "dep", dir, nil)
	assert.ErrorIs(t, err, ErrVerification)
}
