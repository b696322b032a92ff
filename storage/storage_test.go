package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = zerolog.Nop()

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSafeCopyFreshDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "new material")

	require.NoError(t, SafeCopy(testLog, src, dst))
	assert.Equal(t, "new material", readFile(t, dst))

	_, err := os.Stat(dst + BackupSuffix)
	assert.True(t, os.IsNotExist(err), "no backup should exist for a fresh destination")
}

func TestSafeCopyBacksUpExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "renewed")
	writeFile(t, dst, "previous")

	require.NoError(t, SafeCopy(testLog, src, dst))
	assert.Equal(t, "renewed", readFile(t, dst))
	assert.Equal(t, "previous", readFile(t, dst+BackupSuffix))
}

func TestSafeCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := SafeCopy(testLog, filepath.Join(dir, "absent"), filepath.Join(dir, "dst"))
	require.Error(t, err)
}

func TestMergeFilesOrdering(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, KeyFile)
	chain := filepath.Join(dir, ChainFile)
	dst := filepath.Join(dir, "bundle.pem")
	writeFile(t, key, "KEY\n")
	writeFile(t, chain, "CHAIN\n")

	require.NoError(t, MergeFiles(testLog, dst, key, chain))
	assert.Equal(t, "KEY\nCHAIN\n", readFile(t, dst), "key bytes must precede chain bytes")
}

func TestMergeFilesBacksUpExistingBundle(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, KeyFile)
	chain := filepath.Join(dir, ChainFile)
	dst := filepath.Join(dir, "bundle.pem")
	writeFile(t, key, "k2")
	writeFile(t, chain, "c2")
	writeFile(t, dst, "k1c1")

	require.NoError(t, MergeFiles(testLog, dst, key, chain))
	assert.Equal(t, "k2c2", readFile(t, dst))
	assert.Equal(t, "k1c1", readFile(t, dst+BackupSuffix))
}

func TestMergeFilesMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "bundle.pem")
	writeFile(t, dst, "intact")

	err := MergeFiles(testLog, dst, filepath.Join(dir, "absent.pem"))
	require.Error(t, err)
	assert.Equal(t, "intact", readFile(t, dst), "a failed merge must not touch the destination")
}

func TestCopyFiles(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, KeyFile), "key bytes")
	writeFile(t, filepath.Join(srcDir, ChainFile), "chain bytes")

	require.NoError(t, CopyFiles(testLog, srcDir, dstDir, KeyFile, ChainFile))
	assert.Equal(t, "key bytes", readFile(t, filepath.Join(dstDir, KeyFile)))
	assert.Equal(t, "chain bytes", readFile(t, filepath.Join(dstDir, ChainFile)))
}
