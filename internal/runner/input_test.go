// internal/runner/input_test.go
package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIDsFromArgs(t *testing.T) {
	ids, err := ResolveIDs([]string{"1", "2,3"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestResolveIDsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.txt")
	err := os.WriteFile(path, []byte("4\n5\n"), 0644)
	require.NoError(t, err)

	ids, err := ResolveIDs(nil, path, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids)
}

func TestResolveIDsFromStdin(t *testing.T) {
	ids, err := ResolveIDs(nil, "", strings.NewReader("7 8\n"))
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, ids)
}

func TestResolveIDsArgsTakePrecedence(t *testing.T) {
	ids, err := ResolveIDs([]string{"1"}, "/nonexistent/path.txt", strings.NewReader("2"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestResolveIDsFileTakesPrecedenceOverStdin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.txt")
	require.NoError(t, os.WriteFile(path, []byte("3"), 0644))

	ids, err := ResolveIDs(nil, path, strings.NewReader("9"))
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)
}

func TestResolveIDsNoInput(t *testing.T) {
	_, err := ResolveIDs(nil, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tool ids")

	_, err = ResolveIDs(nil, "", strings.NewReader("   "))
	assert.ErrorContains(t, err, "no tool ids")
}

func TestResolveIDsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	_, err := ResolveIDs(nil, path, nil)
	assert.ErrorContains(t, err, "id file is empty")
}

func TestResolveIDsFileMissing(t *testing.T) {
	_, err := ResolveIDs(nil, "/nonexistent/path.txt", nil)
	require.Error(t, err)
}

func TestParseIDsRejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "1,-2", "0", "1.5"} {
		_, err := ParseIDs(in)
		assert.Error(t, err, in)
	}
}

func TestParseStacks(t *testing.T) {
	stacks, err := ParseStacks([]string{"1,2,3", "4,5"})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 2, 3}, {4, 5}}, stacks)

	_, err = ParseStacks([]string{"1,2", "x"})
	assert.ErrorContains(t, err, "stack 2")
}
