package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setupDataDir(t *testing.T, format string) string {
	t.Helper()
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "data", "candidates.txt")
	t.Setenv("GABAY_DATA_FILE", dataFile)
	t.Setenv("GABAY_DATA_FORMAT", format)
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestImportListSearchShowDelete(t *testing.T) {
	dir := setupDataDir(t, "block")

	legacy := filepath.Join(dir, "legacy.txt")
	require.NoError(t, os.WriteFile(legacy, []byte(
		"Ana Reyes|45|Senator|Independent|NCR|10|Slogan|Health|||||Divorce - Agree\n"+
			"Ben Santos|52|Mayor|Lakas|Region VII|20|Slogan||||||\n"+
			"Broken|52\n"), 0o644))

	out, err := run(t, "", "import", legacy)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 candidate(s)")
	assert.Contains(t, out, "skipped line 3")

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Reyes")
	assert.Contains(t, out, "Ben Santos")
	assert.Contains(t, out, "2 candidate(s)")

	out, err = run(t, "", "list", "--region", "ncr")
	require.NoError(t, err)
	assert.Contains(t, out, "1 candidate(s)")

	out, err = run(t, "", "search", "santos")
	require.NoError(t, err)
	assert.Contains(t, out, "Ben Santos")
	assert.NotContains(t, out, "Ana Reyes")

	_, err = run(t, "", "search", "x")
	assert.Error(t, err)

	out, err = run(t, "", "show", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Reyes")
	assert.Contains(t, out, "Agree")

	_, err = run(t, "", "show", "7")
	assert.Error(t, err)

	out, err = run(t, "", "delete", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted Ana Reyes")

	out, err = run(t, "", "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Ben Santos|52|Mayor|Lakas|Region VII|20|"))
}

func TestExportToFile(t *testing.T) {
	dir := setupDataDir(t, "delimited")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "candidates.txt"), []byte(
		"Ana Reyes|45|Senator|Independent|NCR|10|Slogan||||||\n"), 0o644))

	target := filepath.Join(dir, "out.txt")
	out, err := run(t, "", "export", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 candidate(s)")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Ana Reyes|45|"))
}

func TestCheck(t *testing.T) {
	dir := setupDataDir(t, "block")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "candidates.txt"), []byte(
		"Name: Ana Reyes\nAge: 45\nPosition: Senator\nParty Affiliation: Independent\n\n"+
			"Name: Too Young\nAge: 12\nPosition: Mayor\nParty Affiliation: Lakas\n\n"+
			"Name: Broken\nAge: old\n"), 0o644))

	out, err := run(t, "", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "2 candidate(s) loaded")
	assert.Contains(t, out, `invalid "Too Young"`)
	assert.Contains(t, out, "Age")

	_, err = run(t, "", "check", "--strict")
	assert.Error(t, err)
}

func TestCheck_CleanFile(t *testing.T) {
	setupDataDir(t, "block")

	out, err := run(t, "", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "0 candidate(s) loaded")
	assert.Contains(t, out, "OK")
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "hunter22\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter22")))

	out, err = run(t, "", "hash-password", "another")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("another")))

	_, err = run(t, "", "hash-password")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Gabáy Core v"+Version)
}

func TestInvalidFormatFromEnvironment(t *testing.T) {
	setupDataDir(t, "yaml")

	_, err := run(t, "", "list")
	assert.Error(t, err)
}
