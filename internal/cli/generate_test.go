package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateFromManifest(t *testing.T) {
	output := filepath.Join(t.TempDir(), "openapi.json")
	out, err := runCommand(t, "-o", output, filepath.Join("testdata", "membership.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 1 paths")

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "3.0.0", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/user/")
}

func TestGenerateYAMLOutput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "openapi.yaml")
	_, err := runCommand(t, "-o", output, "-f", "yaml", filepath.Join("testdata", "membership.yaml"))
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "openapi: 3.0.0")
	assert.Contains(t, string(data), "/user/:")
}

// Documentation errors fail the run and suppress the output file.
func TestGenerateWithErrorsWritesNothing(t *testing.T) {
	output := filepath.Join(t.TempDir(), "openapi.json")
	_, err := runCommand(t, "-o", output, filepath.Join("testdata", "broken.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "documentation errors found, nothing written")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateMissingApplication(t *testing.T) {
	_, err := runCommand(t, filepath.Join("testdata", "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not discover application")
}
