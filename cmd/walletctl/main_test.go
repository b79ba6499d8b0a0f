package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()

	out := bytes.NewBuffer(nil)
	require.NoError(t, run(args, out, io.Discard))

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	return result
}

func TestRun_Simulated(t *testing.T) {
	assert.Equal(t, map[string]any{"connected": true}, runJSON(t, "-simulate", "ping"))
	assert.Equal(t, map[string]any{"status": "Uninitialized"}, runJSON(t, "-simulate", "status"))
	assert.Equal(t, map[string]any{"created": true}, runJSON(t, "-simulate", "create", "1234"))

	version := runJSON(t, "-simulate", "version")
	assert.EqualValues(t, 1, version["minor"])
}

func TestRun_Errors(t *testing.T) {
	tests := [][]string{
		{},
		{"-simulate", "teleport"},
		{"-simulate", "address"},
		{"-simulate", "address", "minus-one"},
		{"-simulate", "sign", "0", "lc1", "ten", "1"},
		{"-config", filepath.Join("does", "not", "exist.toml"), "ping"},
	}

	for _, args := range tests {
		err := run(args, io.Discard, io.Discard)
		assert.Error(t, err, "%v", args)
	}
}

func TestRun_Replay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")
	runJSON(t, "-simulate", "-transcript", path, "ping")

	out := bytes.NewBuffer(nil)
	require.NoError(t, run([]string{"replay", path}, out, io.Discard))

	var results []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "CMD_PING", results[0]["command"])
	assert.Equal(t, "aa0101c1e0", results[0]["request"])
	assert.Equal(t, "504f4e47", results[0]["response"])
	assert.Empty(t, results[0]["error"])
}
