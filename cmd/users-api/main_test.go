package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPICommand(t *testing.T) {
	var out bytes.Buffer
	app := newCLI()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"users-api", "openapi", "--server-url", "http://api.example.com"}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "3.0.0", doc["openapi"])
	assert.Contains(t, out.String(), "http://api.example.com")
}

func TestServeCommand_BadConfig(t *testing.T) {
	app := newCLI()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"users-api", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "serve"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
