package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"feesuggest/internal/config"
)

func TestServeLogOutput(t *testing.T) {
	cfg, err := config.Parse([]byte("rpc:\n  http: http://127.0.0.1:8545\n"))
	require.NoError(t, err)

	// records go to stdout, so logs must not
	require.Equal(t, os.Stderr, serveLogOutput(cfg, true))
	require.Equal(t, os.Stdout, serveLogOutput(cfg, false))

	cfg.Output.JSONLPath = filepath.Join(t.TempDir(), "fees.jsonl")
	require.Equal(t, os.Stdout, serveLogOutput(cfg, true))
}

func TestNewLoggerFormat(t *testing.T) {
	cfg, err := config.Parse([]byte("rpc:\n  http: http://127.0.0.1:8545\nlog:\n  level: warn\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, err := newLogger(cfg, &buf, "")
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept", "k", "v")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["msg"])

	buf.Reset()
	logger, err = newLogger(cfg, &buf, "text")
	require.NoError(t, err)
	logger.Warn("kept")
	require.Contains(t, buf.String(), "msg=kept")
}
