package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"feesuggest/internal/feesuggest"
)

func sample() *feesuggest.Suggestions {
	return &feesuggest.Suggestions{
		BaseFeeSuggestion:                 "12375000000",
		BaseFeeTrend:                      feesuggest.TrendStable,
		CurrentBaseFee:                    "10000000000",
		BlocksToConfirmationByBaseFee:     map[int]string{4: "18933750000"},
		MaxPriorityFeeSuggestions:         map[string]string{feesuggest.TierNormal: "1800000000"},
		BlocksToConfirmationByPriorityFee: map[int]string{1: "5000000000"},
		ConfirmationTimeByPriorityFee:     map[int]string{15: "5000000000"},
	}
}

func TestSinkWritesFlatLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Write(Record{Time: at, Newest: "latest", Suggestions: sample()}))
	require.NoError(t, s.Write(Record{Time: at, Newest: "0x10", Suggestions: sample()}))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	require.Equal(t, "2024-03-01T12:00:00Z", got["time"])
	require.Equal(t, "latest", got["newest"])
	require.Equal(t, "12375000000", got["baseFeeSuggestion"])
	require.Equal(t, "stable", got["baseFeeTrend"])
	require.Equal(t, map[string]interface{}{"4": "18933750000"}, got["blocksToConfirmationByBaseFee"])
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "fees.jsonl")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Write(Record{Time: time.Unix(0, 0).UTC(), Newest: "latest", Suggestions: sample()}))
		require.NoError(t, s.Close())
	}
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(b), "\n"))
}
