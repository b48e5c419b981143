package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	natspkg "github.com/brojonat/assetxfer/service/nats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	TxID           string `json:"tx_id"`
	ConfirmedRound uint64 `json:"confirmed_round"`
	AssetIndex     uint64 `json:"asset_index,omitempty"`
}

func TestWriteOutput(t *testing.T) {
	v := sample{TxID: "TX1", ConfirmedRound: 103, AssetIndex: 9}
	human := func(w io.Writer) { io.WriteString(w, "confirmed TX1\n") }

	tests := []struct {
		name    string
		jsonOut bool
		jq      string
		want    string
		wantErr bool
	}{
		{name: "human", want: "confirmed TX1\n"},
		{name: "json", jsonOut: true, want: "{\n  \"tx_id\": \"TX1\",\n  \"confirmed_round\": 103,\n  \"asset_index\": 9\n}\n"},
		{name: "jq field", jq: ".confirmed_round", want: "103\n"},
		{name: "jq implies json", jq: "{id: .tx_id}", want: "{\"id\":\"TX1\"}\n"},
		{name: "jq multiple results", jq: ".tx_id, .asset_index", want: "\"TX1\"\n9\n"},
		{name: "jq parse error", jq: ".[", wantErr: true},
		{name: "jq runtime error", jq: ".tx_id | tonumber", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeOutput(&buf, v, tt.jsonOut, tt.jq, human)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestMatchesJQ(t *testing.T) {
	event := &natspkg.ConfirmationEvent{TxID: "TX1", Network: "algorand", Outcome: "timeout", TimeoutRounds: 5}

	tests := []struct {
		expr string
		want bool
	}{
		{`.outcome == "timeout"`, true},
		{`.outcome == "confirmed"`, false},
		{`.timeout_rounds > 3`, true},
		{`.missing`, false},
		{`.tx_id`, true},
		{`empty`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			code, err := compileJQ(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, matchesJQ(code, event))
		})
	}
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0))
	assert.True(t, isTruthy(""))
	assert.True(t, isTruthy(map[string]interface{}{}))
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := setupLogger(tt.level)
			assert.True(t, logger.Enabled(context.Background(), tt.want))
			if tt.want > slog.LevelDebug {
				assert.False(t, logger.Enabled(context.Background(), tt.want-1))
			}
		})
	}
}

func TestPrintEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		event *natspkg.ConfirmationEvent
		want  string
	}{
		{
			&natspkg.ConfirmationEvent{TxID: "TX1", Network: "algorand", Outcome: "confirmed", ConfirmedRound: 103, PublishedAt: at},
			"15:04:05 algorand TX1 confirmed in round 103\n",
		},
		{
			&natspkg.ConfirmationEvent{TxID: "TX1", Network: "algorand", Outcome: "rejected", PoolError: "overspend", PublishedAt: at},
			"15:04:05 algorand TX1 rejected: overspend\n",
		},
		{
			&natspkg.ConfirmationEvent{TxID: "TX1", Network: "algorand", Outcome: "timeout", TimeoutRounds: 5, PublishedAt: at},
			"15:04:05 algorand TX1 not confirmed after 5 rounds\n",
		},
		{
			&natspkg.ConfirmationEvent{TxID: "TX1", Network: "algorand", Outcome: "node_unavailable", Error: "unable to get node status", PublishedAt: at},
			"15:04:05 algorand TX1 node_unavailable: unable to get node status\n",
		},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		printEvent(&buf, tt.event)
		assert.Equal(t, tt.want, buf.String())
	}
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"assetxfer"}, args...))
	return stdout.String(), err
}

func TestCommandArgumentValidation(t *testing.T) {
	t.Setenv("ALGOD_SERVER", "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "transfer needs four arguments",
			args:    []string{"transfer", "alice", "1111", "bob"},
			wantErr: "expected 4 arguments",
		},
		{
			name:    "workflow start needs four arguments",
			args:    []string{"workflow", "start", "alice"},
			wantErr: "expected 4 arguments",
		},
		{
			name:    "confirm needs a txid",
			args:    []string{"confirm"},
			wantErr: "transaction id is required",
		},
		{
			name:    "confirm rejects unknown network",
			args:    []string{"confirm", "--network", "bitcoin", "TX1"},
			wantErr: "unknown network",
		},
		{
			name:    "status needs an algod server",
			args:    []string{"status"},
			wantErr: "--algod-server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got %q", err.Error())
		})
	}
}

func TestTransfer_RequiresConfig(t *testing.T) {
	t.Setenv("ORE_API_KEY", "")
	t.Setenv("ORE_SERVICE_KEY", "")
	t.Setenv("ALGOD_SERVER", "")

	_, err := runApp(t, "transfer", "alice", "1111", "bob", "2222")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORE_API_KEY is required")
}
