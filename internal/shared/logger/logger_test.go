package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONInProd(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)

	log.Info().Str("action_id", "abc").Msg("payout completed")
	log.Debug().Msg("dropped at info level")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "payout completed", line["message"])
	assert.Equal(t, "abc", line["action_id"])
	assert.Equal(t, "payoutguard", line["service"])
}

func TestNewWithWriter_ConsoleInDev(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, true)

	log.Debug().Msg("visible in dev")

	assert.Contains(t, buf.String(), "visible in dev")
}
