package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_LevelsAndService(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, LoggerConfig{Env: "production", Service: "rollcall-api"})

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.InfoContext(context.Background(), "registration.created")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "rollcall-api", rec["service"])
	assert.Nil(t, rec["source"])

	buf.Reset()
	log = newLogger(&buf, LoggerConfig{Env: "production", Level: "warn"})
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	buf.Reset()
	log = newLogger(&buf, LoggerConfig{Env: "dev", Level: "not-a-level"})
	log.Debug("shown")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotNil(t, rec["source"])
}
