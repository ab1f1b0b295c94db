package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/agro-insight/internal/config"
)

func TestProdLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, &config.AppConfig{AppEnv: config.EnvProd, LogLevel: "info"})

	log.Debug("hidden")
	log.Info("upstream failed", "adapter", "weather")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "upstream failed", rec["msg"])
	assert.Equal(t, "weather", rec["adapter"])
	assert.Equal(t, appName, rec["app"])
	assert.Equal(t, config.EnvProd, rec["env"])
}

func TestDevLoggerIsText(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, &config.AppConfig{AppEnv: config.EnvDev, LogLevel: "warn"})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("laggard", "adapter", "market")
	assert.Contains(t, buf.String(), "laggard")
	assert.Contains(t, buf.String(), "market")
}
