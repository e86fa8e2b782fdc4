package observability

import (
	"testing"

	"github.com/smallbiznis/ecoscape/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigProjectsAppConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppVersion:        " 1.2.3 ",
		Environment:       "Production",
		OtelEnabled:       true,
		OTLPEndpoint:      "collector:4317",
		OTLPProtocol:      "grpc",
		OtelSamplingRatio: 4,
	})
	assert.Equal(t, "ecoscape", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestOtelDisabledWithoutEndpoint(t *testing.T) {
	cfg := LoadConfig(config.Config{OtelEnabled: true})
	assert.False(t, cfg.OtelEnabled)
}

func TestDebugInDevelopment(t *testing.T) {
	assert.True(t, Config{Environment: "development"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "debug"}.Debug())
}

func TestSplitConfigSharesIdentity(t *testing.T) {
	out := splitConfig(Config{ServiceName: "ecoscape", Environment: "test", Version: "0.1.0", OtelSamplingRatio: 0.5})
	assert.Equal(t, "ecoscape", out.Logger.ServiceName)
	assert.True(t, out.Logger.Debug)
	assert.Equal(t, "0.1.0", out.Tracing.ServiceVersion)
	assert.Equal(t, 0.5, out.Tracing.SamplingRatio)
	assert.Equal(t, "test", out.Metrics.Environment)
}
