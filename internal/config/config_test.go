package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("BOOTSTRAP_ADMIN", "")

	cfg := Load()
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.AuthTokenTTL)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Bootstrap.EnsureAdmin)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("ADMIN_EMAIL", "  Owner@EcoScape.test ")

	cfg := Load()
	assert.Equal(t, "sqlite", DatabaseConfig(cfg).Type)
	assert.Equal(t, 90*time.Minute, cfg.AuthTokenTTL)
	assert.Equal(t, "owner@ecoscape.test", cfg.Bootstrap.AdminEmail)
}

func TestReportConfigDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewReportConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultReportConfig(), holder.Get())
}

func TestReportConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("report:\n  company:\n    name: Green Acres\n  maxRows: 25\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewReportConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Green Acres", holder.Get().Company.Name)
	assert.Equal(t, 25, holder.Get().MaxRows)
	assert.Equal(t, DefaultReportConfig().Company.Email, holder.Get().Company.Email)
}

func TestReportConfigPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte("report:\n  company:\n    email: office@greenacres.test\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewReportConfigHolder(zap.NewNop())
	require.NoError(t, err)

	want := DefaultReportConfig()
	want.Company.Email = "office@greenacres.test"
	assert.Equal(t, want, holder.Get())
}

func TestDecodeReportConfigWithoutFile(t *testing.T) {
	cfg, err := decodeReportConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultReportConfig(), cfg)
}

func TestValidateReportConfig(t *testing.T) {
	assert.Error(t, validateReportConfig(ReportConfig{MaxRows: 1}))
	assert.Error(t, validateReportConfig(ReportConfig{Company: CompanyProfile{Name: "x"}}))
	assert.NoError(t, validateReportConfig(DefaultReportConfig()))
}
