package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReportConfig is the company profile and export limits used by generated reports.
type ReportConfig struct {
	Company CompanyProfile `mapstructure:"company"`
	MaxRows int            `mapstructure:"maxRows"`
}

type CompanyProfile struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Email   string `mapstructure:"email"`
	Phone   string `mapstructure:"phone"`
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Company: CompanyProfile{
			Name:    "EcoScape Hub",
			Address: "123 Green Valley Road, Portland, OR 97201",
			Email:   "hello@ecoscapehub.com",
			Phone:   "(555) 123-4567",
		},
		MaxRows: 5000,
	}
}

type ReportConfigHolder struct {
	current atomic.Value // holds ReportConfig
}

// NewStaticReportConfigHolder returns a holder that never reloads.
func NewStaticReportConfigHolder(cfg ReportConfig) *ReportConfigHolder {
	holder := &ReportConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewReportConfigHolder loads report.yml and keeps it hot-reloaded.
func NewReportConfigHolder(log *zap.Logger) (*ReportConfigHolder, error) {
	log = log.Named("config.report")
	v := viper.New()

	v.SetConfigName("report")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/ecoscape")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ECOSCAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReportConfig()
	v.SetDefault("report.company.name", defaults.Company.Name)
	v.SetDefault("report.company.address", defaults.Company.Address)
	v.SetDefault("report.company.email", defaults.Company.Email)
	v.SetDefault("report.company.phone", defaults.Company.Phone)
	v.SetDefault("report.maxRows", defaults.MaxRows)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeReportConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateReportConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticReportConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeReportConfig(v)
		if err != nil {
			log.Warn("report config reload failed", zap.Error(err))
			return
		}
		if err := validateReportConfig(updated); err != nil {
			log.Warn("invalid report config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("report config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// decodeReportConfig reads the merged settings so keys missing from the file
// keep their defaults.
func decodeReportConfig(v *viper.Viper) (ReportConfig, error) {
	out := struct {
		Report ReportConfig `mapstructure:"report"`
	}{Report: DefaultReportConfig()}
	if err := v.Unmarshal(&out); err != nil {
		return ReportConfig{}, err
	}
	return out.Report, nil
}

func (h *ReportConfigHolder) Get() ReportConfig {
	return h.current.Load().(ReportConfig)
}

func validateReportConfig(cfg ReportConfig) error {
	if strings.TrimSpace(cfg.Company.Name) == "" {
		return errors.New("report.company.name cannot be empty")
	}
	if cfg.MaxRows <= 0 {
		return errors.New("report.maxRows must be positive")
	}
	return nil
}
