package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type DBConfig struct {
	Type   string `yaml:"type" json:"type"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Name   string `yaml:"name" json:"name"`
	User   string `yaml:"user" json:"user"`
	Passwd string `yaml:"passwd" json:"passwd"`
	Debug  bool   `yaml:"debug" json:"debug"`
}

// ThresholdConfig holds the two-tier limits per metric. Zero values fall back
// to the evaluator defaults.
type ThresholdConfig struct {
	ResponseTimeWarnMs   float64 `yaml:"response_time_warn_ms" json:"response_time_warn_ms"`
	ResponseTimeCritMs   float64 `yaml:"response_time_crit_ms" json:"response_time_crit_ms"`
	MemoryWarnPercent    float64 `yaml:"memory_warn_percent" json:"memory_warn_percent"`
	MemoryCritPercent    float64 `yaml:"memory_crit_percent" json:"memory_crit_percent"`
	ErrorRateWarnPercent float64 `yaml:"error_rate_warn_percent" json:"error_rate_warn_percent"`
	ErrorRateCritPercent float64 `yaml:"error_rate_crit_percent" json:"error_rate_crit_percent"`
}

// ChannelConfig describes one alert delivery channel. Settings are decoded
// into the channel-specific config struct at build time.
type ChannelConfig struct {
	Type     string                 `yaml:"type" json:"type"` // email | webhook | chat
	Name     string                 `yaml:"name" json:"name"`
	Enabled  bool                   `yaml:"enabled" json:"enabled"`
	Settings map[string]interface{} `yaml:"settings" json:"settings"`
}

type MonitoringConfig struct {
	SampleCapacity      int             `yaml:"sample_capacity" json:"sample_capacity"`
	RetentionMinutes    int             `yaml:"retention_minutes" json:"retention_minutes"`
	EvalWindowMillis    int64           `yaml:"eval_window_millis" json:"eval_window_millis"`
	CaptureWindowMillis int64           `yaml:"capture_window_millis" json:"capture_window_millis"`
	CriticalEndpoints   []string        `yaml:"critical_endpoints" json:"critical_endpoints"`
	BaselineStore       string          `yaml:"baseline_store" json:"baseline_store"` // postgres | bolt
	ViolationKeepDays   int             `yaml:"violation_keep_days" json:"violation_keep_days"`
	Thresholds          ThresholdConfig `yaml:"thresholds" json:"thresholds"`
	Channels            []ChannelConfig `yaml:"channels" json:"channels"`
}

type AppConfig struct {
	System     SysConfig        `yaml:"system" json:"system"`
	Web        WebConfig        `yaml:"web" json:"web"`
	Logger     LogConfig        `yaml:"logger" json:"logger"`
	Database   DBConfig         `yaml:"database" json:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "perfwatch",
		Location: "Asia/Shanghai",
		Workdir:  "/var/perfwatch",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1816,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/perfwatch/perfwatch.log",
	},
	Database: DBConfig{
		Type:   "postgres",
		Host:   "127.0.0.1",
		Port:   5432,
		Name:   "perfwatch",
		User:   "postgres",
		Passwd: "myroot",
	},
	Monitoring: MonitoringConfig{
		SampleCapacity:      10000,
		RetentionMinutes:    60,
		EvalWindowMillis:    60_000,
		CaptureWindowMillis: 3_600_000,
		BaselineStore:       "postgres",
		ViolationKeepDays:   90,
	},
}

func setEnvValue(name string, val *string) {
	if evalue := os.Getenv(name); evalue != "" {
		*val = evalue
	}
}

// LoadConfig reads the YAML config file, falling back to defaults, and applies
// PERFWATCH_* environment overrides for deployment secrets.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if _, err := os.Stat(cfile); err == nil {
			data, err := os.ReadFile(cfile)
			if err != nil {
				panic(err)
			}
			cfg = new(AppConfig)
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(fmt.Errorf("parse config %s: %w", cfile, err))
			}
		}
	}

	setEnvValue("PERFWATCH_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("PERFWATCH_DB_HOST", &cfg.Database.Host)
	setEnvValue("PERFWATCH_DB_NAME", &cfg.Database.Name)
	setEnvValue("PERFWATCH_DB_USER", &cfg.Database.User)
	setEnvValue("PERFWATCH_DB_PWD", &cfg.Database.Passwd)

	if cfg.Monitoring.SampleCapacity <= 0 {
		cfg.Monitoring.SampleCapacity = 10000
	}
	if cfg.Monitoring.EvalWindowMillis <= 0 {
		cfg.Monitoring.EvalWindowMillis = 60_000
	}
	if cfg.Monitoring.CaptureWindowMillis <= 0 {
		cfg.Monitoring.CaptureWindowMillis = 3_600_000
	}
	if cfg.Monitoring.RetentionMinutes <= 0 {
		cfg.Monitoring.RetentionMinutes = 60
	}
	if cfg.Monitoring.ViolationKeepDays <= 0 {
		cfg.Monitoring.ViolationKeepDays = 90
	}
	return cfg
}
