package app

import (
	"github.com/coursehub/perfwatch/config"
	"github.com/coursehub/perfwatch/internal/alert"
	"github.com/coursehub/perfwatch/internal/baseline"
	"github.com/coursehub/perfwatch/internal/recorder"
	"github.com/coursehub/perfwatch/internal/threshold"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ConfigManagerProvider provides configuration manager access
type ConfigManagerProvider interface {
	ConfigMgr() *ConfigManager
}

// MonitorProvider exposes the performance core components
type MonitorProvider interface {
	Recorder() *recorder.Recorder
	Evaluator() *threshold.Evaluator
	Baselines() *baseline.Manager
	Dispatcher() *alert.Dispatcher
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	ConfigManagerProvider
	MonitorProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
