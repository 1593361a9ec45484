package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/coursehub/perfwatch/config"
	"github.com/coursehub/perfwatch/internal/alert"
	"github.com/coursehub/perfwatch/internal/baseline"
	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/coursehub/perfwatch/internal/recorder"
	"github.com/coursehub/perfwatch/internal/threshold"
	"github.com/coursehub/perfwatch/pkg/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// ViolationTopic is the event bus topic carrying detected violations from
// the evaluation jobs to the alert dispatcher.
const ViolationTopic = "perf.violation"

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	bus           EventBus.Bus
	configManager *ConfigManager

	recorder    *recorder.Recorder
	evaluator   *threshold.Evaluator
	baselineMgr *baseline.Manager
	dispatcher  *alert.Dispatcher
	boltStore   *baseline.BoltStore // set only when the bolt store is selected
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SettingsProvider  = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ MonitorProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.Logger.FileEnable {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.Logger.Filename)
	}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	// Initialize the gauge store with workdir convention
	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.configManager = NewConfigManager(a.gormDB)
	a.checkSettings()

	a.initMonitoring()
	a.initJob()
}

// initMonitoring wires the performance core: recorder, evaluator, baseline
// manager, dispatcher and the violation event bus.
func (a *Application) initMonitoring() {
	mon := a.appConfig.Monitoring

	a.recorder = recorder.New(mon.SampleCapacity)
	a.evaluator = threshold.NewEvaluator(thresholdFromConfig(mon.Thresholds))
	a.applyThresholdOverrides()

	var store baseline.Store
	if mon.BaselineStore == "bolt" {
		bs, err := baseline.NewBoltStore(a.appConfig.System.Workdir)
		if err != nil {
			zap.S().Panicf("baseline store init failed: %s", err)
		}
		a.boltStore = bs
		store = bs
	} else {
		store = baseline.NewGormStore(a.gormDB)
	}

	a.baselineMgr = baseline.NewManager(store, a.recorder, baseline.Config{
		CriticalEndpoints:   mon.CriticalEndpoints,
		CaptureWindowMillis: mon.CaptureWindowMillis,
		CompareWindowMillis: mon.EvalWindowMillis,
	})
	if err := a.baselineMgr.LoadActive(context.Background()); err != nil {
		zap.L().Warn("failed to restore active baseline", zap.Error(err))
	}

	channels, err := alert.BuildChannels(mon.Channels)
	if err != nil {
		zap.S().Panicf("alert channel config error: %s", err)
	}
	a.dispatcher, err = alert.NewDispatcher(channels, alert.DefaultCooldowns())
	if err != nil {
		zap.S().Panicf("alert dispatcher init failed: %s", err)
	}

	a.bus = EventBus.New()
	if err := a.bus.SubscribeAsync(ViolationTopic, a.dispatcher.HandleViolation, false); err != nil {
		zap.S().Panicf("event bus subscription failed: %s", err)
	}

	zap.L().Info("performance monitoring initialized",
		zap.Int("sample_capacity", a.recorder.Capacity()),
		zap.Int("channels", len(channels)),
		zap.String("baseline_store", mon.BaselineStore))
}

// checkSettings seeds runtime-tunable defaults that are not present yet.
func (a *Application) checkSettings() {
	a.configManager.SetIfMissing("baseline", "auto_update_min_age_days", "7")
	a.configManager.SetIfMissing("baseline", "auto_update_improvement_percent", "20")
	a.configManager.SetIfMissing("alert", "record_retention_hours", "24")
}

// applyThresholdOverrides layers persisted runtime overrides on top of the
// file config. Zero settings leave the current value untouched.
func (a *Application) applyThresholdOverrides() {
	cfg := a.evaluator.Config()
	override := func(dst *float64, key string) {
		if v := a.configManager.GetFloat64("threshold", key); v > 0 {
			*dst = v
		}
	}
	override(&cfg.ResponseTimeMs.Warning, "response_time_warn_ms")
	override(&cfg.ResponseTimeMs.Critical, "response_time_crit_ms")
	override(&cfg.MemoryPercent.Warning, "memory_warn_percent")
	override(&cfg.MemoryPercent.Critical, "memory_crit_percent")
	override(&cfg.ErrorRatePercent.Warning, "error_rate_warn_percent")
	override(&cfg.ErrorRatePercent.Critical, "error_rate_crit_percent")
	a.evaluator.SetConfig(cfg)
}

func thresholdFromConfig(tc config.ThresholdConfig) threshold.Config {
	return threshold.Config{
		ResponseTimeMs:   threshold.Limits{Warning: tc.ResponseTimeWarnMs, Critical: tc.ResponseTimeCritMs},
		MemoryPercent:    threshold.Limits{Warning: tc.MemoryWarnPercent, Critical: tc.MemoryCritPercent},
		ErrorRatePercent: threshold.Limits{Warning: tc.ErrorRateWarnPercent, Critical: tc.ErrorRateCritPercent},
	}
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
	}
}

// ConfigMgr returns the configuration manager
func (a *Application) ConfigMgr() *ConfigManager {
	return a.configManager
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Recorder returns the sample recorder (the request pipeline's entry point).
func (a *Application) Recorder() *recorder.Recorder {
	return a.recorder
}

// Evaluator returns the threshold evaluator.
func (a *Application) Evaluator() *threshold.Evaluator {
	return a.evaluator
}

// Baselines returns the baseline manager.
func (a *Application) Baselines() *baseline.Manager {
	return a.baselineMgr
}

// Dispatcher returns the alert dispatcher.
func (a *Application) Dispatcher() *alert.Dispatcher {
	return a.dispatcher
}

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.configManager.GetString(category, key)
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.configManager.GetInt64(category, key)
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.configManager.GetBool(category, key)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Release()
	}
	if a.boltStore != nil {
		_ = a.boltStore.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
