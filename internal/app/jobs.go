package app

import (
	"context"
	"os"
	"time"

	"github.com/coursehub/perfwatch/internal/aggregate"
	"github.com/coursehub/perfwatch/internal/baseline"
	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/coursehub/perfwatch/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedSampleRetentionTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 1m", func() {
		a.SchedThresholdEvalTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@hourly", func() {
		a.SchedBaselineValidateTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedBaselineAutoUpdateTask()
		a.SchedClearExpireData()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSystemMonitorTask collects system and process gauges.
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	// Collect memory usage; UsedPercent feeds the MEMORY_USAGE thresholds
	meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse_percent", int64(meminfo.UsedPercent))
		metrics.SetGauge("system_memuse", int64(meminfo.Used/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}
	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("perfwatch_cpuuse", int64(cpuuse*100)) // Store as percentage * 100
	}
	procmem, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("perfwatch_memuse", int64(procmem.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedSampleRetentionTask trims samples past the retention window. The ring
// bound already caps memory; this keeps window scans small.
func (a *Application) SchedSampleRetentionTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	retention := time.Duration(a.appConfig.Monitoring.RetentionMinutes) * time.Minute
	cutoff := time.Now().Add(-retention).UnixMilli()
	if removed := a.recorder.TrimBefore(cutoff); removed > 0 {
		zap.L().Debug("trimmed expired samples", zap.Int("removed", removed))
	}
}

// SchedThresholdEvalTask aggregates the last window per endpoint and
// system-wide, classifies the aggregates and publishes any violations.
func (a *Application) SchedThresholdEvalTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	window := a.appConfig.Monitoring.EvalWindowMillis
	now := time.Now()
	samples := a.recorder.Window("", now.UnixMilli()-window)

	var violations []domain.Violation
	for _, agg := range aggregate.GroupByEndpoint(samples, window) {
		violations = append(violations, a.evaluator.Evaluate(agg, now)...)
	}

	system := aggregate.Aggregate(samples, window)
	if memPercent, ok := metrics.Latest("system_memuse_percent"); ok {
		system.MemoryUsagePercent = memPercent
	}
	violations = append(violations, a.evaluator.Evaluate(system, now)...)

	a.publishViolations(violations)
}

// SchedBaselineValidateTask compares the live window against the active
// baseline and publishes regressions.
func (a *Application) SchedBaselineValidateTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	result, err := a.baselineMgr.Validate()
	if errors.Is(err, baseline.ErrNoBaseline) {
		zap.L().Debug("baseline validation skipped: no active baseline")
		return
	}
	if err != nil {
		// persistence failures retry naturally on the next scheduled tick
		zap.L().Error("baseline validation failed", zap.Error(err))
		return
	}

	if !result.Passed {
		zap.L().Warn("baseline validation failed",
			zap.Int("warnings", result.WarningCount),
			zap.Int("criticals", result.CriticalCount))
	}
	a.publishViolations(result.Violations)
}

// SchedBaselineAutoUpdateTask promotes a new baseline after sustained
// improvement; knobs are runtime settings.
func (a *Application) SchedBaselineAutoUpdateTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	minAgeDays := int(a.configManager.GetInt64("baseline", "auto_update_min_age_days"))
	improvement := a.configManager.GetFloat64("baseline", "auto_update_improvement_percent")

	promoted, err := a.baselineMgr.AutoUpdate(context.Background(), minAgeDays, improvement)
	if errors.Is(err, baseline.ErrNoBaseline) {
		return
	}
	if err != nil {
		zap.L().Error("baseline auto-update failed", zap.Error(err))
		return
	}
	if promoted {
		zap.L().Info("baseline auto-updated after sustained improvement")
	}
}

// SchedClearExpireData prunes violation logs past retention and collects the
// alert rate-limit table.
func (a *Application) SchedClearExpireData() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	idays := a.appConfig.Monitoring.ViolationKeepDays
	a.gormDB.
		Where("detected_at < ? ", time.Now().
			Add(-time.Hour*24*time.Duration(idays))).Delete(domain.PerfViolationLog{})

	if removed := a.dispatcher.GC(); removed > 0 {
		zap.L().Debug("collected stale alert records", zap.Int("removed", removed))
	}
}

// publishViolations persists violations for the query surface and pushes
// them onto the event bus toward the alert dispatcher.
func (a *Application) publishViolations(violations []domain.Violation) {
	for _, v := range violations {
		row := domain.PerfViolationLog{
			Type:             v.Type,
			Scope:            v.Scope,
			Expected:         v.Expected,
			Actual:           v.Actual,
			DeviationPercent: v.DeviationPercent,
			Severity:         v.Severity,
			DetectedAt:       v.DetectedAt,
		}
		if err := a.gormDB.Create(&row).Error; err != nil {
			zap.L().Error("failed to log violation",
				zap.String("type", v.Type), zap.String("scope", v.Scope), zap.Error(err))
		}
		a.bus.Publish(ViolationTopic, v)
	}
}
