package baseline

import "github.com/coursehub/perfwatch/internal/domain"

// Deviation bounds that map a percentage onto a qualitative status.
const (
	latencyWarnDeviation   = 25
	latencyCritDeviation   = 50
	errorRateWarnDeviation = 50
	errorRateCritDeviation = 100
)

// latencyDeviation is the signed relative latency change; positive means the
// current window is slower than the baseline.
func latencyDeviation(base, current float64) float64 {
	if base <= 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - base) / base * 100
}

// throughputDeviation inverts the sign so that a throughput *decrease* (the
// regression direction) comes out positive.
func throughputDeviation(base, current float64) float64 {
	if base <= 0 {
		return 0
	}
	return (base - current) / base * 100
}

// errorRateDeviation is zero-baseline-safe: any nonzero current error rate
// against a clean baseline counts as a full 100% deviation.
func errorRateDeviation(base, current float64) float64 {
	if base <= 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - base) / base * 100
}

func statusFor(deviation, warn, crit float64) string {
	switch {
	case deviation > crit:
		return domain.CompareCritical
	case deviation > warn:
		return domain.CompareWarning
	default:
		return domain.CompareNormal
	}
}

func worstStatus(statuses ...string) string {
	worst := domain.CompareNormal
	for _, s := range statuses {
		if s == domain.CompareCritical {
			return domain.CompareCritical
		}
		if s == domain.CompareWarning {
			worst = domain.CompareWarning
		}
	}
	return worst
}
