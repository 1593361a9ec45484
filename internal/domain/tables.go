package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	// Performance
	&PerfBaseline{},
	&PerfViolationLog{},
}
