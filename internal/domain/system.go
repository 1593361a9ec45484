package domain

import (
	"time"
)

type SysConfig struct {
	ID        int64     `json:"id,string"   form:"id"`
	Sort      int       `json:"sort"  form:"sort"`
	Type      string    `gorm:"index" json:"type" form:"type"`
	Name      string    `gorm:"index" json:"name" form:"name"`
	Value     string    `json:"value" form:"value"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysConfig) TableName() string {
	return "sys_config"
}

// PerfBaseline is the persisted form of a baseline snapshot. The per-endpoint
// and system expectations are stored as an opaque JSON payload keyed by id.
type PerfBaseline struct {
	ID          int64     `gorm:"primaryKey" json:"id,string"`
	Name        string    `gorm:"index" json:"name"`
	Description string    `json:"description"`
	Version     int64     `gorm:"index" json:"version"`
	Status      string    `gorm:"index" json:"status"`
	Payload     string    `gorm:"type:text" json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PerfBaseline) TableName() string {
	return "perf_baseline"
}

// PerfViolationLog records detected violations for the query surface; rows
// older than the retention window are pruned by the daily job.
type PerfViolationLog struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Type             string    `gorm:"index" json:"type"`
	Scope            string    `gorm:"index" json:"scope"`
	Expected         float64   `json:"expected"`
	Actual           float64   `json:"actual"`
	DeviationPercent float64   `json:"deviation_percent"`
	Severity         string    `gorm:"index" json:"severity"`
	DetectedAt       time.Time `gorm:"index" json:"detected_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func (PerfViolationLog) TableName() string {
	return "perf_violation_log"
}
