package app

import (
	"sync"
	"time"

	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/coursehub/perfwatch/pkg/common"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigManager caches sys_config rows keyed category.name so runtime
// settings (threshold overrides, auto-update knobs) survive restarts without
// a config file edit.
type ConfigManager struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[string]string
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	cm := &ConfigManager{db: db, cache: map[string]string{}}
	cm.reload()
	return cm
}

func (cm *ConfigManager) reload() {
	var rows []domain.SysConfig
	if err := cm.db.Find(&rows).Error; err != nil {
		zap.L().Error("failed to load sys_config", zap.Error(err))
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cache = make(map[string]string, len(rows))
	for _, row := range rows {
		cm.cache[row.Type+"."+row.Name] = row.Value
	}
}

func (cm *ConfigManager) GetString(category, name string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.cache[category+"."+name]
}

func (cm *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(cm.GetString(category, name))
}

func (cm *ConfigManager) GetFloat64(category, name string) float64 {
	return cast.ToFloat64(cm.GetString(category, name))
}

func (cm *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(cm.GetString(category, name))
}

// Set persists one setting and refreshes the cache entry.
func (cm *ConfigManager) Set(category, name, value string) error {
	var row domain.SysConfig
	err := cm.db.Where("type = ? AND name = ?", category, name).First(&row).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		err = cm.db.Create(&domain.SysConfig{
			ID:        common.UUIDint64(),
			Type:      category,
			Name:      name,
			Value:     value,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}).Error
	case err == nil:
		err = cm.db.Model(&domain.SysConfig{}).Where("id = ?", row.ID).
			Updates(map[string]interface{}{"value": value, "updated_at": time.Now()}).Error
	}
	if err != nil {
		return err
	}
	cm.mu.Lock()
	cm.cache[category+"."+name] = value
	cm.mu.Unlock()
	return nil
}

// SetIfMissing seeds a default without clobbering an operator override.
func (cm *ConfigManager) SetIfMissing(category, name, value string) {
	if cm.GetString(category, name) != "" {
		return
	}
	if err := cm.Set(category, name, value); err != nil {
		zap.L().Warn("failed to seed setting",
			zap.String("key", category+"."+name), zap.Error(err))
	}
}
