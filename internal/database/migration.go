package database

import (
	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/logger"
	"github.com/wfunc/uart-reader/internal/models"
	"go.uber.org/zap"
)

// 额外索引
var indexes = []struct {
	name string
	sql  string
}{
	{"idx_serial_logs_session_direction", "CREATE INDEX IF NOT EXISTS idx_serial_logs_session_direction ON serial_logs(session_id, direction)"},
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return errors.New(errors.ErrDatabaseMigrate, "数据库未初始化")
	}

	// 获取迁移锁，避免多个进程同时迁移同一个 SQLite 文件
	if dbPath := getDBPath(); dbPath != "" {
		CleanupStaleLocks(dbPath)
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return errors.Wrap(err, errors.ErrDatabaseMigrate)
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	if err := DB.AutoMigrate(&models.SerialLog{}); err != nil {
		logger.Error("迁移失败", zap.String("table", models.SerialLog{}.TableName()), zap.Error(err))
		return errors.Wrap(err, errors.ErrDatabaseMigrate)
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx.sql).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx.name), zap.Error(err))
		}
	}

	logger.Info("数据库迁移完成")
	return nil
}
