package database

import (
	"os"
	"path/filepath"
	"time"

	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/logger"
	"go.uber.org/zap"
)

const (
	lockSuffix   = ".migration.lock"
	lockAttempts = 30
	lockStaleAge = 5 * time.Minute
)

// 等待间隔，测试中可调小
var lockRetryInterval = time.Second

// acquireMigrationLock 获取迁移锁
func acquireMigrationLock(dbPath string) (*os.File, error) {
	lockPath := dbPath + lockSuffix

	for i := 0; i < lockAttempts; i++ {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			logger.Debug("获取迁移锁成功", zap.String("lock", lockPath))
			return lockFile, nil
		}

		if removeIfStale(lockPath) {
			continue
		}

		logger.Debug("等待迁移锁...", zap.Int("attempt", i+1))
		time.Sleep(lockRetryInterval)
	}

	return nil, errors.New(errors.ErrDatabaseMigrate, "无法获取迁移锁，可能有其他进程正在执行迁移")
}

// releaseMigrationLock 释放迁移锁
func releaseMigrationLock(lockFile *os.File) {
	if lockFile == nil {
		return
	}

	lockPath := lockFile.Name()
	lockFile.Close()
	os.Remove(lockPath)
	logger.Debug("释放迁移锁", zap.String("lock", lockPath))
}

// getDBPath 当前 SQLite 数据库文件路径；非 SQLite 或内存库返回空
func getDBPath() string {
	if DB == nil || DB.Dialector.Name() != "sqlite" {
		return ""
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return ""
	}

	row := sqlDB.QueryRow("PRAGMA database_list")
	var seq int
	var name, file string
	if err := row.Scan(&seq, &name, &file); err != nil {
		return ""
	}
	return file
}

// CleanupStaleLocks 清理数据库目录下过期的锁文件
func CleanupStaleLocks(dbPath string) {
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(dbPath), "*"+lockSuffix))
	for _, lockFile := range matches {
		if removeIfStale(lockFile) {
			logger.Info("清理过期锁文件", zap.String("file", lockFile))
		}
	}
}

func removeIfStale(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil || time.Since(info.ModTime()) <= lockStaleAge {
		return false
	}
	logger.Warn("迁移锁文件过期，删除", zap.String("lock", lockPath))
	return os.Remove(lockPath) == nil
}
