package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/uart-reader/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建内存数据库并迁移表结构
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库只存在于单个连接上
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.SerialLog{}))

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB 关闭数据库连接
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestSerialLog 创建测试记录
func CreateTestSerialLog(sessionID string, direction models.SerialLogDirection, data []byte, errMsg string) *models.SerialLog {
	return &models.SerialLog{
		SessionID:  sessionID,
		Direction:  direction,
		Port:       "/dev/ttyACM0",
		HexData:    fmt.Sprintf("% X", data),
		BytesCount: len(data),
		ErrorMsg:   errMsg,
		CreatedAt:  time.Now(),
	}
}
