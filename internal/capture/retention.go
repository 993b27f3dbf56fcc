package capture

import (
	"github.com/wfunc/uart-reader/internal/logger"
	"go.uber.org/zap"
)

// Retainer 按保留天数清理旧记录
type Retainer interface {
	CleanupLogs(retentionDays int) (int64, error)
}

// ApplyRetention 删除超过保留天数的记录；days <= 0 表示永久保留
func ApplyRetention(store Retainer, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}

	n, err := store.CleanupLogs(days)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.GetModuleLogger("capture").Info("已清理过期流量记录",
			zap.Int64("deleted", n),
			zap.Int("retention_days", days))
	}
	return n, nil
}
