package repository

import (
	"time"

	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/models"
	"gorm.io/gorm"
)

// 批量写入每批条数
const batchSize = 100

// SerialLogRepository 串口流量记录仓库
type SerialLogRepository struct {
	db *gorm.DB
}

// NewSerialLogRepository 创建串口流量记录仓库
func NewSerialLogRepository(db *gorm.DB) *SerialLogRepository {
	return &SerialLogRepository{
		db: db,
	}
}

// Create 创建记录
func (r *SerialLogRepository) Create(log *models.SerialLog) error {
	if err := r.db.Create(log).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return nil
}

// CreateBatch 批量创建记录
func (r *SerialLogRepository) CreateBatch(logs []*models.SerialLog) error {
	if len(logs) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(logs, batchSize).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return nil
}

// GetBySessionID 根据会话ID获取记录，按写入顺序返回
func (r *SerialLogRepository) GetBySessionID(sessionID string) ([]*models.SerialLog, error) {
	var logs []*models.SerialLog
	err := r.db.Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return logs, nil
}

// Query 条件查询，返回当前页记录与总数
func (r *SerialLogRepository) Query(query *models.SerialLogQuery) ([]*models.SerialLog, int64, error) {
	db := r.db.Model(&models.SerialLog{})

	if query.SessionID != "" {
		db = db.Where("session_id = ?", query.SessionID)
	}
	if query.Direction != "" {
		db = db.Where("direction = ?", query.Direction)
	}
	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	db = timeRange(db, query.StartTime, query.EndTime)
	if query.HasError != nil {
		if *query.HasError {
			db = db.Where("error_msg IS NOT NULL AND error_msg != ''")
		} else {
			db = db.Where("(error_msg IS NULL OR error_msg = '')")
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	orderBy := query.OrderBy
	if orderBy == "" {
		orderBy = "id DESC"
	}
	db = db.Order(orderBy)

	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}
	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}

	var logs []*models.SerialLog
	if err := db.Find(&logs).Error; err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	return logs, total, nil
}

// GetStats 获取统计信息
func (r *SerialLogRepository) GetStats(startTime, endTime *time.Time) (*models.SerialLogStats, error) {
	stats := &models.SerialLogStats{}
	scope := func() *gorm.DB {
		return timeRange(r.db.Model(&models.SerialLog{}), startTime, endTime)
	}

	counts := []struct {
		dst   *int64
		where []interface{}
	}{
		{&stats.TotalCount, nil},
		{&stats.TotalSend, []interface{}{"direction = ?", models.DirectionSend}},
		{&stats.TotalReceive, []interface{}{"direction = ?", models.DirectionReceive}},
		{&stats.TotalErrors, []interface{}{"error_msg IS NOT NULL AND error_msg != ''"}},
	}
	for _, c := range counts {
		db := scope()
		if len(c.where) > 0 {
			db = db.Where(c.where[0], c.where[1:]...)
		}
		if err := db.Count(c.dst).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
		}
	}

	if err := scope().Distinct("session_id").Count(&stats.TotalSessions).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	// 字节统计
	type byteStats struct {
		BytesSent     int64
		BytesReceived int64
	}
	var bs byteStats
	err := scope().
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN bytes_count ELSE 0 END), 0) AS bytes_sent, "+
			"COALESCE(SUM(CASE WHEN direction = ? THEN bytes_count ELSE 0 END), 0) AS bytes_received",
			models.DirectionSend, models.DirectionReceive).
		Scan(&bs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	stats.BytesSent = bs.BytesSent
	stats.BytesReceived = bs.BytesReceived

	return stats, nil
}

// GetLatest 获取最新的记录
func (r *SerialLogRepository) GetLatest(limit int, direction models.SerialLogDirection) ([]*models.SerialLog, error) {
	var logs []*models.SerialLog
	db := r.db.Order("id DESC").Limit(limit)
	if direction != "" {
		db = db.Where("direction = ?", direction)
	}
	if err := db.Find(&logs).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return logs, nil
}

// DeleteOldLogs 删除旧记录
func (r *SerialLogRepository) DeleteOldLogs(beforeTime time.Time) (int64, error) {
	result := r.db.Unscoped().Where("created_at < ?", beforeTime).Delete(&models.SerialLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrDatabaseDelete)
	}
	return result.RowsAffected, nil
}

// CleanupLogs 清理记录（保留最近N天的数据）
func (r *SerialLogRepository) CleanupLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New(errors.ErrInvalidParam, "retention days must be greater than 0")
	}
	beforeTime := time.Now().AddDate(0, 0, -retentionDays)
	return r.DeleteOldLogs(beforeTime)
}

func timeRange(db *gorm.DB, startTime, endTime *time.Time) *gorm.DB {
	if startTime != nil {
		db = db.Where("created_at >= ?", *startTime)
	}
	if endTime != nil {
		db = db.Where("created_at <= ?", *endTime)
	}
	return db
}
