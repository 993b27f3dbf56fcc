package models

import (
	"time"

	"gorm.io/gorm"
)

// SerialLogDirection 数据方向
type SerialLogDirection string

const (
	DirectionSend    SerialLogDirection = "SEND"    // 发送
	DirectionReceive SerialLogDirection = "RECEIVE" // 接收
)

// SerialLogLevel 日志级别
type SerialLogLevel string

const (
	SerialLogLevelInfo  SerialLogLevel = "INFO"
	SerialLogLevelError SerialLogLevel = "ERROR"
)

// SerialLog 串口流量记录
type SerialLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index;not null" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SessionID string             `gorm:"type:varchar(36);index;not null" json:"session_id"` // 会话ID (uuid)
	Direction SerialLogDirection `gorm:"type:varchar(10);index;not null" json:"direction"`  // 方向 (SEND/RECEIVE)
	Level     SerialLogLevel     `gorm:"type:varchar(10);default:INFO" json:"level"`        // 日志级别
	Port      string             `gorm:"type:varchar(100)" json:"port"`                     // 串口设备

	HexData    string `gorm:"type:text" json:"hex_data,omitempty"`   // 十六进制数据
	ASCIIData  string `gorm:"type:text" json:"ascii_data,omitempty"` // ASCII 视图
	BytesCount int    `gorm:"default:0" json:"bytes_count"`          // 字节数
	ErrorMsg   string `gorm:"type:text" json:"error_msg,omitempty"`  // 错误信息

	Timestamp int64 `gorm:"index" json:"timestamp"` // Unix时间戳（毫秒）
}

// TableName 指定表名
func (SerialLog) TableName() string {
	return "serial_logs"
}

// BeforeCreate 创建前的钩子
func (s *SerialLog) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Timestamp == 0 {
		s.Timestamp = s.CreatedAt.UnixMilli()
	}
	if s.Level == "" {
		s.Level = SerialLogLevelInfo
		if s.ErrorMsg != "" {
			s.Level = SerialLogLevelError
		}
	}
	return nil
}

// HasError 是否为错误记录
func (s *SerialLog) HasError() bool {
	return s.ErrorMsg != ""
}

// SerialLogQuery 查询参数
type SerialLogQuery struct {
	SessionID string             `json:"session_id,omitempty"`
	Direction SerialLogDirection `json:"direction,omitempty"`
	Level     SerialLogLevel     `json:"level,omitempty"`
	StartTime *time.Time         `json:"start_time,omitempty"`
	EndTime   *time.Time         `json:"end_time,omitempty"`
	HasError  *bool              `json:"has_error,omitempty"`
	Limit     int                `json:"limit,omitempty"`
	Offset    int                `json:"offset,omitempty"`
	OrderBy   string             `json:"order_by,omitempty"`
}

// SerialLogStats 统计信息
type SerialLogStats struct {
	TotalCount    int64 `json:"total_count"`
	TotalSend     int64 `json:"total_send"`
	TotalReceive  int64 `json:"total_receive"`
	TotalErrors   int64 `json:"total_errors"`
	TotalSessions int64 `json:"total_sessions"`
	BytesSent     int64 `json:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received"`
}
