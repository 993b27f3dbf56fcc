package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/uart-reader/internal/logger"
	"github.com/wfunc/uart-reader/internal/models"
	"github.com/wfunc/uart-reader/internal/session"
	"go.uber.org/zap"
)

// 默认参数
const (
	DefaultQueueSize     = 1024
	DefaultBatchSize     = 50
	DefaultFlushInterval = 500 * time.Millisecond
)

// Store 流量记录的持久化
type Store interface {
	CreateBatch(logs []*models.SerialLog) error
}

// Recorder 把会话流量异步批量写入 Store
//
// 写入失败只记录日志，不影响会话。队列满时丢弃新记录。
type Recorder struct {
	store     Store
	sessionID string
	port      string
	logger    *zap.Logger

	queueSize     int
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	closed  bool
	queue   chan *models.SerialLog
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

// Option 记录器选项
type Option func(*Recorder)

// WithBatchSize 每批写入条数
func WithBatchSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithFlushInterval 定时写入间隔
func WithFlushInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// WithQueueSize 队列长度
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithSessionID 指定会话ID（默认随机 uuid）
func WithSessionID(id string) Option {
	return func(r *Recorder) {
		if id != "" {
			r.sessionID = id
		}
	}
}

// NewRecorder 创建记录器并启动写入协程
func NewRecorder(store Store, port string, opts ...Option) *Recorder {
	r := &Recorder{
		store:         store,
		sessionID:     uuid.NewString(),
		port:          port,
		logger:        logger.GetModuleLogger("capture"),
		queueSize:     DefaultQueueSize,
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.queue = make(chan *models.SerialLog, r.queueSize)

	go r.loop()

	r.logger.Info("流量记录已启动", zap.String("session_id", r.sessionID), zap.String("port", port))
	return r
}

// SessionID 当前会话ID
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Dropped 因队列满丢弃的记录数
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Failed 写入失败的记录数
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}

// RecordSend 记录发送
func (r *Recorder) RecordSend(data []byte, err error) {
	r.enqueue(r.entry(models.DirectionSend, data, err))
}

// RecordReceive 记录收到的数据
func (r *Recorder) RecordReceive(data []byte) {
	r.enqueue(r.entry(models.DirectionReceive, data, nil))
}

// RecordError 记录读取错误
func (r *Recorder) RecordError(err error) {
	r.enqueue(r.entry(models.DirectionReceive, nil, err))
}

func (r *Recorder) entry(direction models.SerialLogDirection, data []byte, err error) *models.SerialLog {
	now := time.Now()
	log := &models.SerialLog{
		CreatedAt:  now,
		Timestamp:  now.UnixMilli(),
		SessionID:  r.sessionID,
		Direction:  direction,
		Level:      models.SerialLogLevelInfo,
		Port:       r.port,
		HexData:    session.HexString(data),
		ASCIIData:  session.ASCIIString(data),
		BytesCount: len(data),
	}
	if err != nil {
		log.Level = models.SerialLogLevelError
		log.ErrorMsg = err.Error()
	}
	return log
}

func (r *Recorder) enqueue(log *models.SerialLog) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	select {
	case r.queue <- log:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("记录队列已满，开始丢弃", zap.Int("queue_size", r.queueSize))
		}
	}
}

func (r *Recorder) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*models.SerialLog, 0, r.batchSize)
	for {
		select {
		case log, ok := <-r.queue:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, log)
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = make([]*models.SerialLog, 0, r.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = make([]*models.SerialLog, 0, r.batchSize)
			}
		}
	}
}

func (r *Recorder) flush(batch []*models.SerialLog) {
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	err := r.store.CreateBatch(batch)
	logger.LogDatabaseOperation("create_batch", models.SerialLog{}.TableName(), time.Since(start), err)
	if err != nil {
		r.failed.Add(int64(len(batch)))
		r.logger.Error("写入流量记录失败", zap.Int("count", len(batch)), zap.Error(err))
	}
}

// Close 停止接收新记录并写完队列中的记录
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done

	r.logger.Info("流量记录已停止",
		zap.String("session_id", r.sessionID),
		zap.Int64("dropped", r.Dropped()),
		zap.Int64("failed", r.Failed()))
	return nil
}

var _ session.Recorder = (*Recorder)(nil)
