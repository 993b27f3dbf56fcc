package hardware

import (
	"errors"
	"sync"
	"time"
)

// ReadStep 模拟串口的一次读取结果
type ReadStep struct {
	Data []byte
	Err  error
}

// MockPort 模拟串口（无硬件运行与测试用）
//
// 读取按队列返回预设结果；队列为空时等待 ReadTimeout 后返回 ErrReadTimeout。
// echo 模式下写入的数据会进入读取队列。
type MockPort struct {
	mu       sync.Mutex
	cfg      PortConfig
	echo     bool
	reads    []ReadStep
	written  []byte
	writeErr error
	closed   bool
	onIdle   func()
}

// NewMockPort 创建模拟串口
func NewMockPort(cfg PortConfig, echo bool) *MockPort {
	return &MockPort{cfg: cfg, echo: echo}
}

// QueueRead 追加一次读取结果
func (m *MockPort) QueueRead(data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, ReadStep{Data: append([]byte(nil), data...), Err: err})
}

// FailWrites 之后的写入都返回 err
func (m *MockPort) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// OnIdle 设置读取队列为空时的回调
func (m *MockPort) OnIdle(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onIdle = fn
}

// Written 返回已写入的全部数据
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

// Closed 是否已关闭
func (m *MockPort) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Config 返回打开时的参数
func (m *MockPort) Config() PortConfig {
	return m.cfg
}

// Read 读取数据
func (m *MockPort) Read(b []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, errors.New("port closed")
	}

	if len(m.reads) == 0 {
		idle := m.onIdle
		m.mu.Unlock()
		if idle != nil {
			idle()
		}
		time.Sleep(m.cfg.ReadTimeout)
		return 0, ErrReadTimeout
	}

	step := m.reads[0]
	n := copy(b, step.Data)
	if n < len(step.Data) {
		// 未读完的部分留给下一次读取
		m.reads[0].Data = step.Data[n:]
	} else {
		m.reads = m.reads[1:]
	}
	m.mu.Unlock()

	return n, step.Err
}

// Write 写入数据
func (m *MockPort) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errors.New("port closed")
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	m.written = append(m.written, b...)
	if m.echo {
		m.reads = append(m.reads, ReadStep{Data: append([]byte(nil), b...)})
	}
	return len(b), nil
}

// Flush 清空读取队列
func (m *MockPort) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("port closed")
	}
	m.reads = nil
	return nil
}

// Close 关闭端口
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
