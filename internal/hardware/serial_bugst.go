package hardware

import (
	"fmt"

	"github.com/wfunc/uart-reader/internal/logger"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// BugstPort 基于 go.bug.st/serial 的串口
//
// 超时的读取返回 (0, nil)，上层按空读处理。
type BugstPort struct {
	port serial.Port
	cfg  PortConfig
}

// OpenBugst 打开串口（8N1）并设置读超时
func OpenBugst(cfg PortConfig) (SerialPort, error) {
	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		logger.GetModuleLogger("serial").Error("打开串口失败",
			zap.String("driver", DriverBugst),
			zap.String("port", cfg.Port),
			zap.Bool("exists", SerialPortExists(cfg.Port)),
			zap.Error(err))
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}

	logger.GetModuleLogger("serial").Info("串口连接成功",
		zap.String("driver", DriverBugst),
		zap.String("port", cfg.Port),
		zap.Int("baud_rate", cfg.BaudRate),
		zap.Duration("read_timeout", cfg.ReadTimeout))

	return &BugstPort{port: port, cfg: cfg}, nil
}

// Read 读取数据
func (p *BugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write 写入数据
func (p *BugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Flush 丢弃未读取的输入
func (p *BugstPort) Flush() error {
	return p.port.ResetInputBuffer()
}

// Close 关闭串口
func (p *BugstPort) Close() error {
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", p.cfg.Port, err)
	}
	logger.GetModuleLogger("serial").Info("串口已断开", zap.String("port", p.cfg.Port))
	return nil
}
