package hardware

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/tarm/serial"
	"github.com/wfunc/uart-reader/internal/logger"
	"go.uber.org/zap"
)

// ErrReadTimeout 读超时，没有收到数据
var ErrReadTimeout = errors.New("serial read timed out")

// IsTimeout 判断读错误是否为超时
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrReadTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// TarmPort 基于 github.com/tarm/serial 的串口
type TarmPort struct {
	port *serial.Port
	cfg  PortConfig
}

// OpenTarm 打开串口（8N1）
func OpenTarm(cfg PortConfig) (SerialPort, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		logger.GetModuleLogger("serial").Error("打开串口失败",
			zap.String("driver", DriverTarm),
			zap.String("port", cfg.Port),
			zap.Bool("exists", SerialPortExists(cfg.Port)),
			zap.Error(err))
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	logger.GetModuleLogger("serial").Info("串口连接成功",
		zap.String("driver", DriverTarm),
		zap.String("port", cfg.Port),
		zap.Int("baud_rate", cfg.BaudRate),
		zap.Duration("read_timeout", cfg.ReadTimeout))

	return &TarmPort{port: port, cfg: cfg}, nil
}

// Read 读取数据；tarm 在超时后以 (0, io.EOF) 返回，这里转换为 ErrReadTimeout
func (p *TarmPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, ErrReadTimeout
	}
	return n, err
}

// Write 写入数据
func (p *TarmPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Flush 丢弃未读取的输入
func (p *TarmPort) Flush() error {
	return p.port.Flush()
}

// Close 关闭串口
func (p *TarmPort) Close() error {
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", p.cfg.Port, err)
	}
	logger.GetModuleLogger("serial").Info("串口已断开", zap.String("port", p.cfg.Port))
	return nil
}
