package hardware

import (
	"io"
	"os"
	"time"

	"github.com/wfunc/uart-reader/internal/errors"
)

// SerialPort 串口接口（驱动与测试共用）
type SerialPort interface {
	io.ReadWriteCloser
	Flush() error
}

// 支持的驱动
const (
	DriverTarm  = "tarm"
	DriverBugst = "bugst"
	DriverMock  = "mock"
)

// PortConfig 串口参数（8N1）
type PortConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Opener 打开串口的函数
type Opener func(cfg PortConfig) (SerialPort, error)

// OpenerFor 根据驱动名返回打开函数
func OpenerFor(driver string, mockEcho bool) (Opener, error) {
	switch driver {
	case DriverTarm, "":
		return OpenTarm, nil
	case DriverBugst:
		return OpenBugst, nil
	case DriverMock:
		return func(cfg PortConfig) (SerialPort, error) {
			return NewMockPort(cfg, mockEcho), nil
		}, nil
	default:
		return nil, errors.Newf(errors.ErrSerialDriver, "driver=%q", driver)
	}
}

// Open 使用指定驱动打开串口
func Open(driver string, cfg PortConfig) (SerialPort, error) {
	open, err := OpenerFor(driver, false)
	if err != nil {
		return nil, err
	}
	return open(cfg)
}

// SerialPortExists 检查串口设备是否存在
func SerialPortExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
