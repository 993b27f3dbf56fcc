package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/hardware"
	"github.com/wfunc/uart-reader/internal/logger"
	"github.com/wfunc/uart-reader/internal/protocol"
	"go.uber.org/zap"
)

// 固定的串口参数
const (
	DevicePath     = "/dev/ttyACM0"
	BaudRate       = 115200
	ReadTimeout    = 10 * time.Millisecond
	ReadBufferSize = 1024
	FrameLength    = 18
)

// Frame 启动时发送的固定帧（bootloader 通信包，数据为 "ABCDEFG"）
var Frame = [FrameLength]byte{
	0x07, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0x39,
}

// PortConfig 返回固定的串口参数
func PortConfig() hardware.PortConfig {
	return hardware.PortConfig{
		Port:        DevicePath,
		BaudRate:    BaudRate,
		ReadTimeout: ReadTimeout,
	}
}

// Recorder 记录串口流量，实现方自行处理错误
type Recorder interface {
	RecordSend(data []byte, err error)
	RecordReceive(data []byte)
	RecordError(err error)
}

// Runner 串口会话：打开、发送固定帧、循环读取并打印
type Runner struct {
	open     hardware.Opener
	port     hardware.SerialPort
	out      io.Writer
	diag     io.Writer
	recorder Recorder
	logger   *zap.Logger
	buf      [ReadBufferSize]byte
}

// Option 会话选项
type Option func(*Runner)

// WithOutput 设置数据输出与诊断输出
func WithOutput(out, diag io.Writer) Option {
	return func(r *Runner) {
		r.out = out
		r.diag = diag
	}
}

// WithRecorder 设置流量记录器
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// New 创建会话
func New(open hardware.Opener, opts ...Option) *Runner {
	r := &Runner{
		open:   open,
		out:    os.Stdout,
		diag:   os.Stderr,
		logger: logger.GetModuleLogger("session"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run 打开串口、发送固定帧，然后读取直到 ctx 取消
//
// 只有打开失败会返回非取消错误，此时不会写入也不会进入读取循环。
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Open(); err != nil {
		return err
	}
	defer r.Close()

	// 写入失败不终止会话
	_ = r.Send()

	return r.ReadLoop(ctx)
}

// Open 打开串口
func (r *Runner) Open() error {
	cfg := PortConfig()

	port, err := r.open(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrSerialPortOpen)
	}

	r.port = port
	fmt.Fprintln(r.out, "Serial port opened successfully")
	r.logger.Info("串口已打开",
		zap.String("port", cfg.Port),
		zap.Int("baud_rate", cfg.BaudRate),
		zap.Duration("read_timeout", cfg.ReadTimeout))

	return nil
}

// Send 一次性写入固定帧；失败时打印并返回错误
func (r *Runner) Send() error {
	frame := Frame

	err := r.write(frame[:])
	if r.recorder != nil {
		r.recorder.RecordSend(frame[:], err)
	}
	logger.LogSerialIO("send", frame[:], err)

	if err != nil {
		fmt.Fprintf(r.out, "Failed to write: %v\n", err)
		r.logger.Warn("发送固定帧失败", zap.Error(err))
		return err
	}

	fmt.Fprintf(r.out, "Sent: %s\n", HexString(frame[:]))
	pkt := protocol.Packet(frame)
	r.logger.Debug("固定帧已发送",
		zap.Int("payload_len", pkt.Length()),
		zap.Uint8("crc", pkt.CRC()),
		zap.Bool("crc_ok", pkt.Valid()))
	return nil
}

func (r *Runner) write(b []byte) error {
	if r.port == nil {
		return errors.New(errors.ErrDeviceOffline, "port not open")
	}

	n, err := r.port.Write(b)
	if err != nil {
		return errors.Wrap(err, errors.ErrSerialPortWrite)
	}
	if n != len(b) {
		return errors.Newf(errors.ErrSerialShortWrite, "wrote %d of %d bytes", n, len(b))
	}
	return nil
}

// ReadOnce 读取一次（最多 ReadBufferSize 字节，受读超时限制）
func (r *Runner) ReadOnce() ReadOutcome {
	if r.port == nil {
		return ReadOutcome{Kind: ReadFailed, Err: errors.New(errors.ErrDeviceOffline, "port not open")}
	}

	n, err := r.port.Read(r.buf[:])
	return Classify(r.buf[:], n, err)
}

// ReadLoop 循环读取并打印，直到 ctx 取消；读取错误不会终止循环
func (r *Runner) ReadLoop(ctx context.Context) error {
	fmt.Fprintln(r.out, "Reading data... Press Ctrl+C to exit")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("读取循环结束", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
		}

		r.Handle(r.ReadOnce())
	}
}

// Handle 处理一次读取结果
func (r *Runner) Handle(o ReadOutcome) {
	switch o.Kind {
	case ReadDataReceived:
		r.Dump(o.Data)
		if r.recorder != nil {
			r.recorder.RecordReceive(o.Data)
		}
		logger.LogSerialIO("receive", o.Data, nil)
		if o.Err != nil {
			r.reportReadError(o.Err)
		}
	case ReadFailed:
		r.reportReadError(o.Err)
	case ReadEmpty, ReadTimedOut:
		// 无数据，继续
	}
}

// Dump 打印十六进制与 ASCII 视图
func (r *Runner) Dump(data []byte) {
	fmt.Fprintf(r.out, "Hex: %s\nASCII: %s\n\n", HexString(data), ASCIIString(data))
}

func (r *Runner) reportReadError(err error) {
	fmt.Fprintf(r.diag, "Error: %v\n", err)
	if r.recorder != nil {
		r.recorder.RecordError(err)
	}
	logger.LogSerialIO("receive", nil, err)
}

// Close 关闭串口
func (r *Runner) Close() error {
	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	return err
}
