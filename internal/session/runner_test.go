package session

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/hardware"
	"github.com/wfunc/uart-reader/internal/protocol"
)

const banner = "Serial port opened successfully\n" +
	"Sent: 07 41 42 43 44 45 46 47 FF FF FF FF FF FF FF FF FF 39\n" +
	"Reading data... Press Ctrl+C to exit\n"

// mockOpener 记录打开参数
type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) Open(cfg hardware.PortConfig) (hardware.SerialPort, error) {
	args := m.Called(cfg)
	port, _ := args.Get(0).(hardware.SerialPort)
	return port, args.Error(1)
}

// event 记录器收到的事件
type event struct {
	kind string
	data []byte
	err  error
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []event
}

func (f *fakeRecorder) RecordSend(data []byte, err error) {
	f.add(event{kind: "send", data: append([]byte(nil), data...), err: err})
}

func (f *fakeRecorder) RecordReceive(data []byte) {
	f.add(event{kind: "receive", data: append([]byte(nil), data...)})
}

func (f *fakeRecorder) RecordError(err error) {
	f.add(event{kind: "error", err: err})
}

func (f *fakeRecorder) add(e event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeRecorder) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.kind
	}
	return out
}

// shortPort 每次只写入一半
type shortPort struct {
	*hardware.MockPort
}

func (s shortPort) Write(b []byte) (int, error) {
	return s.MockPort.Write(b[:len(b)/2])
}

type fixture struct {
	port   *hardware.MockPort
	out    bytes.Buffer
	diag   bytes.Buffer
	rec    *fakeRecorder
	ctx    context.Context
	cancel context.CancelFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		port: hardware.NewMockPort(PortConfig(), false),
		rec:  &fakeRecorder{},
	}
	f.ctx, f.cancel = context.WithCancel(context.Background())
	t.Cleanup(f.cancel)
	// 队列读完即结束会话
	f.port.OnIdle(f.cancel)
	return f
}

func (f *fixture) runner(open hardware.Opener) *Runner {
	return New(open, WithOutput(&f.out, &f.diag), WithRecorder(f.rec))
}

func (f *fixture) opener() hardware.Opener {
	return func(hardware.PortConfig) (hardware.SerialPort, error) {
		return f.port, nil
	}
}

func TestFrameMatchesPacketEncoding(t *testing.T) {
	p, err := protocol.Encode([]byte("ABCDEFG"))
	require.NoError(t, err)
	assert.Equal(t, Frame[:], p.Bytes())
	assert.Len(t, Frame, 18)
}

func TestRun_DumpsReceivedBytes(t *testing.T) {
	f := newFixture(t)
	f.port.QueueRead([]byte{0x41, 0x0A}, nil)

	err := f.runner(f.opener()).Run(f.ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, banner+"Hex: 41 0A\nASCII: .\n\n\n", f.out.String())
	assert.Empty(t, f.diag.String())
	assert.Equal(t, Frame[:], f.port.Written())
	assert.True(t, f.port.Closed())
}

func TestRun_OpensFixedPortOnce(t *testing.T) {
	f := newFixture(t)
	m := &mockOpener{}
	m.On("Open", hardware.PortConfig{
		Port:        "/dev/ttyACM0",
		BaudRate:    115200,
		ReadTimeout: ReadTimeout,
	}).Return(f.port, nil).Once()

	err := f.runner(m.Open).Run(f.ctx)

	assert.ErrorIs(t, err, context.Canceled)
	m.AssertExpectations(t)
}

func TestRun_OpenFailure(t *testing.T) {
	f := newFixture(t)
	m := &mockOpener{}
	m.On("Open", mock.Anything).Return(nil, stderrors.New("no such file or directory")).Once()

	err := f.runner(m.Open).Run(f.ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSerialPortOpen))
	assert.Contains(t, err.Error(), "no such file or directory")
	assert.Empty(t, f.out.String())
	assert.Empty(t, f.rec.kinds())
	assert.Empty(t, f.port.Written())
	m.AssertExpectations(t)
}

func TestRun_FrameSentBeforeFirstRead(t *testing.T) {
	f := newFixture(t)
	f.port.QueueRead([]byte{0x01}, nil)

	_ = f.runner(f.opener()).Run(f.ctx)

	assert.Equal(t, []string{"send", "receive"}, f.rec.kinds())
	assert.Equal(t, Frame[:], f.rec.events[0].data)
	assert.NoError(t, f.rec.events[0].err)
}

func TestRun_WriteFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.port.FailWrites(stderrors.New("device busy"))
	f.port.QueueRead([]byte{0x41}, nil)

	err := f.runner(f.opener()).Run(f.ctx)

	assert.ErrorIs(t, err, context.Canceled)
	out := f.out.String()
	assert.Contains(t, out, "Failed to write: ")
	assert.Contains(t, out, "device busy")
	assert.NotContains(t, out, "Sent: ")
	assert.Contains(t, out, "Reading data... Press Ctrl+C to exit\nHex: 41\nASCII: .\n\n")

	require.NotEmpty(t, f.rec.events)
	assert.True(t, errors.Is(f.rec.events[0].err, errors.ErrSerialPortWrite))
}

func TestRun_ShortWriteIsFailure(t *testing.T) {
	f := newFixture(t)
	open := func(hardware.PortConfig) (hardware.SerialPort, error) {
		return shortPort{f.port}, nil
	}

	_ = f.runner(open).Run(f.ctx)

	assert.Contains(t, f.out.String(), "Failed to write: ")
	require.NotEmpty(t, f.rec.events)
	assert.True(t, errors.Is(f.rec.events[0].err, errors.ErrSerialShortWrite))
}

func TestRun_ReadErrorContinues(t *testing.T) {
	f := newFixture(t)
	f.port.QueueRead(nil, stderrors.New("input/output error"))
	f.port.QueueRead([]byte{0x7F}, nil)

	err := f.runner(f.opener()).Run(f.ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Error: input/output error\n", f.diag.String())
	assert.Equal(t, banner+"Hex: 7F\nASCII: \x7f\n\n", f.out.String())
	assert.Equal(t, []string{"send", "error", "receive"}, f.rec.kinds())
}

func TestRun_TimeoutsAndEmptyReadsPrintNothing(t *testing.T) {
	f := newFixture(t)
	f.port.QueueRead(nil, hardware.ErrReadTimeout)
	f.port.QueueRead(nil, nil)
	f.port.QueueRead(nil, hardware.ErrReadTimeout)

	_ = f.runner(f.opener()).Run(f.ctx)

	assert.Equal(t, banner, f.out.String())
	assert.Empty(t, f.diag.String())
	assert.Equal(t, []string{"send"}, f.rec.kinds())
}

func TestRun_OnlyFreshBytesDumped(t *testing.T) {
	f := newFixture(t)
	f.port.QueueRead([]byte("HELLO"), nil)
	f.port.QueueRead([]byte{0x0D, 0x0A}, nil)

	_ = f.runner(f.opener()).Run(f.ctx)

	assert.Equal(t, banner+
		"Hex: 48 45 4C 4C 4F\nASCII: .....\n\n"+
		"Hex: 0D 0A\nASCII: \r\n\n\n", f.out.String())
}

func TestRun_DataWithErrorDumpsThenReports(t *testing.T) {
	f := newFixture(t)
	f.port.QueueRead([]byte{0x30}, stderrors.New("framing error"))

	_ = f.runner(f.opener()).Run(f.ctx)

	assert.Equal(t, banner+"Hex: 30\nASCII: .\n\n", f.out.String())
	assert.Equal(t, "Error: framing error\n", f.diag.String())
	assert.Equal(t, []string{"send", "receive", "error"}, f.rec.kinds())
}

func TestRun_LargeChunkSplitAtBufferSize(t *testing.T) {
	f := newFixture(t)
	f.port.QueueRead(bytes.Repeat([]byte{0x55}, ReadBufferSize+3), nil)

	_ = f.runner(f.opener()).Run(f.ctx)

	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	require.Len(t, f.rec.events, 3)
	assert.Len(t, f.rec.events[1].data, ReadBufferSize)
	assert.Len(t, f.rec.events[2].data, 3)
}

func TestRun_EchoPort(t *testing.T) {
	f := newFixture(t)
	f.port = hardware.NewMockPort(PortConfig(), true)
	f.port.OnIdle(f.cancel)

	_ = f.runner(f.opener()).Run(f.ctx)

	assert.Equal(t, banner+"Hex: 07 41 42 43 44 45 46 47 FF FF FF FF FF FF FF FF FF 39\n"+
		"ASCII: \a"+strings.Repeat(".", 17)+"\n\n", f.out.String())
}

func TestReadOnce_WithoutPort(t *testing.T) {
	r := New(nil, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))

	o := r.ReadOnce()
	assert.Equal(t, ReadFailed, o.Kind)
	assert.True(t, errors.Is(o.Err, errors.ErrDeviceOffline))
	assert.NoError(t, r.Close())
}
