package session

import (
	"github.com/wfunc/uart-reader/internal/hardware"
)

// ReadKind 一次读取的结果类型
type ReadKind int

const (
	ReadDataReceived ReadKind = iota // 收到数据
	ReadEmpty                        // 返回 0 字节
	ReadTimedOut                     // 超时
	ReadFailed                       // 其他错误
)

// String 返回结果类型名称
func (k ReadKind) String() string {
	switch k {
	case ReadDataReceived:
		return "DataReceived"
	case ReadEmpty:
		return "Empty"
	case ReadTimedOut:
		return "TimedOut"
	case ReadFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ReadOutcome 一次读取的结果
//
// Data 指向复用的读缓冲区，只在下一次读取前有效。
// 收到数据的同时返回的非超时错误保存在 Err 中。
type ReadOutcome struct {
	Kind ReadKind
	Data []byte
	Err  error
}

// Classify 根据读取返回值分类
func Classify(buf []byte, n int, err error) ReadOutcome {
	if n > 0 {
		o := ReadOutcome{Kind: ReadDataReceived, Data: buf[:n]}
		if err != nil && !hardware.IsTimeout(err) {
			o.Err = err
		}
		return o
	}

	switch {
	case err == nil:
		return ReadOutcome{Kind: ReadEmpty}
	case hardware.IsTimeout(err):
		return ReadOutcome{Kind: ReadTimedOut}
	default:
		return ReadOutcome{Kind: ReadFailed, Err: err}
	}
}
