package session

import (
	"fmt"
	"strings"
)

// Placeholder 非控制字符在 ASCII 视图中的占位符
const Placeholder = '.'

// HexString 把字节渲染成空格分隔的两位大写十六进制
func HexString(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

// ASCIIString 渲染 ASCII 视图：控制字符原样输出，其余字节输出占位符。
//
// NOTE: 规则与常见的“可打印字符原样输出”相反，沿用设备端工具的既有行为，未做修正。
func ASCIIString(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if isASCIIControl(c) {
			out[i] = c
		} else {
			out[i] = Placeholder
		}
	}
	return string(out)
}

// isASCIIControl 0x00-0x1F 与 0x7F
func isASCIIControl(c byte) bool {
	return c < 0x20 || c == 0x7F
}
