//go:build !linux

package hardware

import "os"

// IsCharDevice 判断路径是否为字符设备
func IsCharDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
