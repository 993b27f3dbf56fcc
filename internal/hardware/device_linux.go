//go:build linux

package hardware

import "golang.org/x/sys/unix"

// IsCharDevice 判断路径是否为字符设备
func IsCharDevice(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFCHR
}
