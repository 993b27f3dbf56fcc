// Package protocol 描述 bootloader 通信包的线上格式。
//
// 包格式: [长度(1)] [数据(16，不足补0xFF)] [CRC-8(1)]
// CRC-8 多项式 0x07，初值 0x00，覆盖前 17 字节。
package protocol

import (
	"github.com/sigurn/crc8"
	"github.com/wfunc/uart-reader/internal/errors"
)

const (
	DataLength     = 16
	LengthBytes    = 1
	CRCBytes       = 1
	CRCInputLength = LengthBytes + DataLength
	PacketLength   = LengthBytes + DataLength + CRCBytes

	// PaddingByte 数据区未使用部分的填充值
	PaddingByte byte = 0xFF
)

var crcTable = crc8.MakeTable(crc8.CRC8)

// Packet 一个完整的通信包
type Packet [PacketLength]byte

// Checksum 计算 CRC-8
func Checksum(b []byte) byte {
	return crc8.Checksum(b, crcTable)
}

// Encode 把数据编码成通信包
func Encode(data []byte) (Packet, error) {
	var p Packet
	if len(data) > DataLength {
		return p, errors.Newf(errors.ErrPacketTooLong, "数据长度 %d 超过 %d", len(data), DataLength)
	}

	p[0] = byte(len(data))
	n := copy(p[LengthBytes:CRCInputLength], data)
	for i := LengthBytes + n; i < CRCInputLength; i++ {
		p[i] = PaddingByte
	}
	p[CRCInputLength] = Checksum(p[:CRCInputLength])

	return p, nil
}

// Length 数据长度字段
func (p Packet) Length() int {
	return int(p[0])
}

// Data 有效数据
func (p Packet) Data() []byte {
	n := p.Length()
	if n > DataLength {
		n = DataLength
	}
	return append([]byte(nil), p[LengthBytes:LengthBytes+n]...)
}

// CRC 包内的校验值
func (p Packet) CRC() byte {
	return p[CRCInputLength]
}

// Valid 校验长度字段和 CRC
func (p Packet) Valid() bool {
	return p.Length() <= DataLength && Checksum(p[:CRCInputLength]) == p.CRC()
}

// Bytes 返回包的字节切片
func (p Packet) Bytes() []byte {
	return p[:]
}
