package protocol

import "github.com/sigurn/crc16"

// CRC16_INITIAL_VALUE is what CRC16 returns for an empty input.
const CRC16_INITIAL_VALUE uint16 = 0xFFFF

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC16 computes the Modbus CRC-16 (reflected polynomial 0xA001, init 0xFFFF,
// no final XOR). Frame encoding and decoding both go through it.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
