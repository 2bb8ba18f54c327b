// Package crc8 implements the CRC-8 variant used by the FLAC frame header
// checksum (polynomial x^8 + x^2 + x^1 + x^0, i.e. 0x107).
package crc8

// Table holds the byte-at-a-time CRC-8 lookup table, indexed by
// crc XOR nextByte.
var Table [256]uint8

func init() {
	for i := range Table {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			crc = crc<<1 ^ (crc>>7)*0x107
		}
		Table[i] = uint8(crc)
	}
}

// Update folds b into the running CRC-8 crc and returns the new value.
func Update(crc uint8, b byte) uint8 {
	return Table[crc^b]
}

// Checksum returns the CRC-8 of data.
func Checksum(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc = Update(crc, b)
	}
	return crc
}
