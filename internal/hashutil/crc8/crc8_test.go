package crc8

import "testing"

// TestChecksumCatalogCheckValue verifies this table against the CRC RevEng
// catalogue's standard check value for poly 0x07/init 0x00/no reflection
// (listed there as CRC-8/SMBUS), the same algorithm FLAC's header checksum
// uses, computed over the ASCII string "123456789".
func TestChecksumCatalogCheckValue(t *testing.T) {
	got := Checksum([]byte("123456789"))
	if want := uint8(0xF4); got != want {
		t.Errorf("Checksum(\"123456789\") = 0x%02X, want 0x%02X", got, want)
	}
}

func TestUpdateMatchesChecksum(t *testing.T) {
	data := []byte("the quick brown fox")
	var crc uint8
	for _, b := range data {
		crc = Update(crc, b)
	}
	if want := Checksum(data); crc != want {
		t.Errorf("folded Update = 0x%02X, want 0x%02X", crc, want)
	}
}
