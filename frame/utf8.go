package frame

import (
	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bitio"
)

// UTF-8-style continuation byte markers and masks, as laid out by the FLAC
// frame/sample number encoding (itself modeled on UTF-8's variable-length
// byte sequences, not Unicode code points).
const (
	tx = 0x80 // 10xxxxxx: continuation byte marker/mask.
	t2 = 0xC0 // 110xxxxx
	t3 = 0xE0 // 1110xxxx
	t4 = 0xF0 // 11110xxx
	t5 = 0xF8 // 111110xx
	t6 = 0xFC // 1111110x
	t7 = 0xFE // 11111110

	maskx = 0x3F
	mask2 = 0x1F
	mask3 = 0x0F
	mask4 = 0x07
	mask5 = 0x03
	mask6 = 0x01
)

// decodeUTF8Int reads a FLAC frame/sample number: a value encoded the way
// UTF-8 encodes a code point, up to 7 bytes (36 bits) wide.
func decodeUTF8Int(br *bitio.Reader) (uint64, error) {
	b0, err := br.ReadUint(8)
	if err != nil {
		return 0, err
	}
	switch {
	case b0&tx == 0:
		return uint64(b0), nil
	case b0&t3 == t2:
		return decodeUTF8Cont(br, uint64(b0&mask2), 1)
	case b0&t4 == t3:
		return decodeUTF8Cont(br, uint64(b0&mask3), 2)
	case b0&t5 == t4:
		return decodeUTF8Cont(br, uint64(b0&mask4), 3)
	case b0&t6 == t5:
		return decodeUTF8Cont(br, uint64(b0&mask5), 4)
	case b0&t7 == t6:
		return decodeUTF8Cont(br, uint64(b0&mask6), 5)
	case b0&0xFF == t7:
		return decodeUTF8Cont(br, 0, 6)
	default:
		return 0, ferr.DataFormatf("frame: invalid UTF-8 style leading byte 0x%02X", b0)
	}
}

// decodeUTF8Cont reads n continuation bytes, each contributing 6 bits, and
// folds them onto the high bits already decoded from the leading byte.
func decodeUTF8Cont(br *bitio.Reader, high uint64, n int) (uint64, error) {
	v := high
	for i := 0; i < n; i++ {
		b, err := br.ReadUint(8)
		if err != nil {
			return 0, err
		}
		if b&t2 != tx {
			return 0, ferr.DataFormatf("frame: invalid UTF-8 style continuation byte 0x%02X", b)
		}
		v = v<<6 | uint64(b&maskx)
	}
	return v, nil
}
