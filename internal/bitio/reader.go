// Package bitio implements the bit-level reader at the core of the FLAC
// decoder: a byte buffer backed by an io.Reader, a 64-bit bit buffer fed
// from it, and a pair of CRCs (CRC-8 for frame headers, CRC-16 for frame
// footers) updated lazily as bytes leave the byte buffer. A dedicated fast
// path decodes up to riceChunk Rice-coded residuals at a time by table
// lookup instead of bit-by-bit, falling back to the slow unary-plus-remainder
// loop whenever a code is wider than the lookup window.
//
// The design mirrors io.nayuki.flac's AbstractFlacLowLevelInput: reads never
// cross a refill boundary silently, every multi-byte read accounts for the
// bytes it consumes towards the CRCs exactly once, and callers must be byte
// aligned before asking for a checksum.
package bitio

import (
	"io"

	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bits"
	"github.com/lossless/flac/internal/hashutil/crc16"
	"github.com/lossless/flac/internal/hashutil/crc8"
)

const (
	defaultByteBufSize = 4096

	riceTableBits = 13
	riceTableMask = 1<<riceTableBits - 1
	riceChunk     = 4
	// maxRiceParam is the largest Rice parameter accepted by
	// ReadRiceSignedInts. A 5-bit partition parameter field reserves value
	// 31 to mean "escape to verbatim"; callers intercept that case before
	// reaching here, so 30 is the true upper bound.
	maxRiceParam = 30
)

// riceConsumed[param][w] is the number of bits consumed by the Rice code
// whose top riceTableBits bits of lookahead equal w, or 0 if no code with
// that lookahead fits within the window (forcing the slow path).
var riceConsumed [maxRiceParam + 1][1 << riceTableBits]uint8

// riceValue[param][w] is the zig-zag decoded value of that same code.
var riceValue [maxRiceParam + 1][1 << riceTableBits]int64

func init() {
	for param := 0; param <= maxRiceParam; param++ {
		consumed := &riceConsumed[param]
		values := &riceValue[param]
		// Enumerate every Rice code (q zero bits, a terminating 1 bit, then
		// param remainder bits) short enough to fit the lookahead window,
		// and populate every lookahead pattern it is a prefix of.
		for q := 0; ; q++ {
			numBits := q + 1 + param
			if numBits > riceTableBits {
				break
			}
			for rem := 0; rem < 1<<uint(param); rem++ {
				codeMSB := uint64(1)<<uint(param) | uint64(rem)
				shift := riceTableBits - numBits
				base := int(codeMSB) << uint(shift)
				val := bits.DecodeZigZag64(uint64(q)<<uint(param) | uint64(rem))
				for pad := 0; pad < 1<<uint(shift); pad++ {
					idx := base | pad
					consumed[idx] = uint8(numBits)
					values[idx] = val
				}
			}
		}
	}
}

// Reader is a bit-level reader over an io.Reader, with fused CRC-8/CRC-16
// accumulation and a Rice-decoding fast path.
type Reader struct {
	src    io.Reader
	seeker io.Seeker // non-nil when src also implements io.Seeker

	byteBuffer      []byte
	byteBufferStart int64 // absolute position of byteBuffer[0]
	byteBufferLen   int
	byteBufferIndex int

	bitBuffer    uint64
	bitBufferLen int

	crc8        uint8
	crc16       uint16
	crcStartIdx int
}

// NewReader returns a Reader over r, sized with the default byte buffer. If
// r also implements io.Seeker, the returned Reader supports Seek.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, defaultByteBufSize)
}

// NewReaderSize is like NewReader but lets the caller choose the byte
// buffer size.
func NewReaderSize(r io.Reader, size int) *Reader {
	if size < 8 {
		size = 8
	}
	br := &Reader{
		src:        r,
		byteBuffer: make([]byte, size),
	}
	if s, ok := r.(io.Seeker); ok {
		br.seeker = s
	}
	return br
}

// Position returns the number of bytes consumed from the source, not
// counting any bytes buffered ahead of the current bit position.
func (r *Reader) Position() int64 {
	return r.byteBufferStart + int64(r.byteBufferIndex) - int64((r.bitBufferLen+7)/8)
}

// BitPosition returns the number of bits past the last byte boundary that
// have been consumed, in [0,8).
func (r *Reader) BitPosition() int {
	return -r.bitBufferLen & 7
}

// Seek repositions the reader at absolute byte offset pos, which must also
// be a byte boundary of the bit position. It requires the wrapped source to
// implement io.Seeker.
func (r *Reader) Seek(pos int64) error {
	if r.seeker == nil {
		return ferr.IllegalStatef("bitio: underlying source does not support seeking")
	}
	if _, err := r.seeker.Seek(pos, io.SeekStart); err != nil {
		return ferr.IoFailuref(err, "bitio: seek to %d", pos)
	}
	r.byteBufferStart = pos
	r.byteBufferLen = 0
	r.byteBufferIndex = 0
	r.bitBuffer = 0
	r.bitBufferLen = 0
	r.crcStartIdx = 0
	r.crc8 = 0
	r.crc16 = 0
	return nil
}

// fillByteBuffer folds any bytes left over from the previous fill into the
// running CRCs, then refills the byte buffer from the underlying source.
// It reports io.EOF when the source has no more data.
func (r *Reader) fillByteBuffer() error {
	r.updateCRCs(0)
	r.byteBufferStart += int64(r.byteBufferLen)
	n, err := r.src.Read(r.byteBuffer)
	r.byteBufferLen = n
	r.byteBufferIndex = 0
	r.crcStartIdx = 0
	if n == 0 {
		if err == nil || err == io.EOF {
			return io.EOF
		}
		return ferr.IoFailuref(err, "bitio: reading byte source")
	}
	if err != nil && err != io.EOF {
		return ferr.IoFailuref(err, "bitio: reading byte source")
	}
	return nil
}

func (r *Reader) readUnderlyingByte() (byte, error) {
	if r.byteBufferIndex >= r.byteBufferLen {
		if err := r.fillByteBuffer(); err != nil {
			return 0, err
		}
	}
	b := r.byteBuffer[r.byteBufferIndex]
	r.byteBufferIndex++
	return b, nil
}

// fillBitBuffer pulls as many whole bytes as fit from the byte buffer into
// the bit buffer, or else a single byte from the underlying source if the
// byte buffer is drained and the bit buffer has room to spare.
func (r *Reader) fillBitBuffer() error {
	n := (64 - r.bitBufferLen) >> 3
	if avail := r.byteBufferLen - r.byteBufferIndex; avail < n {
		n = avail
	}
	if n > 0 {
		for i := 0; i < n; i++ {
			r.bitBuffer = r.bitBuffer<<8 | uint64(r.byteBuffer[r.byteBufferIndex])
			r.byteBufferIndex++
		}
		r.bitBufferLen += n * 8
		return nil
	}
	if r.bitBufferLen <= 56 {
		b, err := r.readUnderlyingByte()
		if err != nil {
			return err
		}
		r.bitBuffer = r.bitBuffer<<8 | uint64(b)
		r.bitBufferLen += 8
	}
	return nil
}

// ReadUint reads an n-bit (0 <= n <= 32) unsigned big-endian integer.
func (r *Reader) ReadUint(n int) (uint32, error) {
	if n < 0 || n > 32 {
		return 0, ferr.IllegalArgumentf("bitio: invalid read width %d", n)
	}
	if n == 0 {
		return 0, nil
	}
	for r.bitBufferLen < n {
		if err := r.fillBitBuffer(); err != nil {
			return 0, err
		}
	}
	result := r.bitBuffer >> uint(r.bitBufferLen-n)
	if n < 64 {
		result &= 1<<uint(n) - 1
	}
	r.bitBufferLen -= n
	return uint32(result), nil
}

// ReadSignedInt reads an n-bit (0 <= n <= 32) two's complement integer.
func (r *Reader) ReadSignedInt(n int) (int32, error) {
	if n == 0 {
		return 0, nil
	}
	u, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	return int32(bits.IntN(uint64(u), uint(n))), nil
}

// ReadByte reads a single byte, which must be requested on a byte boundary.
func (r *Reader) ReadByte() (byte, error) {
	if r.bitBufferLen%8 != 0 {
		return 0, ferr.IllegalStatef("bitio: ReadByte called off a byte boundary")
	}
	u, err := r.ReadUint(8)
	return byte(u), err
}

// ReadFully reads len(buf) bytes, which must be requested on a byte
// boundary.
func (r *Reader) ReadFully(buf []byte) error {
	if r.bitBufferLen%8 != 0 {
		return ferr.IllegalStatef("bitio: ReadFully called off a byte boundary")
	}
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

// ReadRiceSignedInts Rice-decodes end-start residuals with parameter param
// into out[start:end]. It decodes up to riceChunk codes at a time via table
// lookup whenever enough lookahead is buffered, falling back to a bit-by-bit
// unary-plus-remainder decode otherwise. A unary prefix of unaryLimit zero
// bits or more is rejected as malformed, bounding every value below 2^53
// before the zig-zag fold (a signed 53-bit integer after it).
func (r *Reader) ReadRiceSignedInts(param int, out []int64, start, end int) error {
	if param < 0 || param > maxRiceParam {
		return ferr.IllegalArgumentf("bitio: rice parameter %d out of range", param)
	}
	unaryLimit := int64(1) << uint(53-param)
	consumed := &riceConsumed[param]
	values := &riceValue[param]

	for {
		for start <= end-riceChunk {
			if r.bitBufferLen < riceChunk*riceTableBits {
				if r.byteBufferIndex > r.byteBufferLen-8 {
					break
				}
				if err := r.fillBitBuffer(); err != nil {
					return err
				}
			}
			stop := false
			for i := 0; i < riceChunk; i++ {
				w := int(r.bitBuffer>>uint(r.bitBufferLen-riceTableBits)) & riceTableMask
				c := consumed[w]
				if c == 0 {
					stop = true
					break
				}
				r.bitBufferLen -= int(c)
				out[start] = values[w]
				start++
			}
			if stop {
				break
			}
		}
		if start >= end {
			return nil
		}

		// Slow path: decode exactly one value bit by bit, then retry the
		// fast path for whatever remains.
		var q int64
		for {
			bit, err := r.ReadUint(1)
			if err != nil {
				return err
			}
			if bit == 1 {
				break
			}
			q++
			if q >= unaryLimit {
				return ferr.DataFormatf("bitio: rice-coded residual exceeds unary limit for parameter %d", param)
			}
		}
		rem, err := r.ReadUint(param)
		if err != nil {
			return err
		}
		zz := uint64(q)<<uint(param) | uint64(rem)
		out[start] = bits.DecodeZigZag64(zz)
		start++
	}
}

// ResetCRCs zeroes both running CRCs starting from the current, byte
// aligned position.
func (r *Reader) ResetCRCs() error {
	if r.bitBufferLen%8 != 0 {
		return ferr.IllegalStatef("bitio: ResetCRCs called off a byte boundary")
	}
	r.crcStartIdx = r.byteBufferIndex - r.bitBufferLen/8
	r.crc8 = 0
	r.crc16 = 0
	return nil
}

// CRC8 returns the CRC-8 accumulated since the last ResetCRCs call, up to
// the current, byte aligned position.
func (r *Reader) CRC8() (uint8, error) {
	if r.bitBufferLen%8 != 0 {
		return 0, ferr.IllegalStatef("bitio: CRC8 called off a byte boundary")
	}
	r.updateCRCs(r.bitBufferLen / 8)
	return r.crc8, nil
}

// CRC16 returns the CRC-16 accumulated since the last ResetCRCs call, up to
// the current, byte aligned position.
func (r *Reader) CRC16() (uint16, error) {
	if r.bitBufferLen%8 != 0 {
		return 0, ferr.IllegalStatef("bitio: CRC16 called off a byte boundary")
	}
	r.updateCRCs(r.bitBufferLen / 8)
	return r.crc16, nil
}

// updateCRCs folds byteBuffer[crcStartIdx : byteBufferIndex-unusedTrailing]
// into the running CRCs and advances crcStartIdx past them.
func (r *Reader) updateCRCs(unusedTrailing int) {
	end := r.byteBufferIndex - unusedTrailing
	for ; r.crcStartIdx < end; r.crcStartIdx++ {
		b := r.byteBuffer[r.crcStartIdx]
		r.crc8 = crc8.Update(r.crc8, b)
		r.crc16 = crc16.Update(r.crc16, b)
	}
}
