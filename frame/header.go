// Package frame implements access to FLAC audio frames: parsing their
// headers, decoding their subframes, and undoing inter-channel stereo
// decorrelation.
package frame

import (
	"io"

	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bitio"
)

// ChannelAssignment identifies how the subframes of a frame map to output
// channels, either independently (one subframe per channel) or through one
// of three inter-channel decorrelation schemes.
type ChannelAssignment uint8

// Channel assignments, as encoded in the 4-bit channel assignment field of a
// frame header.
const (
	ChannelMono ChannelAssignment = iota
	ChannelLR
	ChannelLRC
	ChannelLRLsRs
	ChannelLRCLsRs
	ChannelLRCLfeLsRs
	Channel7
	Channel8
	ChannelLeftSide  // left + side; the side subframe carries declared depth + 1 bits.
	ChannelSideRight // side + right; the side subframe carries declared depth + 1 bits.
	ChannelMidSide   // mid + side; the side subframe carries declared depth + 1 bits.
	// 11-15 are reserved.
)

// NChannels returns the number of output channels implied by ca, or 0 if ca
// is reserved.
func (ca ChannelAssignment) NChannels() int {
	switch {
	case ca <= Channel8:
		return int(ca) + 1
	case ca <= ChannelMidSide:
		return 2
	default:
		return 0
	}
}

func (ca ChannelAssignment) String() string {
	switch ca {
	case ChannelLeftSide:
		return "left/side"
	case ChannelSideRight:
		return "side/right"
	case ChannelMidSide:
		return "mid/side"
	default:
		return "independent"
	}
}

// Info holds the parsed, per-frame fields of a frame header.
type Info struct {
	// IsVariable reports whether Num identifies a sample number (variable
	// block size streams) rather than a frame number (fixed block size
	// streams).
	IsVariable bool
	// Num is a frame number, or the number of the frame's first sample if
	// IsVariable.
	Num uint64
	// BlockSize is the number of inter-channel samples in the frame.
	BlockSize uint32
	// SampleRate is the sample rate in Hz, or -1 if the frame defers to the
	// stream's STREAMINFO sample rate.
	SampleRate int32
	// ChannelAssignment is how the frame's subframes map to output channels.
	ChannelAssignment ChannelAssignment
	// SampleDepth is the bits per sample, or -1 if the frame defers to the
	// stream's STREAMINFO bit depth.
	SampleDepth int32
	// StartPos is the byte position, relative to the bit reader, at which
	// the frame's sync code begins.
	StartPos int64
	// FrameSize is the total size of the frame in bytes, header through the
	// trailing CRC-16 footer inclusive. It is zero until ReadFrame finishes
	// decoding the frame.
	FrameSize int
}

// NChannels returns the number of channels encoded by the frame.
func (info *Info) NChannels() int {
	return info.ChannelAssignment.NChannels()
}

// fixedBlockSize and the sample rate table below mirror the literal
// bit patterns laid out by the FLAC format for a frame header's block size
// and sample rate fields.
var fixedBlockSize = map[uint32]uint32{
	1: 192,
	2: 576, 3: 1152, 4: 2304, 5: 4608,
	8: 256, 9: 512, 10: 1024, 11: 2048, 12: 4096, 13: 8192, 14: 16384, 15: 32768,
}

var sampleRateTable = map[uint32]int32{
	1: 88200, 2: 176400, 3: 192000,
	4: 8000, 5: 16000, 6: 22050, 7: 24000, 8: 32000, 9: 44100, 10: 48000, 11: 96000,
}

// mid wraps an error returned while reading a header field that is not the
// very first one: an io.EOF this deep into a frame header is never a clean
// end of stream, since at least the sync code has already been consumed.
func mid(err error) error {
	if err == io.EOF {
		return ferr.NewUnexpectedEof(err)
	}
	return err
}

// ReadInfo reads and parses a frame header from br, positioned at a byte
// boundary. On a clean end of stream, with nothing at all consumed for this
// frame, it returns io.EOF; an end of stream anywhere after the first header
// byte is reported as an UnexpectedEof ferr.Error.
func ReadInfo(br *bitio.Reader) (*Info, error) {
	startPos := br.Position()
	// The CRC-8 covers the header in full, starting at the sync code, so
	// the accumulator must be reset here, before anything is read.
	if err := br.ResetCRCs(); err != nil {
		return nil, mid(err)
	}

	info := &Info{StartPos: startPos}

	// The first byte is read on its own: only an end of stream before it is
	// a clean end of stream.
	syncHigh, err := br.ReadUint(8)
	if err != nil {
		return nil, err // genuinely clean EOF: propagate io.EOF as-is.
	}
	syncLow, err := br.ReadUint(6)
	if err != nil {
		return nil, mid(err)
	}
	syncCode := syncHigh<<6 | syncLow
	const wantSyncCode = 0x3FFE
	if syncCode != wantSyncCode {
		return nil, ferr.DataFormatf("frame: invalid sync code 0x%04X", syncCode)
	}

	reserved1, err := br.ReadUint(1)
	if err != nil {
		return nil, mid(err)
	}
	if reserved1 != 0 {
		return nil, ferr.DataFormatf("frame: reserved bit set in header")
	}

	blockingStrategy, err := br.ReadUint(1)
	if err != nil {
		return nil, mid(err)
	}
	info.IsVariable = blockingStrategy == 1

	blockSizeCode, err := br.ReadUint(4)
	if err != nil {
		return nil, mid(err)
	}
	sampleRateCode, err := br.ReadUint(4)
	if err != nil {
		return nil, mid(err)
	}
	chanAsgnCode, err := br.ReadUint(4)
	if err != nil {
		return nil, mid(err)
	}
	if chanAsgnCode > uint32(ChannelMidSide) {
		return nil, ferr.DataFormatf("frame: reserved channel assignment %d", chanAsgnCode)
	}
	info.ChannelAssignment = ChannelAssignment(chanAsgnCode)

	sampleDepthCode, err := br.ReadUint(3)
	if err != nil {
		return nil, mid(err)
	}
	sampleDepth, err := decodeSampleDepthCode(sampleDepthCode)
	if err != nil {
		return nil, err
	}
	info.SampleDepth = sampleDepth

	reserved2, err := br.ReadUint(1)
	if err != nil {
		return nil, mid(err)
	}
	if reserved2 != 0 {
		return nil, ferr.DataFormatf("frame: reserved bit set in header")
	}

	num, err := decodeUTF8Int(br)
	if err != nil {
		return nil, mid(err)
	}
	if num>>36 != 0 {
		return nil, ferr.DataFormatf("frame: frame/sample number %d exceeds 36 bits", num)
	}
	if !info.IsVariable && num>>31 != 0 {
		return nil, ferr.DataFormatf("frame: fixed-blocksize frame number %d exceeds 31 bits", num)
	}
	info.Num = num

	blockSize, err := decodeBlockSize(br, blockSizeCode)
	if err != nil {
		return nil, mid(err)
	}
	info.BlockSize = blockSize

	sampleRate, err := decodeSampleRate(br, sampleRateCode)
	if err != nil {
		return nil, mid(err)
	}
	info.SampleRate = sampleRate

	// The CRC-8 covers every header byte up to but excluding this checksum
	// byte itself, so it must be read off the accumulator before the
	// checksum byte is consumed.
	gotCRC8, err := br.CRC8()
	if err != nil {
		return nil, mid(err)
	}
	wantCRC8, err := br.ReadUint(8)
	if err != nil {
		return nil, mid(err)
	}
	if byte(wantCRC8) != gotCRC8 {
		return nil, ferr.CrcMismatchf("frame: header CRC-8 mismatch: stream says 0x%02X, computed 0x%02X", wantCRC8, gotCRC8)
	}

	return info, nil
}

// decodeSampleDepthCode translates the 3-bit sample depth field into bits
// per sample, or -1 if the frame defers to STREAMINFO.
func decodeSampleDepthCode(code uint32) (int32, error) {
	switch code {
	case 0:
		return -1, nil
	case 1:
		return 8, nil
	case 2:
		return 12, nil
	case 3:
		return -1, ferr.DataFormatf("frame: reserved sample size code %d", code)
	case 4:
		return 16, nil
	case 5:
		return 20, nil
	case 6:
		return 24, nil
	case 7:
		return -1, ferr.DataFormatf("frame: reserved sample size code %d", code)
	default:
		return -1, ferr.DataFormatf("frame: reserved sample size code %d", code)
	}
}

// decodeBlockSize translates the 4-bit block size field into a sample
// count, reading a trailing 8- or 16-bit value from br when the code calls
// for one.
func decodeBlockSize(br *bitio.Reader, code uint32) (uint32, error) {
	switch code {
	case 0:
		return 0, ferr.DataFormatf("frame: reserved block size code %d", code)
	case 6:
		v, err := br.ReadUint(8)
		if err != nil {
			return 0, ferr.NewUnexpectedEof(err)
		}
		return v + 1, nil
	case 7:
		v, err := br.ReadUint(16)
		if err != nil {
			return 0, ferr.NewUnexpectedEof(err)
		}
		return v + 1, nil
	default:
		if n, ok := fixedBlockSize[code]; ok {
			return n, nil
		}
		return 0, ferr.DataFormatf("frame: reserved block size code %d", code)
	}
}

// decodeSampleRate translates the 4-bit sample rate field into Hz, reading
// a trailing value from br when the code calls for one, or -1 if the frame
// defers to STREAMINFO.
func decodeSampleRate(br *bitio.Reader, code uint32) (int32, error) {
	switch code {
	case 0:
		return -1, nil
	case 12:
		v, err := br.ReadUint(8)
		if err != nil {
			return 0, ferr.NewUnexpectedEof(err)
		}
		return int32(v) * 1000, nil
	case 13:
		v, err := br.ReadUint(16)
		if err != nil {
			return 0, ferr.NewUnexpectedEof(err)
		}
		return int32(v), nil
	case 14:
		v, err := br.ReadUint(16)
		if err != nil {
			return 0, ferr.NewUnexpectedEof(err)
		}
		return int32(v) * 10, nil
	case 15:
		return 0, ferr.DataFormatf("frame: invalid sample rate code %d", code)
	default:
		if hz, ok := sampleRateTable[code]; ok {
			return hz, nil
		}
		return 0, ferr.DataFormatf("frame: reserved sample rate code %d", code)
	}
}
