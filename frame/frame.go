package frame

import (
	"hash"

	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bitio"
)

// Subframe holds the decoded samples of a single FLAC subframe, already
// restored to their final, undecorrelated channel values.
type Subframe struct {
	// Samples holds one int32 per inter-channel sample, each within
	// [-1<<(depth-1), 1<<(depth-1)-1] for the frame's output sample depth.
	Samples []int32
}

// Frame is a fully decoded FLAC audio frame: a frame header plus one
// subframe per output channel, stereo-decorrelated back into independent
// channels if the header calls for it.
type Frame struct {
	Info
	Subframes []*Subframe
}

// Decoder reads a sequence of frames from a single FLAC stream. ReadFrame
// is not safe to call concurrently, and a Decoder must not be reused once
// it has returned a non-nil error other than io.EOF.
type Decoder struct {
	br *bitio.Reader
	// SampleRate, SampleDepth and NChannels are the values declared by the
	// stream's STREAMINFO block. SampleRate and SampleDepth are used
	// whenever a frame header defers to them (SampleRate/SampleDepth == -1);
	// NChannels, when non-zero, is checked against every frame's channel
	// assignment.
	SampleRate  int32
	SampleDepth int32
	NChannels   int

	buf [][]int64 // per-subframe scratch, reused across ReadFrame calls.
}

// NewDecoder returns a Decoder that reads frames from br using sampleRate
// and sampleDepth as the stream-level defaults a frame header may defer to,
// and nChannels (0 to skip the check) as the channel count every frame
// must carry.
func NewDecoder(br *bitio.Reader, sampleRate, sampleDepth int32, nChannels int) *Decoder {
	return &Decoder{br: br, SampleRate: sampleRate, SampleDepth: sampleDepth, NChannels: nChannels}
}

// ReadFrame reads and fully decodes the next frame. It returns io.EOF, as
// ReadInfo does, once the stream is cleanly exhausted.
func (d *Decoder) ReadFrame() (*Frame, error) {
	info, err := ReadInfo(d.br)
	if err != nil {
		return nil, err
	}

	sampleDepth := info.SampleDepth
	if sampleDepth < 0 {
		sampleDepth = d.SampleDepth
	}
	info.SampleDepth = sampleDepth
	if info.SampleRate < 0 {
		info.SampleRate = d.SampleRate
	}
	nChannels := info.NChannels()
	if nChannels == 0 {
		return nil, ferr.DataFormatf("frame: reserved channel assignment in header")
	}
	if d.NChannels != 0 && nChannels != d.NChannels {
		return nil, ferr.DataFormatf("frame: channel assignment implies %d channels, stream declares %d", nChannels, d.NChannels)
	}

	blockSize := int(info.BlockSize)
	if cap(d.buf) < nChannels {
		d.buf = make([][]int64, nChannels)
	}
	d.buf = d.buf[:nChannels]
	for i := range d.buf {
		if cap(d.buf[i]) < blockSize {
			d.buf[i] = make([]int64, blockSize)
		}
		d.buf[i] = d.buf[i][:blockSize]
	}

	if err := decodeSubframes(d.br, info.ChannelAssignment, sampleDepth, d.buf); err != nil {
		return nil, err
	}
	for _, samples := range d.buf {
		for _, v := range samples {
			if !fitsBitDepth(v, sampleDepth) {
				return nil, ferr.DataFormatf("frame: sample %d does not fit a signed %d-bit value", v, sampleDepth)
			}
		}
	}

	// A frame is always padded out to a byte boundary with zero bits
	// before the footer.
	if pad := d.br.BitPosition(); pad != 0 {
		v, err := d.br.ReadUint(8 - pad)
		if err != nil {
			return nil, mid(err)
		}
		if v != 0 {
			return nil, ferr.DataFormatf("frame: non-zero frame padding bits")
		}
	}

	// The CRC-16 covers every frame byte, header through the last subframe
	// bit, up to but excluding the two footer checksum bytes themselves:
	// the accumulator must be read before those bytes are consumed.
	gotCRC16, err := d.br.CRC16()
	if err != nil {
		return nil, mid(err)
	}
	wantCRC16, err := d.br.ReadUint(16)
	if err != nil {
		return nil, mid(err)
	}
	if uint16(wantCRC16) != gotCRC16 {
		return nil, ferr.CrcMismatchf("frame: footer CRC-16 mismatch: stream says 0x%04X, computed 0x%04X", wantCRC16, gotCRC16)
	}

	info.FrameSize = int(d.br.Position() - info.StartPos)
	if info.FrameSize < 10 {
		return nil, ferr.DataFormatf("frame: frame size %d bytes is below the minimum possible frame size of 10", info.FrameSize)
	}

	frame := &Frame{Info: *info, Subframes: make([]*Subframe, nChannels)}
	for i, samples := range d.buf {
		out := make([]int32, blockSize)
		for j, v := range samples {
			out[j] = int32(v)
		}
		frame.Subframes[i] = &Subframe{Samples: out}
	}
	return frame, nil
}

// decodeSubframes decodes every subframe of a frame into buf and, for any
// of the three stereo-decorrelation channel assignments, undoes the
// inter-channel correlation in place.
func decodeSubframes(br *bitio.Reader, ca ChannelAssignment, sampleDepth int32, buf [][]int64) error {
	switch ca {
	case ChannelLeftSide, ChannelSideRight, ChannelMidSide:
		if len(buf) != 2 {
			return ferr.IllegalStatef("frame: stereo decorrelation requires exactly 2 subframes")
		}
		// The "side" subframe always carries one extra bit of range; which
		// slot that is depends on the assignment: side/right reads the
		// side channel first, the other two schemes read it second.
		depth0, depth1 := sampleDepth, sampleDepth+1
		if ca == ChannelSideRight {
			depth0, depth1 = sampleDepth+1, sampleDepth
		}
		if err := decodeSubframe(br, depth0, buf[0]); err != nil {
			return err
		}
		if err := decodeSubframe(br, depth1, buf[1]); err != nil {
			return err
		}
		undoStereo(ca, buf[0], buf[1])
		return nil
	default:
		for _, out := range buf {
			if err := decodeSubframe(br, sampleDepth, out); err != nil {
				return err
			}
		}
		return nil
	}
}

// fitsBitDepth reports whether val fits a signed depth-bit integer, i.e.
// val >> (depth-1) is either all zero or all one bits.
func fitsBitDepth(val int64, depth int32) bool {
	return val>>(depth-1) == val>>depth
}

// undoStereo reverses one of the three inter-channel decorrelation schemes
// in place, turning a[i]/b[i] from their encoded form back into left/right
// samples.
func undoStereo(ca ChannelAssignment, a, b []int64) {
	switch ca {
	case ChannelLeftSide:
		// a holds left, b holds side = left - right.
		for i := range a {
			b[i] = a[i] - b[i]
		}
	case ChannelSideRight:
		// a holds side = left - right, b holds right.
		for i := range a {
			a[i] += b[i]
		}
	case ChannelMidSide:
		// a holds mid = (left+right)>>1, b holds side = left - right; side
		// and left+right always share a parity bit, which cancels out of
		// right = mid - (side>>1).
		for i := range a {
			side := b[i]
			right := a[i] - (side >> 1)
			a[i] = right + side
			b[i] = right
		}
	}
}

// Hash feeds the little-endian, interleaved PCM bytes of every sample in
// the frame into h, matching the byte order a STREAMINFO MD5 checksum is
// computed over. It rejects a sample depth that isn't a whole number of
// bytes, matching StreamInfo.getMd5Hash's own depth%8 check in the
// reference decoder: there is no well-defined MD5 byte layout for a depth
// like 12 or 20 bits, both otherwise legal FLAC sample depths.
func (f *Frame) Hash(h hash.Hash) error {
	if len(f.Subframes) == 0 {
		return nil
	}
	depth := f.SampleDepth
	if depth < 8 || depth > 32 || depth%8 != 0 {
		return ferr.DataFormatf("frame: sample depth %d is not a supported whole-byte width for MD5 hashing", depth)
	}
	nBytes := int(depth) / 8
	blockSize := len(f.Subframes[0].Samples)
	buf := make([]byte, nBytes)
	for i := 0; i < blockSize; i++ {
		for _, sf := range f.Subframes {
			v := uint32(sf.Samples[i])
			for k := 0; k < nBytes; k++ {
				buf[k] = byte(v >> uint(8*k))
			}
			h.Write(buf)
		}
	}
	return nil
}
