// Package meta contains functions for parsing FLAC metadata.
package meta

import (
	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bitio"
)

// StreamInfo contains the basic properties of a FLAC audio stream, such as
// its sample rate, channel count and bit depth. It is always the first
// metadata block of a FLAC stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
type StreamInfo struct {
	// Minimum block size (in samples) used in the stream.
	BlockSizeMin uint16
	// Maximum block size (in samples) used in the stream.
	BlockSizeMax uint16
	// Minimum frame size (in bytes) used in the stream; 0 if unknown.
	FrameSizeMin uint32
	// Maximum frame size (in bytes) used in the stream; 0 if unknown.
	FrameSizeMax uint32
	// Sample rate in Hz.
	SampleRate uint32
	// Number of channels (subframes per frame).
	NChannels uint8
	// Bits per sample.
	BitsPerSample uint8
	// Total number of inter-channel samples in the stream; 0 if unknown.
	NSamples uint64
	// MD5 checksum of the unencoded audio data.
	MD5sum [16]byte
}

// streamInfoLen is the fixed length in bytes of a STREAMINFO block body.
const streamInfoLen = 34

// NewStreamInfo reads and parses the body of a STREAMINFO metadata block
// from br, which must be positioned right after the block header.
func NewStreamInfo(br *bitio.Reader) (*StreamInfo, error) {
	si := &StreamInfo{}
	blockSizeMin, err := br.ReadUint(16)
	if err != nil {
		return nil, err
	}
	si.BlockSizeMin = uint16(blockSizeMin)
	blockSizeMax, err := br.ReadUint(16)
	if err != nil {
		return nil, err
	}
	si.BlockSizeMax = uint16(blockSizeMax)
	frameSizeMin, err := br.ReadUint(24)
	if err != nil {
		return nil, err
	}
	si.FrameSizeMin = frameSizeMin
	frameSizeMax, err := br.ReadUint(24)
	if err != nil {
		return nil, err
	}
	si.FrameSizeMax = frameSizeMax
	sampleRate, err := br.ReadUint(20)
	if err != nil {
		return nil, err
	}
	si.SampleRate = sampleRate
	nchannels, err := br.ReadUint(3)
	if err != nil {
		return nil, err
	}
	si.NChannels = uint8(nchannels) + 1
	bps, err := br.ReadUint(5)
	if err != nil {
		return nil, err
	}
	si.BitsPerSample = uint8(bps) + 1
	nsamplesHi, err := br.ReadUint(18)
	if err != nil {
		return nil, err
	}
	nsamplesLo, err := br.ReadUint(18)
	if err != nil {
		return nil, err
	}
	si.NSamples = uint64(nsamplesHi)<<18 | uint64(nsamplesLo)
	if err := br.ReadFully(si.MD5sum[:]); err != nil {
		return nil, err
	}
	if err := si.checkValues(); err != nil {
		return nil, err
	}
	return si, nil
}

// checkValues validates that every field of si falls within the legal range
// defined by the FLAC format.
func (si *StreamInfo) checkValues() error {
	if si.BlockSizeMin < 16 {
		return ferr.DataFormatf("meta: minimum block size %d is below the legal minimum of 16", si.BlockSizeMin)
	}
	if si.BlockSizeMax < si.BlockSizeMin {
		return ferr.DataFormatf("meta: maximum block size %d is below minimum block size %d", si.BlockSizeMax, si.BlockSizeMin)
	}
	if si.FrameSizeMin != 0 && si.FrameSizeMax != 0 && si.FrameSizeMax < si.FrameSizeMin {
		return ferr.DataFormatf("meta: maximum frame size %d is below minimum frame size %d", si.FrameSizeMax, si.FrameSizeMin)
	}
	if si.SampleRate == 0 || si.SampleRate > 655350 {
		return ferr.DataFormatf("meta: sample rate %d is out of range", si.SampleRate)
	}
	if si.NSamples>>36 != 0 {
		return ferr.DataFormatf("meta: total sample count %d exceeds 36 bits", si.NSamples)
	}
	return nil
}

// CheckFrame reports whether a just decoded frame, given by its block size,
// sample rate, sample depth and frame size in bytes, is consistent with the
// stream-wide properties declared by si. A negative sampleRate or
// sampleDepth skips that comparison.
func (si *StreamInfo) CheckFrame(blockSize uint32, sampleRate int32, sampleDepth int32, frameSize int) error {
	if sampleRate >= 0 && uint32(sampleRate) != si.SampleRate {
		return ferr.DataFormatf("meta: frame sample rate %d does not match stream sample rate %d", sampleRate, si.SampleRate)
	}
	if sampleDepth >= 0 && uint8(sampleDepth) != si.BitsPerSample {
		return ferr.DataFormatf("meta: frame bit depth %d does not match stream bit depth %d", sampleDepth, si.BitsPerSample)
	}
	if si.NSamples != 0 && uint64(blockSize) > si.NSamples {
		return ferr.DataFormatf("meta: frame block size %d exceeds declared total sample count %d", blockSize, si.NSamples)
	}
	if blockSize > uint32(si.BlockSizeMax) {
		return ferr.DataFormatf("meta: frame block size %d exceeds declared maximum block size %d", blockSize, si.BlockSizeMax)
	}
	if si.FrameSizeMin != 0 && uint32(frameSize) < si.FrameSizeMin {
		return ferr.DataFormatf("meta: frame size %d is below declared minimum frame size %d", frameSize, si.FrameSizeMin)
	}
	if si.FrameSizeMax != 0 && uint32(frameSize) > si.FrameSizeMax {
		return ferr.DataFormatf("meta: frame size %d exceeds declared maximum frame size %d", frameSize, si.FrameSizeMax)
	}
	return nil
}

// MarshalBinary serializes si into the 34-byte STREAMINFO block body, the
// inverse of NewStreamInfo.
func (si *StreamInfo) MarshalBinary() ([]byte, error) {
	buf := make([]byte, streamInfoLen)
	buf[0] = byte(si.BlockSizeMin >> 8)
	buf[1] = byte(si.BlockSizeMin)
	buf[2] = byte(si.BlockSizeMax >> 8)
	buf[3] = byte(si.BlockSizeMax)
	buf[4] = byte(si.FrameSizeMin >> 16)
	buf[5] = byte(si.FrameSizeMin >> 8)
	buf[6] = byte(si.FrameSizeMin)
	buf[7] = byte(si.FrameSizeMax >> 16)
	buf[8] = byte(si.FrameSizeMax >> 8)
	buf[9] = byte(si.FrameSizeMax)
	// sample_rate(20) | nchannels-1(3) | bps-1(5) | nsamples(36), packed
	// across bytes 10..17.
	v := uint64(si.SampleRate)<<44 | uint64(si.NChannels-1)<<41 | uint64(si.BitsPerSample-1)<<36 | si.NSamples
	for i := 0; i < 8; i++ {
		buf[10+i] = byte(v >> uint((7-i)*8))
	}
	copy(buf[18:34], si.MD5sum[:])
	return buf, nil
}

// MarshalBlock serializes si into a complete wire-format STREAMINFO
// metadata block: the 4-byte block header (is_last, type=0, length=34)
// ahead of MarshalBinary's 34-byte payload, the inverse of NewBlock for a
// STREAMINFO block. last sets the header's is_last bit, exactly as
// StreamInfo.write(boolean last, ...) does in the reference encoder.
func (si *StreamInfo) MarshalBlock(last bool) ([]byte, error) {
	payload, err := si.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4, 4+len(payload))
	if last {
		buf[0] = 0x80
	}
	buf[0] |= byte(TypeStreamInfo)
	buf[1] = byte(streamInfoLen >> 16)
	buf[2] = byte(streamInfoLen >> 8)
	buf[3] = byte(streamInfoLen)
	return append(buf, payload...), nil
}
