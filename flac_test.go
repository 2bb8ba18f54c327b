package flac

import (
	"bytes"
	"crypto/md5"
	"io"
	"testing"

	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/hashutil/crc16"
	"github.com/lossless/flac/internal/hashutil/crc8"
	"github.com/lossless/flac/meta"
)

// bitWriter is a minimal MSB-first bit writer used only by tests, to build
// synthetic streams independently of the decoder itself.
type bitWriter struct {
	buf  []byte
	cur  byte
	nbit int
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		bit := byte(v>>uint(i)) & 1
		w.cur = w.cur<<1 | bit
		w.nbit++
		if w.nbit == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur = 0
			w.nbit = 0
		}
	}
}

func (w *bitWriter) align() {
	for w.nbit != 0 {
		w.writeBits(0, 1)
	}
}

func (w *bitWriter) bytes() []byte {
	w.align()
	return w.buf
}

// frameHeader writes a mono, 4096-sample, 44100Hz, 8-bit frame header with
// frame number num (< 0x80, so it fits a single UTF-8-style byte), returning
// the header bytes including their trailing CRC-8.
func frameHeader(num uint32) []byte {
	w := &bitWriter{}
	w.writeBits(0x3FFE, 14)
	w.writeBits(0, 1)
	w.writeBits(0, 1)
	w.writeBits(12, 4) // block size code: 4096
	w.writeBits(9, 4)  // sample rate code: 44100 Hz
	w.writeBits(0, 4)  // channel assignment: mono
	w.writeBits(1, 3)  // sample depth code: 8 bits
	w.writeBits(0, 1)
	w.writeBits(uint64(num), 8)
	hdr := w.bytes()
	return append(hdr, crc8.Checksum(hdr))
}

// constantFrame builds a complete mono, 4096-sample, 8-bit CONSTANT frame
// whose every sample equals v.
func constantFrame(num uint32, v int64) []byte {
	w := &bitWriter{buf: append([]byte{}, frameHeader(num)...)}
	w.writeBits(0, 1) // padding
	w.writeBits(0, 6) // subframe type: CONSTANT
	w.writeBits(0, 1) // no wasted bits
	w.writeBits(uint64(v)&0xFF, 8)
	body := w.bytes()
	crc := crc16.Checksum(body)
	return append(body, byte(crc>>8), byte(crc))
}

func streamInfoBlock(nsamples uint64, md5sum [16]byte) []byte {
	si := &meta.StreamInfo{
		BlockSizeMin:  4096,
		BlockSizeMax:  4096,
		SampleRate:    44100,
		NChannels:     1,
		BitsPerSample: 8,
		NSamples:      nsamples,
		MD5sum:        md5sum,
	}
	body, _ := si.MarshalBinary()
	header := []byte{0x80, 0, 0, byte(len(body))} // is_last=1, type=0 (STREAMINFO)
	return append(header, body...)
}

func buildStream(frames [][]byte, md5sum [16]byte) []byte {
	buf := []byte(signature)
	buf = append(buf, streamInfoBlock(uint64(4096*len(frames)), md5sum)...)
	for _, f := range frames {
		buf = append(buf, f...)
	}
	return buf
}

func TestNewRejectsBadSignature(t *testing.T) {
	if _, err := New(bytes.NewReader([]byte("Xoops!!!"))); !ferr.Is(err, ferr.DataFormat) {
		t.Fatalf("got %v, want a DataFormat error", err)
	}
}

func TestNewRequiresStreamInfoBlock(t *testing.T) {
	if _, err := New(bytes.NewReader([]byte(signature))); !ferr.Is(err, ferr.UnexpectedEof) {
		t.Fatalf("got %v, want an UnexpectedEof error", err)
	}
}

func TestNewRejectsStreamInfoNotFirst(t *testing.T) {
	// A zero-length PADDING block, not marked last, followed by STREAMINFO:
	// STREAMINFO must be the very first metadata block, regardless of
	// whether some other block type would otherwise parse cleanly.
	padding := []byte{0x01, 0x00, 0x00, 0x00} // is_last=0, type=1 (PADDING), length=0
	var zero [16]byte
	buf := []byte(signature)
	buf = append(buf, padding...)
	buf = append(buf, streamInfoBlock(4096, zero)...)

	if _, err := New(bytes.NewReader(buf)); !ferr.Is(err, ferr.DataFormat) {
		t.Fatalf("got %v, want a DataFormat error", err)
	}
}

func TestParseNextDecodesFrameAndDetectsEOF(t *testing.T) {
	var zero [16]byte
	data := buildStream([][]byte{constantFrame(0, 0)}, zero)
	s, err := New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f, err := s.ParseNext()
	if err != nil {
		t.Fatalf("ParseNext: %v", err)
	}
	if len(f.Subframes) != 1 || len(f.Subframes[0].Samples) != 4096 {
		t.Fatalf("got %d subframes of %d samples, want 1 of 4096", len(f.Subframes), len(f.Subframes[0].Samples))
	}
	if _, err := s.ParseNext(); err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestCheckMD5Success(t *testing.T) {
	pcm := make([]byte, 4096) // mono, 8-bit, all-zero samples
	sum := md5.Sum(pcm)
	data := buildStream([][]byte{constantFrame(0, 0)}, sum)
	s, err := New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for {
		if _, err := s.ParseNext(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
	}
	if err := s.CheckMD5(); err != nil {
		t.Fatalf("CheckMD5: %v", err)
	}
}

func TestCheckMD5Mismatch(t *testing.T) {
	var wrongSum [16]byte
	wrongSum[0] = 0xFF
	data := buildStream([][]byte{constantFrame(0, 0)}, wrongSum)
	s, err := New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for {
		if _, err := s.ParseNext(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
	}
	if err := s.CheckMD5(); !ferr.Is(err, ferr.DataFormat) {
		t.Fatalf("got %v, want a DataFormat error", err)
	}
}

func TestCheckMD5SkippedForZeroSentinel(t *testing.T) {
	var zero [16]byte
	data := buildStream([][]byte{constantFrame(0, 1)}, zero) // declared sum opts out
	s, err := New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for {
		if _, err := s.ParseNext(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
	}
	if err := s.CheckMD5(); err != nil {
		t.Fatalf("CheckMD5: %v, want nil (all-zero sentinel opts out)", err)
	}
}

func TestParseNextRejectsBlockSizeOverflow(t *testing.T) {
	// A frame header declaring a block size larger than STREAMINFO's
	// declared maximum must be rejected by CheckFrame, even though the
	// frame itself decodes cleanly on its own terms.
	si := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  16,
		SampleRate:    44100,
		NChannels:     1,
		BitsPerSample: 8,
		NSamples:      4096,
	}
	body, _ := si.MarshalBinary()
	buf := []byte(signature)
	buf = append(buf, 0x80, 0, 0, byte(len(body)))
	buf = append(buf, body...)
	buf = append(buf, constantFrame(0, 0)...)

	s, err := New(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.ParseNext(); !ferr.Is(err, ferr.DataFormat) {
		t.Fatalf("got %v, want a DataFormat error", err)
	}
}
