// Package flac provides access to FLAC (Free Lossless Audio Codec) streams:
// parsing the metadata block chain that precedes the audio, and decoding
// the audio frames that follow it one at a time.
//
// The basic structure of a FLAC bitstream is:
//   - The four byte string signature "fLaC".
//   - The StreamInfo metadata block.
//   - Zero or more other metadata blocks.
//   - One or more audio frames.
//
// ref: https://www.xiph.org/flac/format.html
package flac

import (
	"crypto/md5"
	"hash"
	"io"
	"os"

	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/frame"
	"github.com/lossless/flac/internal/bitio"
	"github.com/lossless/flac/meta"
)

const signature = "fLaC"

// Stream is a parsed FLAC bitstream: its STREAMINFO, every other metadata
// block up to the first audio frame, and a cursor from which further
// frames can be decoded on demand via ParseNext.
type Stream struct {
	// Info is the stream's STREAMINFO metadata block.
	Info *meta.StreamInfo
	// Blocks holds every metadata block preceding the first audio frame,
	// including Info's own block.
	Blocks []*meta.Block

	br     *bitio.Reader
	dec    *frame.Decoder
	closer io.Closer
	hasher hash.Hash
}

// New parses the FLAC signature and metadata block chain from r, returning
// a Stream positioned at the first audio frame. Call ParseNext to decode
// frames one at a time.
func New(r io.Reader) (*Stream, error) {
	br := bitio.NewReader(r)
	sig := make([]byte, 4)
	if err := br.ReadFully(sig); err != nil {
		return nil, err
	}
	if string(sig) != signature {
		return nil, ferr.DataFormatf("flac: invalid signature %q, want %q", sig, signature)
	}

	s := &Stream{br: br, hasher: md5.New()}
	for {
		block, err := meta.NewBlock(br)
		if err != nil {
			return nil, err
		}
		s.Blocks = append(s.Blocks, block)
		if len(s.Blocks) == 1 && block.Type != meta.TypeStreamInfo {
			return nil, ferr.DataFormatf("flac: first metadata block has type %v, want stream info", block.Type)
		}
		if si, ok := block.Body.(*meta.StreamInfo); ok {
			s.Info = si
		}
		if block.IsLast {
			break
		}
	}
	if s.Info == nil {
		return nil, ferr.DataFormatf("flac: stream has no STREAMINFO block")
	}
	s.dec = frame.NewDecoder(br, int32(s.Info.SampleRate), int32(s.Info.BitsPerSample), int(s.Info.NChannels))
	return s, nil
}

// Open opens the named file and parses its FLAC signature and metadata
// block chain. The caller must call Close when done reading frames from
// the returned Stream.
//
// bitio.Reader already buffers its source and, since *os.File implements
// io.Seeker, already supports Seek directly against it, so Open hands the
// file straight to New rather than interposing a second buffering layer.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// ParseFile opens the named file, parses its metadata, and decodes every
// audio frame eagerly, closing the file before returning. It is a
// convenience for callers that want the whole stream in memory at once;
// streaming decoders should use Open and ParseNext instead.
func ParseFile(path string) (*Stream, []*frame.Frame, error) {
	s, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()

	var frames []*frame.Frame
	for {
		f, err := s.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, f)
	}
	if err := s.CheckMD5(); err != nil {
		return nil, nil, err
	}
	return s, frames, nil
}

// ParseNext decodes and returns the next audio frame, verifying it against
// the stream's declared STREAMINFO properties and folding its samples into
// the running MD5 check. It returns io.EOF once the stream is exhausted.
func (s *Stream) ParseNext() (*frame.Frame, error) {
	f, err := s.dec.ReadFrame()
	if err != nil {
		return nil, err
	}
	if err := s.Info.CheckFrame(f.BlockSize, f.SampleRate, f.SampleDepth, f.FrameSize); err != nil {
		return nil, err
	}
	if err := f.Hash(s.hasher); err != nil {
		return nil, err
	}
	return f, nil
}

// CheckMD5 reports whether the MD5 of every sample decoded so far via
// ParseNext matches the checksum declared by STREAMINFO. A stream with an
// all-zero declared checksum opted out of the check, so CheckMD5 always
// succeeds for it. Call it only after ParseNext has returned io.EOF.
func (s *Stream) CheckMD5() error {
	var zero [16]byte
	if s.Info.MD5sum == zero {
		return nil
	}
	var got [16]byte
	copy(got[:], s.hasher.Sum(nil))
	if got != s.Info.MD5sum {
		return ferr.DataFormatf("flac: decoded audio MD5 %x does not match declared %x", got, s.Info.MD5sum)
	}
	return nil
}

// Close closes the underlying file, if the Stream was obtained via Open or
// ParseFile.
func (s *Stream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
