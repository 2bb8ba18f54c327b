package meta

import (
	"io"

	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bitio"
)

// Type identifies the kind of a metadata block.
type Type uint8

// Metadata block types.
const (
	TypeStreamInfo Type = iota
	TypePadding
	TypeApplication
	TypeSeekTable
	TypeVorbisComment
	TypeCueSheet
	TypePicture
	// 7-126 are reserved; 127 is invalid.
)

var typeName = map[Type]string{
	TypeStreamInfo:    "stream info",
	TypePadding:       "padding",
	TypeApplication:   "application",
	TypeSeekTable:     "seek table",
	TypeVorbisComment: "vorbis comment",
	TypeCueSheet:      "cue sheet",
	TypePicture:       "picture",
}

func (t Type) String() string {
	if name, ok := typeName[t]; ok {
		return name
	}
	return "reserved"
}

// Header describes a metadata block without its body.
type Header struct {
	// IsLast reports whether this is the last metadata block before the
	// first audio frame.
	IsLast bool
	// Type of the metadata block.
	Type Type
	// Length in bytes of the block body.
	Length int
}

// mid wraps an error returned while reading a metadata block header as
// UnexpectedEof: unlike a frame header, a block header has no position at
// which a clean end of stream is legal, since the chain always starts with
// a mandatory STREAMINFO block and every IsLast block says so before the
// chain ends.
func mid(err error) error {
	if err == io.EOF {
		return ferr.NewUnexpectedEof(err)
	}
	return err
}

// NewHeader reads and parses a metadata block header.
//
// Block header format (pseudo code):
//
//	type METADATA_BLOCK_HEADER struct {
//	   is_last    bool
//	   block_type uint7
//	   length     uint24
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_header
func NewHeader(br *bitio.Reader) (*Header, error) {
	isLast, err := br.ReadUint(1)
	if err != nil {
		return nil, mid(err)
	}
	rawType, err := br.ReadUint(7)
	if err != nil {
		return nil, mid(err)
	}
	if rawType >= 127 {
		return nil, ferr.DataFormatf("meta: invalid block type %d", rawType)
	}
	if rawType >= 7 {
		return nil, ferr.DataFormatf("meta: reserved block type %d", rawType)
	}
	length, err := br.ReadUint(24)
	if err != nil {
		return nil, mid(err)
	}
	return &Header{
		IsLast: isLast != 0,
		Type:   Type(rawType),
		Length: int(length),
	}, nil
}

// Block is a metadata block, exposing its header and, for STREAMINFO only,
// its parsed body; every other block type is only skipped over, since the
// decoder's sole use for them is to locate the first audio frame.
type Block struct {
	// IsLast reports whether this is the last metadata block before the
	// first audio frame.
	IsLast bool
	// Type of the metadata block.
	Type Type
	// Length in bytes of the block body.
	Length int
	// Body holds the parsed *StreamInfo when Type == TypeStreamInfo, and is
	// nil for every other block type.
	Body interface{}
}

// NewBlock reads a metadata block header from br and either parses its body
// (STREAMINFO) or skips over it (every other type), returning a Block that
// describes it either way.
func NewBlock(br *bitio.Reader) (*Block, error) {
	h, err := NewHeader(br)
	if err != nil {
		return nil, err
	}
	block := &Block{IsLast: h.IsLast, Type: h.Type, Length: h.Length}
	if h.Type == TypeStreamInfo {
		if h.Length != streamInfoLen {
			return nil, ferr.DataFormatf("meta: STREAMINFO block has length %d, want %d", h.Length, streamInfoLen)
		}
		si, err := NewStreamInfo(br)
		if err != nil {
			return nil, mid(err)
		}
		block.Body = si
		return block, nil
	}
	if err := skip(br, h.Length); err != nil {
		return nil, mid(err)
	}
	return block, nil
}

// skipBuf is reused across calls to skip, growing as needed; metadata
// blocks the decoder has no use for are read through it and discarded.
var skipBuf []byte

// skip advances br past n bytes of metadata block body that the decoder has
// no use for.
func skip(br *bitio.Reader, n int) error {
	if len(skipBuf) < n {
		skipBuf = make([]byte, n)
	}
	return br.ReadFully(skipBuf[:n])
}
