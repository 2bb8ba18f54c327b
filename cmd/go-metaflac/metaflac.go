// go-metaflac prints the metadata blocks of one or more FLAC files.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lossless/flac"
	"github.com/lossless/flac/meta"
)

// flagBlockNum contains an optional comma-separated list of block numbers to
// display.
var flagBlockNum string

func init() {
	flag.StringVar(&flagBlockNum, "block-number", "", "An optional comma-separated list of block numbers to display.")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: go-metaflac [OPTION]... FILE...")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	for _, path := range flag.Args() {
		if err := list(path); err != nil {
			log.Fatalln(err)
		}
	}
}

func list(path string) error {
	var blockNums []int
	if flagBlockNum != "" {
		for _, raw := range strings.Split(flagBlockNum, ",") {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return err
			}
			blockNums = append(blockNums, n)
		}
	}

	stream, err := flac.Open(path)
	if err != nil {
		return err
	}
	defer stream.Close()

	if blockNums != nil {
		for _, n := range blockNums {
			if n < len(stream.Blocks) {
				listBlock(stream.Blocks[n], n)
			}
		}
		return nil
	}
	for n, block := range stream.Blocks {
		listBlock(block, n)
	}
	return nil
}

// typeName maps from metadata block type to a string version of its name.
var typeName = map[meta.Type]string{
	meta.TypeStreamInfo:    "STREAMINFO",
	meta.TypePadding:       "PADDING",
	meta.TypeApplication:   "APPLICATION",
	meta.TypeSeekTable:     "SEEKTABLE",
	meta.TypeVorbisComment: "VORBIS_COMMENT",
	meta.TypeCueSheet:      "CUESHEET",
	meta.TypePicture:       "PICTURE",
}

func listBlock(block *meta.Block, blockNum int) {
	name, ok := typeName[block.Type]
	if !ok {
		name = "RESERVED"
	}
	fmt.Printf("METADATA block #%d\n", blockNum)
	fmt.Printf("  type: %d (%s)\n", block.Type, name)
	fmt.Printf("  is last: %t\n", block.IsLast)
	fmt.Printf("  length: %d\n", block.Length)
	if si, ok := block.Body.(*meta.StreamInfo); ok {
		listStreamInfo(si)
	}
}

// Example:
//
//	minimum blocksize: 4608 samples
//	maximum blocksize: 4608 samples
//	minimum framesize: 0 bytes
//	maximum framesize: 19024 bytes
//	sample_rate: 44100 Hz
//	channels: 2
//	bits-per-sample: 16
//	total samples: 151007220
//	MD5 signature: 2e6238f5d9fe5c19f3ead628f750fd3d
func listStreamInfo(si *meta.StreamInfo) {
	fmt.Printf("  minimum blocksize: %d samples\n", si.BlockSizeMin)
	fmt.Printf("  maximum blocksize: %d samples\n", si.BlockSizeMax)
	fmt.Printf("  minimum framesize: %d bytes\n", si.FrameSizeMin)
	fmt.Printf("  maximum framesize: %d bytes\n", si.FrameSizeMax)
	fmt.Printf("  sample_rate: %d Hz\n", si.SampleRate)
	fmt.Printf("  channels: %d\n", si.NChannels)
	fmt.Printf("  bits-per-sample: %d\n", si.BitsPerSample)
	fmt.Printf("  total samples: %d\n", si.NSamples)
	fmt.Printf("  MD5 signature: %x\n", si.MD5sum)
}
