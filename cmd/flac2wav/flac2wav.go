// flac2wav is a tool which converts FLAC files to WAV files.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/lossless/flac"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
)

// flagForce specifies if file overwriting should be forced, when a WAV file of
// the same name already exists.
var flagForce bool

func init() {
	flag.BoolVar(&flagForce, "f", false, "Force overwrite.")
}

func main() {
	flag.Parse()
	for _, path := range flag.Args() {
		if err := flac2wav(path); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

// flac2wav converts the provided FLAC file to a WAV file.
func flac2wav(path string) error {
	stream, err := flac.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer stream.Close()

	wavPath := pathutil.TrimExt(path) + ".wav"
	if !flagForce && osutil.Exists(wavPath) {
		return errors.Errorf("the file %q exists already; use -f flag to force overwrite", wavPath)
	}
	fw, err := os.Create(wavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer fw.Close()

	nchannels := int(stream.Info.NChannels)
	bps := int(stream.Info.BitsPerSample)
	enc := wav.NewEncoder(fw, int(stream.Info.SampleRate), bps, nchannels, 1)
	defer enc.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nchannels, SampleRate: int(stream.Info.SampleRate)},
		SourceBitDepth: bps,
	}
	for {
		f, err := stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			return errors.WithStack(err)
		}

		blockSize := int(f.BlockSize)
		if cap(buf.Data) < blockSize*nchannels {
			buf.Data = make([]int, blockSize*nchannels)
		}
		buf.Data = buf.Data[:blockSize*nchannels]
		for i := 0; i < blockSize; i++ {
			for c, subframe := range f.Subframes {
				buf.Data[i*nchannels+c] = int(subframe.Samples[i])
			}
		}
		if err := enc.Write(buf); err != nil {
			return errors.WithStack(err)
		}
	}
	if err := stream.CheckMD5(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
