// flac-frame decodes every audio frame of the given FLAC files, discarding
// the samples; it exists to profile the frame decoder under pprof.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/lossless/flac"
)

func main() {
	f, err := os.Create("flac-frame.pprof")
	if err != nil {
		log.Println(err)
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		log.Println(err)
	}
	defer pprof.StopCPUProfile()

	flag.Parse()
	for _, filePath := range flag.Args() {
		if err := flacFrame(filePath); err != nil {
			log.Println(err)
		}
	}
}

func flacFrame(filePath string) error {
	stream, err := flac.Open(filePath)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		_, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return stream.CheckMD5()
}
