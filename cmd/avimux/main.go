// Command avimux assembles a synthetic AVI file from generated frames. It
// exists to exercise the writer end to end from the command line; it does
// not accept real encoded video or audio.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/charlescerisier/avimux/avi"
)

func main() {
	var (
		out        = flag.String("out", "out.avi", "output AVI file path")
		width      = flag.Int("width", 320, "frame width in pixels")
		height     = flag.Int("height", 240, "frame height in pixels")
		fps        = flag.Float64("fps", 25, "frame rate")
		frames     = flag.Int("frames", 100, "number of video frames to generate")
		sampleRate = flag.Int("sample-rate", 44100, "audio sample rate in Hz")
		noAudio    = flag.Bool("no-audio", false, "omit the audio stream")
		legacy     = flag.Bool("legacy-index", true, "emit the idx1 legacy index")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		avi.Log.SetLevel(logrus.DebugLevel)
	}

	if err := run(*out, *width, *height, *fps, *frames, *sampleRate, *noAudio, *legacy); err != nil {
		log.Fatal(err)
	}
}

func run(out string, width, height int, fps float64, frameCount, sampleRate int, noAudio, legacy bool) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	w := avi.NewWriter(f, avi.Options{
		FramesPerSecond: fps,
		EmitIndex1:      legacy,
		LeaveOpen:       true,
	})

	video, err := w.AddVideoStream(avi.VideoParams{Width: width, Height: height, BitsPerPixel: 24})
	if err != nil {
		return fmt.Errorf("add video stream: %w", err)
	}

	var audio *avi.AudioStreamHandle
	if !noAudio {
		audio, err = w.AddAudioStream(avi.NewPCMAudioParams(2, sampleRate, 16))
		if err != nil {
			return fmt.Errorf("add audio stream: %w", err)
		}
	}

	frame := make([]byte, width*height*3)
	samplesPerFrame := int(float64(sampleRate) / fps)
	block := make([]byte, samplesPerFrame*4)

	for i := 0; i < frameCount; i++ {
		fillFrame(frame, i, frameCount)
		if err := w.WriteVideoFrame(video, i == 0, frame); err != nil {
			return fmt.Errorf("write video frame %d: %w", i, err)
		}
		if audio != nil {
			fillAudioBlock(block, i, samplesPerFrame, sampleRate)
			if err := w.WriteAudioBlock(audio, block); err != nil {
				return fmt.Errorf("write audio block %d: %w", i, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}

	fmt.Printf("wrote %d frames to %s\n", frameCount, out)
	return nil
}

func fillFrame(frame []byte, i, total int) {
	shade := byte(i * 255 / total)
	for p := 0; p < len(frame); p += 3 {
		frame[p], frame[p+1], frame[p+2] = shade, shade, shade
	}
}

func fillAudioBlock(block []byte, frameIndex, samplesPerFrame, sampleRate int) {
	for s := 0; s < samplesPerFrame; s++ {
		t := float64(frameIndex*samplesPerFrame+s) / float64(sampleRate)
		v := int16(math.Sin(2*math.Pi*440*t) * 8000)
		for ch := 0; ch < 2; ch++ {
			idx := 4*s + 2*ch
			block[idx] = byte(v)
			block[idx+1] = byte(v >> 8)
		}
	}
}
