// Command iqcapture writes raw interleaved float32 I/Q samples to a file,
// either from a real sound-card/IF input (via portaudio) or a synthetic
// PRN simulator at a configurable Doppler, for feeding l1catrackd's file sample
// source. Grounded on large-farva-ephemeris-engine's Runner.Capture
// simulate/real split (see DESIGN.md).
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	l1ca "github.com/softgnss/l1ca-tracker/src"
)

// Runner captures I/Q samples to a file, either from a real audio device or
// a synthetic simulator.
type Runner struct {
	Simulate  bool
	SampleHz  float64
	PRN       int
	DopplerHz float64
	Logger    *log.Logger
}

// Capture writes durationSecs worth of samples to outPath.
func (r *Runner) Capture(ctx context.Context, outPath string, durationSecs float64) error {
	if r.Simulate {
		return r.simulateCapture(ctx, outPath, durationSecs)
	}
	return r.audioCapture(ctx, outPath, durationSecs)
}

// simulateCapture synthesizes a PRN-modulated IQ stream at the configured
// Doppler, useful for exercising l1catrackd without hardware.
func (r *Runner) simulateCapture(ctx context.Context, outPath string, durationSecs float64) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	code := l1ca.GenerateCACode(r.PRN)
	samplesPerChip := r.SampleHz / 1.023e6
	total := int(durationSecs * r.SampleHz)

	for n := 0; n < total; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chipIdx := int(float64(n)/samplesPerChip) % len(code)
		chip := float64(code[chipIdx])
		carrierPhase := 2 * math.Pi * r.DopplerHz * float64(n) / r.SampleHz
		iq := [2]float32{float32(chip * math.Cos(carrierPhase)), float32(chip * math.Sin(carrierPhase))}
		if err := binary.Write(f, binary.LittleEndian, iq); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
	}
	return nil
}

// audioCapture reads from the default portaudio input device.
func (r *Runner) audioCapture(ctx context.Context, outPath string, durationSecs float64) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	buf := make([]float32, 2048)
	stream, err := portaudio.OpenDefaultStream(2, 0, r.SampleHz, len(buf)/2, &buf)
	if err != nil {
		return fmt.Errorf("open audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start audio stream: %w", err)
	}
	defer stream.Stop()

	deadline := time.Now().Add(time.Duration(durationSecs * float64(time.Second)))
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := stream.Read(); err != nil {
			return fmt.Errorf("read audio stream: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, buf); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
	}
	return nil
}

func main() {
	outPath := pflag.StringP("out", "o", "capture.iq", "output raw I/Q file path")
	sampleHz := pflag.Float64("fs", 4e6, "sample rate in Hz")
	prn := pflag.Int("prn", 1, "PRN to synthesize (simulate mode only)")
	dopplerHz := pflag.Float64("doppler", 0, "Doppler shift in Hz (simulate mode only)")
	duration := pflag.Float64("duration", 10, "capture duration in seconds")
	simulate := pflag.Bool("simulate", true, "synthesize samples instead of reading a sound card")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	r := &Runner{Simulate: *simulate, SampleHz: *sampleHz, PRN: *prn, DopplerHz: *dopplerHz, Logger: logger}
	if err := r.Capture(context.Background(), *outPath, *duration); err != nil {
		logger.Fatal("capture failed", "err", err)
	}
}
