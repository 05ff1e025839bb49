// Command l1catrackd runs the GPS L1 C/A tracking and telemetry-decode
// pipeline against a configured set of channels and a sample source. It is
// a demo entrypoint, not a full receiver: acquisition is out of scope
// (spec.md §1), so each channel starts tracking from a fixed AcqResult
// built from its configured PRN, with zero Doppler and zero code phase.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/softgnss/l1ca-tracker/config"
	l1ca "github.com/softgnss/l1ca-tracker/src"
)

// fileSampleSource reads raw interleaved float32 I/Q pairs from a file,
// the simplest possible out-of-core SampleSource. Real front-end drivers
// (RTL-SDR, USRP, sound card) are out of scope per spec.md §1; cmd/iqcapture
// covers the one in-pack exception (portaudio).
type fileSampleSource struct {
	f *os.File
}

func newFileSampleSource(path string) (*fileSampleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample file %s: %w", path, err)
	}
	return &fileSampleSource{f: f}, nil
}

func (s *fileSampleSource) Read(ctx context.Context, buf []l1ca.Sample) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	raw := make([]float32, 2*len(buf))
	if err := binary.Read(s.f, binary.LittleEndian, raw); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("read samples: %w", err)
	}
	for i := range buf {
		buf[i] = l1ca.Sample(complex(raw[2*i], raw[2*i+1]))
	}
	return len(buf), nil
}

func main() {
	configPath := pflag.StringP("config", "c", "l1catrackd.yaml", "path to YAML config file")
	samplesPath := pflag.StringP("samples", "s", "", "path to raw interleaved float32 I/Q sample file")
	dumpOverride := pflag.Bool("dump", false, "force dump output on for every channel")
	logLevel := pflag.StringP("log-level", "l", "", "override the config's log level (debug, info, warn, error)")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("config load failed", "err", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	if *samplesPath == "" {
		logger.Fatal("-samples is required")
	}
	source, err := newFileSampleSource(*samplesPath)
	if err != nil {
		logger.Fatal("sample source open failed", "err", err)
	}

	bus := l1ca.NewControlBus(64)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	channels := make([]*l1ca.Channel, 0, len(cfg.Channels))
	for _, ccfg := range cfg.Channels {
		// Each channel reads the whole sample stream through its own handle.
		source, err = newFileSampleSource(*samplesPath)
		if err != nil {
			logger.Fatal("sample source open failed", "err", err)
		}
		dump := ccfg.Dump || *dumpOverride
		ch, err := l1ca.NewChannel(l1ca.ChannelConfig{
			ChannelID:           ccfg.PRN,
			SamplingFrequencyHz: ccfg.SamplingFrequencyHz,
			PLLBandwidthHz:      ccfg.PLLBandwidthHz,
			DLLBandwidthHz:      ccfg.DLLBandwidthHz,
			EarlyLateSpaceChips: ccfg.EarlyLateSpaceChips,
			Dump:                dump,
			DumpFilename:        ccfg.DumpFilename,
		}, source, bus, 64, logger)
		if err != nil {
			logger.Fatal("channel setup failed", "err", err)
		}

		if err := ch.Acquire(l1ca.AcqResult{PRN: ccfg.PRN, System: 'G'}); err != nil {
			logger.Fatal("acquire failed", "err", err)
		}
		channels = append(channels, ch)
	}

	go func() {
		for lol := range bus.Events() {
			logger.Warn("control bus event", "prn", lol.PRN, "cn0_db_hz", lol.CN0DbHz)
		}
	}()

	done := make(chan struct{}, len(channels))
	for _, ch := range channels {
		ch := ch
		go func() {
			if err := ch.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("channel run ended", "err", err)
			}
			done <- struct{}{}
		}()
	}
	for range channels {
		<-done
	}

	for _, ch := range channels {
		if err := ch.Stop(); err != nil {
			logger.Warn("channel stop failed", "err", err)
		}
	}
}
