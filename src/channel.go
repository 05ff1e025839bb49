package l1ca

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// SampleSource is the only surface the core tracking/decode pipeline needs
// from a front end (RF dongle, IQ file, simulator). Concrete sample-source
// drivers live outside this package, per spec.md §1.
type SampleSource interface {
	Read(ctx context.Context, buf []Sample) (int, error)
}

// ChannelConfig mirrors spec.md §6's per-channel configuration fields.
type ChannelConfig struct {
	ChannelID            int
	SamplingFrequencyHz  float64
	PLLBandwidthHz       float64
	DLLBandwidthHz       float64
	EarlyLateSpaceChips  float64
	Dump                 bool
	DumpFilename         string
}

// Channel wires one Tracker, Framer and SubframeFSM to a SampleSource,
// running them as a goroutine per spec.md §5's concurrency model. Grounded
// on the teacher's per-connection goroutine pattern (server.go) and
// rjboer-GoSDR's Tracker.Run(ctx) ticker+ctx.Done() loop (see DESIGN.md).
type Channel struct {
	cfg ChannelConfig

	source SampleSource
	tracker *Tracker
	framer  *Framer
	subfsm  *SubframeFSM

	dump *DumpWriter
	bus  *ControlBus

	synchroOut  *Queue[Synchro]
	ephOut      *Queue[Ephemeris]
	ionoOut     *Queue[Iono]
	utcOut      *Queue[UtcModel]
	almanacOut  *Queue[Almanac]

	logger *log.Logger
}

const bannerTimeLayout = "%Y-%m-%dT%H:%M:%S%z"

// NewChannel constructs a Channel. queueCapacity sizes each output Queue.
func NewChannel(cfg ChannelConfig, source SampleSource, bus *ControlBus, queueCapacity int, logger *log.Logger) (*Channel, error) {
	if cfg.SamplingFrequencyHz <= 0 {
		return nil, fmt.Errorf("channel %d: sampling frequency must be positive", cfg.ChannelID)
	}

	c := &Channel{
		cfg:        cfg,
		source:     source,
		bus:        bus,
		synchroOut: NewQueue[Synchro](queueCapacity),
		ephOut:     NewQueue[Ephemeris](queueCapacity),
		ionoOut:    NewQueue[Iono](queueCapacity),
		utcOut:     NewQueue[UtcModel](queueCapacity),
		almanacOut: NewQueue[Almanac](queueCapacity),
		logger:     logger.With("channel", cfg.ChannelID),
	}

	c.tracker = NewTracker(cfg.ChannelID, TrackerConfig{
		FsInHz:            cfg.SamplingFrequencyHz,
		DLLBandwidthHz:    cfg.DLLBandwidthHz,
		PLLBandwidthHz:    cfg.PLLBandwidthHz,
		EarlyLateSpcChips: cfg.EarlyLateSpaceChips,
	})
	c.framer = NewFramer(cfg.ChannelID, c.onWord)
	c.subfsm = NewSubframeFSM(cfg.ChannelID, 0, c.ephOut.Push, c.ionoOut.Push, c.utcOut.Push, c.almanacOut.Push)

	if cfg.Dump {
		dw, err := NewDumpWriter(cfg.DumpFilename, cfg.ChannelID, logger)
		if err != nil {
			return nil, err
		}
		c.dump = dw
	}

	return c, nil
}

// Synchros, Ephemerides, Ionos, UtcModels and Almanacs expose this
// channel's output queues for a PVT consumer to drain.
func (c *Channel) Synchros() <-chan Synchro     { return c.synchroOut.Chan() }
func (c *Channel) Ephemerides() <-chan Ephemeris { return c.ephOut.Chan() }
func (c *Channel) Ionos() <-chan Iono            { return c.ionoOut.Chan() }
func (c *Channel) UtcModels() <-chan UtcModel    { return c.utcOut.Chan() }
func (c *Channel) Almanacs() <-chan Almanac      { return c.almanacOut.Chan() }

func (c *Channel) onWord(w Word) {
	c.subfsm.PushWord(w)
}

// Acquire hands an acquisition result to the tracker and logs a
// human-readable session-start banner for this channel's dump/debug stream.
func (c *Channel) Acquire(acq AcqResult) error {
	// This channel's tracker has not consumed any samples yet, so its
	// running sample counter is 0 at the moment of handoff.
	if err := c.tracker.StartTracking(acq, 0); err != nil {
		return fmt.Errorf("channel %d acquire: %w", c.cfg.ChannelID, err)
	}
	c.subfsm = NewSubframeFSM(c.cfg.ChannelID, acq.PRN, c.ephOut.Push, c.ionoOut.Push, c.utcOut.Push, c.almanacOut.Push)

	banner, err := strftime.Format(bannerTimeLayout, time.Now())
	if err != nil {
		banner = time.Now().Format(time.RFC3339)
	}
	c.logger.Info("tracking started", "prn", acq.PRN, "system", SystemName[acq.System], "at", banner)
	return nil
}

// Run drives the channel's per-PRN-period loop until ctx is cancelled,
// pulling samples from the SampleSource, stepping the tracker, feeding the
// framer and emitting all downstream records. It returns ctx's error on
// cancellation, a wrapped error when the source read fails, and nil after a
// loss of lock, once the LossOfLock is published and the tracker disabled.
// Grounded on rjboer-GoSDR's
// Tracker.Run(ctx) pattern (see DESIGN.md), replacing its ticker with a
// tight pull-driven loop since the PRN period here is set by the tracker's
// own NCO, not a wall-clock tick.
func (c *Channel) Run(ctx context.Context) error {
	buf := make([]Sample, c.tracker.SamplesNeeded())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		need := c.tracker.SamplesNeeded()
		if cap(buf) < need {
			buf = make([]Sample, need)
		}
		buf = buf[:need]

		n, err := c.source.Read(ctx, buf)
		if err != nil {
			return fmt.Errorf("channel %d read: %w", c.cfg.ChannelID, err)
		}
		if n < need {
			continue
		}

		synchro, debug, lol, err := c.tracker.Step(buf)
		if err != nil {
			c.logger.Warn("tracking step failed", "err", err)
			continue
		}

		// Even an invalid (NaN-guarded or pull-in) step still advances the
		// framer's 20:1 symbol cadence and the downstream Synchro stream,
		// per spec.md §4.1 step 4 — dropping it here would desynchronize
		// bit boundaries from that point on.
		c.framer.PushSymbol(synchro.PromptI, synchro.TrackingTimestampSecs*1000)
		c.synchroOut.Push(synchro)

		if c.dump != nil {
			c.dump.Write(DumpRecord{
				AbsEarly:           float32(debug.AbsEarly),
				AbsPrompt:          float32(debug.AbsPrompt),
				AbsLate:            float32(debug.AbsLate),
				PromptI:            float32(synchro.PromptI),
				PromptQ:            float32(synchro.PromptQ),
				SampleCounter:      debug.SampleCounter,
				AccCarrierPhaseRad: float32(synchro.CarrierPhaseRad),
				CarrierDopplerHz:   float32(synchro.CarrierDopplerHz),
				CodeFreqHz:         float32(debug.CodeFreqHz),
				CarrError:          float32(debug.CarrError),
				CarrNCO:            float32(debug.CarrNCO),
				CodeError:          float32(debug.CodeError),
				CodeNCO:            float32(debug.CodeNCO),
				CN0DbHz:            float32(synchro.CN0DbHz),
				CarrierLockTest:    float32(debug.CarrierLockTest),
				SampleCounterSecs:  synchro.TrackingTimestampSecs,
			})
		}

		if lol != nil {
			c.logger.Warn("loss of lock", "prn", lol.PRN, "cn0_db_hz", lol.CN0DbHz)
			if c.bus != nil {
				c.bus.Publish(*lol)
			}
			if err := c.tracker.Disable(); err != nil {
				c.logger.Warn("disable tracker failed", "err", err)
			}
			return nil
		}
	}
}

// Stop releases the channel's dump file and discriminator resources. Any
// in-flight subframe is discarded, matching spec.md §5's Stop semantics.
func (c *Channel) Stop() error {
	if c.dump != nil {
		if err := c.dump.Close(); err != nil {
			return fmt.Errorf("channel %d stop: %w", c.cfg.ChannelID, err)
		}
	}
	return c.tracker.Disable()
}
