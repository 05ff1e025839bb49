package l1ca

import (
	"fmt"
	"math"
)

// TrackingState is the per-channel tracking lifecycle, per spec.md §4.1's
// {Disabled, PullIn, Tracking} state machine.
type TrackingState int

const (
	StateDisabled TrackingState = iota
	StatePullIn
	StateTracking
)

func (s TrackingState) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StatePullIn:
		return "pull-in"
	case StateTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// TrackerConfig holds the per-channel configuration spec.md §3 calls out:
// sampling frequency, DLL/PLL loop bandwidths and the early-late correlator
// spacing.
type TrackerConfig struct {
	FsInHz            float64
	DLLBandwidthHz    float64
	PLLBandwidthHz    float64
	EarlyLateSpcChips float64
}

// LossOfLock is emitted on the control bus when the lock-fail counter trips
// (spec.md §5's ControlBus event).
type LossOfLock struct {
	ChannelID int
	PRN       int
	CN0DbHz   float64
}

// TrackDebug carries the per-step instrumentation spec.md §6's dump format
// records alongside each Synchro — the raw/NCO-filtered discriminator
// values and the absolute E/P/L magnitudes — none of which belong on the
// Synchro entity itself (spec.md §3 names Synchro's fields exactly).
type TrackDebug struct {
	AbsEarly        float64
	AbsPrompt       float64
	AbsLate         float64
	SampleCounter   uint64
	CodeFreqHz      float64
	CarrError       float64
	CarrNCO         float64
	CodeError       float64
	CodeNCO         float64
	CarrierLockTest float64
}

// Tracker is the per-satellite code/carrier tracking loop. One Tracker
// instance owns one channel's PRN replica, loop filters and CN0 estimator;
// Step is called once per PRN period with the next block of raw IQ samples.
// Grounded on the constructor/general_work pairing in the original tracking
// block (see DESIGN.md), reimplemented as an explicit state machine instead
// of a GNU Radio scheduler callback.
type Tracker struct {
	cfg       TrackerConfig
	channelID int
	prn       int

	state TrackingState

	caCode     [GPSL1CACodeLengthChips + 2]complex128
	replica    *replicaBuffer
	carrierBuf []complex128

	remCodePhaseSamples float64 // spec.md §4.1 step 6's rem_code_phase_samples
	remCarrierPhaseRad  float64

	carrierDopplerHz float64
	acqDopplerHz     float64
	codeFreqHz       float64

	codePhaseSamples  float64 // spec.md §4.1 step 6's running code_phase_samples
	nextPRNLenSamples int

	pullInConsumeSamples int

	discr DiscriminatorController
	cn0   *cn0Estimator

	sampleCounter    uint64
	trackingTimeSecs float64

	lastSynchro Synchro
}

// NewTracker constructs a Tracker for one channel; the PRN replica and
// correlator buffers are allocated once here, not per Step call.
func NewTracker(channelID int, cfg TrackerConfig) *Tracker {
	prnLenSamples := int(math.Round(cfg.FsInHz / (GPSL1CACodeRateHz / GPSL1CACodeLengthChips)))
	earlyLateSpcSamples := int(math.Round(cfg.EarlyLateSpcChips * cfg.FsInHz / GPSL1CACodeRateHz))

	return &Tracker{
		cfg:               cfg,
		channelID:         channelID,
		state:             StateDisabled,
		replica:           newReplicaBuffer(prnLenSamples, earlyLateSpcSamples),
		carrierBuf:        make([]complex128, prnLenSamples+2*earlyLateSpcSamples),
		nextPRNLenSamples: prnLenSamples,
		discr:             newLocalController(cfg.DLLBandwidthHz, cfg.PLLBandwidthHz),
		cn0:               newCN0Estimator(float64(GPSL1CACodeLengthChips) / GPSL1CACodeRateHz),
	}
}

// SetSatellite assigns the PRN this tracker follows, regenerating the local
// code replica. Per SPEC_FULL.md §12's supplemented set_satellite/
// set_channel setters.
func (t *Tracker) SetSatellite(prn int) {
	t.prn = prn
	t.caCode = BuildRingPaddedCACode(prn)
}

// SetChannel reassigns the channel identifier stamped onto emitted Synchros.
func (t *Tracker) SetChannel(channelID int) {
	t.channelID = channelID
}

// pullInConsumeSamplesFor computes spec.md §4.1 step 1's pull-in sample
// skip: shift = next_prn_len - (acq_to_trk_delay mod next_prn_len), then
// consume round(acq_code_phase_samples + shift) samples before the first
// real correlation. Spec.md §8 scenario 5: nextPrnLen=2046,
// acqToTrkDelaySamples=2000-1000=1000, acqCodePhaseSamples=512 -> 1558.
func pullInConsumeSamplesFor(nextPrnLen int, acqToTrkDelaySamples int64, acqCodePhaseSamples float64) int {
	delayMod := acqToTrkDelaySamples % int64(nextPrnLen)
	if delayMod < 0 {
		delayMod += int64(nextPrnLen)
	}
	shift := nextPrnLen - int(delayMod)
	return int(math.Round(acqCodePhaseSamples + float64(shift)))
}

// StartTracking hands off from acquisition: it computes the pull-in sample
// skip needed to align to the next PRN epoch and enters PullIn.
// sampleCounterAtAcquisition is this tracker's running input-sample count
// at the moment acquisition handed off (spec.md §4.1 step 1's
// acq_to_trk_delay = sample_counter - acq_sample_stamp). Grounded on
// start_tracking() in the original tracking block.
func (t *Tracker) StartTracking(acq AcqResult, sampleCounterAtAcquisition uint64) error {
	if acq.PRN < 1 || acq.PRN > 32 {
		return fmt.Errorf("start tracking: invalid PRN %d", acq.PRN)
	}
	t.SetSatellite(acq.PRN)
	t.acqDopplerHz = acq.DopplerHz
	t.carrierDopplerHz = acq.DopplerHz
	t.codeFreqHz = GPSL1CACodeRateHz * (1 + acq.DopplerHz/GPSL1FreqHz)
	t.nextPRNLenSamples = int(math.Round(t.cfg.FsInHz / t.codeFreqHz * GPSL1CACodeLengthChips))

	acqToTrkDelaySamples := int64(sampleCounterAtAcquisition) - int64(acq.SampleStamp)
	t.pullInConsumeSamples = pullInConsumeSamplesFor(t.nextPRNLenSamples, acqToTrkDelaySamples, acq.CodePhaseSamples)

	t.remCodePhaseSamples = 0
	t.remCarrierPhaseRad = 0
	t.codePhaseSamples = 0
	t.sampleCounter = sampleCounterAtAcquisition
	t.trackingTimeSecs = 0
	t.state = StatePullIn
	return nil
}

// SamplesNeeded reports how many input samples Step needs next: the
// pull-in skip count while PullIn, otherwise the current PRN period length,
// which drifts with the code NCO.
func (t *Tracker) SamplesNeeded() int {
	if t.state == StatePullIn {
		return t.pullInConsumeSamples
	}
	return t.nextPRNLenSamples
}

// Step consumes one PRN period's samples and advances the tracking loop by
// one iteration, returning the emitted Synchro, its dump-telemetry debug
// values, and, if the lock-fail counter trips this period, a non-nil
// LossOfLock.
//
// Mirrors general_work()'s per-period body in the grounded tracking block:
// pull-in sample skip, generate EPL/carrier replicas, wipe off carrier and
// correlate, NaN-guard, run the discriminator, update the NCO bookkeeping,
// and periodically refresh the CN0/lock estimate.
func (t *Tracker) Step(in []Sample) (Synchro, TrackDebug, *LossOfLock, error) {
	if t.state == StateDisabled {
		return Synchro{}, TrackDebug{}, nil, fmt.Errorf("step: tracker disabled for channel %d", t.channelID)
	}
	need := t.SamplesNeeded()
	if len(in) < need {
		return Synchro{}, TrackDebug{}, nil, fmt.Errorf("step: need %d samples, got %d", need, len(in))
	}

	if t.state == StatePullIn {
		t.sampleCounter += uint64(t.pullInConsumeSamples)
		t.trackingTimeSecs += float64(t.pullInConsumeSamples) / t.cfg.FsInHz
		t.state = StateTracking
		synchro := Synchro{
			ChannelID:             t.channelID,
			PRN:                   t.prn,
			TrackingTimestampSecs: t.trackingTimeSecs,
			ValidTracking:         false,
		}
		return synchro, TrackDebug{SampleCounter: t.sampleCounter}, nil, nil
	}

	n := t.nextPRNLenSamples
	buf := make([]complex128, n)
	for i := 0; i < n; i++ {
		buf[i] = complex(float64(real(in[i])), float64(imag(in[i])))
	}

	remCodePhaseChips := t.remCodePhaseSamples * t.codeFreqHz / t.cfg.FsInHz
	codePhaseStepChips := t.codeFreqHz / t.cfg.FsInHz
	generateEPLCode(t.caCode, t.replica, n, codePhaseStepChips, remCodePhaseChips, t.cfg.EarlyLateSpcChips)
	t.remCarrierPhaseRad = generateCarrierReplica(t.carrierBuf[:n], t.carrierDopplerHz, t.cfg.FsInHz, t.remCarrierPhaseRad)

	e, p, lt := carrierWipeoffAndEPL(buf, t.carrierBuf[:n],
		t.replica.early(n), t.replica.prompt(n), t.replica.late(n))

	intervalSecs := float64(n) / t.cfg.FsInHz

	// spec.md §4.1 step 4: a NaN prompt correlator output emits a zero
	// Synchro with valid_tracking=false instead of an error, and still
	// advances the sample counter by the samples consumed this step.
	if anyNaN(real(p), imag(p)) {
		t.sampleCounter += uint64(n)
		t.trackingTimeSecs += intervalSecs
		synchro := Synchro{
			ChannelID:             t.channelID,
			PRN:                   t.prn,
			TrackingTimestampSecs: t.trackingTimeSecs,
			ValidTracking:         false,
		}
		return synchro, TrackDebug{SampleCounter: t.sampleCounter}, nil, nil
	}

	result, err := t.discr.Step(e, p, lt, t.acqDopplerHz, t.codeFreqHz, intervalSecs)
	if err != nil {
		return Synchro{}, TrackDebug{}, nil, fmt.Errorf("step: discriminator: %w", err)
	}
	t.carrierDopplerHz = result.NewDopplerHz
	codeFreqHz := result.NewCodeFreqHz

	// spec.md §4.1 step 6: NCO accounting in samples.
	tChip := 1 / codeFreqHz
	tPrn := tChip * GPSL1CACodeLengthChips
	kBlk := tPrn*t.cfg.FsInHz + t.remCodePhaseSamples
	nextPrnLen := int(math.Round(kBlk))
	nextRemCodePhase := kBlk - float64(nextPrnLen)

	tPrnTrueSamples := t.cfg.FsInHz * GPSL1CACodeLengthChips / GPSL1CACodeRateHz
	t.codePhaseSamples = math.Mod(t.codePhaseSamples+(kBlk-tPrnTrueSamples), tPrnTrueSamples)
	if t.codePhaseSamples < 0 {
		t.codePhaseSamples += tPrnTrueSamples
	}

	t.codeFreqHz = codeFreqHz
	t.remCodePhaseSamples = nextRemCodePhase
	t.nextPRNLenSamples = nextPrnLen

	t.sampleCounter += uint64(n)
	t.trackingTimeSecs += intervalSecs

	t.cn0.accumulate(real(p), imag(p))
	cn0DbHz := t.cn0.lastCN0DbHz
	var carrierLockTest float64
	var lol *LossOfLock
	if t.cn0.ready() {
		var trip bool
		cn0DbHz, carrierLockTest, trip = t.cn0.evaluate()
		if trip {
			lol = &LossOfLock{ChannelID: t.channelID, PRN: t.prn, CN0DbHz: cn0DbHz}
		}
	}

	synchro := Synchro{
		PromptI:               real(p),
		PromptQ:               imag(p),
		CarrierPhaseRad:       t.remCarrierPhaseRad,
		CarrierDopplerHz:      t.carrierDopplerHz,
		CodePhaseSecs:         t.codePhaseSamples / t.cfg.FsInHz,
		TrackingTimestampSecs: t.trackingTimeSecs,
		CN0DbHz:               cn0DbHz,
		ValidTracking:         lol == nil,
		ChannelID:             t.channelID,
		PRN:                   t.prn,
	}
	debug := TrackDebug{
		AbsEarly:        cmplx_abs(e),
		AbsPrompt:       cmplx_abs(p),
		AbsLate:         cmplx_abs(lt),
		SampleCounter:   t.sampleCounter,
		CodeFreqHz:      codeFreqHz,
		CarrError:       result.CarrError,
		CarrNCO:         result.CarrNCO,
		CodeError:       result.CodeError,
		CodeNCO:         result.CodeNCO,
		CarrierLockTest: carrierLockTest,
	}
	t.lastSynchro = synchro
	return synchro, debug, lol, nil
}

// Disable stops the tracker and releases its discriminator resources.
func (t *Tracker) Disable() error {
	t.state = StateDisabled
	return t.discr.Close()
}
